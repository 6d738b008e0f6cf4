package agent

import (
	"errors"
	"strings"

	"github.com/armatrix/agent-tools-go/internal/engine"
)

// AgentStream is an iterator over events emitted during an agent run.
// Usage:
//
//	stream := agent.Run(ctx, "prompt")
//	for stream.Next() {
//	    event := stream.Current()
//	    // handle event
//	}
//	if err := stream.Err(); err != nil {
//	    // handle error
//	}
type AgentStream struct {
	events  chan Event
	current Event
	err     error
	done    bool
	session *Session
}

// newStream creates a new AgentStream with the given event channel and session.
func newStream(events chan Event, session *Session) *AgentStream {
	return &AgentStream{
		events:  events,
		session: session,
	}
}

// Next advances to the next event. Returns false when the stream is
// exhausted.
func (s *AgentStream) Next() bool {
	if s.done {
		return false
	}
	event, ok := <-s.events
	if !ok {
		s.done = true
		return false
	}
	if r, ok := event.(*ResultEvent); ok && r.IsError {
		s.err = resultError(r)
	}
	s.current = event
	return true
}

// Current returns the most recent event returned by Next.
func (s *AgentStream) Current() Event {
	return s.current
}

// Err returns the error the run ended with, if any. It wraps ErrMaxTurns
// when the turn or token limit stopped the run.
func (s *AgentStream) Err() error {
	return s.err
}

// Session returns the session associated with this stream.
// The session is populated with conversation history after the run completes.
func (s *AgentStream) Session() *Session {
	return s.session
}

func resultError(r *ResultEvent) error {
	msg := strings.Join(r.Errors, "; ")
	if r.Subtype == engine.SubtypeMaxTurns {
		if msg == "" {
			return ErrMaxTurns
		}
		return errors.Join(ErrMaxTurns, errors.New(msg))
	}
	if msg == "" {
		msg = r.Subtype
	}
	return errors.New("agent: " + msg)
}
