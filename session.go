package agent

import (
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// Session holds the conversation state of one run or of several runs that
// share history. All state lives in memory.
type Session struct {
	ID        string
	Messages  []anthropic.MessageParam
	CreatedAt time.Time
}

// NewSession creates a new empty session.
func NewSession() *Session {
	return &Session{
		ID:        GenerateID(PrefixSession),
		CreatedAt: time.Now(),
	}
}

// Clone creates a copy of the session with a new ID. The message history is
// copied so the original session is not affected.
func (s *Session) Clone() *Session {
	msgs := make([]anthropic.MessageParam, len(s.Messages))
	copy(msgs, s.Messages)
	return &Session{
		ID:        GenerateID(PrefixSession),
		Messages:  msgs,
		CreatedAt: time.Now(),
	}
}
