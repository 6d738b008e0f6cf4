package agent

import (
	"errors"
	"fmt"

	"github.com/armatrix/agent-tools-go/internal/schema"
)

// Sentinel errors returned by the agent and its dispatcher.
var (
	ErrMaxTurns       = errors.New("agent: max turns reached")
	ErrUnresolvedTool = errors.New("agent: unresolved tool")

	// ErrSchemaValidation is wrapped by every argument validation failure.
	ErrSchemaValidation = schema.ErrValidation
)

// UnresolvedToolError reports an invocation whose name matches neither a
// local tool nor a cataloged external tool.
type UnresolvedToolError struct {
	Name   string
	Reason string
}

func (e *UnresolvedToolError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unresolved tool %q", e.Name)
	}
	return fmt.Sprintf("unresolved tool %q: %s", e.Name, e.Reason)
}

func (e *UnresolvedToolError) Unwrap() error { return ErrUnresolvedTool }
