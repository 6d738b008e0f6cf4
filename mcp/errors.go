package mcp

import (
	"errors"
	"fmt"
)

// Sentinel errors for the MCP package.
var (
	// ErrNotConnected is returned when attempting to use a server that has
	// no live connection.
	ErrNotConnected = errors.New("mcp: server not connected")

	// ErrServerNotFound is returned when referencing a server name that
	// does not exist in the Manager.
	ErrServerNotFound = errors.New("mcp: server not found")

	// ErrToolNotFound is returned when a bridged tool name cannot be
	// resolved to a known server/tool pair.
	ErrToolNotFound = errors.New("mcp: tool not found")

	// ErrInvalidConfig is returned when a ServerConfig is missing
	// required fields for its transport type.
	ErrInvalidConfig = errors.New("mcp: invalid server config")

	// ErrServerFailed is returned for servers whose connect attempts were
	// exhausted. They stay failed until Manager.Retry is called.
	ErrServerFailed = errors.New("mcp: server failed to connect")

	// ErrToolFailed is returned when the server flags a tool result as an
	// error.
	ErrToolFailed = errors.New("mcp: tool reported an error")

	// ErrUnsupported is wrapped by CapabilityError.
	ErrUnsupported = errors.New("mcp: capability not supported")
)

// ConnectError reports a transport that could not be established.
type ConnectError struct {
	Server  string
	Attempt int
	Err     error
}

func (e *ConnectError) Error() string {
	if e.Attempt > 0 {
		return fmt.Sprintf("mcp: connect %s (attempt %d): %v", e.Server, e.Attempt, e.Err)
	}
	return fmt.Sprintf("mcp: connect %s: %v", e.Server, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// CapabilityError reports a listing the connected server does not support.
type CapabilityError struct {
	Server     string
	Capability string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("mcp: server %s does not support %s", e.Server, e.Capability)
}

func (e *CapabilityError) Unwrap() error { return ErrUnsupported }

// InvokeError reports a tool call that failed on the server side, failed in
// transport, or timed out.
type InvokeError struct {
	Server string
	Tool   string
	Err    error
}

func (e *InvokeError) Error() string {
	return fmt.Sprintf("mcp: call %s on %s: %v", e.Tool, e.Server, e.Err)
}

func (e *InvokeError) Unwrap() error { return e.Err }
