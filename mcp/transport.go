package mcp

import (
	"context"
	"encoding/json"
	"fmt"
)

// ToolInfo describes a tool discovered from an MCP server.
type ToolInfo struct {
	// Name is the tool's name as reported by the server.
	Name string

	// Description is a human-readable description of the tool.
	Description string

	// InputSchema is the raw JSON schema for the tool's input.
	InputSchema json.RawMessage

	// ReadOnly is the server's hint that the tool does not modify its
	// environment.
	ReadOnly bool
}

// Transport is the interface for communicating with an MCP server.
// Implementations handle the underlying protocol (stdio, HTTP/SSE, etc.).
// A Transport may be connected again after Close.
type Transport interface {
	// Connect establishes the connection and completes the MCP handshake.
	Connect(ctx context.Context) error

	// Ping checks that the server still answers.
	Ping(ctx context.Context) error

	// ListTools discovers available tools from the server.
	ListTools(ctx context.Context) ([]ToolInfo, error)

	// CallTool invokes a tool on the server by name with the given arguments.
	// A result the server flags as an error is returned as its text together
	// with an error wrapping ErrToolFailed.
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)

	// ListResources discovers available resources from the server.
	ListResources(ctx context.Context) ([]Resource, error)

	// ReadResource reads a resource by URI from the server.
	ReadResource(ctx context.Context, uri string) (string, error)

	// Close tears down the connection and releases resources.
	Close() error
}

// CapabilityReporter is implemented by transports that learn the server's
// capabilities from the initialize handshake. ok is false until a handshake
// has completed.
type CapabilityReporter interface {
	Capabilities() (caps Capabilities, ok bool)
}

// NewTransport creates a Transport for the given ServerConfig based on its
// transport type. Returns ErrInvalidConfig if the config is not valid.
func NewTransport(cfg ServerConfig) (Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind() {
	case TransportStdio:
		return NewStdioTransport(cfg)
	case TransportSSE, TransportStreamableHTTP:
		return NewHTTPTransport(cfg)
	default:
		return nil, fmt.Errorf("%w: %s: unsupported transport %q", ErrInvalidConfig, cfg.Name, cfg.Transport)
	}
}

// Resource represents an MCP resource exposed by a server.
type Resource struct {
	// URI is the resource identifier (e.g. "file:///path" or "db://table").
	URI string

	// Name is a human-readable name for the resource.
	Name string

	// Description explains what the resource contains.
	Description string

	// MIMEType is the content type (e.g. "text/plain", "application/json").
	MIMEType string
}
