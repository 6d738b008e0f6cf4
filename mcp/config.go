// Package mcp maintains live connections to external MCP (Model Context
// Protocol) tool servers. A Manager owns one entry per configured server,
// connects it over stdio, streamable HTTP or SSE, retries failed connects
// according to the server's policy, and forwards tool calls by server name.
package mcp

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// TransportType identifies the MCP transport protocol.
type TransportType string

const (
	// TransportStdio communicates via a subprocess's stdin/stdout.
	TransportStdio TransportType = "stdio"

	// TransportSSE communicates via HTTP Server-Sent Events.
	TransportSSE TransportType = "sse"

	// TransportStreamableHTTP communicates via HTTP streaming.
	TransportStreamableHTTP TransportType = "streamable-http"
)

// Defaults applied by ServerConfig.withDefaults.
const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultToolTimeout    = 2 * time.Minute
	DefaultRetryAttempts  = 1
	DefaultRetryDelay     = time.Second
)

// ServerConfig describes how to connect to a single MCP server.
type ServerConfig struct {
	// Name identifies the server and forms the middle of qualified tool
	// names. It must not be empty.
	Name string

	// Transport selects the communication protocol. When empty it is
	// inferred: Command means stdio, URL means streamable-http.
	Transport TransportType

	// Command is the executable to spawn (stdio transport only).
	Command string

	// Args are command-line arguments for the subprocess.
	Args []string

	// Env are extra environment variables for the subprocess.
	Env map[string]string

	// URL is the server address (SSE and streamable-http transports).
	URL string

	// Headers are sent with every HTTP request (SSE and streamable-http).
	Headers map[string]string

	// Disabled servers are skipped by Manager.ConnectAll(ctx, true).
	Disabled bool

	// Timeout bounds each connect attempt, including the handshake and
	// any capability listing, as well as each Probe.
	Timeout time.Duration

	// ToolTimeout bounds a single tool call.
	ToolTimeout time.Duration

	// RetryAttempts is the number of connect attempts before the server is
	// marked failed.
	RetryAttempts int

	// RetryDelay is the wait between connect attempts.
	RetryDelay time.Duration
}

// Enabled reports whether the server takes part in ConnectAll.
func (c ServerConfig) Enabled() bool {
	return !c.Disabled
}

// Kind returns the effective transport, inferring it when unset.
func (c ServerConfig) Kind() TransportType {
	if c.Transport != "" {
		return c.Transport
	}
	if c.Command != "" {
		return TransportStdio
	}
	if c.URL != "" {
		return TransportStreamableHTTP
	}
	return ""
}

// Validate reports missing fields for the configured transport.
func (c ServerConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: server name is required", ErrInvalidConfig)
	}
	switch c.Kind() {
	case TransportStdio:
		if c.Command == "" {
			return fmt.Errorf("%w: %s: stdio transport requires command", ErrInvalidConfig, c.Name)
		}
	case TransportSSE, TransportStreamableHTTP:
		if c.URL == "" {
			return fmt.Errorf("%w: %s: %s transport requires url", ErrInvalidConfig, c.Name, c.Kind())
		}
	case "":
		return fmt.Errorf("%w: %s: command or url is required", ErrInvalidConfig, c.Name)
	default:
		return fmt.Errorf("%w: %s: unsupported transport %q", ErrInvalidConfig, c.Name, c.Transport)
	}
	if c.RetryAttempts < 0 || c.RetryDelay < 0 || c.Timeout < 0 || c.ToolTimeout < 0 {
		return fmt.Errorf("%w: %s: negative timeout or retry setting", ErrInvalidConfig, c.Name)
	}
	return nil
}

// withDefaults returns a deep copy with zero-valued limits filled in, so the
// Manager never shares maps or slices with the caller.
func (c ServerConfig) withDefaults() ServerConfig {
	c.Transport = c.Kind()
	c.Args = slices.Clone(c.Args)
	c.Env = maps.Clone(c.Env)
	c.Headers = maps.Clone(c.Headers)
	if c.Timeout == 0 {
		c.Timeout = DefaultConnectTimeout
	}
	if c.ToolTimeout == 0 {
		c.ToolTimeout = DefaultToolTimeout
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = DefaultRetryAttempts
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	return c
}
