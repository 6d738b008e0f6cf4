package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// errCloseTimeout is recorded on connections abandoned during Close.
var errCloseTimeout = errors.New("mcp: close did not complete before deadline")

// Capabilities are the optional listings a connected server supports.
type Capabilities struct {
	Tools     bool
	Resources bool
}

// Connection is the runtime handle for one connected server. Only the
// Manager holds Connections; everything else refers to servers by name.
type Connection struct {
	server      string
	transport   Transport
	timeout     time.Duration
	toolTimeout time.Duration
	connectedAt time.Time

	// inferred is set when caps came from listing calls rather than the
	// handshake. An inferred false is tried again on the next listing.
	inferred bool

	mu        sync.RWMutex
	caps      Capabilities
	connected bool
	lastErr   error
}

// OpenConnection connects t within cfg.Timeout. Capabilities come from the
// handshake when t is a CapabilityReporter; otherwise they are inferred from
// one listing call each. A failed listing leaves that capability unset
// without failing the connect, and later listings still try it.
func OpenConnection(ctx context.Context, cfg ServerConfig, t Transport) (*Connection, error) {
	cfg = cfg.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := t.Connect(ctx); err != nil {
		_ = t.Close()
		return nil, &ConnectError{Server: cfg.Name, Err: err}
	}

	c := &Connection{
		server:      cfg.Name,
		transport:   t,
		timeout:     cfg.Timeout,
		toolTimeout: cfg.ToolTimeout,
		connected:   true,
		connectedAt: time.Now(),
	}
	if r, ok := t.(CapabilityReporter); ok {
		if caps, ok := r.Capabilities(); ok {
			c.caps = caps
			return c, nil
		}
	}
	c.inferred = true
	if _, err := t.ListTools(ctx); err == nil {
		c.caps.Tools = true
	}
	if _, err := t.ListResources(ctx); err == nil {
		c.caps.Resources = true
	}
	return c, nil
}

// Server returns the server name.
func (c *Connection) Server() string { return c.server }

// ConnectedAt returns when the handshake completed.
func (c *Connection) ConnectedAt() time.Time { return c.connectedAt }

// Capabilities returns the capabilities negotiated at connect time, plus any
// inferred capability a later listing proved supported.
func (c *Connection) Capabilities() Capabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caps
}

// supports reports whether a listing may be sent. Negotiated capabilities
// are final; an inferred false is retried.
func (c *Connection) supports(has func(Capabilities) bool) bool {
	return c.inferred || has(c.Capabilities())
}

func (c *Connection) markSupported(set func(*Capabilities)) {
	c.mu.Lock()
	set(&c.caps)
	c.mu.Unlock()
}

func hasTools(caps Capabilities) bool     { return caps.Tools }
func hasResources(caps Capabilities) bool { return caps.Resources }

// Connected reports whether the connection has not been closed.
func (c *Connection) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// LastError returns the most recent probe or close failure.
func (c *Connection) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *Connection) setErr(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Connection) checkOpen() error {
	if !c.Connected() {
		return fmt.Errorf("%w: %s", ErrNotConnected, c.server)
	}
	return nil
}

// Probe pings the server within the connect timeout. Any failure is
// recorded and reported as false.
func (c *Connection) Probe(ctx context.Context) bool {
	if c.checkOpen() != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.transport.Ping(ctx); err != nil {
		c.setErr(err)
		return false
	}
	return true
}

// ListTools lists the server's tools.
func (c *Connection) ListTools(ctx context.Context) ([]ToolInfo, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if !c.supports(hasTools) {
		return nil, &CapabilityError{Server: c.server, Capability: "tools"}
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	tools, err := c.transport.ListTools(ctx)
	if err != nil {
		if !hasTools(c.Capabilities()) {
			return nil, &CapabilityError{Server: c.server, Capability: "tools"}
		}
		return nil, err
	}
	c.markSupported(func(caps *Capabilities) { caps.Tools = true })
	return tools, nil
}

// CallTool invokes tool within the per-call timeout. Every failure is an
// *InvokeError; timeouts wrap context.DeadlineExceeded.
func (c *Connection) CallTool(ctx context.Context, tool string, args map[string]any) (string, error) {
	if err := c.checkOpen(); err != nil {
		return "", &InvokeError{Server: c.server, Tool: tool, Err: err}
	}
	ctx, cancel := context.WithTimeout(ctx, c.toolTimeout)
	defer cancel()

	out, err := c.transport.CallTool(ctx, tool, args)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return out, &InvokeError{Server: c.server, Tool: tool, Err: err}
	}
	return out, nil
}

// ListResources lists the server's resources.
func (c *Connection) ListResources(ctx context.Context) ([]Resource, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if !c.supports(hasResources) {
		return nil, &CapabilityError{Server: c.server, Capability: "resources"}
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resources, err := c.transport.ListResources(ctx)
	if err != nil {
		if !hasResources(c.Capabilities()) {
			return nil, &CapabilityError{Server: c.server, Capability: "resources"}
		}
		return nil, err
	}
	c.markSupported(func(caps *Capabilities) { caps.Resources = true })
	return resources, nil
}

// ReadResource reads one resource by URI.
func (c *Connection) ReadResource(ctx context.Context, uri string) (string, error) {
	if err := c.checkOpen(); err != nil {
		return "", err
	}
	if !c.supports(hasResources) {
		return "", &CapabilityError{Server: c.server, Capability: "resources"}
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.transport.ReadResource(ctx, uri)
}

// Close shuts the transport down. The connection is marked closed at once;
// if the transport has not finished closing when ctx is done, it is
// abandoned. Close reports whether shutdown completed cleanly.
func (c *Connection) Close(ctx context.Context) bool {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return true
	}
	c.connected = false
	c.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- c.transport.Close() }()

	select {
	case err := <-done:
		if err != nil {
			c.setErr(err)
			return false
		}
		return true
	case <-ctx.Done():
		c.setErr(errCloseTimeout)
		return false
	}
}
