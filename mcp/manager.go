package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/armatrix/agent-tools-go/internal/metrics"
)

// State is the lifecycle state of a configured server.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	// StateFailed servers exhausted their connect attempts and are skipped
	// by ConnectAll until Retry is called.
	StateFailed State = "failed"
)

// ConnectionStatus is a point-in-time view of one server.
type ConnectionStatus struct {
	Name         string
	Transport    TransportType
	Enabled      bool
	State        State
	ConnectedAt  time.Time
	Attempts     int
	LastError    error
	Capabilities Capabilities
}

// Connected reports whether the server has a live connection.
func (s ConnectionStatus) Connected() bool { return s.State == StateConnected }

// entry is one configured server. Retry bookkeeping lives here so each
// server reconnects independently.
type entry struct {
	cfg       ServerConfig
	transport Transport // injected; nil means build one from cfg
	conn      *Connection
	state     State
	attempts  int
	lastErr   error
	// gen is bumped by detach so a connect still dialing can tell it was
	// torn down underneath.
	gen uint64

	connectMu sync.Mutex // serializes Connect for this server
}

// Manager manages connections to multiple MCP servers. It is the only owner
// of Connection values; callers address servers by name.
type Manager struct {
	mu      sync.RWMutex
	servers map[string]*entry
	order   []string

	factory              TransportFactory
	logger               *slog.Logger
	metrics              *metrics.Metrics
	closeTimeout         time.Duration
	disconnectAllTimeout time.Duration
}

// NewManager creates a Manager from the given server configurations. Map
// keys are used as names for configs that leave Name empty. Invalid configs
// are registered in the failed state and report their validation error.
func NewManager(configs map[string]ServerConfig, opts ...Option) *Manager {
	m := newManager(opts)
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		cfg := configs[name]
		if cfg.Name == "" {
			cfg.Name = name
		}
		if err := m.Add(cfg); err != nil {
			m.addFailed(cfg, err)
		}
	}
	return m
}

// NewManagerWithTransports creates a Manager over pre-built transports,
// one server per map key. Servers use default limits.
func NewManagerWithTransports(transports map[string]Transport, opts ...Option) *Manager {
	m := newManager(opts)
	names := make([]string, 0, len(transports))
	for name := range transports {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		m.AddTransport(name, transports[name])
	}
	return m
}

// AddTransport registers a server reached through a pre-built transport,
// such as an SDKServer's. An existing server of that name is replaced.
func (m *Manager) AddTransport(name string, t Transport) {
	m.put(&entry{
		cfg:       ServerConfig{Name: name}.withDefaults(),
		transport: t,
		state:     StateDisconnected,
	})
}

func newManager(opts []Option) *Manager {
	m := &Manager{
		servers:              make(map[string]*entry),
		factory:              NewTransport,
		logger:               slog.New(slog.DiscardHandler),
		closeTimeout:         DefaultCloseTimeout,
		disconnectAllTimeout: DefaultDisconnectAllTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) put(e *entry) {
	name := e.cfg.Name
	if AmbiguousServerName(name) {
		m.logger.Warn("mcp server name is ambiguous in qualified tool names",
			"server", name, "separator", ToolSeparator)
	}
	m.mu.Lock()
	old, replaced := m.servers[name]
	if !replaced {
		m.order = append(m.order, name)
	}
	m.servers[name] = e
	m.mu.Unlock()

	if replaced {
		if conn := m.detach(old); conn != nil {
			m.metrics.SetServerUp(name, false)
			m.discard(name, conn)
		}
	}
}

func (m *Manager) addFailed(cfg ServerConfig, err error) {
	m.logger.Warn("invalid mcp server config", "server", cfg.Name, "error", err)
	m.put(&entry{cfg: cfg, state: StateFailed, lastErr: err})
}

// Add registers a server, or replaces the config of an existing one. A
// replaced server keeps any live connection until it is disconnected; its
// failed mark is cleared.
func (m *Manager) Add(cfg ServerConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg = cfg.withDefaults()

	m.mu.Lock()
	if e, ok := m.servers[cfg.Name]; ok {
		e.cfg = cfg
		if e.state == StateFailed {
			e.state = StateDisconnected
			e.lastErr = nil
		}
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	m.put(&entry{cfg: cfg, state: StateDisconnected})
	return nil
}

// Configs returns copies of every registered config in registration order.
func (m *Manager) Configs() []ServerConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ServerConfig, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.servers[name].cfg.withDefaults())
	}
	return out
}

// ServerNames returns the names of all configured servers.
func (m *Manager) ServerNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order)
}

func (m *Manager) lookup(name string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.servers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, name)
	}
	return e, nil
}

// ConnectAll connects every server that is not connected or failed,
// concurrently. With enabledOnly, disabled servers are skipped. One
// server's failure never stops the others; all failures are returned
// joined.
func (m *Manager) ConnectAll(ctx context.Context, enabledOnly bool) error {
	m.mu.RLock()
	var targets []string
	for _, name := range m.order {
		e := m.servers[name]
		switch {
		case enabledOnly && !e.cfg.Enabled():
		case e.state == StateFailed:
			m.logger.Debug("skipping failed mcp server", "server", name)
		case e.state == StateConnected:
		default:
			targets = append(targets, name)
		}
	}
	m.mu.RUnlock()

	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, name := range targets {
		wg.Go(func() {
			errs[i] = m.Connect(ctx, name)
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Connect connects one server, making up to RetryAttempts attempts spaced
// by RetryDelay. Each attempt is bounded by the server's Timeout. When the
// attempts are exhausted the last error is recorded and the server is marked
// failed; if ctx ends first the server is left disconnected. Connecting an
// already connected server is a no-op.
func (m *Manager) Connect(ctx context.Context, name string) error {
	e, err := m.lookup(name)
	if err != nil {
		return err
	}
	e.connectMu.Lock()
	defer e.connectMu.Unlock()

	m.mu.Lock()
	if e.state == StateConnected {
		m.mu.Unlock()
		return nil
	}
	if e.transport == nil {
		if err := e.cfg.Validate(); err != nil {
			e.state, e.lastErr = StateFailed, err
			m.mu.Unlock()
			return err
		}
	}
	cfg := e.cfg.withDefaults()
	e.state = StateConnecting
	e.attempts = 0
	gen := e.gen
	m.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= cfg.RetryAttempts; attempt++ {
		if attempt > 1 {
			if sleep(ctx, cfg.RetryDelay) != nil {
				break
			}
			if m.detached(e, gen) {
				return fmt.Errorf("%w: %s", ErrNotConnected, name)
			}
		}

		conn, err := m.dial(ctx, e, cfg)
		m.metrics.ConnectAttempt(name, err == nil)

		if err == nil {
			m.mu.Lock()
			if e.gen != gen || e.state != StateConnecting {
				m.mu.Unlock()
				m.discard(name, conn)
				return fmt.Errorf("%w: %s: disconnected while connecting", ErrNotConnected, name)
			}
			e.attempts = attempt
			e.conn = conn
			e.state = StateConnected
			e.lastErr = nil
			m.mu.Unlock()

			m.metrics.SetServerUp(name, true)
			m.logger.Info("mcp server connected",
				"server", name,
				"transport", cfg.Transport,
				"attempt", attempt,
				"tools", conn.Capabilities().Tools,
				"resources", conn.Capabilities().Resources)
			return nil
		}

		var ce *ConnectError
		if errors.As(err, &ce) {
			ce.Attempt = attempt
		} else {
			err = &ConnectError{Server: name, Attempt: attempt, Err: err}
		}
		lastErr = err
		m.mu.Lock()
		e.attempts = attempt
		m.mu.Unlock()
		m.logger.Warn("mcp connect attempt failed",
			"server", name, "attempt", attempt, "of", cfg.RetryAttempts, "error", err)
		if ctx.Err() != nil {
			break
		}
	}

	m.metrics.SetServerUp(name, false)
	m.mu.Lock()
	if e.gen != gen {
		// Torn down while retrying; detach already settled the state.
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotConnected, name)
	}
	e.lastErr = lastErr
	if ctx.Err() != nil {
		// Interrupted by the caller, not exhausted.
		e.state = StateDisconnected
		m.mu.Unlock()
		return lastErr
	}
	e.state = StateFailed
	m.mu.Unlock()

	m.logger.Error("mcp server failed", "server", name, "error", lastErr)
	return fmt.Errorf("%w: %w", ErrServerFailed, lastErr)
}

func (m *Manager) detached(e *entry, gen uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return e.gen != gen
}

// discard closes a connection no entry owns any more: one that finished
// dialing after its server was disconnected, or one whose entry was
// replaced.
func (m *Manager) discard(name string, conn *Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), m.closeTimeout)
	defer cancel()
	if !conn.Close(ctx) {
		m.logger.Warn("mcp stale connection did not close cleanly", "server", name, "error", conn.LastError())
		return
	}
	m.logger.Info("mcp stale connection closed", "server", name)
}

func (m *Manager) dial(ctx context.Context, e *entry, cfg ServerConfig) (*Connection, error) {
	t := e.transport
	if t == nil {
		var err error
		t, err = m.factory(cfg)
		if err != nil {
			return nil, err
		}
	}
	return OpenConnection(ctx, cfg, t)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retry clears a server's failed mark and connects it again.
func (m *Manager) Retry(ctx context.Context, name string) error {
	e, err := m.lookup(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if e.state == StateFailed {
		e.state = StateDisconnected
	}
	m.mu.Unlock()
	return m.Connect(ctx, name)
}

// detach removes the live connection from e so no caller can reach it.
func (m *Manager) detach(e *entry) *Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn := e.conn
	e.conn = nil
	e.gen++
	if e.state == StateConnected || e.state == StateConnecting {
		e.state = StateDisconnected
	}
	return conn
}

// Disconnect closes one server's connection within the close timeout. The
// server is removed from the live set whether or not its transport
// acknowledged the shutdown. Only an unknown name is an error.
func (m *Manager) Disconnect(ctx context.Context, name string) error {
	e, err := m.lookup(name)
	if err != nil {
		return err
	}
	conn := m.detach(e)
	if conn == nil {
		return nil
	}
	m.metrics.SetServerUp(name, false)

	ctx, cancel := context.WithTimeout(ctx, m.closeTimeout)
	defer cancel()
	if !conn.Close(ctx) {
		m.logger.Warn("mcp server did not close cleanly", "server", name, "error", conn.LastError())
	} else {
		m.logger.Info("mcp server disconnected", "server", name)
	}
	return nil
}

// DisconnectAll closes every live connection concurrently under one overall
// deadline. Every server reports disconnected when it returns, including
// servers whose transports never finished closing.
func (m *Manager) DisconnectAll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.disconnectAllTimeout)
	defer cancel()

	m.mu.RLock()
	names := slices.Clone(m.order)
	m.mu.RUnlock()

	done := make(chan struct{})
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Go(func() {
			_ = m.Disconnect(ctx, name)
		})
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("mcp disconnect-all deadline exceeded, abandoning remaining connections")
		m.mu.Lock()
		for _, e := range m.servers {
			e.conn = nil
			e.gen++
			if e.state == StateConnected || e.state == StateConnecting {
				e.state = StateDisconnected
			}
		}
		m.mu.Unlock()
	}
}

// Close disconnects every server. It always returns nil.
func (m *Manager) Close() error {
	m.DisconnectAll(context.Background())
	return nil
}

// Status returns the status of one server.
func (m *Manager) Status(name string) (ConnectionStatus, error) {
	e, err := m.lookup(name)
	if err != nil {
		return ConnectionStatus{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return statusOf(e), nil
}

// Statuses returns the status of every server in registration order.
func (m *Manager) Statuses() []ConnectionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ConnectionStatus, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, statusOf(m.servers[name]))
	}
	return out
}

func statusOf(e *entry) ConnectionStatus {
	s := ConnectionStatus{
		Name:      e.cfg.Name,
		Transport: e.cfg.Kind(),
		Enabled:   e.cfg.Enabled(),
		State:     e.state,
		Attempts:  e.attempts,
		LastError: e.lastErr,
	}
	if e.conn != nil {
		s.ConnectedAt = e.conn.ConnectedAt()
		s.Capabilities = e.conn.Capabilities()
	}
	return s
}

// IsConnected reports whether name has a live connection.
func (m *Manager) IsConnected(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.servers[name]
	return ok && e.conn != nil
}

// ConnectedServers returns the names of servers with live connections, in
// registration order.
func (m *Manager) ConnectedServers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, name := range m.order {
		if m.servers[name].conn != nil {
			out = append(out, name)
		}
	}
	return out
}

// Probe pings a connected server.
func (m *Manager) Probe(ctx context.Context, name string) bool {
	conn, err := m.live(name)
	if err != nil {
		return false
	}
	return conn.Probe(ctx)
}

func (m *Manager) live(name string) (*Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.servers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, name)
	}
	if e.conn == nil {
		if e.state == StateFailed {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotConnected, name, ErrServerFailed)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, name)
	}
	return e.conn, nil
}

// ListTools lists the tools of a connected server.
func (m *Manager) ListTools(ctx context.Context, server string) ([]ToolInfo, error) {
	conn, err := m.live(server)
	if err != nil {
		return nil, err
	}
	return conn.ListTools(ctx)
}

// CallTool invokes tool on server. Failures to reach the server are
// returned as *InvokeError wrapping ErrServerNotFound or ErrNotConnected.
func (m *Manager) CallTool(ctx context.Context, server, tool string, args map[string]any) (string, error) {
	conn, err := m.live(server)
	if err != nil {
		return "", &InvokeError{Server: server, Tool: tool, Err: err}
	}
	return conn.CallTool(ctx, tool, args)
}

// ListResources lists the resources of a connected server.
func (m *Manager) ListResources(ctx context.Context, server string) ([]Resource, error) {
	conn, err := m.live(server)
	if err != nil {
		return nil, err
	}
	return conn.ListResources(ctx)
}

// ReadResource reads a resource from a connected server.
func (m *Manager) ReadResource(ctx context.Context, server, uri string) (string, error) {
	conn, err := m.live(server)
	if err != nil {
		return "", err
	}
	return conn.ReadResource(ctx, uri)
}
