package mcp

import (
	"log/slog"
	"time"

	"github.com/armatrix/agent-tools-go/internal/metrics"
)

// Default teardown deadlines.
const (
	DefaultCloseTimeout         = 5 * time.Second
	DefaultDisconnectAllTimeout = 10 * time.Second
)

// TransportFactory builds a Transport for a server config.
type TransportFactory func(cfg ServerConfig) (Transport, error)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics reports connect attempts and liveness to mx.
func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mx }
}

// WithTransportFactory replaces NewTransport as the way transports are built.
func WithTransportFactory(f TransportFactory) Option {
	return func(m *Manager) {
		if f != nil {
			m.factory = f
		}
	}
}

// WithCloseTimeout bounds each Disconnect.
func WithCloseTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.closeTimeout = d
		}
	}
}

// WithDisconnectAllTimeout sets the overall deadline of DisconnectAll.
func WithDisconnectAllTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.disconnectAllTimeout = d
		}
	}
}
