// Package metrics exports Prometheus collectors for tool execution and MCP
// server connections. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agent"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the collectors registered by New.
type Metrics struct {
	invocations        *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	batchWaves         prometheus.Histogram
	waveSize           prometheus.Histogram
	connectAttempts    *prometheus.CounterVec
	serverUp           *prometheus.GaugeVec
	catalogTools       prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Tool invocations by source and outcome",
		}, []string{"source", "outcome"}),

		invocationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_invocation_duration_seconds",
			Help:      "Tool invocation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),

		batchWaves: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_waves",
			Help:      "Number of sequential waves per executed batch",
			Buckets:   []float64{1, 2, 3, 5, 8, 13},
		}),

		waveSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_wave_size",
			Help:      "Invocations per wave",
			Buckets:   []float64{1, 2, 4, 8, 16, 32},
		}),

		connectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mcp_connect_attempts_total",
			Help:      "MCP server connect attempts by server and outcome",
		}, []string{"server", "outcome"}),

		serverUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mcp_server_up",
			Help:      "1 when the MCP server has a live connection",
		}, []string{"server"}),

		catalogTools: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_tools",
			Help:      "Tools in the current catalog snapshot",
		}),
	}
	reg.MustRegister(
		m.invocations,
		m.invocationDuration,
		m.batchWaves,
		m.waveSize,
		m.connectAttempts,
		m.serverUp,
		m.catalogTools,
	)
	return m
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeError
}

// ObserveInvocation records one finished invocation. Source is "local" or
// "mcp".
func (m *Metrics) ObserveInvocation(source string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(source, outcome(ok)).Inc()
	m.invocationDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObservePlan records the wave layout of one batch.
func (m *Metrics) ObservePlan(waveSizes []int) {
	if m == nil {
		return
	}
	m.batchWaves.Observe(float64(len(waveSizes)))
	for _, n := range waveSizes {
		m.waveSize.Observe(float64(n))
	}
}

// ConnectAttempt records one connect attempt for server.
func (m *Metrics) ConnectAttempt(server string, ok bool) {
	if m == nil {
		return
	}
	m.connectAttempts.WithLabelValues(server, outcome(ok)).Inc()
}

// SetServerUp sets the liveness gauge for server.
func (m *Metrics) SetServerUp(server string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.serverUp.WithLabelValues(server).Set(v)
}

// SetCatalogSize records the number of tools in the catalog.
func (m *Metrics) SetCatalogSize(n int) {
	if m == nil {
		return
	}
	m.catalogTools.Set(float64(n))
}
