package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/armatrix/agent-tools-go/internal/metrics"
	"github.com/armatrix/agent-tools-go/mcp"
)

// DefaultMaxConcurrency caps in-flight invocations within a wave.
const DefaultMaxConcurrency = 10

// ErrPanic is wrapped by results of invocations whose dispatch panicked.
var ErrPanic = errors.New("batch: tool panicked")

// ErrNotStarted is wrapped by results of invocations that never ran because
// the batch context ended first.
var ErrNotStarted = errors.New("batch: invocation not started")

// Scheduler executes batches. It is safe for concurrent use.
type Scheduler struct {
	dispatcher     Dispatcher
	classifier     *Classifier
	maxConcurrency int
	timeout        time.Duration
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithMaxConcurrency caps concurrent invocations within a wave.
func WithMaxConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxConcurrency = n
		}
	}
}

// WithInvocationTimeout bounds every single invocation.
func WithInvocationTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records plans and invocation outcomes in m.
func WithMetrics(m *metrics.Metrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// NewScheduler creates a Scheduler. A nil classifier treats every tool as
// AccessUnknown.
func NewScheduler(d Dispatcher, c *Classifier, opts ...SchedulerOption) *Scheduler {
	if c == nil {
		c = NewClassifier(nil)
	}
	s := &Scheduler{
		dispatcher:     d,
		classifier:     c,
		maxConcurrency: DefaultMaxConcurrency,
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan returns the waves Execute would use for invs.
func (s *Scheduler) Plan(invs []Invocation) Plan {
	return BuildPlan(invs, s.classifier)
}

// Execute runs invs and returns one result per invocation, in submission
// order. Waves run strictly one after another; a wave's members run
// concurrently and a failing member never cancels its siblings. Once ctx is
// done, invocations that have not started fail with ErrNotStarted. Execute
// never panics because of a tool.
func (s *Scheduler) Execute(ctx context.Context, invs []Invocation) []Result {
	invs = withIDs(invs)
	results := make([]Result, len(invs))
	if len(invs) == 0 {
		return results
	}

	plan := s.Plan(invs)
	s.metrics.ObservePlan(plan.Sizes())
	s.logger.Debug("batch planned", "invocations", len(invs), "waves", len(plan.Waves))

	for w, wave := range plan.Waves {
		var g errgroup.Group
		g.SetLimit(s.maxConcurrency)
		for _, idx := range wave {
			g.Go(func() error {
				results[idx] = s.run(ctx, invs[idx])
				results[idx].Index = idx
				return nil
			})
		}
		_ = g.Wait()
		s.logger.Debug("wave finished", "wave", w, "size", len(wave))
	}
	return results
}

func withIDs(invs []Invocation) []Invocation {
	out := make([]Invocation, len(invs))
	for i, inv := range invs {
		if inv.ID == "" {
			inv.ID = NewID()
		}
		out[i] = inv
	}
	return out
}

func (s *Scheduler) run(ctx context.Context, inv Invocation) Result {
	if err := ctx.Err(); err != nil {
		return Failed(inv, fmt.Errorf("%w: %s: %w", ErrNotStarted, inv.Name, err))
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	r := s.safeDispatch(ctx, inv)
	r.Duration = time.Since(start)
	r.ID, r.Name = inv.ID, inv.Name
	if r.Err != nil {
		r.IsError = true
		if r.Output == "" {
			r.Output = r.Err.Error()
		}
	}

	source := "local"
	if mcp.IsQualifiedName(inv.Name) {
		source = "mcp"
	}
	s.metrics.ObserveInvocation(source, !r.IsError, r.Duration)
	if r.IsError {
		s.logger.Debug("invocation failed", "tool", inv.Name, "id", inv.ID, "error", r.Output)
	}
	return r
}

// safeDispatch converts a dispatch panic into a failure result.
func (s *Scheduler) safeDispatch(ctx context.Context, inv Invocation) (r Result) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("tool panicked", "tool", inv.Name, "panic", p, "stack", string(debug.Stack()))
			r = Failed(inv, fmt.Errorf("%w: %s: %v", ErrPanic, inv.Name, p))
		}
	}()
	return s.dispatcher.Dispatch(ctx, inv)
}
