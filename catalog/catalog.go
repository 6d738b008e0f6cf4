// Package catalog aggregates the tools exposed by connected MCP servers into
// one namespace of qualified names. Readers always see a complete snapshot:
// Refresh builds the next snapshot off to the side and swaps it in
// atomically.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/armatrix/agent-tools-go/internal/metrics"
	"github.com/armatrix/agent-tools-go/internal/schema"
	"github.com/armatrix/agent-tools-go/mcp"
)

// DefaultRefreshConcurrency caps concurrent tools/list calls during Refresh.
const DefaultRefreshConcurrency = 8

// Source lists tools from connected servers. *mcp.Manager implements it.
type Source interface {
	ConnectedServers() []string
	ListTools(ctx context.Context, server string) ([]mcp.ToolInfo, error)
}

// ToolDescriptor describes one external tool. Values are immutable once
// published in a snapshot.
type ToolDescriptor struct {
	// Name is the qualified name, mcp__{server}__{tool}.
	Name string

	// Tool is the name the server knows the tool by.
	Tool string

	// Server owns the tool.
	Server string

	Description string

	// Schema is the parsed input contract used for argument validation.
	Schema schema.InputSchema

	// RawSchema is the JSON schema as the server sent it.
	RawSchema json.RawMessage

	// ReadOnly mirrors the server's read-only hint.
	ReadOnly bool
}

type snapshot struct {
	tools    []ToolDescriptor
	byName   map[string]int
	byServer map[string][]int
	at       time.Time
}

var emptySnapshot = &snapshot{byName: map[string]int{}, byServer: map[string][]int{}}

// Catalog is safe for concurrent use. Refresh calls are serialized.
type Catalog struct {
	source  Source
	current atomic.Pointer[snapshot]
	refresh chan struct{}

	logger      *slog.Logger
	metrics     *metrics.Metrics
	concurrency int
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics reports the snapshot size to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Catalog) { c.metrics = m }
}

// WithConcurrency caps concurrent listings during Refresh.
func WithConcurrency(n int) Option {
	return func(c *Catalog) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New creates an empty Catalog over src. Call Refresh to populate it.
func New(src Source, opts ...Option) *Catalog {
	c := &Catalog{
		source:      src,
		refresh:     make(chan struct{}, 1),
		logger:      slog.New(slog.DiscardHandler),
		concurrency: DefaultRefreshConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.current.Store(emptySnapshot)
	return c
}

// Refresh lists tools from every connected server concurrently and replaces
// the snapshot. A server whose listing fails contributes no tools, and the
// tools of every healthy server are kept. The per-server failures are
// returned joined; the new snapshot is published either way. A server that
// does not offer tools is skipped without error.
func (c *Catalog) Refresh(ctx context.Context) error {
	select {
	case c.refresh <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.refresh }()

	servers := c.source.ConnectedServers()
	listed := make([][]mcp.ToolInfo, len(servers))
	errs := make([]error, len(servers))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, server := range servers {
		g.Go(func() error {
			tools, err := c.source.ListTools(ctx, server)
			if errors.Is(err, mcp.ErrUnsupported) {
				c.logger.Debug("catalog skipped server without tools", "server", server)
				return nil
			}
			if err != nil {
				errs[i] = fmt.Errorf("catalog: list tools from %s: %w", server, err)
				return nil
			}
			listed[i] = tools
			return nil
		})
	}
	_ = g.Wait()

	next := &snapshot{
		byName:   make(map[string]int),
		byServer: make(map[string][]int),
		at:       time.Now(),
	}
	for i, server := range servers {
		if errs[i] != nil {
			c.logger.Warn("catalog refresh skipped server", "server", server, "error", errs[i])
			continue
		}
		for _, ti := range listed[i] {
			d, err := describe(server, ti)
			if err != nil {
				errs[i] = errors.Join(errs[i], err)
				c.logger.Warn("catalog skipped tool", "server", server, "tool", ti.Name, "error", err)
				continue
			}
			if _, dup := next.byName[d.Name]; dup {
				c.logger.Warn("catalog duplicate qualified name, keeping first", "name", d.Name)
				continue
			}
			next.byName[d.Name] = len(next.tools)
			next.byServer[server] = append(next.byServer[server], len(next.tools))
			next.tools = append(next.tools, d)
		}
	}

	c.current.Store(next)
	c.metrics.SetCatalogSize(len(next.tools))
	c.logger.Debug("catalog refreshed", "servers", len(servers), "tools", len(next.tools))
	return errors.Join(errs...)
}

func describe(server string, ti mcp.ToolInfo) (ToolDescriptor, error) {
	in, err := schema.Parse(ti.InputSchema)
	if err != nil {
		return ToolDescriptor{}, fmt.Errorf("catalog: tool %s on %s: %w", ti.Name, server, err)
	}
	return ToolDescriptor{
		Name:        mcp.QualifiedName(server, ti.Name),
		Tool:        ti.Name,
		Server:      server,
		Description: ti.Description,
		Schema:      in,
		RawSchema:   append(json.RawMessage(nil), ti.InputSchema...),
		ReadOnly:    ti.ReadOnly,
	}, nil
}

func (c *Catalog) snap() *snapshot { return c.current.Load() }

// All returns every tool in the current snapshot.
func (c *Catalog) All() []ToolDescriptor {
	s := c.snap()
	return append([]ToolDescriptor(nil), s.tools...)
}

// Len returns the number of tools in the current snapshot.
func (c *Catalog) Len() int { return len(c.snap().tools) }

// RefreshedAt returns when the current snapshot was built, or the zero
// time before the first Refresh.
func (c *Catalog) RefreshedAt() time.Time { return c.snap().at }

// ByServer returns the tools owned by server.
func (c *Catalog) ByServer(server string) []ToolDescriptor {
	s := c.snap()
	idx := s.byServer[server]
	out := make([]ToolDescriptor, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.tools[i])
	}
	return out
}

// Search returns tools whose qualified name, local name or description
// contains query, ignoring case. An empty query matches everything.
func (c *Catalog) Search(query string) []ToolDescriptor {
	s := c.snap()
	q := strings.ToLower(strings.TrimSpace(query))
	var out []ToolDescriptor
	for _, d := range s.tools {
		if q == "" ||
			strings.Contains(strings.ToLower(d.Name), q) ||
			strings.Contains(strings.ToLower(d.Tool), q) ||
			strings.Contains(strings.ToLower(d.Description), q) {
			out = append(out, d)
		}
	}
	return out
}

// Resolve looks up a qualified name.
func (c *Catalog) Resolve(name string) (ToolDescriptor, bool) {
	s := c.snap()
	i, ok := s.byName[name]
	if !ok {
		return ToolDescriptor{}, false
	}
	return s.tools[i], true
}
