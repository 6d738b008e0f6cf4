package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/armatrix/agent-tools-go/batch"
	"github.com/armatrix/agent-tools-go/catalog"
	"github.com/armatrix/agent-tools-go/mcp"
)

// ToolResolver looks up external tools by qualified name.
// *catalog.Catalog implements it.
type ToolResolver interface {
	Resolve(name string) (catalog.ToolDescriptor, bool)
}

// ToolCaller invokes a tool on a named server. *mcp.Manager implements it.
type ToolCaller interface {
	CallTool(ctx context.Context, server, tool string, args map[string]any) (string, error)
}

// Dispatcher runs single invocations against local tools and cataloged
// external tools. It implements batch.Dispatcher.
type Dispatcher struct {
	registry *ToolRegistry
	resolver ToolResolver
	caller   ToolCaller
	logger   *slog.Logger
}

var _ batch.Dispatcher = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher. resolver and caller may be nil when no
// external tools are used.
func NewDispatcher(registry *ToolRegistry, resolver ToolResolver, caller ToolCaller, logger *slog.Logger) *Dispatcher {
	if registry == nil {
		registry = NewToolRegistry()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{registry: registry, resolver: resolver, caller: caller, logger: logger}
}

// Dispatch decodes and validates the arguments of inv, then runs it. Every
// failure, including a panicking tool, comes back in the result.
func (d *Dispatcher) Dispatch(ctx context.Context, inv batch.Invocation) (res batch.Result) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("tool panicked", "tool", inv.Name, "panic", p, "stack", string(debug.Stack()))
			res = batch.Failed(inv, fmt.Errorf("%w: %s: %v", batch.ErrPanic, inv.Name, p))
		}
	}()

	args, err := inv.Arguments()
	if err != nil {
		return batch.Failed(inv, err)
	}

	// Local tools win over a qualified name of the same spelling.
	if !d.registry.Has(inv.Name) && mcp.IsQualifiedName(inv.Name) {
		return d.dispatchExternal(ctx, inv, args)
	}
	return d.dispatchLocal(ctx, inv, args)
}

func (d *Dispatcher) dispatchExternal(ctx context.Context, inv batch.Invocation, args map[string]any) batch.Result {
	if d.resolver == nil || d.caller == nil {
		return batch.Failed(inv, &UnresolvedToolError{Name: inv.Name, Reason: "no external tool servers"})
	}
	desc, ok := d.resolver.Resolve(inv.Name)
	if !ok {
		return batch.Failed(inv, &UnresolvedToolError{Name: inv.Name, Reason: "not in tool catalog"})
	}
	valid, err := desc.Schema.Validate(args)
	if err != nil {
		return batch.Failed(inv, err)
	}

	out, err := d.caller.CallTool(ctx, desc.Server, desc.Tool, valid)
	if err != nil {
		d.logger.Debug("external tool failed", "tool", inv.Name, "error", err)
		return batch.Result{ID: inv.ID, Name: inv.Name, Output: out, IsError: true, Err: err}
	}
	return batch.Result{ID: inv.ID, Name: inv.Name, Output: out}
}

func (d *Dispatcher) dispatchLocal(ctx context.Context, inv batch.Invocation, args map[string]any) batch.Result {
	entry, ok := d.registry.get(inv.Name)
	if !ok {
		return batch.Failed(inv, &UnresolvedToolError{Name: inv.Name, Reason: "no such local tool"})
	}
	valid, err := entry.input.Validate(args)
	if err != nil {
		return batch.Failed(inv, err)
	}
	raw, err := json.Marshal(valid)
	if err != nil {
		return batch.Failed(inv, fmt.Errorf("encode arguments: %w", err))
	}

	tr, err := entry.execute(ctx, raw)
	if err != nil {
		return batch.Failed(inv, err)
	}
	if tr == nil {
		return batch.Result{ID: inv.ID, Name: inv.Name}
	}
	r := batch.Result{ID: inv.ID, Name: inv.Name, Output: tr.Text(), IsError: tr.IsError}
	if tr.IsError && r.Output == "" {
		r.Output = "tool reported an error"
	}
	return r
}
