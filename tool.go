package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/armatrix/agent-tools-go/batch"
	"github.com/armatrix/agent-tools-go/internal/schema"
)

// Tool is the generic interface for agent tools. The type parameter T defines
// the input struct that will be automatically deserialized from JSON.
type Tool[T any] interface {
	Name() string
	Description() string
	Execute(ctx context.Context, input T) (*ToolResult, error)
}

// AccessDeclarer is implemented by tools that declare what they do to the
// paths named in their arguments. Tools that do not implement it are
// scheduled as batch.AccessUnknown.
type AccessDeclarer interface {
	Access() batch.Access
}

// ToolResult is the output of a tool execution.
type ToolResult struct {
	Content  []anthropic.ContentBlockParamUnion
	IsError  bool
	Metadata map[string]any
}

// TextResult is a convenience constructor for a text-only tool result.
func TextResult(text string) *ToolResult {
	return &ToolResult{
		Content: []anthropic.ContentBlockParamUnion{
			anthropic.NewTextBlock(text),
		},
	}
}

// ErrorResult is a convenience constructor for an error tool result.
func ErrorResult(text string) *ToolResult {
	return &ToolResult{
		Content: []anthropic.ContentBlockParamUnion{
			anthropic.NewTextBlock(text),
		},
		IsError: true,
	}
}

// Text joins the text blocks of the result.
func (r *ToolResult) Text() string {
	if r == nil {
		return ""
	}
	var parts []string
	for _, b := range r.Content {
		if b.OfText != nil {
			parts = append(parts, b.OfText.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ExecuteFunc runs a tool with raw JSON input.
type ExecuteFunc func(ctx context.Context, raw json.RawMessage) (*ToolResult, error)

// toolEntry is the type-erased wrapper stored in the registry.
type toolEntry struct {
	name        string
	description string
	access      batch.Access
	schema      anthropic.ToolInputSchemaParam
	input       schema.InputSchema
	execute     ExecuteFunc
}

// ToolRegistry manages registered tools. It is concurrent-safe.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*toolEntry
	order []string // preserve registration order
}

// NewToolRegistry creates a new empty ToolRegistry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]*toolEntry),
	}
}

// RegisterTool registers a generic tool into the registry.
// The input type T is used to auto-generate a JSON Schema. Registering a
// name twice replaces the earlier tool.
func RegisterTool[T any](r *ToolRegistry, tool Tool[T]) {
	access := batch.AccessUnknown
	if d, ok := any(tool).(AccessDeclarer); ok {
		access = d.Access()
	}
	// A schema that cannot be parsed leaves the input unchecked; decoding
	// into T still rejects malformed arguments.
	input, _ := schema.GenerateInput[T]()

	r.add(&toolEntry{
		name:        tool.Name(),
		description: tool.Description(),
		access:      access,
		schema:      schema.Generate[T](),
		input:       input,
		execute: func(ctx context.Context, raw json.RawMessage) (*ToolResult, error) {
			var in T
			if err := json.Unmarshal(raw, &in); err != nil {
				return ErrorResult(fmt.Sprintf("invalid input: %s", err.Error())), nil
			}
			return tool.Execute(ctx, in)
		},
	})
}

// RegisterRaw registers a tool with a pre-built schema and execute function.
// This is used by dynamic tool sources that don't use the generic Tool[T]
// interface.
func (r *ToolRegistry) RegisterRaw(
	name, description string,
	access batch.Access,
	inputSchema anthropic.ToolInputSchemaParam,
	execute ExecuteFunc,
) {
	var input schema.InputSchema
	if raw, err := json.Marshal(inputSchema); err == nil {
		input, _ = schema.Parse(raw)
	}
	r.add(&toolEntry{
		name:        name,
		description: description,
		access:      access,
		schema:      inputSchema,
		input:       input,
		execute:     execute,
	})
}

func (r *ToolRegistry) add(entry *toolEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[entry.name]; !exists {
		r.order = append(r.order, entry.name)
	}
	r.tools[entry.name] = entry
}

// Remove unregisters a tool. It reports whether the tool existed.
func (r *ToolRegistry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return false
	}
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *ToolRegistry) get(name string) (*toolEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	return e, ok
}

// Has reports whether name is registered.
func (r *ToolRegistry) Has(name string) bool {
	_, ok := r.get(name)
	return ok
}

// Access returns the declared access of a registered tool, or
// batch.AccessUnknown.
func (r *ToolRegistry) Access(name string) batch.Access {
	if e, ok := r.get(name); ok {
		return e.access
	}
	return batch.AccessUnknown
}

// Execute runs a tool by name with the given raw JSON input. An unknown name
// returns an UnresolvedToolError.
func (r *ToolRegistry) Execute(ctx context.Context, name string, input json.RawMessage) (*ToolResult, error) {
	entry, ok := r.get(name)
	if !ok {
		return nil, &UnresolvedToolError{Name: name, Reason: "no such local tool"}
	}
	return entry.execute(ctx, input)
}

// ListForAPI returns the registered tools in the format expected by the Anthropic API.
func (r *ToolRegistry) ListForAPI() []anthropic.ToolUnionParam {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]anthropic.ToolUnionParam, 0, len(r.tools))
	for _, name := range r.order {
		entry := r.tools[name]
		result = append(result, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        entry.name,
				Description: param.NewOpt(entry.description),
				InputSchema: entry.schema,
			},
		})
	}
	return result
}

// Names returns the names of all registered tools in registration order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// ToolSearchMatch represents a tool found by search.
type ToolSearchMatch struct {
	Name        string
	Description string
}

// Search finds tools whose name or description contains the query (case-insensitive).
func (r *ToolRegistry) Search(query string) []ToolSearchMatch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(query)
	var matches []ToolSearchMatch
	for _, name := range r.order {
		entry := r.tools[name]
		if strings.Contains(strings.ToLower(entry.name), q) ||
			strings.Contains(strings.ToLower(entry.description), q) {
			matches = append(matches, ToolSearchMatch{
				Name:        entry.name,
				Description: entry.description,
			})
		}
	}
	return matches
}
