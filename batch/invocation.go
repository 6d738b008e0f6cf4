// Package batch executes the tool invocations of one model turn. A
// Classifier derives what each invocation touches, BuildPlan orders them
// into waves of mutually independent invocations, and a Scheduler runs the
// waves in sequence with bounded concurrency inside each wave. Results
// always come back in submission order.
package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidArguments is returned when invocation input is not a JSON
// object or a JSON string holding one.
var ErrInvalidArguments = errors.New("batch: invocation arguments must be a JSON object")

// Invocation is one tool call requested by the model.
type Invocation struct {
	// ID links the result back to the request. Empty IDs are filled in by
	// the Scheduler.
	ID string

	// Name is the local tool name or a qualified MCP tool name.
	Name string

	// Input holds the arguments: a JSON object, or a JSON string whose
	// content is an encoded object.
	Input json.RawMessage
}

// NewInvocation returns an invocation with a fresh ID.
func NewInvocation(name string, input json.RawMessage) Invocation {
	return Invocation{ID: NewID(), Name: name, Input: input}
}

// NewID returns a random invocation ID.
func NewID() string {
	return "call_" + uuid.NewString()
}

// Arguments decodes Input into a map. Empty and null input decode to an
// empty map.
func (inv Invocation) Arguments() (map[string]any, error) {
	raw := bytes.TrimSpace(inv.Input)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		raw = bytes.TrimSpace([]byte(s))
		if len(raw) == 0 {
			return map[string]any{}, nil
		}
	}
	if raw[0] != '{' {
		return nil, ErrInvalidArguments
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// Result is the outcome of one invocation.
type Result struct {
	// Index is the invocation's position in the submitted batch.
	Index int

	ID   string
	Name string

	// Output is the tool's text output, or the failure message.
	Output string

	IsError bool

	// Err carries the typed failure, if any.
	Err error

	Duration time.Duration
}

// Failed builds a failure result for inv.
func Failed(inv Invocation, err error) Result {
	return Result{ID: inv.ID, Name: inv.Name, Output: err.Error(), IsError: true, Err: err}
}

// Dispatcher runs a single invocation. Implementations report failures in
// the Result rather than panicking; the Scheduler recovers panics anyway.
type Dispatcher interface {
	Dispatch(ctx context.Context, inv Invocation) Result
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(ctx context.Context, inv Invocation) Result

// Dispatch calls f.
func (f DispatchFunc) Dispatch(ctx context.Context, inv Invocation) Result {
	return f(ctx, inv)
}
