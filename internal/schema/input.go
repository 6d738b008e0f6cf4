package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	gjs "github.com/google/jsonschema-go/jsonschema"
)

// Primitive JSON Schema type names.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
	TypeNull    = "null"
)

// ErrValidation is the sentinel wrapped by every ValidationError.
var ErrValidation = errors.New("schema: validation failed")

// ValidationError reports arguments that do not satisfy a tool's declared
// input contract.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Property is a single declared argument. Types holds every accepted
// primitive type; an empty list accepts any value.
type Property struct {
	Types       []string
	Description string
}

// InputSchema is a tool's declared input contract. Properties and Required
// summarize the top level for coercion and display; the full document is
// enforced by the resolved JSON Schema.
type InputSchema struct {
	Properties map[string]Property
	Required   []string

	resolved *gjs.Resolved
}

// Parse decodes and resolves a raw JSON schema. An empty document yields an
// empty schema that accepts any arguments. The declared $schema draft is
// ignored; servers still on older drafts use the same keywords for argument
// shapes.
func Parse(raw json.RawMessage) (InputSchema, error) {
	var s InputSchema
	if len(raw) == 0 || string(raw) == "null" {
		return s, nil
	}

	var root gjs.Schema
	if err := json.Unmarshal(raw, &root); err != nil {
		return s, fmt.Errorf("parse input schema: %w", err)
	}
	root.Schema = ""
	resolved, err := root.Resolve(nil)
	if err != nil {
		return s, fmt.Errorf("resolve input schema: %w", err)
	}

	s.resolved = resolved
	s.Required = root.Required
	if len(root.Properties) > 0 {
		s.Properties = make(map[string]Property, len(root.Properties))
		for name, p := range root.Properties {
			s.Properties[name] = Property{
				Types:       typesOf(p),
				Description: p.Description,
			}
		}
	}
	return s, nil
}

func typesOf(p *gjs.Schema) []string {
	if p == nil {
		return nil
	}
	var types []string
	if p.Type != "" {
		types = append(types, p.Type)
	}
	types = append(types, p.Types...)
	for _, alt := range slices.Concat(p.AnyOf, p.OneOf) {
		for _, t := range typesOf(alt) {
			if !slices.Contains(types, t) {
				types = append(types, t)
			}
		}
	}
	return types
}

// Validate returns a copy of args with string encoded values coerced to
// their declared type, after checking the copy against the schema. The
// input map is never modified. Coercion runs in property name order so the
// reported error is deterministic.
func (s InputSchema) Validate(args map[string]any) (map[string]any, error) {
	out := maps.Clone(args)
	if out == nil {
		out = make(map[string]any)
	}

	for _, name := range slices.Sorted(maps.Keys(s.Properties)) {
		str, ok := out[name].(string)
		if !ok {
			continue
		}
		types := s.Properties[name].Types
		if len(types) == 0 || slices.Contains(types, TypeString) {
			continue
		}
		coerced, err := fromString(str, types)
		if err != nil {
			return nil, &ValidationError{Field: name, Reason: err.Error()}
		}
		out[name] = coerced
	}

	if s.resolved == nil {
		return out, nil
	}
	if err := s.resolved.Validate(s.instance(out)); err != nil {
		return nil, validationError(err)
	}
	return out, nil
}

// instance drops optional properties sent as null, which callers use to
// mean "not set".
func (s InputSchema) instance(args map[string]any) map[string]any {
	var inst map[string]any
	for name, v := range args {
		if v != nil || slices.Contains(s.Required, name) {
			continue
		}
		if _, declared := s.Properties[name]; !declared {
			continue
		}
		if inst == nil {
			inst = maps.Clone(args)
		}
		delete(inst, name)
	}
	if inst == nil {
		return args
	}
	return inst
}

var (
	propertyPath    = regexp.MustCompile(`/properties/([^/:\s]+)`)
	missingRequired = regexp.MustCompile(`missing properties: \["([^"]+)"`)
	validatingStep  = regexp.MustCompile(`^(validating [^:]*: )+`)
)

// validationError maps a validator failure to the top-level argument it
// concerns.
func validationError(err error) *ValidationError {
	msg := err.Error()
	reason := validatingStep.ReplaceAllString(msg, "")

	if m := missingRequired.FindStringSubmatch(msg); m != nil && !propertyPath.MatchString(msg) {
		return &ValidationError{Field: m[1], Reason: "required property is missing"}
	}
	if m := propertyPath.FindStringSubmatch(msg); m != nil {
		return &ValidationError{Field: m[1], Reason: reason}
	}
	return &ValidationError{Reason: reason}
}

// fromString decodes s as the first of types it parses as.
func fromString(s string, types []string) (any, error) {
	var lastErr error
	for _, t := range types {
		v, err := decodeString(s, t)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func decodeString(s, t string) (any, error) {
	trimmed := strings.TrimSpace(s)
	switch t {
	case TypeNumber:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("expected number, got non-numeric string %q", s)
		}
		return f, nil
	case TypeInteger:
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("expected integer, got string %q", s)
		}
		return f, nil
	case TypeBoolean:
		switch strings.ToLower(trimmed) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return nil, fmt.Errorf("expected boolean, got string %q", s)
	case TypeObject:
		var m map[string]any
		if err := json.Unmarshal([]byte(trimmed), &m); err != nil || m == nil {
			return nil, fmt.Errorf("expected object, got string that is not a JSON object")
		}
		return m, nil
	}
	return nil, fmt.Errorf("expected %s, got string", t)
}
