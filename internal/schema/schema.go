// Package schema generates tool input schemas for built-in tools and
// validates loosely typed tool arguments against the schemas advertised by
// external tool servers.
package schema

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

// Generate produces an anthropic.ToolInputSchemaParam from a Go struct type T.
// It uses struct tags (json, jsonschema) to derive the JSON Schema.
func Generate[T any]() anthropic.ToolInputSchemaParam {
	var zero T
	root := rootOf(jsonschema.Reflect(&zero))

	return anthropic.ToolInputSchemaParam{
		Properties: properties(root),
		Required:   root.Required,
	}
}

// GenerateInput reflects T and returns the same schema in the form used by
// Validate, so built-in tools and external tools share one validation path.
func GenerateInput[T any]() (InputSchema, error) {
	raw, err := json.Marshal(Generate[T]())
	if err != nil {
		return InputSchema{}, err
	}
	return Parse(raw)
}

// rootOf resolves the root schema. invopop/jsonschema puts the reflected
// type under $defs and points at it with a $ref.
func rootOf(s *jsonschema.Schema) *jsonschema.Schema {
	if s.Ref == "" || s.Definitions == nil {
		return s
	}
	for _, def := range s.Definitions {
		if def.Type == TypeObject {
			return def
		}
	}
	return s
}

func properties(s *jsonschema.Schema) map[string]any {
	if s.Properties == nil {
		return nil
	}
	props := make(map[string]any)
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		props[pair.Key] = property(pair.Value)
	}
	return props
}

func property(s *jsonschema.Schema) map[string]any {
	m := make(map[string]any)

	if s.Type != "" {
		m["type"] = s.Type
	}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if s.Default != nil {
		m["default"] = s.Default
	}
	if len(s.Enum) > 0 {
		m["enum"] = s.Enum
	}

	// Pointer fields are reflected as anyOf [T, null].
	for _, sub := range s.AnyOf {
		if sub.Type != TypeNull && sub.Type != "" {
			m["type"] = sub.Type
			break
		}
	}

	if s.Properties != nil {
		m["type"] = TypeObject
		m["properties"] = properties(s)
		if len(s.Required) > 0 {
			m["required"] = s.Required
		}
	}
	if s.Items != nil {
		m["items"] = property(s.Items)
	}
	return m
}
