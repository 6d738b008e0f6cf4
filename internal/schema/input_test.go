package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchSchema = `{
	"type": "object",
	"properties": {
		"query":   {"type": "string", "description": "search text"},
		"limit":   {"type": "number"},
		"page":    {"type": "integer"},
		"exact":   {"type": "boolean"},
		"filters": {"type": "object"},
		"tags":    {"type": "array"},
		"cursor":  {"type": ["string", "null"]}
	},
	"required": ["query"]
}`

func mustParse(t *testing.T, raw string) InputSchema {
	t.Helper()
	s, err := Parse(json.RawMessage(raw))
	require.NoError(t, err)
	return s
}

func TestParse(t *testing.T) {
	s := mustParse(t, searchSchema)

	assert.Equal(t, []string{"query"}, s.Required)
	assert.Equal(t, []string{TypeString}, s.Properties["query"].Types)
	assert.Equal(t, "search text", s.Properties["query"].Description)
	assert.Equal(t, []string{TypeString, TypeNull}, s.Properties["cursor"].Types)
}

func TestParse_AnyOf(t *testing.T) {
	s := mustParse(t, `{"properties":{"n":{"anyOf":[{"type":"integer"},{"type":"null"}]}}}`)
	assert.Equal(t, []string{TypeInteger, TypeNull}, s.Properties["n"].Types)
}

func TestParse_Empty(t *testing.T) {
	s, err := Parse(nil)
	require.NoError(t, err)

	out, err := s.Validate(map[string]any{"anything": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, out["anything"])
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse(json.RawMessage(`{not json`))
	require.Error(t, err)
}

func TestValidate_MissingRequired(t *testing.T) {
	s := mustParse(t, searchSchema)

	_, err := s.Validate(map[string]any{"limit": 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "query", ve.Field)
}

func TestValidate_RequiredNull(t *testing.T) {
	s := mustParse(t, searchSchema)

	_, err := s.Validate(map[string]any{"query": nil})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidate_BooleanCoercion(t *testing.T) {
	s := mustParse(t, searchSchema)

	tests := []struct {
		in   string
		want bool
	}{
		{"true", true},
		{"false", false},
		{"1", true},
		{"0", false},
		{" TRUE ", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			out, err := s.Validate(map[string]any{"query": "q", "exact": tt.in})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out["exact"])
		})
	}
}

func TestValidate_BooleanRejectsOtherStrings(t *testing.T) {
	s := mustParse(t, searchSchema)

	_, err := s.Validate(map[string]any{"query": "q", "exact": "yes"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidate_NumberCoercion(t *testing.T) {
	s := mustParse(t, searchSchema)

	out, err := s.Validate(map[string]any{"query": "q", "limit": "2.5", "page": "7"})
	require.NoError(t, err)
	assert.Equal(t, 2.5, out["limit"])
	assert.Equal(t, int64(7), out["page"])
}

func TestValidate_NonNumericStringIsError(t *testing.T) {
	s := mustParse(t, searchSchema)

	for _, bad := range []string{"abc", "", "NaN", "Inf"} {
		out, err := s.Validate(map[string]any{"query": "q", "limit": bad})
		require.Error(t, err, "value %q", bad)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Nil(t, out)
	}
}

func TestValidate_IntegerRejectsFraction(t *testing.T) {
	s := mustParse(t, searchSchema)

	_, err := s.Validate(map[string]any{"query": "q", "page": 1.5})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.Validate(map[string]any{"query": "q", "page": "1.5"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidate_ObjectCoercion(t *testing.T) {
	s := mustParse(t, searchSchema)

	out, err := s.Validate(map[string]any{"query": "q", "filters": `{"lang":"go"}`})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"lang": "go"}, out["filters"])

	_, err = s.Validate(map[string]any{"query": "q", "filters": `[1,2]`})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidate_TypeMismatch(t *testing.T) {
	s := mustParse(t, searchSchema)

	tests := map[string]any{
		"query": 42,
		"tags":  "a,b",
		"exact": 3,
	}
	for field, v := range tests {
		t.Run(field, func(t *testing.T) {
			args := map[string]any{"query": "q", field: v}
			_, err := s.Validate(args)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, field, ve.Field)
		})
	}
}

func TestValidate_NullableAndUndeclared(t *testing.T) {
	s := mustParse(t, searchSchema)

	out, err := s.Validate(map[string]any{"query": "q", "cursor": nil, "extra": []any{1}})
	require.NoError(t, err)
	assert.Nil(t, out["cursor"])
	assert.Equal(t, []any{1}, out["extra"])
}

func TestValidate_DoesNotMutateInput(t *testing.T) {
	s := mustParse(t, searchSchema)

	in := map[string]any{"query": "q", "exact": "true"}
	_, err := s.Validate(in)
	require.NoError(t, err)
	assert.Equal(t, "true", in["exact"])
}

func TestValidate_FullSchemaKeywords(t *testing.T) {
	s := mustParse(t, `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"properties": {
			"mode":   {"type": "string", "enum": ["fast", "slow"]},
			"window": {
				"type": "object",
				"properties": {"size": {"type": "integer", "minimum": 1}},
				"required": ["size"]
			}
		},
		"additionalProperties": false
	}`)

	tests := []struct {
		name  string
		args  map[string]any
		field string
	}{
		{"enum", map[string]any{"mode": "medium"}, "mode"},
		{"nested type", map[string]any{"window": map[string]any{"size": "big"}}, "window"},
		{"nested minimum", map[string]any{"window": map[string]any{"size": 0}}, "window"},
		{"nested required", map[string]any{"window": map[string]any{}}, "window"},
		{"coerced then nested", map[string]any{"window": `{"size": 0}`}, "window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Validate(tt.args)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.NotEmpty(t, ve.Reason)
		})
	}

	_, err := s.Validate(map[string]any{"mode": "fast", "extra": 1})
	assert.ErrorIs(t, err, ErrValidation)

	out, err := s.Validate(map[string]any{"mode": "slow", "window": `{"size": 4}`})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"size": float64(4)}, out["window"])
}

func TestValidate_MissingRequiredReason(t *testing.T) {
	s := mustParse(t, searchSchema)

	_, err := s.Validate(map[string]any{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ValidationError{Field: "query", Reason: "required property is missing"}, *ve)
}
