package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type writeInput struct {
	FilePath string `json:"file_path" jsonschema:"required,description=The absolute path to the file"`
	Content  string `json:"content" jsonschema:"required,description=The content to write"`
}

type readInput struct {
	FilePath string `json:"file_path" jsonschema:"required"`
	Offset   *int   `json:"offset,omitempty" jsonschema:"description=Line offset to start reading from"`
	Limit    *int   `json:"limit,omitempty" jsonschema:"description=Number of lines to read"`
}

type editInput struct {
	FilePath   string `json:"file_path" jsonschema:"required"`
	OldString  string `json:"old_string" jsonschema:"required"`
	NewString  string `json:"new_string" jsonschema:"required"`
	ReplaceAll bool   `json:"replace_all,omitempty"`
}

func TestGenerate_RequiredAndDescriptions(t *testing.T) {
	s := Generate[writeInput]()

	props, ok := s.Properties.(map[string]any)
	require.True(t, ok, "Properties should be map[string]any")

	fp, ok := props["file_path"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", fp["type"])
	assert.Equal(t, "The absolute path to the file", fp["description"])

	assert.ElementsMatch(t, []string{"file_path", "content"}, s.Required)
}

func TestGenerate_PointerFieldsKeepType(t *testing.T) {
	s := Generate[readInput]()

	props, ok := s.Properties.(map[string]any)
	require.True(t, ok)

	offset, ok := props["offset"].(map[string]any)
	require.True(t, ok, "offset should be in properties")
	assert.Equal(t, "integer", offset["type"])
	assert.NotContains(t, s.Required, "offset")
}

func TestGenerate_MarshalsAsObject(t *testing.T) {
	data, err := json.Marshal(Generate[writeInput]())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "object", m["type"])
	assert.NotNil(t, m["properties"])
}

func TestGenerateInput(t *testing.T) {
	in, err := GenerateInput[editInput]()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"file_path", "old_string", "new_string"}, in.Required)
	assert.Equal(t, []string{TypeBoolean}, in.Properties["replace_all"].Types)

	out, err := in.Validate(map[string]any{
		"file_path":   "/tmp/a",
		"old_string":  "x",
		"new_string":  "y",
		"replace_all": "1",
	})
	require.NoError(t, err)
	assert.Equal(t, true, out["replace_all"])
}
