package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with args and returns what it wrote to
// stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeBatch(t *testing.T, dir string, calls []batchCall) string {
	t.Helper()
	data, err := json.Marshal(calls)
	require.NoError(t, err)
	path := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestExecPlan(t *testing.T) {
	dir := t.TempDir()
	path := writeBatch(t, dir, []batchCall{
		{ID: "w", Name: "Write", Input: json.RawMessage(`{"file_path":"notes.txt","content":"hi"}`)},
		{ID: "r", Name: "Read", Input: json.RawMessage(`{"file_path":"notes.txt"}`)},
		{ID: "g", Name: "Glob", Input: json.RawMessage(`{"pattern":"*.go","path":"src"}`)},
	})

	out, err := runCLI(t, "exec", "--plan", "--workdir", dir, path)
	require.NoError(t, err)

	var plan struct {
		Waves [][]int `json:"waves"`
		Sizes []int   `json:"sizes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, [][]int{{0, 2}, {1}}, plan.Waves)
	assert.Equal(t, []int{2, 1}, plan.Sizes)
	assert.NoFileExists(t, filepath.Join(dir, "notes.txt"))
}

func TestExecRunsBatchInOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeBatch(t, dir, []batchCall{
		{ID: "w", Name: "Write", Input: json.RawMessage(`{"file_path":"notes.txt","content":"hello"}`)},
		{ID: "r", Name: "Read", Input: json.RawMessage(`{"file_path":"notes.txt"}`)},
		{ID: "x", Name: "Teleport", Input: json.RawMessage(`{}`)},
	})

	out, err := runCLI(t, "exec", "--workdir", dir, path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	results := make([]callResult, len(lines))
	for i, line := range lines {
		require.NoError(t, json.Unmarshal([]byte(line), &results[i]))
		assert.Equal(t, i, results[i].Index)
	}

	assert.Equal(t, "w", results[0].ID)
	assert.False(t, results[0].IsError, results[0].Output)
	assert.Equal(t, 0, results[0].Wave)

	assert.Equal(t, "r", results[1].ID)
	assert.False(t, results[1].IsError, results[1].Output)
	assert.Contains(t, results[1].Output, "hello")
	assert.Equal(t, 1, results[1].Wave)

	assert.Equal(t, "Teleport", results[2].Name)
	assert.True(t, results[2].IsError)

	data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestExecRejectsBadBatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"1"}]`), 0o644))

	_, err := runCLI(t, "exec", "--workdir", dir, path)
	assert.ErrorContains(t, err, "has no name")

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))
	_, err = runCLI(t, "exec", "--workdir", dir, path)
	assert.ErrorContains(t, err, "parse batch")
}

func TestServersList(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "mcp.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
mcpServers:
  files:
    command: mcp-files
    args: ["--root", "."]
  search:
    type: http
    url: https://search.example.com/mcp
    disabled: true
`), 0o644))

	out, err := runCLI(t, "servers", "list", "--workdir", dir, "--mcp-config", cfg)
	require.NoError(t, err)

	assert.Contains(t, out, "NAME")
	assert.Regexp(t, `files\s+stdio\s+true\s+mcp-files`, out)
	assert.Regexp(t, `search\s+streamable-http\s+false\s+https://search.example.com/mcp`, out)
}

func TestToolsList(t *testing.T) {
	out, err := runCLI(t, "tools", "list", "--workdir", t.TempDir())
	require.NoError(t, err)

	assert.Regexp(t, `Read\s+local\s+read`, out)
	assert.Regexp(t, `Write\s+local\s+write`, out)
	assert.Regexp(t, `Bash\s+local\s+none`, out)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := runCLI(t, "tools", "list", "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid log level")
}
