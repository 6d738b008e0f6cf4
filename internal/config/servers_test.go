package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armatrix/agent-tools-go/mcp"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadServers_YAML(t *testing.T) {
	t.Setenv("FS_ROOT", "/srv/data")
	t.Setenv("API_TOKEN", "secret")
	dir := t.TempDir()
	path := writeFile(t, dir, "mcp.yaml", `
mcpServers:
  filesystem:
    command: npx
    args: ["-y", "server-filesystem", "${FS_ROOT}"]
    env:
      LOG_LEVEL: "${LOG_LEVEL:-info}"
    timeout: 10s
    toolTimeout: 1500
    retryAttempts: 3
    retryDelay: 250ms
  search:
    type: sse
    url: https://search.example.com/sse
    headers:
      Authorization: "Bearer ${API_TOKEN}"
    disabled: true
`)

	servers, err := LoadServers(path)
	require.NoError(t, err)
	require.Len(t, servers, 2)

	fs := servers["filesystem"]
	assert.Equal(t, "filesystem", fs.Name)
	assert.Equal(t, mcp.TransportStdio, fs.Kind())
	assert.Equal(t, []string{"-y", "server-filesystem", "/srv/data"}, fs.Args)
	assert.Equal(t, map[string]string{"LOG_LEVEL": "info"}, fs.Env)
	assert.Equal(t, 10*time.Second, fs.Timeout)
	assert.Equal(t, 1500*time.Millisecond, fs.ToolTimeout)
	assert.Equal(t, 3, fs.RetryAttempts)
	assert.Equal(t, 250*time.Millisecond, fs.RetryDelay)
	assert.True(t, fs.Enabled())

	search := servers["search"]
	assert.Equal(t, mcp.TransportSSE, search.Kind())
	assert.Equal(t, "Bearer secret", search.Headers["Authorization"])
	assert.False(t, search.Enabled())
	require.NoError(t, search.Validate())
}

func TestLoadServers_JSONAndOverride(t *testing.T) {
	dir := t.TempDir()
	user := writeFile(t, dir, "user.json", `{
  "mcpServers": {
    "git": {"command": "git-mcp"},
    "web": {"url": "http://localhost:9000/mcp", "transport": "streamable-http"}
  }
}`)
	project := writeFile(t, dir, "project.yaml", `
mcpServers:
  git:
    command: git-mcp-v2
    args: [--repo, .]
`)

	servers, err := LoadServers(user, filepath.Join(dir, "missing.yaml"), project)
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, "git-mcp-v2", servers["git"].Command, "later file wins")
	assert.Equal(t, []string{"--repo", "."}, servers["git"].Args)
	assert.Equal(t, mcp.TransportStreamableHTTP, servers["web"].Kind())
}

func TestLoadServers_Malformed(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.yaml", "mcpServers: [unclosed")
	_, err := LoadServers(bad)
	assert.Error(t, err)

	badDuration := writeFile(t, dir, "dur.yaml", "mcpServers:\n  x:\n    command: x\n    timeout: soon\n")
	_, err = LoadServers(badDuration)
	assert.Error(t, err)
}

func TestLoadServers_Empty(t *testing.T) {
	servers, err := LoadServers()
	require.NoError(t, err)
	assert.Empty(t, servers)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("HOST", "localhost")
	t.Setenv("EMPTY_VAR", "")
	os.Unsetenv("TOTALLY_UNSET_VAR_XYZ")

	tests := []struct {
		in, want string
	}{
		{"${HOST}:3000", "localhost:3000"},
		{"${EMPTY_VAR:-fallback}", "fallback"},
		{"${TOTALLY_UNSET_VAR_XYZ}", "${TOTALLY_UNSET_VAR_XYZ}"},
		{"${TOTALLY_UNSET_VAR_XYZ:-8080}", "8080"},
		{"no vars", "no vars"},
		{"$HOST", "$HOST"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandEnv(tt.in), tt.in)
	}
}

func TestDefaultServerPaths(t *testing.T) {
	paths := DefaultServerPaths("/proj")
	assert.Contains(t, paths, filepath.Join("/proj", ".mcp.json"))
	assert.Equal(t, filepath.Join("/proj", ".agentctl", "mcp.yaml"), paths[len(paths)-1])
}
