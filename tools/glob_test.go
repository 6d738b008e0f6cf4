package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agent "github.com/armatrix/agent-tools-go"
)

// globTree creates files relative to a fresh directory and returns it.
func globTree(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		path := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(f), 0o644))
	}
	return dir
}

func TestGlobTool_Patterns(t *testing.T) {
	dir := globTree(t, "a.txt", "b.txt", "c.go", "sub/nested.go", "sub/deeper/x.go")

	tests := []struct {
		pattern string
		want    []string
	}{
		{"*.txt", []string{"a.txt", "b.txt"}},
		{"*.go", []string{"c.go"}},
		{"**/*.go", []string{"c.go", "sub/nested.go", "sub/deeper/x.go"}},
		{"sub/{nested,missing}.go", []string{"sub/nested.go"}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			res, err := (&GlobTool{}).Execute(context.Background(), GlobInput{Pattern: tt.pattern, Path: dir})
			require.NoError(t, err)
			require.False(t, res.IsError, res.Text())

			got := strings.Fields(res.Text())
			want := make([]string, len(tt.want))
			for i, w := range tt.want {
				want[i] = filepath.Join(dir, filepath.FromSlash(w))
			}
			assert.ElementsMatch(t, want, got)
		})
	}
}

func TestGlobTool_NewestFirst(t *testing.T) {
	dir := globTree(t, "older.txt", "newer.txt")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "older.txt"), past, past))

	res, err := (&GlobTool{}).Execute(context.Background(), GlobInput{Pattern: "*.txt", Path: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "newer.txt"),
		filepath.Join(dir, "older.txt"),
	}, strings.Fields(res.Text()))
}

func TestGlobTool_DefaultsToWorkDir(t *testing.T) {
	dir := globTree(t, "main.go")
	ctx := agent.WithContextWorkDir(context.Background(), dir)

	res, err := (&GlobTool{}).Execute(ctx, GlobInput{Pattern: "*.go"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "main.go")+"\n", res.Text())
}

func TestGlobTool_NoMatches(t *testing.T) {
	res, err := (&GlobTool{}).Execute(context.Background(), GlobInput{Pattern: "*.xyz", Path: t.TempDir()})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "No files matched the pattern.", res.Text())
}

func TestGlobTool_BadPatterns(t *testing.T) {
	for _, pattern := range []string{"", "[unclosed"} {
		res, err := (&GlobTool{}).Execute(context.Background(), GlobInput{Pattern: pattern, Path: t.TempDir()})
		require.NoError(t, err)
		assert.True(t, res.IsError, pattern)
	}
}
