package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agent "github.com/armatrix/agent-tools-go"
	"github.com/armatrix/agent-tools-go/batch"
)

func TestWriteTool(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		target   string
		content  string
	}{
		{"new file", "", "out.txt", "hello world\n"},
		{"overwrite", "old content that is longer", "out.txt", "new"},
		{"nested directories", "", filepath.Join("a", "b", "c", "deep.txt"), "deep"},
		{"dotted relative path", "", "./x/../out.txt", "clean"},
		{"empty content", "", "empty.txt", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Clean(filepath.Join(dir, tt.target))
			if tt.existing != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.existing), 0o644))
			}

			ctx := agent.WithContextWorkDir(context.Background(), dir)
			res, err := (&WriteTool{}).Execute(ctx, WriteInput{FilePath: tt.target, Content: tt.content})
			require.NoError(t, err)
			require.False(t, res.IsError, res.Text())
			verb := "Created"
			if tt.existing != "" {
				verb = "Overwrote"
			}
			assert.Equal(t, fmt.Sprintf("%s %s (%d bytes)", verb, path, len(tt.content)), res.Text())
			assert.Equal(t, path, res.Metadata["path"])
			assert.Equal(t, tt.existing == "", res.Metadata["created"])

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(data))
		})
	}
}

func TestWriteTool_Failures(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	for name, in := range map[string]WriteInput{
		"missing path":        {Content: "x"},
		"parent is a file":    {FilePath: filepath.Join(blocker, "child.txt"), Content: "x"},
		"target is directory": {FilePath: dir, Content: "x"},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := (&WriteTool{}).Execute(context.Background(), in)
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}

func TestWriteTool_ReportsScheduledPath(t *testing.T) {
	dir := t.TempDir()
	ctx := agent.WithContextWorkDir(context.Background(), dir)
	classifier := batch.NewClassifier(nil, batch.WithBaseDir(dir))

	for _, target := range []string{"notes.txt", "./sub/../notes.txt", " notes.txt "} {
		raw, err := json.Marshal(WriteInput{FilePath: target})
		require.NoError(t, err)
		fp := classifier.Footprint(batch.NewInvocation("Write", raw))
		require.Len(t, fp.Paths, 1)

		res, err := (&WriteTool{}).Execute(ctx, WriteInput{FilePath: target, Content: target})
		require.NoError(t, err)
		require.False(t, res.IsError, res.Text())
		assert.Equal(t, fp.Paths[0], res.Metadata["path"], target)
	}
}

func TestWriteTool_KeepsPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.sh")
	require.NoError(t, os.WriteFile(path, []byte("echo old\n"), 0o755))

	res, err := (&WriteTool{}).Execute(context.Background(), WriteInput{FilePath: path, Content: "echo new\n"})
	require.NoError(t, err)
	require.False(t, res.IsError, res.Text())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}
