package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agent "github.com/armatrix/agent-tools-go"
)

func intPtr(n int) *int { return &n }

func TestReadTool_Window(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "five.txt"), []byte("l1\nl2\nl3\nl4\nl5\n"), 0o644))
	ctx := agent.WithContextWorkDir(context.Background(), dir)

	tests := []struct {
		name    string
		offset  *int
		limit   *int
		want    []string
		notWant []string
	}{
		{"whole file", nil, nil, []string{"1\tl1", "5\tl5"}, nil},
		{"from line three", intPtr(3), nil, []string{"3\tl3", "5\tl5"}, []string{"l1", "l2"}},
		{"first two lines", nil, intPtr(2), []string{"1\tl1", "2\tl2"}, []string{"l3"}},
		{"middle window", intPtr(2), intPtr(2), []string{"2\tl2", "3\tl3"}, []string{"l1", "l4"}},
		{"non-positive values ignored", intPtr(0), intPtr(-4), []string{"1\tl1", "5\tl5"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := (&ReadTool{}).Execute(ctx, ReadInput{FilePath: "five.txt", Offset: tt.offset, Limit: tt.limit})
			require.NoError(t, err)
			require.False(t, res.IsError, res.Text())
			for _, s := range tt.want {
				assert.Contains(t, res.Text(), s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, res.Text(), s)
			}
		})
	}
}

func TestReadTool_LineNumbersArePadded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha\n"), 0o644))

	res, err := (&ReadTool{}).Execute(context.Background(), ReadInput{FilePath: path})
	require.NoError(t, err)
	assert.Equal(t, "     1\talpha\n", res.Text())
}

func TestReadTool_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	res, err := (&ReadTool{}).Execute(context.Background(), ReadInput{FilePath: path})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "(empty file)", res.Text())
}

func TestReadTool_ClipsLongLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 3*maxLineLength)+"\nshort\n"), 0o644))

	res, err := (&ReadTool{}).Execute(context.Background(), ReadInput{FilePath: path})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(res.Text(), "\n"), "\n")
	require.Len(t, lines, 2)
	_, body, _ := strings.Cut(lines[0], "\t")
	assert.Len(t, body, maxLineLength)
	assert.True(t, strings.HasSuffix(body, truncationSuffix))
	assert.Contains(t, lines[1], "short")
}

func TestReadTool_Failures(t *testing.T) {
	for name, in := range map[string]ReadInput{
		"missing path": {},
		"missing file": {FilePath: filepath.Join(t.TempDir(), "nope.txt")},
		"directory":    {FilePath: t.TempDir()},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := (&ReadTool{}).Execute(context.Background(), in)
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}
