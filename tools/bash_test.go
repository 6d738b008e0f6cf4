package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBashTool(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		want     []string
		exitCode int
	}{
		{"stdout", "echo hello", []string{"hello"}, 0},
		{"stderr is captured", "echo error_msg >&2", []string{"error_msg"}, 0},
		{"several lines", "echo line1; echo line2; echo line3", []string{"line1", "line2", "line3"}, 0},
		{"non-zero exit keeps output", "echo partial; exit 42", []string{"partial"}, 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := (&BashTool{}).Execute(context.Background(), BashInput{Command: tt.command})
			require.NoError(t, err)
			for _, s := range tt.want {
				assert.Contains(t, res.Text(), s)
			}
			assert.Equal(t, tt.exitCode, res.Metadata["exit_code"])
			assert.Equal(t, tt.exitCode != 0, res.IsError)
		})
	}
}

func TestBashTool_Timeout(t *testing.T) {
	ms := 300
	res, err := (&BashTool{}).Execute(context.Background(), BashInput{Command: "sleep 10", Timeout: &ms})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "command timed out after 300ms", res.Text())
}

func TestBashTool_EmptyCommand(t *testing.T) {
	res, err := (&BashTool{}).Execute(context.Background(), BashInput{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "command is required", res.Text())
}

func TestRunPiped(t *testing.T) {
	out, err := runPiped(context.Background(), "printf 'a\\nb'")
	require.NoError(t, err)
	assert.Equal(t, "a\nb", out)
}
