package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	agent "github.com/armatrix/agent-tools-go"
	"github.com/armatrix/agent-tools-go/batch"
)

// WriteInput defines the input for the Write tool.
type WriteInput struct {
	FilePath string `json:"file_path" jsonschema:"required,description=The path to the file to write"`
	Content  string `json:"content" jsonschema:"required,description=The content to write to the file"`
}

// WriteTool creates or replaces a file. The new content appears in one
// rename, so a reader never sees a partial file, and an existing file
// keeps its permissions.
type WriteTool struct{}

var _ agent.Tool[WriteInput] = (*WriteTool)(nil)

func (t *WriteTool) Name() string         { return "Write" }
func (t *WriteTool) Description() string  { return "Write a file to the local filesystem" }
func (t *WriteTool) Access() batch.Access { return batch.AccessWrite }

func (t *WriteTool) Execute(ctx context.Context, input WriteInput) (*agent.ToolResult, error) {
	if input.FilePath == "" {
		return agent.ErrorResult("file_path is required"), nil
	}
	path, err := sandboxedPath(ctx, input.FilePath)
	if err != nil {
		return agent.ErrorResult(err.Error()), nil
	}

	perm := fs.FileMode(0o644)
	prev, statErr := os.Stat(path)
	created := errors.Is(statErr, fs.ErrNotExist)
	if statErr == nil {
		if prev.IsDir() {
			return agent.ErrorResult(fmt.Sprintf("%s is a directory", path)), nil
		}
		perm = prev.Mode().Perm()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return agent.ErrorResult(fmt.Sprintf("failed to create directory: %s", err.Error())), nil
	}
	if err := replaceFile(path, []byte(input.Content), perm); err != nil {
		return agent.ErrorResult(fmt.Sprintf("failed to write file: %s", err.Error())), nil
	}

	verb := "Overwrote"
	if created {
		verb = "Created"
	}
	res := agent.TextResult(fmt.Sprintf("%s %s (%d bytes)", verb, path, len(input.Content)))
	res.Metadata = map[string]any{"path": path, "bytes": len(input.Content), "created": created}
	return res, nil
}

// replaceFile writes data to a temporary sibling of path and renames it
// into place.
func replaceFile(path string, data []byte, perm fs.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(perm); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
