package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	agent "github.com/armatrix/agent-tools-go"
	"github.com/armatrix/agent-tools-go/batch"
)

// EditInput defines the input for the Edit tool.
type EditInput struct {
	FilePath   string `json:"file_path" jsonschema:"required,description=The path to the file to modify"`
	OldString  string `json:"old_string" jsonschema:"required,description=The text to replace"`
	NewString  string `json:"new_string" jsonschema:"required,description=The replacement text"`
	ReplaceAll bool   `json:"replace_all,omitempty" jsonschema:"description=Replace all occurrences"`
}

// EditTool performs exact string replacements in files. Without
// ReplaceAll the old string must occur exactly once.
type EditTool struct{}

var _ agent.Tool[EditInput] = (*EditTool)(nil)

func (t *EditTool) Name() string         { return "Edit" }
func (t *EditTool) Description() string  { return "Perform exact string replacements in files" }
func (t *EditTool) Access() batch.Access { return batch.AccessWrite }

var (
	errSameStrings = errors.New("old_string and new_string must be different")
	errNotFound    = errors.New("old_string not found in file")
)

// replaceIn applies one edit to content and reports how many occurrences
// it replaced.
func replaceIn(content, old, replacement string, all bool) (string, int, error) {
	if old == replacement {
		return "", 0, errSameStrings
	}
	count := strings.Count(content, old)
	switch {
	case old == "" || count == 0:
		return "", 0, errNotFound
	case count > 1 && !all:
		return "", 0, fmt.Errorf(
			"old_string appears %d times in file; set replace_all or add surrounding context to make it unique", count)
	case !all:
		return strings.Replace(content, old, replacement, 1), 1, nil
	}
	return strings.ReplaceAll(content, old, replacement), count, nil
}

func (t *EditTool) Execute(ctx context.Context, input EditInput) (*agent.ToolResult, error) {
	if input.FilePath == "" {
		return agent.ErrorResult("file_path is required"), nil
	}
	path, err := sandboxedPath(ctx, input.FilePath)
	if err != nil {
		return agent.ErrorResult(err.Error()), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return agent.ErrorResult(fmt.Sprintf("failed to read file: %s", err.Error())), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return agent.ErrorResult(fmt.Sprintf("failed to read file: %s", err.Error())), nil
	}

	updated, n, err := replaceIn(string(data), input.OldString, input.NewString, input.ReplaceAll)
	if err != nil {
		return agent.ErrorResult(err.Error()), nil
	}
	if err := replaceFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return agent.ErrorResult(fmt.Sprintf("failed to write file: %s", err.Error())), nil
	}

	res := agent.TextResult(fmt.Sprintf("Edited %s: replaced %d occurrence(s)", path, n))
	res.Metadata = map[string]any{"path": path, "replacements": n}
	return res, nil
}
