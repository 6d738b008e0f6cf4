package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	agent "github.com/armatrix/agent-tools-go"
	"github.com/armatrix/agent-tools-go/batch"
)

const (
	defaultReadLimit   = 2000
	maxLineLength      = 2000
	truncationSuffix   = "... [truncated]"
	lineNumberTabWidth = 6
)

// ReadInput defines the input for the Read tool.
type ReadInput struct {
	FilePath string `json:"file_path" jsonschema:"required,description=The path to the file to read"`
	Offset   *int   `json:"offset,omitempty" jsonschema:"description=The line number to start reading from (1-based)"`
	Limit    *int   `json:"limit,omitempty" jsonschema:"description=The number of lines to read"`
}

// ReadTool reads file content with optional offset and limit. Lines are
// numbered from 1.
type ReadTool struct{}

var _ agent.Tool[ReadInput] = (*ReadTool)(nil)

func (t *ReadTool) Name() string         { return "Read" }
func (t *ReadTool) Description() string  { return "Read a file from the local filesystem" }
func (t *ReadTool) Access() batch.Access { return batch.AccessRead }

func (t *ReadTool) Execute(ctx context.Context, input ReadInput) (*agent.ToolResult, error) {
	if input.FilePath == "" {
		return agent.ErrorResult("file_path is required"), nil
	}
	path, err := sandboxedPath(ctx, input.FilePath)
	if err != nil {
		return agent.ErrorResult(err.Error()), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return agent.ErrorResult(fmt.Sprintf("failed to open file: %s", err.Error())), nil
	}
	defer f.Close()

	first, limit := 1, defaultReadLimit
	if input.Offset != nil && *input.Offset > 0 {
		first = *input.Offset
	}
	if input.Limit != nil && *input.Limit > 0 {
		limit = *input.Limit
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var b strings.Builder
	for lineNum := 1; scanner.Scan(); lineNum++ {
		if lineNum < first {
			continue
		}
		if lineNum >= first+limit {
			break
		}
		fmt.Fprintf(&b, "%*d\t%s\n", lineNumberTabWidth, lineNum, clipLine(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return agent.ErrorResult(fmt.Sprintf("error reading file: %s", err.Error())), nil
	}

	if b.Len() == 0 {
		return agent.TextResult("(empty file)"), nil
	}
	return agent.TextResult(b.String()), nil
}

func clipLine(line string) string {
	if len(line) <= maxLineLength {
		return line
	}
	return line[:maxLineLength-len(truncationSuffix)] + truncationSuffix
}
