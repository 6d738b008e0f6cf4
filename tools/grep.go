package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	agent "github.com/armatrix/agent-tools-go"
	"github.com/armatrix/agent-tools-go/batch"
)

// GrepInput defines the input for the Grep tool.
type GrepInput struct {
	Pattern         string `json:"pattern" jsonschema:"required,description=The regex pattern to search for"`
	Path            string `json:"path,omitempty" jsonschema:"description=File or directory to search in"`
	OutputMode      string `json:"output_mode,omitempty" jsonschema:"description=Output mode: content or files_with_matches or count"`
	Glob            string `json:"glob,omitempty" jsonschema:"description=Glob pattern to filter files"`
	Type            string `json:"type,omitempty" jsonschema:"description=File type to search (e.g. go or py or js)"`
	Context         *int   `json:"context,omitempty" jsonschema:"description=Lines of context around matches"`
	CaseInsensitive bool   `json:"case_insensitive,omitempty" jsonschema:"description=Case insensitive search"`
}

// GrepTool searches file contents with ripgrep.
type GrepTool struct{}

var _ agent.Tool[GrepInput] = (*GrepTool)(nil)

func (t *GrepTool) Name() string         { return "Grep" }
func (t *GrepTool) Description() string  { return "Search file contents using regex patterns" }
func (t *GrepTool) Access() batch.Access { return batch.AccessRead }

func (t *GrepTool) Execute(ctx context.Context, input GrepInput) (*agent.ToolResult, error) {
	if input.Pattern == "" {
		return agent.ErrorResult("pattern is required"), nil
	}
	rg, err := exec.LookPath("rg")
	if err != nil {
		return agent.ErrorResult("ripgrep (rg) is not installed"), nil
	}

	root, err := searchRoot(ctx, input.Path)
	if err != nil {
		return agent.ErrorResult(err.Error()), nil
	}

	cmd := exec.CommandContext(ctx, rg, rgArgs(input, root)...)
	applyExecContext(ctx, cmd)
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr) && exitErr.ExitCode() == 1:
		return searchResult(fmt.Sprintf("No matches for %q in %s", input.Pattern, root), root, 0), nil
	case errors.As(err, &exitErr):
		return agent.ErrorResult(fmt.Sprintf("rg error in %s: %s", root, out)), nil
	case err != nil:
		return agent.ErrorResult(fmt.Sprintf("failed to run rg: %s", err.Error())), nil
	}
	text := strings.TrimSuffix(string(out), "\n")
	return searchResult(truncateOutput(text), root, strings.Count(text, "\n")+1), nil
}

// searchResult reports the root that was searched, which is the path the
// call was scheduled by, along with the number of output lines.
func searchResult(text, root string, lines int) *agent.ToolResult {
	res := agent.TextResult(text)
	res.Metadata = map[string]any{"root": root, "lines": lines}
	return res
}

func rgArgs(input GrepInput, root string) []string {
	var args []string
	switch input.OutputMode {
	case "content":
		args = append(args, "-n")
	case "count":
		args = append(args, "-c")
	default:
		args = append(args, "-l")
	}
	if input.CaseInsensitive {
		args = append(args, "-i")
	}
	if input.Glob != "" {
		args = append(args, "--glob", input.Glob)
	}
	if input.Type != "" {
		args = append(args, "--type", input.Type)
	}
	if input.Context != nil && *input.Context > 0 && input.OutputMode == "content" {
		args = append(args, "-C", strconv.Itoa(*input.Context))
	}
	return append(args, "-e", input.Pattern, root)
}
