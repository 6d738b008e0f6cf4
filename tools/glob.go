package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	agent "github.com/armatrix/agent-tools-go"
	"github.com/armatrix/agent-tools-go/batch"
)

// GlobInput defines the input for the Glob tool.
type GlobInput struct {
	Pattern string `json:"pattern" jsonschema:"required,description=The glob pattern to match files against"`
	Path    string `json:"path,omitempty" jsonschema:"description=The directory to search in"`
}

// GlobTool matches files using doublestar glob patterns. Matches are listed
// newest first.
type GlobTool struct{}

var _ agent.Tool[GlobInput] = (*GlobTool)(nil)

func (t *GlobTool) Name() string         { return "Glob" }
func (t *GlobTool) Description() string  { return "Fast file pattern matching tool" }
func (t *GlobTool) Access() batch.Access { return batch.AccessRead }

func (t *GlobTool) Execute(ctx context.Context, input GlobInput) (*agent.ToolResult, error) {
	if input.Pattern == "" {
		return agent.ErrorResult("pattern is required"), nil
	}
	if !doublestar.ValidatePattern(input.Pattern) {
		return agent.ErrorResult(fmt.Sprintf("invalid glob pattern: %s", input.Pattern)), nil
	}

	base, err := searchRoot(ctx, input.Path)
	if err != nil {
		return agent.ErrorResult(err.Error()), nil
	}

	matches, err := doublestar.Glob(os.DirFS(base), input.Pattern)
	if err != nil {
		return agent.ErrorResult(fmt.Sprintf("glob error: %s", err.Error())), nil
	}

	type match struct {
		path    string
		modTime int64
	}
	found := make([]match, 0, len(matches))
	for _, m := range matches {
		full := filepath.Join(base, m)
		info, err := os.Stat(full)
		if err != nil {
			continue
		}
		found = append(found, match{path: full, modTime: info.ModTime().UnixNano()})
	}
	if len(found) == 0 {
		return agent.TextResult("No files matched the pattern."), nil
	}

	slices.SortStableFunc(found, func(a, b match) int {
		switch {
		case a.modTime > b.modTime:
			return -1
		case a.modTime < b.modTime:
			return 1
		}
		return strings.Compare(a.path, b.path)
	})

	var b strings.Builder
	for _, m := range found {
		b.WriteString(m.path)
		b.WriteByte('\n')
	}
	return agent.TextResult(b.String()), nil
}

// searchRoot returns the absolute directory a search starts from: path,
// else the context working directory, else the process directory.
func searchRoot(ctx context.Context, path string) (string, error) {
	if path == "" {
		path = agent.ContextWorkDir(ctx)
	}
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		path = wd
	}
	abs, err := filepath.Abs(resolvePath(ctx, path))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	if err := checkSandboxPath(ctx, abs); err != nil {
		return "", err
	}
	return abs, nil
}
