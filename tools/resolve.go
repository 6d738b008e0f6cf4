package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	agent "github.com/armatrix/agent-tools-go"
	"github.com/armatrix/agent-tools-go/batch"
)

// maxOutputBytes caps the text a command-backed tool returns.
const maxOutputBytes = 30_000

// resolvePath resolves a tool path the way the batch classifier does, so a
// call touches exactly the path it was scheduled by. Blank input resolves
// to the working directory from context.
func resolvePath(ctx context.Context, path string) string {
	dir := agent.ContextWorkDir(ctx)
	if strings.TrimSpace(path) == "" {
		return dir
	}
	return batch.NormalizePath(dir, path)
}

// sandboxedPath resolves path and checks it against the sandbox.
func sandboxedPath(ctx context.Context, path string) (string, error) {
	resolved := resolvePath(ctx, path)
	if err := checkSandboxPath(ctx, resolved); err != nil {
		return "", err
	}
	return resolved, nil
}

// checkSandboxPath reports an error when resolved lies outside every
// sandbox AllowedDirs entry. No sandbox, or an empty list, allows all.
func checkSandboxPath(ctx context.Context, resolved string) error {
	sandbox := agent.ContextSandbox(ctx)
	if sandbox == nil || len(sandbox.AllowedDirs) == 0 {
		return nil
	}
	absPath, err := filepath.Abs(resolved)
	if err != nil {
		return fmt.Errorf("cannot resolve absolute path: %w", err)
	}
	for _, dir := range sandbox.AllowedDirs {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absDir, absPath)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("path %s is outside sandbox allowed directories", resolved)
}

// checkSandboxCommand reports an error when the first word of command names
// a blocked command, by base name or full path.
func checkSandboxCommand(ctx context.Context, command string) error {
	sandbox := agent.ContextSandbox(ctx)
	if sandbox == nil || len(sandbox.BlockedCommands) == 0 {
		return nil
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil
	}
	name := fields[0]
	if slices.Contains(sandbox.BlockedCommands, name) {
		return fmt.Errorf("command %q is blocked by sandbox policy", name)
	}
	if base := filepath.Base(name); slices.Contains(sandbox.BlockedCommands, base) {
		return fmt.Errorf("command %q is blocked by sandbox policy", base)
	}
	return nil
}

// applyExecContext sets cmd.Dir and cmd.Env from the agent context values.
func applyExecContext(ctx context.Context, cmd *exec.Cmd) {
	if dir := agent.ContextWorkDir(ctx); dir != "" {
		cmd.Dir = dir
	}
	if env := agent.ContextEnv(ctx); len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
}

// truncateOutput cuts text to maxOutputBytes.
func truncateOutput(text string) string {
	if len(text) <= maxOutputBytes {
		return text
	}
	return text[:maxOutputBytes] + "\n... [output truncated]"
}
