package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/creack/pty"

	agent "github.com/armatrix/agent-tools-go"
	"github.com/armatrix/agent-tools-go/batch"
)

const (
	defaultBashTimeout = 2 * time.Minute
	maxBashTimeout     = 10 * time.Minute
)

// BashInput defines the input for the Bash tool.
type BashInput struct {
	Command     string `json:"command" jsonschema:"required,description=The command to execute"`
	Description string `json:"description,omitempty" jsonschema:"description=Description of what this command does"`
	Timeout     *int   `json:"timeout,omitempty" jsonschema:"description=Timeout in milliseconds (max 600000)"`
}

// BashTool executes shell commands in a pseudo terminal, falling back to
// plain pipes when no terminal can be allocated. A non-zero exit code makes
// the result an error result carrying the output.
type BashTool struct{}

var _ agent.Tool[BashInput] = (*BashTool)(nil)

func (t *BashTool) Name() string        { return "Bash" }
func (t *BashTool) Description() string { return "Execute a bash command" }

// Access reports AccessNone: a command line names no path the scheduler can
// see, so Bash calls are ordered only against unknown tools.
func (t *BashTool) Access() batch.Access { return batch.AccessNone }

func (t *BashTool) Execute(ctx context.Context, input BashInput) (*agent.ToolResult, error) {
	if input.Command == "" {
		return agent.ErrorResult("command is required"), nil
	}
	if err := checkSandboxCommand(ctx, input.Command); err != nil {
		return agent.ErrorResult(err.Error()), nil
	}

	timeout := bashTimeout(input.Timeout)
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, err := runInPTY(cmdCtx, input.Command)
	if errors.Is(err, errNoPTY) {
		output, err = runPiped(cmdCtx, input.Command)
	}
	if cmdCtx.Err() == context.DeadlineExceeded {
		return agent.ErrorResult(fmt.Sprintf("command timed out after %s", timeout)), nil
	}

	exitCode := 0
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		exitCode = exitErr.ExitCode()
	case err != nil:
		return agent.ErrorResult(fmt.Sprintf("failed to run command: %s", err.Error())), nil
	}

	result := agent.TextResult(truncateOutput(output))
	result.Metadata = map[string]any{"exit_code": exitCode}
	result.IsError = exitCode != 0
	return result, nil
}

func bashTimeout(ms *int) time.Duration {
	if ms == nil || *ms <= 0 {
		return defaultBashTimeout
	}
	return min(time.Duration(*ms)*time.Millisecond, maxBashTimeout)
}

var errNoPTY = errors.New("pty unavailable")

func newBashCmd(ctx context.Context, command string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	applyExecContext(ctx, cmd)
	return cmd
}

func runInPTY(ctx context.Context, command string) (string, error) {
	cmd := newBashCmd(ctx, command)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errNoPTY, err)
	}
	defer ptmx.Close()

	var buf bytes.Buffer
	// Reading the terminal fails with EIO once the process exits.
	_, _ = io.Copy(&buf, ptmx)
	return buf.String(), cmd.Wait()
}

func runPiped(ctx context.Context, command string) (string, error) {
	out, err := newBashCmd(ctx, command).CombinedOutput()
	return string(out), err
}
