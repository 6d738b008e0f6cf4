package mcp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewStdioTransport creates a transport that spawns cfg.Command and speaks
// MCP over its stdin/stdout. Returns ErrInvalidConfig if Command is empty.
func NewStdioTransport(cfg ServerConfig) (*SDKTransport, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("%w: stdio transport requires command", ErrInvalidConfig)
	}
	command, args, env := cfg.Command, append([]string(nil), cfg.Args...), mergeEnv(os.Environ(), cfg.Env)

	return NewSDKTransport(cfg.Name, func(context.Context) (sdk.Transport, error) {
		// Not CommandContext: the process must outlive the connect context.
		cmd := exec.Command(command, args...)
		cmd.Env = env
		return &sdk.CommandTransport{Command: cmd}, nil
	}), nil
}

// mergeEnv appends extra over base in key order. Later entries win when
// the process reads its environment.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(base)+len(extra))
	env = append(env, base...)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}
