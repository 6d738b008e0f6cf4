package agent

import "context"

// SandboxConfig restricts what built-in tools may touch.
type SandboxConfig struct {
	// AllowedDirs limits file tools to these directory trees. Empty allows
	// every path.
	AllowedDirs []string

	// BlockedCommands are command names the Bash tool refuses to run.
	BlockedCommands []string
}

type (
	workDirKey struct{}
	envKey     struct{}
	sandboxKey struct{}
)

// valueOf returns the value stored under key, or the zero value of T.
func valueOf[T any](ctx context.Context, key any) T {
	v, _ := ctx.Value(key).(T)
	return v
}

// WithContextWorkDir returns a context whose tools resolve relative paths
// against dir and start commands in it.
func WithContextWorkDir(ctx context.Context, dir string) context.Context {
	return context.WithValue(ctx, workDirKey{}, dir)
}

// ContextWorkDir returns the working directory from context, or "".
func ContextWorkDir(ctx context.Context) string {
	return valueOf[string](ctx, workDirKey{})
}

// WithContextEnv returns a context whose tool commands get env on top of
// the process environment.
func WithContextEnv(ctx context.Context, env map[string]string) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// ContextEnv returns the tool environment from context, or nil.
func ContextEnv(ctx context.Context) map[string]string {
	return valueOf[map[string]string](ctx, envKey{})
}

// WithContextSandbox returns a context whose tools honor cfg.
func WithContextSandbox(ctx context.Context, cfg *SandboxConfig) context.Context {
	return context.WithValue(ctx, sandboxKey{}, cfg)
}

// ContextSandbox returns the sandbox from context, or nil.
func ContextSandbox(ctx context.Context) *SandboxConfig {
	return valueOf[*SandboxConfig](ctx, sandboxKey{})
}
