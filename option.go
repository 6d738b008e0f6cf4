package agent

import (
	"log/slog"
	"maps"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/armatrix/agent-tools-go/mcp"
)

// AgentOption configures an Agent via the functional options pattern.
type AgentOption func(*agentOptions)

// agentOptions holds all configurable fields set via AgentOption functions.
type agentOptions struct {
	model            anthropic.Model
	fallbackModel    anthropic.Model
	maxOutputTokens  int
	maxTurns         int
	systemPrompt     string
	streamBufferSize int
	requestOptions   []option.RequestOption

	// Tool execution.
	maxConcurrency    int
	invocationTimeout time.Duration
	workDir           string
	sandbox           *SandboxConfig
	toolEnv           map[string]string
	disabledTools     []string

	// External tool servers.
	servers        map[string]mcp.ServerConfig
	serverFiles    []string
	inProcess      []*mcp.SDKServer
	settingSources []string

	logger     *slog.Logger
	registerer prometheus.Registerer
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (o *agentOptions) applyDefaults() {
	if o.model == "" {
		o.model = DefaultModel
	}
	if o.maxOutputTokens == 0 {
		o.maxOutputTokens = DefaultMaxOutputTokens
	}
	if o.streamBufferSize == 0 {
		o.streamBufferSize = DefaultStreamBufferSize
	}
	if o.maxConcurrency == 0 {
		o.maxConcurrency = DefaultMaxConcurrency
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
}

// resolveOptions applies all option functions and fills defaults.
func resolveOptions(opts []AgentOption) agentOptions {
	var o agentOptions
	for _, fn := range opts {
		fn(&o)
	}
	o.applyDefaults()
	return o
}

// --- Model ---

// WithModel sets the Claude model to use.
// Use constants from anthropic-sdk-go, e.g. anthropic.ModelClaudeSonnet4_5.
func WithModel(model anthropic.Model) AgentOption {
	return func(o *agentOptions) { o.model = model }
}

// WithFallbackModel sets the model retried once when the primary model is
// overloaded or unavailable.
func WithFallbackModel(model anthropic.Model) AgentOption {
	return func(o *agentOptions) { o.fallbackModel = model }
}

// WithMaxOutputTokens sets the maximum output tokens per response.
func WithMaxOutputTokens(tokens int) AgentOption {
	return func(o *agentOptions) { o.maxOutputTokens = tokens }
}

// WithMaxTurns sets the maximum number of agent loop turns (0 = unlimited).
func WithMaxTurns(n int) AgentOption {
	return func(o *agentOptions) { o.maxTurns = n }
}

// WithSystemPrompt sets the system prompt sent with every request.
func WithSystemPrompt(prompt string) AgentOption {
	return func(o *agentOptions) { o.systemPrompt = prompt }
}

// WithStreamBufferSize sets the event channel buffer of each run.
func WithStreamBufferSize(n int) AgentOption {
	return func(o *agentOptions) { o.streamBufferSize = n }
}

// WithRequestOptions passes options to the Anthropic client, such as an
// API key or base URL.
func WithRequestOptions(opts ...option.RequestOption) AgentOption {
	return func(o *agentOptions) { o.requestOptions = append(o.requestOptions, opts...) }
}

// WithSettings loads YAML or JSON settings files. Later files override earlier
// ones, and explicit options override every file.
func WithSettings(paths ...string) AgentOption {
	return func(o *agentOptions) { o.settingSources = append(o.settingSources, paths...) }
}

// --- Tool execution ---

// WithMaxConcurrency caps the tool invocations that run at once within a
// batch wave.
func WithMaxConcurrency(n int) AgentOption {
	return func(o *agentOptions) { o.maxConcurrency = n }
}

// WithInvocationTimeout bounds every tool invocation. Zero means no bound
// beyond the servers' own tool timeouts.
func WithInvocationTimeout(d time.Duration) AgentOption {
	return func(o *agentOptions) { o.invocationTimeout = d }
}

// WithWorkDir sets the directory relative tool paths resolve against, both
// when tools run and when a batch is planned.
func WithWorkDir(dir string) AgentOption {
	return func(o *agentOptions) { o.workDir = dir }
}

// WithSandbox restricts the paths and commands built-in tools may use
// during ExecuteBatch and Run.
func WithSandbox(cfg SandboxConfig) AgentOption {
	return func(o *agentOptions) { o.sandbox = &cfg }
}

// WithToolEnv adds environment variables to the commands tools start.
func WithToolEnv(env map[string]string) AgentOption {
	return func(o *agentOptions) {
		if o.toolEnv == nil {
			o.toolEnv = make(map[string]string)
		}
		maps.Copy(o.toolEnv, env)
	}
}

// WithDisabledTools hides local tools by name. They are removed from the
// registry when the agent starts.
func WithDisabledTools(names ...string) AgentOption {
	return func(o *agentOptions) { o.disabledTools = append(o.disabledTools, names...) }
}

// --- External tool servers ---

// WithMCPServers adds MCP server configurations, keyed by server name.
func WithMCPServers(servers map[string]mcp.ServerConfig) AgentOption {
	return func(o *agentOptions) {
		if o.servers == nil {
			o.servers = make(map[string]mcp.ServerConfig)
		}
		maps.Copy(o.servers, servers)
	}
}

// WithMCPConfigFiles loads MCP server configurations from YAML or JSON
// files holding an mcpServers map. Servers from WithMCPServers win over
// servers of the same name from files.
func WithMCPConfigFiles(paths ...string) AgentOption {
	return func(o *agentOptions) { o.serverFiles = append(o.serverFiles, paths...) }
}

// WithInProcessServer serves the tools of srv to the agent over an
// in-memory MCP transport.
func WithInProcessServer(srv *mcp.SDKServer) AgentOption {
	return func(o *agentOptions) { o.inProcess = append(o.inProcess, srv) }
}

// --- Observability ---

// WithLogger sets the structured logger shared by the agent's components.
func WithLogger(l *slog.Logger) AgentOption {
	return func(o *agentOptions) { o.logger = l }
}

// WithMetricsRegisterer registers the agent's Prometheus collectors with
// reg. Without it no metrics are recorded.
func WithMetricsRegisterer(reg prometheus.Registerer) AgentOption {
	return func(o *agentOptions) { o.registerer = reg }
}
