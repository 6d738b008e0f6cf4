package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/armatrix/agent-tools-go/batch"
	"github.com/armatrix/agent-tools-go/catalog"
	"github.com/armatrix/agent-tools-go/internal/config"
	"github.com/armatrix/agent-tools-go/internal/engine"
	"github.com/armatrix/agent-tools-go/internal/metrics"
	"github.com/armatrix/agent-tools-go/mcp"
)

// Agent hosts the tool-execution core: local tools, the MCP server
// manager, the external tool catalog and the batch scheduler. The same
// Agent can be shared across goroutines.
type Agent struct {
	apiClient *anthropic.Client
	streamer  engine.MessageStreamer

	tools      *ToolRegistry
	manager    *mcp.Manager
	catalog    *catalog.Catalog
	dispatcher *Dispatcher
	scheduler  *batch.Scheduler
	metrics    *metrics.Metrics
	logger     *slog.Logger
	opts       agentOptions

	// initErr holds configuration errors found by NewAgent; Start reports
	// them.
	initErr error
}

// NewAgent creates a new Agent with the given options. It does not connect
// to any server; call Start for that.
func NewAgent(opts ...AgentOption) *Agent {
	// Capture user-set values before applying defaults
	var userSet agentOptions
	for _, fn := range opts {
		fn(&userSet)
	}

	resolved := resolveOptions(opts)

	// User-explicit options take precedence over file-based settings
	var settingsErr error
	if len(resolved.settingSources) > 0 {
		settings, err := config.LoadSettings(resolved.settingSources...)
		if err != nil {
			settingsErr = fmt.Errorf("agent: load settings: %w", err)
		}
		applySettings(&resolved, settings, &userSet)
	}

	a := &Agent{
		tools:   NewToolRegistry(),
		logger:  resolved.logger,
		opts:    resolved,
		initErr: settingsErr,
	}

	client := anthropic.NewClient(resolved.requestOptions...)
	a.apiClient = &client
	a.streamer = engine.NewMessageStreamer(&a.apiClient.Messages)

	if resolved.registerer != nil {
		a.metrics = metrics.New(resolved.registerer)
	}

	servers := make(map[string]mcp.ServerConfig)
	if len(resolved.serverFiles) > 0 {
		loaded, err := config.LoadServers(resolved.serverFiles...)
		if err != nil {
			a.initErr = errors.Join(a.initErr, fmt.Errorf("agent: load mcp servers: %w", err))
		}
		maps.Copy(servers, loaded)
	}
	maps.Copy(servers, resolved.servers)

	a.manager = mcp.NewManager(servers,
		mcp.WithLogger(a.logger.With("component", "mcp")),
		mcp.WithMetrics(a.metrics))
	for _, srv := range resolved.inProcess {
		a.manager.AddTransport(srv.Name(), srv.Transport())
	}

	a.catalog = catalog.New(a.manager,
		catalog.WithLogger(a.logger.With("component", "catalog")),
		catalog.WithMetrics(a.metrics))
	a.dispatcher = NewDispatcher(a.tools, a.catalog, a.manager, a.logger)

	classifier := batch.NewClassifier(a.accessOf, batch.WithBaseDir(resolved.workDir))
	a.scheduler = batch.NewScheduler(a.dispatcher, classifier,
		batch.WithMaxConcurrency(resolved.maxConcurrency),
		batch.WithInvocationTimeout(resolved.invocationTimeout),
		batch.WithLogger(a.logger.With("component", "batch")),
		batch.WithMetrics(a.metrics))
	return a
}

// applySettings merges loaded settings into resolved options.
// Options set explicitly via WithXxx take precedence over settings files.
// We check against zero values to detect whether the user set an explicit option.
func applySettings(o *agentOptions, s *config.Settings, userSet *agentOptions) {
	if userSet.model == "" && s.Model != "" {
		o.model = anthropic.Model(s.Model)
	}
	if userSet.fallbackModel == "" && s.FallbackModel != "" {
		o.fallbackModel = anthropic.Model(s.FallbackModel)
	}
	if userSet.systemPrompt == "" && s.SystemPrompt != "" {
		o.systemPrompt = s.SystemPrompt
	}
	if userSet.maxTurns == 0 && s.MaxTurns > 0 {
		o.maxTurns = s.MaxTurns
	}
	if userSet.maxConcurrency == 0 && s.MaxConcurrency > 0 {
		o.maxConcurrency = s.MaxConcurrency
	}
	if userSet.invocationTimeout == 0 && s.InvocationTimeout > 0 {
		o.invocationTimeout = time.Duration(s.InvocationTimeout)
	}
	if userSet.sandbox == nil && s.Sandbox != nil {
		o.sandbox = &SandboxConfig{AllowedDirs: s.Sandbox.AllowedDirs, BlockedCommands: s.Sandbox.BlockedCommands}
	}
	if len(userSet.disabledTools) == 0 && len(s.DisabledTools) > 0 {
		o.disabledTools = s.DisabledTools
	}
}

// accessOf reports how a tool touches the paths in its arguments. Local
// tools declare it; external tools are readers only when their server says
// so.
func (a *Agent) accessOf(name string) batch.Access {
	if a.tools.Has(name) {
		return a.tools.Access(name)
	}
	if d, ok := a.catalog.Resolve(name); ok && d.ReadOnly {
		return batch.AccessRead
	}
	return batch.AccessUnknown
}

// Start removes disabled tools, connects every enabled MCP server and
// builds the tool catalog. Servers that fail do not stop the others; their
// errors are joined into the returned error and the agent stays usable.
func (a *Agent) Start(ctx context.Context) error {
	for _, name := range a.opts.disabledTools {
		a.tools.Remove(name)
	}

	errs := []error{a.initErr}
	if err := a.manager.ConnectAll(ctx, true); err != nil {
		a.logger.Warn("some mcp servers failed to connect", "error", err)
		errs = append(errs, err)
	}
	if err := a.catalog.Refresh(ctx); err != nil {
		a.logger.Warn("tool catalog incomplete", "error", err)
		errs = append(errs, err)
	}
	a.logger.Info("agent started",
		"servers", len(a.manager.ConnectedServers()),
		"external_tools", a.catalog.Len(),
		"local_tools", len(a.tools.Names()))
	return errors.Join(errs...)
}

// Refresh rebuilds the tool catalog from the connected servers.
func (a *Agent) Refresh(ctx context.Context) error {
	return a.catalog.Refresh(ctx)
}

// Close disconnects every MCP server.
func (a *Agent) Close() error {
	return a.manager.Close()
}

// Tools returns the agent's tool registry for registering custom tools.
func (a *Agent) Tools() *ToolRegistry {
	return a.tools
}

// Manager returns the MCP server manager.
func (a *Agent) Manager() *mcp.Manager {
	return a.manager
}

// Catalog returns the external tool catalog.
func (a *Agent) Catalog() *catalog.Catalog {
	return a.catalog
}

// Model returns the configured model.
func (a *Agent) Model() anthropic.Model {
	return a.opts.model
}

// Options returns a copy of the resolved agent options (for testing/inspection).
func (a *Agent) Options() agentOptions {
	return a.opts
}

// Plan returns the waves ExecuteBatch would run invs in.
func (a *Agent) Plan(invs []batch.Invocation) batch.Plan {
	return a.scheduler.Plan(invs)
}

// ExecuteBatch runs the invocations of one turn and returns one result per
// invocation in submission order.
func (a *Agent) ExecuteBatch(ctx context.Context, invs []batch.Invocation) []batch.Result {
	return a.scheduler.Execute(a.toolContext(ctx), invs)
}

// toolContext fills in the agent's work dir, sandbox and tool environment
// where ctx does not already carry them.
func (a *Agent) toolContext(ctx context.Context) context.Context {
	if a.opts.workDir != "" && ContextWorkDir(ctx) == "" {
		ctx = WithContextWorkDir(ctx, a.opts.workDir)
	}
	if a.opts.sandbox != nil && ContextSandbox(ctx) == nil {
		ctx = WithContextSandbox(ctx, a.opts.sandbox)
	}
	if len(a.opts.toolEnv) > 0 && ContextEnv(ctx) == nil {
		ctx = WithContextEnv(ctx, a.opts.toolEnv)
	}
	return ctx
}

// Run starts a single-shot agent execution with a new session.
// Returns an AgentStream for iterating over events.
func (a *Agent) Run(ctx context.Context, prompt string) *AgentStream {
	return a.RunWithSession(ctx, NewSession(), prompt)
}

// RunWithSession starts an agent execution using an existing session.
// The session's message history is preserved and extended.
func (a *Agent) RunWithSession(ctx context.Context, session *Session, prompt string) *AgentStream {
	session.Messages = append(session.Messages,
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))

	eventCh := make(chan Event, a.opts.streamBufferSize)
	stream := newStream(eventCh, session)

	cfg := engine.LoopConfig{
		Streamer:      a.streamer,
		Tools:         &toolExecutor{agent: a},
		Model:         a.opts.model,
		FallbackModel: a.opts.fallbackModel,
		MaxTokens:     a.opts.maxOutputTokens,
		MaxTurns:      a.opts.maxTurns,
		Messages:      &session.Messages,
		SessionID:     session.ID,
		Sink:          &channelSink{ch: eventCh},
		Logger:        a.logger.With("component", "engine", "run_id", GenerateID(PrefixRun)),
	}
	if a.opts.systemPrompt != "" {
		cfg.SystemPrompt = []anthropic.TextBlockParam{
			{Text: a.opts.systemPrompt},
		}
	}

	go func() {
		defer close(eventCh)
		engine.RunLoop(ctx, cfg)
	}()

	return stream
}

// toolExecutor exposes local and external tools to the engine loop.
type toolExecutor struct {
	agent *Agent
}

func (t *toolExecutor) ExecuteBatch(ctx context.Context, invs []batch.Invocation) []batch.Result {
	return t.agent.ExecuteBatch(ctx, invs)
}

func (t *toolExecutor) ListForAPI() []anthropic.ToolUnionParam {
	out := t.agent.tools.ListForAPI()
	for _, d := range t.agent.catalog.All() {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        d.Name,
				Description: param.NewOpt(d.Description),
				InputSchema: apiSchema(d.RawSchema),
			},
		})
	}
	return out
}

// apiSchema converts a server's JSON schema into the API's input schema
// shape. Unreadable schemas become an empty object schema.
func apiSchema(raw json.RawMessage) anthropic.ToolInputSchemaParam {
	var s struct {
		Properties any      `json:"properties"`
		Required   []string `json:"required"`
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &s)
	}
	return anthropic.ToolInputSchemaParam{Properties: s.Properties, Required: s.Required}
}

// channelSink implements engine.EventSink by sending events to a channel.
type channelSink struct {
	ch chan Event
}

func (s *channelSink) OnSystem(sessionID string, model anthropic.Model) {
	s.ch <- &SystemEvent{SessionID: sessionID, Model: model}
}

func (s *channelSink) OnStream(delta string) {
	s.ch <- &StreamEvent{Delta: delta}
}

func (s *channelSink) OnAssistant(msg anthropic.Message) {
	s.ch <- &AssistantEvent{Message: msg}
}

func (s *channelSink) OnToolResults(results []batch.Result) {
	s.ch <- &ToolResultEvent{Results: results}
}

func (s *channelSink) OnResult(info engine.ResultInfo) {
	s.ch <- &ResultEvent{
		Subtype:   info.Subtype,
		SessionID: info.SessionID,
		IsError:   info.IsError,
		NumTurns:  info.NumTurns,
		Usage: Usage{
			InputTokens:              info.InputTokens,
			OutputTokens:             info.OutputTokens,
			CacheReadInputTokens:     info.CacheReadInputTokens,
			CacheCreationInputTokens: info.CacheCreationInputTokens,
		},
		DurationMs: info.DurationMs,
		Result:     info.Result,
		Errors:     info.Errors,
	}
}
