package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	agent "github.com/armatrix/agent-tools-go"
	"github.com/armatrix/agent-tools-go/internal/config"
	"github.com/armatrix/agent-tools-go/internal/metrics"
	"github.com/armatrix/agent-tools-go/tools"
)

// Setting keys. Each is also read from AGENTCTL_<KEY> and the config file.
const (
	keyModel          = "model"
	keyMaxTurns       = "max_turns"
	keyMaxConcurrency = "max_concurrency"
	keyLogLevel       = "log_level"
	keyMCPConfig      = "mcp_config"
	keyWorkDir        = "workdir"
	keyMetricsAddr    = "metrics_addr"
)

// app holds the state shared by every command.
type app struct {
	v          *viper.Viper
	configFile string
	logger     *slog.Logger
	registry   *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "agentctl",
		Short:         "Run tools for Claude across local and MCP servers",
		Long:          "agentctl connects to MCP servers, exposes their tools next to the built-in ones, and runs each model turn's tool calls in dependency-ordered parallel waves.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: .agentctl.yaml in the working directory or home)")
	flags.String("model", agent.DefaultModel, "Claude model")
	flags.Int("max-turns", 0, "maximum agent turns (0 = unlimited)")
	flags.Int("max-concurrency", agent.DefaultMaxConcurrency, "maximum concurrent tool calls per wave")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	flags.StringSlice("mcp-config", nil, "MCP server files (default: ~/.agentctl/mcp.yaml, .mcp.json, .agentctl/mcp.yaml)")
	flags.String("workdir", "", "directory relative tool paths resolve against (default: current directory)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")

	for key, flag := range map[string]string{
		keyModel:          "model",
		keyMaxTurns:       "max-turns",
		keyMaxConcurrency: "max-concurrency",
		keyLogLevel:       "log-level",
		keyMCPConfig:      "mcp-config",
		keyWorkDir:        "workdir",
		keyMetricsAddr:    "metrics-addr",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newRunCmd(a),
		newServersCmd(a),
		newToolsCmd(a),
		newExecCmd(a),
	)
	return root
}

// init reads the config file and environment and builds the logger.
func (a *app) init(stderr io.Writer) error {
	a.v.SetEnvPrefix("AGENTCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
	} else {
		a.v.SetConfigName(".agentctl")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		a.v.AddConfigPath("$HOME")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	level, err := parseLevel(a.v.GetString(keyLogLevel))
	if err != nil {
		return err
	}
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func (a *app) workDir() (string, error) {
	if dir := a.v.GetString(keyWorkDir); dir != "" {
		return filepath.Abs(dir)
	}
	return os.Getwd()
}

func (a *app) serverFiles(workDir string) []string {
	if files := a.v.GetStringSlice(keyMCPConfig); len(files) > 0 {
		return files
	}
	return config.DefaultServerPaths(workDir)
}

// newAgent builds an agent from the resolved settings with every built-in
// tool registered. The caller starts and closes it.
func (a *app) newAgent() (*agent.Agent, error) {
	dir, err := a.workDir()
	if err != nil {
		return nil, err
	}

	opts := []agent.AgentOption{
		agent.WithSettings(config.DefaultSettingsPaths(dir)...),
		agent.WithMCPConfigFiles(a.serverFiles(dir)...),
		agent.WithWorkDir(dir),
		agent.WithLogger(a.logger),
	}
	// Flags and environment only override settings files when given.
	if a.v.IsSet(keyModel) {
		opts = append(opts, agent.WithModel(anthropic.Model(a.v.GetString(keyModel))))
	}
	if n := a.v.GetInt(keyMaxTurns); n > 0 {
		opts = append(opts, agent.WithMaxTurns(n))
	}
	if n := a.v.GetInt(keyMaxConcurrency); n > 0 {
		opts = append(opts, agent.WithMaxConcurrency(n))
	}
	if a.v.GetString(keyMetricsAddr) != "" {
		a.registry = prometheus.NewRegistry()
		opts = append(opts, agent.WithMetricsRegisterer(a.registry))
	}

	ag := agent.NewAgent(opts...)
	tools.RegisterAgentTools(ag)
	return ag, nil
}

// startAgent builds and starts an agent. Servers that fail to connect are
// logged and left out.
func (a *app) startAgent(ctx context.Context) (*agent.Agent, error) {
	ag, err := a.newAgent()
	if err != nil {
		return nil, err
	}
	if err := ag.Start(ctx); err != nil {
		a.logger.Warn("agent started with errors", "error", err)
	}
	return ag, nil
}

// serveMetrics starts the metrics endpoint in the background when an
// address is configured.
func (a *app) serveMetrics(ctx context.Context) {
	addr := a.v.GetString(keyMetricsAddr)
	if addr == "" || a.registry == nil {
		return
	}
	go func() {
		if err := metrics.ListenAndServe(ctx, addr, a.registry, a.logger); err != nil {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()
}
