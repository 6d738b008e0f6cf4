package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	agent "github.com/armatrix/agent-tools-go"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <prompt>",
		Short: "Send a prompt to Claude and stream the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ag, err := a.startAgent(ctx)
			if err != nil {
				return err
			}
			defer ag.Close()
			a.serveMetrics(ctx)

			return a.stream(ctx, cmd, ag, strings.Join(args, " "))
		},
	}
}

func (a *app) stream(ctx context.Context, cmd *cobra.Command, ag *agent.Agent, prompt string) error {
	out := cmd.OutOrStdout()
	stream := ag.Run(ctx, prompt)
	for stream.Next() {
		switch e := stream.Current().(type) {
		case *agent.StreamEvent:
			fmt.Fprint(out, e.Delta)
		case *agent.ToolResultEvent:
			for _, r := range e.Results {
				a.logger.Info("tool call",
					"tool", r.Name, "id", r.ID, "error", r.IsError, "duration", r.Duration)
			}
		case *agent.ResultEvent:
			fmt.Fprintln(out)
			a.logger.Info("run finished",
				"subtype", e.Subtype,
				"turns", e.NumTurns,
				"input_tokens", e.Usage.InputTokens,
				"output_tokens", e.Usage.OutputTokens,
				"duration_ms", e.DurationMs)
		}
	}
	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
