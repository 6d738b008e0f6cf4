package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/armatrix/agent-tools-go/batch"
)

// batchCall is one entry of a batch file.
type batchCall struct {
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input,omitempty"`
}

// callResult is one line of exec output.
type callResult struct {
	Index      int    `json:"index"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Wave       int    `json:"wave"`
	Output     string `json:"output"`
	IsError    bool   `json:"is_error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

func newExecCmd(a *app) *cobra.Command {
	var planOnly bool
	cmd := &cobra.Command{
		Use:   "exec <batch.json|->",
		Short: "Execute a batch of tool calls from a JSON file",
		Long: `exec reads a JSON array of {"id", "name", "input"} calls, runs them the way
one model turn's tool calls run, and prints one JSON result per call in
input order. With --plan it only prints the waves the calls would run in.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invs, err := readBatch(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			ag, err := a.startAgent(cmd.Context())
			if err != nil {
				return err
			}
			defer ag.Close()

			plan := ag.Plan(invs)
			enc := json.NewEncoder(cmd.OutOrStdout())
			if planOnly {
				return enc.Encode(map[string]any{"waves": plan.Waves, "sizes": plan.Sizes()})
			}

			results := ag.ExecuteBatch(cmd.Context(), invs)
			failed := 0
			for _, r := range results {
				if r.IsError {
					failed++
				}
				if err := enc.Encode(callResult{
					Index:      r.Index,
					ID:         r.ID,
					Name:       r.Name,
					Wave:       plan.WaveOf(r.Index),
					Output:     r.Output,
					IsError:    r.IsError,
					DurationMs: r.Duration.Milliseconds(),
				}); err != nil {
					return err
				}
			}
			a.logger.Info("batch finished", "calls", len(results), "failed", failed, "waves", len(plan.Waves))
			return nil
		},
	}
	cmd.Flags().BoolVar(&planOnly, "plan", false, "print the execution waves without running anything")
	return cmd
}

// readBatch decodes a batch file; "-" reads standard input.
func readBatch(stdin io.Reader, path string) ([]batch.Invocation, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}

	var calls []batchCall
	if err := json.Unmarshal(data, &calls); err != nil {
		return nil, fmt.Errorf("parse batch: %w", err)
	}
	invs := make([]batch.Invocation, len(calls))
	for i, c := range calls {
		if c.Name == "" {
			return nil, fmt.Errorf("parse batch: call %d has no name", i)
		}
		invs[i] = batch.Invocation{ID: c.ID, Name: c.Name, Input: c.Input}
	}
	return invs, nil
}
