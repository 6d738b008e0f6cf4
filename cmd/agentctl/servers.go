package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/armatrix/agent-tools-go/mcp"
)

func newServersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "Inspect and connect MCP servers",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List configured servers without connecting",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ag, err := a.newAgent()
				if err != nil {
					return err
				}
				defer ag.Close()

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tTRANSPORT\tENABLED\tTARGET")
				for _, cfg := range ag.Manager().Configs() {
					target := cfg.URL
					if cfg.Kind() == mcp.TransportStdio {
						target = cfg.Command
					}
					fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", cfg.Name, cfg.Kind(), cfg.Enabled(), target)
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Connect every enabled server and report its state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ag, err := a.startAgent(cmd.Context())
				if err != nil {
					return err
				}
				defer ag.Close()
				return printStatuses(cmd, ag.Manager().Statuses())
			},
		},
		&cobra.Command{
			Use:   "connect <name>",
			Short: "Connect one server and list its tools",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ag, err := a.newAgent()
				if err != nil {
					return err
				}
				defer ag.Close()

				ctx := cmd.Context()
				if err := ag.Manager().Connect(ctx, args[0]); err != nil {
					return err
				}
				infos, err := ag.Manager().ListTools(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "connected to %s: %d tools\n", args[0], len(infos))
				for _, ti := range infos {
					fmt.Fprintf(out, "  %s\n", mcp.QualifiedName(args[0], ti.Name))
				}
				return nil
			},
		},
	)
	return cmd
}

func printStatuses(cmd *cobra.Command, statuses []mcp.ConnectionStatus) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATE\tATTEMPTS\tTOOLS\tRESOURCES\tERROR")
	for _, s := range statuses {
		errText := ""
		if s.LastError != nil {
			errText = s.LastError.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%t\t%s\n",
			s.Name, s.State, s.Attempts, s.Capabilities.Tools, s.Capabilities.Resources, errText)
	}
	return w.Flush()
}
