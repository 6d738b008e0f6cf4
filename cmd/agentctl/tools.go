package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/armatrix/agent-tools-go/batch"
)

func newToolsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List and search local and MCP tools",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every tool the model can call",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.printTools(cmd, "")
			},
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Find tools by name or description",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.printTools(cmd, strings.Join(args, " "))
			},
		},
	)
	return cmd
}

type toolRow struct {
	name, source, description string
	access                    batch.Access
}

func (a *app) printTools(cmd *cobra.Command, query string) error {
	ag, err := a.startAgent(cmd.Context())
	if err != nil {
		return err
	}
	defer ag.Close()

	// An empty query matches everything in both sources.
	var rows []toolRow
	for _, m := range ag.Tools().Search(query) {
		rows = append(rows, toolRow{name: m.Name, source: "local", description: m.Description, access: ag.Tools().Access(m.Name)})
	}
	for _, d := range ag.Catalog().Search(query) {
		access := batch.AccessUnknown
		if d.ReadOnly {
			access = batch.AccessRead
		}
		rows = append(rows, toolRow{name: d.Name, source: d.Server, description: d.Description, access: access})
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCE\tACCESS\tDESCRIPTION")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.name, r.source, r.access, oneLine(r.description))
	}
	return w.Flush()
}

func oneLine(s string) string {
	s, _, _ = strings.Cut(s, "\n")
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	return s
}
