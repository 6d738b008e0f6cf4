// Package agent hosts the tool-execution core of a conversational coding
// agent: it lets a Claude model call local tools and tools served by
// external MCP servers, and runs the calls of each model turn in parallel
// where that is safe.
//
// An [Agent] wires four parts together:
//
//   - a [ToolRegistry] of local tools, each declaring its batch.Access,
//   - an mcp.Manager holding live connections to MCP servers,
//   - a catalog.Catalog of the external tools under mcp__server__tool names,
//   - a batch.Scheduler that orders one turn's calls into waves.
//
// # Quick Start
//
//	a := agent.NewAgent(
//	    agent.WithModel(anthropic.ModelClaudeSonnet4_5),
//	    agent.WithMCPConfigFiles(".mcp.json"),
//	)
//	tools.RegisterAll(a.Tools())
//	if err := a.Start(ctx); err != nil {
//	    log.Printf("some servers are unavailable: %v", err)
//	}
//	defer a.Close()
//
//	stream := a.Run(ctx, "Rename foo to bar across the repository")
//	for stream.Next() {
//	    if e, ok := stream.Current().(*agent.StreamEvent); ok {
//	        fmt.Print(e.Delta)
//	    }
//	}
//
// Batches can also be executed directly with [Agent.ExecuteBatch], which
// returns one result per invocation in submission order.
package agent
