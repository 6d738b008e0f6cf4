package tools

import (
	agent "github.com/armatrix/agent-tools-go"
)

// RegisterAll registers the file and shell tools into registry.
func RegisterAll(registry *agent.ToolRegistry) {
	agent.RegisterTool(registry, &ReadTool{})
	agent.RegisterTool(registry, &WriteTool{})
	agent.RegisterTool(registry, &EditTool{})
	agent.RegisterTool(registry, &NotebookEditTool{})
	agent.RegisterTool(registry, &BashTool{})
	agent.RegisterTool(registry, &GlobTool{})
	agent.RegisterTool(registry, &GrepTool{})
}

// RegisterAgentTools registers every built-in tool into a's registry,
// including the MCP resource tools and ToolSearch.
func RegisterAgentTools(a *agent.Agent) {
	registry := a.Tools()
	RegisterAll(registry)
	agent.RegisterTool(registry, NewListMcpResourcesTool(a.Manager()))
	agent.RegisterTool(registry, NewReadMcpResourceTool(a.Manager()))
	agent.RegisterTool(registry, NewToolSearchTool(registry, a.Catalog()))
}
