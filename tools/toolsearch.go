package tools

import (
	"context"
	"fmt"
	"strings"

	agent "github.com/armatrix/agent-tools-go"
	"github.com/armatrix/agent-tools-go/batch"
	"github.com/armatrix/agent-tools-go/catalog"
)

// ToolSearchInput defines the input for the ToolSearch meta-tool.
type ToolSearchInput struct {
	Query string `json:"query" jsonschema:"required,description=Search query to find tools by name or description"`
}

// ToolSearchTool searches local tools and, when a catalog is attached, the
// external MCP tools.
type ToolSearchTool struct {
	registry *agent.ToolRegistry
	catalog  *catalog.Catalog
}

var _ agent.Tool[ToolSearchInput] = (*ToolSearchTool)(nil)

// NewToolSearchTool creates a ToolSearchTool. cat may be nil.
func NewToolSearchTool(registry *agent.ToolRegistry, cat *catalog.Catalog) *ToolSearchTool {
	return &ToolSearchTool{registry: registry, catalog: cat}
}

func (t *ToolSearchTool) Name() string         { return "ToolSearch" }
func (t *ToolSearchTool) Access() batch.Access { return batch.AccessNone }

func (t *ToolSearchTool) Description() string {
	return "Search for available tools by name or description keyword"
}

func (t *ToolSearchTool) Execute(_ context.Context, input ToolSearchInput) (*agent.ToolResult, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return agent.ErrorResult("query is required"), nil
	}

	var sb strings.Builder
	for _, m := range t.registry.Search(query) {
		fmt.Fprintf(&sb, "- %s: %s\n", m.Name, m.Description)
	}
	if t.catalog != nil {
		for _, d := range t.catalog.Search(query) {
			fmt.Fprintf(&sb, "- %s: %s (server %s)\n", d.Name, d.Description, d.Server)
		}
	}

	if sb.Len() == 0 {
		return agent.TextResult("No tools found matching: " + input.Query), nil
	}
	return agent.TextResult("Found tools:\n" + sb.String()), nil
}
