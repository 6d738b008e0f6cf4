package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	agent "github.com/armatrix/agent-tools-go"
	"github.com/armatrix/agent-tools-go/batch"
	"github.com/armatrix/agent-tools-go/mcp"
)

// ResourceSource lists and reads MCP resources by server name.
// *mcp.Manager implements it.
type ResourceSource interface {
	ConnectedServers() []string
	ListResources(ctx context.Context, server string) ([]mcp.Resource, error)
	ReadResource(ctx context.Context, server, uri string) (string, error)
}

// ListMcpResourcesInput defines the input for the ListMcpResources tool.
type ListMcpResourcesInput struct {
	ServerName string `json:"server_name,omitempty" jsonschema:"description=MCP server to list resources from; all connected servers when empty"`
}

// ListMcpResourcesTool lists the resources MCP servers expose.
type ListMcpResourcesTool struct {
	source ResourceSource
}

var _ agent.Tool[ListMcpResourcesInput] = (*ListMcpResourcesTool)(nil)

// NewListMcpResourcesTool creates a ListMcpResourcesTool backed by src.
func NewListMcpResourcesTool(src ResourceSource) *ListMcpResourcesTool {
	return &ListMcpResourcesTool{source: src}
}

func (t *ListMcpResourcesTool) Name() string         { return "ListMcpResources" }
func (t *ListMcpResourcesTool) Access() batch.Access { return batch.AccessRead }

func (t *ListMcpResourcesTool) Description() string {
	return "List resources available on connected MCP servers"
}

func (t *ListMcpResourcesTool) Execute(ctx context.Context, input ListMcpResourcesInput) (*agent.ToolResult, error) {
	servers := []string{input.ServerName}
	if input.ServerName == "" {
		servers = t.source.ConnectedServers()
	}

	var b strings.Builder
	var failures []string
	for _, server := range servers {
		resources, err := t.source.ListResources(ctx, server)
		if input.ServerName == "" && errors.Is(err, mcp.ErrUnsupported) {
			continue
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %s", server, err.Error()))
			continue
		}
		for _, r := range resources {
			writeResource(&b, server, r)
		}
	}

	// A single named server that failed is an error; partial failures
	// across servers are reported next to what was listed.
	if input.ServerName != "" && len(failures) > 0 {
		return agent.ErrorResult("failed to list resources: " + failures[0]), nil
	}
	for _, f := range failures {
		fmt.Fprintf(&b, "! %s\n", f)
	}
	if b.Len() == 0 {
		return agent.TextResult("No resources available."), nil
	}
	return agent.TextResult(strings.TrimSuffix(b.String(), "\n")), nil
}

func writeResource(b *strings.Builder, server string, r mcp.Resource) {
	fmt.Fprintf(b, "- [%s] %s (%s)", server, r.Name, r.URI)
	if r.Description != "" {
		fmt.Fprintf(b, ": %s", r.Description)
	}
	if r.MIMEType != "" {
		fmt.Fprintf(b, " [%s]", r.MIMEType)
	}
	b.WriteByte('\n')
}

// ReadMcpResourceInput defines the input for the ReadMcpResource tool.
type ReadMcpResourceInput struct {
	ServerName string `json:"server_name" jsonschema:"required,description=MCP server name to read resource from"`
	URI        string `json:"uri" jsonschema:"required,description=Resource URI to read"`
}

// ReadMcpResourceTool reads a specific resource from an MCP server.
type ReadMcpResourceTool struct {
	source ResourceSource
}

var _ agent.Tool[ReadMcpResourceInput] = (*ReadMcpResourceTool)(nil)

// NewReadMcpResourceTool creates a ReadMcpResourceTool backed by src.
func NewReadMcpResourceTool(src ResourceSource) *ReadMcpResourceTool {
	return &ReadMcpResourceTool{source: src}
}

func (t *ReadMcpResourceTool) Name() string         { return "ReadMcpResource" }
func (t *ReadMcpResourceTool) Access() batch.Access { return batch.AccessRead }

func (t *ReadMcpResourceTool) Description() string {
	return "Read a resource from an MCP server by URI"
}

func (t *ReadMcpResourceTool) Execute(ctx context.Context, input ReadMcpResourceInput) (*agent.ToolResult, error) {
	if input.ServerName == "" {
		return agent.ErrorResult("server_name is required"), nil
	}
	if input.URI == "" {
		return agent.ErrorResult("uri is required"), nil
	}

	content, err := t.source.ReadResource(ctx, input.ServerName, input.URI)
	if err != nil {
		return agent.ErrorResult(fmt.Sprintf("failed to read resource: %s", err.Error())), nil
	}
	return agent.TextResult(content), nil
}
