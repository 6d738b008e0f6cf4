package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// SDKServer is an in-process MCP server that wraps Go functions as tools and
// resources. It speaks the real protocol over in-memory pipes, so its tools
// go through the same Manager, catalog and validation path as tools on an
// external server.
//
// Usage:
//
//	srv := mcp.NewSDKServer("mytools")
//	mcp.AddTool(srv, "greet", "Greet someone", func(ctx context.Context, in GreetInput) (string, error) {
//	    return "Hello, " + in.Name, nil
//	})
//	mgr.AddTransport(srv.Name(), srv.Transport())
type SDKServer struct {
	name   string
	server *sdk.Server
	tools  []string
}

// NewSDKServer creates a new in-process MCP server with the given name.
// The name is used as the server component in qualified tool names.
func NewSDKServer(name string) *SDKServer {
	return &SDKServer{
		name:   name,
		server: sdk.NewServer(&sdk.Implementation{Name: name, Version: ClientVersion}, nil),
	}
}

// Name returns the server name.
func (s *SDKServer) Name() string { return s.name }

// ToolNames returns the local names of all registered tools.
func (s *SDKServer) ToolNames() []string {
	return append([]string(nil), s.tools...)
}

// AddTool registers a typed Go function as an MCP tool. The input schema is
// inferred from T; a returned error becomes a tool result flagged as an
// error. Register tools before the first connect.
func AddTool[T any](s *SDKServer, name, description string, handler func(ctx context.Context, input T) (string, error)) {
	addTool(s, &sdk.Tool{Name: name, Description: description}, handler)
}

// AddReadOnlyTool is AddTool for tools that only read. Clients see the
// read-only annotation and may run calls to it side by side.
func AddReadOnlyTool[T any](s *SDKServer, name, description string, handler func(ctx context.Context, input T) (string, error)) {
	addTool(s, &sdk.Tool{
		Name:        name,
		Description: description,
		Annotations: &sdk.ToolAnnotations{ReadOnlyHint: true},
	}, handler)
}

func addTool[T any](s *SDKServer, tool *sdk.Tool, handler func(ctx context.Context, input T) (string, error)) {
	sdk.AddTool(s.server, tool,
		func(ctx context.Context, _ *sdk.CallToolRequest, input T) (*sdk.CallToolResult, any, error) {
			out, err := handler(ctx, input)
			if err != nil {
				return nil, nil, err
			}
			return &sdk.CallToolResult{Content: []sdk.Content{&sdk.TextContent{Text: out}}}, nil, nil
		})
	s.tools = append(s.tools, tool.Name)
}

// AddResource registers a text resource served by read.
func (s *SDKServer) AddResource(r Resource, read func(ctx context.Context) (string, error)) {
	s.server.AddResource(&sdk.Resource{
		URI:         r.URI,
		Name:        r.Name,
		Description: r.Description,
		MIMEType:    r.MIMEType,
	}, func(ctx context.Context, _ *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
		text, err := read(ctx)
		if err != nil {
			return nil, err
		}
		return &sdk.ReadResourceResult{Contents: []*sdk.ResourceContents{
			{URI: r.URI, MIMEType: r.MIMEType, Text: text},
		}}, nil
	})
}

// Transport returns a Transport connected to this server through in-memory
// pipes. Each Connect starts a new server session.
func (s *SDKServer) Transport() *SDKTransport {
	return NewSDKTransport(s.name, func(ctx context.Context) (sdk.Transport, error) {
		client, server := sdk.NewInMemoryTransports()
		if _, err := s.server.Connect(ctx, server, nil); err != nil {
			return nil, fmt.Errorf("start in-process server %s: %w", s.name, err)
		}
		return client, nil
	})
}
