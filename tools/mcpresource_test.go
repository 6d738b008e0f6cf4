package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armatrix/agent-tools-go/mcp"
)

// fakeResources implements ResourceSource over fixed per-server data.
type fakeResources struct {
	servers   []string
	resources map[string][]mcp.Resource
	contents  map[string]string
	failures  map[string]error
}

func (f *fakeResources) ConnectedServers() []string { return f.servers }

func (f *fakeResources) ListResources(_ context.Context, server string) ([]mcp.Resource, error) {
	if err := f.failures[server]; err != nil {
		return nil, err
	}
	rs, ok := f.resources[server]
	if !ok {
		return nil, mcp.ErrServerNotFound
	}
	return rs, nil
}

func (f *fakeResources) ReadResource(_ context.Context, server, uri string) (string, error) {
	if _, ok := f.resources[server]; !ok {
		return "", mcp.ErrServerNotFound
	}
	content, ok := f.contents[uri]
	if !ok {
		return "", errors.New("resource not found")
	}
	return content, nil
}

func newFakeResources() *fakeResources {
	return &fakeResources{
		servers: []string{"data", "empty"},
		resources: map[string][]mcp.Resource{
			"data": {
				{URI: "file:///a.txt", Name: "a.txt", Description: "File A", MIMEType: "text/plain"},
				{URI: "db://users", Name: "users", Description: "Users table"},
			},
			"empty": {},
		},
		contents: map[string]string{"file:///a.txt": "alpha"},
	}
}

func TestListMcpResourcesTool_OneServer(t *testing.T) {
	tool := NewListMcpResourcesTool(newFakeResources())

	result, err := tool.Execute(context.Background(), ListMcpResourcesInput{ServerName: "data"})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := result.Text()
	assert.Contains(t, text, "[data] a.txt (file:///a.txt): File A [text/plain]")
	assert.Contains(t, text, "[data] users (db://users): Users table")
}

func TestListMcpResourcesTool_SkipsServersWithoutResources(t *testing.T) {
	src := newFakeResources()
	src.servers = append(src.servers, "tools-only")
	src.failures = map[string]error{"tools-only": &mcp.CapabilityError{Server: "tools-only", Capability: "resources"}}
	tool := NewListMcpResourcesTool(src)

	all, err := tool.Execute(context.Background(), ListMcpResourcesInput{})
	require.NoError(t, err)
	assert.False(t, all.IsError)
	assert.Contains(t, all.Text(), "[data] a.txt")
	assert.NotContains(t, all.Text(), "tools-only")

	named, err := tool.Execute(context.Background(), ListMcpResourcesInput{ServerName: "tools-only"})
	require.NoError(t, err)
	assert.True(t, named.IsError)
	assert.Contains(t, named.Text(), "does not support resources")
}

func TestListMcpResourcesTool_NoResources(t *testing.T) {
	tool := NewListMcpResourcesTool(newFakeResources())

	result, err := tool.Execute(context.Background(), ListMcpResourcesInput{ServerName: "empty"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "No resources available.", result.Text())
}

func TestListMcpResourcesTool_UnknownServer(t *testing.T) {
	tool := NewListMcpResourcesTool(newFakeResources())

	result, err := tool.Execute(context.Background(), ListMcpResourcesInput{ServerName: "nonexistent"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text(), "server not found")
}

func TestListMcpResourcesTool_AllServersReportsFailures(t *testing.T) {
	src := newFakeResources()
	src.servers = append(src.servers, "broken")
	src.failures = map[string]error{"broken": errors.New("capability missing")}
	tool := NewListMcpResourcesTool(src)

	result, err := tool.Execute(context.Background(), ListMcpResourcesInput{})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := result.Text()
	assert.Contains(t, text, "[data] a.txt")
	assert.Contains(t, text, "! broken: capability missing")
}

func TestReadMcpResourceTool_RequiredFields(t *testing.T) {
	tool := NewReadMcpResourceTool(newFakeResources())

	result, err := tool.Execute(context.Background(), ReadMcpResourceInput{URI: "file:///a.txt"})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = tool.Execute(context.Background(), ReadMcpResourceInput{ServerName: "data"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestReadMcpResourceTool_Success(t *testing.T) {
	tool := NewReadMcpResourceTool(newFakeResources())

	result, err := tool.Execute(context.Background(), ReadMcpResourceInput{ServerName: "data", URI: "file:///a.txt"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "alpha", result.Text())
}

func TestReadMcpResourceTool_Failure(t *testing.T) {
	tool := NewReadMcpResourceTool(newFakeResources())

	result, err := tool.Execute(context.Background(), ReadMcpResourceInput{ServerName: "missing", URI: "file:///a.txt"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text(), "failed to read resource")
}

func TestMcpResourceTools_WithManager(t *testing.T) {
	srv := mcp.NewSDKServer("docs")
	srv.AddResource(mcp.Resource{URI: "docs://readme", Name: "readme", MIMEType: "text/markdown"},
		func(context.Context) (string, error) { return "# Readme", nil })

	mgr := mcp.NewManagerWithTransports(map[string]mcp.Transport{"docs": srv.Transport()})
	require.NoError(t, mgr.ConnectAll(context.Background(), true))
	t.Cleanup(func() { _ = mgr.Close() })

	list, err := NewListMcpResourcesTool(mgr).Execute(context.Background(), ListMcpResourcesInput{})
	require.NoError(t, err)
	assert.Contains(t, list.Text(), "[docs] readme (docs://readme) [text/markdown]")

	read, err := NewReadMcpResourceTool(mgr).Execute(context.Background(),
		ReadMcpResourceInput{ServerName: "docs", URI: "docs://readme"})
	require.NoError(t, err)
	require.False(t, read.IsError, read.Text())
	assert.Equal(t, "# Readme", read.Text())
}
