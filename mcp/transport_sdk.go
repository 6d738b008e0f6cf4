package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Client identity announced during the MCP handshake.
const (
	ClientName    = "agent-tools-go"
	ClientVersion = "v0.1.0"
)

// Dialer builds a fresh go-sdk transport for each connect. Command
// transports cannot be reused once their process has exited, so the
// SDKTransport asks for a new one every time.
type Dialer func(ctx context.Context) (sdk.Transport, error)

// SDKTransport implements Transport on top of the official MCP Go SDK
// client. It is safe for concurrent use.
type SDKTransport struct {
	name   string
	dial   Dialer
	client *sdk.Client

	mu      sync.RWMutex
	session *sdk.ClientSession
}

var (
	_ Transport          = (*SDKTransport)(nil)
	_ CapabilityReporter = (*SDKTransport)(nil)
)

// NewSDKTransport returns a transport that dials with d. Name is used in
// error messages only.
func NewSDKTransport(name string, d Dialer) *SDKTransport {
	return &SDKTransport{
		name: name,
		dial: d,
		client: sdk.NewClient(&sdk.Implementation{
			Name:    ClientName,
			Version: ClientVersion,
		}, nil),
	}
}

// Connect dials and runs the initialize handshake. Any previous session is
// closed first.
func (t *SDKTransport) Connect(ctx context.Context) error {
	st, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.name, err)
	}
	session, err := t.client.Connect(ctx, st, nil)
	if err != nil {
		return fmt.Errorf("initialize %s: %w", t.name, err)
	}

	t.mu.Lock()
	prev := t.session
	t.session = session
	t.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

func (t *SDKTransport) current() (*sdk.ClientSession, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.session == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, t.name)
	}
	return t.session, nil
}

// Capabilities returns the listings the server announced in its initialize
// result.
func (t *SDKTransport) Capabilities() (Capabilities, bool) {
	t.mu.RLock()
	s := t.session
	t.mu.RUnlock()
	if s == nil {
		return Capabilities{}, false
	}
	res := s.InitializeResult()
	if res == nil || res.Capabilities == nil {
		return Capabilities{}, false
	}
	return Capabilities{
		Tools:     res.Capabilities.Tools != nil,
		Resources: res.Capabilities.Resources != nil,
	}, true
}

// Ping sends a protocol-level ping.
func (t *SDKTransport) Ping(ctx context.Context) error {
	s, err := t.current()
	if err != nil {
		return err
	}
	return s.Ping(ctx, &sdk.PingParams{})
}

// ListTools pages through tools/list.
func (t *SDKTransport) ListTools(ctx context.Context) ([]ToolInfo, error) {
	s, err := t.current()
	if err != nil {
		return nil, err
	}

	var out []ToolInfo
	params := &sdk.ListToolsParams{}
	for {
		res, err := s.ListTools(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, tool := range res.Tools {
			info := ToolInfo{Name: tool.Name, Description: tool.Description}
			if tool.Annotations != nil {
				info.ReadOnly = tool.Annotations.ReadOnlyHint
			}
			if tool.InputSchema != nil {
				raw, err := json.Marshal(tool.InputSchema)
				if err != nil {
					return nil, fmt.Errorf("tool %s: encode input schema: %w", tool.Name, err)
				}
				info.InputSchema = raw
			}
			out = append(out, info)
		}
		if res.NextCursor == "" {
			return out, nil
		}
		params = &sdk.ListToolsParams{Cursor: res.NextCursor}
	}
}

// CallTool runs tools/call and flattens the result content to text.
func (t *SDKTransport) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	s, err := t.current()
	if err != nil {
		return "", err
	}
	if args == nil {
		args = map[string]any{}
	}
	res, err := s.CallTool(ctx, &sdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", err
	}
	text := contentText(res.Content)
	if res.IsError {
		return text, fmt.Errorf("%w: %s", ErrToolFailed, text)
	}
	return text, nil
}

// ListResources pages through resources/list.
func (t *SDKTransport) ListResources(ctx context.Context) ([]Resource, error) {
	s, err := t.current()
	if err != nil {
		return nil, err
	}

	var out []Resource
	params := &sdk.ListResourcesParams{}
	for {
		res, err := s.ListResources(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, r := range res.Resources {
			out = append(out, Resource{
				URI:         r.URI,
				Name:        r.Name,
				Description: r.Description,
				MIMEType:    r.MIMEType,
			})
		}
		if res.NextCursor == "" {
			return out, nil
		}
		params = &sdk.ListResourcesParams{Cursor: res.NextCursor}
	}
}

// ReadResource runs resources/read. Binary contents are returned base64
// encoded.
func (t *SDKTransport) ReadResource(ctx context.Context, uri string) (string, error) {
	s, err := t.current()
	if err != nil {
		return "", err
	}
	res, err := s.ReadResource(ctx, &sdk.ReadResourceParams{URI: uri})
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(res.Contents))
	for _, c := range res.Contents {
		switch {
		case c.Text != "":
			parts = append(parts, c.Text)
		case len(c.Blob) > 0:
			parts = append(parts, base64.StdEncoding.EncodeToString(c.Blob))
		}
	}
	return strings.Join(parts, "\n"), nil
}

// Close ends the session. Closing a transport that is not connected is a
// no-op.
func (t *SDKTransport) Close() error {
	t.mu.Lock()
	s := t.session
	t.session = nil
	t.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Close()
}

// contentText renders tool result content blocks as plain text. Non-text
// blocks are summarized.
func contentText(content []sdk.Content) string {
	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case *sdk.TextContent:
			parts = append(parts, v.Text)
		case *sdk.ImageContent:
			parts = append(parts, fmt.Sprintf("[image %s, %d bytes]", v.MIMEType, len(v.Data)))
		case *sdk.EmbeddedResource:
			if v.Resource != nil && v.Resource.Text != "" {
				parts = append(parts, v.Resource.Text)
			} else if v.Resource != nil {
				parts = append(parts, fmt.Sprintf("[resource %s]", v.Resource.URI))
			}
		default:
			raw, err := json.Marshal(c)
			if err == nil {
				parts = append(parts, string(raw))
			}
		}
	}
	return strings.Join(parts, "\n")
}
