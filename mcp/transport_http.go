package mcp

import (
	"context"
	"fmt"
	"maps"
	"net/http"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewHTTPTransport creates a transport for HTTP-based MCP servers: the
// streamable HTTP protocol, or the older SSE protocol when cfg.Transport is
// TransportSSE. Returns ErrInvalidConfig if URL is empty.
func NewHTTPTransport(cfg ServerConfig) (*SDKTransport, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: HTTP transport requires URL", ErrInvalidConfig)
	}
	endpoint, kind := cfg.URL, cfg.Kind()
	client := newHTTPClient(cfg.Headers)

	return NewSDKTransport(cfg.Name, func(context.Context) (sdk.Transport, error) {
		if kind == TransportSSE {
			return &sdk.SSEClientTransport{Endpoint: endpoint, HTTPClient: client}, nil
		}
		return &sdk.StreamableClientTransport{Endpoint: endpoint, HTTPClient: client}, nil
	}), nil
}

func newHTTPClient(headers map[string]string) *http.Client {
	if len(headers) == 0 {
		return http.DefaultClient
	}
	return &http.Client{Transport: &headerRoundTripper{
		base:    http.DefaultTransport,
		headers: maps.Clone(headers),
	}}
}

// headerRoundTripper adds static headers to every request without
// overriding headers the SDK set itself.
type headerRoundTripper struct {
	base    http.RoundTripper
	headers map[string]string
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range h.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return h.base.RoundTrip(req)
}
