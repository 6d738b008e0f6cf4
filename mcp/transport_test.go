package mcp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransport(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
	}{
		{"stdio", ServerConfig{Name: "a", Command: "echo", Args: []string{"hello"}, Transport: TransportStdio}},
		{"sse", ServerConfig{Name: "b", URL: "http://localhost:8080", Transport: TransportSSE}},
		{"streamable", ServerConfig{Name: "c", URL: "http://localhost:9090", Transport: TransportStreamableHTTP}},
		{"inferred stdio", ServerConfig{Name: "d", Command: "cat"}},
		{"inferred http", ServerConfig{Name: "e", URL: "http://example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := NewTransport(tt.cfg)
			require.NoError(t, err)
			_, ok := tr.(*SDKTransport)
			assert.True(t, ok, "expected SDKTransport")
		})
	}
}

func TestNewTransport_InvalidConfig(t *testing.T) {
	tests := map[string]ServerConfig{
		"empty":             {},
		"no name":           {Command: "echo"},
		"no command or url": {Name: "x"},
		"stdio without cmd": {Name: "x", Transport: TransportStdio, URL: "http://x"},
		"sse without url":   {Name: "x", Transport: TransportSSE, Command: "echo"},
		"unknown transport": {Name: "x", Transport: "carrier-pigeon", Command: "echo"},
		"negative retry":    {Name: "x", Command: "echo", RetryAttempts: -1},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewTransport(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestStdioTransport_MissingCommand(t *testing.T) {
	_, err := NewStdioTransport(ServerConfig{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestHTTPTransport_MissingURL(t *testing.T) {
	_, err := NewHTTPTransport(ServerConfig{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMergeEnv(t *testing.T) {
	base := []string{"PATH=/bin", "HOME=/root"}

	assert.Equal(t, base, mergeEnv(base, nil))

	got := mergeEnv(base, map[string]string{"TOKEN": "t", "HOME": "/home/x"})
	assert.Equal(t, []string{"PATH=/bin", "HOME=/root", "HOME=/home/x", "TOKEN=t"}, got)
	assert.Len(t, base, 2, "base must not be modified")
}

func TestHeaderRoundTripper(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := newHTTPClient(map[string]string{
		"Authorization": "Bearer static",
		"X-Team":        "tools",
	})

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("X-Team", "caller")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer static", got.Get("Authorization"))
	assert.Equal(t, "caller", got.Get("X-Team"), "request headers win over static ones")
	assert.Empty(t, req.Header.Get("Authorization"), "original request must not be mutated")
}

func TestNewHTTPClient_NoHeaders(t *testing.T) {
	assert.Same(t, http.DefaultClient, newHTTPClient(nil))
}

func TestServerConfig_Defaults(t *testing.T) {
	cfg := ServerConfig{Name: "x", Command: "echo", Env: map[string]string{"A": "1"}}
	d := cfg.withDefaults()

	assert.Equal(t, TransportStdio, d.Transport)
	assert.Equal(t, DefaultConnectTimeout, d.Timeout)
	assert.Equal(t, DefaultToolTimeout, d.ToolTimeout)
	assert.Equal(t, DefaultRetryAttempts, d.RetryAttempts)
	assert.Equal(t, DefaultRetryDelay, d.RetryDelay)

	d.Env["A"] = "2"
	assert.Equal(t, "1", cfg.Env["A"], "defaults must deep-copy maps")
}

func TestServerConfig_Enabled(t *testing.T) {
	assert.True(t, ServerConfig{}.Enabled())
	assert.False(t, ServerConfig{Disabled: true}.Enabled())
}
