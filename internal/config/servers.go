package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/armatrix/agent-tools-go/mcp"
)

// ServersFile is the on-disk shape of an MCP server definition file. JSON
// files parse as well, since JSON is valid YAML.
type ServersFile struct {
	MCPServers map[string]ServerEntry `yaml:"mcpServers"`
}

// ServerEntry is one server definition as written in a file.
type ServerEntry struct {
	// Type selects the transport; Transport is accepted as an alias, and
	// "http" means streamable HTTP.
	Type      string `yaml:"type"`
	Transport string `yaml:"transport"`

	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`

	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`

	Disabled      bool     `yaml:"disabled"`
	Timeout       Duration `yaml:"timeout"`
	ToolTimeout   Duration `yaml:"toolTimeout"`
	RetryAttempts int      `yaml:"retryAttempts"`
	RetryDelay    Duration `yaml:"retryDelay"`
}

// Duration accepts either a Go duration string ("30s") or a bare integer
// number of milliseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.Tag == "!!int" {
		ms, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	v, err := time.ParseDuration(ExpandEnv(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// LoadServers reads MCP server definitions from paths. Later files replace
// earlier definitions of the same server. Missing files are skipped;
// unreadable or malformed files are errors.
func LoadServers(paths ...string) (map[string]mcp.ServerConfig, error) {
	out := make(map[string]mcp.ServerConfig)
	for _, path := range paths {
		f, err := loadServersFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for name, e := range f.MCPServers {
			out[name] = e.ServerConfig(name)
		}
	}
	return out, nil
}

func loadServersFile(path string) (*ServersFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f ServersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// ServerConfig converts e into an mcp.ServerConfig with ${VAR}
// references expanded.
func (e ServerEntry) ServerConfig(name string) mcp.ServerConfig {
	transport := e.Type
	if transport == "" {
		transport = e.Transport
	}
	if transport == "http" {
		transport = string(mcp.TransportStreamableHTTP)
	}
	cfg := mcp.ServerConfig{
		Name:          name,
		Transport:     mcp.TransportType(transport),
		Command:       ExpandEnv(e.Command),
		URL:           ExpandEnv(e.URL),
		Disabled:      e.Disabled,
		Timeout:       time.Duration(e.Timeout),
		ToolTimeout:   time.Duration(e.ToolTimeout),
		RetryAttempts: e.RetryAttempts,
		RetryDelay:    time.Duration(e.RetryDelay),
	}
	for _, a := range e.Args {
		cfg.Args = append(cfg.Args, ExpandEnv(a))
	}
	cfg.Env = expandMap(e.Env)
	cfg.Headers = expandMap(e.Headers)
	return cfg
}

func expandMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = ExpandEnv(v)
	}
	return out
}

// DefaultServerPaths returns the standard MCP server file search paths,
// user level first.
func DefaultServerPaths(projectDir string) []string {
	home, _ := os.UserHomeDir()
	var paths []string
	if home != "" {
		paths = append(paths, filepath.Join(home, ".agentctl", "mcp.yaml"))
	}
	if projectDir != "" {
		paths = append(paths,
			filepath.Join(projectDir, ".mcp.json"),
			filepath.Join(projectDir, ".agentctl", "mcp.yaml"),
		)
	}
	return paths
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} references. A reference to
// an unset variable without a default is left as written.
func ExpandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name := groups[1]
		def, hasDefault := groups[2], groups[2] != ""
		if val, ok := os.LookupEnv(name); ok && val != "" {
			return val
		}
		if hasDefault {
			return def
		}
		return match
	})
}
