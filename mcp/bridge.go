package mcp

import (
	"fmt"
	"strings"
)

// Tool naming convention: mcp__{server}__{tool}. The name is what the model
// sees and must echo verbatim to reach an external tool.
const (
	ToolPrefix    = "mcp__"
	ToolSeparator = "__"
)

// QualifiedName returns the namespaced tool name for an MCP tool.
func QualifiedName(serverName, toolName string) string {
	return ToolPrefix + serverName + ToolSeparator + toolName
}

// IsQualifiedName reports whether name carries the MCP tool prefix.
func IsQualifiedName(name string) bool {
	return strings.HasPrefix(name, ToolPrefix)
}

// ParseQualifiedName splits a namespaced tool name into server and tool. The
// split happens at the first separator after the prefix, so tool names may
// contain the separator but server names must not: a server named "a__b"
// exposing tool "c" parses back as server "a", tool "b__c".
func ParseQualifiedName(fullName string) (server, tool string, err error) {
	rest, ok := strings.CutPrefix(fullName, ToolPrefix)
	if !ok {
		return "", "", fmt.Errorf("%w: %q is not an MCP tool name", ErrToolNotFound, fullName)
	}
	server, tool, ok = strings.Cut(rest, ToolSeparator)
	if !ok || server == "" || tool == "" {
		return "", "", fmt.Errorf("%w: malformed MCP tool name %q", ErrToolNotFound, fullName)
	}
	return server, tool, nil
}

// AmbiguousServerName reports whether a server name would not survive a
// QualifiedName/ParseQualifiedName round trip.
func AmbiguousServerName(name string) bool {
	return name == "" ||
		strings.Contains(name, ToolSeparator) ||
		strings.HasSuffix(name, ToolSeparator[:1])
}
