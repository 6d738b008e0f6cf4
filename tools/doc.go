// Package tools provides the built-in local tools an agent can call.
//
// Every tool declares how it touches the paths in its arguments, so the
// batch scheduler can run independent calls side by side:
//
//	Read, Glob, Grep, ListMcpResources, ReadMcpResource  read
//	Write, Edit, NotebookEdit                              write
//	Bash, ToolSearch                                       none
//
// Use [RegisterAll] for the file and shell tools, or [RegisterAgentTools] to
// also add the tools that need the agent's MCP manager and catalog:
//
//	tools.RegisterAgentTools(a)
//
// Relative paths resolve against agent.ContextWorkDir, and an
// agent.SandboxConfig in the context limits the directories and commands
// the tools may use.
package tools
