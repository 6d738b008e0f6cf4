// Command agentctl drives the agent tool-execution core from the shell: it
// runs prompts against Claude, inspects MCP servers and their tools, and
// executes tool batches read from a file.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
