package agent

import "github.com/armatrix/agent-tools-go/batch"

const (
	// DefaultModel is the default Claude model used when no model is specified.
	DefaultModel = "claude-sonnet-4-5"

	// DefaultMaxOutputTokens is the default maximum output tokens per response.
	DefaultMaxOutputTokens = 16_384

	// DefaultMaxTurns is the default max turns (0 = unlimited).
	DefaultMaxTurns = 0

	// DefaultStreamBufferSize is the default channel buffer size for streaming events.
	DefaultStreamBufferSize = 64

	// DefaultMaxConcurrency caps concurrent tool invocations within a wave.
	DefaultMaxConcurrency = batch.DefaultMaxConcurrency
)
