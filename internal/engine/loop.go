// Package engine drives the model conversation. Each assistant turn that
// stops for tool use is handed to a batch executor as one batch, and the
// ordered results go back to the model as tool_result blocks.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/armatrix/agent-tools-go/batch"
)

// Result subtypes reported through ResultInfo.
const (
	SubtypeSuccess  = "success"
	SubtypeMaxTurns = "error_max_turns"
	SubtypeError    = "error_during_execution"
)

// MessageStreamer abstracts the Anthropic Messages API so the loop can be tested
// with a mock. Production code passes the real client.Messages.
type MessageStreamer interface {
	NewStreaming(ctx context.Context, params anthropic.MessageNewParams) *ssestream.Stream[anthropic.MessageStreamEventUnion]
}

type messageServiceAdapter struct {
	svc *anthropic.MessageService
}

func (a *messageServiceAdapter) NewStreaming(ctx context.Context, params anthropic.MessageNewParams) *ssestream.Stream[anthropic.MessageStreamEventUnion] {
	return a.svc.NewStreaming(ctx, params)
}

// NewMessageStreamer wraps a real anthropic.MessageService as a MessageStreamer.
func NewMessageStreamer(svc *anthropic.MessageService) MessageStreamer {
	return &messageServiceAdapter{svc: svc}
}

// ToolExecutor runs every tool call of one turn and advertises the tools
// the model may call.
type ToolExecutor interface {
	ExecuteBatch(ctx context.Context, invs []batch.Invocation) []batch.Result
	ListForAPI() []anthropic.ToolUnionParam
}

// EventSink receives events from the loop. The loop calls these methods instead
// of importing root package event types.
type EventSink interface {
	OnSystem(sessionID string, model anthropic.Model)
	OnStream(delta string)
	OnAssistant(msg anthropic.Message)
	OnToolResults(results []batch.Result)
	OnResult(info ResultInfo)
}

// ResultInfo contains the data for a result event.
type ResultInfo struct {
	Subtype                  string
	SessionID                string
	IsError                  bool
	NumTurns                 int
	DurationMs               int64
	InputTokens              int64
	OutputTokens             int64
	CacheReadInputTokens     int64
	CacheCreationInputTokens int64
	Result                   string
	Errors                   []string
}

// LoopConfig holds everything the loop needs to execute.
type LoopConfig struct {
	Streamer  MessageStreamer
	Tools     ToolExecutor
	Model     anthropic.Model
	MaxTokens int
	MaxTurns  int

	// FallbackModel is used once when the primary model reports it is
	// overloaded or unavailable. Empty disables the retry.
	FallbackModel anthropic.Model

	// Messages is the mutable message history. The loop appends to it.
	Messages *[]anthropic.MessageParam

	SystemPrompt []anthropic.TextBlockParam

	SessionID string
	Sink      EventSink
	Logger    *slog.Logger
}

type usage struct {
	input, output, cacheRead, cacheCreation int64
}

func (u *usage) add(m anthropic.Usage) {
	u.input += m.InputTokens
	u.output += m.OutputTokens
	u.cacheRead += m.CacheReadInputTokens
	u.cacheCreation += m.CacheCreationInputTokens
}

// RunLoop runs the conversation in the calling goroutine until the model
// ends its turn, the turn limit is hit, or an error stops it. Exactly one
// OnResult call is made.
func RunLoop(ctx context.Context, cfg LoopConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	start := time.Now()
	var total usage
	turns := 0

	finish := func(subtype string, text string, errs ...string) {
		cfg.Sink.OnResult(ResultInfo{
			Subtype:                  subtype,
			SessionID:                cfg.SessionID,
			IsError:                  subtype != SubtypeSuccess,
			NumTurns:                 turns,
			DurationMs:               time.Since(start).Milliseconds(),
			InputTokens:              total.input,
			OutputTokens:             total.output,
			CacheReadInputTokens:     total.cacheRead,
			CacheCreationInputTokens: total.cacheCreation,
			Result:                   text,
			Errors:                   errs,
		})
	}

	cfg.Sink.OnSystem(cfg.SessionID, cfg.Model)

	for {
		if err := ctx.Err(); err != nil {
			finish(SubtypeError, "", err.Error())
			return
		}

		params := anthropic.MessageNewParams{
			Model:     cfg.Model,
			MaxTokens: int64(cfg.MaxTokens),
			Messages:  *cfg.Messages,
		}
		if len(cfg.SystemPrompt) > 0 {
			params.System = cfg.SystemPrompt
		}
		if tools := cfg.Tools.ListForAPI(); len(tools) > 0 {
			params.Tools = tools
		}

		msg, err := streamMessage(ctx, cfg, params)
		if err != nil && cfg.FallbackModel != "" && cfg.FallbackModel != cfg.Model && isRetryableError(err) {
			logger.Warn("model unavailable, retrying with fallback", "model", cfg.Model, "fallback", cfg.FallbackModel, "error", err)
			params.Model = cfg.FallbackModel
			msg, err = streamMessage(ctx, cfg, params)
		}
		if err != nil {
			finish(SubtypeError, "", err.Error())
			return
		}

		total.add(msg.Usage)
		turns++
		cfg.Sink.OnAssistant(msg)
		*cfg.Messages = append(*cfg.Messages, msg.ToParam())

		switch msg.StopReason {
		case anthropic.StopReasonToolUse:
			invs := toolCalls(msg.Content)
			logger.Debug("executing tool batch", "session", cfg.SessionID, "turn", turns, "calls", len(invs))
			results := cfg.Tools.ExecuteBatch(ctx, invs)
			cfg.Sink.OnToolResults(results)
			*cfg.Messages = append(*cfg.Messages, anthropic.NewUserMessage(toolResultBlocks(invs, results)...))

		case anthropic.StopReasonMaxTokens:
			finish(SubtypeMaxTurns, lastText(msg), "max_tokens reached")
			return

		default:
			finish(SubtypeSuccess, lastText(msg))
			return
		}

		if cfg.MaxTurns > 0 && turns >= cfg.MaxTurns {
			finish(SubtypeMaxTurns, "", "max turns reached")
			return
		}
	}
}

// streamMessage performs one streaming call and accumulates the message.
func streamMessage(ctx context.Context, cfg LoopConfig, params anthropic.MessageNewParams) (anthropic.Message, error) {
	stream := cfg.Streamer.NewStreaming(ctx, params)
	defer stream.Close()

	msg := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return msg, fmt.Errorf("accumulate error: %w", err)
		}
		if event.Type == "content_block_delta" && event.Delta.Type == "text_delta" && event.Delta.Text != "" {
			cfg.Sink.OnStream(event.Delta.Text)
		}
	}
	if err := stream.Err(); err != nil {
		return msg, fmt.Errorf("stream error: %w", err)
	}
	return msg, nil
}

// toolCalls turns the tool_use blocks of a message into one batch, in
// block order.
func toolCalls(content []anthropic.ContentBlockUnion) []batch.Invocation {
	var invs []batch.Invocation
	for _, block := range content {
		if block.Type != "tool_use" {
			continue
		}
		tu := block.AsToolUse()
		invs = append(invs, batch.Invocation{ID: tu.ID, Name: tu.Name, Input: tu.Input})
	}
	return invs
}

// toolResultBlocks pairs every invocation with its result. A missing
// result still produces a block so the model sees an answer for each call.
func toolResultBlocks(invs []batch.Invocation, results []batch.Result) []anthropic.ContentBlockParamUnion {
	blocks := make([]anthropic.ContentBlockParamUnion, len(invs))
	for i, inv := range invs {
		if i >= len(results) {
			blocks[i] = anthropic.NewToolResultBlock(inv.ID, "error: no result", true)
			continue
		}
		r := results[i]
		blocks[i] = anthropic.NewToolResultBlock(inv.ID, r.Output, r.IsError)
	}
	return blocks
}

func lastText(msg anthropic.Message) string {
	for i := len(msg.Content) - 1; i >= 0; i-- {
		if msg.Content[i].Type == "text" {
			return msg.Content[i].Text
		}
	}
	return ""
}

// isRetryableError reports whether err indicates the model is overloaded
// or unavailable.
func isRetryableError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "model_unavailable") ||
		strings.Contains(msg, "529") ||
		strings.Contains(msg, "503")
}
