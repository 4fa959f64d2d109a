// Package engine drives the conversation: it consumes inbound
// envelopes one at a time, owns the bounded history, runs the
// completion/tool-call cycle against the provider, and hands the final
// assistant message to the output dispatcher.
package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/convopipe/convopipe/common/id"
	"github.com/convopipe/convopipe/common/llm"
	"github.com/convopipe/convopipe/common/logger"
	"github.com/convopipe/convopipe/internal/channel"
	"github.com/convopipe/convopipe/internal/chat"
	"github.com/convopipe/convopipe/internal/tool"
)

// DefaultMaxToolRounds bounds the completion/tool-resolution loop so a
// provider that keeps requesting tools cannot spin a turn forever.
const DefaultMaxToolRounds = 8

// Publisher is the engine's view of the output dispatcher: a
// fire-and-forget fan-out with no delivery guarantee.
type Publisher interface {
	Publish(ctx context.Context, msg chat.Message)
}

type Config struct {
	Client llm.Client
	Out    Publisher

	// Tools may be nil; the engine then requests completions without
	// tool declarations and answers any stray tool call with an
	// unknown-tool result.
	Tools *tool.Registry

	History       *chat.History
	MaxToolRounds int
	MaxTokens     int
}

// Engine is the single consumer of the merged input stream. It
// processes one envelope end to end, through any number of tool
// rounds, before accepting the next; the history is therefore only
// ever touched from the engine's goroutine.
type Engine struct {
	client    llm.Client
	out       Publisher
	tools     *tool.Registry
	history   *chat.History
	maxRounds int
	maxTokens int
}

func New(cfg Config) *Engine {
	maxRounds := cfg.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxToolRounds
	}
	history := cfg.History
	if history == nil {
		history = chat.NewHistory(chat.DefaultMaxMessages)
	}
	return &Engine{
		client:    cfg.Client,
		out:       cfg.Out,
		tools:     cfg.Tools,
		history:   history,
		maxRounds: maxRounds,
		maxTokens: cfg.MaxTokens,
	}
}

// Run consumes envelopes until the stream closes, the context is
// cancelled, or a user sends the exit command. It returns nil on a
// clean stop; the caller owns process shutdown.
func (e *Engine) Run(ctx context.Context, in <-chan channel.Envelope) error {
	slog.InfoContext(ctx, "engine started", "model", e.client.Model())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-in:
			if !ok {
				slog.InfoContext(ctx, "all input sources closed, stopping")
				return nil
			}
			if isExitCommand(env.Message) {
				slog.InfoContext(ctx, "exit command received", "source", env.Source)
				e.out.Publish(ctx, chat.NewMessage(chat.RoleSystem, "Goodbye!"))
				return nil
			}
			e.processTurn(ctx, env)
		}
	}
}

// processTurn runs one full turn: append the inbound message, then loop
// on the provider until it produces a text answer, resolving tool calls
// between rounds. A provider failure aborts the turn; the user message
// stays in history so the next turn still has it in context.
func (e *Engine) processTurn(ctx context.Context, env channel.Envelope) {
	turnID := id.New()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TurnID:  logger.Ptr(turnID),
		Channel: env.Source,
	})

	e.history.Append(env.Message)
	slog.InfoContext(ctx, "turn started",
		"role", env.Message.Role,
		"content", logger.Truncate(env.Message.Content, 200))

	rounds := 0
	for {
		resp, err := e.client.Complete(ctx, llm.Request{
			Messages:  e.history.Messages(),
			Tools:     e.definitions(),
			MaxTokens: e.maxTokens,
		})
		if err != nil {
			slog.ErrorContext(ctx, "completion failed", "kind", llm.Kind(err), "error", err)
			return
		}

		if len(resp.ToolCalls) == 0 {
			e.respond(ctx, resp.Content)
			return
		}

		if rounds >= e.maxRounds {
			slog.WarnContext(ctx, "tool resolution limit reached", "rounds", rounds)
			content := resp.Content
			if content == "" {
				content = "I could not finish resolving tool calls for this request."
			}
			e.respond(ctx, content)
			return
		}
		rounds++

		assistant := chat.NewMessage(chat.RoleAssistant, resp.Content)
		assistant.ToolCalls = resp.ToolCalls
		e.history.Append(assistant)

		for _, call := range resp.ToolCalls {
			slog.InfoContext(ctx, "resolving tool call",
				"tool", call.Name,
				"arguments", logger.Truncate(call.Arguments, 200))

			result := e.execute(ctx, call)
			msg := chat.NewMessage(chat.RoleTool, result.Content)
			msg.ToolCallID = result.CallID
			e.history.Append(msg)
		}
	}
}

func (e *Engine) respond(ctx context.Context, content string) {
	msg := chat.NewMessage(chat.RoleAssistant, content)
	e.history.Append(msg)
	e.out.Publish(ctx, msg)
	slog.InfoContext(ctx, "turn finished", "content", logger.Truncate(content, 200))
}

func (e *Engine) execute(ctx context.Context, call chat.ToolCall) chat.ToolResult {
	if e.tools == nil {
		return chat.ToolResult{CallID: call.ID, Content: "unknown tool: " + call.Name}
	}
	return e.tools.Execute(ctx, call)
}

func (e *Engine) definitions() []chat.ToolDefinition {
	if e.tools == nil {
		return nil
	}
	return e.tools.Definitions()
}

func isExitCommand(msg chat.Message) bool {
	return msg.Role == chat.RoleUser && strings.EqualFold(strings.TrimSpace(msg.Content), "exit")
}
