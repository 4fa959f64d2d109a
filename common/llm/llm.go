// Package llm is the provider adapter boundary: a uniform completion
// contract over interchangeable chat-completion backends. The engine
// depends only on the Client interface and never branches on which
// backend is configured.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/convopipe/convopipe/internal/chat"
)

// Provider constants for backend selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Failure kinds surfaced by Complete. The engine logs the kind and
// aborts the current turn; none of them are retried here.
var (
	// ErrAuth marks a missing or rejected credential.
	ErrAuth = errors.New("llm: authentication failed")
	// ErrTransport marks a network-level failure reaching the backend.
	ErrTransport = errors.New("llm: transport failure")
	// ErrProtocol marks a backend reply the adapter cannot use.
	ErrProtocol = errors.New("llm: malformed provider response")
)

// Config holds LLM client configuration.
type Config struct {
	Provider string // "openai" or "anthropic"
	APIKey   string // Required: API key for the provider
	BaseURL  string // Optional: custom API endpoint
	Model    string // Model name (e.g. "gpt-4o", "claude-sonnet-4-5")
}

// Client issues one completion request per call and keeps no state
// between calls beyond its configured connection.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Model() string
}

// Request carries the conversation and tool declarations for one turn.
// Tools is empty when tool use is disabled.
type Request struct {
	Messages    []chat.Message
	Tools       []chat.ToolDefinition
	MaxTokens   int
	Temperature *float64
}

// Response is the backend's reply translated back into the uniform
// model. Content and ToolCalls are not both expected to be set; both
// empty means an empty assistant reply.
type Response struct {
	Content          string
	ToolCalls        []chat.ToolCall
	FinishReason     string // "stop", "tool_calls", "length"
	PromptTokens     int
	CompletionTokens int
}

// New creates a Client for the configured provider.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrAuth)
	}

	switch cfg.Provider {
	case ProviderOpenAI, "":
		return newOpenAIClient(cfg)
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// Kind names the failure kind of an error returned by Complete, for
// structured logging.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	default:
		return "unknown"
	}
}

// validateRequest enforces the adapter input contract: the conversation
// must contain at least one non-system message.
func validateRequest(req Request) error {
	for _, msg := range req.Messages {
		if msg.Role != chat.RoleSystem {
			return nil
		}
	}
	return fmt.Errorf("request must contain at least one non-system message")
}
