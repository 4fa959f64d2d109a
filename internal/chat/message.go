// Package chat holds the message model shared by every component of the
// agent: the channel adapters produce chat messages, the conversation
// engine accumulates them in a bounded history, and the LLM clients
// translate them into each backend's wire format.
package chat

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the four conversation roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// Message is a single conversation entry. Content may be empty only on
// assistant messages that carry tool calls instead of text.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Timestamp  int64      `json:"timestamp"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// NewMessage builds a message stamped with the current time.
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().Unix(),
	}
}

// ToolCall is a request from the model to execute a named tool.
// Arguments is the JSON-encoded argument object as the model produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition declares a tool to the model. Parameters is a JSON
// Schema describing the argument object; the LLM clients serialize it
// into their backend's own tool format.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  any
}

// ToolResult is the outcome of executing a tool call. It is appended to
// the history as a RoleTool message before the next completion request.
type ToolResult struct {
	CallID  string
	Content string
}
