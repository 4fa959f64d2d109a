// Package tool declares the capabilities the model may call and
// executes requested tool calls against their schemas. Tool failures
// are never fatal: every failure mode becomes a ToolResult the model
// can read, so the conversation always continues.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/convopipe/convopipe/internal/chat"
)

// Handler executes a tool with decoded arguments and returns the text
// handed back to the model. Handlers must be safe to call repeatedly
// with the same arguments.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool pairs a declaration with its handler. Parameters holds the JSON
// Schema for the argument object (see SchemaFor).
type Tool struct {
	Name        string
	Description string
	Parameters  any
	Handler     Handler
}

// Registry keeps the mapping between tool names and implementations.
// It is populated at startup and read-only afterwards; lookups are safe
// for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register inserts a tool when its name is not in use.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s has no handler", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %s already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// Definitions returns the declarations sent to the provider, in
// registration order.
func (r *Registry) Definitions() []chat.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]chat.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, chat.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return defs
}

// Execute resolves a tool call. Unknown tools, malformed arguments,
// schema violations, and handler failures all come back as a
// ToolResult describing the problem.
func (r *Registry) Execute(ctx context.Context, call chat.ToolCall) chat.ToolResult {
	r.mu.RLock()
	t, ok := r.tools[call.Name]
	r.mu.RUnlock()

	if !ok {
		slog.WarnContext(ctx, "unknown tool requested", "tool", call.Name)
		return chat.ToolResult{CallID: call.ID, Content: fmt.Sprintf("unknown tool: %s", call.Name)}
	}

	args := map[string]any{}
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return chat.ToolResult{
				CallID:  call.ID,
				Content: fmt.Sprintf("invalid arguments for %s: %v", call.Name, err),
			}
		}
	}

	if err := validateArgs(args, t.Parameters); err != nil {
		return chat.ToolResult{
			CallID:  call.ID,
			Content: fmt.Sprintf("invalid arguments for %s: %v", call.Name, err),
		}
	}

	out, err := t.Handler(ctx, args)
	if err != nil {
		slog.WarnContext(ctx, "tool execution failed", "tool", call.Name, "error", err)
		return chat.ToolResult{
			CallID:  call.ID,
			Content: fmt.Sprintf("tool %s failed: %v", call.Name, err),
		}
	}

	return chat.ToolResult{CallID: call.ID, Content: out}
}
