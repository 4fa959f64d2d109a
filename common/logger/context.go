package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs
// within a context. The engine sets TurnID and Channel at the start of
// a turn; components may set Component once at construction time.
type LogFields struct {
	TurnID    *int64 // conversation turn ID (snowflake)
	Channel   string // input channel that produced the turn ("stdin", "mqtt", ...)
	Component string // component name, e.g. "convopipe.engine"
}

// WithLogFields enriches the context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values
// taking precedence. Timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := mergeFields(GetLogFields(ctx), fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from the context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, incoming LogFields) LogFields {
	result := existing
	if incoming.TurnID != nil {
		result.TurnID = incoming.TurnID
	}
	if incoming.Channel != "" {
		result.Channel = incoming.Channel
	}
	if incoming.Component != "" {
		result.Component = incoming.Component
	}
	return result
}

// Ptr is a helper to create a pointer from a value, for setting
// LogFields inline: logger.WithLogFields(ctx, logger.LogFields{TurnID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if
// truncated. Used when logging message content.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
