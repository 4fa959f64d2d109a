package channel

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/convopipe/convopipe/internal/chat"
)

// inboundPayload is the structured form accepted on any channel.
// Content is a pointer so that a JSON object without a content field is
// distinguishable from an empty string and falls back to plain text.
type inboundPayload struct {
	Role      string  `json:"role"`
	Content   *string `json:"content"`
	Timestamp int64   `json:"timestamp"`
}

// ParseInbound turns a raw payload into a message. A JSON object with a
// valid role and a content field is taken as-is; anything else degrades
// to a plain-text user message stamped with the current time. Parsing
// never fails.
func ParseInbound(raw string) chat.Message {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var p inboundPayload
		if err := json.Unmarshal([]byte(trimmed), &p); err == nil && chat.Role(p.Role).Valid() && p.Content != nil {
			ts := p.Timestamp
			if ts == 0 {
				ts = time.Now().Unix()
			}
			return chat.Message{
				Role:      chat.Role(p.Role),
				Content:   *p.Content,
				Timestamp: ts,
			}
		}
	}
	return chat.NewMessage(chat.RoleUser, raw)
}
