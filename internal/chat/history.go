package chat

const (
	// DefaultMaxMessages bounds the history when no limit is configured.
	DefaultMaxMessages = 50

	// minMaxMessages is the smallest usable bound: a pinned system
	// message plus at least one conversation message.
	minMaxMessages = 2
)

// History is the single shared conversation transcript. All input
// channels feed the same history; there is no per-source partitioning.
//
// History is owned by the conversation engine and is only ever touched
// from its goroutine, so it carries no lock.
type History struct {
	max  int
	msgs []Message
}

// NewHistory creates an empty history bounded to max messages.
// Values below the minimum fall back to DefaultMaxMessages.
func NewHistory(max int) *History {
	if max < minMaxMessages {
		max = DefaultMaxMessages
	}
	return &History{max: max}
}

// Seed places a system message at position zero. The seeded message is
// pinned: it is never evicted when the history is trimmed. Seeding an
// empty prompt is a no-op.
func (h *History) Seed(systemPrompt string) {
	if systemPrompt == "" {
		return
	}
	h.msgs = append([]Message{NewMessage(RoleSystem, systemPrompt)}, h.msgs...)
	h.trim()
}

// Append adds a message and evicts the oldest unpinned entries so the
// history never exceeds its bound.
func (h *History) Append(msg Message) {
	h.msgs = append(h.msgs, msg)
	h.trim()
}

// Messages returns a copy of the transcript in append order.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.msgs))
	copy(out, h.msgs)
	return out
}

// Len reports the current number of messages, including a seeded
// system message.
func (h *History) Len() int {
	return len(h.msgs)
}

func (h *History) trim() {
	if len(h.msgs) <= h.max {
		return
	}
	excess := len(h.msgs) - h.max
	if h.msgs[0].Role == RoleSystem {
		// Keep the system message at position 0, drop the oldest after it.
		h.msgs = append(h.msgs[:1], h.msgs[1+excess:]...)
		return
	}
	h.msgs = h.msgs[excess:]
}
