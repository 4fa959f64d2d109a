// Package channel contains the input and output adapters and the two
// pieces of plumbing between them and the engine: the Mux, which merges
// every input source into one ordered stream of envelopes, and the
// Dispatcher, which fans assistant messages out to every sink without
// letting a slow sink hold up the rest.
package channel

import (
	"context"

	"github.com/convopipe/convopipe/internal/chat"
)

// Source produces raw inbound payloads from one channel. Receive blocks
// until a payload arrives, returns io.EOF when the source is exhausted,
// and returns ctx.Err() when the context is cancelled. Sources never
// parse: the Mux owns the payload parsing policy.
type Source interface {
	Name() string
	Receive(ctx context.Context) (string, error)
}

// Sink delivers an outbound message to one channel. Delivery failures
// are advisory; the Dispatcher logs them and moves on. Sinks other than
// the console deliver only assistant messages and silently skip the
// rest.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, msg chat.Message) error
}

// Envelope pairs an inbound message with the name of the source that
// produced it. The provenance is used for logging only and is dropped
// before the message reaches the conversation history.
type Envelope struct {
	Source  string
	Message chat.Message
}
