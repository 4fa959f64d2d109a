package channel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

const (
	muxBuffer    = 16
	readErrDelay = 250 * time.Millisecond
)

// Mux merges every configured input source into one stream of
// envelopes. Each source gets its own reader goroutine so a source
// blocked on its transport never delays the others; ordering across
// sources is first-come-first-served at the shared channel.
type Mux struct {
	sources []Source
}

func NewMux(sources ...Source) *Mux {
	return &Mux{sources: sources}
}

// Run starts one reader per source and returns the merged stream. The
// returned channel is closed once every source has terminated or ctx is
// cancelled.
func (m *Mux) Run(ctx context.Context) <-chan Envelope {
	out := make(chan Envelope, muxBuffer)

	done := make(chan struct{}, len(m.sources))
	for _, src := range m.sources {
		go func(src Source) {
			defer func() { done <- struct{}{} }()
			m.read(ctx, src, out)
		}(src)
	}

	go func() {
		for range m.sources {
			<-done
		}
		close(out)
	}()

	return out
}

func (m *Mux) read(ctx context.Context, src Source, out chan<- Envelope) {
	for {
		raw, err := src.Receive(ctx)
		switch {
		case errors.Is(err, io.EOF):
			slog.InfoContext(ctx, "input source exhausted", "source", src.Name())
			return
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return
		case err != nil:
			slog.ErrorContext(ctx, "input source read failed", "source", src.Name(), "error", err)
			select {
			case <-time.After(readErrDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		env := Envelope{Source: src.Name(), Message: ParseInbound(raw)}
		select {
		case out <- env:
		case <-ctx.Done():
			return
		}
	}
}
