package channel

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/convopipe/convopipe/internal/chat"
)

const deliverTimeout = 10 * time.Second

// Dispatcher fans an outbound message out to every configured sink.
// Each delivery runs in its own goroutine with its own timeout, so a
// slow or failing sink cannot block or fail the others. Publish makes
// no delivery guarantee to the caller.
type Dispatcher struct {
	sinks []Sink
	wg    sync.WaitGroup
}

func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks}
}

// Publish sends msg to all sinks and returns immediately. Delivery
// contexts are detached from ctx's cancellation so an in-flight send
// survives engine shutdown, while log enrichment fields carry over.
func (d *Dispatcher) Publish(ctx context.Context, msg chat.Message) {
	for _, sink := range d.sinks {
		d.wg.Add(1)
		go func(sink Sink) {
			defer d.wg.Done()

			dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliverTimeout)
			defer cancel()

			if err := sink.Deliver(dctx, msg); err != nil {
				slog.ErrorContext(dctx, "output delivery failed", "sink", sink.Name(), "error", err)
			}
		}(sink)
	}
}

// Wait blocks until all in-flight deliveries have finished. Called
// during shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
