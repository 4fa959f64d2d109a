package channel_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/convopipe/convopipe/internal/channel"
	"github.com/convopipe/convopipe/internal/chat"
)

var _ = Describe("Dispatcher", func() {
	It("delivers to every sink", func() {
		first := &stubSink{name: "first"}
		second := &stubSink{name: "second"}
		d := channel.NewDispatcher(first, second)

		d.Publish(context.Background(), chat.NewMessage(chat.RoleAssistant, "hello"))
		d.Wait()

		Expect(first.delivered()).To(HaveLen(1))
		Expect(second.delivered()).To(HaveLen(1))
		Expect(first.delivered()[0].Content).To(Equal("hello"))
	})

	It("keeps delivering to healthy sinks when one fails", func() {
		broken := &stubSink{name: "broken", fail: errors.New("connection refused")}
		healthy := &stubSink{name: "healthy"}
		d := channel.NewDispatcher(broken, healthy)

		d.Publish(context.Background(), chat.NewMessage(chat.RoleAssistant, "still here"))
		d.Wait()

		Expect(healthy.delivered()).To(HaveLen(1))
	})

	It("survives cancellation of the caller's context", func() {
		sink := &stubSink{name: "sink"}
		d := channel.NewDispatcher(sink)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d.Publish(ctx, chat.NewMessage(chat.RoleAssistant, "late"))
		d.Wait()

		Expect(sink.delivered()).To(HaveLen(1))
	})

	It("tolerates having no sinks", func() {
		d := channel.NewDispatcher()
		d.Publish(context.Background(), chat.NewMessage(chat.RoleAssistant, "void"))
		d.Wait()
	})
})
