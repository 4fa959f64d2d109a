package channel_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/convopipe/convopipe/internal/channel"
	"github.com/convopipe/convopipe/internal/chat"
)

var _ = Describe("ConsoleSink", func() {
	It("writes a labelled line per message", func() {
		var buf strings.Builder
		sink := channel.NewConsoleSink(&buf)

		Expect(sink.Deliver(context.Background(), chat.NewMessage(chat.RoleAssistant, "hello"))).To(Succeed())
		Expect(buf.String()).To(Equal("\nAssistant: hello\n"))
	})

	It("labels every role", func() {
		var buf strings.Builder
		sink := channel.NewConsoleSink(&buf)

		Expect(sink.Deliver(context.Background(), chat.NewMessage(chat.RoleSystem, "Goodbye!"))).To(Succeed())
		Expect(sink.Deliver(context.Background(), chat.NewMessage(chat.RoleUser, "hi"))).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("System: Goodbye!"))
		Expect(buf.String()).To(ContainSubstring("User: hi"))
	})
})
