package engine_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/convopipe/convopipe/common/llm"
	"github.com/convopipe/convopipe/internal/channel"
	"github.com/convopipe/convopipe/internal/chat"
	"github.com/convopipe/convopipe/internal/engine"
	"github.com/convopipe/convopipe/internal/tool"
)

// runOne feeds a single envelope through the engine and waits for the
// stream to drain.
func runOne(eng *engine.Engine, msg chat.Message) error {
	in := make(chan channel.Envelope, 1)
	in <- channel.Envelope{Source: "stdin", Message: msg}
	close(in)
	return eng.Run(context.Background(), in)
}

var _ = Describe("Engine", func() {
	var (
		client  *scriptedClient
		out     *recordingPublisher
		history *chat.History
	)

	BeforeEach(func() {
		client = &scriptedClient{}
		out = &recordingPublisher{}
		history = chat.NewHistory(50)
	})

	newEngine := func(tools *tool.Registry) *engine.Engine {
		return engine.New(engine.Config{
			Client:  client,
			Out:     out,
			Tools:   tools,
			History: history,
		})
	}

	Describe("plain text turns", func() {
		It("publishes the provider's answer and records both sides in history", func() {
			client.script = append(client.script, textReply("4"))

			err := runOne(newEngine(nil), chat.NewMessage(chat.RoleUser, "what is 2+2?"))
			Expect(err).NotTo(HaveOccurred())

			published := out.published()
			Expect(published).To(HaveLen(1))
			Expect(published[0].Role).To(Equal(chat.RoleAssistant))
			Expect(published[0].Content).To(Equal("4"))

			msgs := history.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Role).To(Equal(chat.RoleUser))
			Expect(msgs[1].Role).To(Equal(chat.RoleAssistant))
		})

		It("publishes an empty reply as an empty assistant message", func() {
			client.script = append(client.script, textReply(""))

			Expect(runOne(newEngine(nil), chat.NewMessage(chat.RoleUser, "say nothing"))).To(Succeed())

			published := out.published()
			Expect(published).To(HaveLen(1))
			Expect(published[0].Content).To(BeEmpty())
		})

		It("sends the full history to the provider", func() {
			history.Seed("be terse")
			client.script = append(client.script, textReply("ok"))

			Expect(runOne(newEngine(nil), chat.NewMessage(chat.RoleUser, "hi"))).To(Succeed())

			req := client.request(0)
			Expect(req.Messages).To(HaveLen(2))
			Expect(req.Messages[0].Role).To(Equal(chat.RoleSystem))
			Expect(req.Messages[1].Content).To(Equal("hi"))
		})
	})

	Describe("tool call rounds", func() {
		It("resolves a tool call and feeds the result back before the final answer", func() {
			registry := tool.NewRegistry()
			Expect(registry.Register(tool.Calculator())).To(Succeed())

			client.script = append(client.script,
				toolReply(chat.ToolCall{ID: "call-1", Name: "calculate", Arguments: `{"expression":"2 + 2"}`}),
				textReply("The answer is 4."),
			)

			Expect(runOne(newEngine(registry), chat.NewMessage(chat.RoleUser, "what is 2+2?"))).To(Succeed())

			Expect(client.calls()).To(Equal(2))

			second := client.request(1)
			last := second.Messages[len(second.Messages)-1]
			Expect(last.Role).To(Equal(chat.RoleTool))
			Expect(last.ToolCallID).To(Equal("call-1"))
			Expect(last.Content).To(Equal("Result: 4"))

			published := out.published()
			Expect(published).To(HaveLen(1))
			Expect(published[0].Content).To(Equal("The answer is 4."))
		})

		It("resolves multiple calls from one response in order", func() {
			registry := tool.NewRegistry()
			Expect(registry.Register(tool.Weather())).To(Succeed())
			Expect(registry.Register(tool.Calculator())).To(Succeed())

			client.script = append(client.script,
				toolReply(
					chat.ToolCall{ID: "call-1", Name: "get_current_weather", Arguments: `{"location":"Oslo"}`},
					chat.ToolCall{ID: "call-2", Name: "calculate", Arguments: `{"expression":"1 + 1"}`},
				),
				textReply("done"),
			)

			Expect(runOne(newEngine(registry), chat.NewMessage(chat.RoleUser, "weather and math"))).To(Succeed())

			second := client.request(1)
			n := len(second.Messages)
			Expect(second.Messages[n-2].ToolCallID).To(Equal("call-1"))
			Expect(second.Messages[n-1].ToolCallID).To(Equal("call-2"))
		})

		It("turns an unknown tool into a result and keeps going", func() {
			registry := tool.NewRegistry()

			client.script = append(client.script,
				toolReply(chat.ToolCall{ID: "call-1", Name: "launch_rocket"}),
				textReply("I cannot do that."),
			)

			Expect(runOne(newEngine(registry), chat.NewMessage(chat.RoleUser, "launch"))).To(Succeed())

			second := client.request(1)
			last := second.Messages[len(second.Messages)-1]
			Expect(last.Content).To(ContainSubstring("unknown tool: launch_rocket"))
			Expect(out.published()).To(HaveLen(1))
		})

		It("answers stray tool calls with unknown-tool results when tools are disabled", func() {
			client.script = append(client.script,
				toolReply(chat.ToolCall{ID: "call-1", Name: "calculate"}),
				textReply("fine"),
			)

			Expect(runOne(newEngine(nil), chat.NewMessage(chat.RoleUser, "hi"))).To(Succeed())

			first := client.request(0)
			Expect(first.Tools).To(BeEmpty())

			second := client.request(1)
			last := second.Messages[len(second.Messages)-1]
			Expect(last.Content).To(ContainSubstring("unknown tool"))
		})

		It("caps runaway tool loops and still publishes a reply", func() {
			registry := tool.NewRegistry()
			Expect(registry.Register(tool.Calculator())).To(Succeed())

			eng := engine.New(engine.Config{
				Client:        client,
				Out:           out,
				Tools:         registry,
				History:       history,
				MaxToolRounds: 3,
			})

			for i := 0; i < 10; i++ {
				client.script = append(client.script,
					toolReply(chat.ToolCall{ID: fmt.Sprintf("call-%d", i), Name: "calculate", Arguments: `{"expression":"1"}`}))
			}

			Expect(runOne(eng, chat.NewMessage(chat.RoleUser, "loop forever"))).To(Succeed())

			// 3 tool rounds plus the capped final request.
			Expect(client.calls()).To(Equal(4))

			published := out.published()
			Expect(published).To(HaveLen(1))
			Expect(published[0].Content).To(ContainSubstring("could not finish"))
		})
	})

	Describe("provider failures", func() {
		It("aborts the turn but keeps the user message in history", func() {
			client.script = append(client.script, failReply(fmt.Errorf("%w: upstream 503", llm.ErrTransport)))

			Expect(runOne(newEngine(nil), chat.NewMessage(chat.RoleUser, "hello?"))).To(Succeed())

			Expect(out.published()).To(BeEmpty())

			msgs := history.Messages()
			Expect(msgs).To(HaveLen(1))
			Expect(msgs[0].Role).To(Equal(chat.RoleUser))
			Expect(msgs[0].Content).To(Equal("hello?"))
		})

		It("recovers on the next turn after a failure", func() {
			client.script = append(client.script,
				failReply(fmt.Errorf("%w: timeout", llm.ErrTransport)),
				textReply("back online"),
			)

			in := make(chan channel.Envelope, 2)
			in <- channel.Envelope{Source: "stdin", Message: chat.NewMessage(chat.RoleUser, "first")}
			in <- channel.Envelope{Source: "stdin", Message: chat.NewMessage(chat.RoleUser, "second")}
			close(in)

			Expect(newEngine(nil).Run(context.Background(), in)).To(Succeed())

			published := out.published()
			Expect(published).To(HaveLen(1))
			Expect(published[0].Content).To(Equal("back online"))

			// The failed turn's user message stayed in context.
			second := client.request(1)
			contents := []string{}
			for _, m := range second.Messages {
				contents = append(contents, m.Content)
			}
			Expect(contents).To(ContainElement("first"))
			Expect(contents).To(ContainElement("second"))
		})
	})

	Describe("lifecycle", func() {
		It("stops cleanly on the exit command and says goodbye", func() {
			in := make(chan channel.Envelope, 1)
			in <- channel.Envelope{Source: "stdin", Message: chat.NewMessage(chat.RoleUser, "exit")}

			Expect(newEngine(nil).Run(context.Background(), in)).To(Succeed())

			Expect(client.calls()).To(BeZero())
			published := out.published()
			Expect(published).To(HaveLen(1))
			Expect(published[0].Role).To(Equal(chat.RoleSystem))
			Expect(published[0].Content).To(Equal("Goodbye!"))
		})

		It("treats the exit command case-insensitively with padding", func() {
			in := make(chan channel.Envelope, 1)
			in <- channel.Envelope{Source: "stdin", Message: chat.NewMessage(chat.RoleUser, "  EXIT  ")}

			Expect(newEngine(nil).Run(context.Background(), in)).To(Succeed())
			Expect(client.calls()).To(BeZero())
		})

		It("does not treat an assistant 'exit' as a command", func() {
			client.script = append(client.script, textReply("ok"))

			msg := chat.NewMessage(chat.RoleAssistant, "exit")
			in := make(chan channel.Envelope, 1)
			in <- channel.Envelope{Source: "mqtt", Message: msg}
			close(in)

			Expect(newEngine(nil).Run(context.Background(), in)).To(Succeed())
			Expect(client.calls()).To(Equal(1))
		})

		It("returns the context error when cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := newEngine(nil).Run(ctx, make(chan channel.Envelope))
			Expect(err).To(MatchError(context.Canceled))
		})

		It("returns nil when the input stream closes", func() {
			in := make(chan channel.Envelope)
			close(in)
			Expect(newEngine(nil).Run(context.Background(), in)).To(Succeed())
		})
	})
})
