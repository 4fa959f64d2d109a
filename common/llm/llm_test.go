package llm_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/convopipe/convopipe/common/llm"
	"github.com/convopipe/convopipe/internal/chat"
)

var _ = Describe("New", func() {
	It("requires an API key", func() {
		_, err := llm.New(llm.Config{Provider: llm.ProviderOpenAI})
		Expect(errors.Is(err, llm.ErrAuth)).To(BeTrue())
	})

	It("rejects an unsupported provider", func() {
		_, err := llm.New(llm.Config{Provider: "gemini", APIKey: "key"})
		Expect(err).To(MatchError(ContainSubstring("unsupported LLM provider")))
	})

	It("defaults to OpenAI when no provider is named", func() {
		client, err := llm.New(llm.Config{APIKey: "key"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Model()).To(Equal("gpt-4o"))
	})

	It("builds an Anthropic client with its default model", func() {
		client, err := llm.New(llm.Config{Provider: llm.ProviderAnthropic, APIKey: "key"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Model()).To(ContainSubstring("claude"))
	})

	It("honours a configured model name", func() {
		client, err := llm.New(llm.Config{Provider: llm.ProviderOpenAI, APIKey: "key", Model: "gpt-4o-mini"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Model()).To(Equal("gpt-4o-mini"))
	})
})

var _ = Describe("Kind", func() {
	DescribeTable("names the failure kind",
		func(err error, expected string) {
			Expect(llm.Kind(err)).To(Equal(expected))
		},
		Entry("auth", fmt.Errorf("wrapped: %w", llm.ErrAuth), "auth"),
		Entry("transport", fmt.Errorf("wrapped: %w", llm.ErrTransport), "transport"),
		Entry("protocol", fmt.Errorf("wrapped: %w", llm.ErrProtocol), "protocol"),
		Entry("anything else", errors.New("boom"), "unknown"),
	)
})

var _ = Describe("Complete input contract", func() {
	It("rejects a conversation with no non-system messages", func() {
		client, err := llm.New(llm.Config{APIKey: "key"})
		Expect(err).NotTo(HaveOccurred())

		_, err = client.Complete(context.Background(), llm.Request{
			Messages: []chat.Message{chat.NewMessage(chat.RoleSystem, "be terse")},
		})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("non-system message"))
	})
})
