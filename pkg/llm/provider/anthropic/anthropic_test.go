package anthropic_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/treeagent/pkg/llm"
	"github.com/papercomputeco/treeagent/pkg/llm/provider/anthropic"
)

const sseBody = `event: message_start
data: {"type":"message_start","message":{"model":"claude-test"}}

event: content_block_start
data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}

event: ping
data: {"type":"ping"}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" there"}}

event: message_stop
data: {"type":"message_stop"}

`

var _ = Describe("Anthropic Client", func() {
	var (
		server   *httptest.Server
		received map[string]any
		headers  http.Header
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/messages"))
			headers = r.Header.Clone()
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			_, _ = io.WriteString(w, sseBody)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("streams text deltas and lifts system messages", func() {
		c := anthropic.New(server.URL, "claude-test", "key", nil)
		s, err := c.Stream(context.Background(), []llm.Message{
			llm.NewTextMessage(llm.RoleSystem, "system prompt"),
			llm.NewTextMessage(llm.RoleUser, "first"),
			llm.NewTextMessage(llm.RoleUser, "second"),
			llm.NewTextMessage(llm.RoleAssistant, "reply"),
		})
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		var sb strings.Builder
		for {
			chunk, err := s.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Model).To(Equal("claude-test"))
			sb.WriteString(chunk.Content)
		}
		Expect(sb.String()).To(Equal("Hi there"))

		Expect(headers.Get("x-api-key")).To(Equal("key"))
		Expect(headers.Get("anthropic-version")).NotTo(BeEmpty())
		Expect(received["system"]).To(Equal("system prompt"))

		messages, ok := received["messages"].([]any)
		Expect(ok).To(BeTrue())
		Expect(messages).To(HaveLen(2))
		Expect(messages[0].(map[string]any)["content"]).To(Equal("first\n\nsecond"))
	})
})
