package gemini_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/treeagent/pkg/llm"
	"github.com/papercomputeco/treeagent/pkg/llm/provider/gemini"
)

var _ = Describe("Gemini Client", func() {
	var (
		server *httptest.Server
		path   string
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, `data: {"candidates":[{"content":{"role":"model","parts":[{"text":"Good"}]}}]}`+"\r\n\r\n")
			_, _ = io.WriteString(w, `data: {"candidates":[{"content":{"role":"model","parts":[{"text":" morning"}]},"finishReason":"STOP"}]}`+"\r\n\r\n")
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires an API key", func() {
		_, err := gemini.New(context.Background(), server.URL, "", "")
		Expect(err).To(HaveOccurred())
	})

	It("defaults the model", func() {
		c, err := gemini.New(context.Background(), server.URL, "", "key")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Model()).To(Equal(gemini.DefaultModel))
		Expect(c.Provider()).To(Equal("gemini"))
	})

	It("streams generated text", func() {
		c, err := gemini.New(context.Background(), server.URL, "gemini-test", "key")
		Expect(err).NotTo(HaveOccurred())

		s, err := c.Stream(context.Background(), []llm.Message{
			llm.NewTextMessage(llm.RoleSystem, "sys"),
			llm.NewTextMessage(llm.RoleUser, "hello"),
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
			sb.WriteString(chunk.Content)
		}
		Expect(sb.String()).To(Equal("Good morning"))
		Expect(path).To(ContainSubstring("gemini-test:streamGenerateContent"))
	})
})
