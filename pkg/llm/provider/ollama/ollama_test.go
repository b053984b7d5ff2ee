package ollama_test

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
	"github.com/papercomputeco/treeagent/pkg/llm/provider/ollama"
)

func collect(s llm.Stream) (string, error) {
	var sb strings.Builder
	for {
		chunk, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk.Content)
	}
}

var _ = Describe("Ollama Client", func() {
	var (
		server   *httptest.Server
		received map[string]any
		body     string
		status   int
	)

	BeforeEach(func() {
		received = nil
		status = http.StatusOK
		body = `{"model":"llama3","message":{"role":"assistant","content":"Hel"},"done":false}
{"model":"llama3","message":{"role":"assistant","content":"lo"},"done":false}
{"model":"llama3","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop"}
`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			w.WriteHeader(status)
			_, _ = io.WriteString(w, body)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("streams NDJSON chunks until done", func() {
		c := ollama.New(server.URL, "llama3", nil)
		s, err := c.Stream(context.Background(), []llm.Message{
			llm.NewTextMessage(llm.RoleSystem, "be brief"),
			llm.NewTextMessage(llm.RoleUser, "hi"),
		})
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		text, err := collect(s)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Hello"))

		Expect(received["model"]).To(Equal("llama3"))
		Expect(received["stream"]).To(BeTrue())
		Expect(received["messages"]).To(HaveLen(2))
	})

	It("surfaces in-band errors", func() {
		body = `{"error":"model not found"}` + "\n"
		c := ollama.New(server.URL, "missing", nil)
		s, err := c.Stream(context.Background(), nil)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		_, err = s.Recv()
		Expect(err).To(MatchError(ContainSubstring("model not found")))
	})

	It("returns a StatusError for non-2xx responses", func() {
		status = http.StatusInternalServerError
		body = "boom"
		c := ollama.New(server.URL, "llama3", nil)
		_, err := c.Stream(context.Background(), nil)

		var statusErr llm.StatusError
		Expect(errors.As(err, &statusErr)).To(BeTrue())
		Expect(statusErr.StatusCode).To(Equal(http.StatusInternalServerError))
		Expect(statusErr.Body).To(Equal("boom"))
	})

	It("reports its provider and model", func() {
		c := ollama.New("", "llama3", nil)
		Expect(c.Provider()).To(Equal("ollama"))
		Expect(c.Model()).To(Equal("llama3"))
	})
})
