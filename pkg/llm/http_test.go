package llm_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/treeagent/pkg/llm"
)

var _ = Describe("PostJSON", func() {
	It("posts the JSON body with the given headers", func() {
		var (
			gotBody   map[string]any
			gotHeader string
			gotType   string
		)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotHeader = r.Header.Get("X-Api-Key")
			gotType = r.Header.Get("Content-Type")
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			_, _ = io.WriteString(w, "streamed")
		}))
		defer server.Close()

		resp, err := llm.PostJSON(context.Background(), nil, server.URL,
			map[string]string{"X-Api-Key": "secret"},
			llm.ChatRequest{Model: "m", Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")}},
		)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal("streamed"))
		Expect(gotHeader).To(Equal("secret"))
		Expect(gotType).To(Equal("application/json"))
		Expect(gotBody).To(HaveKeyWithValue("model", "m"))
	})

	It("turns non-2xx responses into a StatusError", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, "slow down")
		}))
		defer server.Close()

		_, err := llm.PostJSON(context.Background(), server.Client(), server.URL, nil, map[string]string{})
		var statusErr llm.StatusError
		Expect(err).To(BeAssignableToTypeOf(llm.StatusError{}))
		statusErr = err.(llm.StatusError)
		Expect(statusErr.StatusCode).To(Equal(http.StatusTooManyRequests))
		Expect(statusErr.Body).To(Equal("slow down"))
		Expect(statusErr.Error()).To(ContainSubstring("429"))
	})

	It("fails for an unreachable server", func() {
		_, err := llm.PostJSON(context.Background(), nil, "http://127.0.0.1:1", nil, map[string]string{})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("failed to reach"))
	})
})
