package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

var _ = Describe("Reader", func() {
	Describe("Next", func() {
		Context("with standard SSE events", func() {
			It("parses a single event then reports EOF", func() {
				r := NewReader(strings.NewReader("data: hello world\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("hello world"))
				Expect(ev.Type).To(BeEmpty())
				Expect(ev.ID).To(BeEmpty())

				_, err = r.Next()
				Expect(err).To(Equal(io.EOF))
			})

			It("parses multiple events", func() {
				r := NewReader(strings.NewReader("data: first\n\ndata: second\n\n"))

				ev1, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev1.Data).To(Equal("first"))

				ev2, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev2.Data).To(Equal("second"))

				_, err = r.Next()
				Expect(err).To(Equal(io.EOF))
			})

			It("parses event type and id", func() {
				r := NewReader(strings.NewReader("event: delta\nid: 42\ndata: {\"x\":1}\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Type).To(Equal("delta"))
				Expect(ev.ID).To(Equal("42"))
				Expect(ev.Data).To(Equal(`{"x":1}`))
			})

			It("joins multiple data lines with newline", func() {
				r := NewReader(strings.NewReader("data: line one\ndata: line two\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("line one\nline two"))
			})

			It("keeps values without a leading space intact", func() {
				r := NewReader(strings.NewReader("data:tight\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("tight"))
			})
		})

		Context("with noise in the stream", func() {
			It("skips comments and keep-alive blank lines", func() {
				r := NewReader(strings.NewReader("\n\n: ping\n\ndata: payload\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("payload"))
			})

			It("delivers an unterminated final event", func() {
				r := NewReader(strings.NewReader("data: tail"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("tail"))

				_, err = r.Next()
				Expect(err).To(Equal(io.EOF))
			})
		})

		It("recognizes the done sentinel", func() {
			r := NewReader(strings.NewReader("data: [DONE]\n\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Done()).To(BeTrue())
		})

		It("surfaces source errors", func() {
			r := NewReader(failingReader{})
			_, err := r.Next()
			Expect(err).To(MatchError("connection reset"))
		})
	})

	Describe("WithTee", func() {
		It("copies raw lines verbatim", func() {
			raw := "event: a\ndata: one\n\n: comment\ndata: two\n\n"
			var transcript bytes.Buffer
			r := NewReader(strings.NewReader(raw), WithTee(&transcript))

			for {
				if _, err := r.Next(); err != nil {
					Expect(err).To(Equal(io.EOF))
					break
				}
			}
			Expect(transcript.String()).To(Equal(raw))
		})
	})
})
