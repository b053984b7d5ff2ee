package cliui_test

import (
	"bytes"
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/treeagent/pkg/cliui"
	"github.com/papercomputeco/treeagent/pkg/output"
)

var _ = Describe("Step", func() {
	It("prints a success mark after fn returns", func() {
		var buf bytes.Buffer
		err := cliui.Step(&buf, "opening memory", func() error { return nil })
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark + " opening memory"))
	})

	It("returns fn's error with a failure mark", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")
		err := cliui.Step(&buf, "dialing", func() error { return boom })
		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark + " dialing"))
	})
})

var _ = Describe("FormatDuration", func() {
	It("formats sub-second durations in milliseconds", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("formats longer durations in seconds", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("IsTerminal", func() {
	It("is false for buffers", func() {
		Expect(cliui.IsTerminal(&bytes.Buffer{})).To(BeFalse())
	})
})

var _ = Describe("PrintMarkdown", func() {
	It("writes raw markdown to non-terminals", func() {
		var buf bytes.Buffer
		Expect(cliui.PrintMarkdown(&buf, "# title\n")).To(Succeed())
		Expect(buf.String()).To(Equal("# title\n"))
	})
})

var _ = Describe("Sink", func() {
	var (
		buf  *bytes.Buffer
		sink output.Func
		ctx  context.Context
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		sink = cliui.Sink(buf)
		ctx = context.Background()
	})

	It("streams tokens and terminates the turn with a newline", func() {
		Expect(sink(ctx, output.Token("hel"))).To(Succeed())
		Expect(sink(ctx, output.Token("lo"))).To(Succeed())
		Expect(sink(ctx, output.EndOfTurn)).To(Succeed())
		Expect(buf.String()).To(Equal("hello\n"))
	})

	It("does not double newlines", func() {
		Expect(sink(ctx, output.Token("done\n"))).To(Succeed())
		Expect(sink(ctx, output.EndOfTurn)).To(Succeed())
		Expect(buf.String()).To(Equal("done\n"))
	})

	It("marks rolled back turns on their own line", func() {
		Expect(sink(ctx, output.Token("partial text"))).To(Succeed())
		Expect(sink(ctx, output.Partial("partial text"))).To(Succeed())
		Expect(buf.String()).To(Equal("partial text\n[rolled back]\n"))
	})
})
