package starlark_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/treeagent/pkg/interpreter"
	"github.com/papercomputeco/treeagent/pkg/interpreter/starlark"
)

var _ = Describe("Interpreter", func() {
	var (
		i   *starlark.Interpreter
		ctx context.Context
	)

	run := func(code string) string {
		res, err := i.Parse(ctx, interpreter.Request{Content: "```starlark\n" + code + "\n```"})
		Expect(err).NotTo(HaveOccurred())
		return res.Output
	}

	BeforeEach(func() {
		ctx = context.Background()
		i = starlark.New()
	})

	It("captures print output", func() {
		Expect(run("print(0.99 * 2)")).To(Equal("1.98"))
	})

	It("keeps globals across blocks", func() {
		Expect(run("def square(x):\n    return x * x\nbase = 7")).To(Equal("(no output)"))
		Expect(run("print(square(base))")).To(Equal("49"))
	})

	It("reports errors as output", func() {
		Expect(run("print(undefined_name)")).To(ContainSubstring("undefined"))
	})

	It("supports top-level loops", func() {
		Expect(run("total = 0\nfor n in range(5):\n    total += n\nprint(total)")).To(Equal("10"))
	})

	It("stops on cancellation", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := i.Parse(cancelled, interpreter.Request{Content: "```starlark\nwhile True:\n    pass\n```"})
		Expect(err).To(MatchError(context.Canceled))
	})
})
