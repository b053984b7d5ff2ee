package ask_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/treeagent/pkg/interpreter"
	"github.com/papercomputeco/treeagent/pkg/interpreter/ask"
)

var _ = Describe("Interpreter", func() {
	It("stops the run with the question", func() {
		i := ask.New()
		content := "I need more detail.\n```ask\nWhich file should I edit?\n```"
		Expect(i.Pattern().MatchString(content)).To(BeTrue())

		res, err := i.Parse(context.Background(), interpreter.Request{Content: content})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Stop).To(BeTrue())
		Expect(res.Output).To(Equal("Which file should I edit?"))
	})
})
