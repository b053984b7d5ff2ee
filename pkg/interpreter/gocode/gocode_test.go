package gocode_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/treeagent/pkg/interpreter"
	"github.com/papercomputeco/treeagent/pkg/interpreter/gocode"
)

var _ = Describe("Interpreter", func() {
	var (
		i   *gocode.Interpreter
		ctx context.Context
		dir string
	)

	run := func(code string) string {
		res, err := i.Parse(ctx, interpreter.Request{Content: "```go\n" + code + "\n```"})
		Expect(err).NotTo(HaveOccurred())
		return res.Output
	}

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		dir = GinkgoT().TempDir()
		i, err = gocode.New(dir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("captures stdout", func() {
		Expect(run("import \"fmt\"\nfmt.Println(\"hello\")")).To(Equal("hello"))
	})

	It("prints the value of an expression", func() {
		Expect(run("6 * 7")).To(Equal("42"))
	})

	It("keeps declarations across blocks", func() {
		run("func double(n int) int { return n * 2 }")
		Expect(run("double(21)")).To(Equal("42"))
	})

	It("reports compile errors as output", func() {
		Expect(run("undefinedFunc()")).To(ContainSubstring("undefined"))
	})

	It("reaches workspace files through the WORKSPACE variable", func() {
		Expect(os.WriteFile(filepath.Join(dir, "data.txt"), []byte("Chengdu"), 0o644)).To(Succeed())

		out := run(`import (
	"fmt"
	"os"
	"path/filepath"
)
data, err := os.ReadFile(filepath.Join(os.Getenv("WORKSPACE"), "data.txt"))
fmt.Println(string(data), err)`)
		Expect(out).To(Equal("Chengdu <nil>"))
	})
})
