package prompt_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/treeagent/pkg/clock"
	"github.com/papercomputeco/treeagent/pkg/prompt"
)

var _ = Describe("Agent", func() {
	It("renders the frozen time in cache mode", func() {
		out, err := prompt.Agent(prompt.NewAgentData(clock.New(true), "/tmp/ws", ""))
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix("Now: 2023-09-27 00:00:00\n"))
		Expect(out).To(ContainSubstring("Workspace: /tmp/ws"))
		Expect(out).To(ContainSubstring("```runplan"))
		Expect(out).To(ContainSubstring(`filepath.Join(os.Getenv("WORKSPACE"), "notes.txt")`))
		Expect(out).NotTo(ContainSubstring("Available tools"))
	})

	It("injects the tool catalog and memory", func() {
		data := prompt.NewAgentData(clock.New(true), "/tmp/ws", "  search(query) -> results\n")
		data.Memory = "<<Chengdu>>\ncapital of Sichuan"

		out, err := prompt.Agent(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Available tools:\nsearch(query) -> results"))
		Expect(out).To(ContainSubstring("Things you remember:\n<<Chengdu>>\ncapital of Sichuan"))
	})

	It("is deterministic with a fixed clock", func() {
		a, _ := prompt.Agent(prompt.NewAgentData(clock.New(true), "w", "t"))
		b, _ := prompt.Agent(prompt.NewAgentData(clock.New(true), "w", "t"))
		Expect(a).To(Equal(b))
	})
})

var _ = Describe("Summary", func() {
	It("lists known concepts", func() {
		out, err := prompt.Summary(prompt.SummaryData{Concepts: []string{"Chengdu", "Pandas"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("- Chengdu\n- Pandas\n"))
	})
})
