package plan_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/treeagent/pkg/interpreter"
	"github.com/papercomputeco/treeagent/pkg/interpreter/plan"
	"github.com/papercomputeco/treeagent/pkg/logger"
	"github.com/papercomputeco/treeagent/pkg/memory"
	"github.com/papercomputeco/treeagent/pkg/storage/inmemory"
)

var _ = Describe("StructurePlan", func() {
	It("nests indented items under their parent", func() {
		items := plan.StructurePlan("\n1.xxx\n    1.1 xxx\n\n2.xxx\n\n")

		Expect(items).To(HaveLen(2))
		Expect(items[0].Title).To(Equal("1.xxx"))
		Expect(items[0].Children).To(HaveLen(1))
		Expect(items[0].Children[0].Title).To(Equal("1.1 xxx"))
		Expect(items[1].Title).To(Equal("2.xxx"))
		Expect(items[1].Children).To(BeEmpty())
	})

	It("nests same-indented items whose number extends the previous one", func() {
		items := plan.StructurePlan("1. gather\n1.1 search\n1.2 read\n2. write\n")

		Expect(items).To(HaveLen(2))
		Expect(items[0].Children).To(HaveLen(2))
		Expect(items[0].Children[1].Title).To(Equal("1.2 read"))
		Expect(items[1].Children).To(BeEmpty())
	})

	It("treats tabs as four spaces", func() {
		items := plan.StructurePlan("1. a\n\t- b\n\t\t- c\n2. d")

		Expect(items).To(HaveLen(2))
		Expect(items[0].Children).To(HaveLen(1))
		Expect(items[0].Children[0].Children).To(HaveLen(1))
		Expect(items[0].Children[0].Children[0].Title).To(Equal("- c"))
	})

	It("folds non-item lines into the previous item", func() {
		items := plan.StructurePlan("Here is the plan:\n1. fetch\n   use the API\n   twice\n2. save")

		Expect(items).To(HaveLen(2))
		Expect(items[0].Body).To(Equal("use the API\ntwice"))
		Expect(items[0].Content()).To(Equal("1. fetch\nuse the API\ntwice"))
		Expect(items[1].Content()).To(Equal("2. save"))
	})

	It("returns nothing for text without items", func() {
		Expect(plan.StructurePlan("just words\n\n")).To(BeEmpty())
	})
})

var _ = Describe("CheckHasAsk", func() {
	It("returns the content unchanged without a marker", func() {
		has, rest := plan.CheckHasAsk("find the latest 5 news about tesla and save it in variable name_0")
		Expect(has).To(BeFalse())
		Expect(rest).To(Equal("find the latest 5 news about tesla and save it in variable name_0"))
	})

	It("concatenates every segment after a marker verbatim", func() {
		has, rest := plan.CheckHasAsk("###ask where is the moon? ###ask how many times ?")
		Expect(has).To(BeTrue())
		Expect(rest).To(Equal(" where is the moon?  how many times ?"))
	})
})

var _ = Describe("Interpreter", func() {
	var (
		ctx    context.Context
		mem    *memory.Memory
		interp *plan.Interpreter
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		mem, err = memory.Open(ctx, inmemory.NewDriver())
		Expect(err).NotTo(HaveOccurred())
		interp = plan.New(mem, 2, logger.Nop())
	})

	childrenOf := func(id int64) []*memory.Node {
		n, err := mem.GetNode(id)
		Expect(err).NotTo(HaveOccurred())
		out := []*memory.Node{}
		for _, c := range n.Children {
			child, err := mem.GetNode(c)
			Expect(err).NotTo(HaveOccurred())
			out = append(out, child)
		}
		return out
	}

	Describe("ParseInput", func() {
		It("expands the plan under the input node and completes it", func() {
			input, err := mem.AddNode(ctx, &memory.Node{
				Role:    memory.RoleUser,
				Action:  memory.ActionInput,
				Content: "```runplan\n1. research\n    1.1 search\n2. summarize\n```",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(interp.Pattern().MatchString(input.Content)).To(BeTrue())

			Expect(interp.ParseInput(ctx, input)).To(Succeed())

			got, _ := mem.GetNode(input.ID)
			Expect(got.Status).To(Equal(memory.StatusSuccess))

			steps := childrenOf(input.ID)
			Expect(steps).To(HaveLen(2))
			Expect(steps[0].Action).To(Equal(memory.ActionPlan))
			Expect(steps[0].Depth).To(Equal(1))
			Expect(childrenOf(steps[0].ID)).To(HaveLen(1))
			Expect(childrenOf(steps[0].ID)[0].Depth).To(Equal(2))

			Expect(mem.TodoNode().ID).To(Equal(steps[0].ID))
		})

		It("leaves an empty plan pending", func() {
			input, _ := mem.AddNode(ctx, &memory.Node{
				Role: memory.RoleUser, Action: memory.ActionInput, Content: "```runplan\nnothing here\n```",
			})
			Expect(interp.ParseInput(ctx, input)).To(Succeed())

			got, _ := mem.GetNode(input.ID)
			Expect(got.Status).To(Equal(memory.StatusPending))
			Expect(got.Children).To(BeEmpty())
		})

		It("turns ###ask items into plan_ask nodes", func() {
			input, _ := mem.AddNode(ctx, &memory.Node{
				Role:    memory.RoleUser,
				Action:  memory.ActionInput,
				Content: "```runplan\n1. pick a city ###ask which city?\n    1.1 ignored detail\n2. book it\n```",
			})
			Expect(interp.ParseInput(ctx, input)).To(Succeed())

			steps := childrenOf(input.ID)
			Expect(steps).To(HaveLen(2))
			Expect(steps[0].Action).To(Equal(memory.ActionPlanAsk))
			Expect(steps[0].Content).To(Equal("which city?"))
			Expect(steps[0].Children).To(BeEmpty())
		})

		It("folds items below the maximum depth into their ancestor", func() {
			input, _ := mem.AddNode(ctx, &memory.Node{
				Role:    memory.RoleUser,
				Action:  memory.ActionInput,
				Content: "```runplan\n1. a\n    1.1 b\n        1.1.1 c\n```",
			})
			Expect(interp.ParseInput(ctx, input)).To(Succeed())

			level1 := childrenOf(input.ID)
			Expect(level1).To(HaveLen(1))
			level2 := childrenOf(level1[0].ID)
			Expect(level2).To(HaveLen(1))
			Expect(level2[0].Depth).To(Equal(2))
			Expect(level2[0].Children).To(BeEmpty())
			Expect(level2[0].Content).To(Equal("1.1 b\n    1.1.1 c"))
		})
	})

	Describe("Parse", func() {
		It("adds sub-steps under the executing node", func() {
			step, _ := mem.AddNode(ctx, &memory.Node{Role: memory.RoleUser, Action: memory.ActionPlan, Content: "do it"})

			res, err := interp.Parse(ctx, interpreter.Request{
				Content: "I will split this.\n```runplan\n1. first\n2. second\n```",
				Node:    step,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Stop).To(BeFalse())
			Expect(res.Output).To(ContainSubstring("2 steps"))
			Expect(childrenOf(step.ID)).To(HaveLen(2))
		})

		It("refuses to expand at the maximum depth", func() {
			top, _ := mem.AddNode(ctx, &memory.Node{Role: memory.RoleUser, Action: memory.ActionInput, Content: "goal"})
			mid, _ := mem.AddNodeIn(ctx, top.ID, &memory.Node{Role: memory.RoleUser, Action: memory.ActionPlan, Content: "1"})
			deep, _ := mem.AddNodeIn(ctx, mid.ID, &memory.Node{Role: memory.RoleUser, Action: memory.ActionPlan, Content: "1.1"})
			Expect(deep.Depth).To(Equal(2))

			res, err := interp.Parse(ctx, interpreter.Request{
				Content: "```runplan\n1. deeper\n```",
				Node:    deep,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Output).To(ContainSubstring("depth limit"))
			Expect(childrenOf(deep.ID)).To(BeEmpty())
		})
	})
})
