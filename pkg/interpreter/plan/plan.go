// Package plan expands ```runplan blocks into steps of the memory tree.
//
// As an input interpreter it turns a user's plan into children of the input
// node. As an output interpreter it lets the model break the node it is
// working on into sub-steps, down to a maximum depth. Items carrying the
// ###ask marker become plan_ask nodes that stop the run with a question.
package plan

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/treeagent/pkg/interpreter"
	"github.com/papercomputeco/treeagent/pkg/memory"
)

// DefaultMaxDepth bounds how deep plans may nest.
const DefaultMaxDepth = 4

// Interpreter handles ```runplan blocks.
type Interpreter struct {
	interpreter.Block

	memory   *memory.Memory
	maxDepth int
	logger   *zap.Logger
}

// New returns a plan interpreter writing into mem. A non-positive maxDepth
// selects DefaultMaxDepth.
func New(mem *memory.Memory, maxDepth int, logger *zap.Logger) *Interpreter {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Interpreter{
		Block:    interpreter.NewBlock("plan", "runplan"),
		memory:   mem,
		maxDepth: maxDepth,
		logger:   logger,
	}
}

// ParseInput expands the plan in an input node into its children and marks
// the input node done. An input whose block holds no items is left pending
// so the model answers it directly.
func (i *Interpreter) ParseInput(ctx context.Context, node *memory.Node) error {
	items := StructurePlan(i.Body(node.Content))
	if len(items) == 0 {
		return nil
	}

	if err := i.insert(ctx, node.ID, node.Depth, items); err != nil {
		return err
	}
	return i.memory.SuccessNode(ctx, node.ID)
}

// Parse inserts the plan the model wrote under the node being executed,
// unless that node already sits at the maximum depth.
func (i *Interpreter) Parse(ctx context.Context, req interpreter.Request) (interpreter.Result, error) {
	if req.Node.Depth >= i.maxDepth {
		i.logger.Info("plan depth limit reached",
			zap.Int64("node_id", req.Node.ID),
			zap.Int("depth", req.Node.Depth),
		)
		return interpreter.Result{
			Output: fmt.Sprintf("plan depth limit %d reached, carry out this step directly without a further plan", i.maxDepth),
		}, nil
	}

	items := StructurePlan(i.Body(req.Content))
	if len(items) == 0 {
		return interpreter.Result{Output: "plan is empty"}, nil
	}

	if err := i.insert(ctx, req.Node.ID, req.Node.Depth, items); err != nil {
		return interpreter.Result{}, err
	}

	return interpreter.Result{Output: fmt.Sprintf("plan with %d steps added", count(items))}, nil
}

// insert adds items under parentID. Items that would land on the maximum
// depth absorb their descendants into their own content.
func (i *Interpreter) insert(ctx context.Context, parentID int64, parentDepth int, items []*Item) error {
	depth := parentDepth + 1
	for _, item := range items {
		node := &memory.Node{
			Role:    memory.RoleUser,
			Action:  memory.ActionPlan,
			Content: item.Content(),
		}

		if ask, questions := CheckHasAsk(item.Content()); ask {
			node.Action = memory.ActionPlanAsk
			node.Content = strings.TrimSpace(questions)
			if _, err := i.memory.AddNodeIn(ctx, parentID, node); err != nil {
				return err
			}
			continue
		}

		expand := depth < i.maxDepth
		if !expand && len(item.Children) > 0 {
			node.Content = item.flatten(0)
		}

		added, err := i.memory.AddNodeIn(ctx, parentID, node)
		if err != nil {
			return err
		}

		if expand && len(item.Children) > 0 {
			if err := i.insert(ctx, added.ID, added.Depth, item.Children); err != nil {
				return err
			}
		}
	}
	return nil
}

func count(items []*Item) int {
	n := len(items)
	for _, item := range items {
		n += count(item.Children)
	}
	return n
}

var (
	_ interpreter.Interpreter      = (*Interpreter)(nil)
	_ interpreter.InputInterpreter = (*Interpreter)(nil)
)
