// Package ask lets the model hand a question back to the user. The run stops
// on the answer node; the caller replies with a follow-up run for that node.
package ask

import (
	"context"
	"strings"

	"github.com/papercomputeco/treeagent/pkg/interpreter"
)

// Interpreter handles ```ask blocks.
type Interpreter struct {
	interpreter.Block
}

func New() *Interpreter {
	return &Interpreter{Block: interpreter.NewBlock("ask", "ask")}
}

func (i *Interpreter) Parse(_ context.Context, req interpreter.Request) (interpreter.Result, error) {
	return interpreter.Result{
		Output: strings.TrimSpace(i.Body(req.Content)),
		Stop:   true,
	}, nil
}

var _ interpreter.Interpreter = (*Interpreter)(nil)
