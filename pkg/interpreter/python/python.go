// Package python runs ```python blocks with an external interpreter.
package python

import (
	"context"

	"github.com/papercomputeco/treeagent/pkg/interpreter"
)

// DefaultBinary is the interpreter looked up on PATH.
const DefaultBinary = "python3"

// Interpreter pipes code to a python process started in a working directory.
type Interpreter struct {
	interpreter.Block

	dir    string
	binary string
}

// New returns a python interpreter working in dir. An empty binary selects
// DefaultBinary.
func New(dir, binary string) *Interpreter {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Interpreter{
		Block:  interpreter.NewBlock("python", "python"),
		dir:    dir,
		binary: binary,
	}
}

func (i *Interpreter) Parse(ctx context.Context, req interpreter.Request) (interpreter.Result, error) {
	// "-" reads the program from stdin so multi-line code needs no quoting.
	out, err := interpreter.RunCommand(ctx, i.dir, i.Body(req.Content), i.binary, "-")
	if err != nil {
		return interpreter.Result{}, err
	}
	return interpreter.Result{Output: interpreter.Clip(out)}, nil
}

var _ interpreter.Interpreter = (*Interpreter)(nil)
