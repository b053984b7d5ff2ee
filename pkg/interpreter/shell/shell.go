// Package shell runs ```shell, ```bash and ```sh blocks.
package shell

import (
	"context"

	"github.com/papercomputeco/treeagent/pkg/interpreter"
)

// DefaultShell executes the scripts.
const DefaultShell = "bash"

// Interpreter runs scripts through a shell in a working directory.
type Interpreter struct {
	interpreter.Block

	dir   string
	shell string
}

// New returns a shell interpreter working in dir. An empty shell selects
// DefaultShell.
func New(dir, shell string) *Interpreter {
	if shell == "" {
		shell = DefaultShell
	}
	return &Interpreter{
		Block: interpreter.NewBlock("shell", "(?:shell|bash|sh)"),
		dir:   dir,
		shell: shell,
	}
}

func (i *Interpreter) Parse(ctx context.Context, req interpreter.Request) (interpreter.Result, error) {
	out, err := interpreter.RunCommand(ctx, i.dir, i.Body(req.Content), i.shell, "-s")
	if err != nil {
		return interpreter.Result{}, err
	}
	return interpreter.Result{Output: interpreter.Clip(out)}, nil
}

var _ interpreter.Interpreter = (*Interpreter)(nil)
