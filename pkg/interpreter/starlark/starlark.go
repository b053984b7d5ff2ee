// Package starlark evaluates ```starlark blocks. Globals defined by one block
// are visible to later blocks.
package starlark

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/papercomputeco/treeagent/pkg/interpreter"
)

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// MaxSteps bounds the computation of a single block.
const MaxSteps = 10_000_000

// Interpreter keeps the accumulated globals of a session.
type Interpreter struct {
	interpreter.Block

	mu      sync.Mutex
	globals starlark.StringDict
}

func New() *Interpreter {
	return &Interpreter{
		Block:   interpreter.NewBlock("starlark", "starlark"),
		globals: starlark.StringDict{},
	}
}

func (i *Interpreter) Parse(ctx context.Context, req interpreter.Request) (interpreter.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var out strings.Builder
	thread := &starlark.Thread{
		Name: "treeagent",
		Print: func(_ *starlark.Thread, msg string) {
			out.WriteString(msg)
			out.WriteString("\n")
		},
	}
	thread.SetMaxExecutionSteps(MaxSteps)

	stop := context.AfterFunc(ctx, func() { thread.Cancel("context cancelled") })
	defer stop()

	globals, err := starlark.ExecFileOptions(fileOptions, thread, "block.star", i.Body(req.Content), i.globals)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return interpreter.Result{}, ctxErr
	}

	maps.Copy(i.globals, globals)

	if err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			fmt.Fprintln(&out, evalErr.Backtrace())
		} else {
			fmt.Fprintln(&out, err.Error())
		}
	}

	return interpreter.Result{Output: interpreter.Clip(out.String())}, nil
}

var _ interpreter.Interpreter = (*Interpreter)(nil)
