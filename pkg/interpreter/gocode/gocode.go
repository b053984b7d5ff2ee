// Package gocode evaluates ```go blocks in an embedded yaegi interpreter.
// Declarations persist across blocks for the lifetime of the agent, so a
// later block can call a function an earlier block defined.
//
// Programs run in the agent's process, so relative paths resolve against the
// process working directory rather than the workspace. Programs reach the
// workspace by joining paths onto os.Getenv("WORKSPACE").
package gocode

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/papercomputeco/treeagent/pkg/interpreter"
)

// Interpreter wraps a long-lived yaegi session.
type Interpreter struct {
	interpreter.Block

	mu     sync.Mutex
	dir    string
	out    *bytes.Buffer
	engine *interp.Interpreter
}

// New creates a session with the standard library available. dir is exposed
// to programs through the WORKSPACE environment variable.
func New(dir string) (*Interpreter, error) {
	out := &bytes.Buffer{}
	engine := interp.New(interp.Options{
		Stdout: out,
		Stderr: out,
		Env:    []string{"WORKSPACE=" + dir},
	})
	if err := engine.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib symbols: %w", err)
	}

	return &Interpreter{
		Block:  interpreter.NewBlock("go", "go"),
		dir:    dir,
		out:    out,
		engine: engine,
	}, nil
}

func (i *Interpreter) Parse(ctx context.Context, req interpreter.Request) (interpreter.Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.out.Reset()
	v, err := i.engine.EvalWithContext(ctx, i.Body(req.Content))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return interpreter.Result{}, ctxErr
	}

	text := i.out.String()
	switch {
	case err != nil:
		text += "\n" + err.Error()
	case text == "" && v.IsValid() && v.CanInterface() && v.Interface() != nil:
		// Expression blocks print their value like a REPL.
		text = fmt.Sprint(v.Interface())
	}

	return interpreter.Result{Output: interpreter.Clip(text)}, nil
}

var _ interpreter.Interpreter = (*Interpreter)(nil)
