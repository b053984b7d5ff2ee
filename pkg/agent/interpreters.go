package agent

import (
	"go.uber.org/zap"

	"github.com/papercomputeco/treeagent/pkg/interpreter"
	"github.com/papercomputeco/treeagent/pkg/interpreter/ask"
	"github.com/papercomputeco/treeagent/pkg/interpreter/file"
	"github.com/papercomputeco/treeagent/pkg/interpreter/gocode"
	"github.com/papercomputeco/treeagent/pkg/interpreter/plan"
	"github.com/papercomputeco/treeagent/pkg/interpreter/python"
	"github.com/papercomputeco/treeagent/pkg/interpreter/shell"
	"github.com/papercomputeco/treeagent/pkg/interpreter/starlark"
	"github.com/papercomputeco/treeagent/pkg/memory"
)

// Interpreters groups the input and output interpreters of an agent.
type Interpreters struct {
	Input  []interpreter.InputInterpreter
	Output []interpreter.Interpreter
}

// InterpreterOptions configures DefaultInterpreters.
type InterpreterOptions struct {
	Workspace    string
	MaxPlanDepth int
	Python       string
	Shell        string
}

// DefaultInterpreters builds the standard interpreter set working in
// o.Workspace. Output interpreters are in priority order: plan, python, go,
// starlark, shell, file, ask.
func DefaultInterpreters(mem *memory.Memory, o InterpreterOptions, logger *zap.Logger) (Interpreters, error) {
	planner := plan.New(mem, o.MaxPlanDepth, logger)

	goInterp, err := gocode.New(o.Workspace)
	if err != nil {
		return Interpreters{}, err
	}

	return Interpreters{
		Input: []interpreter.InputInterpreter{planner},
		Output: []interpreter.Interpreter{
			planner,
			python.New(o.Workspace, o.Python),
			goInterp,
			starlark.New(),
			shell.New(o.Workspace, o.Shell),
			file.New(o.Workspace),
			ask.New(),
		},
	}, nil
}
