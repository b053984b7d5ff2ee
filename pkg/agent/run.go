package agent

import (
	"context"
	"fmt"
	"runtime"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/treeagent/pkg/memory"
	"github.com/papercomputeco/treeagent/pkg/output"
)

// Result describes how a run ended.
type Result struct {
	// NodeID is the node a stopped or exhausted run ended on. It is zero for
	// completed and cancelled runs.
	NodeID int64 `json:"node_id"`

	// Stopped is set when an interpreter or a plan question ended the run.
	Stopped bool `json:"stopped"`

	// Cancelled is set when Stop or the context ended the run.
	Cancelled bool `json:"cancelled"`

	// Exhausted is set when NodeID failed too often in this run.
	Exhausted bool `json:"exhausted"`
}

type runOptions struct {
	input   *string
	forNode int64
	sink    output.Func
}

// RunOption configures a single Run.
type RunOption func(*runOptions)

// WithInput adds text as a new user input node before working the tree.
func WithInput(text string) RunOption {
	return func(o *runOptions) {
		o.input = &text
	}
}

// WithForNode places the input right after the given node and marks that
// node done, answering the question a stopped run ended on.
func WithForNode(id int64) RunOption {
	return func(o *runOptions) {
		o.forNode = id
	}
}

// WithOutput sets the sink receiving tokens, partial output and turn ends.
func WithOutput(sink output.Func) RunOption {
	return func(o *runOptions) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// Run works through the pending nodes of the tree until none remain, an
// interpreter stops the run, or the run is cancelled. Cancellation is
// observed between turns. Failed turns are rolled back and retried; only
// broken tree invariants and persistence failures are returned as errors.
func (a *Agent) Run(ctx context.Context, opts ...RunOption) (Result, error) {
	ro := runOptions{sink: output.Discard}
	for _, opt := range opts {
		opt(&ro)
	}

	if !a.running.CompareAndSwap(false, true) {
		return Result{}, ErrRunning
	}
	defer a.running.Store(false)
	a.stopped.Store(false)

	runID := ulid.Make().String()
	logger := a.logger.With(zap.String("run_id", runID))
	mctx := context.WithoutCancel(ctx)

	if ro.input != nil {
		input, err := a.insertInput(mctx, *ro.input, ro.forNode)
		if err != nil {
			return Result{}, err
		}
		if err := a.interpretInput(mctx, input, logger); err != nil {
			return Result{}, err
		}
	}

	// An input is only marked done once a plan expanded it into pending
	// steps, so a fresh input always leaves something to do.
	todo := a.memory.TodoNode()

	failures := make(map[int64]int)
	for todo != nil {
		t, err := a.executeNode(ctx, runID, todo, ro.sink, logger)
		if err != nil {
			return Result{}, err
		}

		if t.failed {
			failures[todo.ID]++
			if failures[todo.ID] >= a.maxAttempts {
				logger.Error("node failed too often, giving up",
					zap.Int64("node_id", todo.ID),
					zap.Int("attempts", failures[todo.ID]),
				)
				return Result{NodeID: todo.ID, Exhausted: true}, nil
			}
		}

		if t.stop {
			logger.Info("run stopped", zap.Int64("node_id", t.node.ID))
			return Result{NodeID: t.node.ID, Stopped: true}, nil
		}

		runtime.Gosched()
		if a.stopped.Load() || ctx.Err() != nil {
			logger.Info("run cancelled")
			return Result{Cancelled: true}, nil
		}

		todo = a.memory.TodoNode()
	}

	logger.Info("run complete")
	return Result{}, nil
}

func (a *Agent) insertInput(ctx context.Context, text string, forNode int64) (*memory.Node, error) {
	node := &memory.Node{Role: memory.RoleUser, Action: memory.ActionInput, Content: text}

	var (
		input *memory.Node
		err   error
	)
	if forNode == 0 {
		input, err = a.memory.AddNode(ctx, node)
	} else {
		input, err = a.memory.AddNodeAfter(ctx, forNode, node)
		if err == nil {
			err = a.memory.SuccessNode(ctx, forNode)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert input: %w", err)
	}

	if err := a.memory.SetCurrentNode(ctx, input.ID); err != nil {
		return nil, err
	}
	return input, nil
}

func (a *Agent) interpretInput(ctx context.Context, input *memory.Node, logger *zap.Logger) error {
	for _, interp := range a.inputs {
		if !interp.Pattern().MatchString(input.Content) {
			continue
		}
		logger.Info("input interpreter matched",
			zap.String("interpreter", interp.Name()),
			zap.Int64("node_id", input.ID),
		)
		if err := interp.ParseInput(ctx, input); err != nil {
			return fmt.Errorf("input interpreter %s: %w", interp.Name(), err)
		}
		return nil
	}
	return nil
}
