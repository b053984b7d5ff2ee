// Package agent drives the conversation tree: it picks the next pending node,
// prompts the model with the node's context chain, streams the answer through
// the output interpreters, and folds the outcome back into the tree.
package agent

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/papercomputeco/treeagent/pkg/clock"
	"github.com/papercomputeco/treeagent/pkg/eventstream"
	"github.com/papercomputeco/treeagent/pkg/interpreter"
	"github.com/papercomputeco/treeagent/pkg/llm"
	"github.com/papercomputeco/treeagent/pkg/memory"
	"github.com/papercomputeco/treeagent/pkg/summary"
)

// DefaultMaxAttempts is how often a node may fail within one run before the
// run gives up on it.
const DefaultMaxAttempts = 3

// ErrRunning is returned when Run is called while a run is in progress.
var ErrRunning = errors.New("agent is already running")

// Config is the configuration for an Agent.
type Config struct {
	// Workspace is the directory interpreters work in. It is created if absent.
	Workspace string

	// Client streams model completions.
	Client llm.Client

	// Memory is the conversation tree the agent works through.
	Memory *memory.Memory

	// Interpreters are the output interpreters in priority order.
	// Defaults to DefaultInterpreters.
	Interpreters []interpreter.Interpreter

	// InputInterpreters run on new input nodes, first match wins.
	// Defaults to the plan interpreter.
	InputInterpreters []interpreter.InputInterpreter

	// Tools is the tool catalog injected into the system prompt.
	Tools string

	// Concepts, when set, contributes its visible memory to the system prompt.
	Concepts *summary.Store

	// Clock stamps the system prompt. Defaults to the wall clock.
	Clock clock.Clock

	// MaxPlanDepth bounds plan nesting for the default plan interpreter.
	MaxPlanDepth int

	// Python and Shell name the binaries of the default python and shell
	// interpreters. Empty selects python3 and bash.
	Python string
	Shell  string

	// MaxAttempts caps failed turns per node and run. Defaults to DefaultMaxAttempts.
	MaxAttempts int

	// Publisher receives a node-completed event after every turn. Optional.
	Publisher eventstream.Publisher

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Agent executes the pending nodes of a memory tree.
type Agent struct {
	workspace   string
	client      llm.Client
	memory      *memory.Memory
	matcher     *interpreter.Matcher
	inputs      []interpreter.InputInterpreter
	tools       string
	concepts    *summary.Store
	clock       clock.Clock
	maxAttempts int
	publisher   eventstream.Publisher
	logger      *zap.Logger

	running atomic.Bool
	stopped atomic.Bool
}

// New creates an Agent, filling in defaults for unset configuration.
func New(c Config) (*Agent, error) {
	if c.Client == nil {
		return nil, errors.New("agent requires an llm client")
	}
	if c.Memory == nil {
		return nil, errors.New("agent requires a memory tree")
	}
	if c.Workspace == "" {
		return nil, errors.New("agent requires a workspace")
	}
	if err := os.MkdirAll(c.Workspace, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace %s: %w", c.Workspace, err)
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Clock == nil {
		c.Clock = clock.Real{}
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}

	if c.Interpreters == nil || c.InputInterpreters == nil {
		defaults, err := DefaultInterpreters(c.Memory, InterpreterOptions{
			Workspace:    c.Workspace,
			MaxPlanDepth: c.MaxPlanDepth,
			Python:       c.Python,
			Shell:        c.Shell,
		}, c.Logger)
		if err != nil {
			return nil, err
		}
		if c.Interpreters == nil {
			c.Interpreters = defaults.Output
		}
		if c.InputInterpreters == nil {
			c.InputInterpreters = defaults.Input
		}
	}

	return &Agent{
		workspace:   c.Workspace,
		client:      c.Client,
		memory:      c.Memory,
		matcher:     interpreter.NewMatcher(c.Interpreters...),
		inputs:      c.InputInterpreters,
		tools:       c.Tools,
		concepts:    c.Concepts,
		clock:       c.Clock,
		maxAttempts: c.MaxAttempts,
		publisher:   c.Publisher,
		logger:      c.Logger,
	}, nil
}

// Memory returns the tree the agent works on.
func (a *Agent) Memory() *memory.Memory {
	return a.memory
}

// Stop asks a running Run to return after the turn in progress.
func (a *Agent) Stop() {
	a.stopped.Store(true)
}

// Running reports whether a run is in progress.
func (a *Agent) Running() bool {
	return a.running.Load()
}
