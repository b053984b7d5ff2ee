// Package interpreter defines how the agent recognizes actions in model
// output and hands them to the code that carries them out.
//
// An output interpreter owns a regular expression evaluated against the whole
// accumulated response of a turn. The first interpreter (in priority order)
// whose pattern matches ends the turn: the stream is closed and Parse runs on
// the buffer. Input interpreters run once on a fresh user input node before
// any model turn.
package interpreter

import (
	"context"
	"regexp"

	"github.com/papercomputeco/treeagent/pkg/memory"
)

// Request is what a matched interpreter receives.
type Request struct {
	// Content is the full model output accumulated so far in the turn.
	Content string

	// Node is the node whose execution produced Content.
	Node *memory.Node
}

// Result is what an interpreter hands back to the agent.
type Result struct {
	// Output is shown to the caller and appended to the answer node.
	Output string

	// Stop ends the run after this turn, leaving the answer for the caller.
	Stop bool
}

// Interpreter handles one kind of action in model output.
type Interpreter interface {
	// Name is used in logs and events.
	Name() string

	// Pattern is matched against the accumulated output.
	Pattern() *regexp.Regexp

	// Parse carries out the action. An error rolls the turn back.
	Parse(ctx context.Context, req Request) (Result, error)
}

// InputInterpreter rewrites the memory tree from a user input node.
type InputInterpreter interface {
	Name() string
	Pattern() *regexp.Regexp
	ParseInput(ctx context.Context, node *memory.Node) error
}

// Terminated is implemented by interpreters whose pattern can only start
// matching once a fixed terminator has been appended to the buffer. The
// matcher uses it to skip interpreters that newly streamed bytes cannot
// affect.
type Terminated interface {
	Terminator() string
}

// Fence is the terminator shared by every fenced-block interpreter.
const Fence = "```"
