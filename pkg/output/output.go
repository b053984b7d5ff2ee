// Package output defines what an agent emits to its caller while it works.
package output

import (
	"context"
	"fmt"
)

// Kind distinguishes the output variants.
type Kind int

const (
	// KindToken is a piece of streamed model text or interpreter output.
	KindToken Kind = iota

	// KindPartial carries the text produced by a turn that failed and was
	// rolled back.
	KindPartial

	// KindEndOfTurn marks the end of one model turn.
	KindEndOfTurn
)

func (k Kind) String() string {
	switch k {
	case KindToken:
		return "token"
	case KindPartial:
		return "partial"
	case KindEndOfTurn:
		return "end_of_turn"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Output is one emission.
type Output struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text,omitempty"`
}

// Token wraps streamed text.
func Token(text string) Output {
	return Output{Kind: KindToken, Text: text}
}

// Partial wraps the text of a rolled-back turn.
func Partial(text string) Output {
	return Output{Kind: KindPartial, Text: text}
}

// EndOfTurn marks the end of a turn.
var EndOfTurn = Output{Kind: KindEndOfTurn}

// Func receives outputs. Returning an error aborts the current turn.
type Func func(ctx context.Context, o Output) error

// Discard ignores everything.
func Discard(context.Context, Output) error { return nil }

// Channel returns a Func that forwards outputs to ch, giving up when ctx is
// done.
func Channel(ch chan<- Output) Func {
	return func(ctx context.Context, o Output) error {
		select {
		case ch <- o:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
