package cliui

import (
	"context"
	"fmt"
	"io"

	"github.com/papercomputeco/treeagent/pkg/output"
)

// Sink returns an output.Func that streams agent output to w. Tokens are
// written verbatim, rolled back turns are echoed with PartialStyle and every
// turn ends on a fresh line.
func Sink(w io.Writer) output.Func {
	styled := IsTerminal(w)
	atLineStart := true

	write := func(s string) error {
		if s == "" {
			return nil
		}
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
		atLineStart = s[len(s)-1] == '\n'
		return nil
	}

	return func(_ context.Context, o output.Output) error {
		switch o.Kind {
		case output.KindToken:
			return write(o.Text)

		case output.KindPartial:
			text := "[rolled back]"
			if styled {
				text = PartialStyle.Render(text)
			}
			if !atLineStart {
				text = "\n" + text
			}
			return write(fmt.Sprintln(text))

		case output.KindEndOfTurn:
			if !atLineStart {
				return write("\n")
			}
			return nil

		default:
			return nil
		}
	}
}
