package interpreter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// RunCommand runs name with args in dir and returns its combined output. A
// non-zero exit is reported inside the output for the model to read; only
// cancellation and a missing executable are returned as errors.
func RunCommand(ctx context.Context, dir, stdin, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if stdin != "" {
		cmd.Stdin = bytes.NewBufferString(stdin)
	}

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out.String(), ctxErr
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return out.String(), nil
	case errors.As(err, &exitErr):
		return fmt.Sprintf("%s\n%s", out.String(), exitErr.Error()), nil
	default:
		return "", fmt.Errorf("failed to run %s: %w", name, err)
	}
}
