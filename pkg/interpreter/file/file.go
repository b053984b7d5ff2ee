// Package file lets the model read and change files with fenced blocks:
//
//	```file write notes/todo.md
//	- buy milk
//	```
//
// Operations are read, write, append and delete. Relative paths resolve
// against the working directory, and no path may leave it.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/treeagent/pkg/interpreter"
)

// Interpreter performs file operations below a working directory.
type Interpreter struct {
	interpreter.Block

	dir string
}

func New(dir string) *Interpreter {
	return &Interpreter{
		Block: interpreter.NewBlock("file", `file (read|write|append|delete) ([^\n]+)`),
		dir:   dir,
	}
}

func (i *Interpreter) Parse(_ context.Context, req interpreter.Request) (interpreter.Result, error) {
	m := i.Submatches(req.Content)
	if len(m) != 3 {
		return interpreter.Result{}, errors.New("file block did not match")
	}
	op, body := m[0], m[2]
	path, err := i.resolve(m[1])
	if err != nil {
		return interpreter.Result{Output: err.Error()}, nil
	}

	var out string
	switch op {
	case "read":
		out, err = read(path)
	case "write":
		out, err = write(path, m[1], body, os.O_CREATE|os.O_TRUNC|os.O_WRONLY)
	case "append":
		out, err = write(path, m[1], body, os.O_CREATE|os.O_APPEND|os.O_WRONLY)
	case "delete":
		err = os.Remove(path)
		out = fmt.Sprintf("deleted %s", m[1])
	}
	if err != nil {
		// Missing files and permission problems are for the model to handle.
		out = err.Error()
	}

	return interpreter.Result{Output: interpreter.Clip(out)}, nil
}

// resolve maps name to a path below the working directory.
func (i *Interpreter) resolve(name string) (string, error) {
	dir, err := filepath.Abs(i.dir)
	if err != nil {
		return "", err
	}

	path := filepath.Clean(name)
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the working directory %s", name, dir)
	}
	return path, nil
}

func read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func write(path, name, body string, flag int) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	f, err := os.OpenFile(path, flag, fs.FileMode(0o644))
	if err != nil {
		return "", err
	}
	defer f.Close()

	n, err := f.WriteString(body + "\n")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("wrote %d bytes to %s", n, name), nil
}

var _ interpreter.Interpreter = (*Interpreter)(nil)
