package testutils

import (
	"context"
	"strings"
	"sync"

	"github.com/papercomputeco/treeagent/pkg/output"
)

// Sink records everything an agent emits.
type Sink struct {
	mu      sync.Mutex
	outputs []output.Output
}

// NewSink creates an empty Sink.
func NewSink() *Sink {
	return &Sink{}
}

// Func returns the output.Func that feeds the sink.
func (s *Sink) Func() output.Func {
	return func(_ context.Context, o output.Output) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.outputs = append(s.outputs, o)
		return nil
	}
}

// Outputs returns a copy of the recorded outputs.
func (s *Sink) Outputs() []output.Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]output.Output(nil), s.outputs...)
}

// Text concatenates the text of every token and partial output.
func (s *Sink) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sb strings.Builder
	for _, o := range s.outputs {
		sb.WriteString(o.Text)
	}
	return sb.String()
}

// Count returns how many outputs of kind were recorded.
func (s *Sink) Count(kind output.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range s.outputs {
		if o.Kind == kind {
			n++
		}
	}
	return n
}
