package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	questionFile = "question.json"
)

// Question is the state a stopped run leaves behind: the node the run ended
// on and what it asked. The next input answers it.
type Question struct {
	// NodeID is the node the run stopped on.
	NodeID int64 `json:"node_id"`

	// Content is the question shown to the user.
	Content string `json:"content"`
}

// LoadQuestion loads the pending question from <dir>/question.json.
// Returns nil, nil if no run is waiting for an answer.
func (m *Manager) LoadQuestion(dir string) (*Question, error) {
	data, err := os.ReadFile(filepath.Join(dir, questionFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading pending question: %w", err)
	}

	q := &Question{}
	if err := json.Unmarshal(data, q); err != nil {
		return nil, fmt.Errorf("parsing pending question: %w", err)
	}

	return q, nil
}

// SaveQuestion persists the pending question to <dir>/question.json.
func (m *Manager) SaveQuestion(dir string, q *Question) error {
	if q == nil {
		return errors.New("cannot save nil question")
	}

	data, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling pending question: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, questionFile), data, 0o600); err != nil {
		return fmt.Errorf("writing pending question: %w", err)
	}

	return nil
}

// ClearQuestion removes the pending question.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearQuestion(dir string) error {
	if err := os.Remove(filepath.Join(dir, questionFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing pending question: %w", err)
	}

	return nil
}
