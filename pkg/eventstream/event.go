package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeNodeCompleted is emitted after the agent finishes executing a node.
	EventTypeNodeCompleted = "treeagent.node.completed"
)

// NodeCompletedEvent is a transport-neutral event payload for an executed node.
type NodeCompletedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	RunID         string      `json:"run_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	Node          NodeMeta    `json:"node"`
	Answer        *AnswerMeta `json:"answer,omitempty"`
	Turn          TurnMeta    `json:"turn"`
}

// EventSource identifies the agent the event originated from.
type EventSource struct {
	Workspace string `json:"workspace,omitempty"`
	Provider  string `json:"provider"`
	Model     string `json:"model,omitempty"`
}

// NodeMeta describes the node that was executed.
type NodeMeta struct {
	ID       int64  `json:"id"`
	ParentID int64  `json:"parent_id"`
	Role     string `json:"role"`
	Action   string `json:"action"`
	Depth    int    `json:"depth"`
	Status   string `json:"status"`
}

// AnswerMeta describes the answer node created for the executed node.
// It is absent when the turn failed and the answer was rolled back.
type AnswerMeta struct {
	ID             int64  `json:"id"`
	Interpreter    string `json:"interpreter,omitempty"`
	ContentPreview string `json:"content_preview,omitempty"`
}

// TurnMeta captures lifecycle metadata for the turn.
type TurnMeta struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Stop        bool      `json:"stop"`
	Failed      bool      `json:"failed"`
	Error       string    `json:"error,omitempty"`
}

// NewNodeCompletedEvent stamps a new event with a fresh id and the current schema.
func NewNodeCompletedEvent(runID string, source EventSource, node NodeMeta) *NodeCompletedEvent {
	return &NodeCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeNodeCompleted,
		EventID:       uuid.NewString(),
		RunID:         runID,
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Node:          node,
	}
}
