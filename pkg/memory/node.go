// Package memory holds the agent's conversation tree: an arena of nodes
// addressed by stable ids, persisted through a storage.Driver on every
// mutation.
package memory

import (
	"slices"
	"time"
)

// Role is who a node speaks as when replayed to the model.
type Role string

const (
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
)

// Action is what created a node.
type Action string

const (
	ActionRoot    Action = "root"
	ActionInput   Action = "input"
	ActionAnswer  Action = "answer"
	ActionPlan    Action = "plan"
	ActionPlanAsk Action = "plan_ask"
)

// Status of a node. Failed nodes are deleted rather than marked.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
)

// RootID is the id of the hidden root every tree starts with.
const RootID int64 = 0

// Node is a single turn in the tree.
type Node struct {
	ID       int64   `json:"id"`
	ParentID int64   `json:"parent_id"`
	Children []int64 `json:"children"`

	Role    Role   `json:"role"`
	Action  Action `json:"action"`
	Content string `json:"content"`
	Status  Status `json:"status"`

	// Depth is the plan nesting level: 0 for top-level nodes, parent + 1 for
	// nodes added under a plan item.
	Depth int `json:"depth"`

	CreatedAt time.Time `json:"created_at"`
}

// IsRoot reports whether n is the hidden root.
func (n *Node) IsRoot() bool {
	return n.ID == RootID
}

// IsPending reports whether n still needs to be executed.
func (n *Node) IsPending() bool {
	return n.Status == StatusPending
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	c := *n
	c.Children = slices.Clone(n.Children)
	return &c
}
