package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrInvariant marks a structural violation of the tree: deleting a node
	// that still has children, deleting the root, or broken parent links
	// found on load. It is fatal to a run.
	ErrInvariant = errors.New("memory invariant violated")

	// ErrImmutable is returned when appending to a node that already succeeded.
	ErrImmutable = errors.New("memory node is immutable")
)

// NodeNotFoundError is returned for unknown node ids.
type NodeNotFoundError struct {
	ID int64
}

func (e NodeNotFoundError) Error() string {
	return fmt.Sprintf("memory node %d not found", e.ID)
}

// Is lets errors.Is(err, ErrNodeNotFound) match any NodeNotFoundError.
func (e NodeNotFoundError) Is(target error) bool {
	return target == ErrNodeNotFound
}

// ErrNodeNotFound matches every NodeNotFoundError.
var ErrNodeNotFound = errors.New("memory node not found")
