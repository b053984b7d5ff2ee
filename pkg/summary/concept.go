// Package summary keeps a long-term memory of titled concepts that the model
// segments free text into, and lets the model reveal or hide concepts while
// it writes.
package summary

import "fmt"

// RootKey is the concept holding text that belongs to no titled block.
// It always exists and is never shown.
const RootKey = "ROOT"

// Concept is one titled entry of the store.
type Concept struct {
	Key      string   `json:"key"`
	Content  string   `json:"content"`
	Show     bool     `json:"show"`
	Children []string `json:"children,omitempty"`
	Parents  []string `json:"parents,omitempty"`
}

// String renders the concept the way the model writes it.
func (c Concept) String() string {
	return fmt.Sprintf("<<%s>>\n%s", c.Key, c.Content)
}

func (c *Concept) clone() Concept {
	out := *c
	out.Children = append([]string(nil), c.Children...)
	out.Parents = append([]string(nil), c.Parents...)
	return out
}
