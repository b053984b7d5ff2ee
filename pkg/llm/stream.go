package llm

import (
	"context"
	"errors"
)

// ErrNoProvider is returned when configuration names an unknown LLM provider.
var ErrNoProvider = errors.New("no such llm provider")

// StreamChunk represents a single chunk in a streaming response.
type StreamChunk struct {
	// Model that generated the chunk
	Model string `json:"model,omitempty"`

	// The text delta carried by this chunk
	Content string `json:"content"`

	// Whether this is the final chunk
	Done bool `json:"done,omitempty"`
}

// Stream is an in-flight completion. Recv returns io.EOF once the model is
// done. Close may be called at any point to abandon the response; it must
// release the underlying connection.
type Stream interface {
	Recv() (StreamChunk, error)
	Close() error
}

// Client opens streaming completions.
type Client interface {
	Stream(ctx context.Context, messages []Message) (Stream, error)
}

// Named is implemented by clients that can describe their provider and model
// for the response cache key.
type Named interface {
	Provider() string
	Model() string
}
