// Package testutils holds fakes shared by the treeagent test suites.
package testutils

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/treeagent/pkg/llm"
)

// Response scripts one completion: Chunks are delivered in order, then Err
// (if set) is returned instead of io.EOF.
type Response struct {
	Chunks []string
	Err    error

	// OpenErr fails the Stream call itself.
	OpenErr error
}

// Text is shorthand for a single-chunk response.
func Text(s string) Response {
	return Response{Chunks: []string{s}}
}

// Chunks is shorthand for a multi-chunk response.
func Chunks(chunks ...string) Response {
	return Response{Chunks: chunks}
}

// ErrScriptExhausted is returned when the client runs out of responses.
var ErrScriptExhausted = errors.New("scripted llm: no responses left")

// ScriptedClient is an llm.Client that plays back canned responses and
// records every request it receives.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []Response
	requests  [][]llm.Message

	// open counts streams not yet closed.
	open atomic.Int64

	// delivered counts chunks handed to callers across all streams.
	delivered atomic.Int64
}

// NewScriptedClient creates a client that answers with responses in order.
func NewScriptedClient(responses ...Response) *ScriptedClient {
	return &ScriptedClient{responses: responses}
}

// Push appends more responses to the script.
func (c *ScriptedClient) Push(responses ...Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, responses...)
}

// Requests returns a copy of every message list received so far.
func (c *ScriptedClient) Requests() [][]llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]llm.Message, len(c.requests))
	copy(out, c.requests)
	return out
}

// Remaining is the number of unused responses.
func (c *ScriptedClient) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.responses)
}

// OpenStreams is the number of streams that were opened but not closed.
func (c *ScriptedClient) OpenStreams() int64 {
	return c.open.Load()
}

// Delivered is the total number of chunks returned by Recv.
func (c *ScriptedClient) Delivered() int64 {
	return c.delivered.Load()
}

func (c *ScriptedClient) Provider() string { return "scripted" }

func (c *ScriptedClient) Model() string { return "scripted-model" }

func (c *ScriptedClient) Stream(ctx context.Context, messages []llm.Message) (llm.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, append([]llm.Message(nil), messages...))
	if len(c.responses) == 0 {
		return nil, ErrScriptExhausted
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]

	if resp.OpenErr != nil {
		return nil, resp.OpenErr
	}

	c.open.Add(1)
	return &scriptedStream{ctx: ctx, resp: resp, client: c}, nil
}

type scriptedStream struct {
	ctx    context.Context
	resp   Response
	pos    int
	closed bool
	client *ScriptedClient
}

func (s *scriptedStream) Recv() (llm.StreamChunk, error) {
	if err := s.ctx.Err(); err != nil {
		return llm.StreamChunk{}, err
	}
	if s.pos < len(s.resp.Chunks) {
		chunk := llm.StreamChunk{Content: s.resp.Chunks[s.pos]}
		s.pos++
		s.client.delivered.Add(1)
		return chunk, nil
	}
	if s.resp.Err != nil {
		return llm.StreamChunk{}, s.resp.Err
	}
	return llm.StreamChunk{}, io.EOF
}

func (s *scriptedStream) Close() error {
	if !s.closed {
		s.closed = true
		s.client.open.Add(-1)
	}
	return nil
}

var _ llm.Client = (*ScriptedClient)(nil)
