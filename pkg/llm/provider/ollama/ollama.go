// Package ollama streams chat completions from an Ollama server.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/treeagent/pkg/llm"
)

// DefaultTarget is where a local Ollama listens.
const DefaultTarget = "http://localhost:11434"

// Client implements llm.Client against Ollama's /api/chat endpoint.
type Client struct {
	target     string
	model      string
	httpClient *http.Client
}

// New creates a Client. An empty target falls back to DefaultTarget.
func New(target, model string, httpClient *http.Client) *Client {
	if target == "" {
		target = DefaultTarget
	}
	return &Client{
		target:     strings.TrimSuffix(target, "/"),
		model:      model,
		httpClient: httpClient,
	}
}

func (c *Client) Provider() string { return "ollama" }

func (c *Client) Model() string { return c.model }

// Stream opens a streaming chat completion.
func (c *Client) Stream(ctx context.Context, messages []llm.Message) (llm.Stream, error) {
	req := chatRequest{
		Model:    c.model,
		Messages: make([]chatMessage, 0, len(messages)),
		Stream:   true,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := llm.PostJSON(ctx, c.httpClient, c.target+"/api/chat", nil, req)
	if err != nil {
		return nil, err
	}

	return &stream{
		body:    resp.Body,
		decoder: json.NewDecoder(resp.Body),
	}, nil
}

// stream decodes newline-delimited JSON chunks.
type stream struct {
	body    io.ReadCloser
	decoder *json.Decoder
	done    bool
}

func (s *stream) Recv() (llm.StreamChunk, error) {
	if s.done {
		return llm.StreamChunk{}, io.EOF
	}

	var chunk chatChunk
	if err := s.decoder.Decode(&chunk); err != nil {
		if errors.Is(err, io.EOF) {
			s.done = true
			return llm.StreamChunk{}, io.EOF
		}
		return llm.StreamChunk{}, fmt.Errorf("failed to decode ollama chunk: %w", err)
	}

	if chunk.Error != "" {
		return llm.StreamChunk{}, fmt.Errorf("ollama: %s", chunk.Error)
	}

	s.done = chunk.Done
	return llm.StreamChunk{
		Model:   chunk.Model,
		Content: chunk.Message.Content,
		Done:    chunk.Done,
	}, nil
}

func (s *stream) Close() error {
	return s.body.Close()
}

var _ llm.Client = (*Client)(nil)
