// Package openai streams chat completions from any OpenAI-compatible
// /chat/completions endpoint.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/treeagent/pkg/llm"
	"github.com/papercomputeco/treeagent/pkg/sse"
)

// DefaultTarget is the public OpenAI API base URL.
const DefaultTarget = "https://api.openai.com/v1"

// Client implements llm.Client over server-sent events.
type Client struct {
	target     string
	model      string
	apiKey     string
	httpClient *http.Client

	// Transcript, when set, receives the raw SSE bytes of every response.
	Transcript io.Writer
}

// New creates a Client. An empty target falls back to DefaultTarget.
func New(target, model, apiKey string, httpClient *http.Client) *Client {
	if target == "" {
		target = DefaultTarget
	}
	return &Client{
		target:     strings.TrimSuffix(target, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (c *Client) Provider() string { return "openai" }

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

	headers := map[string]string{"Accept": "text/event-stream"}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	resp, err := llm.PostJSON(ctx, c.httpClient, c.target+"/chat/completions", headers, req)
	if err != nil {
		return nil, err
	}

	var opts []sse.Option
	if c.Transcript != nil {
		opts = append(opts, sse.WithTee(c.Transcript))
	}

	return &stream{
		body:   resp.Body,
		reader: sse.NewReader(resp.Body, opts...),
	}, nil
}

type stream struct {
	body   io.ReadCloser
	reader *sse.Reader
	done   bool
}

func (s *stream) Recv() (llm.StreamChunk, error) {
	for !s.done {
		ev, err := s.reader.Next()
		if err != nil {
			if err == io.EOF {
				s.done = true
				break
			}
			return llm.StreamChunk{}, fmt.Errorf("failed to read openai stream: %w", err)
		}

		if ev.Done() {
			s.done = true
			break
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			return llm.StreamChunk{}, fmt.Errorf("failed to decode openai chunk: %w", err)
		}
		if chunk.Error != nil {
			return llm.StreamChunk{}, fmt.Errorf("openai: %s", chunk.Error.Message)
		}

		// Role-only and usage-only chunks carry no choices or no text.
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		finished := choice.FinishReason != nil && *choice.FinishReason != ""
		if choice.Delta.Content == "" && !finished {
			continue
		}

		return llm.StreamChunk{
			Model:   chunk.Model,
			Content: choice.Delta.Content,
			Done:    finished,
		}, nil
	}

	return llm.StreamChunk{}, io.EOF
}

func (s *stream) Close() error {
	return s.body.Close()
}

var _ llm.Client = (*Client)(nil)
