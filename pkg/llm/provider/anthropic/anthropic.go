// Package anthropic streams completions from Anthropic's Messages API.
package anthropic

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

const (
	// DefaultTarget is the public Anthropic API base URL.
	DefaultTarget = "https://api.anthropic.com"

	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096
)

// Client implements llm.Client over the Messages API event stream.
type Client struct {
	target     string
	model      string
	apiKey     string
	httpClient *http.Client
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

func (c *Client) Provider() string { return "anthropic" }

func (c *Client) Model() string { return c.model }

// Stream opens a streaming completion. System messages are lifted into the
// top-level system field; consecutive same-role turns are merged because the
// API requires strict user/assistant alternation.
func (c *Client) Stream(ctx context.Context, messages []llm.Message) (llm.Stream, error) {
	req := messagesRequest{
		Model:     c.model,
		MaxTokens: defaultMaxTokens,
		Stream:    true,
	}

	var system []string
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		if n := len(req.Messages); n > 0 && req.Messages[n-1].Role == m.Role {
			req.Messages[n-1].Content += "\n\n" + m.Content
			continue
		}
		req.Messages = append(req.Messages, message{Role: m.Role, Content: m.Content})
	}
	req.System = strings.Join(system, "\n\n")

	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": apiVersion,
		"Accept":            "text/event-stream",
	}

	resp, err := llm.PostJSON(ctx, c.httpClient, c.target+"/v1/messages", headers, req)
	if err != nil {
		return nil, err
	}

	return &stream{body: resp.Body, reader: sse.NewReader(resp.Body)}, nil
}

type stream struct {
	body   io.ReadCloser
	reader *sse.Reader
	model  string
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
			return llm.StreamChunk{}, fmt.Errorf("failed to read anthropic stream: %w", err)
		}

		var data streamEvent
		if err := json.Unmarshal([]byte(ev.Data), &data); err != nil {
			return llm.StreamChunk{}, fmt.Errorf("failed to decode anthropic event: %w", err)
		}

		switch data.Type {
		case "message_start":
			s.model = data.Message.Model
		case "content_block_delta":
			if data.Delta.Type == "text_delta" && data.Delta.Text != "" {
				return llm.StreamChunk{Model: s.model, Content: data.Delta.Text}, nil
			}
		case "message_stop":
			s.done = true
		case "error":
			return llm.StreamChunk{}, fmt.Errorf("anthropic: %s: %s", data.Error.Type, data.Error.Message)
		default:
			// ping, content_block_start, content_block_stop, message_delta
		}
	}

	return llm.StreamChunk{}, io.EOF
}

func (s *stream) Close() error {
	return s.body.Close()
}

var _ llm.Client = (*Client)(nil)
