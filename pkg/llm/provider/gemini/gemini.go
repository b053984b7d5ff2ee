// Package gemini streams completions from Google's Gemini models through the
// genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"google.golang.org/genai"

	"github.com/papercomputeco/treeagent/pkg/llm"
)

// DefaultModel is used when configuration leaves the model empty.
const DefaultModel = "gemini-2.5-flash"

// Client implements llm.Client with genai.Client.Models.GenerateContentStream.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a Client for the Gemini API. A non-empty target overrides the
// API base URL (used against local emulators and in tests).
func New(ctx context.Context, target, model, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if target != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: target}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

func (c *Client) Provider() string { return "gemini" }

func (c *Client) Model() string { return c.model }

// Stream opens a streaming completion. System messages become the system
// instruction and assistant turns map to the "model" role.
func (c *Client) Stream(ctx context.Context, messages []llm.Message) (llm.Stream, error) {
	contents, system := toContents(messages)

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	ctx, cancel := context.WithCancel(ctx)
	next, stop := iter.Pull2(c.client.Models.GenerateContentStream(ctx, c.model, contents, config))

	return &stream{next: next, stop: stop, cancel: cancel, model: c.model}, nil
}

func toContents(messages []llm.Message) ([]*genai.Content, string) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, m.Content)
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, strings.Join(system, "\n\n")
}

type stream struct {
	next   func() (*genai.GenerateContentResponse, error, bool)
	stop   func()
	cancel context.CancelFunc
	model  string
}

func (s *stream) Recv() (llm.StreamChunk, error) {
	for {
		resp, err, ok := s.next()
		if !ok {
			return llm.StreamChunk{}, io.EOF
		}
		if err != nil {
			return llm.StreamChunk{}, fmt.Errorf("gemini stream failed: %w", err)
		}

		text := resp.Text()
		if text == "" {
			continue
		}
		return llm.StreamChunk{Model: s.model, Content: text}, nil
	}
}

func (s *stream) Close() error {
	s.cancel()
	s.stop()
	return nil
}

var _ llm.Client = (*Client)(nil)
