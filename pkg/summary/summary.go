package summary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/treeagent/pkg/llm"
	"github.com/papercomputeco/treeagent/pkg/output"
	"github.com/papercomputeco/treeagent/pkg/prompt"
)

// DefaultMaxRounds bounds how often the model is re-prompted after revealing
// concepts within one AddContent call.
const DefaultMaxRounds = 8

// ErrInvalidRole is returned for content that is neither user nor system text.
var ErrInvalidRole = errors.New("summary content role must be user or system")

// Summarizer feeds new text through the model and folds its answer into the
// concept store.
type Summarizer struct {
	store     *Store
	client    llm.Client
	logger    *zap.Logger
	maxRounds int
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithLogger sets the summarizer logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Summarizer) {
		s.logger = logger
	}
}

// WithMaxRounds overrides DefaultMaxRounds. Values below one are ignored.
func WithMaxRounds(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.maxRounds = n
		}
	}
}

// New creates a Summarizer writing to store.
func New(store *Store, client llm.Client, opts ...Option) *Summarizer {
	s := &Summarizer{
		store:     store,
		client:    client,
		logger:    zap.NewNop(),
		maxRounds: DefaultMaxRounds,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the concept store the summarizer writes to.
func (s *Summarizer) Store() *Store {
	return s.store
}

// AddContent appends text to the unsorted notes and lets the model segment
// them into concepts. Tokens are forwarded to sink as they arrive. It returns
// the visible memory followed by whatever text stayed unsorted.
func (s *Summarizer) AddContent(ctx context.Context, text, role string, sink output.Func) (string, error) {
	if role != llm.RoleUser && role != llm.RoleSystem {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if sink == nil {
		sink = output.Discard
	}

	root, _ := s.store.Get(RootKey)
	pending := strings.TrimSpace(root.Content + "\n" + text)

	var (
		result string
		blocks int
	)
	for round := 1; ; round++ {
		sys, err := prompt.Summary(prompt.SummaryData{Concepts: s.store.Titles()})
		if err != nil {
			return "", err
		}

		messages := []llm.Message{
			llm.NewTextMessage(llm.RoleSystem, sys),
			llm.NewTextMessage(role, pending),
		}
		if result != "" {
			messages = append(messages, llm.NewTextMessage(llm.RoleAssistant, result))
		}

		var revealed bool
		result, revealed, err = s.stream(ctx, messages, result, sink)
		if err != nil {
			return "", err
		}

		var parsed int
		result, parsed, err = s.postParse(ctx, result)
		if err != nil {
			return "", err
		}
		blocks += parsed

		if !revealed {
			break
		}
		if round >= s.maxRounds {
			s.logger.Warn("summary round limit reached", zap.Int("max_rounds", s.maxRounds))
			break
		}
		s.logger.Debug("concepts revealed, prompting again", zap.Int("round", round))
	}

	if err := sink(ctx, output.EndOfTurn); err != nil {
		return "", err
	}

	leftover := pending
	if blocks > 0 {
		_, leftover = ParseBlocks(result)
	}
	if err := s.store.SetRootContent(ctx, leftover); err != nil {
		return "", err
	}

	return s.store.ShowMemory() + "\n" + leftover, nil
}

// stream forwards one completion to sink, stopping early when a show
// directive completes. The directive is replaced inline by the revealed
// concepts.
func (s *Summarizer) stream(ctx context.Context, messages []llm.Message, result string, sink output.Func) (string, bool, error) {
	stream, err := s.client.Stream(ctx, messages)
	if err != nil {
		return result, false, fmt.Errorf("failed to open summary stream: %w", err)
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return result, false, nil
		}
		if err != nil {
			return result, false, fmt.Errorf("summary stream failed: %w", err)
		}
		if chunk.Content == "" {
			continue
		}

		if err := sink(ctx, output.Token(chunk.Content)); err != nil {
			return result, false, err
		}
		result += chunk.Content

		revealed, next, err := s.reveal(ctx, result)
		if err != nil {
			return result, false, err
		}
		if revealed {
			return next, true, nil
		}
	}
}

func (s *Summarizer) reveal(ctx context.Context, content string) (bool, string, error) {
	keys, start, end, ok := ShowDirective(content)
	if !ok {
		return false, content, nil
	}

	concepts, err := s.store.Reveal(ctx, keys...)
	if err != nil {
		return false, content, err
	}

	rendered := make([]string, 0, len(concepts))
	for _, c := range concepts {
		rendered = append(rendered, c.String())
	}

	s.logger.Debug("show directive parsed",
		zap.Strings("keys", keys),
		zap.Int("revealed", len(concepts)),
	)
	return true, content[:start] + strings.Join(rendered, "\n\n") + content[end:], nil
}

// postParse applies hide directives and upserts every titled block.
func (s *Summarizer) postParse(ctx context.Context, content string) (string, int, error) {
	keys, content := HideDirectives(content)
	if len(keys) > 0 {
		if err := s.store.Hide(ctx, keys...); err != nil {
			return content, 0, err
		}
	}

	blocks, _ := ParseBlocks(content)
	for _, b := range blocks {
		if err := s.store.Upsert(ctx, b.Title, b.Body); err != nil {
			return content, 0, err
		}
	}
	return content, len(blocks), nil
}
