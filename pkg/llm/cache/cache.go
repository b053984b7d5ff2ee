// Package cache wraps an llm.Client so identical requests replay a recorded
// response instead of reaching the provider. Together with the fixed clock
// it makes agent runs reproducible.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/papercomputeco/treeagent/pkg/llm"
	"github.com/papercomputeco/treeagent/pkg/storage"
)

// Bucket holds recorded responses keyed by request hash.
const Bucket = "llm_cache"

// Client is a caching llm.Client.
type Client struct {
	upstream llm.Client
	driver   storage.Driver
	logger   *zap.Logger
}

// New wraps upstream with a response cache persisted in driver.
func New(upstream llm.Client, driver storage.Driver, logger *zap.Logger) *Client {
	return &Client{upstream: upstream, driver: driver, logger: logger}
}

// Key returns the cache key for a request: the hex SHA-256 of its JSON form.
func (c *Client) Key(messages []llm.Message) (string, error) {
	req := llm.ChatRequest{Messages: messages}
	if named, ok := c.upstream.(llm.Named); ok {
		req.Provider = named.Provider()
		req.Model = named.Model()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache key: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Stream replays a recorded response on a hit. On a miss it streams from the
// upstream client and records the chunks as they pass through.
func (c *Client) Stream(ctx context.Context, messages []llm.Message) (llm.Stream, error) {
	key, err := c.Key(messages)
	if err != nil {
		return nil, err
	}

	value, err := c.driver.Get(ctx, Bucket, key)
	switch {
	case err == nil:
		var chunks []string
		if err := json.Unmarshal(value, &chunks); err != nil {
			return nil, fmt.Errorf("failed to decode cached response %s: %w", key, err)
		}
		c.logger.Debug("llm cache hit", zap.String("key", key), zap.Int("chunks", len(chunks)))
		return &replay{chunks: chunks}, nil
	case !errors.As(err, new(storage.NotFoundError)):
		return nil, fmt.Errorf("failed to read llm cache: %w", err)
	}

	c.logger.Debug("llm cache miss", zap.String("key", key))
	upstream, err := c.upstream.Stream(ctx, messages)
	if err != nil {
		return nil, err
	}

	return &recorder{
		ctx:      ctx,
		key:      key,
		upstream: upstream,
		client:   c,
	}, nil
}

// replay yields recorded chunks.
type replay struct {
	chunks []string
	pos    int
}

func (r *replay) Recv() (llm.StreamChunk, error) {
	if r.pos >= len(r.chunks) {
		return llm.StreamChunk{}, io.EOF
	}
	chunk := llm.StreamChunk{Content: r.chunks[r.pos]}
	r.pos++
	return chunk, nil
}

func (r *replay) Close() error { return nil }

// recorder forwards upstream chunks and stores them once the response is
// complete. A response abandoned by Close is drained first so the stored
// entry is always the whole answer; a failed response is never stored.
type recorder struct {
	ctx      context.Context
	key      string
	upstream llm.Stream
	client   *Client

	chunks []string
	done   bool
	failed bool
	closed bool
}

func (r *recorder) Recv() (llm.StreamChunk, error) {
	if r.done {
		return llm.StreamChunk{}, io.EOF
	}

	chunk, err := r.upstream.Recv()
	if errors.Is(err, io.EOF) {
		r.done = true
		return llm.StreamChunk{}, io.EOF
	}
	if err != nil {
		r.failed = true
		return llm.StreamChunk{}, err
	}

	if chunk.Content != "" {
		r.chunks = append(r.chunks, chunk.Content)
	}
	return chunk, nil
}

func (r *recorder) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	defer r.upstream.Close()

	for !r.done && !r.failed {
		if _, err := r.Recv(); err != nil && !errors.Is(err, io.EOF) {
			r.client.logger.Warn("llm cache drain failed", zap.String("key", r.key), zap.Error(err))
		}
	}
	if r.failed {
		return nil
	}

	value, err := json.Marshal(r.chunks)
	if err != nil {
		return fmt.Errorf("failed to encode llm cache entry: %w", err)
	}
	if err := r.client.driver.Put(context.WithoutCancel(r.ctx), Bucket, r.key, value); err != nil {
		return fmt.Errorf("failed to store llm cache entry: %w", err)
	}
	return nil
}

var _ llm.Client = (*Client)(nil)
