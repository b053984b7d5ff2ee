// Package pool provides an asynchronous worker pool that hands node events to
// a downstream eventstream.Publisher.
//
// The pool decouples publishing from the agent's dispatch loop so a slow or
// unavailable broker never delays a turn.
package pool

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/treeagent/pkg/eventstream"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives every event pulled off the queue.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered event channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool publishes node events asynchronously via a worker pool.
// It satisfies eventstream.Publisher itself.
type Pool struct {
	config *Config
	queue  chan *eventstream.NodeCompletedEvent
	wg     sync.WaitGroup
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, fmt.Errorf("pool requires a publisher")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan *eventstream.NodeCompletedEvent, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits an event for publishing.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the event being dropped.
func (p *Pool) Enqueue(event *eventstream.NodeCompletedEvent) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("event not queued, pool closed", zap.String("event_id", event.EventID))
		return false
	}

	select {
	case p.queue <- event:
		p.logger.Debug("event queued",
			zap.String("event_id", event.EventID),
			zap.Int64("node_id", event.Node.ID),
		)
		return true
	default:
		p.logger.Error("event not queued, queue full, event dropped",
			zap.String("event_id", event.EventID),
			zap.Int64("node_id", event.Node.ID),
		)
		return false
	}
}

// PublishNode enqueues the event without blocking. A full queue is logged and
// is not an error for the caller.
func (p *Pool) PublishNode(_ context.Context, event *eventstream.NodeCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	p.Enqueue(event)
	return nil
}

// Close stops accepting events, waits for queued events to drain, and closes
// the downstream publisher.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.config.Publisher.Close()
}

// worker is the inner worker thread that continuously pulls events off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for event := range p.queue {
		p.publish(event)
	}

	p.logger.Debug("event worker stopped", zap.Uint("worker_id", id))
}

func (p *Pool) publish(event *eventstream.NodeCompletedEvent) {
	if err := p.config.Publisher.PublishNode(context.Background(), event); err != nil {
		p.logger.Error("async event publish failed",
			zap.String("event_id", event.EventID),
			zap.String("run_id", event.RunID),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug("event published",
		zap.String("event_id", event.EventID),
		zap.Int64("node_id", event.Node.ID),
	)
}
