package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/treeagent/pkg/storage"
)

// Bucket holds one record per concept, keyed by concept key.
const Bucket = "concepts"

// Store is the concept store. Concepts keep the order they were first
// created in, and every mutation is written through before it returns.
type Store struct {
	mu sync.RWMutex

	driver   storage.Driver
	logger   *zap.Logger
	concepts map[string]*Concept
	order    []string
}

// OpenStore loads the concepts persisted in driver and makes sure ROOT exists.
func OpenStore(ctx context.Context, driver storage.Driver, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		driver:   driver,
		logger:   logger,
		concepts: make(map[string]*Concept),
	}

	records, err := driver.List(ctx, Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to load concepts: %w", err)
	}

	for _, record := range records {
		var c Concept
		if err := json.Unmarshal(record.Value, &c); err != nil {
			return nil, fmt.Errorf("failed to decode concept %s: %w", record.Key, err)
		}
		s.concepts[c.Key] = &c
		s.order = append(s.order, c.Key)
	}

	if _, ok := s.concepts[RootKey]; !ok {
		root := &Concept{Key: RootKey}
		s.concepts[RootKey] = root
		s.order = append(s.order, RootKey)
		if err := s.persist(ctx, root); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Get returns a copy of the concept stored under key.
func (s *Store) Get(key string) (Concept, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.concepts[key]
	if !ok {
		return Concept{}, false
	}
	return c.clone(), true
}

// Concepts returns copies of every concept, ROOT included, in store order.
func (s *Store) Concepts() []Concept {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Concept, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.concepts[key].clone())
	}
	return out
}

// Titles lists every concept key except ROOT in store order.
func (s *Store) Titles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	titles := make([]string, 0, len(s.order))
	for _, key := range s.order {
		if key != RootKey {
			titles = append(titles, key)
		}
	}
	return titles
}

// Upsert sets the content of key, creating the concept hidden when it is new.
func (s *Store) Upsert(ctx context.Context, key, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.concepts[key]
	if !ok {
		c = s.create(key)
	}
	c.Content = content
	return s.persist(ctx, c)
}

// Reveal marks the known keys visible and returns the concepts it revealed.
// Unknown keys and ROOT are ignored.
func (s *Store) Reveal(ctx context.Context, keys ...string) ([]Concept, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var revealed []Concept
	for _, key := range keys {
		c, ok := s.concepts[key]
		if !ok || key == RootKey {
			continue
		}
		c.Show = true
		if err := s.persist(ctx, c); err != nil {
			return nil, err
		}
		revealed = append(revealed, c.clone())
	}
	return revealed, nil
}

// Hide marks keys hidden. Unknown keys are created empty and hidden.
func (s *Store) Hide(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		c, ok := s.concepts[key]
		if !ok {
			c = s.create(key)
		}
		c.Show = false
		if err := s.persist(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// SetRootContent replaces the unsorted text held by ROOT.
func (s *Store) SetRootContent(ctx context.Context, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	root := s.concepts[RootKey]
	root.Content = content
	return s.persist(ctx, root)
}

// ShowMemory renders every visible, non-empty concept in store order,
// separated by a blank line.
func (s *Store) ShowMemory() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var parts []string
	for _, key := range s.order {
		c := s.concepts[key]
		if c.Show && strings.TrimSpace(c.Content) != "" {
			parts = append(parts, c.String())
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

func (s *Store) create(key string) *Concept {
	c := &Concept{Key: key}
	s.concepts[key] = c
	s.order = append(s.order, key)
	return c
}

func (s *Store) persist(ctx context.Context, c *Concept) error {
	value, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode concept %s: %w", c.Key, err)
	}
	if err := s.driver.Put(ctx, Bucket, c.Key, value); err != nil {
		return fmt.Errorf("failed to persist concept %s: %w", c.Key, err)
	}
	s.logger.Debug("concept persisted",
		zap.String("key", c.Key),
		zap.Bool("show", c.Show),
		zap.Int("content_len", len(c.Content)),
	)
	return nil
}
