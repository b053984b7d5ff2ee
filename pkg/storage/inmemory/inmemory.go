// Package inmemory provides a process-local storage.Driver, used by tests and
// by the "memory" storage provider.
package inmemory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/papercomputeco/treeagent/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu is a read write sync mutex for locking the buckets
	mu sync.RWMutex

	// buckets maps a bucket name to its records
	buckets map[string]*bucket
}

type bucket struct {
	values map[string][]byte

	// order holds keys in first-insertion order
	order []string
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		buckets: make(map[string]*bucket),
	}
}

// Put upserts a record. Values are copied so callers may reuse their buffers.
func (s *Driver) Put(_ context.Context, bucketName, key string, value []byte) error {
	if key == "" {
		return errors.New("cannot store record with empty key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(bucketName, key, value)
	return nil
}

func (s *Driver) put(bucketName, key string, value []byte) {
	b, ok := s.buckets[bucketName]
	if !ok {
		b = &bucket{values: make(map[string][]byte)}
		s.buckets[bucketName] = b
	}

	if _, exists := b.values[key]; !exists {
		b.order = append(b.order, key)
	}
	b.values[key] = slices.Clone(value)
}

// Get retrieves a record value by key.
func (s *Driver) Get(_ context.Context, bucketName, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[bucketName]
	if !ok {
		return nil, storage.NotFoundError{Bucket: bucketName, Key: key}
	}

	value, ok := b.values[key]
	if !ok {
		return nil, storage.NotFoundError{Bucket: bucketName, Key: key}
	}

	return slices.Clone(value), nil
}

// Delete removes a record.
func (s *Driver) Delete(_ context.Context, bucketName, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.delete(bucketName, key)
	return nil
}

func (s *Driver) delete(bucketName, key string) {
	b, ok := s.buckets[bucketName]
	if !ok {
		return
	}

	if _, exists := b.values[key]; !exists {
		return
	}

	delete(b.values, key)
	b.order = slices.DeleteFunc(b.order, func(k string) bool { return k == key })
}

// Batch validates every op before applying any of them, under one lock.
func (s *Driver) Batch(_ context.Context, ops []storage.Op) error {
	for _, op := range ops {
		if op.Key == "" {
			return errors.New("cannot store record with empty key")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		if op.Delete {
			s.delete(op.Bucket, op.Key)
			continue
		}
		s.put(op.Bucket, op.Key, op.Value)
	}
	return nil
}

// List returns every record of a bucket in first-insertion order.
func (s *Driver) List(_ context.Context, bucketName string) ([]storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[bucketName]
	if !ok {
		return []storage.Record{}, nil
	}

	records := make([]storage.Record, 0, len(b.order))
	for _, key := range b.order {
		records = append(records, storage.Record{
			Bucket: bucketName,
			Key:    key,
			Value:  slices.Clone(b.values[key]),
		})
	}

	return records, nil
}

// Count returns the number of records in a bucket.
func (s *Driver) Count(bucketName string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[bucketName]
	if !ok {
		return 0
	}
	return len(b.values)
}

// Close is a no-op for the in-memory driver.
func (s *Driver) Close() error {
	return nil
}

var _ storage.Driver = (*Driver)(nil)
