// Package storage defines the durable key-value persistence used by the
// memory tree, the concept store and the response cache.
package storage

import (
	"context"
)

// Record is a single stored value.
type Record struct {
	// Bucket namespaces keys per component (e.g. "memory", "concepts").
	Bucket string `json:"bucket"`

	// Key is unique within its bucket.
	Key string `json:"key"`

	// Value is the opaque, usually JSON encoded, payload.
	Value []byte `json:"value"`
}

// Op is one write of a Batch. Delete removes the key and ignores Value.
type Op struct {
	Bucket string
	Key    string
	Value  []byte
	Delete bool
}

// Driver defines the interface for persisting and retrieving records in a storage backend.
//
// Every call is synchronous: once Put or Delete returns without error the
// mutation is durable for the backend in use.
type Driver interface {
	// Put upserts a record. A key keeps the position of its first insertion
	// in List order when it is overwritten.
	Put(ctx context.Context, bucket, key string, value []byte) error

	// Get retrieves a record value by key. Returns NotFoundError if it
	// doesn't exist.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Delete removes a record. Deleting a missing key is a no-op.
	Delete(ctx context.Context, bucket, key string) error

	// Batch applies ops in order as a single unit: either every op is
	// durable or none is.
	Batch(ctx context.Context, ops []Op) error

	// List returns every record of a bucket in first-insertion order.
	List(ctx context.Context, bucket string) ([]Record, error)

	// Close closes the store and releases any resources.
	Close() error
}
