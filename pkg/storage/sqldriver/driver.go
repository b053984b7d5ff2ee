// Package sqldriver provides the database/sql backed storage.Driver shared by
// the sqlite and postgres packages.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/papercomputeco/treeagent/pkg/storage"
)

// Dialect holds the statements that differ between SQL backends.
type Dialect struct {
	// Name is used in error messages (e.g. "sqlite", "postgres")
	Name string

	// Schema creates the records table if it doesn't exist.
	Schema string

	// Upsert inserts or updates (bucket, key, value), leaving seq untouched
	// on conflict.
	Upsert string

	// Select reads a single value by (bucket, key).
	Select string

	// Delete removes a single (bucket, key).
	Delete string

	// List reads (key, value) for a bucket ordered by seq.
	List string
}

// Driver implements storage.Driver over a *sql.DB.
type Driver struct {
	DB      *sql.DB
	Dialect Dialect
}

// New wraps db and runs the dialect schema migration.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Driver, error) {
	if _, err := db.ExecContext(ctx, dialect.Schema); err != nil {
		return nil, fmt.Errorf("failed to create %s schema: %w", dialect.Name, err)
	}

	return &Driver{DB: db, Dialect: dialect}, nil
}

// Put upserts a record.
func (d *Driver) Put(ctx context.Context, bucket, key string, value []byte) error {
	if key == "" {
		return errors.New("cannot store record with empty key")
	}

	if value == nil {
		value = []byte{}
	}

	if _, err := d.DB.ExecContext(ctx, d.Dialect.Upsert, bucket, key, value); err != nil {
		return fmt.Errorf("failed to upsert %s/%s: %w", bucket, key, err)
	}

	return nil
}

// Get retrieves a record value by key.
func (d *Driver) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	var value []byte
	err := d.DB.QueryRowContext(ctx, d.Dialect.Select, bucket, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Bucket: bucket, Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", bucket, key, err)
	}

	return value, nil
}

// Delete removes a record.
func (d *Driver) Delete(ctx context.Context, bucket, key string) error {
	if _, err := d.DB.ExecContext(ctx, d.Dialect.Delete, bucket, key); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", bucket, key, err)
	}

	return nil
}

// Batch applies ops inside one transaction.
func (d *Driver) Batch(ctx context.Context, ops []storage.Op) (err error) {
	for _, op := range ops {
		if op.Key == "" {
			return errors.New("cannot store record with empty key")
		}
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin %s transaction: %w", d.Dialect.Name, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, op := range ops {
		if op.Delete {
			if _, err = tx.ExecContext(ctx, d.Dialect.Delete, op.Bucket, op.Key); err != nil {
				return fmt.Errorf("failed to delete %s/%s: %w", op.Bucket, op.Key, err)
			}
			continue
		}

		value := op.Value
		if value == nil {
			value = []byte{}
		}
		if _, err = tx.ExecContext(ctx, d.Dialect.Upsert, op.Bucket, op.Key, value); err != nil {
			return fmt.Errorf("failed to upsert %s/%s: %w", op.Bucket, op.Key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s transaction: %w", d.Dialect.Name, err)
	}
	return nil
}

// List returns every record of a bucket in first-insertion order.
func (d *Driver) List(ctx context.Context, bucket string) ([]storage.Record, error) {
	rows, err := d.DB.QueryContext(ctx, d.Dialect.List, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to query bucket %s: %w", bucket, err)
	}
	defer rows.Close()

	records := []storage.Record{}
	for rows.Next() {
		record := storage.Record{Bucket: bucket}
		if err := rows.Scan(&record.Key, &record.Value); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.DB.Close()
}

var _ storage.Driver = (*Driver)(nil)
