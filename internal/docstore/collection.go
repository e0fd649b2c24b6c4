package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a document does not exist in a collection.
var ErrNotFound = errors.New("docstore: document not found")

// Collection is a typed accessor over one named slice of the documents
// table. T is marshaled to/from JSON; callers never see the JSON blob.
type Collection[T any] struct {
	db   *DB
	name string
}

// NewCollection returns a typed accessor for the named collection.
func NewCollection[T any](db *DB, name string) *Collection[T] {
	return &Collection[T]{db: db, name: name}
}

// Get reads a document by id outside of any transaction.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	row := c.db.sqlDB.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, c.name, id)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("get %s/%s: %w", c.name, id, err)
	}
	var doc T
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return zero, fmt.Errorf("unmarshal %s/%s: %w", c.name, id, err)
	}
	return doc, nil
}

// GetTx reads a document by id within an already-open transaction.
func (c *Collection[T]) GetTx(tx *sql.Tx, id string) (T, error) {
	var zero T
	row := tx.QueryRow(`SELECT data FROM documents WHERE collection = ? AND id = ?`, c.name, id)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("get %s/%s: %w", c.name, id, err)
	}
	var doc T
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return zero, fmt.Errorf("unmarshal %s/%s: %w", c.name, id, err)
	}
	return doc, nil
}

// Put upserts a document by id outside of any transaction.
func (c *Collection[T]) Put(ctx context.Context, id string, doc T) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", c.name, id, err)
	}
	now := time.Now().UTC()
	_, err = c.db.sqlDB.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, c.name, id, string(raw), now, now)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", c.name, id, err)
	}
	return nil
}

// PutTx upserts a document by id within an already-open transaction.
func (c *Collection[T]) PutTx(tx *sql.Tx, id string, doc T) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", c.name, id, err)
	}
	now := time.Now().UTC()
	_, err = tx.Exec(`
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, c.name, id, string(raw), now, now)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", c.name, id, err)
	}
	return nil
}

// Delete removes a document by id outside of any transaction. Deleting a
// document that does not exist is not an error.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	_, err := c.db.sqlDB.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, c.name, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", c.name, id, err)
	}
	return nil
}

// DeleteTx removes a document by id within an already-open transaction.
func (c *Collection[T]) DeleteTx(tx *sql.Tx, id string) error {
	_, err := tx.Exec(`DELETE FROM documents WHERE collection = ? AND id = ?`, c.name, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", c.name, id, err)
	}
	return nil
}

// Query runs predicate over every document in the collection and returns
// the ones that match. Collections in this store are small enough per
// tenant (bounded by spec.md's 90-day duplicate window and per-tenant
// isolation) that a full scan with an in-process predicate is simpler and
// just as correct as hand-rolling per-field SQL predicates for every
// collection type.
func (c *Collection[T]) Query(ctx context.Context, predicate func(T) bool) ([]T, error) {
	rows, err := c.db.sqlDB.QueryContext(ctx, `SELECT data FROM documents WHERE collection = ?`, c.name)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.name, err)
		}
		var doc T
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", c.name, err)
		}
		if predicate == nil || predicate(doc) {
			out = append(out, doc)
		}
	}
	return out, rows.Err()
}
