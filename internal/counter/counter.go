// Package counter atomically assigns the next invoice number per tenant and
// year, per spec.md §4.9. Grounded on
// other_examples/2e14a027_langazov-ims-erp's MongoDB
// findOneAndUpdate-with-upsert counter (CounterDocument keyed by
// "{tenantID}-{year}", $inc the sequence, return the post-increment value),
// translated onto docstore's BEGIN IMMEDIATE transaction since SQLite has no
// findOneAndUpdate primitive of its own.
package counter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rivergate/invoiceflow/internal/docstore"
	"github.com/rivergate/invoiceflow/internal/domain"
)

const collection = "invoice_counters"

// Store assigns sequential invoice numbers.
type Store struct {
	db    *docstore.DB
	items *docstore.Collection[domain.InvoiceCounter]
}

// New builds a Store over the shared document database.
func New(db *docstore.DB) *Store {
	return &Store{db: db, items: docstore.NewCollection[domain.InvoiceCounter](db, collection)}
}

// Next atomically increments and returns the counter for tenantID in year,
// along with the formatted invoice number "{year}{counter}" spec.md §4.9
// specifies: a year prefix and a decimal counter with no separator and no
// zero-padding.
func (s *Store) Next(ctx context.Context, tenantID string, year int, now time.Time) (int64, string, error) {
	id := domain.CounterID(tenantID, year)

	var sequence int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.items.GetTx(tx, id)
		if err != nil {
			if !errors.Is(err, docstore.ErrNotFound) {
				return err
			}
			existing = domain.InvoiceCounter{ID: id, TenantID: tenantID, Year: year}
		}

		existing.Counter++
		existing.LastUpdated = now
		if err := s.items.PutTx(tx, id, existing); err != nil {
			return err
		}
		sequence = existing.Counter
		return nil
	})
	if err != nil {
		return 0, "", err
	}

	return sequence, fmt.Sprintf("%d%d", year, sequence), nil
}

// Initialize seeds the year's counter document at n, per spec.md §4.9's
// initializeCounter. Races with a concurrent Next call are safe: both go
// through the same BEGIN IMMEDIATE transaction, so whichever commits second
// simply sees the other's write.
func (s *Store) Initialize(ctx context.Context, tenantID string, year int, n int64, now time.Time) error {
	id := domain.CounterID(tenantID, year)
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return s.items.PutTx(tx, id, domain.InvoiceCounter{
			ID: id, TenantID: tenantID, Year: year, Counter: n, LastUpdated: now,
		})
	})
}

// Current returns the counter's present value without incrementing it.
func (s *Store) Current(ctx context.Context, tenantID string, year int) (int64, error) {
	doc, err := s.items.Get(ctx, domain.CounterID(tenantID, year))
	if errors.Is(err, docstore.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.Counter, nil
}
