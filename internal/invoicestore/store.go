// Package invoicestore persists GeneratedInvoice records, the §3 entity
// written by step 5 of the invoice-generation "produce" saga (spec.md
// §4.8).
package invoicestore

import (
	"context"

	"github.com/rivergate/invoiceflow/internal/docstore"
	"github.com/rivergate/invoiceflow/internal/domain"
)

// Store persists GeneratedInvoice documents keyed by their composite id.
type Store struct {
	items *docstore.Collection[domain.GeneratedInvoice]
}

// New builds a Store over the shared document database.
func New(db *docstore.DB) *Store {
	return &Store{items: docstore.NewCollection[domain.GeneratedInvoice](db, "generated_invoices")}
}

// Put writes inv under its composite id.
func (s *Store) Put(ctx context.Context, inv domain.GeneratedInvoice) error {
	return s.items.Put(ctx, inv.ID, inv)
}

// Get reads back a previously written invoice.
func (s *Store) Get(ctx context.Context, tenantID, invoiceNumber string) (domain.GeneratedInvoice, error) {
	return s.items.Get(ctx, domain.GeneratedInvoiceID(tenantID, invoiceNumber))
}
