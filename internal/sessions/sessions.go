// Package sessions persists the three pieces of short-lived conversational
// state spec.md §3 names: OnboardingSession, InvoiceGenSession, and
// CallbackDedup. Each is a thin docstore.Collection wrapper; none needs
// transactional claim semantics the way jobstore and counter do, since only
// one chat user drives any single session at a time.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/rivergate/invoiceflow/internal/docstore"
	"github.com/rivergate/invoiceflow/internal/domain"
)

// OnboardingStore persists onboarding FSM state.
type OnboardingStore struct {
	items *docstore.Collection[domain.OnboardingSession]
}

// NewOnboardingStore builds an OnboardingStore.
func NewOnboardingStore(db *docstore.DB) *OnboardingStore {
	return &OnboardingStore{items: docstore.NewCollection[domain.OnboardingSession](db, "onboarding_sessions")}
}

func (s *OnboardingStore) Get(ctx context.Context, tenantID, userID string) (domain.OnboardingSession, error) {
	return s.items.Get(ctx, tenantID+"_"+userID)
}

func (s *OnboardingStore) Put(ctx context.Context, session domain.OnboardingSession) error {
	return s.items.Put(ctx, session.TenantID+"_"+session.UserID, session)
}

func (s *OnboardingStore) Delete(ctx context.Context, tenantID, userID string) error {
	return s.items.Delete(ctx, tenantID+"_"+userID)
}

// InvoiceGenStore persists invoice-authoring FSM state.
type InvoiceGenStore struct {
	items *docstore.Collection[domain.InvoiceGenSession]
}

// NewInvoiceGenStore builds an InvoiceGenStore.
func NewInvoiceGenStore(db *docstore.DB) *InvoiceGenStore {
	return &InvoiceGenStore{items: docstore.NewCollection[domain.InvoiceGenSession](db, "invoicegen_sessions")}
}

func (s *InvoiceGenStore) Get(ctx context.Context, tenantID, userID string) (domain.InvoiceGenSession, error) {
	return s.items.Get(ctx, domain.InvoiceGenSessionID(tenantID, userID))
}

func (s *InvoiceGenStore) Put(ctx context.Context, session domain.InvoiceGenSession) error {
	return s.items.Put(ctx, session.ID, session)
}

func (s *InvoiceGenStore) Delete(ctx context.Context, tenantID, userID string) error {
	return s.items.Delete(ctx, domain.InvoiceGenSessionID(tenantID, userID))
}

// ListStale returns every invoice-gen session past its TTL.
func (s *InvoiceGenStore) ListStale(ctx context.Context, now time.Time) ([]domain.InvoiceGenSession, error) {
	return s.items.Query(ctx, func(sess domain.InvoiceGenSession) bool {
		return sess.Stale(now)
	})
}

// CallbackDedupStore remembers which inline-button callback ids have
// already been handled, so a duplicate delivery from the chat platform
// cannot double-process a duplicate-resolution or invoice-gen confirmation.
type CallbackDedupStore struct {
	items *docstore.Collection[domain.CallbackDedup]
}

// NewCallbackDedupStore builds a CallbackDedupStore.
func NewCallbackDedupStore(db *docstore.DB) *CallbackDedupStore {
	return &CallbackDedupStore{items: docstore.NewCollection[domain.CallbackDedup](db, "callback_dedup")}
}

// ErrAlreadyProcessed is returned by MarkProcessed when the callback id has
// already been recorded.
var ErrAlreadyProcessed = errors.New("sessions: callback already processed")

// MarkProcessed records updateID as handled, or returns ErrAlreadyProcessed
// if it was already recorded and not yet expired.
func (s *CallbackDedupStore) MarkProcessed(ctx context.Context, updateID string, now time.Time) error {
	existing, err := s.items.Get(ctx, updateID)
	if err == nil && existing.ExpiresAt.After(now) {
		return ErrAlreadyProcessed
	}
	return s.items.Put(ctx, updateID, domain.CallbackDedup{
		UpdateID:    updateID,
		ProcessedAt: now,
		ExpiresAt:   now.Add(domain.CallbackDedupTTL),
	})
}

// SweepExpired removes callback dedup records past their TTL.
func (s *CallbackDedupStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.items.Query(ctx, func(d domain.CallbackDedup) bool {
		return !d.ExpiresAt.After(now)
	})
	if err != nil {
		return 0, err
	}
	for _, d := range expired {
		if err := s.items.Delete(ctx, d.UpdateID); err != nil {
			return 0, err
		}
	}
	return len(expired), nil
}
