// Package jobstore persists domain.IngestJob and implements the atomic
// claim operation spec.md §4.3 step 0 requires: a job is claimed for
// processing by one worker at a time, with stale leases (in-flight longer
// than staleLeaseThreshold) recovered rather than stuck forever. Grounded on
// docstore's BEGIN IMMEDIATE transaction primitive, the same
// read-modify-write-under-lock shape the teacher's pkg/database/sqlite.go
// migration runner relies on for its own schema-version bookkeeping.
package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rivergate/invoiceflow/internal/docstore"
	"github.com/rivergate/invoiceflow/internal/domain"
)

const collection = "ingest_jobs"

// staleLeaseThreshold is how long a job may sit in JobProcessing before a
// claim attempt is allowed to recover it, per spec.md §4.3 step 0.
const staleLeaseThreshold = 10 * time.Minute

// ErrAlreadyClaimed is returned when a job exists but is not eligible to be
// claimed (already terminal, or actively leased by another worker).
var ErrAlreadyClaimed = errors.New("jobstore: job already claimed")

// Store is the job persistence and claim contract.
type Store struct {
	db    *docstore.DB
	items *docstore.Collection[domain.IngestJob]
}

// New builds a Store over the shared document database.
func New(db *docstore.DB) *Store {
	return &Store{db: db, items: docstore.NewCollection[domain.IngestJob](db, collection)}
}

// Create inserts a brand new job. If a job with the same id already exists it
// is left unchanged and Create returns nil, making enqueue idempotent against
// webhook redelivery.
func (s *Store) Create(ctx context.Context, job *domain.IngestJob) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := s.items.GetTx(tx, job.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		return s.items.PutTx(tx, job.ID, *job)
	})
}

// Get reads a job by id.
func (s *Store) Get(ctx context.Context, id string) (domain.IngestJob, error) {
	return s.items.Get(ctx, id)
}

// Claim atomically transitions a job from an available state
// (JobPendingRetry, or a stale JobProcessing) into JobProcessing and bumps
// its attempt counter, so exactly one caller wins the race when the same
// job is delivered more than once at the same time.
func (s *Store) Claim(ctx context.Context, id string, now time.Time) (domain.IngestJob, error) {
	var claimed domain.IngestJob
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		job, err := s.items.GetTx(tx, id)
		if err != nil {
			return err
		}

		switch job.Status {
		case domain.JobPendingRetry:
			// eligible
		case domain.JobProcessing:
			if now.Sub(job.UpdatedAt) < staleLeaseThreshold {
				return ErrAlreadyClaimed
			}
			// lease expired; recover it
		default:
			return ErrAlreadyClaimed
		}

		job.Status = domain.JobProcessing
		job.Attempts++
		job.UpdatedAt = now
		if err := s.items.PutTx(tx, id, job); err != nil {
			return err
		}
		claimed = job
		return nil
	})
	if err != nil {
		return domain.IngestJob{}, err
	}
	return claimed, nil
}

// Update persists the given job as-is; callers are expected to have already
// produced the correct next state (see internal/pipeline).
func (s *Store) Update(ctx context.Context, job domain.IngestJob) error {
	return s.items.Put(ctx, job.ID, job)
}

// ClaimNewJob inserts and immediately claims a freshly created job in one
// transaction; it returns an error if a job with the same id already exists.
func (s *Store) ClaimNewJob(ctx context.Context, job domain.IngestJob) (domain.IngestJob, error) {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.items.GetTx(tx, job.ID); err == nil {
			return fmt.Errorf("jobstore: job %s already exists", job.ID)
		} else if !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		job.Status = domain.JobProcessing
		job.Attempts = 1
		return s.items.PutTx(tx, job.ID, job)
	})
	if err != nil {
		return domain.IngestJob{}, err
	}
	return job, nil
}

// ListStaleLeases returns jobs stuck in JobProcessing past the stale lease
// threshold.
func (s *Store) ListStaleLeases(ctx context.Context, now time.Time) ([]domain.IngestJob, error) {
	return s.items.Query(ctx, func(job domain.IngestJob) bool {
		return job.Status == domain.JobProcessing && now.Sub(job.UpdatedAt) >= staleLeaseThreshold
	})
}

// ListByTenant returns every job for a tenant, for the metrics reader and
// for duplicate lookups scoped to that tenant only.
func (s *Store) ListByTenant(ctx context.Context, tenantID string) ([]domain.IngestJob, error) {
	return s.items.Query(ctx, func(job domain.IngestJob) bool {
		return job.TenantID == tenantID
	})
}

// All returns every job across every tenant, for the cross-tenant metrics
// aggregation spec.md §9's "report/metrics reader" describes.
func (s *Store) All(ctx context.Context) ([]domain.IngestJob, error) {
	return s.items.Query(ctx, nil)
}
