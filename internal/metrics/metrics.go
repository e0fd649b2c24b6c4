// Package metrics implements the read-only report reader SPEC_FULL.md
// allocates from spec.md §2's component table: job counts by status, recent
// failures, and cost totals by provider, aggregated on demand from the
// ingest_jobs collection rather than tracked incrementally. Grounded on the
// teacher's internal/application/service/audit_service.go read-model
// aggregation over persisted entities.
package metrics

import (
	"context"
	"sort"

	"github.com/rivergate/invoiceflow/internal/domain"
	"github.com/rivergate/invoiceflow/internal/jobstore"
)

// RecentFailuresLimit bounds how many recent failures the snapshot reports.
const RecentFailuresLimit = 20

// Failure is one terminally-failed or rejected job, summarized for display.
type Failure struct {
	JobID     string `json:"jobId"`
	TenantID  string `json:"tenantId"`
	Status    string `json:"status"`
	LastStep  string `json:"lastStep"`
	LastError string `json:"lastError"`
	UpdatedAt string `json:"updatedAt"`
}

// Snapshot is the aggregation GET /metrics returns.
type Snapshot struct {
	CountsByStatus map[string]int    `json:"countsByStatus"`
	CostByProvider map[string]float64 `json:"costByProvider"`
	RecentFailures []Failure         `json:"recentFailures"`
}

// Reader computes a Snapshot on demand from the job store.
type Reader struct {
	jobs *jobstore.Store
}

// New builds a Reader.
func New(jobs *jobstore.Store) *Reader {
	return &Reader{jobs: jobs}
}

// Snapshot scans every job and aggregates counts, cost, and recent failures.
// This module's job volume is bounded by the same per-tenant isolation and
// retention assumptions internal/docstore's Query already accepts a full
// scan for; a dedicated metrics table is not worth the write-path
// complexity at this scale.
func (r *Reader) Snapshot(ctx context.Context) (Snapshot, error) {
	jobs, err := r.jobs.All(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		CountsByStatus: make(map[string]int),
		CostByProvider: make(map[string]float64),
	}

	var failures []Failure
	for _, job := range jobs {
		snap.CountsByStatus[string(job.Status)]++
		if job.Decision.Provider != "" {
			snap.CostByProvider[string(job.Decision.Provider)] += job.Decision.CostUSD
		}
		if job.Status == domain.JobFailed || job.Status == domain.JobRejected {
			failures = append(failures, Failure{
				JobID: job.ID, TenantID: job.TenantID, Status: string(job.Status),
				LastStep: string(job.Progress.LastStep), LastError: job.Progress.LastError,
				UpdatedAt: job.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].UpdatedAt > failures[j].UpdatedAt })
	if len(failures) > RecentFailuresLimit {
		failures = failures[:RecentFailuresLimit]
	}
	snap.RecentFailures = failures

	return snap, nil
}
