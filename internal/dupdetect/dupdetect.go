// Package dupdetect implements spec.md §4.7: within one tenant, a newly
// extracted invoice is a candidate duplicate of an existing persisted job
// if vendor name, total amount, and invoice date all match (or, absent an
// invoice date, if vendor and amount match within a 90-day window).
package dupdetect

import (
	"context"
	"strings"
	"time"

	"github.com/rivergate/invoiceflow/internal/domain"
	"github.com/rivergate/invoiceflow/internal/jobstore"
)

// Window bounds how far back a same-vendor/amount match is still considered
// a likely duplicate rather than a coincidental repeat purchase.
const Window = 90 * 24 * time.Hour

// Detector looks up potential duplicates scoped to a single tenant.
type Detector struct {
	jobs *jobstore.Store
}

// New builds a Detector over the job store.
func New(jobs *jobstore.Store) *Detector {
	return &Detector{jobs: jobs}
}

// FindDuplicate returns the first persisted job within tenantID that looks
// like the same invoice as candidate, or ok=false if none match.
func (d *Detector) FindDuplicate(ctx context.Context, tenantID string, candidate domain.Extraction, now time.Time) (domain.IngestJob, bool, error) {
	jobs, err := d.jobs.ListByTenant(ctx, tenantID)
	if err != nil {
		return domain.IngestJob{}, false, err
	}

	for _, job := range jobs {
		if job.Status != domain.JobProcessed {
			continue
		}
		if !sameVendor(job.Extraction.VendorName, candidate.VendorName) {
			continue
		}
		if !sameAmount(job.Extraction.TotalAmount, candidate.TotalAmount) {
			continue
		}
		if candidate.InvoiceDate != "" && job.Extraction.InvoiceDate != "" {
			if job.Extraction.InvoiceDate == candidate.InvoiceDate {
				return job, true, nil
			}
			continue
		}
		if now.Sub(job.CreatedAt) <= Window {
			return job, true, nil
		}
	}
	return domain.IngestJob{}, false, nil
}

func sameVendor(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	return a != "" && a == b
}

func sameAmount(a, b *float64) bool {
	if a == nil || b == nil {
		return false
	}
	const epsilon = 0.01
	diff := *a - *b
	if diff < 0 {
		diff = -diff
	}
	return diff < epsilon
}
