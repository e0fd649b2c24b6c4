package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/rivergate/invoiceflow/internal/docstore"
	"github.com/rivergate/invoiceflow/internal/domain"
	"github.com/rivergate/invoiceflow/internal/jobstore"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *docstore.DB {
	t.Helper()
	db, err := docstore.Open(docstore.Config{Path: ":memory:"}, zap.NewNop())
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSnapshotAggregatesCountsAndCost(t *testing.T) {
	db := openTestDB(t)
	jobs := jobstore.New(db)
	ctx := context.Background()
	now := time.Now()

	processed := domain.NewJob("tenant-a", "msg-1", domain.JobSource{}, now, now)
	processed.Status = domain.JobProcessed
	processed.Decision = domain.Decision{Provider: domain.ProviderPrimary, CostUSD: 0.05}
	if err := jobs.Create(ctx, processed); err != nil {
		t.Fatalf("create processed job: %v", err)
	}

	failed := domain.NewJob("tenant-b", "msg-2", domain.JobSource{}, now, now)
	failed.Status = domain.JobFailed
	failed.Progress = domain.JobProgress{LastStep: domain.StepLLM, LastError: "boom"}
	if err := jobs.Create(ctx, failed); err != nil {
		t.Fatalf("create failed job: %v", err)
	}

	reader := New(jobs)
	snap, err := reader.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if snap.CountsByStatus[string(domain.JobProcessed)] != 1 {
		t.Errorf("CountsByStatus[processed] = %d, want 1", snap.CountsByStatus[string(domain.JobProcessed)])
	}
	if snap.CountsByStatus[string(domain.JobFailed)] != 1 {
		t.Errorf("CountsByStatus[failed] = %d, want 1", snap.CountsByStatus[string(domain.JobFailed)])
	}
	if snap.CostByProvider[string(domain.ProviderPrimary)] != 0.05 {
		t.Errorf("CostByProvider[primary] = %v, want 0.05", snap.CostByProvider[string(domain.ProviderPrimary)])
	}
	if len(snap.RecentFailures) != 1 || snap.RecentFailures[0].JobID != failed.ID {
		t.Errorf("RecentFailures = %+v, want one entry for %s", snap.RecentFailures, failed.ID)
	}
}
