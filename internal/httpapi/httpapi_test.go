package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rivergate/invoiceflow/internal/cache"
	"github.com/rivergate/invoiceflow/internal/docstore"
	"github.com/rivergate/invoiceflow/internal/domain"
	"github.com/rivergate/invoiceflow/internal/jobstore"
	"github.com/rivergate/invoiceflow/internal/metrics"
	"github.com/rivergate/invoiceflow/internal/queue"
	"github.com/rivergate/invoiceflow/internal/router"
	"github.com/rivergate/invoiceflow/internal/sessions"
	"github.com/rivergate/invoiceflow/internal/tenantstore"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *router.Router {
	t.Helper()
	db, err := docstore.Open(docstore.Config{Path: ":memory:"}, zap.NewNop())
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	tenants := tenantstore.New(db)
	if err := tenants.PutTenant(context.Background(), domain.Tenant{
		TenantID: "tenant-1", Title: "Acme", Status: domain.TenantActive, ApprovedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}

	q := queue.New(queue.Config{MaxRetries: 1, BufferSize: 8}, zap.NewNop())

	return router.New(router.Deps{
		Secret:      "test-secret",
		Queue:       q,
		Tenants:     tenants,
		Onboarding:  sessions.NewOnboardingStore(db),
		ApprovedTTL: cache.New(time.Minute, zap.NewNop()),
		OnboardTTL:  cache.New(time.Minute, zap.NewNop()),
		Logger:      zap.NewNop(),
	})
}

func TestIngestServerWebhookWrongSecretIs404(t *testing.T) {
	rt := newTestRouter(t)
	engine := NewIngestServer(rt, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/webhook/wrong-secret", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestIngestServerWebhookEnqueuesInvoiceCommand(t *testing.T) {
	rt := newTestRouter(t)
	engine := NewIngestServer(rt, zap.NewNop())

	body, _ := json.Marshal(map[string]string{
		"tenant_id": "tenant-1", "user_id": "user-1", "text": "/invoice",
	})
	req := httptest.NewRequest(http.MethodPost, "/webhook/test-secret", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Action != string(router.ActionEnqueued) {
		t.Errorf("action = %q, want %q", resp.Action, router.ActionEnqueued)
	}
}

func TestWorkerServerHealthAndMetrics(t *testing.T) {
	db, err := docstore.Open(docstore.Config{Path: ":memory:"}, zap.NewNop())
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	jobs := jobstore.New(db)
	now := time.Now()
	job := domain.NewJob("tenant-1", "msg-1", domain.JobSource{}, now, now)
	job.Status = domain.JobProcessed
	if err := jobs.Create(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	engine := NewWorkerServer(WorkerDeps{
		Metrics: metrics.New(jobs),
		Logger:  zap.NewNop(),
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("/health status = %d, want %d", rec.Code, http.StatusOK)
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want %d", rec.Code, http.StatusOK)
	}

	var snap metrics.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if snap.CountsByStatus[string(domain.JobProcessed)] != 1 {
		t.Errorf("CountsByStatus[processed] = %d, want 1", snap.CountsByStatus[string(domain.JobProcessed)])
	}
}

func TestIngestServerHealth(t *testing.T) {
	rt := newTestRouter(t)
	engine := NewIngestServer(rt, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
