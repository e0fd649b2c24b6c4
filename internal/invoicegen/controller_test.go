package invoicegen

import (
	"context"
	"testing"
	"time"

	"github.com/rivergate/invoiceflow/internal/docstore"
	"github.com/rivergate/invoiceflow/internal/domain"
	"github.com/rivergate/invoiceflow/internal/i18n"
	"github.com/rivergate/invoiceflow/internal/sessions"
	"github.com/rivergate/invoiceflow/internal/tenantstore"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestController(t *testing.T) (*Controller, *tenantstore.Store, *sessions.InvoiceGenStore) {
	t.Helper()
	db, err := docstore.Open(docstore.Config{Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tenants := tenantstore.New(db)
	sess := sessions.NewInvoiceGenStore(db)
	ctl := New(Deps{
		Sessions: sess, Tenants: tenants, Catalog: i18n.NewFromDefaults(), Logger: zap.NewNop(),
	})
	return ctl, tenants, sess
}

func TestControllerStartCommandCreatesSelectTypeSession(t *testing.T) {
	ctl, _, sess := newTestController(t)
	now := time.Now()

	reply, err := ctl.StartCommand(context.Background(), "tenant-1", "user-1", now)
	require.NoError(t, err)
	require.NotEmpty(t, reply)

	session, err := sess.Get(context.Background(), "tenant-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, domain.GenSelectType, session.Status)
}

func TestControllerHandleMessageAdvancesThroughSteps(t *testing.T) {
	ctl, _, sess := newTestController(t)
	ctx := context.Background()
	now := time.Now()

	_, err := ctl.StartCommand(ctx, "tenant-1", "user-1", now)
	require.NoError(t, err)

	reply, err := ctl.HandleMessage(ctx, "tenant-1", "user-1", "invoice", now)
	require.NoError(t, err)
	require.NotEmpty(t, reply)
	session, err := sess.Get(ctx, "tenant-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, domain.GenAwaitingDetails, session.Status)

	reply, err = ctl.HandleMessage(ctx, "tenant-1", "user-1", "Acme Corp, 150.50, office chairs", now)
	require.NoError(t, err)
	require.NotEmpty(t, reply)
	session, err = sess.Get(ctx, "tenant-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, domain.GenAwaitingPayment, session.Status)
	require.Equal(t, "Acme Corp", session.Customer.Name)
	require.InDelta(t, 150.50, session.Amount, 0.001)

	reply, err = ctl.HandleMessage(ctx, "tenant-1", "user-1", "cash", now)
	require.NoError(t, err)
	require.Contains(t, reply, "Confirm")
	session, err = sess.Get(ctx, "tenant-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, domain.GenConfirming, session.Status)
	require.Equal(t, domain.PaymentCash, session.PaymentMethod)
}

func TestControllerHandleMessageRejectsInvalidDocumentType(t *testing.T) {
	ctl, _, sess := newTestController(t)
	ctx := context.Background()
	now := time.Now()

	_, err := ctl.StartCommand(ctx, "tenant-1", "user-1", now)
	require.NoError(t, err)

	reply, err := ctl.HandleMessage(ctx, "tenant-1", "user-1", "not-a-type", now)
	require.NoError(t, err)
	require.NotEmpty(t, reply)

	session, err := sess.Get(ctx, "tenant-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, domain.GenSelectType, session.Status, "invalid input must not advance the step")
}

func TestControllerHandleMessageRejectsMalformedDetails(t *testing.T) {
	ctl, _, sess := newTestController(t)
	ctx := context.Background()
	now := time.Now()

	_, err := ctl.StartCommand(ctx, "tenant-1", "user-1", now)
	require.NoError(t, err)
	_, err = ctl.HandleMessage(ctx, "tenant-1", "user-1", "invoice", now)
	require.NoError(t, err)

	reply, err := ctl.HandleMessage(ctx, "tenant-1", "user-1", "missing fields", now)
	require.NoError(t, err)
	require.NotEmpty(t, reply)

	session, err := sess.Get(ctx, "tenant-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, domain.GenAwaitingDetails, session.Status)
}

func TestControllerCancelDeletesSession(t *testing.T) {
	ctl, _, sess := newTestController(t)
	ctx := context.Background()
	now := time.Now()

	_, err := ctl.StartCommand(ctx, "tenant-1", "user-1", now)
	require.NoError(t, err)

	require.NoError(t, ctl.Cancel(ctx, "tenant-1", "user-1"))
	_, err = sess.Get(ctx, "tenant-1", "user-1")
	require.Error(t, err)
}

func TestControllerConfirmRejectsSessionNotReady(t *testing.T) {
	ctl, _, _ := newTestController(t)
	ctx := context.Background()
	now := time.Now()

	_, err := ctl.StartCommand(ctx, "tenant-1", "user-1", now)
	require.NoError(t, err)

	_, err = ctl.Confirm(ctx, "tenant-1", "user-1", now)
	require.Error(t, err)
}

func TestControllerHandleMessageExpiredSessionErrors(t *testing.T) {
	ctl, _, sess := newTestController(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, sess.Put(ctx, domain.InvoiceGenSession{
		ID: domain.InvoiceGenSessionID("tenant-1", "user-1"),
		TenantID: "tenant-1", UserID: "user-1",
		Status: domain.GenSelectType, UpdatedAt: now.Add(-2 * domain.InvoiceGenSessionTTL),
	}))

	_, err := ctl.HandleMessage(ctx, "tenant-1", "user-1", "invoice", now)
	require.Error(t, err)
}
