package onboarding

import (
	"context"
	"testing"
	"time"

	"github.com/rivergate/invoiceflow/internal/counter"
	"github.com/rivergate/invoiceflow/internal/docstore"
	"github.com/rivergate/invoiceflow/internal/domain"
	"github.com/rivergate/invoiceflow/internal/i18n"
	"github.com/rivergate/invoiceflow/internal/sessions"
	"github.com/rivergate/invoiceflow/internal/tenantstore"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestController(t *testing.T) (*Controller, *tenantstore.Store, *sessions.OnboardingStore) {
	t.Helper()
	db, err := docstore.Open(docstore.Config{Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tenants := tenantstore.New(db)
	sess := sessions.NewOnboardingStore(db)
	ctl := New(Deps{
		Sessions: sess, Tenants: tenants, Counters: counter.New(db),
		Catalog: i18n.NewFromDefaults(), Logger: zap.NewNop(),
	})
	return ctl, tenants, sess
}

func TestControllerStartCommandRejectsUnapprovedTenantWithoutCode(t *testing.T) {
	ctl, _, _ := newTestController(t)

	reply, err := ctl.StartCommand(context.Background(), "tenant-1", "Acme Chat", "user-1", "/onboard", time.Now())
	require.NoError(t, err)
	require.Contains(t, reply, "isn't approved")
}

func TestControllerStartCommandRejectsInvalidInviteCode(t *testing.T) {
	ctl, _, _ := newTestController(t)

	reply, err := ctl.StartCommand(context.Background(), "tenant-1", "Acme Chat", "user-1", "/onboard BADCODE1", time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, reply)
}

func TestControllerStartCommandSuppressesAfterRepeatedFailures(t *testing.T) {
	ctl, _, _ := newTestController(t)
	ctx := context.Background()
	now := time.Now()

	var lastErr error
	for i := 0; i < tenantstore.MaxInviteAttempts; i++ {
		_, lastErr = ctl.StartCommand(ctx, "tenant-1", "Acme Chat", "user-1", "/onboard BADCODE1", now)
	}
	require.ErrorIs(t, lastErr, ErrSuppressed)
}

func TestControllerStartCommandRedeemsValidInviteAndStartsSession(t *testing.T) {
	ctl, tenants, sess := newTestController(t)
	ctx := context.Background()
	now := time.Now()

	invite, err := tenants.GenerateInviteCode(ctx, "admin", InviteTTL, now)
	require.NoError(t, err)

	reply, err := ctl.StartCommand(ctx, "tenant-1", "Acme Chat", "user-1", "/onboard "+invite.Code, now)
	require.NoError(t, err)
	require.NotEmpty(t, reply)

	session, err := sess.Get(ctx, "tenant-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, domain.StepLanguage, session.Step)
	require.True(t, session.Active)
}

func TestControllerStartCommandSkipsInviteForApprovedTenant(t *testing.T) {
	ctl, tenants, sess := newTestController(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, tenants.PutTenant(ctx, domain.Tenant{
		TenantID: "tenant-1", Title: "Acme", Status: domain.TenantActive, ApprovedAt: now,
	}))

	reply, err := ctl.StartCommand(ctx, "tenant-1", "Acme Chat", "user-1", "/onboard", now)
	require.NoError(t, err)
	require.NotEmpty(t, reply)

	session, err := sess.Get(ctx, "tenant-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, domain.StepLanguage, session.Step)
}

func TestControllerHandleMessageWalksFullOnboardingFlow(t *testing.T) {
	ctl, tenants, sess := newTestController(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, tenants.PutTenant(ctx, domain.Tenant{
		TenantID: "tenant-1", Title: "Acme", Status: domain.TenantActive, ApprovedAt: now,
	}))
	_, err := ctl.StartCommand(ctx, "tenant-1", "Acme Chat", "user-1", "/onboard", now)
	require.NoError(t, err)

	steps := []struct {
		text string
		want domain.OnboardingStep
	}{
		{"en", domain.StepBusinessName},
		{"Acme Corp", domain.StepOwnerDetails},
		{"Jane Doe, 123456789, +1-555-0100, jane@acme.test", domain.StepAddress},
		{"1 Main St", domain.StepTaxStatus},
		{"licensed_dealer", domain.StepLogo},
		{"/skip", domain.StepSheet},
	}
	for _, step := range steps {
		reply, err := ctl.HandleMessage(ctx, "tenant-1", "user-1", step.text, now)
		require.NoError(t, err, "step %q", step.text)
		require.NotEmpty(t, reply)
		session, err := sess.Get(ctx, "tenant-1", "user-1")
		require.NoError(t, err)
		require.Equal(t, step.want, session.Step, "after replying %q", step.text)
	}
}

func TestControllerHandleMessageRejectsInvalidLanguage(t *testing.T) {
	ctl, tenants, sess := newTestController(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, tenants.PutTenant(ctx, domain.Tenant{
		TenantID: "tenant-1", Title: "Acme", Status: domain.TenantActive, ApprovedAt: now,
	}))
	_, err := ctl.StartCommand(ctx, "tenant-1", "Acme Chat", "user-1", "/onboard", now)
	require.NoError(t, err)

	reply, err := ctl.HandleMessage(ctx, "tenant-1", "user-1", "fr", now)
	require.NoError(t, err)
	require.Contains(t, reply, "en")

	session, err := sess.Get(ctx, "tenant-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, domain.StepLanguage, session.Step, "invalid input must not advance the step")
}
