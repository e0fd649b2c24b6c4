package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rivergate/invoiceflow/internal/counter"
	"github.com/rivergate/invoiceflow/internal/domain"
	"github.com/rivergate/invoiceflow/internal/fsm"
	"github.com/rivergate/invoiceflow/internal/i18n"
	"github.com/rivergate/invoiceflow/internal/objectstore"
	"github.com/rivergate/invoiceflow/internal/sessions"
	"github.com/rivergate/invoiceflow/internal/sheets"
	"github.com/rivergate/invoiceflow/internal/tenantstore"
	"go.uber.org/zap"
)

// InviteTTL bounds how long a freshly minted invite code stays redeemable.
const InviteTTL = 7 * 24 * time.Hour

// ErrSuppressed is returned once a tenant has exhausted its invalid-invite
// attempt budget, per spec.md §4.5's admission rate limit.
var ErrSuppressed = errors.New("onboarding: tenant suppressed after repeated invalid invite attempts")

// Controller drives the onboarding FSM against persisted sessions.
type Controller struct {
	sessions  *sessions.OnboardingStore
	tenants   *tenantstore.Store
	counters  *counter.Store
	sheetsCli *sheets.Client
	objects   objectstore.Store
	catalog   *i18n.Catalog
	logger    *zap.Logger
}

// Deps bundles Controller's collaborators for construction.
type Deps struct {
	Sessions *sessions.OnboardingStore
	Tenants  *tenantstore.Store
	Counters *counter.Store
	Sheets   *sheets.Client
	Objects  objectstore.Store
	Catalog  *i18n.Catalog
	Logger   *zap.Logger
}

// New builds a Controller. A nil Catalog falls back to the built-in
// message set.
func New(d Deps) *Controller {
	catalog := d.Catalog
	if catalog == nil {
		catalog = i18n.NewFromDefaults()
	}
	return &Controller{
		sessions: d.Sessions, tenants: d.Tenants, counters: d.Counters,
		sheetsCli: d.Sheets, objects: d.Objects, catalog: catalog, logger: d.Logger,
	}
}

// StartCommand handles "/onboard [inviteCode]" per spec.md §4.5's admission
// gate. If tenantID is already approved, onboarding starts immediately; an
// unapproved tenant must supply a valid, unused, unexpired invite code.
func (c *Controller) StartCommand(ctx context.Context, tenantID, tenantTitle, userID, commandText string, now time.Time) (string, error) {
	tenant, err := c.tenants.GetTenant(ctx, tenantID)
	approved := err == nil && tenant.IsActive()

	if !approved {
		fields := strings.Fields(commandText)
		if len(fields) < 2 {
			return "This group isn't approved yet. Start onboarding with /onboard <invite code>.", nil
		}
		code := fields[1]
		if _, redeemErr := c.tenants.RedeemInviteCode(ctx, code, tenantID, tenantTitle, now); redeemErr != nil {
			if errors.Is(redeemErr, tenantstore.ErrInviteCodeInvalid) {
				suppressed, rateErr := c.tenants.RecordInviteFailure(ctx, tenantID)
				if rateErr != nil {
					c.logger.Warn("failed to record invite failure", zap.Error(rateErr))
				}
				if suppressed {
					return "", ErrSuppressed
				}
				return c.catalog.T(i18n.DefaultLanguage, "onboarding.invite_invalid", nil), nil
			}
			return "", fmt.Errorf("redeem invite code: %w", redeemErr)
		}
		if err := c.tenants.ResetInviteFailures(ctx, tenantID); err != nil {
			c.logger.Warn("failed to reset invite failures", zap.Error(err))
		}
	}

	session := domain.OnboardingSession{
		TenantID: tenantID, UserID: userID,
		Step: domain.StepLanguage, Data: map[string]string{}, Active: true,
	}
	if err := c.sessions.Put(ctx, session); err != nil {
		return "", fmt.Errorf("create onboarding session: %w", err)
	}
	return c.prompt(domain.StepLanguage, i18n.DefaultLanguage), nil
}

// HandleMessage advances an in-progress onboarding session with one text
// input. Invalid input returns the step's prompt plus a field-specific error
// without advancing the step, per spec.md §4.5.
func (c *Controller) HandleMessage(ctx context.Context, tenantID, userID, text string, now time.Time) (string, error) {
	session, err := c.sessions.Get(ctx, tenantID, userID)
	if err != nil {
		return "", fmt.Errorf("load onboarding session: %w", err)
	}
	if !session.Active {
		return "", fmt.Errorf("onboarding session is not active")
	}

	machine := buildMachine(fsm.State(session.Step))
	lang := sessionLanguage(session)

	switch session.Step {
	case domain.StepLanguage:
		if !ValidLanguage(text) {
			return "Please reply with \"en\" or \"he\".\n" + c.prompt(domain.StepLanguage, lang), nil
		}
		session.Language = strings.ToLower(strings.TrimSpace(text))
		session.Data["language"] = session.Language
		lang = sessionLanguage(session)

	case domain.StepBusinessName:
		name := strings.TrimSpace(text)
		if name == "" {
			return "Business name cannot be empty.\n" + c.prompt(domain.StepBusinessName, lang), nil
		}
		session.Data["business_name"] = name

	case domain.StepOwnerDetails:
		details, parseErr := ParseOwnerDetails(text)
		if parseErr != nil {
			return parseErr.Error() + "\n" + c.prompt(domain.StepOwnerDetails, lang), nil
		}
		session.Data["owner_name"] = details.Name
		session.Data["tax_id"] = details.TaxID
		session.Data["phone"] = details.Phone
		session.Data["email"] = details.Email

	case domain.StepAddress:
		addr := strings.TrimSpace(text)
		if addr == "" {
			return "Address cannot be empty.\n" + c.prompt(domain.StepAddress, lang), nil
		}
		session.Data["address"] = addr

	case domain.StepTaxStatus:
		if !ValidTaxStatus(text) {
			return "Please reply with one of: licensed_dealer, exempt_dealer, company.\n" + c.prompt(domain.StepTaxStatus, lang), nil
		}
		session.Data["tax_status"] = strings.ToLower(strings.TrimSpace(text))

	case domain.StepLogo:
		if strings.TrimSpace(text) == "/skip" {
			session.Data["logo_url"] = ""
		} else {
			return "Send a photo, an image document, or /skip.\n" + c.prompt(domain.StepLogo, lang), nil
		}

	case domain.StepSheet:
		tabs, verifyErr := c.sheetsCli.VerifyAndListTabs(text)
		if verifyErr != nil {
			return fmt.Sprintf("Could not access that spreadsheet: %v\n%s", verifyErr, c.prompt(domain.StepSheet, lang)), nil
		}
		session.Data["sheet_id"] = strings.TrimSpace(text)
		session.Data["sheet_tabs"] = strings.Join(tabs, ", ")

	case domain.StepCounter:
		seed, parseErr := ParseCounterSeed(text)
		if parseErr != nil {
			return parseErr.Error() + "\n" + c.prompt(domain.StepCounter, lang), nil
		}
		session.Data["counter_seed"] = strconv.FormatInt(seed, 10)

	default:
		return "", fmt.Errorf("onboarding: unexpected step %s", session.Step)
	}

	if err := machine.Fire(ctx, triggerAdvance); err != nil {
		return "", fmt.Errorf("advance onboarding fsm: %w", err)
	}
	session.Step = domain.OnboardingStep(machine.State())

	if session.Step == domain.StepComplete {
		reply, completeErr := c.complete(ctx, session, now)
		if completeErr != nil {
			return "", completeErr
		}
		if err := c.sessions.Delete(ctx, tenantID, userID); err != nil {
			c.logger.Warn("failed to delete completed onboarding session", zap.Error(err))
		}
		return reply, nil
	}

	if err := c.sessions.Put(ctx, session); err != nil {
		return "", fmt.Errorf("persist onboarding session: %w", err)
	}
	return c.prompt(session.Step, lang), nil
}

// HandleLogoUpload handles a photo or image document at the logo step,
// storing it via the object store and recording its path.
func (c *Controller) HandleLogoUpload(ctx context.Context, tenantID, userID string, logoBytes []byte, ext string, now time.Time) (string, error) {
	session, err := c.sessions.Get(ctx, tenantID, userID)
	if err != nil {
		return "", fmt.Errorf("load onboarding session: %w", err)
	}
	if session.Step != domain.StepLogo {
		return "A logo isn't expected right now.", nil
	}

	key := fmt.Sprintf("logos/%s/logo%s", tenantID, ext)
	storedPath, err := c.objects.Put(tenantID, key, logoBytes, objectstore.KindOriginal)
	if err != nil {
		return "", fmt.Errorf("upload logo: %w", err)
	}
	session.Data["logo_url"] = c.objects.URL(storedPath)

	machine := buildMachine(fsm.State(session.Step))
	if err := machine.Fire(ctx, triggerAdvance); err != nil {
		return "", fmt.Errorf("advance onboarding fsm: %w", err)
	}
	session.Step = domain.OnboardingStep(machine.State())
	if err := c.sessions.Put(ctx, session); err != nil {
		return "", fmt.Errorf("persist onboarding session: %w", err)
	}
	return c.prompt(session.Step, sessionLanguage(session)), nil
}

// complete writes the business-config document, the user-tenant-mapping
// entry, and (conditionally) the initial counter, per spec.md §4.5's
// completion step. The three writes are separate and do not share one
// transaction: a failure part-way leaves the earlier writes in place.
func (c *Controller) complete(ctx context.Context, session domain.OnboardingSession, now time.Time) (string, error) {
	cfg := domain.BusinessConfig{
		TenantID: session.TenantID,
		Language: session.Language,
		Business: domain.BusinessProfile{
			Name:      session.Data["business_name"],
			TaxID:     session.Data["tax_id"],
			TaxStatus: session.Data["tax_status"],
			Email:     session.Data["email"],
			Phone:     session.Data["phone"],
			Address:   session.Data["address"],
			LogoURL:   session.Data["logo_url"],
			SheetID:   session.Data["sheet_id"],
		},
	}
	if err := c.tenants.PutBusinessConfig(ctx, cfg); err != nil {
		return "", fmt.Errorf("persist business config: %w", err)
	}

	if err := c.tenants.AddTenantMembership(ctx, session.UserID, domain.TenantMembership{
		TenantID: session.TenantID, AddedAt: now,
	}); err != nil {
		return "", fmt.Errorf("persist tenant membership: %w", err)
	}

	if seedStr, ok := session.Data["counter_seed"]; ok {
		seed, _ := strconv.ParseInt(seedStr, 10, 64)
		if err := c.counters.Initialize(ctx, session.TenantID, now.Year(), seed-1, now); err != nil {
			return "", fmt.Errorf("seed invoice counter: %w", err)
		}
	}

	return c.catalog.T(i18n.Language(session.Language), "onboarding.complete", nil), nil
}

// stepMessageKeys maps each onboarding step to its i18n.Catalog message key.
var stepMessageKeys = map[domain.OnboardingStep]string{
	domain.StepLanguage:     "onboarding.welcome",
	domain.StepBusinessName: "onboarding.business_name",
	domain.StepOwnerDetails: "onboarding.owner_details",
	domain.StepAddress:      "onboarding.address",
	domain.StepTaxStatus:    "onboarding.tax_status",
	domain.StepLogo:         "onboarding.logo",
	domain.StepSheet:        "onboarding.sheet",
	domain.StepCounter:      "onboarding.counter",
	domain.StepComplete:     "onboarding.complete",
}

// prompt looks up the prompt for step in lang via the Controller's catalog.
func (c *Controller) prompt(step domain.OnboardingStep, lang i18n.Language) string {
	return c.catalog.T(lang, stepMessageKeys[step], nil)
}

// sessionLanguage returns the session's chosen language, or the catalog
// default if the language step hasn't been answered yet.
func sessionLanguage(session domain.OnboardingSession) i18n.Language {
	if session.Language == "" {
		return i18n.DefaultLanguage
	}
	return i18n.Language(session.Language)
}
