package invoicegen

import (
	"context"
	"fmt"
	"time"

	"github.com/rivergate/invoiceflow/internal/counter"
	"github.com/rivergate/invoiceflow/internal/domain"
	"github.com/rivergate/invoiceflow/internal/fsm"
	"github.com/rivergate/invoiceflow/internal/i18n"
	"github.com/rivergate/invoiceflow/internal/invoicestore"
	"github.com/rivergate/invoiceflow/internal/objectstore"
	"github.com/rivergate/invoiceflow/internal/pdfrender"
	"github.com/rivergate/invoiceflow/internal/sessions"
	"github.com/rivergate/invoiceflow/internal/sheets"
	"github.com/rivergate/invoiceflow/internal/tenantstore"
	"go.uber.org/zap"
)

// Controller drives the invoice-generation FSM and its produce saga.
type Controller struct {
	sessions  *sessions.InvoiceGenStore
	tenants   *tenantstore.Store
	counters  *counter.Store
	invoices  *invoicestore.Store
	objects   objectstore.Store
	renderer  *pdfrender.Renderer
	sheetsCli *sheets.Client
	catalog   *i18n.Catalog
	logger    *zap.Logger
}

// Deps bundles Controller's collaborators for construction.
type Deps struct {
	Sessions *sessions.InvoiceGenStore
	Tenants  *tenantstore.Store
	Counters *counter.Store
	Invoices *invoicestore.Store
	Objects  objectstore.Store
	Renderer *pdfrender.Renderer
	Sheets   *sheets.Client
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
		invoices: d.Invoices, objects: d.Objects, renderer: d.Renderer,
		sheetsCli: d.Sheets, catalog: catalog, logger: d.Logger,
	}
}

// language looks up tenantID's configured chat language, falling back to
// the catalog default if the tenant hasn't completed onboarding.
func (c *Controller) language(ctx context.Context, tenantID string) i18n.Language {
	cfg, err := c.tenants.GetBusinessConfig(ctx, tenantID)
	if err != nil || cfg.Language == "" {
		return i18n.DefaultLanguage
	}
	return i18n.Language(cfg.Language)
}

// StartCommand begins a fresh invoice-authoring session for (tenantID,
// userID), replacing any prior one.
func (c *Controller) StartCommand(ctx context.Context, tenantID, userID string, now time.Time) (string, error) {
	session := domain.InvoiceGenSession{
		ID: domain.InvoiceGenSessionID(tenantID, userID),
		TenantID: tenantID, UserID: userID,
		Status: domain.GenSelectType, UpdatedAt: now,
	}
	if err := c.sessions.Put(ctx, session); err != nil {
		return "", fmt.Errorf("create invoice-gen session: %w", err)
	}
	return c.catalog.T(c.language(ctx, tenantID), "invoicegen.select_type", nil), nil
}

// HandleMessage advances an in-progress session with one text input.
func (c *Controller) HandleMessage(ctx context.Context, tenantID, userID, text string, now time.Time) (string, error) {
	session, err := c.sessions.Get(ctx, tenantID, userID)
	if err != nil {
		return "", fmt.Errorf("load invoice-gen session: %w", err)
	}
	if session.Stale(now) {
		_ = c.sessions.Delete(ctx, tenantID, userID)
		return "", fmt.Errorf("invoice-gen session expired")
	}

	machine := buildMachine(fsm.State(session.Status))
	lang := c.language(ctx, tenantID)

	switch session.Status {
	case domain.GenSelectType:
		if !ValidDocumentType(text) {
			return c.catalog.T(lang, "invoicegen.select_type", nil), nil
		}
		session.DocumentType = domain.DocumentType(text)

	case domain.GenAwaitingDetails:
		details, parseErr := ParseDetails(text)
		if parseErr != nil {
			return parseErr.Error() + "\n" + c.catalog.T(lang, "invoicegen.awaiting_details", nil), nil
		}
		session.Customer = domain.Customer{Name: details.CustomerName, TaxID: details.CustomerTaxID}
		session.Amount = details.Amount
		session.Description = details.Description

	case domain.GenAwaitingPayment:
		if !ValidPaymentMethod(text) {
			return c.catalog.T(lang, "invoicegen.awaiting_payment", nil), nil
		}
		session.PaymentMethod = domain.PaymentMethod(text)

	default:
		return "", fmt.Errorf("invoicegen: unexpected status %s", session.Status)
	}

	if err := machine.Fire(ctx, triggerAdvance); err != nil {
		return "", fmt.Errorf("advance invoicegen fsm: %w", err)
	}
	session.Status = domain.InvoiceGenStatus(machine.State())
	session.UpdatedAt = now
	if err := c.sessions.Put(ctx, session); err != nil {
		return "", fmt.Errorf("persist invoice-gen session: %w", err)
	}

	if session.Status == domain.GenConfirming {
		return c.catalog.T(lang, "invoicegen.confirm", map[string]string{
			"documentType": string(session.DocumentType),
			"customerName": session.Customer.Name,
			"amount":       fmt.Sprintf("%.2f", session.Amount),
			"description":  session.Description,
		}), nil
	}
	if session.Status == domain.GenAwaitingDetails {
		return c.catalog.T(lang, "invoicegen.awaiting_details", nil), nil
	}
	return c.catalog.T(lang, "invoicegen.awaiting_payment", nil), nil
}

// Confirm runs the produce saga (spec.md §4.8) once the session is in
// confirming status, and deletes the session on success.
func (c *Controller) Confirm(ctx context.Context, tenantID, userID string, now time.Time) (string, error) {
	session, err := c.sessions.Get(ctx, tenantID, userID)
	if err != nil {
		return "", fmt.Errorf("load invoice-gen session: %w", err)
	}
	if session.Status != domain.GenConfirming {
		return "", fmt.Errorf("invoicegen: session not ready to confirm (status=%s)", session.Status)
	}

	reply, produceErr := c.produce(ctx, session, now)
	if produceErr != nil {
		return "", produceErr
	}
	if err := c.sessions.Delete(ctx, tenantID, userID); err != nil {
		c.logger.Warn("failed to delete completed invoice-gen session", zap.Error(err))
	}
	return reply, nil
}

// Cancel clears an in-progress session without side effects.
func (c *Controller) Cancel(ctx context.Context, tenantID, userID string) error {
	return c.sessions.Delete(ctx, tenantID, userID)
}

// produce implements spec.md §4.8's seven-step saga. A failure before step
// 5 (the generated_invoices write) leaves the allocated number unused — an
// accepted gap, per the spec: numbers are monotone, not dense.
func (c *Controller) produce(ctx context.Context, session domain.InvoiceGenSession, now time.Time) (string, error) {
	// Step 1 — read business config and logo (config alone; logo is a URL
	// field on it, so no second read is needed).
	cfg, err := c.tenants.GetBusinessConfig(ctx, session.TenantID)
	if err != nil {
		return "", fmt.Errorf("load business config: %w", err)
	}

	// Step 2 — atomically allocate the next invoice number.
	_, invoiceNumber, err := c.counters.Next(ctx, session.TenantID, now.Year(), now)
	if err != nil {
		return "", fmt.Errorf("allocate invoice number: %w", err)
	}

	displayCurrency := "ILS"

	// Step 3 — render PDF from the RTL HTML template with escaped fields.
	html, err := pdfrender.Render(pdfrender.InvoiceData{
		InvoiceNumber:        invoiceNumber,
		DocumentType:         string(session.DocumentType),
		BusinessName:         cfg.Business.Name,
		BusinessTaxID:        cfg.Business.TaxID,
		BusinessAddress:      cfg.Business.Address,
		CustomerName:         session.Customer.Name,
		CustomerTaxID:        session.Customer.TaxID,
		Description:          session.Description,
		Amount:               fmt.Sprintf("%.2f", session.Amount),
		Currency:             displayCurrency,
		PaymentMethod:        string(session.PaymentMethod),
		Date:                 now.Format("02/01/2006"),
		DigitalSignatureText: cfg.Invoice.DigitalSignatureText,
		GeneratedByText:      cfg.Invoice.GeneratedByText,
		LogoURL:              cfg.Business.LogoURL,
	})
	if err != nil {
		return "", fmt.Errorf("render invoice html: %w", err)
	}
	pdfBytes, err := c.renderer.RenderHTML(ctx, html)
	if err != nil {
		return "", fmt.Errorf("render invoice pdf: %w", err)
	}

	// Step 4 — upload PDF to {tenantId}/{YYYY}/{invoiceNumber}.pdf.
	key := fmt.Sprintf("%s/%04d/%s.pdf", session.TenantID, now.Year(), invoiceNumber)
	storedPath, err := c.objects.Put(session.TenantID, key, pdfBytes, objectstore.KindGeneratedInvoice)
	if err != nil {
		return "", fmt.Errorf("upload invoice pdf: %w", err)
	}

	// Step 5 — write the generated_invoices record.
	generated := domain.GeneratedInvoice{
		ID:            domain.GeneratedInvoiceID(session.TenantID, invoiceNumber),
		TenantID:      session.TenantID,
		InvoiceNumber: invoiceNumber,
		DocumentType:  session.DocumentType,
		Customer:      session.Customer,
		Description:   session.Description,
		Amount:        session.Amount,
		Currency:      displayCurrency,
		PaymentMethod: session.PaymentMethod,
		Date:          now.Format("02/01/2006"),
		GeneratedAt:   now,
		GeneratedBy:   domain.GeneratedBy{UserID: session.UserID, TenantID: session.TenantID},
		StoragePath:   storedPath,
		StorageURL:    c.objects.URL(storedPath),
	}
	if err := c.invoices.Put(ctx, generated); err != nil {
		return "", fmt.Errorf("persist generated invoice: %w", err)
	}

	// Step 6 — append a row to the tenant's "Generated Invoices" tab.
	row := []string{
		generated.InvoiceNumber, string(generated.DocumentType), generated.Customer.Name,
		generated.Customer.TaxID, generated.Description, fmt.Sprintf("%.2f", generated.Amount),
		generated.Currency, string(generated.PaymentMethod), sheets.EscapeDate(generated.Date),
		generated.GeneratedBy.UserID,
	}
	if err := c.sheetsCli.AppendGeneratedInvoiceRow(cfg.Business.SheetID, row); err != nil {
		return "", fmt.Errorf("append generated invoice row: %w", err)
	}

	// Step 7 — reply with the PDF link; the session is deleted by the caller.
	lang := i18n.DefaultLanguage
	if cfg.Language != "" {
		lang = i18n.Language(cfg.Language)
	}
	return c.catalog.T(lang, "invoicegen.produced", map[string]string{
		"invoiceNumber": generated.InvoiceNumber,
		"url":           generated.StorageURL,
	}), nil
}
