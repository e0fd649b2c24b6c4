// Package pipeline is the ingest orchestrator named in spec.md §4.3: claim,
// download, upload original, extract, duplicate-check, append to the
// spreadsheet, acknowledge. Grounded on the shape of the teacher's
// internal/worker.InvoiceProcessor (poll → read → AI-audit → persist), with
// every step rewritten to transactional, bounded-rollback semantics that the
// teacher's single-pass processor does not need. A retried job runs again
// from step 1: Progress.LastStep records how far the last attempt got, and
// is not used to skip completed steps.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rivergate/invoiceflow/internal/dupdetect"
	"github.com/rivergate/invoiceflow/internal/domain"
	"github.com/rivergate/invoiceflow/internal/jobstore"
	"github.com/rivergate/invoiceflow/internal/llm"
	"github.com/rivergate/invoiceflow/internal/normalize"
	"github.com/rivergate/invoiceflow/internal/objectstore"
	"github.com/rivergate/invoiceflow/internal/platform/lark"
	"github.com/rivergate/invoiceflow/internal/sanitizer"
	"github.com/rivergate/invoiceflow/internal/sessions"
	"github.com/rivergate/invoiceflow/internal/sheets"
	"github.com/rivergate/invoiceflow/internal/tenantstore"
	"go.uber.org/zap"
)

// MaxAttachmentBytes is the size ceiling spec.md §4.3 step 1 imposes.
const MaxAttachmentBytes = 5 * 1024 * 1024

// TaskPayload is the unit of work spec.md §4.3 names, handed to the
// orchestrator once per inbound attachment.
type TaskPayload struct {
	TenantID          string
	MessageID         string
	FileID            string
	MIMEType          string
	UploaderUsername  string
	UploaderFirstName string
	ChatTitle         string
	ReceivedAt        time.Time
}

// terminalError marks a failure that must not be retried: the job moves to
// a terminal status (failed/rejected) rather than pending_retry.
type terminalError struct {
	status domain.JobStatus
	err    error
}

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

func terminal(status domain.JobStatus, err error) error {
	return &terminalError{status: status, err: err}
}

// Pipeline wires together every collaborator the orchestrator calls.
type Pipeline struct {
	jobs      *jobstore.Store
	tenants   *tenantstore.Store
	callbacks *sessions.CallbackDedupStore
	chat      *lark.Client
	objects   objectstore.Store
	policy    *llm.Policy
	sanitize  *sanitizer.Sanitizer
	dup       *dupdetect.Detector
	sheetsCli *sheets.Client
	logger    *zap.Logger
}

// Deps bundles Pipeline's collaborators for construction.
type Deps struct {
	Jobs      *jobstore.Store
	Tenants   *tenantstore.Store
	Callbacks *sessions.CallbackDedupStore
	Chat      *lark.Client
	Objects   objectstore.Store
	Policy    *llm.Policy
	Sanitizer *sanitizer.Sanitizer
	DupDetect *dupdetect.Detector
	Sheets    *sheets.Client
	Logger    *zap.Logger
}

// New builds a Pipeline.
func New(d Deps) *Pipeline {
	return &Pipeline{
		jobs: d.Jobs, tenants: d.Tenants, callbacks: d.Callbacks, chat: d.Chat,
		objects: d.Objects, policy: d.Policy, sanitize: d.Sanitizer, dup: d.DupDetect,
		sheetsCli: d.Sheets, logger: d.Logger,
	}
}

// Process runs the full claim→download→upload→extract→dedup→append→ack
// pipeline for one payload. A non-nil error means the caller (the queue
// dispatcher) should retry; terminal outcomes (failed/rejected/already
// processed/pending a user decision) return nil.
func (p *Pipeline) Process(ctx context.Context, payload TaskPayload) error {
	id := domain.JobID(payload.TenantID, payload.MessageID)
	now := time.Now()

	job, err := p.claim(ctx, payload, now)
	if err != nil {
		if errors.Is(err, jobstore.ErrAlreadyClaimed) {
			p.logger.Debug("job already claimed or terminal, skipping", zap.String("job_id", id))
			return nil
		}
		return err
	}

	if err := p.run(ctx, &job, payload); err != nil {
		var term *terminalError
		if errors.As(err, &term) {
			job.Status = term.status
			job.Progress.LastError = term.err.Error()
			_ = p.jobs.Update(ctx, job)
			return nil
		}

		job.Status = domain.JobPendingRetry
		job.Progress.LastError = err.Error()
		job.UpdatedAt = time.Now()
		if updErr := p.jobs.Update(ctx, job); updErr != nil {
			p.logger.Error("failed to persist pending_retry state", zap.Error(updErr))
		}
		return err
	}
	return nil
}

func (p *Pipeline) claim(ctx context.Context, payload TaskPayload, now time.Time) (domain.IngestJob, error) {
	id := domain.JobID(payload.TenantID, payload.MessageID)
	existing, err := p.jobs.Get(ctx, id)
	if err != nil {
		job := domain.NewJob(payload.TenantID, payload.MessageID, domain.JobSource{
			FileID: payload.FileID, ChatTitle: payload.ChatTitle,
			UploaderUsername: payload.UploaderUsername, UploaderFirstName: payload.UploaderFirstName,
		}, payload.ReceivedAt, now)
		if createErr := p.jobs.Create(ctx, job); createErr != nil {
			return domain.IngestJob{}, createErr
		}
		return *job, nil
	}

	if existing.Status == domain.JobPendingDecision {
		return domain.IngestJob{}, jobstore.ErrAlreadyClaimed
	}
	return p.jobs.Claim(ctx, id, now)
}

// run executes steps 1-5 against an already-claimed job.
func (p *Pipeline) run(ctx context.Context, job *domain.IngestJob, payload TaskPayload) error {
	cfg, err := p.tenants.GetBusinessConfig(ctx, job.TenantID)
	if err != nil {
		return fmt.Errorf("load business config: %w", err)
	}

	// Step 1 — download.
	raw, err := p.chat.DownloadFile(ctx, job.MessageID, payload.FileID)
	if err != nil {
		return fmt.Errorf("download attachment: %w", err)
	}
	if len(raw) > MaxAttachmentBytes {
		p.notify(ctx, job.TenantID, "attachment exceeds 5 MiB limit")
		return terminal(domain.JobFailed, fmt.Errorf("attachment too large: %d bytes", len(raw)))
	}
	job.Progress.LastStep = domain.StepDownload

	images, err := normalize.ToImages(raw, payload.MIMEType)
	if err != nil {
		if errors.Is(err, normalize.ErrEncrypted) {
			p.notify(ctx, job.TenantID, "this document is password protected")
			return terminal(domain.JobFailed, err)
		}
		if errors.Is(err, normalize.ErrUnsupportedFormat) {
			p.notify(ctx, job.TenantID, "unsupported attachment format")
			return terminal(domain.JobFailed, err)
		}
		if errors.Is(err, normalize.ErrTooManyPages) {
			p.notify(ctx, job.TenantID, "document exceeds page limit")
			return terminal(domain.JobFailed, err)
		}
		if errors.Is(err, normalize.ErrEmptyDocument) {
			p.notify(ctx, job.TenantID, "document has no readable pages")
			return terminal(domain.JobFailed, err)
		}
		return fmt.Errorf("normalize attachment: %w", err)
	}

	// Step 2 — upload original.
	ext := extensionFor(payload.MIMEType)
	key := fmt.Sprintf("invoices/%s/%04d/%02d/invoice_%s_%s_%d%s",
		job.TenantID, payload.ReceivedAt.Year(), payload.ReceivedAt.Month(), job.TenantID, job.MessageID, time.Now().UnixMilli(), ext)
	storedPath, err := p.objects.Put(job.TenantID, key, raw, objectstore.KindOriginal)
	if err != nil {
		return fmt.Errorf("upload original: %w", err)
	}
	job.Result.DriveFileID = storedPath
	job.Result.DriveLink = p.objects.URL(storedPath)
	job.Progress.LastStep = domain.StepDrive
	if err := p.jobs.Update(ctx, *job); err != nil {
		return fmt.Errorf("persist upload progress: %w", err)
	}

	// Step 3 — extract.
	fields, usage, providerName, err := p.policy.Extract(ctx, images)
	if err != nil {
		return fmt.Errorf("extract invoice fields: %w", err)
	}
	extraction := p.sanitizeFields(fields)
	job.Extraction = extraction
	job.Decision.Provider = domain.Provider(providerName)
	job.Decision.InputTokens = usage.InputTokens
	job.Decision.OutputTokens = usage.OutputTokens
	job.Decision.CostUSD = usage.CostUSD
	job.Progress.LastStep = domain.StepLLM

	// Step 3a — document rejection.
	if !extraction.IsInvoice {
		p.rollback(job.TenantID, storedPath)
		p.notify(ctx, job.TenantID, "not recognized as an invoice: "+extraction.RejectionReason)
		return terminal(domain.JobRejected, fmt.Errorf("not an invoice: %s", extraction.RejectionReason))
	}

	// Step 3b — duplicate detection.
	if match, found, err := p.dup.FindDuplicate(ctx, job.TenantID, extraction, time.Now()); err != nil {
		p.logger.Warn("duplicate lookup failed, continuing without it", zap.Error(err))
	} else if found {
		job.Status = domain.JobPendingDecision
		job.Decision.DuplicateOfJobID = match.ID
		job.UpdatedAt = time.Now()
		if err := p.jobs.Update(ctx, *job); err != nil {
			return fmt.Errorf("persist pending decision: %w", err)
		}
		p.sendDuplicateWarning(ctx, *job, match)
		return nil
	}

	// Step 4 — append to spreadsheet.
	if err := p.appendRow(cfg, *job); err != nil {
		p.rollback(job.TenantID, storedPath)
		return fmt.Errorf("append spreadsheet row: %w", err)
	}
	job.Progress.LastStep = domain.StepSheets

	// Step 5 — acknowledge.
	job.Status = domain.JobProcessed
	job.UpdatedAt = time.Now()
	if err := p.jobs.Update(ctx, *job); err != nil {
		return fmt.Errorf("persist processed status: %w", err)
	}
	p.notify(ctx, job.TenantID, "invoice recorded successfully")
	job.Progress.LastStep = domain.StepAck
	return nil
}

// sanitizeFields runs spec.md §4.6's full sanitization pass: every string
// field is checked against the injection-pattern set and nullified
// individually on a match, then cleaned/truncated, then dates and category
// are normalized. Confidence is capped at 0.3 if any field was nullified.
func (p *Pipeline) sanitizeFields(f llm.Fields) domain.Extraction {
	vendor, vendorFlagged := p.checkField(f.VendorName)
	invoiceNumber, invoiceNumberFlagged := p.checkField(f.InvoiceNumber)
	currency, currencyFlagged := p.checkField(f.Currency)
	category, categoryFlagged := p.checkField(f.Category)
	reason, reasonFlagged := p.checkField(f.RejectionReason)

	confidence := f.Confidence
	if vendorFlagged || invoiceNumberFlagged || currencyFlagged || categoryFlagged || reasonFlagged {
		if confidence > 0.3 {
			confidence = 0.3
		}
	}

	return domain.Extraction{
		VendorName:      p.sanitize.Clean(vendor, sanitizer.MaxVendorLength),
		InvoiceNumber:   p.sanitize.Clean(invoiceNumber, sanitizer.MaxInvoiceNumberLength),
		InvoiceDate:     sanitizer.NormalizeDate(f.InvoiceDate),
		TotalAmount:     f.TotalAmount,
		Currency:        p.sanitize.Clean(currency, sanitizer.MaxCurrencyLength),
		VATAmount:       f.VATAmount,
		Confidence:      confidence,
		Category:        sanitizer.NormalizeCategory(p.sanitize.Clean(category, sanitizer.MaxCategoryLength)),
		IsInvoice:       f.IsInvoice,
		RejectionReason: p.sanitize.Clean(reason, sanitizer.MaxRejectionReasonLength),
	}
}

// checkField nullifies field if it looks like a prompt-injection attempt,
// reporting whether it did.
func (p *Pipeline) checkField(field string) (string, bool) {
	if p.sanitize.LooksLikeInjection(field) {
		return "", true
	}
	return field, false
}

func (p *Pipeline) appendRow(cfg domain.BusinessConfig, job domain.IngestJob) error {
	row := []string{
		job.ID,
		job.Extraction.VendorName,
		job.Extraction.InvoiceNumber,
		sheets.EscapeDate(job.Extraction.InvoiceDate),
		amountString(job.Extraction.TotalAmount),
		job.Extraction.Currency,
		amountString(job.Extraction.VATAmount),
		job.Extraction.Category,
		fmt.Sprintf("%.2f", job.Extraction.Confidence),
		job.Result.DriveLink,
		sheets.EscapeDate(time.Now().UTC().Format(time.RFC3339)),
	}
	return p.sheetsCli.AppendInvoiceRow(cfg.Business.SheetID, row)
}

func (p *Pipeline) rollback(tenantID, storedPath string) {
	if storedPath == "" {
		return
	}
	if err := p.objects.Delete(storedPath); err != nil {
		p.logger.Error("rollback delete failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

func (p *Pipeline) notify(ctx context.Context, chatID, message string) {
	if chatID == "" {
		return
	}
	if _, err := p.chat.SendText(ctx, chatID, message); err != nil {
		p.logger.Warn("failed to send notification", zap.Error(err))
	}
}

func (p *Pipeline) sendDuplicateWarning(ctx context.Context, job domain.IngestJob, match domain.IngestJob) {
	card := fmt.Sprintf(`{"header":{"title":{"tag":"plain_text","content":"Possible duplicate invoice"}},"elements":[{"tag":"div","text":{"tag":"plain_text","content":"Matches job %s"}},{"tag":"action","actions":[{"tag":"button","text":{"tag":"plain_text","content":"Keep both"},"value":{"action":"keep_both","job_id":"%s"}},{"tag":"button","text":{"tag":"plain_text","content":"Delete new"},"value":{"action":"delete_new","job_id":"%s"}}]}]}`,
		match.ID, job.ID, job.ID)
	if _, err := p.chat.SendCard(ctx, job.TenantID, card); err != nil {
		p.logger.Warn("failed to send duplicate warning", zap.Error(err))
	}
}

func amountString(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "application/pdf":
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/heic", "image/heif":
		return ".heic"
	case "image/jpeg":
		return ".jpg"
	default:
		return ""
	}
}
