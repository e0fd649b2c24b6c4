package domain

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of an IngestJob.
type JobStatus string

const (
	JobProcessing      JobStatus = "processing"
	JobProcessed       JobStatus = "processed"
	JobFailed          JobStatus = "failed"
	JobPendingRetry    JobStatus = "pending_retry"
	JobPendingDecision JobStatus = "pending_decision"
	JobRejected        JobStatus = "rejected"
)

// Terminal reports whether no further claim may act on a job in this status.
func (s JobStatus) Terminal() bool {
	return s == JobProcessed || s == JobFailed || s == JobRejected
}

// Step records how far the pipeline got on a job.
type Step string

const (
	StepDownload Step = "download"
	StepDrive    Step = "drive"
	StepLLM      Step = "llm"
	StepSheets   Step = "sheets"
	StepAck      Step = "ack"
	StepRejected Step = "rejected"
)

// Provider identifies which LLM answered an extraction.
type Provider string

const (
	ProviderPrimary  Provider = "primary"
	ProviderFallback Provider = "fallback"
)

// JobID builds the composite id "{tenantID}_{messageID}".
func JobID(tenantID, messageID string) string {
	return fmt.Sprintf("%s_%s", tenantID, messageID)
}

// IngestJob is one processed inbound document, keyed by composite id.
type IngestJob struct {
	ID        string
	TenantID  string
	MessageID string
	Status    JobStatus
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
	ReceivedAt time.Time

	Source     JobSource
	Progress   JobProgress
	Result     JobResult
	Extraction Extraction
	Decision   Decision
}

type JobSource struct {
	FileID             string
	ChatTitle          string
	UploaderUsername   string
	UploaderFirstName  string
}

type JobProgress struct {
	LastStep  Step
	LastError string
}

type JobResult struct {
	DriveFileID string
	DriveLink   string
	SheetRowID  string
}

// Extraction is the sanitized, normalized set of fields the LLM returned.
type Extraction struct {
	VendorName       string
	InvoiceNumber    string
	InvoiceDate      string // ISO-8601 date, may be empty
	TotalAmount      *float64
	Currency         string
	VATAmount        *float64
	Confidence       float64
	Category         string
	IsInvoice        bool
	RejectionReason  string
}

// NeedsReview implements spec.md §4.6's needs-review policy.
func (e Extraction) NeedsReview() bool {
	return e.Confidence < 0.6 || e.TotalAmount == nil
}

type Decision struct {
	DuplicateOfJobID string
	Provider         Provider
	InputTokens      int
	OutputTokens     int
	CostUSD          float64
}

// NewJob seeds a freshly claimed job from a task payload.
func NewJob(tenantID, messageID string, src JobSource, receivedAt, now time.Time) *IngestJob {
	return &IngestJob{
		ID:         JobID(tenantID, messageID),
		TenantID:   tenantID,
		MessageID:  messageID,
		Status:     JobProcessing,
		Attempts:   1,
		CreatedAt:  now,
		UpdatedAt:  now,
		ReceivedAt: receivedAt,
		Source:     src,
	}
}
