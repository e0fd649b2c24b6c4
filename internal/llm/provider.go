// Package llm is the vision-LLM provider abstraction named in spec.md §4.6:
// a single Provider interface with interchangeable primary/fallback
// implementations, so the pipeline orchestrator never imports a concrete SDK
// directly. Grounded on the teacher's internal/invoice/pdf_reader.go, which
// builds the same kind of multi-image vision request against go-openai; this
// package generalizes that call behind Provider and adds an independent
// anthropicprovider implementation for the fallback path spec.md requires.
package llm

import (
	"context"
	"time"
)

// Image is one page or photo to include in the extraction request.
type Image struct {
	JPEG []byte
}

// Fields is the structured extraction result, field-for-field the subset of
// domain.Extraction the model is responsible for producing; the pipeline
// layers confidence thresholds and sanitization on top.
type Fields struct {
	VendorName      string
	InvoiceNumber   string
	InvoiceDate     string
	TotalAmount     *float64
	Currency        string
	VATAmount       *float64
	Confidence      float64
	Category        string
	IsInvoice       bool
	RejectionReason string
}

// Usage reports token accounting for cost tracking on domain.Decision.
type Usage struct {
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Provider is one vision-LLM backend capable of extracting invoice fields
// from a set of page images.
type Provider interface {
	Name() string
	Extract(ctx context.Context, images []Image) (Fields, Usage, error)
}

// Config holds an LLM call timeout. Neither provider in this module reads
// it; their API calls run under the caller's context.
type Config struct {
	Timeout time.Duration
}
