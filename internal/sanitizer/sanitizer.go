// Package sanitizer hardens LLM-derived and user-supplied text before it is
// persisted or rendered, per spec.md §4.6's prompt-injection defense and
// §4.1's input handling: strip HTML markup with bluemonday (the
// teacher never touches user-facing HTML, so this concern is grounded on the
// strict-policy pattern used across the rest of the example pack for
// escaping untrusted text before it reaches a template or a card payload),
// cap field lengths, and flag fields that look like an attempt to steer the
// model rather than describe an invoice.
package sanitizer

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Per-field length ceilings, per spec.md §4.6.
const (
	MaxVendorLength          = 200
	MaxInvoiceNumberLength   = 100
	MaxCurrencyLength        = 10
	MaxRejectionReasonLength = 500
	MaxCategoryLength        = 500
)

// injectionMarkers covers spec.md §4.6's four pattern categories:
// instruction-override, role-hijack, script/event-handler, and
// template-expression.
var injectionMarkers = []string{
	// instruction-override
	"ignore previous instructions",
	"ignore all previous",
	"disregard the above",
	"new instructions:",
	// role-hijack
	"system prompt",
	"you are now",
	"</s>",
	"<|im_start|>",
	// script/event-handler
	"<script",
	"javascript:",
	"onerror=",
	"onload=",
	"onclick=",
	// template-expression
	"{{",
	"${",
}

// Sanitizer strips markup and flags suspicious content in model output and
// user-supplied chat text.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// New builds a Sanitizer with bluemonday's strict policy: every tag is
// stripped, only text content survives.
func New() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean strips HTML markup and truncates the field to maxLen; markdown syntax
// is left as is. Safe
// to call on any extracted or user-typed string before it is stored or
// displayed. Callers pass the Max*Length constant matching the field being
// cleaned.
func (s *Sanitizer) Clean(field string, maxLen int) string {
	cleaned := s.policy.Sanitize(field)
	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) > maxLen {
		cleaned = cleaned[:maxLen]
	}
	return cleaned
}

// LooksLikeInjection reports whether field contains a recognizable
// prompt-injection marker. A true result does not reject the job outright;
// callers fold it into the confidence/needs-review decision so a legitimate
// invoice whose vendor name happens to contain an unlucky phrase is not
// silently dropped.
func (s *Sanitizer) LooksLikeInjection(field string) bool {
	lower := strings.ToLower(field)
	for _, marker := range injectionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
