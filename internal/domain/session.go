package domain

import (
	"fmt"
	"time"
)

// OnboardingStep is one of the nine steps of the onboarding FSM.
type OnboardingStep string

const (
	StepLanguage     OnboardingStep = "language"
	StepBusinessName OnboardingStep = "business_name"
	StepOwnerDetails OnboardingStep = "owner_details"
	StepAddress      OnboardingStep = "address"
	StepTaxStatus    OnboardingStep = "tax_status"
	StepLogo         OnboardingStep = "logo"
	StepSheet        OnboardingStep = "sheet"
	StepCounter      OnboardingStep = "counter"
	StepComplete     OnboardingStep = "complete"
)

// OnboardingSession is the ephemeral multi-step setup state for one tenant.
type OnboardingSession struct {
	TenantID string
	UserID   string
	Step     OnboardingStep
	Language string
	Data     map[string]string
	Active   bool
}

// InvoiceGenStatus is the status of an in-flight invoice authoring session.
type InvoiceGenStatus string

const (
	GenSelectType       InvoiceGenStatus = "select_type"
	GenAwaitingDetails  InvoiceGenStatus = "awaiting_details"
	GenAwaitingPayment  InvoiceGenStatus = "awaiting_payment"
	GenConfirming       InvoiceGenStatus = "confirming"
)

// InvoiceGenSessionTTL is the time-to-live from UpdatedAt for a session.
const InvoiceGenSessionTTL = time.Hour

// InvoiceGenSessionID builds the composite id "{tenantID}_{userID}".
func InvoiceGenSessionID(tenantID, userID string) string {
	return fmt.Sprintf("%s_%s", tenantID, userID)
}

// InvoiceGenSession is the ephemeral multi-step invoice authoring state.
type InvoiceGenSession struct {
	ID       string
	TenantID string
	UserID   string
	Status   InvoiceGenStatus

	DocumentType  DocumentType
	Customer      Customer
	Description   string
	Amount        float64
	PaymentMethod PaymentMethod

	UpdatedAt time.Time
}

// Stale reports whether the session has exceeded its TTL.
func (s InvoiceGenSession) Stale(now time.Time) bool {
	return now.Sub(s.UpdatedAt) > InvoiceGenSessionTTL
}

// CallbackDedup marks a processed callback update id.
type CallbackDedup struct {
	UpdateID    string
	ProcessedAt time.Time
	ExpiresAt   time.Time
}

// CallbackDedupTTL is the window a callback id is remembered for.
const CallbackDedupTTL = 24 * time.Hour
