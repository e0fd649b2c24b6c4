package domain

import (
	"fmt"
	"time"
)

// DocumentType distinguishes a plain invoice from an invoice-receipt.
type DocumentType string

const (
	DocumentInvoice        DocumentType = "invoice"
	DocumentInvoiceReceipt DocumentType = "invoice_receipt"
)

// PaymentMethod enumerates the closed set offered in the invoice-gen flow.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCheck        PaymentMethod = "check"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentOther        PaymentMethod = "other"
)

// GeneratedInvoiceID builds the composite id "chat_{tenantID}_{invoiceNumber}".
func GeneratedInvoiceID(tenantID, invoiceNumber string) string {
	return fmt.Sprintf("chat_%s_%s", tenantID, invoiceNumber)
}

// GeneratedInvoice is one outbound invoice a tenant issued through the
// conversational flow.
type GeneratedInvoice struct {
	ID            string
	TenantID      string
	InvoiceNumber string
	DocumentType  DocumentType

	Customer    Customer
	Description string
	Amount      float64
	Currency    string // defaults to "ILS"

	PaymentMethod PaymentMethod
	Date          string // display format DD/MM/YYYY
	GeneratedAt   time.Time

	GeneratedBy GeneratedBy
	StoragePath string
	StorageURL  string
}

type Customer struct {
	Name  string
	TaxID string
}

type GeneratedBy struct {
	UserID   string
	Username string
	TenantID string
}

// CounterID builds the composite id "chat_{tenantID}_{year}".
func CounterID(tenantID string, year int) string {
	return fmt.Sprintf("chat_%s_%d", tenantID, year)
}

// InvoiceCounter is the per-tenant yearly high-water mark.
type InvoiceCounter struct {
	ID          string
	TenantID    string
	Year        int
	Counter     int64
	LastUpdated time.Time
}
