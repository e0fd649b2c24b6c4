package invoicegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rivergate/invoiceflow/internal/domain"
)

// Details is the parsed comma-separated message the awaiting_details step
// collects: "customer name, amount, description[, customer tax id]".
type Details struct {
	CustomerName string
	Amount       float64
	Description  string
	CustomerTaxID string
}

// ParseDetails validates the details-step message per spec.md §4.8.
func ParseDetails(input string) (Details, error) {
	parts := strings.Split(input, ",")
	if len(parts) < 3 || len(parts) > 4 {
		return Details{}, fmt.Errorf("expected \"customer name, amount, description[, customer tax id]\", got %d fields", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	name := parts[0]
	if name == "" {
		return Details{}, fmt.Errorf("customer name cannot be empty")
	}
	amount, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || amount <= 0 {
		return Details{}, fmt.Errorf("amount must be a positive number")
	}
	description := parts[2]
	if description == "" {
		return Details{}, fmt.Errorf("description cannot be empty")
	}
	var taxID string
	if len(parts) == 4 {
		taxID = parts[3]
	}
	return Details{CustomerName: name, Amount: amount, Description: description, CustomerTaxID: taxID}, nil
}

// ValidPaymentMethod reports whether method is one of the closed set
// spec.md §4.8's payment step offers via inline buttons.
func ValidPaymentMethod(method string) bool {
	switch domain.PaymentMethod(method) {
	case domain.PaymentCash, domain.PaymentCheck, domain.PaymentBankTransfer,
		domain.PaymentCreditCard, domain.PaymentOther:
		return true
	default:
		return false
	}
}

// ValidDocumentType reports whether docType is invoice or invoice_receipt.
func ValidDocumentType(docType string) bool {
	switch domain.DocumentType(docType) {
	case domain.DocumentInvoice, domain.DocumentInvoiceReceipt:
		return true
	default:
		return false
	}
}
