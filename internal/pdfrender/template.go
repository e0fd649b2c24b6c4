package pdfrender

import (
	"bytes"
	"fmt"
	"html/template"
)

// InvoiceData holds every user-supplied field the invoice template
// interpolates. Every field passes through html/template's contextual
// auto-escaping, satisfying spec.md §4.8 step 3's requirement that all
// user-supplied fields be HTML-escaped before rendering.
type InvoiceData struct {
	InvoiceNumber        string
	DocumentType         string
	BusinessName         string
	BusinessTaxID         string
	BusinessAddress      string
	CustomerName         string
	CustomerTaxID        string
	Description          string
	Amount               string
	Currency             string
	PaymentMethod        string
	Date                 string
	DigitalSignatureText string
	GeneratedByText      string
	LogoURL              string
}

var invoiceTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html dir="rtl" lang="he">
<head>
<meta charset="utf-8">
<style>
  body { font-family: "Arial", sans-serif; direction: rtl; padding: 40px; }
  .header { display: flex; justify-content: space-between; align-items: center; border-bottom: 2px solid #333; padding-bottom: 16px; }
  .logo { max-height: 80px; }
  h1 { font-size: 22px; }
  table { width: 100%; border-collapse: collapse; margin-top: 24px; }
  td, th { border: 1px solid #ccc; padding: 8px; text-align: right; }
  .signature { margin-top: 48px; font-size: 12px; color: #555; }
</style>
</head>
<body>
  <div class="header">
    <div>
      <h1>{{.BusinessName}}</h1>
      <div>{{.BusinessAddress}}</div>
      <div>ח.פ./ע.מ. {{.BusinessTaxID}}</div>
    </div>
    {{if .LogoURL}}<img class="logo" src="{{.LogoURL}}" alt="logo">{{end}}
  </div>

  <h2>{{.DocumentType}} #{{.InvoiceNumber}}</h2>
  <div>תאריך: {{.Date}}</div>

  <table>
    <tr><th>לקוח</th><td>{{.CustomerName}}</td></tr>
    {{if .CustomerTaxID}}<tr><th>ח.פ./ע.מ. לקוח</th><td>{{.CustomerTaxID}}</td></tr>{{end}}
    <tr><th>תיאור</th><td>{{.Description}}</td></tr>
    <tr><th>סכום</th><td>{{.Amount}} {{.Currency}}</td></tr>
    <tr><th>אמצעי תשלום</th><td>{{.PaymentMethod}}</td></tr>
  </table>

  <div class="signature">
    {{.DigitalSignatureText}}<br>
    {{.GeneratedByText}}
  </div>
</body>
</html>
`))

// Render executes the invoice HTML template against data.
func Render(data InvoiceData) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render invoice template: %w", err)
	}
	return buf.String(), nil
}
