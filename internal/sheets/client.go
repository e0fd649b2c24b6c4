// Package sheets is the spreadsheet client named in spec.md §4.3 step 4 and
// §4.8: ensure a tab and its header row exist, then append one row. Grounded
// on the teacher's internal/voucher/excel_filler.go cell-by-cell template
// filler, generalized from a fixed single-sheet template with hardcoded
// cell addresses to an append-only ledger with named columns, since spec.md's
// sheet is a running log per tenant rather than a per-submission voucher.
package sheets

import (
	"fmt"
	"sync"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	// InvoicesTab holds one row per persisted ingest job.
	InvoicesTab = "Invoices"
	// GeneratedInvoicesTab holds one row per chat-generated invoice.
	GeneratedInvoicesTab = "Generated Invoices"
)

var invoicesHeaders = []string{
	"Job ID", "Vendor", "Invoice Number", "Invoice Date", "Total Amount",
	"Currency", "VAT Amount", "Category", "Confidence", "Drive Link", "Persisted At",
}

var generatedInvoicesHeaders = []string{
	"Invoice Number", "Document Type", "Customer Name", "Customer Tax ID",
	"Description", "Amount", "Currency", "Payment Method", "Date", "Generated By",
}

// Client appends rows to a per-tenant workbook on the local filesystem. Each
// tenant's BusinessConfig.Business.SheetID is the path to its workbook,
// matching the other per-tenant artifacts managed by internal/objectstore.
type Client struct {
	mu     sync.Mutex
	logger *zap.Logger
}

// NewClient builds a spreadsheet client.
func NewClient(logger *zap.Logger) *Client {
	return &Client{logger: logger}
}

// AppendInvoiceRow appends a persisted job's extracted fields to the
// Invoices tab, creating the workbook and header row on first use.
func (c *Client) AppendInvoiceRow(workbookPath string, row []string) error {
	return c.appendRow(workbookPath, InvoicesTab, invoicesHeaders, row)
}

// AppendGeneratedInvoiceRow appends a chat-generated invoice to the
// Generated Invoices tab.
func (c *Client) AppendGeneratedInvoiceRow(workbookPath string, row []string) error {
	return c.appendRow(workbookPath, GeneratedInvoicesTab, generatedInvoicesHeaders, row)
}

func (c *Client) appendRow(workbookPath, tab string, headers []string, row []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.openOrCreate(workbookPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := c.ensureTab(f, tab, headers); err != nil {
		return err
	}

	nextRow, err := f.GetRows(tab)
	if err != nil {
		return fmt.Errorf("read existing rows: %w", err)
	}
	rowIndex := len(nextRow) + 1

	for col, value := range row {
		cell, err := excelize.CoordinatesToCellName(col+1, rowIndex)
		if err != nil {
			return fmt.Errorf("resolve cell: %w", err)
		}
		if err := f.SetCellValue(tab, cell, value); err != nil {
			c.logger.Warn("failed to set cell", zap.String("cell", cell), zap.Error(err))
		}
	}

	if err := f.SaveAs(workbookPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	c.logger.Info("appended sheet row",
		zap.String("workbook", workbookPath), zap.String("tab", tab), zap.Int("row", rowIndex))
	return nil
}

// EscapeDate prefixes a date-like cell value with a leading apostrophe, the
// spreadsheet convention that suppresses the client's automatic
// serial-number conversion of date-shaped strings. Empty values pass
// through unchanged.
func EscapeDate(date string) string {
	if date == "" {
		return ""
	}
	return "'" + date
}

// VerifyAndListTabs confirms workbookPath is reachable and returns its tab
// names, per spec.md §4.5's sheet step: the onboarding flow echoes the
// listed tabs back to the user as confirmation the service identity can
// reach the workbook.
func (c *Client) VerifyAndListTabs(workbookPath string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := excelize.OpenFile(workbookPath)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

func (c *Client) openOrCreate(workbookPath string) (*excelize.File, error) {
	f, err := excelize.OpenFile(workbookPath)
	if err == nil {
		return f, nil
	}
	f = excelize.NewFile()
	return f, nil
}

// ensureTab creates the tab and writes its header row if the tab does not
// already exist, then deletes excelize's default "Sheet1" once a real tab
// has been added.
func (c *Client) ensureTab(f *excelize.File, tab string, headers []string) error {
	index, err := f.GetSheetIndex(tab)
	if err == nil && index != -1 {
		return nil
	}

	if _, err := f.NewSheet(tab); err != nil {
		return fmt.Errorf("create tab %s: %w", tab, err)
	}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("resolve header cell: %w", err)
		}
		if err := f.SetCellValue(tab, cell, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	if defaultIndex, err := f.GetSheetIndex("Sheet1"); err == nil && defaultIndex != -1 && tab != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}
	return nil
}
