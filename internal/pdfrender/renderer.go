// Package pdfrender renders a generated invoice's HTML into PDF bytes
// through a headless browser, the "external headless renderer" spec.md
// §4.8 step 3 names as an out-of-scope collaborator (browser-based PDF
// rendering of outgoing invoices is explicitly listed under §1's
// out-of-scope interfaces). Grounded on the chromedp/cdproto dependency
// pair this module's retrieval pack carries, driving chromedp's
// print-to-PDF action against an HTML document served from a data URL so
// no temporary file or local HTTP listener is needed.
package pdfrender

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Timeout bounds how long a single render may take before the caller's
// context is cancelled.
const Timeout = 30 * time.Second

// Renderer converts HTML documents to PDF bytes using a headless Chrome
// instance.
type Renderer struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

// New starts the shared headless browser allocator. Call Close on shutdown.
func New() *Renderer {
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	return &Renderer{allocCtx: allocCtx, cancel: cancel}
}

// Close releases the browser allocator.
func (r *Renderer) Close() { r.cancel() }

// RenderHTML rasterizes html to a single PDF document sized for a standard
// invoice page.
func (r *Renderer) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	taskCtx, taskCancel := chromedp.NewContext(r.allocCtx)
	defer taskCancel()

	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))

	var pdfBytes []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, renderErr := page.PrintToPDF().
				WithPrintBackground(true).
				WithMarginTop(0.4).
				WithMarginBottom(0.4).
				Do(ctx)
			if renderErr != nil {
				return renderErr
			}
			pdfBytes = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return pdfBytes, nil
}
