package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromiumRenderer prints an HTML artifact to PDF with a headless Chromium.
// Requires Chrome/Chromium to be installed on the system.
type ChromiumRenderer struct {
	Timeout time.Duration
}

// NewChromiumRenderer creates a ChromiumRenderer with a default timeout.
func NewChromiumRenderer() *ChromiumRenderer {
	return &ChromiumRenderer{Timeout: 60 * time.Second}
}

// Render loads inputPath (HTML) and writes a PDF to outputPath.
func (r *ChromiumRenderer) Render(ctx context.Context, inputPath, outputPath string) error {
	absInput, err := filepath.Abs(inputPath)
	if err != nil {
		return fmt.Errorf("failed to resolve input path: %v: %w", err, ErrNonRecoverable)
	}
	if _, err := os.Stat(absInput); err != nil {
		return fmt.Errorf("input artifact missing: %v: %w", err, ErrNonRecoverable)
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := r.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+absInput),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			return err
		}),
	)
	if err != nil {
		// Browser startup or navigation failures are transient
		return fmt.Errorf("chromium rendering failed: %w", err)
	}

	if err := os.WriteFile(outputPath, pdf, 0o644); err != nil {
		return fmt.Errorf("failed to write PDF %s: %w", outputPath, err)
	}
	return nil
}
