package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// DefaultTimeoutSec bounds one page print when PDFOptions.Timeout is zero.
const DefaultTimeoutSec = 30

var (
	ErrNoURL    = errors.New("capture: URL is required")
	ErrNoOutput = errors.New("capture: OutputPath is required")
)

// PDFOptions defines one Chromium print-to-PDF job.
type PDFOptions struct {
	// URL to print, e.g. "file:///tmp/matrix/day-sunday.html" or
	// "http://127.0.0.1:8787/timetable/Sunday?pdf=1".
	URL string

	// OutputPath is where the PDF is written.
	OutputPath string

	// Landscape selects the paper orientation when the page has no @page
	// rule of its own.
	Landscape bool

	// Timeout bounds the whole job. Zero means DefaultTimeoutSec.
	Timeout time.Duration
}

func (o *PDFOptions) validate() error {
	if o.URL == "" {
		return ErrNoURL
	}
	if o.OutputPath == "" {
		return ErrNoOutput
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return nil
}

// FileURL turns a local path into a file:// URL Chromium can load.
func FileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// IsLandscape reports whether an orientation setting means landscape.
func IsLandscape(orientation string) bool {
	return strings.EqualFold(strings.TrimSpace(orientation), "landscape")
}

// PrintPDF launches a headless Chromium via chromedp, loads opts.URL, waits
// for the body to be ready and writes the page printed to PDF.
//
// The page's own @page rule decides the paper size; PreferCSSPageSize is set
// so the matrix view's size and orientation are honoured.
func PrintPDF(parentCtx context.Context, opts PDFOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var pdf []byte
	tasks := chromedp.Tasks{
		chromedp.Navigate(opts.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithLandscape(opts.Landscape).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return fmt.Errorf("capture: create output dir: %w", err)
	}
	if err := os.WriteFile(opts.OutputPath, pdf, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PDF: %w", err)
	}
	return nil
}
