// Package capture produces PNG snapshots of the rendered weekly calendar by
// driving a headless Chromium through chromedp. The snapshot is served from
// /preview.png and can be written to disk for signage displays.
package capture

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

// Default viewport for the weekly grid. Landscape, wide enough for six day
// columns at a readable width.
const (
	DefaultWidth      = 1440
	DefaultHeight     = 900
	DefaultTimeoutSec = 30
)

// Options describes one snapshot request.
type Options struct {
	// URL of the calendar page, e.g. "http://127.0.0.1:8080/".
	URL string

	// OutputPath, when non-empty, is where the PNG is also written on disk.
	OutputPath string

	// Width and Height are the viewport dimensions in pixels. Zero selects
	// DefaultWidth / DefaultHeight.
	Width  int
	Height int

	// Timeout bounds the whole capture. Zero selects DefaultTimeoutSec.
	Timeout time.Duration
}

// SchedulePNG navigates a headless Chromium to opts.URL, waits for the page
// to mark itself rendered via data-ready="true" on the grid root, and
// returns the screenshot bytes. When opts.OutputPath is set the PNG is also
// written there.
func SchedulePNG(parentCtx context.Context, opts Options) ([]byte, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("capture: URL is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		// The page sets data-ready="true" once the schedule fetch has
		// settled and the grid is painted.
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		// Allow one more frame for late style recalculation.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if opts.OutputPath != "" {
		if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
			return nil, fmt.Errorf("capture: write PNG: %w", err)
		}
	}

	return png, nil
}
