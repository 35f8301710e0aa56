// Package capture screenshots the timetable page with headless Chromium.
package capture

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"weekgrid/internal/grid"
)

// Default capture parameters used when Options leaves them at zero.
const (
	DefaultWidth      = 1024
	DefaultHeight     = 768
	DefaultTimeoutSec = 30

	// headerHeight is the weekday row above the scrollable grid.
	headerHeight = 32
)

// Options defines parameters for a Chromium-based screenshot capture.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/timetable".
	URL string

	// OutputPath is where the PNG screenshot is written.
	OutputPath string

	// Width and Height are the viewport dimensions in pixels.
	Width  int
	Height int

	// Timeout bounds the entire capture operation.
	Timeout time.Duration
}

// ViewportFor sizes the viewport so the whole canvas, time axis and header
// fit without scrolling.
func ViewportFor(g grid.Geometry) (width, height int) {
	width = int(math.Ceil(g.TimeAxisWidth + g.CanvasWidth))
	height = int(math.Ceil(g.CanvasHeight)) + headerHeight
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= headerHeight {
		height = DefaultHeight
	}
	return width, height
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return o
}

// CapturePNG drives headless Chromium to opts.URL, waits until the page
// marks itself ready with data-ready="true" and writes a full-page PNG.
func CapturePNG(parentCtx context.Context, opts Options) error {
	if opts.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	opts = opts.withDefaults()

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		// Let the initial scroll and final paint settle.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return fmt.Errorf("capture: create output dir: %w", err)
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}
