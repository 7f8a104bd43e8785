package seoscan

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// NotAvailable is reported for vitals that were not measured.
const NotAvailable = "N/A"

// Vitals are paint timings observed in a real browser.
type Vitals struct {
	FCP time.Duration
	LCP time.Duration
}

// BrowserProbe measures paint timings for a URL.
type BrowserProbe interface {
	Measure(ctx context.Context, url string) (Vitals, error)
}

const vitalsScript = `new Promise((resolve) => {
	const out = { fcp: 0, lcp: 0 };
	const paint = performance.getEntriesByName('first-contentful-paint')[0];
	if (paint) { out.fcp = paint.startTime; }
	try {
		new PerformanceObserver((list) => {
			const entries = list.getEntries();
			if (entries.length) { out.lcp = entries[entries.length - 1].startTime; }
		}).observe({ type: 'largest-contentful-paint', buffered: true });
	} catch (e) {}
	setTimeout(() => resolve(out), 500);
})`

// ChromeProbe drives headless Chrome through chromedp.
type ChromeProbe struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	timeout  time.Duration
}

// NewChromeProbe starts an exec allocator. Close releases it.
func NewChromeProbe(userAgent string, timeout time.Duration) *ChromeProbe {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeProbe{allocCtx: allocCtx, cancel: cancel, timeout: timeout}
}

// Measure loads url in a fresh tab and reads FCP and LCP from the
// Performance API.
func (p *ChromeProbe) Measure(ctx context.Context, url string) (Vitals, error) {
	taskCtx, cancel := chromedp.NewContext(p.allocCtx)
	defer cancel()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, p.timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var out struct {
		FCP float64 `json:"fcp"`
		LCP float64 `json:"lcp"`
	}
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(vitalsScript, &out, func(params *runtime.EvaluateParams) *runtime.EvaluateParams {
			return params.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return Vitals{}, fmt.Errorf("seoscan: browser probe: %w", err)
	}
	return Vitals{
		FCP: time.Duration(out.FCP * float64(time.Millisecond)),
		LCP: time.Duration(out.LCP * float64(time.Millisecond)),
	}, nil
}

// Close shuts down the browser allocator.
func (p *ChromeProbe) Close() {
	if p != nil && p.cancel != nil {
		p.cancel()
	}
}

func formatVital(d time.Duration) string {
	if d <= 0 {
		return NotAvailable
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
