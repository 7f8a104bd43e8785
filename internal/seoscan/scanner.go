// Package seoscan runs the instant SEO audit behind the audit widget: it
// fetches a page, checks common on-page and crawlability problems, and turns
// them into a score, a grade and a short list of fixes.
package seoscan

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/leadintake/pkg/logging"
)

var tracer = otel.Tracer("leadintake.internal.seoscan")

// Metrics are the performance numbers reported with a scan.
type Metrics struct {
	TTFBMs int64  `json:"ttfbMs"`
	LCP    string `json:"lcp"`
	FCP    string `json:"fcp"`
}

// Result is the outcome of one scan.
type Result struct {
	Score      int      `json:"score"`
	Grade      string   `json:"grade"`
	Issues     []Issue  `json:"issues"`
	QuickFixes []string `json:"quickFixes"`
	Metrics    Metrics  `json:"metrics"`
	Browser    bool     `json:"-"`
}

// Scanner ties fetching, analysis and the optional browser probe together.
type Scanner struct {
	fetcher *Fetcher
	probe   BrowserProbe
	logger  *logging.Logger
}

// NewScanner returns a scanner. probe may be nil, in which case paint
// timings are reported as N/A.
func NewScanner(fetcher *Fetcher, probe BrowserProbe, logger *logging.Logger) *Scanner {
	if fetcher == nil {
		panic("seoscan: fetcher required")
	}
	return &Scanner{fetcher: fetcher, probe: probe, logger: logger.Component("seoscan")}
}

// Scan audits rawURL. Only an unreachable page is an error.
func (s *Scanner) Scan(ctx context.Context, rawURL string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "seoscan.Scan")
	defer span.End()
	span.SetAttributes(attribute.String("seoscan.url", rawURL))

	snap, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	found := Analyze(snap)
	issues, fixes := Rank(found)
	score := Score(found)
	result := &Result{
		Score:      score,
		Grade:      Grade(score),
		Issues:     issues,
		QuickFixes: fixes,
		Metrics: Metrics{
			TTFBMs: snap.TTFB.Milliseconds(),
			LCP:    NotAvailable,
			FCP:    NotAvailable,
		},
	}

	if s.probe != nil {
		vitals, err := s.probe.Measure(ctx, rawURL)
		if err != nil {
			s.logger.Warn("browser metrics unavailable", "url", rawURL, "error", err)
		} else {
			result.Browser = true
			result.Metrics.LCP = formatVital(vitals.LCP)
			result.Metrics.FCP = formatVital(vitals.FCP)
		}
	}

	span.SetAttributes(
		attribute.Int("seoscan.score", result.Score),
		attribute.String("seoscan.grade", result.Grade),
		attribute.Int("seoscan.issues", len(found)),
	)
	return result, nil
}
