package seoscan

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Severity ranks an issue. Lower values sort first.
type Severity int

const (
	SeverityHigh Severity = iota
	SeverityMedium
	SeverityLow
)

func (s Severity) String() string {
	switch s {
	case SeverityHigh:
		return "High"
	case SeverityMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// MarshalText renders the severity the way the widget displays it.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Issue is one failed check.
type Issue struct {
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`

	fix     string
	penalty int
}

// Fix returns the quick-fix recommendation for the issue.
func (i Issue) Fix() string { return i.fix }

// Penalty returns the points the issue costs.
func (i Issue) Penalty() int { return i.penalty }

// SlowTTFB is the time-to-first-byte above which the page counts as slow.
const SlowTTFB = 2500 * time.Millisecond

// Analyze runs every check against the snapshot and returns the failures in
// detection order.
func Analyze(snap *Snapshot) []Issue {
	var issues []Issue
	add := func(sev Severity, penalty int, title, fix string) {
		issues = append(issues, Issue{Severity: sev, Title: title, fix: fix, penalty: penalty})
	}

	if !strings.EqualFold(snap.URL.Scheme, "https") {
		add(SeverityHigh, 15, "Missing HTTPS: site is not secure",
			"Install an SSL certificate and redirect all HTTP traffic to HTTPS")
	}
	if snap.StatusCode != http.StatusOK {
		add(SeverityHigh, 20, fmt.Sprintf("Server returned %d status code", snap.StatusCode),
			"Fix server errors and ensure the homepage returns a 200 status")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	hasContent := err == nil && strings.TrimSpace(snap.HTML) != ""

	if hasContent && metaContent(doc, "description") == "" {
		add(SeverityHigh, 10, "Missing meta description",
			"Add unique meta descriptions to all pages (150-160 characters)")
	}
	if hasContent && strings.TrimSpace(doc.Find("title").First().Text()) == "" {
		add(SeverityHigh, 15, "Missing title tag",
			"Add descriptive title tags to all pages (50-60 characters)")
	}
	if hasContent && doc.Find("h1").Length() == 0 {
		add(SeverityMedium, 8, "Missing H1 heading",
			"Add a single, descriptive H1 tag to each page")
	}
	if hasContent && !hasMeta(doc, "viewport") {
		add(SeverityHigh, 12, "Not mobile-friendly: missing viewport meta tag",
			`Add a viewport meta tag: <meta name="viewport" content="width=device-width, initial-scale=1">`)
	}
	if !snap.HasRobots {
		add(SeverityMedium, 5, "Missing robots.txt file",
			"Create a robots.txt file to guide search engine crawlers")
	}
	if !snap.HasSitemap {
		add(SeverityMedium, 8, "Missing XML sitemap",
			"Generate an XML sitemap and submit it to Google Search Console")
	}
	if hasContent && !hasCanonical(doc) {
		add(SeverityMedium, 7, "Missing canonical tag",
			"Add canonical tags to prevent duplicate content issues")
	}
	if hasContent && doc.Find(`script[type="application/ld+json"]`).Length() == 0 {
		add(SeverityLow, 5, "No structured data (JSON-LD) found",
			"Add JSON-LD structured data for your organization and key pages")
	}
	if hasContent && strings.Contains(strings.ToLower(metaContent(doc, "robots")), "noindex") {
		add(SeverityHigh, 10, "Page is blocked from search results (noindex)",
			"Remove the noindex robots directive from pages that should rank")
	}
	if hasContent {
		if missing := imagesWithoutAlt(doc); missing > 0 {
			add(SeverityLow, 3, fmt.Sprintf("%d image(s) missing alt text", missing),
				"Add descriptive alt text to every meaningful image")
		}
	}
	if snap.TTFB > SlowTTFB {
		add(SeverityMedium, 5, fmt.Sprintf("Slow server response (%.1fs to first byte)", snap.TTFB.Seconds()),
			"Enable caching or a CDN to bring server response under 2.5 seconds")
	}
	if hasContent && strings.TrimSpace(doc.Find("html").AttrOr("lang", "")) == "" {
		add(SeverityLow, 2, "Missing language declaration on <html>",
			`Declare the page language, for example <html lang="en">`)
	}
	return issues
}

func metaContent(doc *goquery.Document, name string) string {
	var content string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(s.AttrOr("name", "")), name) {
			content = strings.TrimSpace(s.AttrOr("content", ""))
			return false
		}
		return true
	})
	return content
}

func hasMeta(doc *goquery.Document, name string) bool {
	found := false
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = strings.EqualFold(strings.TrimSpace(s.AttrOr("name", "")), name)
		return !found
	})
	return found
}

func hasCanonical(doc *goquery.Document) bool {
	found := false
	doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, rel := range strings.Fields(s.AttrOr("rel", "")) {
			if strings.EqualFold(rel, "canonical") && strings.TrimSpace(s.AttrOr("href", "")) != "" {
				found = true
			}
		}
		return !found
	})
	return found
}

func imagesWithoutAlt(doc *goquery.Document) int {
	missing := 0
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("alt"); !ok {
			missing++
		}
	})
	return missing
}
