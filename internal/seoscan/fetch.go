package seoscan

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/netip"
	"net/url"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"
)

const maxPageBytes = 2 << 20

// ErrUnreachable means the target page could not be fetched at all.
var ErrUnreachable = errors.New("seoscan: target unreachable")

var errBlockedAddress = errors.New("seoscan: address not allowed")

// Ranges that pass netip's checks but still reach internal or shared
// infrastructure.
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("64:ff9b::/96"),
}

// Snapshot is everything the analyzer needs from one scan.
type Snapshot struct {
	URL        *url.URL
	StatusCode int
	HTML       string
	TTFB       time.Duration
	HasRobots  bool
	HasSitemap bool
}

// Fetcher downloads the page plus robots.txt and sitemap.xml in parallel.
type Fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// NewFetcher builds a fetcher bounded by timeout. A nil client gets a default
// one that only dials public addresses, checked after DNS resolution so
// redirects and rebinding hosts are covered too.
func NewFetcher(client *http.Client, userAgent string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if client == nil {
		dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second, Control: guardDial}
		client = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         dialer.DialContext,
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
				MaxIdleConnsPerHost: 4,
			},
		}
	}
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (compatible; SEOAuditBot/1.0)"
	}
	return &Fetcher{client: client, userAgent: userAgent, timeout: timeout}
}

// Fetch returns ErrUnreachable when the page itself fails. Missing robots.txt
// or sitemap.xml only marks the snapshot.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Snapshot, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	snap := &Snapshot{URL: target}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return f.fetchPage(gctx, snap)
	})
	g.Go(func() error {
		snap.HasRobots = f.exists(gctx, target.ResolveReference(&url.URL{Path: "/robots.txt"}))
		return nil
	})
	g.Go(func() error {
		snap.HasSitemap = f.exists(gctx, target.ResolveReference(&url.URL{Path: "/sitemap.xml"}))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, snap *Snapshot) error {
	ctx, span := tracer.Start(ctx, "seoscan.fetch_page")
	defer span.End()
	span.SetAttributes(attribute.String("seoscan.url", snap.URL.String()))

	var firstByte time.Time
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() { firstByte = time.Now() },
	}
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodGet, snap.URL.String(), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch page")
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	if firstByte.IsZero() {
		firstByte = time.Now()
	}
	snap.TTFB = firstByte.Sub(start)
	snap.StatusCode = resp.StatusCode
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxPageBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: decode body: %v", ErrUnreachable, err)
	}
	content, err := io.ReadAll(body)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: read body: %v", ErrUnreachable, err)
	}
	snap.HTML = string(content)
	return nil
}

func (f *Fetcher) exists(ctx context.Context, u *url.URL) bool {
	ctx, span := tracer.Start(ctx, "seoscan.fetch_resource")
	defer span.End()
	span.SetAttributes(attribute.String("seoscan.url", u.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", f.userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode == http.StatusOK
}

// guardDial runs on every outbound connection with the resolved ip:port.
func guardDial(network, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", errBlockedAddress, address)
	}
	if !publicAddr(ap.Addr()) {
		return fmt.Errorf("%w: %s", errBlockedAddress, ap.Addr())
	}
	return nil
}

func publicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsGlobalUnicast() || addr.IsPrivate() {
		return false
	}
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}
