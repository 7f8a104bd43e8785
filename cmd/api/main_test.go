package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/leadintake/internal/app/bootstrap"
	appconfig "github.com/wolfman30/leadintake/internal/config"
	"github.com/wolfman30/leadintake/pkg/logging"
)

func TestSetupLeadServiceRejectsBadLabels(t *testing.T) {
	cfg := &appconfig.Config{ConversionLabelsJSON: "[1,2]"}
	if _, err := setupLeadService(cfg, bootstrap.BuildStores(nil), nil, nil, logging.New("error")); err == nil {
		t.Fatalf("expected error for malformed conversion labels")
	}
}

func TestSetupScannerWithoutBrowser(t *testing.T) {
	scanner, release := setupScanner(&appconfig.Config{SEOScanTimeout: time.Second}, logging.New("error"))
	if scanner == nil {
		t.Fatalf("expected scanner")
	}
	release()
}

func TestSetupIntakeLimit(t *testing.T) {
	logger := logging.New("error")
	if mw := setupIntakeLimit(&appconfig.Config{}, nil, logger); mw != nil {
		t.Fatalf("expected no limiter when disabled")
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &appconfig.Config{LeadRateLimitRPS: 0.5, LeadRateLimitBurst: 2}
	mw := setupIntakeLimit(cfg, client, logger)
	if mw == nil {
		t.Fatalf("expected limiter")
	}
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/lead", nil)
		req.RemoteAddr = "192.0.2.10:1000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
	if len(mr.Keys()) == 0 {
		t.Fatalf("expected the redis window counter to be used")
	}
}
