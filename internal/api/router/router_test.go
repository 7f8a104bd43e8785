package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/leadintake/internal/contacts"
	httpmiddleware "github.com/wolfman30/leadintake/internal/http/middleware"
	"github.com/wolfman30/leadintake/internal/leads"
	"github.com/wolfman30/leadintake/internal/seoscan"
	"github.com/wolfman30/leadintake/internal/web"
	"github.com/wolfman30/leadintake/pkg/logging"
)

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T, limit func(http.Handler) http.Handler) http.Handler {
	t.Helper()

	logger := logging.New("error")
	svc := leads.NewService(leads.NewInMemoryRepository(), nil, logger).
		WithIdempotencyGuard(leads.NewMemoryIdempotencyGuard(time.Hour))
	scanner := seoscan.NewScanner(seoscan.NewFetcher(nil, "", time.Second), nil, logger)

	return New(&Config{
		Logger:          logger,
		ContactsHandler: contacts.NewHandler(contacts.NewInMemoryRepository(), logger),
		LeadsHandler:    leads.NewHandler(svc, logger),
		ScanHandler:     seoscan.NewHandler(scanner, svc, nil, logger),
		PagesHandler:    web.NewHandler(web.DefaultCatalog(), svc, logger),
		AdminAuthSecret: testSecret,
		IntakeLimit:     limit,
	})
}

func adminToken(t *testing.T, role string) string {
	t.Helper()
	claims := httpmiddleware.AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops@example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func serve(h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.9:4000"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouterHealthEndpoint(t *testing.T) {
	rr := serve(newTestRouter(t, nil), http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterLeadEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)
	body := `{"name":"Router Test","email":"router@example.com","source":"nextjs-development"}`

	rr := serve(router, http.MethodPost, "/api/lead", body, map[string]string{"Content-Type": "application/json"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}

	var resp struct {
		OK   bool `json:"ok"`
		Data struct {
			LeadID string `json:"leadId"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK || resp.Data.LeadID == "" {
		t.Fatalf("expected ok envelope with lead id, got %+v", resp)
	}
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, path := range []string{"/api/admin/contacts", "/api/admin/leads"} {
		rr := serve(router, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: expected 401, got %d", path, rr.Code)
		}

		auth := map[string]string{"Authorization": "Bearer " + adminToken(t, httpmiddleware.RoleAdmin)}
		rr = serve(router, http.MethodGet, path, "", auth)
		if rr.Code != http.StatusOK {
			t.Errorf("%s with admin token: expected 200, got %d", path, rr.Code)
		}

		auth["Authorization"] = "Bearer " + adminToken(t, "viewer")
		rr = serve(router, http.MethodGet, path, "", auth)
		if rr.Code != http.StatusForbidden {
			t.Errorf("%s with viewer token: expected 403, got %d", path, rr.Code)
		}
	}
}

func TestRouterPublicContactThenAdminList(t *testing.T) {
	router := newTestRouter(t, nil)
	body := `{"name":"Ada","email":"ada@example.com","message":"Need a new site"}`

	rr := serve(router, http.MethodPost, "/api/contact", body, map[string]string{"Content-Type": "application/json"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	auth := map[string]string{"Authorization": "Bearer " + adminToken(t, httpmiddleware.RoleEditor)}
	rr = serve(router, http.MethodGet, "/api/admin/contacts", "", auth)
	if !strings.Contains(rr.Body.String(), "ada@example.com") {
		t.Fatalf("expected submission in admin list, got %s", rr.Body.String())
	}
}

func TestRouterIntakeIsRateLimited(t *testing.T) {
	limit := httpmiddleware.RateLimit(httpmiddleware.NewLocalLimiter(0.01, 1), nil, time.Minute, logging.New("error"))
	router := newTestRouter(t, limit)

	rr := serve(router, http.MethodPost, "/api/seo-scan", `{}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("first scan request should reach validation, got %d", rr.Code)
	}
	rr = serve(router, http.MethodPost, "/api/lead", `{}`, nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the budget is spent, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("expected Retry-After 60, got %q", rr.Header().Get("Retry-After"))
	}

	for _, target := range []string{"/api/contact", "/pages/seo-audit/lead"} {
		rr = serve(router, http.MethodPost, target, `{}`, nil)
		if rr.Code != http.StatusTooManyRequests {
			t.Errorf("%s: expected 429 from the shared intake budget, got %d", target, rr.Code)
		}
	}

	rr = serve(router, http.MethodGet, "/pages/seo-audit", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("landing page views are not rate limited, got %d", rr.Code)
	}
}

func TestRouterLandingPages(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := serve(router, http.MethodGet, "/pages/ai-chatbot-development", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	rr = serve(router, http.MethodGet, "/pages/does-not-exist", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown page, got %d", rr.Code)
	}
}
