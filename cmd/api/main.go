package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/leadintake/cmd/mainconfig"
	"github.com/wolfman30/leadintake/internal/api/router"
	"github.com/wolfman30/leadintake/internal/app/bootstrap"
	appconfig "github.com/wolfman30/leadintake/internal/config"
	"github.com/wolfman30/leadintake/internal/contacts"
	"github.com/wolfman30/leadintake/internal/conversions"
	httpmiddleware "github.com/wolfman30/leadintake/internal/http/middleware"
	"github.com/wolfman30/leadintake/internal/leads"
	"github.com/wolfman30/leadintake/internal/observability/metrics"
	"github.com/wolfman30/leadintake/internal/seoscan"
	"github.com/wolfman30/leadintake/internal/web"
	"github.com/wolfman30/leadintake/pkg/logging"
)

func main() {
	if err := mainconfig.LoadDotEnv(); err != nil {
		logging.Default().Warn("failed to load .env", "error", err)
	}
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting leadintake API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		defer pool.Close()
	} else {
		logger.Warn("DATABASE_URL not set or unreachable, using in-memory stores")
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	metricsHandler, intakeMetrics := bootstrap.BuildMetrics()
	stores := bootstrap.BuildStores(pool)

	leadService, err := setupLeadService(cfg, stores, redisClient, intakeMetrics, logger)
	if err != nil {
		logger.Error("failed to configure lead intake", "error", err)
		os.Exit(1)
	}

	scanner, closeProbe := setupScanner(cfg, logger)
	defer closeProbe()

	r := router.New(&router.Config{
		Logger:             logger,
		ContactsHandler:    contacts.NewHandler(stores.Contacts, logger),
		LeadsHandler:       leads.NewHandler(leadService, logger),
		ScanHandler:        seoscan.NewHandler(scanner, leadService, intakeMetrics, logger),
		PagesHandler:       web.NewHandler(web.DefaultCatalog(), leadService, logger),
		MetricsHandler:     metricsHandler,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		IntakeLimit:        setupIntakeLimit(cfg, redisClient, logger),
	})

	// Scans with the browser probe can take most of the write budget.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SEOScanTimeout*3 + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	logger.Info("server stopped")
}

func setupLeadService(cfg *appconfig.Config, stores *bootstrap.Stores, redisClient *redis.Client, m *metrics.IntakeMetrics, logger *logging.Logger) (*leads.Service, error) {
	labels, err := cfg.ConversionLabels()
	if err != nil {
		return nil, err
	}
	recorder := conversions.NewRecorder(cfg.GoogleConversionID, labels, stores.Logs, m, logger)

	var guard leads.IdempotencyGuard = leads.NewMemoryIdempotencyGuard(cfg.IdempotencyTTL)
	if redisClient != nil {
		guard = leads.NewRedisIdempotencyGuard(redisClient, cfg.IdempotencyTTL)
	}

	pusher := bootstrap.BuildCRMPusher(cfg, stores.Logs, logger)
	return leads.NewService(stores.Leads, pusher, logger).
		WithIdempotencyGuard(guard).
		WithRetryStore(stores.Retries).
		WithIntegrationLog(stores.Logs).
		WithConversions(recorder).
		WithMetrics(m), nil
}

// setupScanner returns the scanner and a release func for the browser probe.
func setupScanner(cfg *appconfig.Config, logger *logging.Logger) (*seoscan.Scanner, func()) {
	fetcher := seoscan.NewFetcher(nil, cfg.SEOScanUserAgent, cfg.SEOScanTimeout)
	if !cfg.SEOScanBrowserMetrics {
		return seoscan.NewScanner(fetcher, nil, logger), func() {}
	}
	probe := seoscan.NewChromeProbe(cfg.SEOScanUserAgent, cfg.SEOScanTimeout*2)
	logger.Info("browser metrics enabled for seo scans")
	return seoscan.NewScanner(fetcher, probe, logger), probe.Close
}

func setupIntakeLimit(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) func(http.Handler) http.Handler {
	if cfg.LeadRateLimitRPS <= 0 || cfg.LeadRateLimitBurst <= 0 {
		return nil
	}
	window := httpmiddleware.WindowFor(cfg.LeadRateLimitRPS, cfg.LeadRateLimitBurst)
	local := httpmiddleware.NewLocalLimiter(cfg.LeadRateLimitRPS, cfg.LeadRateLimitBurst)
	var primary httpmiddleware.Limiter
	if redisClient != nil {
		primary = httpmiddleware.NewRedisLimiter(redisClient, "intake", cfg.LeadRateLimitBurst, window)
	}
	return httpmiddleware.RateLimit(primary, local, window, logger)
}
