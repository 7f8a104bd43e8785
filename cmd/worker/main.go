package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/leadintake/cmd/mainconfig"
	"github.com/wolfman30/leadintake/internal/app/bootstrap"
	appconfig "github.com/wolfman30/leadintake/internal/config"
	"github.com/wolfman30/leadintake/internal/events"
	"github.com/wolfman30/leadintake/internal/notify"
	"github.com/wolfman30/leadintake/pkg/logging"
)

func main() {
	if err := mainconfig.LoadDotEnv(); err != nil {
		logging.Default().Warn("failed to load .env", "error", err)
	}
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool == nil {
		logger.Error("worker requires DATABASE_URL")
		os.Exit(1)
	}
	defer pool.Close()

	var emailSender notify.EmailSender
	if awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg); err != nil {
		logger.Warn("aws config unavailable, SES disabled", "error", err)
		emailSender = bootstrap.BuildEmailSender(cfg, nil, logger)
	} else {
		emailSender = bootstrap.BuildEmailSender(cfg, &awsCfg, logger)
	}

	logger.Info("starting leadintake worker")
	run(ctx, cfg, pool, emailSender, logger)
	logger.Info("worker stopped")
}

// run blocks until ctx is cancelled and every loop has returned.
func run(ctx context.Context, cfg *appconfig.Config, pool *pgxpool.Pool, emailSender notify.EmailSender, logger *logging.Logger) {
	stores := bootstrap.BuildStores(pool)
	pusher := bootstrap.BuildCRMPusher(cfg, stores.Logs, logger)
	metricsHandler, intakeMetrics := bootstrap.BuildMetrics()

	retryWorker := bootstrap.BuildRetryWorker(cfg, stores, pusher, intakeMetrics, logger)

	notifier := notify.NewLeadNotifier(emailSender, events.NewPostgresLedger(pool), cfg.SalesNotifyEmail, logger)
	deliverer := events.NewDeliverer(events.NewOutboxStore(pool), notifier, logger).
		WithInterval(cfg.OutboxInterval)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		retryWorker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		deliverer.Run(ctx)
	}()
	if cfg.WorkerMetricsAddr != "off" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveMetrics(ctx, cfg.WorkerMetricsAddr, metricsHandler, logger)
		}()
	}
	wg.Wait()
}

// serveMetrics exposes the worker's registry until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string, handler http.Handler, logger *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("worker metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("worker metrics server failed", "error", err)
	}
}
