package bootstrap

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	appconfig "github.com/wolfman30/leadintake/internal/config"
	"github.com/wolfman30/leadintake/internal/contacts"
	"github.com/wolfman30/leadintake/internal/crm"
	"github.com/wolfman30/leadintake/internal/integrations"
	"github.com/wolfman30/leadintake/internal/leads"
	"github.com/wolfman30/leadintake/internal/observability/metrics"
	"github.com/wolfman30/leadintake/pkg/logging"
)

// Stores groups the repositories shared by the API and the worker.
type Stores struct {
	Contacts contacts.Repository
	Leads    leads.Repository
	Retries  crm.RetryStore
	Logs     integrations.Store
	// Durable reports whether the stores are Postgres-backed. The outbox
	// only exists in that case.
	Durable bool
}

// BuildStores returns Postgres repositories when pool is set and in-memory
// ones otherwise.
func BuildStores(pool *pgxpool.Pool) *Stores {
	if pool == nil {
		return &Stores{
			Contacts: contacts.NewInMemoryRepository(),
			Leads:    leads.NewInMemoryRepository(),
			Retries:  crm.NewMemoryRetryStore(),
			Logs:     integrations.NewMemoryStore(),
		}
	}
	return &Stores{
		Contacts: contacts.NewPostgresRepository(pool),
		Leads:    leads.NewPostgresRepository(pool),
		Retries:  crm.NewPostgresRetryStore(pool),
		Logs:     integrations.NewPostgresStore(pool),
		Durable:  true,
	}
}

// BuildRetryWorker wires the CRM retry loop over the shared stores.
func BuildRetryWorker(cfg *appconfig.Config, stores *Stores, pusher crm.Pusher, m *metrics.IntakeMetrics, logger *logging.Logger) *crm.RetryWorker {
	return crm.NewRetryWorker(stores.Retries, leads.NewCRMSource(stores.Leads), pusher, logger).
		WithMaxAttempts(cfg.CRMRetryMaxAttempt).
		WithBaseDelay(cfg.CRMRetryBaseDelay).
		WithInterval(cfg.CRMRetryInterval).
		WithMetrics(m)
}

// BuildCRMPusher returns the Zoho client, or crm.Disabled when credentials
// are missing so every lead lands in the retry queue.
func BuildCRMPusher(cfg *appconfig.Config, logs integrations.Store, logger *logging.Logger) crm.Pusher {
	client, err := crm.NewClient(crm.Config{
		ClientID:     cfg.ZohoClientID,
		ClientSecret: cfg.ZohoClientSecret,
		RefreshToken: cfg.ZohoRefreshToken,
		TokenURL:     cfg.ZohoTokenURL,
		LeadsURL:     cfg.ZohoLeadsURL,
	}, logs, logger)
	switch {
	case errors.Is(err, crm.ErrNotConfigured):
		logger.Warn("crm credentials missing, leads will queue for retry")
		return crm.Disabled{}
	case err != nil:
		logger.Error("crm client misconfigured", "error", err)
		return crm.Disabled{}
	}
	return client
}
