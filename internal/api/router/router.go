package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/leadintake/internal/contacts"
	httpmiddleware "github.com/wolfman30/leadintake/internal/http/middleware"
	"github.com/wolfman30/leadintake/internal/leads"
	"github.com/wolfman30/leadintake/internal/seoscan"
	"github.com/wolfman30/leadintake/internal/web"
	"github.com/wolfman30/leadintake/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	ContactsHandler *contacts.Handler
	LeadsHandler    *leads.Handler
	ScanHandler     *seoscan.Handler
	PagesHandler    *web.Handler
	MetricsHandler  http.Handler

	AdminAuthSecret    string
	CORSAllowedOrigins []string

	// IntakeLimit guards every public write endpoint with one per-client
	// budget. Nil disables limiting.
	IntakeLimit func(http.Handler) http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.PagesHandler != nil {
			public.Get("/pages/{slug}", cfg.PagesHandler.Show)
		}
	})

	r.Group(func(intake chi.Router) {
		if cfg.IntakeLimit != nil {
			intake.Use(cfg.IntakeLimit)
		}
		if cfg.LeadsHandler != nil {
			intake.Post("/api/lead", cfg.LeadsHandler.Create)
		}
		if cfg.ScanHandler != nil {
			intake.Post("/api/seo-scan", cfg.ScanHandler.Scan)
		}
		if cfg.ContactsHandler != nil {
			intake.Post("/api/contact", cfg.ContactsHandler.Create)
		}
		if cfg.PagesHandler != nil {
			intake.Post("/pages/{slug}/lead", cfg.PagesHandler.Submit)
		}
	})

	// Admin routes always mount; AdminJWT answers 401 when no secret is configured.
	r.Route("/api/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		if cfg.ContactsHandler != nil {
			admin.Get("/contacts", cfg.ContactsHandler.List)
			admin.Put("/contacts", cfg.ContactsHandler.Update)
			admin.Delete("/contacts", cfg.ContactsHandler.Delete)
		}
		if cfg.LeadsHandler != nil {
			admin.Get("/leads", cfg.LeadsHandler.List)
			admin.Put("/leads", cfg.LeadsHandler.Update)
			admin.Delete("/leads", cfg.LeadsHandler.Delete)
		}
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
