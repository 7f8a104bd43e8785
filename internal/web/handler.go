// Package web serves the landing pages' lead forms as server-rendered HTML,
// with every page section isolated behind a Boundary.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/leadintake/internal/conversions"
	"github.com/wolfman30/leadintake/internal/leads"
	"github.com/wolfman30/leadintake/pkg/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

const genericFailure = "Something went wrong. Please try again or contact us directly."

// LeadSubmitter is the intake service the forms post into.
type LeadSubmitter interface {
	Submit(ctx context.Context, req *leads.CreateLeadRequest) (*leads.Result, error)
}

// conversionTag is the single analytics tag rendered after a successful submit.
type conversionTag struct {
	Event  string
	SendTo string
}

type pageView struct {
	Page           *Page
	Values         map[string]string
	Error          string
	IdempotencyKey string
	FirstName      string
	Submitted      bool
	Conversion     *conversionTag
	Sections       []template.HTML
}

// Handler renders landing pages and accepts their form posts.
type Handler struct {
	catalog *Catalog
	leads   LeadSubmitter
	tmpl    *template.Template
	logger  *logging.Logger
}

// NewHandler parses the embedded templates. It panics if they are malformed.
func NewHandler(catalog *Catalog, submitter LeadSubmitter, logger *logging.Logger) *Handler {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Handler{
		catalog: catalog,
		leads:   submitter,
		tmpl:    template.Must(template.ParseFS(templateFS, "templates/*.html")),
		logger:  logger.Component("landing_pages"),
	}
}

// Show handles GET /pages/{slug}
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	page, ok := h.catalog.Lookup(chi.URLParam(r, "slug"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.render(w, http.StatusOK, &pageView{
		Page:           page,
		Values:         map[string]string{},
		IdempotencyKey: uuid.NewString(),
	})
}

// Submit handles POST /pages/{slug}/lead
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	page, ok := h.catalog.Lookup(chi.URLParam(r, "slug"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, &pageView{
			Page:           page,
			Values:         map[string]string{},
			Error:          genericFailure,
			IdempotencyKey: uuid.NewString(),
		})
		return
	}

	values := make(map[string]string, len(page.Fields))
	for _, f := range page.Fields {
		values[f.Name] = strings.TrimSpace(r.PostForm.Get(f.Name))
	}
	key := strings.TrimSpace(r.PostForm.Get("idempotencyKey"))
	if key == "" {
		key = uuid.NewString()
	}

	req := page.Request(r.PostForm)
	req.IdempotencyKey = key
	result, err := h.leads.Submit(r.Context(), req)
	if err != nil {
		status, msg := formError(err)
		h.logger.Warn("landing page lead failed", "page", page.Slug, "error", err)
		h.render(w, status, &pageView{Page: page, Values: values, Error: msg, IdempotencyKey: key})
		return
	}

	h.logger.Info("landing page lead captured", "page", page.Slug, "lead_id", result.Lead.ID, "duplicate", result.Duplicate)
	view := &pageView{Page: page, Values: values, FirstName: firstName(values["name"]), Submitted: true}
	// A replayed submission must not fire the ads tag a second time.
	if !result.Duplicate {
		view.Conversion = tagFor(result.Conversion)
	}
	h.render(w, http.StatusOK, view)
}

func (h *Handler) render(w http.ResponseWriter, status int, v *pageView) {
	sections := []string{"hero", "form"}
	if v.Submitted {
		sections = []string{"hero", "success"}
	}
	for _, name := range sections {
		b := NewBoundary(v.Page.Slug+" "+name, h.logger)
		v.Sections = append(v.Sections, b.HTML(h.section(name, v)))
	}

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "layout", v); err != nil {
		h.logger.Error("failed to render page", "page", v.Page.Slug, "error", err)
		http.Error(w, genericFailure, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) section(name string, v *pageView) RenderFunc {
	return func(w io.Writer) error {
		return h.tmpl.ExecuteTemplate(w, name, v)
	}
}

func formError(err error) (int, string) {
	switch {
	case errors.Is(err, leads.ErrMissingIdentifier), errors.Is(err, leads.ErrMissingContact):
		return http.StatusUnprocessableEntity, "Please share a phone number or email so we can reach you."
	case errors.Is(err, leads.ErrInvalidEmail):
		return http.StatusUnprocessableEntity, "Please enter a valid email address."
	case errors.Is(err, leads.ErrInvalidField):
		return http.StatusUnprocessableEntity, "Please check the highlighted fields and try again."
	case errors.Is(err, leads.ErrSubmissionInFlight):
		return http.StatusConflict, "We're still processing your request. Please wait a moment."
	default:
		return http.StatusInternalServerError, genericFailure
	}
}

func firstName(name string) string {
	if parts := strings.Fields(name); len(parts) > 0 {
		return parts[0]
	}
	return ""
}

func tagFor(c conversions.Conversion) *conversionTag {
	sendTo := c.ConversionID
	if c.ConversionID != "" && c.Label != "" {
		sendTo = c.ConversionID + "/" + c.Label
	}
	return &conversionTag{Event: c.Event, SendTo: sendTo}
}
