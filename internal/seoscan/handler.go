package seoscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/leadintake/internal/apierr"
	"github.com/wolfman30/leadintake/internal/leads"
	"github.com/wolfman30/leadintake/internal/observability/metrics"
	"github.com/wolfman30/leadintake/pkg/logging"
)

const (
	leadSource      = "seo-audit"
	leadSourceLabel = "SEO Audit"
	forwardTimeout  = 10 * time.Second
)

// LeadSubmitter registers the person who asked for the scan.
type LeadSubmitter interface {
	Submit(ctx context.Context, req *leads.CreateLeadRequest) (*leads.Result, error)
}

// Handler serves POST /api/seo-scan.
type Handler struct {
	scanner *Scanner
	leads   LeadSubmitter
	metrics *metrics.IntakeMetrics
	logger  *logging.Logger
}

// NewHandler wires the scan endpoint. submitter may be nil to skip lead capture.
func NewHandler(scanner *Scanner, submitter LeadSubmitter, m *metrics.IntakeMetrics, logger *logging.Logger) *Handler {
	return &Handler{
		scanner: scanner,
		leads:   submitter,
		metrics: m,
		logger:  logger.Component("seoscan_api"),
	}
}

// Scan handles POST /api/seo-scan
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	correlationID := "scan_" + uuid.NewString()
	log := h.logger.With("correlation_id", correlationID)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.Validation("Invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		apierr.WriteError(w, apierr.Validation(userMessage(err)))
		return
	}

	log.Info("starting scan", "url", req.URL, "goal", req.Goal)
	start := time.Now()
	result, err := h.scanner.Scan(r.Context(), req.URL)
	if err != nil {
		log.Warn("scan failed", "url", req.URL, "error", err)
		if errors.Is(err, ErrUnreachable) {
			msg := fmt.Sprintf("We could not reach %s. Check the address and try again.", req.URL)
			apierr.WriteError(w, apierr.Unavailable(msg, err).WithStatus(http.StatusUnprocessableEntity))
			return
		}
		apierr.WriteError(w, apierr.Internal("Failed to scan website. Please try again.", err))
		return
	}
	h.metrics.ObserveScan(result.Grade, result.Browser, time.Since(start).Seconds())
	log.Info("scan complete", "url", req.URL, "score", result.Score, "grade", result.Grade)

	h.forwardLead(r.Context(), &req, result, log)
	apierr.WriteData(w, http.StatusOK, result)
}

// forwardLead registers the requester as a lead. Failures never reach the
// scan response.
func (h *Handler) forwardLead(ctx context.Context, req *Request, result *Result, log *logging.Logger) {
	if h.leads == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), forwardTimeout)
	defer cancel()

	submitted, err := h.leads.Submit(ctx, &leads.CreateLeadRequest{
		Email:      req.Email,
		Phone:      req.Phone,
		Source:     leadSource,
		LeadSource: leadSourceLabel,
		Raw: map[string]any{
			"url":   req.URL,
			"goal":  req.Goal,
			"score": result.Score,
			"grade": result.Grade,
		},
	})
	if err != nil {
		log.Error("failed to forward scan lead", "error", err, "url", req.URL)
		return
	}
	log.Info("scan lead captured", "lead_id", submitted.Lead.ID, "duplicate", submitted.Duplicate)
}
