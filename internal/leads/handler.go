package leads

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wolfman30/leadintake/internal/apierr"
	"github.com/wolfman30/leadintake/internal/conversions"
	"github.com/wolfman30/leadintake/pkg/logging"
)

// IdempotencyHeader carries the client's per-form-session token.
const IdempotencyHeader = "Idempotency-Key"

// Handler handles HTTP requests for leads
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Component("leads_api"),
	}
}

// SubmitResponse is the data payload of POST /api/lead.
type SubmitResponse struct {
	LeadID        string                 `json:"leadId"`
	CRMLeadID     string                 `json:"crmLeadId,omitempty"`
	CorrelationID string                 `json:"correlationId"`
	Duplicate     bool                   `json:"duplicate"`
	Conversion    conversions.Conversion `json:"conversion"`
}

// ListResponse is the data payload of GET /api/admin/leads.
type ListResponse struct {
	Leads []*Lead `json:"leads"`
}

// LeadResponse wraps a single lead.
type LeadResponse struct {
	Lead *Lead `json:"lead"`
}

// DeleteResponse is returned after a successful delete.
type DeleteResponse struct {
	Success bool `json:"success"`
}

// Create handles POST /api/lead
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode lead request", "error", err)
		apierr.WriteError(w, apierr.Validation("Invalid request body"))
		return
	}
	if key := strings.TrimSpace(r.Header.Get(IdempotencyHeader)); key != "" {
		req.IdempotencyKey = key
	}

	result, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		h.logger.Error("lead submission failed", "error", err, "source", req.Source)
		apierr.WriteError(w, toAPIError(err, "Failed to save lead"))
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	apierr.WriteData(w, status, SubmitResponse{
		LeadID:        result.Lead.ID,
		CRMLeadID:     result.Lead.CRMLeadID,
		CorrelationID: result.Lead.CorrelationID,
		Duplicate:     result.Duplicate,
		Conversion:    result.Conversion,
	})
}

// List handles GET /api/admin/leads
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	leads, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		apierr.WriteError(w, apierr.Internal("Failed to fetch leads", err))
		return
	}
	apierr.WriteData(w, http.StatusOK, ListResponse{Leads: leads})
}

// Update handles PUT /api/admin/leads
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.Validation("Invalid request body"))
		return
	}
	lead, err := h.service.UpdateStatus(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to update lead", "error", err, "id", req.ID)
		apierr.WriteError(w, toAPIError(err, "Failed to update lead"))
		return
	}
	apierr.WriteData(w, http.StatusOK, LeadResponse{Lead: lead})
}

// Delete handles DELETE /api/admin/leads?id=<id>
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		apierr.WriteError(w, apierr.Validation("Lead ID required"))
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete lead", "error", err, "id", id)
		apierr.WriteError(w, toAPIError(err, "Failed to delete lead"))
		return
	}
	h.logger.Info("lead deleted", "id", id)
	apierr.WriteData(w, http.StatusOK, DeleteResponse{Success: true})
}

func toAPIError(err error, fallback string) *apierr.Error {
	switch {
	case errors.Is(err, ErrLeadNotFound):
		return apierr.NotFound("Lead not found")
	case errors.Is(err, ErrSubmissionInFlight):
		return apierr.Conflict("This submission is already being processed")
	case errors.Is(err, ErrMissingIdentifier),
		errors.Is(err, ErrMissingContact),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrInvalidField),
		errors.Is(err, ErrMissingID),
		errors.Is(err, ErrInvalidStatus):
		return apierr.Validation(err.Error())
	default:
		return apierr.Internal(fallback, err)
	}
}
