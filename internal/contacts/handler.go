package contacts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wolfman30/leadintake/internal/apierr"
	"github.com/wolfman30/leadintake/pkg/logging"
)

// Handler serves the contact submission admin API and the public contact form.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new contacts handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger.Component("contacts"),
	}
}

// ListResponse is the data payload of GET /api/admin/contacts.
type ListResponse struct {
	Submissions []*Submission `json:"submissions"`
}

// SubmissionResponse wraps a single submission.
type SubmissionResponse struct {
	Submission *Submission `json:"submission"`
}

// DeleteResponse is returned after a successful delete.
type DeleteResponse struct {
	Success bool `json:"success"`
}

// List handles GET /api/admin/contacts
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list contact submissions", "error", err)
		apierr.WriteError(w, apierr.Internal("Failed to fetch contact submissions", err))
		return
	}
	apierr.WriteData(w, http.StatusOK, ListResponse{Submissions: subs})
}

// Update handles PUT /api/admin/contacts
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode update request", "error", err)
		apierr.WriteError(w, apierr.Validation("Invalid request body"))
		return
	}

	sub, err := h.repo.Update(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to update contact submission", "error", err, "id", req.ID)
		apierr.WriteError(w, toAPIError(err, "Failed to update contact submission"))
		return
	}

	h.logger.Info("contact submission updated", "id", sub.ID, "status", sub.Status)
	apierr.WriteData(w, http.StatusOK, SubmissionResponse{Submission: sub})
}

// Delete handles DELETE /api/admin/contacts?id=<id>
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		apierr.WriteError(w, apierr.Validation("Submission ID required"))
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete contact submission", "error", err, "id", id)
		apierr.WriteError(w, toAPIError(err, "Failed to delete contact submission"))
		return
	}

	h.logger.Info("contact submission deleted", "id", id)
	apierr.WriteData(w, http.StatusOK, DeleteResponse{Success: true})
}

// Create handles POST /api/contact
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode contact request", "error", err)
		apierr.WriteError(w, apierr.Validation("Invalid request body"))
		return
	}

	sub, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create contact submission", "error", err)
		apierr.WriteError(w, toAPIError(err, "Failed to save your message"))
		return
	}

	h.logger.Info("contact submission created", "id", sub.ID, "source", sub.Source)
	apierr.WriteData(w, http.StatusCreated, SubmissionResponse{Submission: sub})
}

func toAPIError(err error, fallback string) *apierr.Error {
	switch {
	case errors.Is(err, ErrSubmissionNotFound):
		return apierr.NotFound("Contact submission not found")
	case errors.Is(err, ErrMissingID),
		errors.Is(err, ErrEmptyPatch),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrMissingMessage),
		errors.Is(err, ErrInvalidField):
		return apierr.Validation(err.Error())
	default:
		return apierr.Internal(fallback, err)
	}
}
