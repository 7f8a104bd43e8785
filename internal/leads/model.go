package leads

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Lead statuses set by the intake flow. CRMStatus only ever holds one of
// these; Status also accepts any admin pipeline label, and an admin label is
// never overwritten by a later CRM push.
const (
	StatusPending = "pending"
	StatusPushed  = "pushed"
	StatusFailed  = "failed"
)

// Defaults applied when a caller omits source labels.
const (
	DefaultSource     = "business-website"
	DefaultLeadSource = "Website"
)

// Lead represents a lead submission from any landing page form
type Lead struct {
	ID             string         `json:"id"`
	Name           string         `json:"name,omitempty"`
	Email          string         `json:"email,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	Message        string         `json:"message,omitempty"`
	Source         string         `json:"source"`
	LeadSource     string         `json:"leadSource"`
	Campaign       string         `json:"campaign,omitempty"`
	Raw            map[string]any `json:"raw"`
	Status         string         `json:"status"`
	CRMStatus      string         `json:"crmStatus"`
	CRMLeadID      string         `json:"crmLeadId,omitempty"`
	Score          int            `json:"score"`
	Qualification  string         `json:"qualification"`
	Priority       string         `json:"priority"`
	IdempotencyKey string         `json:"-"`
	CorrelationID  string         `json:"correlationId"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

var validate = validator.New()

// CreateLeadRequest represents the request body for creating a lead.
// Raw is schema-less and never validated.
type CreateLeadRequest struct {
	Name           string         `json:"name" validate:"max=200"`
	Email          string         `json:"email" validate:"omitempty,email,max=320"`
	Phone          string         `json:"phone" validate:"max=40"`
	Message        string         `json:"message" validate:"max=10000"`
	Source         string         `json:"source" validate:"max=100"`
	LeadSource     string         `json:"leadSource" validate:"max=200"`
	Campaign       string         `json:"campaign" validate:"max=200"`
	IdempotencyKey string         `json:"idempotencyKey" validate:"max=200"`
	Raw            map[string]any `json:"raw"`
}

var requestKeys = map[string]struct{}{
	"name": {}, "email": {}, "phone": {}, "message": {}, "source": {},
	"leadSource": {}, "campaign": {}, "idempotencyKey": {}, "raw": {},
}

// UnmarshalJSON folds unknown top-level keys into Raw when the payload has no
// raw object of its own.
func (r *CreateLeadRequest) UnmarshalJSON(data []byte) error {
	type plain CreateLeadRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = CreateLeadRequest(p)
	if r.Raw != nil {
		return nil
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	extra := make(map[string]any)
	for k, v := range all {
		if _, known := requestKeys[k]; !known {
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		r.Raw = extra
	}
	return nil
}

// Normalize trims fields and applies source defaults.
func (r *CreateLeadRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Source = strings.TrimSpace(r.Source)
	r.LeadSource = strings.TrimSpace(r.LeadSource)
	r.Campaign = strings.TrimSpace(r.Campaign)
	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
	if r.Source == "" {
		r.Source = DefaultSource
	}
	if r.LeadSource == "" {
		r.LeadSource = DefaultLeadSource
	}
	if r.Raw == nil {
		r.Raw = map[string]any{}
	}
}

// Validate validates the create lead request
func (r *CreateLeadRequest) Validate() error {
	r.Normalize()
	if r.Name == "" && r.Phone == "" && r.Email == "" {
		return ErrMissingIdentifier
	}
	if r.Phone == "" && r.Email == "" {
		return ErrMissingContact
	}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			if verrs[0].Field() == "Email" {
				return ErrInvalidEmail
			}
			return fmt.Errorf("%w: %s", ErrInvalidField, strings.ToLower(verrs[0].Field()))
		}
		return err
	}
	return nil
}

// UpdateLeadRequest is the admin status patch.
type UpdateLeadRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Validate validates the update request
func (r *UpdateLeadRequest) Validate() error {
	r.ID = strings.TrimSpace(r.ID)
	r.Status = strings.TrimSpace(r.Status)
	if r.ID == "" {
		return ErrMissingID
	}
	if r.Status == "" {
		return ErrInvalidStatus
	}
	return nil
}

// isIntakeStatus reports whether status is still owned by the intake flow.
func isIntakeStatus(status string) bool {
	return status == StatusPending || status == StatusFailed
}
