package contacts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// StatusNew is assigned to every freshly created submission.
const StatusNew = "new"

// Submission is a general contact-form record managed through the admin API.
type Submission struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	Message   string    `json:"message"`
	Service   string    `json:"service,omitempty"`
	Budget    string    `json:"budget,omitempty"`
	Timeline  string    `json:"timeline,omitempty"`
	Source    string    `json:"source,omitempty"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateSubmissionRequest is the public contact form payload.
type CreateSubmissionRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=320"`
	Phone    string `json:"phone" validate:"max=40"`
	Company  string `json:"company" validate:"max=200"`
	Message  string `json:"message" validate:"required,max=10000"`
	Service  string `json:"service" validate:"max=200"`
	Budget   string `json:"budget" validate:"max=100"`
	Timeline string `json:"timeline" validate:"max=100"`
	Source   string `json:"source" validate:"max=100"`
}

// Validate trims the request and validates it. The email must be a bare
// address; display-name forms like "Jane <jane@x.test>" are rejected.
func (r *CreateSubmissionRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Message = strings.TrimSpace(r.Message)
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return err
		}
		switch verrs[0].Field() {
		case "Name":
			return ErrInvalidName
		case "Email":
			return ErrInvalidEmail
		case "Message":
			return ErrMissingMessage
		default:
			return fmt.Errorf("%w: %s", ErrInvalidField, strings.ToLower(verrs[0].Field()))
		}
	}
	return nil
}

// UpdateSubmissionRequest is a partial update. Nil fields are left untouched.
type UpdateSubmissionRequest struct {
	ID     string  `json:"id"`
	Status *string `json:"status,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// Validate normalizes and validates the patch.
func (r *UpdateSubmissionRequest) Validate() error {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		return ErrMissingID
	}
	if r.Status == nil && r.Notes == nil {
		return ErrEmptyPatch
	}
	if r.Status != nil {
		status := strings.TrimSpace(*r.Status)
		if status == "" {
			return ErrInvalidStatus
		}
		r.Status = &status
	}
	return nil
}

// apply copies the patch onto s. Only status and notes are mutable.
func (r *UpdateSubmissionRequest) apply(s *Submission, now time.Time) {
	if r.Status != nil {
		s.Status = *r.Status
	}
	if r.Notes != nil {
		s.Notes = *r.Notes
	}
	s.UpdatedAt = now
}
