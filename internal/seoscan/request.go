package seoscan

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrMissingFields = errors.New("seoscan: url and email are required")
	ErrInvalidURL    = errors.New("seoscan: invalid url")
	ErrInvalidEmail  = errors.New("seoscan: invalid email")
	ErrInvalidGoal   = errors.New("seoscan: invalid goal")
	ErrInvalidField  = errors.New("seoscan: invalid field")
)

// userMessage returns the text shown inline by the audit widget.
func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingFields):
		return "URL and email are required"
	case errors.Is(err, ErrInvalidURL):
		return "Invalid URL format. Please include http:// or https://"
	case errors.Is(err, ErrInvalidEmail):
		return "Please enter a valid email address"
	case errors.Is(err, ErrInvalidGoal):
		return "Please choose a goal: " + strings.Join(Goals, ", ")
	default:
		return "Please check the form and try again"
	}
}

// Goals accepted by the audit widget.
var Goals = []string{"more-traffic", "more-leads", "local-seo", "ecommerce", "technical-fix", "other"}

var urlPattern = regexp.MustCompile(`(?i)^https?://.+\..+`)

var validate = validator.New()

// Request is the body of POST /api/seo-scan.
type Request struct {
	URL   string `json:"url" validate:"required,max=2048"`
	Email string `json:"email" validate:"required,email,max=320"`
	Goal  string `json:"goal" validate:"required,oneof=more-traffic more-leads local-seo ecommerce technical-fix other"`
	Phone string `json:"phone" validate:"max=40"`
}

// Validate trims the request and reports the first user-facing problem.
func (r *Request) Validate() error {
	r.URL = strings.TrimSpace(r.URL)
	r.Email = strings.TrimSpace(r.Email)
	r.Goal = strings.TrimSpace(r.Goal)
	r.Phone = strings.TrimSpace(r.Phone)

	if r.URL == "" || r.Email == "" {
		return ErrMissingFields
	}
	if !urlPattern.MatchString(r.URL) {
		return ErrInvalidURL
	}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return err
		}
		switch verrs[0].Field() {
		case "Email":
			return ErrInvalidEmail
		case "Goal":
			return ErrInvalidGoal
		case "URL":
			return ErrInvalidURL
		default:
			return fmt.Errorf("%w: %s", ErrInvalidField, strings.ToLower(verrs[0].Field()))
		}
	}
	return nil
}
