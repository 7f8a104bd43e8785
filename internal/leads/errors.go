package leads

import "errors"

var (
	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")

	// ErrMissingIdentifier is returned when name, phone and email are all empty
	ErrMissingIdentifier = errors.New("at least one identifier (name/phone/email) is required")

	// ErrMissingContact is returned when neither email nor phone is provided
	ErrMissingContact = errors.New("either email or phone is required")

	// ErrInvalidEmail is returned when the email is malformed
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidField is returned when a field fails length or format checks
	ErrInvalidField = errors.New("invalid lead field")

	// ErrMissingID is returned when an admin operation omits the id
	ErrMissingID = errors.New("lead id is required")

	// ErrInvalidStatus is returned when an admin status update is blank
	ErrInvalidStatus = errors.New("status is required")

	// ErrSubmissionInFlight is returned when the same idempotency key is still being processed
	ErrSubmissionInFlight = errors.New("a submission with this idempotency key is already in progress")
)
