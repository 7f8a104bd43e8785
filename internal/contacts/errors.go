package contacts

import "errors"

var (
	// ErrSubmissionNotFound is returned when no submission has the given id
	ErrSubmissionNotFound = errors.New("contact submission not found")

	// ErrMissingID is returned when an admin operation omits the id
	ErrMissingID = errors.New("submission id is required")

	// ErrEmptyPatch is returned when an update carries neither status nor notes
	ErrEmptyPatch = errors.New("status or notes is required")

	// ErrInvalidStatus is returned when status is present but blank
	ErrInvalidStatus = errors.New("status must not be blank")

	// ErrInvalidName is returned when the name is invalid
	ErrInvalidName = errors.New("name is required")

	// ErrInvalidEmail is returned when the email is missing or malformed
	ErrInvalidEmail = errors.New("a valid email is required")

	// ErrMissingMessage is returned when the message is empty or too long
	ErrMissingMessage = errors.New("message is required")

	// ErrInvalidField is returned when an optional field fails validation
	ErrInvalidField = errors.New("invalid field")
)
