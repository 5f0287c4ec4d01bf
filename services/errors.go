package services

import "errors"

// Domain errors of the session core. Storage failures are wrapped and
// surfaced as-is; handlers translate these sentinels to HTTP status codes.
var (
	// ErrValidation covers malformed input: empty question text, fewer than
	// two options, empty option text.
	ErrValidation = errors.New("validation failed")

	// ErrIneligibleVote is returned when a vote arrives while the question
	// is not active or already closed.
	ErrIneligibleVote = errors.New("voting not allowed")

	// ErrIndexOutOfRange is returned when a vote names an option index the
	// question does not have.
	ErrIndexOutOfRange = errors.New("option index out of range")
)
