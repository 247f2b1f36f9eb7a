package shared

import "errors"

var (
	// ErrValidation marks request parameters that are missing, conflicting or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrIO indicates the source file could not be read.
	ErrIO = errors.New("source unreadable")
	// ErrSchema indicates a source row does not match the table shape.
	ErrSchema = errors.New("schema mismatch")
	// ErrStorage indicates the store could not be written or read.
	ErrStorage = errors.New("storage failure")
	// ErrBusy indicates another build holds the store lock.
	ErrBusy = errors.New("store build in progress")
)

// ValidationError carries the client-facing message of a rejected request.
type ValidationError struct {
	Msg string
}

// NewValidationError constructs a ValidationError.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Msg: msg}
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
