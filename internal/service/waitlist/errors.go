package waitlist

import (
	"errors"
	"fmt"
)

// Sentinel errors for the waitlist service layer.
var (
	// ErrNotFound means no believer matches the given id or email.
	ErrNotFound = errors.New("believer not found")

	// ErrDuplicate is surfaced by repositories when an insert loses the race
	// against a concurrent admission of the same email (unique violation).
	ErrDuplicate = errors.New("email already registered")

	// ErrRateLimited means the caller exceeded the admission quota and must
	// retry later. Never retried automatically.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidStatus means the requested review status is not in the enum.
	ErrInvalidStatus = errors.New("invalid status")
)

// ValidationError is a rejected input with a human-readable reason. The
// reason is reported verbatim to the caller; nothing sensitive goes in it.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Reason)
}

// AsValidation unwraps err as a *ValidationError, or returns nil.
func AsValidation(err error) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
