package application

import (
	"errors"

	"github.com/example/seatserve/internal/booking"
	"github.com/example/seatserve/internal/suggestion"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a create collides with an existing record.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when an email/password pair or token does not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrAccountDisabled is returned when a disabled user tries to sign in or use a session.
	ErrAccountDisabled = errors.New("application: account disabled")
	// ErrSessionExpired is returned for sessions past their expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned for sessions that were signed out.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrDeskInUse is returned when deleting a desk that still has bookings.
	ErrDeskInUse = errors.New("application: desk in use")
	// ErrLastAdmin is returned when a change would leave no enabled administrator.
	ErrLastAdmin = errors.New("application: last administrator")
	// ErrEmailDomain is returned when signing up with an address outside the allowed domain.
	ErrEmailDomain = errors.New("application: email domain not allowed")
	// ErrSuggestionUnavailable is returned when no desk suggestion could be produced.
	ErrSuggestionUnavailable = suggestion.ErrSuggestionUnavailable
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func fieldError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// ConflictError pairs a sentinel with the message shown to the user.
type ConflictError struct {
	Kind    error
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel for errors.Is.
func (e *ConflictError) Unwrap() error {
	return e.Kind
}

// StaleSuggestionError reports that a suggested desk can no longer be booked
// because the snapshot changed between suggestion and commit.
type StaleSuggestionError struct {
	Rejection *booking.Rejection
}

func (e *StaleSuggestionError) Error() string {
	return "suggestion is stale: " + e.Rejection.Error()
}

// Unwrap exposes the policy rejection.
func (e *StaleSuggestionError) Unwrap() error {
	return e.Rejection
}

// AsRejection extracts a policy rejection from err.
func AsRejection(err error) (*booking.Rejection, bool) {
	var rej *booking.Rejection
	if errors.As(err, &rej) && rej != nil {
		return rej, true
	}
	return nil, false
}
