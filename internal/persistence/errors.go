package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrConstraintViolation is returned when a record fails a schema check.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a write or delete breaks a reference.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
)

// DuplicateError narrows ErrDuplicate to the unique index that rejected the write.
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string {
	return "persistence: duplicate " + e.Constraint
}

// Is reports ErrDuplicate so callers can match on the sentinel.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// Unique index names reported through DuplicateError.
const (
	ConstraintBookingDeskDate = "booking_desk_date"
	ConstraintBookingUserDate = "booking_user_date"
	ConstraintHolidayDate     = "holiday_date"
	ConstraintUserEmail       = "user_email"
	ConstraintPrimaryKey      = "primary_key"
)
