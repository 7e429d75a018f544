package application

import (
	"context"
	"errors"
	"time"

	"github.com/example/seatserve/internal/booking"
	"github.com/example/seatserve/internal/persistence"
)

// DeskRepository captures the persistence operations needed for desks.
type DeskRepository interface {
	CreateDesk(ctx context.Context, desk Desk) error
	GetDesk(ctx context.Context, id string) (Desk, error)
	ListDesks(ctx context.Context) ([]Desk, error)
	DeleteDesk(ctx context.Context, id string) error
}

// HolidayRepository captures the persistence operations needed for holidays.
type HolidayRepository interface {
	CreateHoliday(ctx context.Context, holiday Holiday) error
	GetHoliday(ctx context.Context, id string) (Holiday, error)
	ListHolidays(ctx context.Context) ([]Holiday, error)
	DeleteHoliday(ctx context.Context, id string) error
}

// BookingRepository captures the persistence operations needed for bookings.
// CreateBooking must reject a second booking for the same desk or user on one
// day with a persistence.DuplicateError naming the violated constraint.
type BookingRepository interface {
	CreateBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	CountBookingsForDesk(ctx context.Context, deskID string) (int, error)
	DeleteBooking(ctx context.Context, id string) error
}

// UserRepository captures the persistence operations needed for user administration.
type UserRepository interface {
	GetUser(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]User, error)
}

// CredentialStore exposes the user operations required by the auth service.
type CredentialStore interface {
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	GetUserCredentials(ctx context.Context, id string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (User, error)
	CreateUser(ctx context.Context, creds UserCredentials) (User, error)
	CountUsers(ctx context.Context) (int, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string, at time.Time) error
}

// SessionRepository captures the persistence interactions for issued sessions.
// Tokens passed in and out are digests, never raw bearer values.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	RevokeUserSessions(ctx context.Context, userID string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// PasswordResetRepository stores one-time password reset grants.
type PasswordResetRepository interface {
	CreatePasswordReset(ctx context.Context, reset PasswordReset) error
	GetPasswordResetByTokenHash(ctx context.Context, tokenHash string) (PasswordReset, error)
	MarkPasswordResetUsed(ctx context.Context, id string, usedAt time.Time) error
	DeleteExpiredPasswordResets(ctx context.Context, reference time.Time) error
}

// mapRepoError folds storage sentinels into the application taxonomy.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	return err
}

// bookingConflict converts a uniqueness violation raised by the store into the
// policy rejection the engine would have produced on a fresh snapshot.
func bookingConflict(err error) (*booking.Rejection, bool) {
	var dup *persistence.DuplicateError
	if !errors.As(err, &dup) {
		return nil, false
	}
	switch dup.Constraint {
	case persistence.ConstraintBookingDeskDate:
		return booking.NewRejection(booking.ReasonDoubleBookingDesk), true
	case persistence.ConstraintBookingUserDate:
		return booking.NewRejection(booking.ReasonDoubleBookingEmployee), true
	}
	return nil, false
}
