package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// DeskRepository stores the desk inventory.
type DeskRepository interface {
	CreateDesk(ctx context.Context, desk Desk) error
	GetDesk(ctx context.Context, id string) (Desk, error)
	ListDesks(ctx context.Context) ([]Desk, error)
	DeleteDesk(ctx context.Context, id string) error
}

// HolidayRepository stores company holidays.
type HolidayRepository interface {
	CreateHoliday(ctx context.Context, holiday Holiday) error
	GetHoliday(ctx context.Context, id string) (Holiday, error)
	ListHolidays(ctx context.Context) ([]Holiday, error)
	DeleteHoliday(ctx context.Context, id string) error
}

// BookingRepository stores desk bookings. CreateBooking is the single arbiter
// for desk and employee uniqueness per day.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	CountBookingsForDesk(ctx context.Context, deskID string) (int, error)
	DeleteBooking(ctx context.Context, id string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	RevokeUserSessions(ctx context.Context, userID string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// PasswordResetRepository stores password reset grants.
type PasswordResetRepository interface {
	CreatePasswordReset(ctx context.Context, reset PasswordReset) error
	GetPasswordResetByTokenHash(ctx context.Context, tokenHash string) (PasswordReset, error)
	MarkPasswordResetUsed(ctx context.Context, id string, usedAt time.Time) error
	DeleteExpiredPasswordResets(ctx context.Context, reference time.Time) error
}
