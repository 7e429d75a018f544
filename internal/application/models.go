package application

import (
	"time"

	"github.com/example/seatserve/internal/booking"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// User represents an account known to the system.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Team        string
	IsAdmin     bool
	Disabled    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserCredentials couples a user with the stored password hash.
type UserCredentials struct {
	User
	PasswordHash string
}

// Session represents an authenticated session. Token holds the raw bearer
// token only on freshly issued sessions; repositories store its digest.
type Session struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
}

// PasswordReset is a one-time password reset grant.
type PasswordReset struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Desk is a bookable seat.
type Desk struct {
	ID        string
	CreatedAt time.Time
}

// Holiday is an administrator-declared non-working day.
type Holiday struct {
	ID        string
	Date      booking.Date
	Name      string
	CreatedAt time.Time
}

// Booking reserves one desk for one user on one day.
type Booking struct {
	ID        string
	DeskID    string
	UserID    string
	UserName  string
	Date      booking.Date
	CreatedAt time.Time
}

// BookingFilter narrows booking listings. Zero fields are ignored.
type BookingFilter struct {
	Date     booking.Date
	FromDate booking.Date
	ToDate   booking.Date
	UserID   string
	DeskID   string
}

// CreateDeskParams wraps the data required to add a desk.
type CreateDeskParams struct {
	Principal Principal
	DeskID    string `validate:"required,deskid"`
}

// CreateHolidayParams wraps the data required to declare a holiday.
type CreateHolidayParams struct {
	Principal Principal
	Date      string `validate:"required,datetime=2006-01-02"`
	Name      string `validate:"required,max=120"`
}

// CreateBookingParams wraps the data required to book a desk. UserID defaults
// to the principal; setting another user requires an administrator.
type CreateBookingParams struct {
	Principal Principal
	UserID    string
	DeskID    string `validate:"required"`
	Date      string `validate:"required,datetime=2006-01-02"`
}

// CancelBookingParams identifies a booking to cancel.
type CancelBookingParams struct {
	Principal Principal
	BookingID string
}

// ListBookingsParams narrows a booking listing.
type ListBookingsParams struct {
	Principal Principal
	Date      string
	UserID    string
}

// UserInput captures caller provided profile fields.
type UserInput struct {
	DisplayName string `validate:"required,max=80"`
	Team        string `validate:"max=80"`
}

// UpdateProfileParams wraps a self-service profile edit.
type UpdateProfileParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps an administrator edit of another account.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
	IsAdmin   bool
	Disabled  bool
}

// DeleteUserParams identifies the account an administrator removes.
type DeleteUserParams struct {
	Principal Principal
	UserID    string
}

// SignupParams captures the fields required to register an account.
type SignupParams struct {
	Email       string `validate:"required,email"`
	Password    string `validate:"required,min=8,max=128"`
	DisplayName string `validate:"required,max=80"`
	Team        string `validate:"max=80"`
	Fingerprint string
}

// CreateUserParams captures an administrator adding an account on someone's
// behalf. An empty Password leaves the account reachable only through a
// password reset.
type CreateUserParams struct {
	Principal   Principal
	Email       string `validate:"required,email"`
	Password    string `validate:"omitempty,min=8,max=128"`
	DisplayName string `validate:"required,max=80"`
	Team        string `validate:"max=80"`
	IsAdmin     bool
}

// AuthenticateParams captures the fields required to log in.
type AuthenticateParams struct {
	Email       string
	Password    string
	Fingerprint string
}

// AuthenticateResult is returned on successful signup or login.
type AuthenticateResult struct {
	User    User
	Session Session
}

// RefreshSessionParams captures the token to rotate.
type RefreshSessionParams struct {
	Token       string
	Fingerprint string
}

// RefreshSessionResult holds the rotated session.
type RefreshSessionResult struct {
	Session Session
}

// ChangePasswordParams wraps a self-service password change.
type ChangePasswordParams struct {
	Principal       Principal
	CurrentPassword string
	NewPassword     string `validate:"required,min=8,max=128"`
}

// ResetPasswordParams wraps a password reset confirmation.
type ResetPasswordParams struct {
	Token       string
	NewPassword string `validate:"required,min=8,max=128"`
}

// SuggestParams asks for a desk suggestion. EmployeeName selects another
// employee and requires an administrator.
type SuggestParams struct {
	Principal    Principal
	EmployeeName string
	Date         string `validate:"required,datetime=2006-01-02"`
}

// Suggestion is a recommended desk for one employee and day.
type Suggestion struct {
	UserID       string
	EmployeeName string
	Date         booking.Date
	DeskID       string
	Reasoning    string
}

// CommitSuggestionParams books a previously suggested desk.
type CommitSuggestionParams struct {
	Principal Principal
	UserID    string
	DeskID    string
	Date      string
}

// SnapshotOf converts service models into the policy engine view.
func SnapshotOf(desks []Desk, bookings []Booking, holidays []Holiday, takenAt time.Time) booking.Snapshot {
	snap := booking.Snapshot{
		Desks:    make([]booking.Desk, 0, len(desks)),
		Bookings: make([]booking.Booking, 0, len(bookings)),
		Holidays: make([]booking.Holiday, 0, len(holidays)),
		TakenAt:  takenAt,
	}
	for _, d := range desks {
		snap.Desks = append(snap.Desks, booking.Desk{ID: d.ID})
	}
	for _, b := range bookings {
		snap.Bookings = append(snap.Bookings, b.policyView())
	}
	for _, h := range holidays {
		snap.Holidays = append(snap.Holidays, booking.Holiday{ID: h.ID, Date: h.Date, Name: h.Name})
	}
	return snap
}

func (b Booking) policyView() booking.Booking {
	return booking.Booking{
		ID:           b.ID,
		DeskID:       b.DeskID,
		Date:         b.Date,
		EmployeeID:   b.UserID,
		EmployeeName: b.UserName,
	}
}
