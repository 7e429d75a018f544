package persistence

import "time"

// DateLayout is the storage format of calendar days.
const DateLayout = "2006-01-02"

// User represents an employee account.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	Team         string
	PasswordHash string
	IsAdmin      bool
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Desk is a bookable workstation. The identifier is the desk number.
type Desk struct {
	ID        string
	CreatedAt time.Time
}

// Holiday is a company-wide non-working day.
type Holiday struct {
	ID        string
	Date      string
	Name      string
	CreatedAt time.Time
}

// Booking reserves a desk for one employee on one day. UserName is the
// display name at booking time.
type Booking struct {
	ID        string
	DeskID    string
	UserID    string
	UserName  string
	Date      string
	CreatedAt time.Time
}

// BookingFilter narrows booking queries. Empty fields match everything.
type BookingFilter struct {
	Date     string
	FromDate string
	ToDate   string
	UserID   string
	DeskID   string
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// PasswordReset is a one-time password reset grant. Only the token digest is stored.
type PasswordReset struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
