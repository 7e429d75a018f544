// Package appstore adapts the persistence repositories to the interfaces the
// application services consume.
package appstore

import (
	"context"
	"fmt"
	"time"

	"github.com/example/seatserve/internal/application"
	"github.com/example/seatserve/internal/booking"
	"github.com/example/seatserve/internal/persistence"
	"github.com/example/seatserve/internal/persistence/sqlite"
)

// Repositories is the application view of one SQLite store.
type Repositories struct {
	Users          application.UserRepository
	Credentials    application.CredentialStore
	Sessions       application.SessionRepository
	PasswordResets application.PasswordResetRepository
	Desks          application.DeskRepository
	Holidays       application.HolidayRepository
	Bookings       application.BookingRepository
}

// New wraps every repository of store.
func New(store *sqlite.Store) Repositories {
	return Repositories{
		Users:          newUserRepositoryAdapter(store.Users),
		Credentials:    newCredentialStoreAdapter(store.Users),
		Sessions:       newSessionRepositoryAdapter(store.Sessions),
		PasswordResets: newPasswordResetRepositoryAdapter(store.PasswordResets),
		Desks:          newDeskRepositoryAdapter(store.Desks),
		Holidays:       newHolidayRepositoryAdapter(store.Holidays),
		Bookings:       newBookingRepositoryAdapter(store.Bookings),
	}
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

// UpdateUser keeps the stored password hash; profile edits never carry one.
func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, user application.User) (application.User, error) {
	current, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user, current.PasswordHash)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) DeleteUser(ctx context.Context, id string) error {
	return a.repo.DeleteUser(ctx, id)
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	stored, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]application.User, 0, len(stored))
	for _, model := range stored {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

type credentialStoreAdapter struct {
	repo persistence.UserRepository
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{User: toApplicationUser(stored), PasswordHash: stored.PasswordHash}, nil
}

func (a *credentialStoreAdapter) GetUserCredentials(ctx context.Context, id string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{User: toApplicationUser(stored), PasswordHash: stored.PasswordHash}, nil
}

func (a *credentialStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *credentialStoreAdapter) CreateUser(ctx context.Context, creds application.UserCredentials) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(creds.User, creds.PasswordHash)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, creds.ID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *credentialStoreAdapter) CountUsers(ctx context.Context) (int, error) {
	users, err := a.repo.ListUsers(ctx)
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

func (a *credentialStoreAdapter) UpdatePassword(ctx context.Context, userID, passwordHash string, at time.Time) error {
	current, err := a.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	current.PasswordHash = passwordHash
	current.UpdatedAt = at
	return a.repo.UpdateUser(ctx, current)
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.UpdateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeUserSessions(ctx context.Context, userID string, revokedAt time.Time) error {
	return a.repo.RevokeUserSessions(ctx, userID, revokedAt)
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

type passwordResetRepositoryAdapter struct {
	repo persistence.PasswordResetRepository
}

func newPasswordResetRepositoryAdapter(repo persistence.PasswordResetRepository) *passwordResetRepositoryAdapter {
	return &passwordResetRepositoryAdapter{repo: repo}
}

func (a *passwordResetRepositoryAdapter) CreatePasswordReset(ctx context.Context, reset application.PasswordReset) error {
	return a.repo.CreatePasswordReset(ctx, persistence.PasswordReset{
		ID:        reset.ID,
		UserID:    reset.UserID,
		TokenHash: reset.TokenHash,
		ExpiresAt: reset.ExpiresAt,
		UsedAt:    cloneTime(reset.UsedAt),
		CreatedAt: reset.CreatedAt,
	})
}

func (a *passwordResetRepositoryAdapter) GetPasswordResetByTokenHash(ctx context.Context, tokenHash string) (application.PasswordReset, error) {
	stored, err := a.repo.GetPasswordResetByTokenHash(ctx, tokenHash)
	if err != nil {
		return application.PasswordReset{}, err
	}
	return application.PasswordReset{
		ID:        stored.ID,
		UserID:    stored.UserID,
		TokenHash: stored.TokenHash,
		ExpiresAt: stored.ExpiresAt,
		UsedAt:    cloneTime(stored.UsedAt),
		CreatedAt: stored.CreatedAt,
	}, nil
}

func (a *passwordResetRepositoryAdapter) MarkPasswordResetUsed(ctx context.Context, id string, usedAt time.Time) error {
	return a.repo.MarkPasswordResetUsed(ctx, id, usedAt)
}

func (a *passwordResetRepositoryAdapter) DeleteExpiredPasswordResets(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredPasswordResets(ctx, reference)
}

type deskRepositoryAdapter struct {
	repo persistence.DeskRepository
}

func newDeskRepositoryAdapter(repo persistence.DeskRepository) *deskRepositoryAdapter {
	return &deskRepositoryAdapter{repo: repo}
}

func (a *deskRepositoryAdapter) CreateDesk(ctx context.Context, desk application.Desk) error {
	return a.repo.CreateDesk(ctx, persistence.Desk{ID: desk.ID, CreatedAt: desk.CreatedAt})
}

func (a *deskRepositoryAdapter) GetDesk(ctx context.Context, id string) (application.Desk, error) {
	stored, err := a.repo.GetDesk(ctx, id)
	if err != nil {
		return application.Desk{}, err
	}
	return application.Desk{ID: stored.ID, CreatedAt: stored.CreatedAt}, nil
}

func (a *deskRepositoryAdapter) ListDesks(ctx context.Context) ([]application.Desk, error) {
	stored, err := a.repo.ListDesks(ctx)
	if err != nil {
		return nil, err
	}
	desks := make([]application.Desk, 0, len(stored))
	for _, model := range stored {
		desks = append(desks, application.Desk{ID: model.ID, CreatedAt: model.CreatedAt})
	}
	return desks, nil
}

func (a *deskRepositoryAdapter) DeleteDesk(ctx context.Context, id string) error {
	return a.repo.DeleteDesk(ctx, id)
}

type holidayRepositoryAdapter struct {
	repo persistence.HolidayRepository
}

func newHolidayRepositoryAdapter(repo persistence.HolidayRepository) *holidayRepositoryAdapter {
	return &holidayRepositoryAdapter{repo: repo}
}

func (a *holidayRepositoryAdapter) CreateHoliday(ctx context.Context, holiday application.Holiday) error {
	return a.repo.CreateHoliday(ctx, persistence.Holiday{
		ID:        holiday.ID,
		Date:      holiday.Date.String(),
		Name:      holiday.Name,
		CreatedAt: holiday.CreatedAt,
	})
}

func (a *holidayRepositoryAdapter) GetHoliday(ctx context.Context, id string) (application.Holiday, error) {
	stored, err := a.repo.GetHoliday(ctx, id)
	if err != nil {
		return application.Holiday{}, err
	}
	return toApplicationHoliday(stored)
}

func (a *holidayRepositoryAdapter) ListHolidays(ctx context.Context) ([]application.Holiday, error) {
	stored, err := a.repo.ListHolidays(ctx)
	if err != nil {
		return nil, err
	}
	holidays := make([]application.Holiday, 0, len(stored))
	for _, model := range stored {
		holiday, err := toApplicationHoliday(model)
		if err != nil {
			return nil, err
		}
		holidays = append(holidays, holiday)
	}
	return holidays, nil
}

func (a *holidayRepositoryAdapter) DeleteHoliday(ctx context.Context, id string) error {
	return a.repo.DeleteHoliday(ctx, id)
}

type bookingRepositoryAdapter struct {
	repo persistence.BookingRepository
}

func newBookingRepositoryAdapter(repo persistence.BookingRepository) *bookingRepositoryAdapter {
	return &bookingRepositoryAdapter{repo: repo}
}

// CreateBooking passes storage errors through untouched so uniqueness
// conflicts keep their *persistence.DuplicateError shape.
func (a *bookingRepositoryAdapter) CreateBooking(ctx context.Context, b application.Booking) error {
	return a.repo.CreateBooking(ctx, persistence.Booking{
		ID:        b.ID,
		DeskID:    b.DeskID,
		UserID:    b.UserID,
		UserName:  b.UserName,
		Date:      b.Date.String(),
		CreatedAt: b.CreatedAt,
	})
}

func (a *bookingRepositoryAdapter) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	stored, err := a.repo.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored)
}

func (a *bookingRepositoryAdapter) ListBookings(ctx context.Context, filter application.BookingFilter) ([]application.Booking, error) {
	stored, err := a.repo.ListBookings(ctx, persistence.BookingFilter{
		Date:     dateString(filter.Date),
		FromDate: dateString(filter.FromDate),
		ToDate:   dateString(filter.ToDate),
		UserID:   filter.UserID,
		DeskID:   filter.DeskID,
	})
	if err != nil {
		return nil, err
	}
	bookings := make([]application.Booking, 0, len(stored))
	for _, model := range stored {
		b, err := toApplicationBooking(model)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func (a *bookingRepositoryAdapter) CountBookingsForDesk(ctx context.Context, deskID string) (int, error) {
	return a.repo.CountBookingsForDesk(ctx, deskID)
}

func (a *bookingRepositoryAdapter) DeleteBooking(ctx context.Context, id string) error {
	return a.repo.DeleteBooking(ctx, id)
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		Team:        model.Team,
		IsAdmin:     model.IsAdmin,
		Disabled:    model.Disabled,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		Team:         user.Team,
		PasswordHash: passwordHash,
		IsAdmin:      user.IsAdmin,
		Disabled:     user.Disabled,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:          model.ID,
		UserID:      model.UserID,
		Token:       model.Token,
		Fingerprint: model.Fingerprint,
		ExpiresAt:   model.ExpiresAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
		RevokedAt:   cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:          session.ID,
		UserID:      session.UserID,
		Token:       session.Token,
		Fingerprint: session.Fingerprint,
		ExpiresAt:   session.ExpiresAt,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
		RevokedAt:   cloneTime(session.RevokedAt),
	}
}

func toApplicationHoliday(model persistence.Holiday) (application.Holiday, error) {
	date, err := booking.ParseDate(model.Date)
	if err != nil {
		return application.Holiday{}, fmt.Errorf("holiday %s: %w", model.ID, err)
	}
	return application.Holiday{ID: model.ID, Date: date, Name: model.Name, CreatedAt: model.CreatedAt}, nil
}

func toApplicationBooking(model persistence.Booking) (application.Booking, error) {
	date, err := booking.ParseDate(model.Date)
	if err != nil {
		return application.Booking{}, fmt.Errorf("booking %s: %w", model.ID, err)
	}
	return application.Booking{
		ID:        model.ID,
		DeskID:    model.DeskID,
		UserID:    model.UserID,
		UserName:  model.UserName,
		Date:      date,
		CreatedAt: model.CreatedAt,
	}, nil
}

func dateString(d booking.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
