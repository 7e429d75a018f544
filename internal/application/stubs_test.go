package application

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/seatserve/internal/booking"
	"github.com/example/seatserve/internal/notify"
	"github.com/example/seatserve/internal/persistence"
)

// userStoreStub is an in-memory UserRepository and CredentialStore.
type userStoreStub struct {
	mu    sync.Mutex
	users map[string]UserCredentials
	order []string

	err error
}

func newUserStoreStub(users ...User) *userStoreStub {
	s := &userStoreStub{users: make(map[string]UserCredentials)}
	for _, u := range users {
		s.put(UserCredentials{User: u, PasswordHash: "hash:password"})
	}
	return s
}

func (s *userStoreStub) put(creds UserCredentials) {
	if _, ok := s.users[creds.ID]; !ok {
		s.order = append(s.order, creds.ID)
	}
	s.users[creds.ID] = creds
}

func (s *userStoreStub) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return UserCredentials{}, s.err
	}
	for _, c := range s.users {
		if strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return UserCredentials{}, persistence.ErrNotFound
}

func (s *userStoreStub) GetUserCredentials(ctx context.Context, id string) (UserCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return UserCredentials{}, s.err
	}
	c, ok := s.users[id]
	if !ok {
		return UserCredentials{}, persistence.ErrNotFound
	}
	return c, nil
}

func (s *userStoreStub) GetUser(ctx context.Context, id string) (User, error) {
	c, err := s.GetUserCredentials(ctx, id)
	return c.User, err
}

func (s *userStoreStub) CreateUser(ctx context.Context, creds UserCredentials) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return User{}, s.err
	}
	for _, c := range s.users {
		if strings.EqualFold(c.Email, creds.Email) {
			return User{}, &persistence.DuplicateError{Constraint: persistence.ConstraintUserEmail}
		}
	}
	s.put(creds)
	return creds.User, nil
}

func (s *userStoreStub) CountUsers(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), s.err
}

func (s *userStoreStub) UpdatePassword(ctx context.Context, userID, hash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.users[userID]
	if !ok {
		return persistence.ErrNotFound
	}
	c.PasswordHash = hash
	c.UpdatedAt = at
	s.users[userID] = c
	return nil
}

func (s *userStoreStub) UpdateUser(ctx context.Context, user User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return User{}, s.err
	}
	c, ok := s.users[user.ID]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	c.User = user
	s.users[user.ID] = c
	return user, nil
}

func (s *userStoreStub) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.users, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *userStoreStub) ListUsers(ctx context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.users[id].User)
	}
	return out, nil
}

// deskRepositoryStub is an in-memory DeskRepository.
type deskRepositoryStub struct {
	mu        sync.Mutex
	desks     map[string]Desk
	createErr error
	deleteErr error
}

func newDeskRepositoryStub(ids ...string) *deskRepositoryStub {
	s := &deskRepositoryStub{desks: make(map[string]Desk)}
	for _, id := range ids {
		s.desks[id] = Desk{ID: id}
	}
	return s
}

func (s *deskRepositoryStub) CreateDesk(ctx context.Context, desk Desk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.desks[desk.ID]; ok {
		return &persistence.DuplicateError{Constraint: persistence.ConstraintPrimaryKey}
	}
	s.desks[desk.ID] = desk
	return nil
}

func (s *deskRepositoryStub) GetDesk(ctx context.Context, id string) (Desk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.desks[id]
	if !ok {
		return Desk{}, persistence.ErrNotFound
	}
	return d, nil
}

func (s *deskRepositoryStub) ListDesks(ctx context.Context) ([]Desk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Desk, 0, len(s.desks))
	for _, d := range s.desks {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *deskRepositoryStub) DeleteDesk(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.desks[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.desks, id)
	return nil
}

// holidayRepositoryStub is an in-memory HolidayRepository.
type holidayRepositoryStub struct {
	mu       sync.Mutex
	holidays map[string]Holiday
	// beforeList runs without the lock held, letting tests pause a snapshot load.
	beforeList func()
}

func newHolidayRepositoryStub(holidays ...Holiday) *holidayRepositoryStub {
	s := &holidayRepositoryStub{holidays: make(map[string]Holiday)}
	for _, h := range holidays {
		s.holidays[h.ID] = h
	}
	return s
}

func (s *holidayRepositoryStub) CreateHoliday(ctx context.Context, holiday Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.holidays {
		if h.Date == holiday.Date {
			return &persistence.DuplicateError{Constraint: persistence.ConstraintHolidayDate}
		}
	}
	s.holidays[holiday.ID] = holiday
	return nil
}

func (s *holidayRepositoryStub) GetHoliday(ctx context.Context, id string) (Holiday, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holidays[id]
	if !ok {
		return Holiday{}, persistence.ErrNotFound
	}
	return h, nil
}

func (s *holidayRepositoryStub) ListHolidays(ctx context.Context) ([]Holiday, error) {
	if s.beforeList != nil {
		s.beforeList()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Holiday, 0, len(s.holidays))
	for _, h := range s.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *holidayRepositoryStub) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holidays[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.holidays, id)
	return nil
}

// bookingRepositoryStub is an in-memory BookingRepository that enforces the
// same per-day uniqueness as the SQLite schema.
type bookingRepositoryStub struct {
	mu        sync.Mutex
	bookings  map[string]Booking
	createErr error
	// beforeCreate runs without the lock held, letting tests interleave writers.
	beforeCreate func(Booking)
}

func newBookingRepositoryStub(bookings ...Booking) *bookingRepositoryStub {
	s := &bookingRepositoryStub{bookings: make(map[string]Booking)}
	for _, b := range bookings {
		s.bookings[b.ID] = b
	}
	return s
}

func (s *bookingRepositoryStub) CreateBooking(ctx context.Context, b Booking) error {
	if s.beforeCreate != nil {
		s.beforeCreate(b)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	for _, existing := range s.bookings {
		if existing.Date != b.Date {
			continue
		}
		if existing.DeskID == b.DeskID {
			return &persistence.DuplicateError{Constraint: persistence.ConstraintBookingDeskDate}
		}
		if existing.UserID == b.UserID {
			return &persistence.DuplicateError{Constraint: persistence.ConstraintBookingUserDate}
		}
	}
	s.bookings[b.ID] = b
	return nil
}

func (s *bookingRepositoryStub) GetBooking(ctx context.Context, id string) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return Booking{}, persistence.ErrNotFound
	}
	return b, nil
}

func (s *bookingRepositoryStub) ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Booking
	for _, b := range s.bookings {
		if !filter.Date.IsZero() && b.Date != filter.Date {
			continue
		}
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		if filter.DeskID != "" && b.DeskID != filter.DeskID {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].DeskID < out[j].DeskID
	})
	return out, nil
}

func (s *bookingRepositoryStub) CountBookingsForDesk(ctx context.Context, deskID string) (int, error) {
	list, err := s.ListBookings(ctx, BookingFilter{DeskID: deskID})
	return len(list), err
}

func (s *bookingRepositoryStub) DeleteBooking(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.bookings, id)
	return nil
}

// sessionRepositoryStub provides an in-memory implementation of SessionRepository for tests.
type sessionRepositoryStub struct {
	mu           sync.Mutex
	sessionsByID map[string]Session
	tokenToID    map[string]string

	createErr error
	getErr    error
	updateErr error
	revokeErr error
	deleteErr error

	deleteCalls     []time.Time
	revokedForUsers []string
}

func newSessionRepositoryStub() *sessionRepositoryStub {
	return &sessionRepositoryStub{
		sessionsByID: make(map[string]Session),
		tokenToID:    make(map[string]string),
	}
}

func (s *sessionRepositoryStub) seed(session Session) {
	s.sessionsByID[session.ID] = cloneSession(session)
	s.tokenToID[session.Token] = session.ID
}

func (s *sessionRepositoryStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.seed(session)
	return cloneSession(session), nil
}

func (s *sessionRepositoryStub) GetSession(ctx context.Context, token string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return Session{}, s.getErr
	}
	id, ok := s.tokenToID[token]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	return cloneSession(s.sessionsByID[id]), nil
}

func (s *sessionRepositoryStub) UpdateSession(ctx context.Context, session Session) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return Session{}, s.updateErr
	}
	current, ok := s.sessionsByID[session.ID]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	if current.Token != session.Token {
		delete(s.tokenToID, current.Token)
	}
	s.sessionsByID[session.ID] = cloneSession(session)
	s.tokenToID[session.Token] = session.ID
	return cloneSession(session), nil
}

func (s *sessionRepositoryStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revokeErr != nil {
		return Session{}, s.revokeErr
	}
	id, ok := s.tokenToID[token]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	session := s.sessionsByID[id]
	revoked := revokedAt.UTC()
	session.RevokedAt = &revoked
	session.UpdatedAt = revoked
	s.sessionsByID[id] = session
	return cloneSession(session), nil
}

func (s *sessionRepositoryStub) RevokeUserSessions(ctx context.Context, userID string, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokedForUsers = append(s.revokedForUsers, userID)
	for id, session := range s.sessionsByID {
		if session.UserID != userID || session.RevokedAt != nil {
			continue
		}
		revoked := revokedAt.UTC()
		session.RevokedAt = &revoked
		s.sessionsByID[id] = session
	}
	return nil
}

func (s *sessionRepositoryStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	cutoff := reference.UTC()
	s.deleteCalls = append(s.deleteCalls, cutoff)
	for id, session := range s.sessionsByID {
		if session.ExpiresAt.IsZero() {
			continue
		}
		if !session.ExpiresAt.After(cutoff) {
			delete(s.sessionsByID, id)
			delete(s.tokenToID, session.Token)
		}
	}
	return nil
}

func cloneSession(session Session) Session {
	clone := session
	if session.RevokedAt != nil {
		revoked := session.RevokedAt.UTC()
		clone.RevokedAt = &revoked
	}
	return clone
}

// passwordResetRepositoryStub is an in-memory PasswordResetRepository.
type passwordResetRepositoryStub struct {
	mu     sync.Mutex
	resets map[string]PasswordReset
}

func newPasswordResetRepositoryStub() *passwordResetRepositoryStub {
	return &passwordResetRepositoryStub{resets: make(map[string]PasswordReset)}
}

func (s *passwordResetRepositoryStub) CreatePasswordReset(ctx context.Context, reset PasswordReset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets[reset.ID] = reset
	return nil
}

func (s *passwordResetRepositoryStub) GetPasswordResetByTokenHash(ctx context.Context, tokenHash string) (PasswordReset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.resets {
		if r.TokenHash == tokenHash {
			return r, nil
		}
	}
	return PasswordReset{}, persistence.ErrNotFound
}

func (s *passwordResetRepositoryStub) MarkPasswordResetUsed(ctx context.Context, id string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resets[id]
	if !ok || r.UsedAt != nil {
		return persistence.ErrNotFound
	}
	r.UsedAt = &usedAt
	s.resets[id] = r
	return nil
}

func (s *passwordResetRepositoryStub) DeleteExpiredPasswordResets(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.resets {
		if !r.ExpiresAt.After(reference) {
			delete(s.resets, id)
		}
	}
	return nil
}

// mailerStub records sent messages.
type mailerStub struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (m *mailerStub) Send(ctx context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// metricsStub counts recorded outcomes.
type metricsStub struct {
	mu          sync.Mutex
	created     int
	cancelled   int
	rejected    []string
	suggestions []string
}

func (m *metricsStub) BookingCreated() {
	m.mu.Lock()
	m.created++
	m.mu.Unlock()
}

func (m *metricsStub) BookingRejected(reason string) {
	m.mu.Lock()
	m.rejected = append(m.rejected, reason)
	m.mu.Unlock()
}

func (m *metricsStub) BookingCancelled() {
	m.mu.Lock()
	m.cancelled++
	m.mu.Unlock()
}

func (m *metricsStub) SuggestionCompleted(outcome string, _ time.Duration) {
	m.mu.Lock()
	m.suggestions = append(m.suggestions, outcome)
	m.mu.Unlock()
}

// publisherStub keeps every published snapshot.
type publisherStub struct {
	mu        sync.Mutex
	snapshots []booking.Snapshot
}

func (p *publisherStub) Publish(snap booking.Snapshot) {
	p.mu.Lock()
	p.snapshots = append(p.snapshots, snap)
	p.mu.Unlock()
}

func (p *publisherStub) last() (booking.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snapshots) == 0 {
		return booking.Snapshot{}, false
	}
	return p.snapshots[len(p.snapshots)-1], true
}

func (p *publisherStub) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snapshots)
}

// notifierStub counts change notifications.
type notifierStub struct {
	calls int
}

func (n *notifierStub) NotifyChanged(context.Context) { n.calls++ }

var errBoom = errors.New("boom")

// fixed instants, expressed in UTC. 2024-03-11 is a Monday.
var (
	mondayMorning   = time.Date(2024, 3, 11, 4, 30, 0, 0, time.UTC) // 10:00 IST
	mondayAfternoon = time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)  // 14:30 IST
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequenceIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
