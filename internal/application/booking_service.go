package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/seatserve/internal/booking"
)

// Metrics receives booking and suggestion outcomes.
type Metrics interface {
	BookingCreated()
	BookingRejected(reason string)
	BookingCancelled()
	SuggestionCompleted(outcome string, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) BookingCreated()                           {}
func (nopMetrics) BookingRejected(string)                    {}
func (nopMetrics) BookingCancelled()                         {}
func (nopMetrics) SuggestionCompleted(string, time.Duration) {}

// SnapshotPublisher receives the full snapshot after every change.
type SnapshotPublisher interface {
	Publish(snap booking.Snapshot)
}

// BookingServiceOption configures optional collaborators of a BookingService.
type BookingServiceOption func(*BookingService)

// WithSnapshotPublisher publishes a fresh snapshot after each write.
func WithSnapshotPublisher(publisher SnapshotPublisher) BookingServiceOption {
	return func(s *BookingService) { s.publisher = publisher }
}

// WithMetrics records booking outcomes.
func WithMetrics(metrics Metrics) BookingServiceOption {
	return func(s *BookingService) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithSnapshotTTL bounds how long a cached snapshot is served.
func WithSnapshotTTL(ttl time.Duration) BookingServiceOption {
	return func(s *BookingService) { s.cacheTTL = ttl }
}

// WithPolicy overrides the booking rules.
func WithPolicy(policy booking.Policy) BookingServiceOption {
	return func(s *BookingService) { s.policy = policy }
}

// WithBookingLogger sets the service logger.
func WithBookingLogger(logger *slog.Logger) BookingServiceOption {
	return func(s *BookingService) { s.logger = defaultLogger(logger) }
}

// BookingService applies the booking policy to reads and writes of bookings.
type BookingService struct {
	bookings    BookingRepository
	desks       DeskRepository
	holidays    HolidayRepository
	users       UserRepository
	policy      booking.Policy
	idGenerator func() string
	now         func() time.Time
	publisher   SnapshotPublisher
	metrics     Metrics
	cacheTTL    time.Duration
	cache       *snapshotCache
	logger      *slog.Logger

	// publishMu orders reload+publish so the last publication reflects the
	// last write.
	publishMu sync.Mutex
}

// NewBookingService wires dependencies for the booking service.
func NewBookingService(bookings BookingRepository, desks DeskRepository, holidays HolidayRepository, users UserRepository, idGenerator func() string, now func() time.Time, opts ...BookingServiceOption) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	s := &BookingService{
		bookings:    bookings,
		desks:       desks,
		holidays:    holidays,
		users:       users,
		policy:      booking.DefaultPolicy(),
		idGenerator: idGenerator,
		now:         now,
		metrics:     nopMetrics{},
		logger:      defaultLogger(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = newSnapshotCache(s.cacheTTL, now)
	return s
}

// Policy returns the rules the service enforces.
func (s *BookingService) Policy() booking.Policy {
	return s.policy
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// Snapshot returns the current desks, bookings and holidays, served from cache
// when nothing changed since the last load.
func (s *BookingService) Snapshot(ctx context.Context) (booking.Snapshot, error) {
	if s == nil {
		return booking.Snapshot{}, fmt.Errorf("BookingService is nil")
	}
	if snap, _, ok := s.cache.Get(); ok {
		return snap, nil
	}
	return s.loadSnapshot(ctx)
}

func (s *BookingService) loadSnapshot(ctx context.Context) (booking.Snapshot, error) {
	_, gen, _ := s.cache.Get()
	desks, err := s.desks.ListDesks(ctx)
	if err != nil {
		return booking.Snapshot{}, fmt.Errorf("load desks: %w", mapRepoError(err))
	}
	bookings, err := s.bookings.ListBookings(ctx, BookingFilter{})
	if err != nil {
		return booking.Snapshot{}, fmt.Errorf("load bookings: %w", mapRepoError(err))
	}
	holidays, err := s.holidays.ListHolidays(ctx)
	if err != nil {
		return booking.Snapshot{}, fmt.Errorf("load holidays: %w", mapRepoError(err))
	}
	snap := SnapshotOf(desks, bookings, holidays, s.now())
	s.cache.Store(gen, snap)
	return snap, nil
}

// NotifyChanged drops the cached snapshot and publishes a fresh one.
func (s *BookingService) NotifyChanged(ctx context.Context) {
	if s == nil {
		return
	}
	s.cache.Invalidate()
	if s.publisher == nil {
		return
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		s.loggerWith(ctx, "NotifyChanged").WarnContext(ctx, "snapshot reload failed", "error", err, "error_kind", ErrorKind(err))
		return
	}
	s.publisher.Publish(snap)
}

// CreateBooking books a desk for the principal, or for another user when the
// principal is an administrator. The date and request are checked against a
// freshly loaded snapshot; the store arbitrates races between concurrent writers.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (created Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	params.DeskID = strings.TrimSpace(params.DeskID)
	params.Date = strings.TrimSpace(params.Date)
	userID := strings.TrimSpace(params.UserID)
	if userID == "" {
		userID = params.Principal.UserID
	}

	logger := s.loggerWith(ctx, "CreateBooking",
		"principal_id", params.Principal.UserID,
		"user_id", userID,
		"desk_id", params.DeskID,
		"date", params.Date,
	)
	defer func() {
		if err != nil {
			if reason, ok := booking.ReasonOf(err); ok {
				s.metrics.BookingRejected(string(reason))
				logger.WarnContext(ctx, "booking rejected", "reason", reason, "error_kind", ErrorKind(err))
				return
			}
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		s.metrics.BookingCreated()
		logger.With("booking_id", created.ID).InfoContext(ctx, "booking created")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}
	if userID != params.Principal.UserID && !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if vErr := validateStruct(params); vErr.HasErrors() {
		err = vErr
		return
	}
	date, vErr := parseDateField("date", params.Date)
	if vErr != nil {
		err = vErr
		return
	}

	var user User
	user, err = s.users.GetUser(ctx, userID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if user.Disabled {
		err = ErrAccountDisabled
		return
	}

	s.cache.Invalidate()
	var snap booking.Snapshot
	snap, err = s.loadSnapshot(ctx)
	if err != nil {
		return
	}
	if !hasDesk(snap, params.DeskID) {
		err = fieldError("desk_id", "does not exist")
		return
	}

	now := s.now()
	if err = s.policy.CheckDate(date, snap.HolidaySet(), now); err != nil {
		return
	}
	req := booking.Request{EmployeeID: user.ID, DeskID: params.DeskID, Date: date}
	if err = s.policy.CanCreateBooking(req, snap, now); err != nil {
		return
	}

	created = Booking{
		ID:        s.idGenerator(),
		DeskID:    params.DeskID,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Date:      date,
		CreatedAt: now,
	}
	if err = s.bookings.CreateBooking(ctx, created); err != nil {
		created = Booking{}
		if rej, ok := bookingConflict(err); ok {
			err = rej
			return
		}
		err = mapRepoError(err)
		return
	}

	s.NotifyChanged(ctx)
	return
}

// CancelBooking removes a booking owned by the principal, or any booking for administrators.
func (s *BookingService) CancelBooking(ctx context.Context, params CancelBookingParams) (err error) {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}

	bookingID := strings.TrimSpace(params.BookingID)
	logger := s.loggerWith(ctx, "CancelBooking",
		"principal_id", params.Principal.UserID,
		"booking_id", bookingID,
	)
	defer func() {
		if err != nil {
			if reason, ok := booking.ReasonOf(err); ok {
				logger.WarnContext(ctx, "cancellation rejected", "reason", reason, "error_kind", ErrorKind(err))
				return
			}
			logger.ErrorContext(ctx, "failed to cancel booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		s.metrics.BookingCancelled()
		logger.InfoContext(ctx, "booking cancelled")
	}()

	if bookingID == "" {
		return ErrNotFound
	}

	existing, getErr := s.bookings.GetBooking(ctx, bookingID)
	if getErr != nil {
		return mapRepoError(getErr)
	}
	if existing.UserID != params.Principal.UserID && !params.Principal.IsAdmin {
		return ErrUnauthorized
	}
	if err = s.policy.CanCancelBooking(existing.policyView(), s.now()); err != nil {
		return err
	}
	if err = s.bookings.DeleteBooking(ctx, bookingID); err != nil {
		return mapRepoError(err)
	}
	s.NotifyChanged(ctx)
	return nil
}

// ListBookings returns bookings filtered by date and user. Non-administrators
// only see their own bookings unless a date is given, which lists the whole
// floor for that day. Administrator listings without a date are ordered newest first.
func (s *BookingService) ListBookings(ctx context.Context, params ListBookingsParams) (bookings []Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListBookings",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list bookings", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	filter := BookingFilter{UserID: strings.TrimSpace(params.UserID)}
	if raw := strings.TrimSpace(params.Date); raw != "" {
		date, vErr := parseDateField("date", raw)
		if vErr != nil {
			err = vErr
			return
		}
		filter.Date = date
	}
	if !params.Principal.IsAdmin {
		if filter.UserID != "" && filter.UserID != params.Principal.UserID {
			err = ErrUnauthorized
			return
		}
		if filter.Date.IsZero() {
			filter.UserID = params.Principal.UserID
		}
	}

	bookings, err = s.bookings.ListBookings(ctx, filter)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if params.Principal.IsAdmin && filter.Date.IsZero() {
		sort.SliceStable(bookings, func(i, j int) bool {
			return bookings[j].Date.Before(bookings[i].Date)
		})
	} else {
		sort.SliceStable(bookings, func(i, j int) bool {
			if bookings[i].Date != bookings[j].Date {
				return bookings[i].Date.Before(bookings[j].Date)
			}
			return bookings[i].DeskID < bookings[j].DeskID
		})
	}
	return bookings, nil
}

// AvailableDesks returns the desks with no booking on date, sorted ascending.
func (s *BookingService) AvailableDesks(ctx context.Context, date string) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}
	d, vErr := parseDateField("date", date)
	if vErr != nil {
		return nil, vErr
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return booking.AvailableDesks(d, snap.Desks, snap.Bookings), nil
}

// Calendar describes each day from..to for the principal.
func (s *BookingService) Calendar(ctx context.Context, principal Principal, from, to string) ([]booking.DayStatus, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}
	now := s.now()
	start := s.policy.Today(now)
	if strings.TrimSpace(from) != "" {
		d, vErr := parseDateField("from", from)
		if vErr != nil {
			return nil, vErr
		}
		start = d
	}
	end := start.AddDays(13)
	if strings.TrimSpace(to) != "" {
		d, vErr := parseDateField("to", to)
		if vErr != nil {
			return nil, vErr
		}
		end = d
	}
	if end.Before(start) {
		return nil, fieldError("to", "must not be before from")
	}
	if booking.CalendarSpan(start, end) > booking.MaxCalendarDays {
		return nil, fieldError("to", fmt.Sprintf("range must not exceed %d days", booking.MaxCalendarDays))
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	days, err := s.policy.CalendarRange(start, end, snap, now, principal.UserID)
	if err != nil {
		return nil, fieldError("to", err.Error())
	}
	return days, nil
}

// BookingOn returns the booking userID holds on date, if any.
func (s *BookingService) BookingOn(ctx context.Context, userID string, date booking.Date) (Booking, bool, error) {
	list, err := s.bookings.ListBookings(ctx, BookingFilter{UserID: userID, Date: date})
	if err != nil {
		return Booking{}, false, mapRepoError(err)
	}
	if len(list) == 0 {
		return Booking{}, false, nil
	}
	return list[0], true, nil
}

func hasDesk(snap booking.Snapshot, id string) bool {
	for _, d := range snap.Desks {
		if d.ID == id {
			return true
		}
	}
	return false
}

var _ ChangeNotifier = (*BookingService)(nil)
