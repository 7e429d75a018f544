package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/seatserve/internal/booking"
	"github.com/example/seatserve/internal/suggestion"
)

const defaultSuggestionTimeout = 30 * time.Second

// Suggester produces a desk recommendation for an employee on a day.
type Suggester interface {
	Suggest(ctx context.Context, employeeName string, date booking.Date) (suggestion.Result, error)
}

// SnapshotSource supplies the current booking snapshot.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (booking.Snapshot, error)
}

// suggestionSource adapts application repositories to suggestion.Source.
type suggestionSource struct {
	users     UserRepository
	snapshots SnapshotSource
}

// NewSuggestionSource exposes users and snapshots to the suggestion orchestrator.
func NewSuggestionSource(users UserRepository, snapshots SnapshotSource) suggestion.Source {
	return &suggestionSource{users: users, snapshots: snapshots}
}

func (s *suggestionSource) Employees(ctx context.Context) ([]suggestion.Employee, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	out := make([]suggestion.Employee, 0, len(users))
	for _, u := range users {
		out = append(out, suggestion.Employee{ID: u.ID, DisplayName: u.DisplayName, Team: u.Team, Disabled: u.Disabled})
	}
	return out, nil
}

func (s *suggestionSource) Snapshot(ctx context.Context) (booking.Snapshot, error) {
	return s.snapshots.Snapshot(ctx)
}

// SuggestionService recommends desks and books accepted recommendations.
type SuggestionService struct {
	suggester Suggester
	users     UserRepository
	bookings  *BookingService
	timeout   time.Duration
	metrics   Metrics
	now       func() time.Time
	logger    *slog.Logger
}

// NewSuggestionService wires dependencies for the suggestion service. A
// non-positive timeout selects 30 seconds; a nil metrics sink discards samples.
func NewSuggestionService(suggester Suggester, users UserRepository, bookings *BookingService, timeout time.Duration, metrics Metrics, now func() time.Time) *SuggestionService {
	return NewSuggestionServiceWithLogger(suggester, users, bookings, timeout, metrics, now, nil)
}

// NewSuggestionServiceWithLogger wires dependencies for the suggestion service with a logger.
func NewSuggestionServiceWithLogger(suggester Suggester, users UserRepository, bookings *BookingService, timeout time.Duration, metrics Metrics, now func() time.Time, logger *slog.Logger) *SuggestionService {
	if timeout <= 0 {
		timeout = defaultSuggestionTimeout
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if now == nil {
		now = time.Now
	}
	return &SuggestionService{
		suggester: suggester,
		users:     users,
		bookings:  bookings,
		timeout:   timeout,
		metrics:   metrics,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *SuggestionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SuggestionService", operation, attrs...)
}

// Suggest recommends a desk for the principal, or for another employee named
// by display name when the principal is an administrator. The date must be
// bookable before any generation is attempted.
func (s *SuggestionService) Suggest(ctx context.Context, params SuggestParams) (result Suggestion, err error) {
	if s == nil {
		err = fmt.Errorf("SuggestionService is nil")
		return
	}

	params.EmployeeName = strings.TrimSpace(params.EmployeeName)
	params.Date = strings.TrimSpace(params.Date)
	logger := s.loggerWith(ctx, "Suggest",
		"principal_id", params.Principal.UserID,
		"employee_name", params.EmployeeName,
		"date", params.Date,
	)
	started := s.now()
	defer func() {
		outcome := "ok"
		switch {
		case err == nil:
		case errors.Is(err, ErrSuggestionUnavailable):
			outcome = "unavailable"
		default:
			if _, ok := AsRejection(err); ok {
				outcome = "rejected"
			} else {
				outcome = "error"
			}
		}
		s.metrics.SuggestionCompleted(outcome, s.now().Sub(started))
		if err != nil {
			logger.ErrorContext(ctx, "suggestion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("desk_id", result.DeskID).InfoContext(ctx, "suggestion produced")
	}()

	if params.Principal.UserID == "" {
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

	var target User
	target, err = s.resolveEmployee(ctx, params.Principal, params.EmployeeName)
	if err != nil {
		return
	}

	var snap booking.Snapshot
	snap, err = s.bookings.Snapshot(ctx)
	if err != nil {
		return
	}
	if err = s.bookings.Policy().CheckDate(date, snap.HolidaySet(), s.now()); err != nil {
		return
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var res suggestion.Result
	res, err = s.suggester.Suggest(genCtx, target.DisplayName, date)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrSuggestionUnavailable) {
			err = fmt.Errorf("%w: %w", ErrSuggestionUnavailable, err)
		}
		return
	}

	result = Suggestion{
		UserID:       target.ID,
		EmployeeName: target.DisplayName,
		Date:         date,
		DeskID:       res.DeskNumber,
		Reasoning:    res.Reasoning,
	}
	return
}

func (s *SuggestionService) resolveEmployee(ctx context.Context, principal Principal, name string) (User, error) {
	self, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	if name == "" || strings.EqualFold(name, self.DisplayName) {
		return self, nil
	}
	if !principal.IsAdmin {
		return User{}, ErrUnauthorized
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	for _, u := range users {
		if strings.EqualFold(strings.TrimSpace(u.DisplayName), name) {
			if u.Disabled {
				return User{}, ErrAccountDisabled
			}
			return u, nil
		}
	}
	return User{}, fieldError("employee_name", "does not match any employee")
}

// CommitSuggestion books a suggested desk. Because the snapshot may have
// changed since the suggestion was made, policy rejections are reported as
// *StaleSuggestionError.
func (s *SuggestionService) CommitSuggestion(ctx context.Context, params CommitSuggestionParams) (created Booking, err error) {
	if s == nil {
		err = fmt.Errorf("SuggestionService is nil")
		return
	}

	userID := strings.TrimSpace(params.UserID)
	if userID == "" {
		userID = params.Principal.UserID
	}
	logger := s.loggerWith(ctx, "CommitSuggestion",
		"principal_id", params.Principal.UserID,
		"user_id", userID,
		"desk_id", params.DeskID,
		"date", params.Date,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "suggestion commit failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", created.ID).InfoContext(ctx, "suggestion committed")
	}()

	if userID != params.Principal.UserID {
		if !params.Principal.IsAdmin {
			err = ErrUnauthorized
			return
		}
		date, vErr := parseDateField("date", params.Date)
		if vErr != nil {
			err = vErr
			return
		}
		var exists bool
		_, exists, err = s.bookings.BookingOn(ctx, userID, date)
		if err != nil {
			return
		}
		if exists {
			err = &StaleSuggestionError{Rejection: booking.NewRejection(booking.ReasonDoubleBookingEmployee)}
			return
		}
	}

	created, err = s.bookings.CreateBooking(ctx, CreateBookingParams{
		Principal: params.Principal,
		UserID:    userID,
		DeskID:    params.DeskID,
		Date:      params.Date,
	})
	if rej, ok := AsRejection(err); ok {
		err = &StaleSuggestionError{Rejection: rej}
	}
	return
}
