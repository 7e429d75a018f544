package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/seatserve/internal/persistence"
)

// HolidayService manages company holidays.
type HolidayService struct {
	holidays    HolidayRepository
	notifier    ChangeNotifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewHolidayService wires dependencies for the holiday service.
func NewHolidayService(holidays HolidayRepository, notifier ChangeNotifier, idGenerator func() string, now func() time.Time) *HolidayService {
	return NewHolidayServiceWithLogger(holidays, notifier, idGenerator, now, nil)
}

// NewHolidayServiceWithLogger wires dependencies for the holiday service with a logger.
func NewHolidayServiceWithLogger(holidays HolidayRepository, notifier ChangeNotifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *HolidayService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &HolidayService{
		holidays:    holidays,
		notifier:    notifier,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *HolidayService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "HolidayService", operation, attrs...)
}

// CreateHoliday declares a holiday. Only one holiday may exist per date.
func (s *HolidayService) CreateHoliday(ctx context.Context, params CreateHolidayParams) (holiday Holiday, err error) {
	if s == nil {
		err = fmt.Errorf("HolidayService is nil")
		return
	}

	params.Date = strings.TrimSpace(params.Date)
	params.Name = sanitizeText(params.Name)
	logger := s.loggerWith(ctx, "CreateHoliday",
		"principal_id", params.Principal.UserID,
		"date", params.Date,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create holiday", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("holiday_id", holiday.ID).InfoContext(ctx, "holiday created")
	}()

	if !params.Principal.IsAdmin {
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

	holiday = Holiday{
		ID:        s.idGenerator(),
		Date:      date,
		Name:      params.Name,
		CreatedAt: s.now(),
	}
	if err = s.holidays.CreateHoliday(ctx, holiday); err != nil {
		holiday = Holiday{}
		if errors.Is(err, persistence.ErrDuplicate) || errors.Is(err, ErrAlreadyExists) {
			err = &ConflictError{Kind: ErrAlreadyExists, Message: "A holiday already exists on this date."}
			return
		}
		err = mapRepoError(err)
		return
	}
	if s.notifier != nil {
		s.notifier.NotifyChanged(ctx)
	}
	return
}

// DeleteHoliday removes a holiday for administrators.
func (s *HolidayService) DeleteHoliday(ctx context.Context, principal Principal, holidayID string) (err error) {
	if s == nil {
		return fmt.Errorf("HolidayService is nil")
	}

	holidayID = strings.TrimSpace(holidayID)
	logger := s.loggerWith(ctx, "DeleteHoliday",
		"principal_id", principal.UserID,
		"holiday_id", holidayID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete holiday", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "holiday deleted")
	}()

	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if holidayID == "" {
		return ErrNotFound
	}
	if err = s.holidays.DeleteHoliday(ctx, holidayID); err != nil {
		return mapRepoError(err)
	}
	if s.notifier != nil {
		s.notifier.NotifyChanged(ctx)
	}
	return nil
}

// ListHolidays returns every holiday in ascending date order.
func (s *HolidayService) ListHolidays(ctx context.Context) ([]Holiday, error) {
	if s == nil {
		return nil, fmt.Errorf("HolidayService is nil")
	}
	holidays, err := s.holidays.ListHolidays(ctx)
	if err != nil {
		err = mapRepoError(err)
		s.loggerWith(ctx, "ListHolidays").ErrorContext(ctx, "failed to list holidays", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	sort.SliceStable(holidays, func(i, j int) bool { return holidays[i].Date.Before(holidays[j].Date) })
	return holidays, nil
}
