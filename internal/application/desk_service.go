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

// ChangeNotifier is told after every write that alters the booking snapshot.
type ChangeNotifier interface {
	NotifyChanged(ctx context.Context)
}

// DefaultDeskIDs returns the stock desk inventory: 6.W.WS.019 through 6.W.WS.135.
func DefaultDeskIDs() []string {
	ids := make([]string, 0, 135-19+1)
	for n := 19; n <= 135; n++ {
		ids = append(ids, fmt.Sprintf("6.W.WS.%03d", n))
	}
	return ids
}

// DeskService manages the desk inventory.
type DeskService struct {
	desks    DeskRepository
	bookings BookingRepository
	notifier ChangeNotifier
	now      func() time.Time
	logger   *slog.Logger
}

// NewDeskService wires dependencies for the desk service.
func NewDeskService(desks DeskRepository, bookings BookingRepository, notifier ChangeNotifier, now func() time.Time) *DeskService {
	return NewDeskServiceWithLogger(desks, bookings, notifier, now, nil)
}

// NewDeskServiceWithLogger wires dependencies for the desk service with a logger.
func NewDeskServiceWithLogger(desks DeskRepository, bookings BookingRepository, notifier ChangeNotifier, now func() time.Time, logger *slog.Logger) *DeskService {
	if now == nil {
		now = time.Now
	}
	return &DeskService{
		desks:    desks,
		bookings: bookings,
		notifier: notifier,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

func (s *DeskService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DeskService", operation, attrs...)
}

// CreateDesk adds a desk for administrators.
func (s *DeskService) CreateDesk(ctx context.Context, params CreateDeskParams) (desk Desk, err error) {
	if s == nil {
		err = fmt.Errorf("DeskService is nil")
		return
	}

	params.DeskID = strings.TrimSpace(params.DeskID)
	logger := s.loggerWith(ctx, "CreateDesk",
		"principal_id", params.Principal.UserID,
		"desk_id", params.DeskID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create desk", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "desk created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if vErr := validateStruct(params); vErr.HasErrors() {
		err = vErr
		return
	}

	desk = Desk{ID: params.DeskID, CreatedAt: s.now()}
	if err = s.desks.CreateDesk(ctx, desk); err != nil {
		err = mapDeskRepoError(err)
		return
	}
	s.notify(ctx)
	return
}

// DeleteDesk removes a desk that has never been booked.
func (s *DeskService) DeleteDesk(ctx context.Context, principal Principal, deskID string) (err error) {
	if s == nil {
		return fmt.Errorf("DeskService is nil")
	}

	deskID = strings.TrimSpace(deskID)
	logger := s.loggerWith(ctx, "DeleteDesk",
		"principal_id", principal.UserID,
		"desk_id", deskID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete desk", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "desk deleted")
	}()

	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if deskID == "" {
		return fieldError("desk_id", "is required")
	}

	if s.bookings != nil {
		var count int
		count, err = s.bookings.CountBookingsForDesk(ctx, deskID)
		if err != nil {
			return mapDeskRepoError(err)
		}
		if count > 0 {
			return deskInUse()
		}
	}

	if err = s.desks.DeleteDesk(ctx, deskID); err != nil {
		return mapDeskRepoError(err)
	}
	s.notify(ctx)
	return nil
}

// ListDesks returns every desk ordered by identifier.
func (s *DeskService) ListDesks(ctx context.Context) ([]Desk, error) {
	if s == nil {
		return nil, fmt.Errorf("DeskService is nil")
	}
	desks, err := s.desks.ListDesks(ctx)
	if err != nil {
		err = mapDeskRepoError(err)
		s.loggerWith(ctx, "ListDesks").ErrorContext(ctx, "failed to list desks", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	sort.Slice(desks, func(i, j int) bool { return desks[i].ID < desks[j].ID })
	return desks, nil
}

// SeedDefaultDesks inserts the stock inventory, skipping desks that already exist.
// It returns how many desks were added.
func (s *DeskService) SeedDefaultDesks(ctx context.Context, ids []string) (added int, err error) {
	if s == nil {
		err = fmt.Errorf("DeskService is nil")
		return
	}
	if len(ids) == 0 {
		ids = DefaultDeskIDs()
	}

	logger := s.loggerWith(ctx, "SeedDefaultDesks", "requested", len(ids))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "desk seeding failed", "error", err, "error_kind", ErrorKind(err), "added", added)
			return
		}
		logger.InfoContext(ctx, "desks seeded", "added", added)
	}()

	now := s.now()
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if !validDeskID(id) {
			err = fieldError("desk_id", fmt.Sprintf("%q must look like <building>.<wing>.<room-code>.<number>", id))
			return
		}
		if createErr := s.desks.CreateDesk(ctx, Desk{ID: id, CreatedAt: now}); createErr != nil {
			if errors.Is(createErr, persistence.ErrDuplicate) || errors.Is(createErr, ErrAlreadyExists) {
				continue
			}
			err = mapDeskRepoError(createErr)
			return
		}
		added++
	}
	if added > 0 {
		s.notify(ctx)
	}
	return
}

func (s *DeskService) notify(ctx context.Context) {
	if s.notifier != nil {
		s.notifier.NotifyChanged(ctx)
	}
}

func deskInUse() error {
	return &ConflictError{Kind: ErrDeskInUse, Message: "Cannot remove desk with active bookings."}
}

func mapDeskRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrDuplicate) || errors.Is(err, ErrAlreadyExists) {
		return &ConflictError{Kind: ErrAlreadyExists, Message: "This desk number already exists."}
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return deskInUse()
	}
	return mapRepoError(err)
}
