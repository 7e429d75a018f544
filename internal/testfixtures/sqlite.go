package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/seatserve/internal/booking"
	"github.com/example/seatserve/internal/persistence"
	"github.com/example/seatserve/internal/persistence/appstore"
	"github.com/example/seatserve/internal/persistence/sqlite"
)

// SQLiteHarness is a migrated SQLite file per test, exposed both as the
// application-facing repositories and as the raw store for seeding rows the
// booking rules would refuse, such as history in the past.
type SQLiteHarness struct {
	appstore.Repositories
	Store *sqlite.Store

	tb testing.TB
}

// NewSQLiteHarness opens a fresh database under tb.TempDir and closes it when
// the test ends.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "seatserve.db")
	store, err := sqlite.Open(context.Background(), sqlite.DefaultConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })

	if _, dirty, err := sqlite.Version(store.Pool); err != nil || dirty {
		tb.Fatalf("schema not clean after migrate: dirty=%v err=%v", dirty, err)
	}

	return &SQLiteHarness{
		Repositories: appstore.New(store),
		Store:        store,
		tb:           tb,
	}
}

// InsertDesks stores desks without going through DeskService.
func (h *SQLiteHarness) InsertDesks(ids ...string) {
	h.tb.Helper()
	for _, id := range ids {
		if err := h.Store.Desks.CreateDesk(context.Background(), persistence.Desk{ID: id, CreatedAt: ReferenceTime()}); err != nil {
			h.tb.Fatalf("insert desk %s: %v", id, err)
		}
	}
}

// InsertHistory stores bookings verbatim, bypassing the cutoff and horizon
// checks, so tests can set up past seating.
func (h *SQLiteHarness) InsertHistory(bookings ...booking.Booking) {
	h.tb.Helper()
	for _, b := range bookings {
		row := persistence.Booking{
			ID:        b.ID,
			DeskID:    b.DeskID,
			UserID:    b.EmployeeID,
			UserName:  b.EmployeeName,
			Date:      b.Date.String(),
			CreatedAt: b.Date.StartOfDay(time.UTC),
		}
		if err := h.Store.Bookings.CreateBooking(context.Background(), row); err != nil {
			h.tb.Fatalf("insert booking %s: %v", b.ID, err)
		}
	}
}

// Count returns the number of rows in one of the schema's tables.
func (h *SQLiteHarness) Count(table string) int {
	h.tb.Helper()
	switch table {
	case "users", "sessions", "password_resets", "desks", "holidays", "bookings":
	default:
		h.tb.Fatalf("unknown table %q", table)
	}
	var n int
	if err := h.Store.Pool.DB().QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		h.tb.Fatalf("count %s: %v", table, err)
	}
	return n
}
