package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/example/seatserve/internal/persistence"
)

const bookingColumns = `id, desk_id, user_id, user_name, booking_date, created_at`

// BookingRepository implements persistence.BookingRepository using SQLite.
// The unique indexes on (desk_id, booking_date) and (user_id, booking_date)
// decide concurrent inserts; the loser receives a *persistence.DuplicateError.
type BookingRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewBookingRepository creates a new SQLite booking repository
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// CreateBooking inserts a booking.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" || booking.DeskID == "" || booking.UserID == "" || booking.Date == "" {
		return persistence.ErrConstraintViolation
	}
	if _, err := time.Parse(persistence.DateLayout, booking.Date); err != nil {
		return persistence.ErrConstraintViolation
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`) VALUES (?, ?, ?, ?, ?, ?)
	`,
		booking.ID,
		booking.DeskID,
		booking.UserID,
		booking.UserName,
		booking.Date,
		formatTime(booking.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetBooking retrieves a booking by ID
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return r.scanBooking(row)
}

// ListBookings returns bookings matching filter ordered by date, desk.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	var clauses []string
	var args []any
	if filter.Date != "" {
		clauses = append(clauses, "booking_date = ?")
		args = append(args, filter.Date)
	}
	if filter.FromDate != "" {
		clauses = append(clauses, "booking_date >= ?")
		args = append(args, filter.FromDate)
	}
	if filter.ToDate != "" {
		clauses = append(clauses, "booking_date <= ?")
		args = append(args, filter.ToDate)
	}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.DeskID != "" {
		clauses = append(clauses, "desk_id = ?")
		args = append(args, filter.DeskID)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY booking_date ASC, desk_id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	bookings := []persistence.Booking{}
	for rows.Next() {
		booking, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return bookings, nil
}

// CountBookingsForDesk reports how many bookings reference deskID.
func (r *BookingRepository) CountBookingsForDesk(ctx context.Context, deskID string) (int, error) {
	var count int
	if err := r.helper.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE desk_id = ?`, deskID).Scan(&count); err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// DeleteBooking removes a booking by ID
func (r *BookingRepository) DeleteBooking(ctx context.Context, id string) error {
	return r.helper.ExecAffecting(ctx, r.mapper, `DELETE FROM bookings WHERE id = ?`, id)
}

func (r *BookingRepository) scanBooking(row rowScanner) (persistence.Booking, error) {
	var booking persistence.Booking
	var createdAt string
	err := row.Scan(&booking.ID, &booking.DeskID, &booking.UserID, &booking.UserName, &booking.Date, &createdAt)
	if err != nil {
		return persistence.Booking{}, r.mapper.MapError(err)
	}
	if booking.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}
