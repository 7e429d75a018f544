package sqlite

import (
	"context"
	"time"

	"github.com/example/seatserve/internal/persistence"
)

// HolidayRepository implements persistence.HolidayRepository using SQLite
type HolidayRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewHolidayRepository creates a new SQLite holiday repository
func NewHolidayRepository(pool *ConnectionPool) *HolidayRepository {
	return &HolidayRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// CreateHoliday inserts a holiday. Only one holiday may exist per date.
func (r *HolidayRepository) CreateHoliday(ctx context.Context, holiday persistence.Holiday) error {
	if holiday.ID == "" || holiday.Date == "" || holiday.Name == "" {
		return persistence.ErrConstraintViolation
	}
	if _, err := time.Parse(persistence.DateLayout, holiday.Date); err != nil {
		return persistence.ErrConstraintViolation
	}
	if holiday.CreatedAt.IsZero() {
		holiday.CreatedAt = time.Now().UTC()
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO holidays (id, holiday_date, name, created_at) VALUES (?, ?, ?, ?)
	`, holiday.ID, holiday.Date, holiday.Name, formatTime(holiday.CreatedAt))
	return r.mapper.MapError(err)
}

// GetHoliday retrieves a holiday by ID
func (r *HolidayRepository) GetHoliday(ctx context.Context, id string) (persistence.Holiday, error) {
	row := r.helper.QueryRow(ctx, `SELECT id, holiday_date, name, created_at FROM holidays WHERE id = ?`, id)
	return r.scanHoliday(row)
}

// ListHolidays returns every holiday ordered by date ascending
func (r *HolidayRepository) ListHolidays(ctx context.Context) ([]persistence.Holiday, error) {
	rows, err := r.helper.Query(ctx, `SELECT id, holiday_date, name, created_at FROM holidays ORDER BY holiday_date ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	holidays := []persistence.Holiday{}
	for rows.Next() {
		holiday, err := r.scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		holidays = append(holidays, holiday)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return holidays, nil
}

// DeleteHoliday removes a holiday by ID
func (r *HolidayRepository) DeleteHoliday(ctx context.Context, id string) error {
	return r.helper.ExecAffecting(ctx, r.mapper, `DELETE FROM holidays WHERE id = ?`, id)
}

func (r *HolidayRepository) scanHoliday(row rowScanner) (persistence.Holiday, error) {
	var holiday persistence.Holiday
	var createdAt string
	if err := row.Scan(&holiday.ID, &holiday.Date, &holiday.Name, &createdAt); err != nil {
		return persistence.Holiday{}, r.mapper.MapError(err)
	}
	var err error
	if holiday.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Holiday{}, err
	}
	return holiday, nil
}
