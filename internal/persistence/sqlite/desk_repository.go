package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/example/seatserve/internal/persistence"
)

// DeskRepository implements persistence.DeskRepository using SQLite
type DeskRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewDeskRepository creates a new SQLite desk repository
func NewDeskRepository(pool *ConnectionPool) *DeskRepository {
	return &DeskRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// CreateDesk inserts a desk. A repeated identifier yields persistence.ErrDuplicate.
func (r *DeskRepository) CreateDesk(ctx context.Context, desk persistence.Desk) error {
	desk.ID = strings.TrimSpace(desk.ID)
	if desk.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if desk.CreatedAt.IsZero() {
		desk.CreatedAt = time.Now().UTC()
	}
	_, err := r.helper.Exec(ctx, `INSERT INTO desks (id, created_at) VALUES (?, ?)`, desk.ID, formatTime(desk.CreatedAt))
	return r.mapper.MapError(err)
}

// GetDesk retrieves a desk by identifier
func (r *DeskRepository) GetDesk(ctx context.Context, id string) (persistence.Desk, error) {
	var desk persistence.Desk
	var createdAt string
	err := r.helper.QueryRow(ctx, `SELECT id, created_at FROM desks WHERE id = ?`, strings.TrimSpace(id)).Scan(&desk.ID, &createdAt)
	if err != nil {
		return persistence.Desk{}, r.mapper.MapError(err)
	}
	if desk.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Desk{}, err
	}
	return desk, nil
}

// ListDesks returns every desk ordered by identifier
func (r *DeskRepository) ListDesks(ctx context.Context) ([]persistence.Desk, error) {
	rows, err := r.helper.Query(ctx, `SELECT id, created_at FROM desks ORDER BY id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	desks := []persistence.Desk{}
	for rows.Next() {
		var desk persistence.Desk
		var createdAt string
		if err := rows.Scan(&desk.ID, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if desk.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		desks = append(desks, desk)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return desks, nil
}

// DeleteDesk removes a desk. Desks referenced by a booking yield
// persistence.ErrForeignKeyViolation.
func (r *DeskRepository) DeleteDesk(ctx context.Context, id string) error {
	return r.helper.ExecAffecting(ctx, r.mapper, `DELETE FROM desks WHERE id = ?`, strings.TrimSpace(id))
}
