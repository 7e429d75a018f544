package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/seatserve/internal/persistence"
)

// PasswordResetRepository implements persistence.PasswordResetRepository.
type PasswordResetRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPasswordResetRepository creates a new SQLite password reset repository.
func NewPasswordResetRepository(pool *ConnectionPool) *PasswordResetRepository {
	return &PasswordResetRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// CreatePasswordReset stores a reset grant.
func (r *PasswordResetRepository) CreatePasswordReset(ctx context.Context, reset persistence.PasswordReset) error {
	if reset.ID == "" || reset.UserID == "" || strings.TrimSpace(reset.TokenHash) == "" {
		return persistence.ErrConstraintViolation
	}
	if reset.CreatedAt.IsZero() {
		reset.CreatedAt = time.Now().UTC()
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO password_resets (id, user_id, token_hash, expires_at, used_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		reset.ID,
		reset.UserID,
		reset.TokenHash,
		formatTime(reset.ExpiresAt),
		nullTime(reset.UsedAt),
		formatTime(reset.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetPasswordResetByTokenHash looks a grant up by token digest.
func (r *PasswordResetRepository) GetPasswordResetByTokenHash(ctx context.Context, tokenHash string) (persistence.PasswordReset, error) {
	if strings.TrimSpace(tokenHash) == "" {
		return persistence.PasswordReset{}, persistence.ErrNotFound
	}

	var reset persistence.PasswordReset
	var expiresAt, createdAt string
	var usedAt sql.NullString
	err := r.helper.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM password_resets
		WHERE token_hash = ?
	`, tokenHash).Scan(&reset.ID, &reset.UserID, &reset.TokenHash, &expiresAt, &usedAt, &createdAt)
	if err != nil {
		return persistence.PasswordReset{}, r.mapper.MapError(err)
	}

	if reset.ExpiresAt, err = parseTime("expires_at", expiresAt); err != nil {
		return persistence.PasswordReset{}, err
	}
	if reset.UsedAt, err = parseNullTime("used_at", usedAt); err != nil {
		return persistence.PasswordReset{}, err
	}
	if reset.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.PasswordReset{}, err
	}
	return reset, nil
}

// MarkPasswordResetUsed consumes a grant. A grant can be consumed once; a
// second call reports persistence.ErrNotFound.
func (r *PasswordResetRepository) MarkPasswordResetUsed(ctx context.Context, id string, usedAt time.Time) error {
	return r.helper.ExecAffecting(ctx, r.mapper,
		`UPDATE password_resets SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		formatTime(usedAt), id)
}

// DeleteExpiredPasswordResets removes grants that expired on or before reference.
func (r *PasswordResetRepository) DeleteExpiredPasswordResets(ctx context.Context, reference time.Time) error {
	_, err := r.helper.Exec(ctx, `DELETE FROM password_resets WHERE expires_at <= ?`, formatTime(reference))
	return r.mapper.MapError(err)
}
