package sqlite

import (
	"context"
	"fmt"
)

// Store bundles the repositories that share one connection pool.
type Store struct {
	Pool           *ConnectionPool
	Users          *UserRepository
	Sessions       *SessionRepository
	PasswordResets *PasswordResetRepository
	Desks          *DeskRepository
	Holidays       *HolidayRepository
	Bookings       *BookingRepository
}

// Open connects to the database described by config and applies migrations.
func Open(ctx context.Context, config Config) (*Store, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if err := Migrate(pool); err != nil {
		pool.Close()
		return nil, err
	}
	return NewStore(pool), nil
}

// NewStore wires repositories over an existing pool without migrating.
func NewStore(pool *ConnectionPool) *Store {
	return &Store{
		Pool:           pool,
		Users:          NewUserRepository(pool),
		Sessions:       NewSessionRepository(pool),
		PasswordResets: NewPasswordResetRepository(pool),
		Desks:          NewDeskRepository(pool),
		Holidays:       NewHolidayRepository(pool),
		Bookings:       NewBookingRepository(pool),
	}
}

// Close releases the pool.
func (s *Store) Close() error {
	if s == nil || s.Pool == nil {
		return nil
	}
	return s.Pool.Close()
}
