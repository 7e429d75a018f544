package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/seatserve/internal/persistence"
)

var testReference = time.Date(2024, time.March, 11, 3, 30, 0, 0, time.UTC)

func setupStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "seatserve.db")
	store, err := Open(context.Background(), DefaultConfig(path))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustCreateUser(t *testing.T, store *Store, id, email string) persistence.User {
	t.Helper()
	user := persistence.User{
		ID:           id,
		Email:        email,
		DisplayName:  "User " + id,
		PasswordHash: "hash-" + id,
		CreatedAt:    testReference,
		UpdatedAt:    testReference,
	}
	if err := store.Users.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", id, err)
	}
	return user
}

func mustCreateDesk(t *testing.T, store *Store, id string) {
	t.Helper()
	if err := store.Desks.CreateDesk(context.Background(), persistence.Desk{ID: id, CreatedAt: testReference}); err != nil {
		t.Fatalf("CreateDesk(%s) failed: %v", id, err)
	}
}
