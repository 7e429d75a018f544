package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/seatserve/internal/persistence"
)

func TestSessionRepository_Lifecycle(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	mustCreateUser(t, store, "user-1", "asha@t-systems.com")

	created, err := store.Sessions.CreateSession(ctx, persistence.Session{
		ID:        "session-1",
		UserID:    "user-1",
		Token:     " digest-1 ",
		ExpiresAt: testReference.Add(24 * time.Hour),
		CreatedAt: testReference,
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if created.Token != "digest-1" {
		t.Fatalf("token not normalized: %q", created.Token)
	}

	fetched, err := store.Sessions.GetSession(ctx, "digest-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fetched.UserID != "user-1" || fetched.RevokedAt != nil {
		t.Fatalf("unexpected session: %#v", fetched)
	}

	fetched.ExpiresAt = testReference.Add(48 * time.Hour)
	fetched.UserID = "someone-else"
	updated, err := store.Sessions.UpdateSession(ctx, fetched)
	if err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}
	if updated.UserID != "user-1" || !updated.ExpiresAt.Equal(testReference.Add(48*time.Hour)) {
		t.Fatalf("unexpected updated session: %#v", updated)
	}

	revoked, err := store.Sessions.RevokeSession(ctx, "digest-1", testReference.Add(time.Hour))
	if err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(testReference.Add(time.Hour)) {
		t.Fatalf("revocation not stored: %#v", revoked)
	}

	if _, err := store.Sessions.RevokeSession(ctx, "missing", testReference); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_RevokeUserSessionsAndPrune(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	mustCreateUser(t, store, "user-1", "asha@t-systems.com")

	for i, token := range []string{"t1", "t2"} {
		_, err := store.Sessions.CreateSession(ctx, persistence.Session{
			ID:        "session-" + token,
			UserID:    "user-1",
			Token:     token,
			ExpiresAt: testReference.Add(time.Duration(i+1) * time.Hour),
		})
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	if err := store.Sessions.RevokeUserSessions(ctx, "user-1", testReference); err != nil {
		t.Fatalf("RevokeUserSessions failed: %v", err)
	}
	for _, token := range []string{"t1", "t2"} {
		s, err := store.Sessions.GetSession(ctx, token)
		if err != nil || s.RevokedAt == nil {
			t.Fatalf("session %s not revoked: %#v, %v", token, s, err)
		}
	}

	if err := store.Sessions.DeleteExpiredSessions(ctx, testReference.Add(time.Hour)); err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if _, err := store.Sessions.GetSession(ctx, "t1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected t1 pruned, got %v", err)
	}
	if _, err := store.Sessions.GetSession(ctx, "t2"); err != nil {
		t.Fatalf("t2 should survive: %v", err)
	}
}

func TestSessionRepository_CascadeOnUserDelete(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	mustCreateUser(t, store, "user-1", "asha@t-systems.com")

	_, err := store.Sessions.CreateSession(ctx, persistence.Session{ID: "s1", UserID: "user-1", Token: "tok", ExpiresAt: testReference.Add(time.Hour)})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := store.Users.DeleteUser(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := store.Sessions.GetSession(ctx, "tok"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected session removed with user, got %v", err)
	}
}

func TestPasswordResetRepository(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	mustCreateUser(t, store, "user-1", "asha@t-systems.com")

	reset := persistence.PasswordReset{
		ID:        "reset-1",
		UserID:    "user-1",
		TokenHash: "digest",
		ExpiresAt: testReference.Add(time.Hour),
		CreatedAt: testReference,
	}
	if err := store.PasswordResets.CreatePasswordReset(ctx, reset); err != nil {
		t.Fatalf("CreatePasswordReset failed: %v", err)
	}

	fetched, err := store.PasswordResets.GetPasswordResetByTokenHash(ctx, "digest")
	if err != nil {
		t.Fatalf("GetPasswordResetByTokenHash failed: %v", err)
	}
	if fetched.UserID != "user-1" || fetched.UsedAt != nil {
		t.Fatalf("unexpected reset: %#v", fetched)
	}

	if err := store.PasswordResets.MarkPasswordResetUsed(ctx, "reset-1", testReference); err != nil {
		t.Fatalf("MarkPasswordResetUsed failed: %v", err)
	}
	if err := store.PasswordResets.MarkPasswordResetUsed(ctx, "reset-1", testReference); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("second use must fail, got %v", err)
	}

	if err := store.PasswordResets.DeleteExpiredPasswordResets(ctx, testReference.Add(2*time.Hour)); err != nil {
		t.Fatalf("DeleteExpiredPasswordResets failed: %v", err)
	}
	if _, err := store.PasswordResets.GetPasswordResetByTokenHash(ctx, "digest"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected pruned reset, got %v", err)
	}
}
