package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func fakeHash(password string) (string, error) { return "hash:" + password, nil }

func fakeVerify(hash, password string) error {
	if hash != "hash:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type authHarness struct {
	users    *userStoreStub
	sessions *sessionRepositoryStub
	resets   *passwordResetRepositoryStub
	mailer   *mailerStub
	now      time.Time
	svc      *AuthService
}

func newAuthHarness(users ...User) *authHarness {
	h := &authHarness{
		users:    newUserStoreStub(users...),
		sessions: newSessionRepositoryStub(),
		resets:   newPasswordResetRepositoryStub(),
		mailer:   &mailerStub{},
		now:      mondayMorning,
	}
	h.svc = NewAuthService(h.users, h.sessions, h.resets, h.mailer, AuthConfig{
		SessionTTL:     time.Hour,
		AppURL:         "https://seats.example.com/",
		TokenSecret:    []byte("secret"),
		VerifyPassword: fakeVerify,
		HashPassword:   fakeHash,
		TokenGenerator: sequenceIDs("token"),
		IDGenerator:    sequenceIDs("id"),
		Now:            func() time.Time { return h.now },
	})
	return h
}

func TestAuthService_Signup(t *testing.T) {
	t.Parallel()

	t.Run("first account becomes administrator", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness()
		ctx := context.Background()

		first, err := h.svc.Signup(ctx, SignupParams{Email: " Asha@T-Systems.com ", Password: "password1", DisplayName: "Asha"})
		if err != nil {
			t.Fatalf("Signup failed: %v", err)
		}
		if !first.User.IsAdmin || first.User.Email != "asha@t-systems.com" {
			t.Fatalf("unexpected first user %#v", first.User)
		}
		if first.Session.Token != "token-1" {
			t.Fatalf("expected raw token on issued session, got %q", first.Session.Token)
		}
		stored := h.sessions.sessionsByID[first.Session.ID]
		if stored.Token == "token-1" || stored.Token != h.svc.tokenDigest("token-1") {
			t.Fatalf("expected token digest at rest, got %q", stored.Token)
		}

		second, err := h.svc.Signup(ctx, SignupParams{Email: "bilal@t-systems.com", Password: "password2", DisplayName: "Bilal"})
		if err != nil {
			t.Fatalf("second Signup failed: %v", err)
		}
		if second.User.IsAdmin {
			t.Fatalf("later accounts must not be administrators")
		}
	})

	t.Run("restricts the email domain", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness()
		_, err := h.svc.Signup(context.Background(), SignupParams{Email: "asha@gmail.com", Password: "password1", DisplayName: "Asha"})
		if !errors.Is(err, ErrEmailDomain) {
			t.Fatalf("expected ErrEmailDomain, got %v", err)
		}
	})

	t.Run("rejects duplicate emails", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness(User{ID: "asha", Email: "asha@t-systems.com", DisplayName: "Asha"})
		_, err := h.svc.Signup(context.Background(), SignupParams{Email: "ASHA@t-systems.com", Password: "password1", DisplayName: "Asha"})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("validates fields", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness()
		_, err := h.svc.Signup(context.Background(), SignupParams{Email: "asha@t-systems.com", Password: "short"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["password"] == "" || vErr.FieldErrors["display_name"] == "" {
			t.Fatalf("expected password and display_name errors, got %v", err)
		}
	})
}

func TestAuthService_CreateUser(t *testing.T) {
	t.Parallel()

	admin := Principal{UserID: "asha", IsAdmin: true}

	t.Run("administrator adds an account without signing it in", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness(User{ID: "asha", Email: "asha@t-systems.com", IsAdmin: true})

		user, err := h.svc.CreateUser(context.Background(), CreateUserParams{
			Principal:   admin,
			Email:       " Ravi@T-Systems.com ",
			Password:    "password9",
			DisplayName: " Ravi ",
			Team:        "Platform",
			IsAdmin:     true,
		})
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if user.ID != "id-1" || user.Email != "ravi@t-systems.com" || user.DisplayName != "Ravi" || user.Team != "Platform" || !user.IsAdmin {
			t.Fatalf("unexpected user %#v", user)
		}
		if got := h.users.users["id-1"].PasswordHash; got != "hash:password9" {
			t.Fatalf("expected hashed password, got %q", got)
		}
		if len(h.sessions.sessionsByID) != 0 {
			t.Fatalf("expected no session, got %d", len(h.sessions.sessionsByID))
		}
	})

	t.Run("omitted password stores an unguessable hash", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness()

		user, err := h.svc.CreateUser(context.Background(), CreateUserParams{Principal: admin, Email: "ravi@t-systems.com", DisplayName: "Ravi"})
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if user.IsAdmin {
			t.Fatalf("role must default to user")
		}
		if got := h.users.users[user.ID].PasswordHash; got != "hash:token-1" {
			t.Fatalf("expected generated password hash, got %q", got)
		}
	})

	t.Run("requires an administrator", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness()
		_, err := h.svc.CreateUser(context.Background(), CreateUserParams{Principal: self("ravi"), Email: "meera@t-systems.com", DisplayName: "Meera"})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if len(h.users.users) != 0 {
			t.Fatalf("expected no account to be stored")
		}
	})

	t.Run("restricts the email domain", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness()
		_, err := h.svc.CreateUser(context.Background(), CreateUserParams{Principal: admin, Email: "ravi@gmail.com", DisplayName: "Ravi"})
		if !errors.Is(err, ErrEmailDomain) {
			t.Fatalf("expected ErrEmailDomain, got %v", err)
		}
	})

	t.Run("rejects duplicate emails", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness(User{ID: "ravi", Email: "ravi@t-systems.com", DisplayName: "Ravi"})
		_, err := h.svc.CreateUser(context.Background(), CreateUserParams{Principal: admin, Email: "RAVI@t-systems.com", DisplayName: "Ravi"})
		var conflict *ConflictError
		if !errors.As(err, &conflict) || !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists conflict, got %v", err)
		}
	})

	t.Run("validates fields", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness()
		_, err := h.svc.CreateUser(context.Background(), CreateUserParams{Principal: admin, Email: "not-an-email", Password: "short"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		for _, field := range []string{"email", "password", "display_name"} {
			if vErr.FieldErrors[field] == "" {
				t.Fatalf("expected %s error, got %#v", field, vErr.FieldErrors)
			}
		}
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("issues sessions for valid credentials", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness(User{ID: "asha", Email: "asha@t-systems.com"})

		result, err := h.svc.Authenticate(context.Background(), AuthenticateParams{Email: "Asha@t-systems.com", Password: "password", Fingerprint: " device "})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if result.Session.Token != "token-1" || result.Session.ID != "id-1" {
			t.Fatalf("unexpected session %#v", result.Session)
		}
		if result.Session.Fingerprint != "device" {
			t.Fatalf("expected fingerprint to be trimmed, got %q", result.Session.Fingerprint)
		}
		if !result.Session.ExpiresAt.Equal(mondayMorning.Add(time.Hour)) {
			t.Fatalf("unexpected expiry %v", result.Session.ExpiresAt)
		}
		if len(h.sessions.deleteCalls) != 1 || !h.sessions.deleteCalls[0].Equal(mondayMorning) {
			t.Fatalf("expected DeleteExpiredSessions to be called with now, got %#v", h.sessions.deleteCalls)
		}
	})

	t.Run("rejects disabled accounts", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness(User{ID: "asha", Email: "asha@t-systems.com", Disabled: true})
		_, err := h.svc.Authenticate(context.Background(), AuthenticateParams{Email: "asha@t-systems.com", Password: "password"})
		if !errors.Is(err, ErrAccountDisabled) {
			t.Fatalf("expected ErrAccountDisabled, got %v", err)
		}
	})

	t.Run("rejects invalid credentials with sentinel error", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness(User{ID: "asha", Email: "asha@t-systems.com"})
		ctx := context.Background()

		if _, err := h.svc.Authenticate(ctx, AuthenticateParams{Email: "asha@t-systems.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if _, err := h.svc.Authenticate(ctx, AuthenticateParams{Email: "nobody@t-systems.com", Password: "password"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
		}
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness(User{ID: "asha", Email: "asha@t-systems.com"})
		h.sessions.createErr = errBoom

		_, err := h.svc.Authenticate(context.Background(), AuthenticateParams{Email: "asha@t-systems.com", Password: "password"})
		if !errors.Is(err, errBoom) {
			t.Fatalf("expected error %v, got %v", errBoom, err)
		}
	})
}

func TestAuthService_Sessions(t *testing.T) {
	t.Parallel()

	login := func(t *testing.T, h *authHarness) AuthenticateResult {
		t.Helper()
		result, err := h.svc.Authenticate(context.Background(), AuthenticateParams{Email: "asha@t-systems.com", Password: "password"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		return result
	}

	t.Run("validates active sessions", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness(User{ID: "asha", Email: "asha@t-systems.com", IsAdmin: true})
		result := login(t, h)

		principal, err := h.svc.ValidateSession(context.Background(), result.Session.Token)
		if err != nil {
			t.Fatalf("ValidateSession failed: %v", err)
		}
		if principal.UserID != "asha" || !principal.IsAdmin {
			t.Fatalf("unexpected principal %#v", principal)
		}
		if _, err := h.svc.ValidateSession(context.Background(), h.svc.tokenDigest(result.Session.Token)); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("a stored digest must not work as a bearer token, got %v", err)
		}
	})

	t.Run("rejects expired sessions", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness(User{ID: "asha", Email: "asha@t-systems.com"})
		result := login(t, h)
		h.now = h.now.Add(2 * time.Hour)

		if _, err := h.svc.ValidateSession(context.Background(), result.Session.Token); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects sessions of disabled users", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness(User{ID: "asha", Email: "asha@t-systems.com"})
		result := login(t, h)
		creds := h.users.users["asha"]
		creds.Disabled = true
		h.users.users["asha"] = creds

		if _, err := h.svc.ValidateSession(context.Background(), result.Session.Token); !errors.Is(err, ErrAccountDisabled) {
			t.Fatalf("expected ErrAccountDisabled, got %v", err)
		}
	})

	t.Run("revoked sessions stop validating", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness(User{ID: "asha", Email: "asha@t-systems.com"})
		result := login(t, h)
		ctx := context.Background()

		if err := h.svc.RevokeSession(ctx, result.Session.Token); err != nil {
			t.Fatalf("RevokeSession failed: %v", err)
		}
		if _, err := h.svc.ValidateSession(ctx, result.Session.Token); !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
		if err := h.svc.RevokeSession(ctx, "unknown"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("refresh rotates the token", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness(User{ID: "asha", Email: "asha@t-systems.com"})
		result := login(t, h)
		ctx := context.Background()
		h.now = h.now.Add(30 * time.Minute)

		refreshed, err := h.svc.RefreshSession(ctx, RefreshSessionParams{Token: result.Session.Token, Fingerprint: "updated"})
		if err != nil {
			t.Fatalf("RefreshSession failed: %v", err)
		}
		if refreshed.Session.Token == result.Session.Token || refreshed.Session.Fingerprint != "updated" {
			t.Fatalf("expected rotated token and fingerprint, got %#v", refreshed.Session)
		}
		if !refreshed.Session.ExpiresAt.Equal(h.now.Add(time.Hour)) {
			t.Fatalf("expected extended expiry, got %v", refreshed.Session.ExpiresAt)
		}
		if _, err := h.svc.ValidateSession(ctx, result.Session.Token); err == nil {
			t.Fatalf("old token must stop working")
		}
		if _, err := h.svc.ValidateSession(ctx, refreshed.Session.Token); err != nil {
			t.Fatalf("new token rejected: %v", err)
		}
	})
}

func TestAuthService_ChangePassword(t *testing.T) {
	t.Parallel()

	h := newAuthHarness(User{ID: "asha", Email: "asha@t-systems.com"})
	ctx := context.Background()

	err := h.svc.ChangePassword(ctx, ChangePasswordParams{Principal: self("asha"), CurrentPassword: "wrong", NewPassword: "new-password"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["current_password"] == "" {
		t.Fatalf("expected current_password error, got %v", err)
	}

	if err := h.svc.ChangePassword(ctx, ChangePasswordParams{Principal: self("asha"), CurrentPassword: "password", NewPassword: "new-password"}); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if got := h.users.users["asha"].PasswordHash; got != "hash:new-password" {
		t.Fatalf("expected hash update, got %q", got)
	}
}

func TestAuthService_PasswordReset(t *testing.T) {
	t.Parallel()

	t.Run("unknown emails succeed silently", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness()
		if err := h.svc.RequestPasswordReset(context.Background(), "ghost@t-systems.com"); err != nil {
			t.Fatalf("expected silent success, got %v", err)
		}
		if len(h.mailer.sent) != 0 || len(h.resets.resets) != 0 {
			t.Fatalf("nothing should be sent or stored")
		}
	})

	t.Run("delivery failures are not reported", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness(User{ID: "asha", Email: "asha@t-systems.com", DisplayName: "Asha"})
		h.mailer.err = errBoom
		if err := h.svc.RequestPasswordReset(context.Background(), "asha@t-systems.com"); err != nil {
			t.Fatalf("expected silent success, got %v", err)
		}
	})

	t.Run("one-time reset flow", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness(User{ID: "asha", Email: "asha@t-systems.com", DisplayName: "Asha"})
		ctx := context.Background()
		session, err := h.svc.Authenticate(ctx, AuthenticateParams{Email: "asha@t-systems.com", Password: "password"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}

		if err := h.svc.RequestPasswordReset(ctx, " ASHA@t-systems.com "); err != nil {
			t.Fatalf("RequestPasswordReset failed: %v", err)
		}
		if len(h.mailer.sent) != 1 {
			t.Fatalf("expected one email, got %d", len(h.mailer.sent))
		}
		msg := h.mailer.sent[0]
		if msg.To != "asha@t-systems.com" || msg.Subject != "Reset Your SeatServe Password" {
			t.Fatalf("unexpected message %#v", msg)
		}
		const link = "https://seats.example.com/reset-password?token=token-2"
		if !strings.Contains(msg.Text, link) {
			t.Fatalf("expected reset link in body, got %q", msg.Text)
		}

		if err := h.svc.ResetPassword(ctx, ResetPasswordParams{Token: "token-2", NewPassword: "brand-new-pass"}); err != nil {
			t.Fatalf("ResetPassword failed: %v", err)
		}
		if got := h.users.users["asha"].PasswordHash; got != "hash:brand-new-pass" {
			t.Fatalf("expected password change, got %q", got)
		}
		if _, err := h.svc.ValidateSession(ctx, session.Session.Token); !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected existing sessions revoked, got %v", err)
		}
		if err := h.svc.ResetPassword(ctx, ResetPasswordParams{Token: "token-2", NewPassword: "another-pass"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected reused token to fail, got %v", err)
		}
	})

	t.Run("expired tokens are rejected", func(t *testing.T) {
		t.Parallel()
		h := newAuthHarness(User{ID: "asha", Email: "asha@t-systems.com"})
		ctx := context.Background()
		if err := h.svc.RequestPasswordReset(ctx, "asha@t-systems.com"); err != nil {
			t.Fatalf("RequestPasswordReset failed: %v", err)
		}
		h.now = h.now.Add(2 * time.Hour)
		if err := h.svc.ResetPassword(ctx, ResetPasswordParams{Token: "token-1", NewPassword: "brand-new-pass"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if err := h.svc.PruneExpired(ctx); err != nil {
			t.Fatalf("PruneExpired failed: %v", err)
		}
		if len(h.resets.resets) != 0 {
			t.Fatalf("expected expired reset to be pruned")
		}
	})
}
