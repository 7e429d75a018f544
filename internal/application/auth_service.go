package application

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/seatserve/internal/notify"
	"github.com/example/seatserve/internal/persistence"
)

// DefaultAllowedEmailDomain restricts self-service signup.
const DefaultAllowedEmailDomain = "@t-systems.com"

const defaultResetTTL = time.Hour

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// PasswordHasher derives a storable hash from a password.
type PasswordHasher func(password string) (string, error)

// AuthConfig captures the tunables and injectable collaborators of AuthService.
// Zero values select production defaults.
type AuthConfig struct {
	AllowedEmailDomain string
	SessionTTL         time.Duration
	ResetTTL           time.Duration
	AppURL             string
	// TokenSecret keys the digest under which session and reset tokens are stored.
	TokenSecret    []byte
	VerifyPassword PasswordVerifier
	HashPassword   PasswordHasher
	// NeedsRehash flags stored hashes to upgrade on the next successful login.
	NeedsRehash    func(hash string) bool
	TokenGenerator func() string
	IDGenerator    func() string
	Now            func() time.Time
}

// AuthService coordinates signup, login, sessions and password resets.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionRepository
	resets         PasswordResetRepository
	mailer         notify.Sender
	domain         string
	sessionTTL     time.Duration
	resetTTL       time.Duration
	appURL         string
	secret         []byte
	verifyPassword PasswordVerifier
	hashPassword   PasswordHasher
	needsRehash    func(hash string) bool
	tokenGenerator func() string
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, sessions SessionRepository, resets PasswordResetRepository, mailer notify.Sender, cfg AuthConfig) *AuthService {
	return NewAuthServiceWithLogger(credentials, sessions, resets, mailer, cfg, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialStore, sessions SessionRepository, resets PasswordResetRepository, mailer notify.Sender, cfg AuthConfig, logger *slog.Logger) *AuthService {
	if cfg.AllowedEmailDomain == "" {
		cfg.AllowedEmailDomain = DefaultAllowedEmailDomain
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = defaultResetTTL
	}
	if cfg.VerifyPassword == nil {
		cfg.VerifyPassword = VerifyPassword
	}
	if cfg.HashPassword == nil {
		cfg.HashPassword = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
		if cfg.NeedsRehash == nil {
			cfg.NeedsRehash = func(hash string) bool {
				return PasswordNeedsRehash(hash, DefaultArgon2idParams)
			}
		}
	}
	if cfg.TokenGenerator == nil {
		cfg.TokenGenerator = RandomToken
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = cfg.TokenGenerator
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &AuthService{
		credentials:    credentials,
		sessions:       sessions,
		resets:         resets,
		mailer:         mailer,
		domain:         strings.ToLower(strings.TrimSpace(cfg.AllowedEmailDomain)),
		sessionTTL:     cfg.SessionTTL,
		resetTTL:       cfg.ResetTTL,
		appURL:         cfg.AppURL,
		secret:         cfg.TokenSecret,
		verifyPassword: cfg.VerifyPassword,
		hashPassword:   cfg.HashPassword,
		needsRehash:    cfg.NeedsRehash,
		tokenGenerator: cfg.TokenGenerator,
		idGenerator:    cfg.IDGenerator,
		now:            cfg.Now,
		logger:         defaultLogger(logger),
	}
}

// RandomToken returns 32 random bytes encoded as unpadded URL-safe base64.
func RandomToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("application: read random token: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// tokenDigest is the form under which bearer tokens are persisted.
func (s *AuthService) tokenDigest(token string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Signup registers an account restricted to the allowed email domain and
// signs it in. The first account ever created becomes an administrator.
func (s *AuthService) Signup(ctx context.Context, params SignupParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.DisplayName = sanitizeText(params.DisplayName)
	params.Team = sanitizeText(params.Team)

	logger := s.loggerWith(ctx, "Signup", "email", params.Email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "signup failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.User.ID,
			"is_admin", result.User.IsAdmin,
		).InfoContext(ctx, "signup succeeded")
	}()

	if vErr := validateStruct(params); vErr.HasErrors() {
		err = vErr
		return
	}
	if s.domain != "" && !strings.HasSuffix(params.Email, s.domain) {
		err = ErrEmailDomain
		return
	}

	var count int
	count, err = s.credentials.CountUsers(ctx)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	var hash string
	hash, err = s.hashPassword(params.Password)
	if err != nil {
		return
	}

	now := s.now()
	creds := UserCredentials{
		User: User{
			ID:          s.idGenerator(),
			Email:       params.Email,
			DisplayName: params.DisplayName,
			Team:        params.Team,
			IsAdmin:     count == 0,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		PasswordHash: hash,
	}

	var user User
	user, err = s.credentials.CreateUser(ctx, creds)
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) || errors.Is(err, ErrAlreadyExists) {
			err = &ConflictError{Kind: ErrAlreadyExists, Message: "An account with this email already exists."}
			return
		}
		err = mapRepoError(err)
		return
	}

	var session Session
	session, err = s.issueSession(ctx, user.ID, params.Fingerprint)
	if err != nil {
		return
	}
	result = AuthenticateResult{User: user, Session: session}
	return
}

// CreateUser lets an administrator register an account restricted to the
// allowed email domain. No session is issued.
func (s *AuthService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.DisplayName = sanitizeText(params.DisplayName)
	params.Team = sanitizeText(params.Team)

	logger := s.loggerWith(ctx, "CreateUser", "principal_id", params.Principal.UserID, "email", params.Email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "create user failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID, "is_admin", user.IsAdmin).InfoContext(ctx, "user created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if vErr := validateStruct(params); vErr.HasErrors() {
		err = vErr
		return
	}
	if s.domain != "" && !strings.HasSuffix(params.Email, s.domain) {
		err = ErrEmailDomain
		return
	}

	password := params.Password
	if password == "" {
		password = s.tokenGenerator()
	}
	var hash string
	hash, err = s.hashPassword(password)
	if err != nil {
		return
	}

	now := s.now()
	user, err = s.credentials.CreateUser(ctx, UserCredentials{
		User: User{
			ID:          s.idGenerator(),
			Email:       params.Email,
			DisplayName: params.DisplayName,
			Team:        params.Team,
			IsAdmin:     params.IsAdmin,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) || errors.Is(err, ErrAlreadyExists) {
			err = &ConflictError{Kind: ErrAlreadyExists, Message: "An account with this email already exists."}
			return
		}
		err = mapRepoError(err)
		return
	}
	return user, nil
}

// Authenticate validates credentials and issues a new session token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	password := params.Password

	logger := s.loggerWith(ctx, "Authenticate",
		"email", email,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.User.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds UserCredentials
	creds, err = s.credentials.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		return
	}

	if err = s.verifyPassword(creds.PasswordHash, password); err != nil {
		err = ErrInvalidCredentials
		return
	}
	if creds.Disabled {
		err = ErrAccountDisabled
		return
	}
	s.upgradePasswordHash(ctx, logger, creds, password)

	var session Session
	session, err = s.issueSession(ctx, creds.User.ID, params.Fingerprint)
	if err != nil {
		return
	}
	result = AuthenticateResult{User: creds.User, Session: session}
	return
}

// upgradePasswordHash rewrites a hash produced with outdated settings. Login
// proceeds when the upgrade fails.
func (s *AuthService) upgradePasswordHash(ctx context.Context, logger *slog.Logger, creds UserCredentials, password string) {
	if s.needsRehash == nil || !s.needsRehash(creds.PasswordHash) {
		return
	}
	hash, err := s.hashPassword(password)
	if err == nil {
		err = s.credentials.UpdatePassword(ctx, creds.User.ID, hash, s.now())
	}
	if err != nil {
		logger.WarnContext(ctx, "password hash upgrade failed", "error", err, "user_id", creds.User.ID)
		return
	}
	logger.InfoContext(ctx, "password hash upgraded", "user_id", creds.User.ID)
}

// issueSession persists a new session and returns it carrying the raw token.
func (s *AuthService) issueSession(ctx context.Context, userID, fingerprint string) (Session, error) {
	now := s.now()
	token := s.tokenGenerator()
	session := Session{
		ID:          s.idGenerator(),
		UserID:      userID,
		Token:       s.tokenDigest(token),
		Fingerprint: strings.TrimSpace(fingerprint),
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.sessionTTL),
	}

	if s.sessions != nil {
		if err := s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
			return Session{}, err
		}
		persisted, err := s.sessions.CreateSession(ctx, session)
		if err != nil {
			return Session{}, mapRepoError(err)
		}
		session = persisted
	}
	session.Token = token
	return session, nil
}

// RefreshSession rotates an existing session token, extending its validity window.
func (s *AuthService) RefreshSession(ctx context.Context, params RefreshSessionParams) (result RefreshSessionResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	token := strings.TrimSpace(params.Token)
	logger := s.loggerWith(ctx, "RefreshSession",
		"token_provided", token != "",
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session refresh failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"session_id", result.Session.ID,
			"user_id", result.Session.UserID,
		).InfoContext(ctx, "session refreshed")
	}()

	if token == "" {
		err = ErrInvalidCredentials
		return
	}

	var session Session
	session, err = s.activeSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			err = ErrInvalidCredentials
		}
		return
	}

	now := s.now()
	newToken := s.tokenGenerator()
	session.Token = s.tokenDigest(newToken)
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(s.sessionTTL)
	if fp := strings.TrimSpace(params.Fingerprint); fp != "" {
		session.Fingerprint = fp
	}

	session, err = s.sessions.UpdateSession(ctx, session)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	session.Token = newToken

	result = RefreshSessionResult{Session: session}
	return
}

// RevokeSession invalidates an existing session token.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrInvalidCredentials
	}

	logger := s.loggerWith(ctx, "RevokeSession", "token_provided", trimmed != "")

	if _, err := s.sessions.RevokeSession(ctx, s.tokenDigest(trimmed), s.now()); err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			logger.ErrorContext(ctx, "failed to revoke session", "error", ErrInvalidCredentials, "error_kind", ErrorKind(ErrInvalidCredentials))
			return ErrInvalidCredentials
		}
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := s.sessions.DeleteExpiredSessions(ctx, s.now()); err != nil {
		logger.ErrorContext(ctx, "failed to prune expired sessions", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "session revoked")
	return nil
}

// ValidateSession verifies that the provided token corresponds to an active
// session of an enabled user and returns its principal.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("principal_id", principal.UserID).DebugContext(ctx, "session validated")
	}()

	if trimmed == "" {
		err = ErrInvalidCredentials
		return
	}

	var session Session
	session, err = s.activeSession(ctx, trimmed)
	if err != nil {
		return
	}

	var user User
	user, err = s.credentials.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}
	if user.Disabled {
		err = ErrAccountDisabled
		return
	}

	principal = Principal{UserID: user.ID, IsAdmin: user.IsAdmin}
	return
}

func (s *AuthService) activeSession(ctx context.Context, token string) (Session, error) {
	session, err := s.sessions.GetSession(ctx, s.tokenDigest(token))
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, err
	}
	now := s.now()
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		return Session{}, ErrSessionRevoked
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(now) {
		return Session{}, ErrSessionExpired
	}
	return session, nil
}

// ChangePassword replaces the principal's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, params ChangePasswordParams) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}

	logger := s.loggerWith(ctx, "ChangePassword", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "password change failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password changed")
	}()

	if params.Principal.UserID == "" {
		return ErrUnauthorized
	}
	if vErr := validateStruct(params); vErr.HasErrors() {
		return vErr
	}

	creds, getErr := s.credentials.GetUserCredentials(ctx, params.Principal.UserID)
	if getErr != nil {
		return mapRepoError(getErr)
	}
	if s.verifyPassword(creds.PasswordHash, params.CurrentPassword) != nil {
		return fieldError("current_password", "is incorrect")
	}

	hash, hashErr := s.hashPassword(params.NewPassword)
	if hashErr != nil {
		return hashErr
	}
	if err = s.credentials.UpdatePassword(ctx, creds.ID, hash, s.now()); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// RequestPasswordReset emails a one-time reset link. Unknown or disabled
// accounts and delivery failures are not reported to the caller, so the
// response never reveals whether an address is registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.resets == nil || s.mailer == nil {
		return fmt.Errorf("password reset not configured")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	logger := s.loggerWith(ctx, "RequestPasswordReset", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "password reset request failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if email == "" {
		return fieldError("email", "is required")
	}

	creds, getErr := s.credentials.GetUserCredentialsByEmail(ctx, email)
	if getErr != nil {
		if errors.Is(mapRepoError(getErr), ErrNotFound) {
			logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return getErr
	}
	if creds.Disabled {
		logger.InfoContext(ctx, "password reset requested for disabled account")
		return nil
	}

	now := s.now()
	token := s.tokenGenerator()
	reset := PasswordReset{
		ID:        s.idGenerator(),
		UserID:    creds.ID,
		TokenHash: s.tokenDigest(token),
		ExpiresAt: now.Add(s.resetTTL),
		CreatedAt: now,
	}
	if err = s.resets.CreatePasswordReset(ctx, reset); err != nil {
		return mapRepoError(err)
	}

	msg, renderErr := notify.PasswordResetMessage(creds.Email, creds.DisplayName, notify.ResetLink(s.appURL, token), s.resetTTL)
	if renderErr != nil {
		return renderErr
	}
	if sendErr := s.mailer.Send(ctx, msg); sendErr != nil {
		logger.ErrorContext(ctx, "password reset email not delivered", "error", sendErr, "user_id", creds.ID)
		return nil
	}
	logger.With("user_id", creds.ID).InfoContext(ctx, "password reset email sent")
	return nil
}

// ResetPassword consumes a reset token, sets the new password and signs the
// account out everywhere.
func (s *AuthService) ResetPassword(ctx context.Context, params ResetPasswordParams) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.resets == nil {
		return fmt.Errorf("password reset not configured")
	}

	logger := s.loggerWith(ctx, "ResetPassword")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "password reset failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password reset completed")
	}()

	token := strings.TrimSpace(params.Token)
	if token == "" {
		return ErrInvalidCredentials
	}
	if vErr := validateStruct(params); vErr.HasErrors() {
		return vErr
	}

	reset, getErr := s.resets.GetPasswordResetByTokenHash(ctx, s.tokenDigest(token))
	if getErr != nil {
		if errors.Is(mapRepoError(getErr), ErrNotFound) {
			return ErrInvalidCredentials
		}
		return getErr
	}
	now := s.now()
	if reset.UsedAt != nil || !reset.ExpiresAt.After(now) {
		return ErrInvalidCredentials
	}
	if err = s.resets.MarkPasswordResetUsed(ctx, reset.ID, now); err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	hash, hashErr := s.hashPassword(params.NewPassword)
	if hashErr != nil {
		return hashErr
	}
	if err = s.credentials.UpdatePassword(ctx, reset.UserID, hash, now); err != nil {
		return mapRepoError(err)
	}
	if s.sessions != nil {
		if err = s.sessions.RevokeUserSessions(ctx, reset.UserID, now); err != nil {
			return mapRepoError(err)
		}
	}
	return nil
}

// PruneExpired deletes expired sessions and reset grants.
func (s *AuthService) PruneExpired(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	now := s.now()
	logger := s.loggerWith(ctx, "PruneExpired")
	if s.sessions != nil {
		if err := s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
			logger.ErrorContext(ctx, "failed to prune sessions", "error", err, "error_kind", ErrorKind(err))
			return err
		}
	}
	if s.resets != nil {
		if err := s.resets.DeleteExpiredPasswordResets(ctx, now); err != nil {
			logger.ErrorContext(ctx, "failed to prune password resets", "error", err, "error_kind", ErrorKind(err))
			return err
		}
	}
	logger.InfoContext(ctx, "expired credentials pruned")
	return nil
}
