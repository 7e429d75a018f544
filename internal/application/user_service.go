package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// UserService orchestrates profile edits and account administration.
type UserService struct {
	users    UserRepository
	sessions SessionRepository
	now      func() time.Time
	logger   *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, sessions SessionRepository, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, sessions, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a logger.
func NewUserServiceWithLogger(users UserRepository, sessions SessionRepository, now func() time.Time, logger *slog.Logger) *UserService {
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, sessions: sessions, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// ListUsers returns every account ordered by display name for administrators.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) (users []User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	logger := s.loggerWith(ctx, "ListUsers", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list users", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	users, err = s.users.ListUsers(ctx)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	sort.SliceStable(users, func(i, j int) bool {
		return strings.ToLower(users[i].DisplayName) < strings.ToLower(users[j].DisplayName)
	})
	return users, nil
}

// GetProfile returns the principal's own account.
func (s *UserService) GetProfile(ctx context.Context, principal Principal) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if principal.UserID == "" {
		return User{}, ErrUnauthorized
	}
	user, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return user, nil
}

// UpdateProfile changes the principal's display name and team.
func (s *UserService) UpdateProfile(ctx context.Context, params UpdateProfileParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateProfile", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update profile", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile updated")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}
	input := normalizeUserInput(params.Input)
	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}

	user, err = s.users.GetUser(ctx, params.Principal.UserID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	user.DisplayName = input.DisplayName
	user.Team = input.Team
	user.UpdatedAt = s.now()

	user, err = s.users.UpdateUser(ctx, user)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// UpdateUser lets administrators edit another account, including role and
// disabled flag. Disabling an account signs it out everywhere.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUser",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("is_admin", user.IsAdmin, "disabled", user.Disabled).InfoContext(ctx, "user updated")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	input := normalizeUserInput(params.Input)
	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var existing User
	existing, err = s.users.GetUser(ctx, strings.TrimSpace(params.UserID))
	if err != nil {
		err = mapRepoError(err)
		return
	}

	losesAdmin := isActiveAdmin(existing) && (!params.IsAdmin || params.Disabled)
	if losesAdmin {
		if err = s.ensureAnotherAdmin(ctx, existing.ID); err != nil {
			return
		}
	}

	updated := existing
	updated.DisplayName = input.DisplayName
	updated.Team = input.Team
	updated.IsAdmin = params.IsAdmin
	updated.Disabled = params.Disabled
	updated.UpdatedAt = s.now()

	user, err = s.users.UpdateUser(ctx, updated)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if updated.Disabled && !existing.Disabled && s.sessions != nil {
		if err = s.sessions.RevokeUserSessions(ctx, updated.ID, updated.UpdatedAt); err != nil {
			err = mapRepoError(err)
			return
		}
	}
	return
}

// DeleteUser removes an account for administrators. Bookings keep the
// denormalized display name.
func (s *UserService) DeleteUser(ctx context.Context, params DeleteUserParams) (err error) {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}

	userID := strings.TrimSpace(params.UserID)
	logger := s.loggerWith(ctx, "DeleteUser",
		"principal_id", params.Principal.UserID,
		"user_id", userID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user deleted")
	}()

	if !params.Principal.IsAdmin {
		return ErrUnauthorized
	}

	existing, getErr := s.users.GetUser(ctx, userID)
	if getErr != nil {
		return mapRepoError(getErr)
	}
	if isActiveAdmin(existing) {
		if err = s.ensureAnotherAdmin(ctx, existing.ID); err != nil {
			return err
		}
	}
	if err = s.users.DeleteUser(ctx, userID); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// ensureAnotherAdmin fails with ErrLastAdmin when excludeID is the only enabled administrator.
func (s *UserService) ensureAnotherAdmin(ctx context.Context, excludeID string) error {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return mapRepoError(err)
	}
	for _, u := range users {
		if u.ID != excludeID && isActiveAdmin(u) {
			return nil
		}
	}
	return ErrLastAdmin
}

func isActiveAdmin(u User) bool {
	return u.IsAdmin && !u.Disabled
}

func normalizeUserInput(input UserInput) UserInput {
	return UserInput{
		DisplayName: sanitizeText(input.DisplayName),
		Team:        sanitizeText(input.Team),
	}
}
