package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"

	"github.com/example/attendance-engine/internal/persistence"
)

// UserService mirrors identity system users into the engine.
type UserService struct {
	serviceBase
}

// NewUserService wires dependencies for the user service.
func NewUserService(deps Dependencies) *UserService {
	return &UserService{serviceBase: newServiceBase(deps)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// RegisterUser stores a new user. Granting administrator rights requires an
// administrator, except for the very first user.
func (s *UserService) RegisterUser(ctx context.Context, params RegisterUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RegisterUser", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID, "is_admin", user.IsAdmin).InfoContext(ctx, "user registered")
	}()

	normalized := normalizeUserInput(params.Input)
	vErr := validateUserInput(normalized)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	err = s.write(ctx, "register user", func(ctx context.Context, tx persistence.Tx) error {
		if normalized.IsAdmin && !params.Principal.IsAdmin {
			existing, err := tx.Users().ListUsers(ctx)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				return ErrUnauthorized
			}
		}

		now := s.now()
		user = User{
			ID:          s.idGenerator(),
			Email:       normalized.Email,
			DisplayName: normalized.DisplayName,
			IsAdmin:     normalized.IsAdmin,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		err := tx.Users().CreateUser(ctx, user)
		if errors.Is(err, persistence.ErrDuplicate) {
			return ErrAlreadyExists
		}
		return err
	})
	if err != nil {
		user = User{}
	}
	return
}

// GetUser returns a user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (User, error) {
	var user User
	err := s.read(ctx, "get user", func(ctx context.Context, tx persistence.Tx) error {
		var err error
		user, err = getUser(ctx, tx, id)
		return err
	})
	return user, err
}

// SetAdmin changes another user's administrator flag.
func (s *UserService) SetAdmin(ctx context.Context, params SetAdminParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SetAdmin",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
		"is_admin", params.IsAdmin,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update admin flag", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "admin flag updated")
	}()

	if err = RequireAdmin(params.Principal); err != nil {
		return
	}
	if params.Principal.UserID == params.UserID {
		vErr := &ValidationError{}
		vErr.add("user_id", "administrators cannot change their own flag")
		err = vErr
		return
	}

	err = s.write(ctx, "set admin", func(ctx context.Context, tx persistence.Tx) error {
		var err error
		user, err = getUser(ctx, tx, params.UserID)
		if err != nil {
			return err
		}
		user.IsAdmin = params.IsAdmin
		user.UpdatedAt = s.now()
		return tx.Users().UpdateUser(ctx, user)
	})
	if err != nil {
		user = User{}
	}
	return
}

// DeleteUser removes a user together with their records, excuses and requests.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) (err error) {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteUser", "principal_id", principal.UserID, "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user deleted")
	}()

	if err = RequireAdmin(principal); err != nil {
		return
	}

	err = s.write(ctx, "delete user", func(ctx context.Context, tx persistence.Tx) error {
		err := tx.Users().DeleteUser(ctx, userID)
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	})
	return
}

// ListUsers returns all users for administrators, ordered by display name.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if err := RequireAdmin(principal); err != nil {
		return nil, err
	}

	var users []User
	err := s.read(ctx, "list users", func(ctx context.Context, tx persistence.Tx) error {
		var err error
		users, err = tx.Users().ListUsers(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(users, func(i, j int) bool {
		if strings.EqualFold(users[i].DisplayName, users[j].DisplayName) {
			return users[i].ID < users[j].ID
		}
		return strings.ToLower(users[i].DisplayName) < strings.ToLower(users[j].DisplayName)
	})
	return users, nil
}

func normalizeUserInput(input UserInput) UserInput {
	return UserInput{
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		DisplayName: strings.TrimSpace(input.DisplayName),
		IsAdmin:     input.IsAdmin,
	}
}

func validateUserInput(input UserInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "email is invalid")
	}

	if input.DisplayName == "" {
		vErr.add("display_name", "display name is required")
	}

	return vErr
}
