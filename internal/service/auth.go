// Package service contains the business logic layer: validation,
// permissions, and orchestration, with no knowledge of HTTP.
//
// THE DEPENDENCY CHAIN:
//
//	Handler (HTTP) → Service (rules) → Repository (DB)
//
// Services accept primitives and return domain errors from apperror;
// the handler layer translates those to status codes and redirects.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/card-exchange/internal/apperror"
	"github.com/sakif/card-exchange/internal/auth"
	"github.com/sakif/card-exchange/internal/model"
	"github.com/sakif/card-exchange/internal/repository"
)

const minPasswordLength = 8

// AuthService handles registration, both login paths, and logout.
type AuthService struct {
	users     repository.UserRepository
	sessions  *auth.SessionStore
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	sessions *auth.SessionStore,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and the session token issued for them, so
// the handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a password account. A duplicate email surfaces as
// the Conflict error the repository raised — first registration wins,
// nothing is overwritten. Registration does not log the user in; the
// original flow sends freshly registered users to the login page.
func (s *AuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.ValidationFailed("email", "email address is not valid")
	}
	if len(password) < minPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// LoginPassword authenticates with email + password and establishes a
// session.
//
// Unknown email, OAuth-only account, and wrong password all return the
// same InvalidCredentials — the response must not reveal which emails
// have accounts. No session exists until the password check passes.
func (s *AuthService) LoginPassword(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
	}

	if user.PasswordHash == "" {
		// Google-only account; there is no password to check.
		return nil, apperror.InvalidCredentials()
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.InvalidCredentials()
	}

	token, err := s.sessions.Establish(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: establishing session for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("method", "password"),
	)

	return &AuthResult{User: user, Token: token}, nil
}

// LoginGoogle completes the external-identity path: the handler has
// already exchanged the OAuth code for a verified GoogleUser; this
// find-or-creates the local account by email and establishes a session.
func (s *AuthService) LoginGoogle(ctx context.Context, gUser *auth.GoogleUser) (*AuthResult, error) {
	if gUser == nil {
		return nil, fmt.Errorf("service/auth: Google user must not be nil")
	}

	user := &model.User{
		Email:    gUser.Email,
		GoogleID: gUser.Sub,
	}
	if err := s.users.UpsertGoogle(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (sub=%s): %w", gUser.Sub, err)
	}

	token, err := s.sessions.Establish(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: establishing session for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("method", "google"),
	)

	return &AuthResult{User: user, Token: token}, nil
}

// Logout revokes the session behind the given token. Safe to call with
// a garbage or already-revoked token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// GetUserByID returns the user for the given internal ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetByID(ctx, id)
}

// IsAdmin reports whether the user holds the administrator flag.
// Satisfies auth.AdminChecker for the admin route middleware.
func (s *AuthService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}
