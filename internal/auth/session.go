package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/card-exchange/internal/apperror"
	"github.com/sakif/card-exchange/internal/repository"
)

// SessionStore binds session tokens to user identities.
//
// This is the explicit session abstraction the handlers are injected
// with — there is no process-wide session singleton. Establish creates
// the server-side row and returns the signed cookie value; Resolve goes
// the other way on every authenticated request; Revoke is logout.
type SessionStore struct {
	sessions repository.SessionRepository
	tokens   *TokenService
	ttl      time.Duration
}

// NewSessionStore creates a SessionStore with the default session TTL.
func NewSessionStore(sessions repository.SessionRepository, tokens *TokenService) *SessionStore {
	return &SessionStore{
		sessions: sessions,
		tokens:   tokens,
		ttl:      SessionTTL,
	}
}

// Establish creates a session for the user and returns the signed token
// to hand to the browser as a cookie.
func (s *SessionStore) Establish(ctx context.Context, userID string) (string, error) {
	now := time.Now()
	session := &repository.Session{
		ID:        xid.New().String(),
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl).Unix(),
		CreatedAt: now.Unix(),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("auth: creating session for user %s: %w", userID, err)
	}

	token, err := s.tokens.Generate(session.ID, s.ttl)
	if err != nil {
		return "", err
	}

	return token, nil
}

// Resolve validates a token and returns the user ID its session is
// bound to. Any failure — bad signature, expired token, revoked or
// expired session row — comes back as apperror.ErrUnauthenticated; the
// caller doesn't need to distinguish why a session is dead.
func (s *SessionStore) Resolve(ctx context.Context, token string) (string, error) {
	sessionID, err := s.tokens.Validate(token)
	if err != nil {
		return "", apperror.Unauthenticated("invalid session")
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.Unauthenticated("session expired or revoked")
		}
		return "", fmt.Errorf("auth: resolving session: %w", err)
	}

	return session.UserID, nil
}

// Revoke deletes the session behind a token. Unparseable tokens are
// ignored — logout with a garbage cookie is still a successful logout.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	sessionID, err := s.tokens.Validate(token)
	if err != nil {
		return nil
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("auth: revoking session: %w", err)
	}
	return nil
}
