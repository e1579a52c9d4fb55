package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/card-exchange/internal/apperror"
	"github.com/sakif/card-exchange/internal/repository"
)

type SessionDB struct {
	conn *sql.DB
}

// Compile-time check that *SessionDB implements repository.SessionRepository.
var _ repository.SessionRepository = (*SessionDB)(nil)

// Create stores a new login session. The caller (auth.SessionStore)
// generates the ID and expiry; this layer only persists them.
func (db *SessionDB) Create(ctx context.Context, session *repository.Session) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at)
		 VALUES (?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting session: %w", err)
	}
	return nil
}

// GetByID returns the session, treating expired rows the same as
// missing ones: NotFound. Expired rows are deleted opportunistically on
// read rather than by a background sweeper — a dead session row costs
// nothing until someone presents its token.
func (db *SessionDB) GetByID(ctx context.Context, id string) (*repository.Session, error) {
	var s repository.Session
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("sqlite: getting session %s: %w", id, err)
	}

	if s.ExpiresAt <= time.Now().Unix() {
		// Best-effort cleanup; the NotFound stands even if the delete fails.
		_, _ = db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
		return nil, apperror.NotFound("session", id)
	}

	return &s, nil
}

// Delete revokes a session. Deleting an already-deleted session is a
// no-op success — logout must be idempotent.
func (db *SessionDB) Delete(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting session %s: %w", id, err)
	}
	return nil
}
