package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/card-exchange/internal/apperror"
	"github.com/sakif/card-exchange/internal/model"
	"github.com/sakif/card-exchange/internal/repository"
)

type UserDB struct {
	conn *sql.DB
}

// Compile-time check that *UserDB implements repository.UserRepository.
var _ repository.UserRepository = (*UserDB)(nil)

const userColumns = `id, email, password_hash, google_id, is_admin, created_at, updated_at`

// Create inserts a new user. Emails are stored lowercased so the UNIQUE
// constraint catches "A@x.com" vs "a@x.com" as the same address.
// A duplicate email surfaces as apperror.ErrConflict, distinguishable
// from NotFound and from generic I/O failures.
func (db *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, google_id, is_admin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.GoogleID,
		user.IsAdmin,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateEmail(user.Email)
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.scanUser(
		db.conn.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = ?`, id),
		id,
	)
}

// GetByEmail retrieves a user by email (case-insensitive).
// Returns apperror.ErrNotFound for unknown addresses — the auth service
// translates that into InvalidCredentials so login responses don't leak
// which emails are registered.
func (db *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return db.scanUser(
		db.conn.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = ?`, email),
		email,
	)
}

// UpsertGoogle implements find-or-create for the OAuth callback, keyed
// by email.
//
// Three cases:
//   - no account with this email → INSERT a new one (no password hash)
//   - account exists with this google_id already → reuse it
//   - account exists from password registration → attach the google_id
//
// After the call, user carries the canonical account row.
func (db *UserDB) UpsertGoogle(ctx context.Context, user *model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	existing, err := db.GetByEmail(ctx, user.Email)
	switch {
	case err == nil:
		// Account exists — attach the Google identity if it isn't
		// there yet, and hand the stored row back to the caller.
		if existing.GoogleID != user.GoogleID {
			existing.GoogleID = user.GoogleID
			existing.UpdatedAt = time.Now()
			_, err = db.conn.ExecContext(ctx,
				`UPDATE users SET google_id = ?, updated_at = ? WHERE id = ?`,
				existing.GoogleID, existing.UpdatedAt, existing.ID,
			)
			if err != nil {
				return fmt.Errorf("sqlite: attaching google identity to user %s: %w", existing.ID, err)
			}
		}
		*user = *existing
		return nil

	case errors.Is(err, apperror.ErrNotFound):
		return db.Create(ctx, user)

	default:
		return err
	}
}

// SetAdminByEmail grants (or revokes) the administrator flag. There is
// no HTTP endpoint for this; operators list admin addresses in the
// environment and the server applies them at startup.
func (db *UserDB) SetAdminByEmail(ctx context.Context, email string, isAdmin bool) error {
	email = strings.ToLower(strings.TrimSpace(email))

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET is_admin = ?, updated_at = ? WHERE email = ?`,
		isAdmin, time.Now(), email,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting admin flag for %s: %w", email, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: setting admin flag for %s: %w", email, err)
	}
	if n == 0 {
		return apperror.NotFound("user", email)
	}
	return nil
}

func (db *UserDB) scanUser(row *sql.Row, key string) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.GoogleID,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", key, err)
	}
	return &u, nil
}
