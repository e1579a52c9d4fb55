// Package sqlite implements the repository interfaces using SQLite as
// the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go
// translation of SQLite — works everywhere Go works.
//
// The database carries all of the application's invariants that belong
// in storage: the UNIQUE constraint on users.email (duplicate
// registration fails instead of overwriting), and foreign keys from
// cards and comments back to their owners (a comment can never point at
// a card that was never created).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/xid"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool. The per-entity repositories
// (UserDB, CardDB, CommentDB, SessionDB) are thin views over the same
// pool, obtained from the accessors below. One pool, one schema, one
// Close — but each repository interface gets its own receiver so the
// Create methods don't collide.
type DB struct {
	conn *sql.DB

	// keeper pins one connection open for in-memory databases, which
	// live only as long as a connection holds them. Nil for file-backed
	// databases.
	keeper *sql.Conn
}

// Users returns the UserRepository view of this database.
func (db *DB) Users() *UserDB { return &UserDB{conn: db.conn} }

// Cards returns the CardRepository view of this database.
func (db *DB) Cards() *CardDB { return &CardDB{conn: db.conn} }

// Comments returns the CommentRepository view of this database.
func (db *DB) Comments() *CommentDB { return &CommentDB{conn: db.conn} }

// Sessions returns the SessionRepository view of this database.
func (db *DB) Sessions() *SessionDB { return &SessionDB{conn: db.conn} }

// New creates a SQLite database connection pool and runs migrations.
//
// dbPath examples:
//   - "data/cards.db"  → file-based database (persistent)
//   - ":memory:"       → in-memory database (tests)
//
// Pragmas ride in the DSN, not in an Exec after opening: sql.DB is a
// connection POOL, and a PRAGMA executed through it configures only
// whichever single connection happened to serve it. The driver applies
// the _pragma query parameters to every connection it opens, so
// foreign keys stay enforced (and WAL stays on) no matter which pool
// connection a query lands on.
//
// Foreign keys are OFF by default in SQLite. We need them ON so a
// comment against a nonexistent card is rejected by the engine. WAL
// mode allows concurrent reads while a write is in progress —
// important for a web server where requests overlap.
func New(dbPath string) (*DB, error) {
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"

	memory := dbPath == ":memory:"
	if memory {
		// A plain :memory: DSN hands every pool connection its own
		// blank database — the schema would exist only on the
		// connection that ran the migrations. A named shared-cache
		// database is one database visible to the whole pool; the
		// random name keeps independent stores in the same process
		// apart. WAL doesn't apply to memory databases.
		dsn = "file:" + xid.New().String() +
			"?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if memory {
		// A shared-cache memory database is destroyed when its last
		// connection closes. Pin one for the store's lifetime so the
		// data survives pool recycling.
		keeper, err := conn.Conn(context.Background())
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: pinning memory database: %w", err)
		}
		db.keeper = keeper
	}

	if err := db.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	if db.keeper != nil {
		db.keeper.Close()
	}
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it
// idempotent — safe to run on every startup.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			google_id     TEXT NOT NULL DEFAULT '',
			is_admin      INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_users_google_id ON users(google_id);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS trading_cards (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL,
			user_id     TEXT NOT NULL REFERENCES users(id),
			approved    INTEGER NOT NULL DEFAULT 0,
			image_path  TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_cards_user_id ON trading_cards(user_id);
		CREATE INDEX IF NOT EXISTS idx_cards_approved ON trading_cards(approved);
		CREATE INDEX IF NOT EXISTS idx_cards_created_at ON trading_cards(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating trading_cards table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS comments (
			id         TEXT PRIMARY KEY,
			text       TEXT NOT NULL,
			user_id    TEXT NOT NULL REFERENCES users(id),
			card_id    TEXT NOT NULL REFERENCES trading_cards(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_comments_card_id ON comments(card_id);
	`)
	if err != nil {
		return fmt.Errorf("creating comments table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			expires_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. The driver surfaces constraint errors as formatted strings,
// so we match on the stable prefix SQLite itself emits.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation reports whether err is a SQLite FOREIGN KEY
// constraint failure (an insert referencing a missing row).
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
