package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/card-exchange/internal/apperror"
	"github.com/sakif/card-exchange/internal/model"
)

// newTestDB returns a *DB backed by an in-memory SQLite database —
// fast, isolated, destroyed when the connection closes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser creates a user and fails the test if it errors.
func createTestUser(t *testing.T, u *UserDB, email string) *model.User {
	t.Helper()
	user := &model.User{
		Email:        email,
		PasswordHash: "$2a$04$fakefakefakefakefakefakefakefakefakefakefakefakefakef",
	}
	if err := u.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()

	user := &model.User{
		Email:        "test@example.com",
		PasswordHash: "some-hash",
	}

	if err := u.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// The repository fills in the generated fields on the caller's struct.
	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Create() did not set user.CreatedAt")
	}
	if user.IsAdmin {
		t.Error("Create() should default IsAdmin to false")
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()

	createTestUser(t, u, "dup@example.com")

	second := &model.User{Email: "dup@example.com", PasswordHash: "other-hash"}
	err := u.Create(context.Background(), second)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() duplicate error = %v, want ErrConflict", err)
	}

	// The first registration wins — exactly one row for that email,
	// and it still carries the original hash.
	stored, err := u.GetByEmail(context.Background(), "dup@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if stored.PasswordHash == "other-hash" {
		t.Error("duplicate Create() must not overwrite the existing row")
	}
}

func TestUserCreate_DuplicateEmailDifferentCase(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()

	createTestUser(t, u, "case@example.com")

	second := &model.User{Email: "CASE@example.com", PasswordHash: "h"}
	if err := u.Create(context.Background(), second); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() with recased email error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// GET TESTS
// =========================================================================

func TestUserGetByID(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()

	created := createTestUser(t, u, "get@example.com")

	got, err := u.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "get@example.com" {
		t.Errorf("GetByID() email = %q, want %q", got.Email, "get@example.com")
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Users().GetByID(context.Background(), "no-such-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByEmail_CaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()

	created := createTestUser(t, u, "mixed@example.com")

	got, err := u.GetByEmail(context.Background(), "MIXED@Example.Com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByEmail() returned wrong user: got %s, want %s", got.ID, created.ID)
	}
}

// =========================================================================
// UPSERT (GOOGLE) TESTS
// =========================================================================

func TestUpsertGoogle_NewAccount(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()

	user := &model.User{Email: "oauth@example.com", GoogleID: "g-sub-1"}
	if err := u.UpsertGoogle(context.Background(), user); err != nil {
		t.Fatalf("UpsertGoogle() error = %v", err)
	}
	if user.ID == "" {
		t.Error("UpsertGoogle() did not set user.ID for a new account")
	}
	if user.PasswordHash != "" {
		t.Error("OAuth-created account should have no password hash")
	}
}

func TestUpsertGoogle_SecondLoginReusesAccount(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()

	first := &model.User{Email: "repeat@example.com", GoogleID: "g-sub-2"}
	if err := u.UpsertGoogle(context.Background(), first); err != nil {
		t.Fatalf("UpsertGoogle() first login error = %v", err)
	}

	second := &model.User{Email: "repeat@example.com", GoogleID: "g-sub-2"}
	if err := u.UpsertGoogle(context.Background(), second); err != nil {
		t.Fatalf("UpsertGoogle() second login error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("second login created a new account: %s != %s", second.ID, first.ID)
	}
}

func TestUpsertGoogle_AttachesToPasswordAccount(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()

	existing := createTestUser(t, u, "both@example.com")

	oauth := &model.User{Email: "both@example.com", GoogleID: "g-sub-3"}
	if err := u.UpsertGoogle(context.Background(), oauth); err != nil {
		t.Fatalf("UpsertGoogle() error = %v", err)
	}

	if oauth.ID != existing.ID {
		t.Fatalf("UpsertGoogle() should reuse the password account, got %s want %s", oauth.ID, existing.ID)
	}
	// The password must survive the attachment.
	if oauth.PasswordHash == "" {
		t.Error("UpsertGoogle() dropped the existing password hash")
	}
	if oauth.GoogleID != "g-sub-3" {
		t.Errorf("UpsertGoogle() GoogleID = %q, want %q", oauth.GoogleID, "g-sub-3")
	}
}
