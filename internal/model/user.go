// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Two ways to get an account:
//   - Email + password registration (PasswordHash is set)
//   - Google OAuth login (GoogleID is set, PasswordHash stays empty)
//
// The two paths converge on the email address: signing in with Google
// with an email that was first registered with a password attaches the
// Google identity to the existing account rather than creating a
// duplicate. The UNIQUE constraint on email in the DB is what makes
// duplicate registration fail instead of silently overwriting.
//
// WHY PasswordHash string (not *string)?
// An empty string means "this account has no password" (OAuth-only).
// That's simpler to work with than a nullable pointer, and the login
// path rejects empty hashes before ever calling bcrypt.
//
// IsAdmin has no mutation endpoint; operators grant it through the
// ADMIN_EMAILS environment variable, applied at startup.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialized in API responses
	GoogleID     string    `json:"-"` // Google's stable subject ID, "" for password accounts
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
