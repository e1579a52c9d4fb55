// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage provides the implementation;
// tests substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/card-exchange/internal/model"
)

// CardFilter narrows List results.
//
// ApprovedOnly and OwnerID combine: the public index uses
// {ApprovedOnly: true}, the admin dashboard uses the zero filter, and a
// user's own profile uses {OwnerID: id}.
type CardFilter struct {
	ApprovedOnly bool
	OwnerID      string // "" means any owner
	Limit        int
	Offset       int
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertGoogle implements OAuth find-or-create keyed by email:
	// first Google login creates the account, later logins reuse it,
	// and a password account with the same email gets the Google
	// identity attached.
	UpsertGoogle(ctx context.Context, user *model.User) error
}

type CardRepository interface {
	Create(ctx context.Context, card *model.TradingCard) error
	GetByID(ctx context.Context, id string) (*model.TradingCard, error)
	List(ctx context.Context, filter CardFilter) ([]model.TradingCard, error)
	// Search matches keyword as a case-insensitive substring of title
	// or description. An empty keyword matches everything.
	Search(ctx context.Context, keyword string, approvedOnly bool) ([]model.TradingCard, error)
	// Approve flips the card to approved. Approving an already approved
	// card is a no-op success; a missing card is NotFound.
	Approve(ctx context.Context, id string) error
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	ListByCard(ctx context.Context, cardID string) ([]model.Comment, error)
}

// Session is a server-side login record. The browser never sees the row
// itself — it holds a signed token whose subject is the session ID, so
// deleting the row revokes the login regardless of the cookie.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt int64 // unix seconds
	CreatedAt int64
}

type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	// GetByID returns NotFound for both missing and expired sessions.
	GetByID(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
