package model

import "time"

// TradingCard represents a card submitted by a user for the public listing.
//
// Cards start unapproved ("pending") and stay that way until an admin
// approves them. Approval is one-way — there is no reject, edit, or
// delete operation, so the only mutation a card ever sees after creation
// is the pending→approved flip.
//
// UserID is the owner and is immutable after creation. A card is always
// created by an authenticated caller on their own behalf; no endpoint
// creates cards for someone else.
type TradingCard struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	UserID      string    `json:"userId"`
	Approved    bool      `json:"approved"`
	ImagePath   string    `json:"imagePath,omitempty"` // relative path under the uploads dir, "" if no image
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Comment is user-authored text attached to a trading card.
// Comments are append-only: no edit, no delete, no moderation state.
type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	UserID    string    `json:"userId"`
	CardID    string    `json:"cardId"`
	CreatedAt time.Time `json:"createdAt"`
}
