package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/card-exchange/internal/apperror"
	"github.com/sakif/card-exchange/internal/model"
	"github.com/sakif/card-exchange/internal/repository"
)

type CommentDB struct {
	conn *sql.DB
}

// Compile-time check that *CommentDB implements repository.CommentRepository.
var _ repository.CommentRepository = (*CommentDB)(nil)

// Create appends a comment. Both foreign keys are enforced by the
// engine; an insert against a missing card (or a vanished user) fails
// the FK check, which we report as NotFound on the card — that is the
// reference a caller can actually get wrong, since the author comes
// from a validated session.
func (db *CommentDB) Create(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, text, user_id, card_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		comment.ID,
		comment.Text,
		comment.UserID,
		comment.CardID,
		comment.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("trading card", comment.CardID)
		}
		return fmt.Errorf("sqlite: inserting comment: %w", err)
	}

	return nil
}

// ListByCard returns a card's comment thread, oldest first.
func (db *CommentDB) ListByCard(ctx context.Context, cardID string) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, text, user_id, card_id, created_at
		 FROM comments
		 WHERE card_id = ?
		 ORDER BY created_at ASC, id ASC`,
		cardID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for card %s: %w", cardID, err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0, 8)
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.Text, &c.UserID, &c.CardID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}

	return comments, nil
}
