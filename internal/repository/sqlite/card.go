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

type CardDB struct {
	conn *sql.DB
}

// Compile-time check that *CardDB implements repository.CardRepository.
var _ repository.CardRepository = (*CardDB)(nil)

const cardColumns = `id, title, description, user_id, approved, image_path, created_at, updated_at`

// Create inserts a new trading card. The card is stored exactly as
// given — in particular Approved stays false; the approval flip happens
// only through Approve. A user_id that doesn't reference an existing
// user fails the FK constraint and surfaces as NotFound.
func (db *CardDB) Create(ctx context.Context, card *model.TradingCard) error {
	now := time.Now()
	card.ID = xid.New().String()
	card.Approved = false
	card.CreatedAt = now
	card.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO trading_cards (id, title, description, user_id, approved, image_path, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID,
		card.Title,
		card.Description,
		card.UserID,
		card.Approved,
		card.ImagePath,
		card.CreatedAt,
		card.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", card.UserID)
		}
		return fmt.Errorf("sqlite: inserting trading card: %w", err)
	}

	return nil
}

// GetByID retrieves a single card by its ID.
func (db *CardDB) GetByID(ctx context.Context, id string) (*model.TradingCard, error) {
	var c model.TradingCard

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM trading_cards WHERE id = ?`,
		id,
	).Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.UserID,
		&c.Approved,
		&c.ImagePath,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("trading card", id)
		}
		return nil, fmt.Errorf("sqlite: getting trading card %s: %w", id, err)
	}

	return &c, nil
}

// List retrieves cards newest-first, narrowed by the filter.
// The WHERE clause is assembled from fixed fragments — user input only
// ever flows through the ? parameters.
func (db *CardDB) List(ctx context.Context, filter repository.CardFilter) ([]model.TradingCard, error) {
	query := `SELECT ` + cardColumns + ` FROM trading_cards`
	var args []any
	var conds []string

	if filter.ApprovedOnly {
		conds = append(conds, `approved = 1`)
	}
	if filter.OwnerID != "" {
		conds = append(conds, `user_id = ?`)
		args = append(args, filter.OwnerID)
	}
	for i, cond := range conds {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}

	query += ` ORDER BY created_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing trading cards: %w", err)
	}
	defer rows.Close()

	return scanCards(rows, limit)
}

// Search matches keyword as a case-insensitive substring of title or
// description. SQLite's LIKE is case-insensitive for ASCII by default,
// which is the behavior we document. An empty keyword matches all rows.
//
// LIKE wildcards in the keyword itself are escaped so searching for
// "100%" doesn't turn into "match everything starting with 100".
func (db *CardDB) Search(ctx context.Context, keyword string, approvedOnly bool) ([]model.TradingCard, error) {
	query := `SELECT ` + cardColumns + ` FROM trading_cards`
	var args []any

	if keyword != "" {
		pattern := "%" + escapeLike(keyword) + "%"
		query += ` WHERE (title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
		if approvedOnly {
			query += ` AND approved = 1`
		}
	} else if approvedOnly {
		query += ` WHERE approved = 1`
	}

	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching trading cards: %w", err)
	}
	defer rows.Close()

	return scanCards(rows, 16)
}

// Approve flips a card to approved. Idempotent: re-approving an
// approved card still matches the row and succeeds. Only a missing card
// leaves RowsAffected at zero, which we translate to NotFound.
func (db *CardDB) Approve(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE trading_cards SET approved = 1, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: approving trading card %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("trading card", id)
	}

	return nil
}

func scanCards(rows *sql.Rows, capacityHint int) ([]model.TradingCard, error) {
	cards := make([]model.TradingCard, 0, capacityHint)

	for rows.Next() {
		var c model.TradingCard
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Description, &c.UserID,
			&c.Approved, &c.ImagePath, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning trading card row: %w", err)
		}
		cards = append(cards, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating trading cards: %w", err)
	}

	return cards, nil
}

// escapeLike escapes the LIKE metacharacters %, _ and the escape
// character itself so a keyword is matched literally.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
