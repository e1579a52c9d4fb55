package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/card-exchange/internal/apperror"
	"github.com/sakif/card-exchange/internal/model"
	"github.com/sakif/card-exchange/internal/repository"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 5000
	MaxCommentLength     = 2000
	DefaultListLimit     = 50
)

// CardService handles the card lifecycle (create → pending → approved),
// listing/search policy, and comments.
//
// LISTING POLICY:
// The public index and search show approved cards only. A pending card
// is visible to its owner (profile) and to admins (dashboard), nobody
// else — an unreviewed submission isn't public, which is the point of
// having an approval gate at all.
type CardService struct {
	cards    repository.CardRepository
	comments repository.CommentRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

// NewCardService creates a CardService.
func NewCardService(
	cards repository.CardRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *CardService {
	return &CardService{
		cards:    cards,
		comments: comments,
		users:    users,
		logger:   logger,
	}
}

// CardDetail is a card together with its comment thread.
type CardDetail struct {
	Card     *model.TradingCard `json:"card"`
	Comments []model.Comment    `json:"comments"`
}

// Create validates and saves a new card for ownerID. The owner is
// always the authenticated caller — there is no create-on-behalf-of.
// imagePath is the stored upload path, "" when no image was attached.
// New cards always start pending, whatever the caller claims.
func (s *CardService) Create(ctx context.Context, ownerID, title, description, imagePath string) (*model.TradingCard, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if description == "" {
		return nil, apperror.ValidationFailed("description", "description is required")
	}
	if len(description) > MaxDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}

	card := &model.TradingCard{
		Title:       title,
		Description: description,
		UserID:      ownerID,
		ImagePath:   imagePath,
	}

	if err := s.cards.Create(ctx, card); err != nil {
		s.logger.Error("failed to create trading card",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating trading card: %w", err)
	}

	s.logger.Info("trading card created",
		slog.String("id", card.ID),
		slog.String("ownerID", ownerID),
		slog.String("title", card.Title),
	)

	return card, nil
}

// GetDetail returns a card with its comment thread.
func (s *CardService) GetDetail(ctx context.Context, id string) (*CardDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "card ID is required")
	}

	card, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByCard(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading comments for card %s: %w", id, err)
	}

	return &CardDetail{Card: card, Comments: comments}, nil
}

// ListPublic returns approved cards, newest first.
func (s *CardService) ListPublic(ctx context.Context, limit, offset int) ([]model.TradingCard, error) {
	cards, err := s.cards.List(ctx, repository.CardFilter{
		ApprovedOnly: true,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing cards: %w", err)
	}
	return cards, nil
}

// ListAll returns every card regardless of approval state — the admin
// dashboard view. Authorization happens at the route (RequireAdmin);
// nothing else calls this.
func (s *CardService) ListAll(ctx context.Context, limit, offset int) ([]model.TradingCard, error) {
	cards, err := s.cards.List(ctx, repository.CardFilter{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing all cards: %w", err)
	}
	return cards, nil
}

// ListForUser returns a user's cards: everything when the viewer is
// the owner, approved only otherwise. Returns NotFound for an unknown
// user, matching the profile route's 404.
func (s *CardService) ListForUser(ctx context.Context, userID, viewerID string) (*model.User, []model.TradingCard, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	cards, err := s.cards.List(ctx, repository.CardFilter{
		OwnerID:      userID,
		ApprovedOnly: viewerID != userID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("listing cards for user %s: %w", userID, err)
	}

	return user, cards, nil
}

// Search returns approved cards whose title or description contains the
// keyword (case-insensitive substring). An empty keyword matches all
// approved cards, so the search page degrades to the index.
func (s *CardService) Search(ctx context.Context, keyword string) ([]model.TradingCard, error) {
	keyword = strings.TrimSpace(keyword)

	cards, err := s.cards.Search(ctx, keyword, true)
	if err != nil {
		return nil, fmt.Errorf("searching cards for %q: %w", keyword, err)
	}
	return cards, nil
}

// Approve transitions a card pending→approved on behalf of actorID.
//
// The admin check happens here as well as at the route: the route
// middleware handles HTTP, but the rule "only admins approve" is a
// business rule and lives with the rest of them. A non-admin actor gets
// Forbidden and the card is untouched. Approving an already approved
// card succeeds (the transition is one-way and idempotent).
func (s *CardService) Approve(ctx context.Context, cardID, actorID string) (*model.TradingCard, error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin {
		return nil, apperror.Forbidden("administrator privilege required to approve cards")
	}

	if err := s.cards.Approve(ctx, cardID); err != nil {
		return nil, err
	}

	s.logger.Info("trading card approved",
		slog.String("cardID", cardID),
		slog.String("adminID", actorID),
	)

	return s.cards.GetByID(ctx, cardID)
}

// AddComment appends a comment by authorID to the card's thread. The
// card must exist but may be in any approval state — commenting on a
// pending card (e.g. the owner answering an admin's question) is fine.
func (s *CardService) AddComment(ctx context.Context, cardID, authorID, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("text", "comment text is required")
	}
	if len(text) > MaxCommentLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("comment must be %d characters or less", MaxCommentLength))
	}

	// Existence check up front: the FK would also catch a missing card,
	// but a clean NotFound beats decoding a constraint failure.
	if _, err := s.cards.GetByID(ctx, cardID); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		Text:   text,
		UserID: authorID,
		CardID: cardID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		s.logger.Error("failed to add comment",
			slog.String("cardID", cardID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("adding comment to card %s: %w", cardID, err)
	}

	s.logger.Info("comment added",
		slog.String("commentID", comment.ID),
		slog.String("cardID", cardID),
	)

	return comment, nil
}
