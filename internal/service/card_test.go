package service

import (
	"context"
	"strings"
	"testing"

	"github.com/sakif/card-exchange/internal/apperror"
	"github.com/sakif/card-exchange/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCardService(t *testing.T) (*CardService, *fakeCardRepo, *fakeUserRepo) {
	t.Helper()
	cards := newFakeCardRepo()
	users := newFakeUserRepo()
	svc := NewCardService(cards, &fakeCommentRepo{}, users, testLogger())
	return svc, cards, users
}

func addUser(t *testing.T, users *fakeUserRepo, email string, admin bool) *model.User {
	t.Helper()
	u := &model.User{Email: email, IsAdmin: admin}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestCardServiceCreate(t *testing.T) {
	svc, _, users := newTestCardService(t)
	ctx := context.Background()
	owner := addUser(t, users, "owner@example.com", false)

	card, err := svc.Create(ctx, owner.ID, "  Charizard  ", "First edition holo.", "")
	require.NoError(t, err)
	assert.NotEmpty(t, card.ID)
	assert.Equal(t, "Charizard", card.Title, "title should be trimmed")
	assert.Equal(t, owner.ID, card.UserID)
	assert.False(t, card.Approved, "new cards start pending")
}

func TestCardServiceCreate_Validation(t *testing.T) {
	svc, cards, users := newTestCardService(t)
	ctx := context.Background()
	owner := addUser(t, users, "owner@example.com", false)

	tests := []struct {
		name        string
		title       string
		description string
	}{
		{"empty title", "", "a description"},
		{"whitespace title", "   ", "a description"},
		{"title too long", strings.Repeat("x", MaxTitleLength+1), "a description"},
		{"empty description", "Pikachu", ""},
		{"description too long", "Pikachu", strings.Repeat("y", MaxDescriptionLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, owner.ID, tt.title, tt.description, "")
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
	assert.Empty(t, cards.cards, "rejected input must not be saved")
}

func TestListPublic_ApprovedOnly(t *testing.T) {
	svc, cards, users := newTestCardService(t)
	ctx := context.Background()
	owner := addUser(t, users, "owner@example.com", false)

	pending, err := svc.Create(ctx, owner.ID, "Pending", "not reviewed yet", "")
	require.NoError(t, err)
	approved, err := svc.Create(ctx, owner.ID, "Approved", "reviewed", "")
	require.NoError(t, err)
	require.NoError(t, cards.Approve(ctx, approved.ID))

	got, err := svc.ListPublic(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, approved.ID, got[0].ID)
	assert.NotEqual(t, pending.ID, got[0].ID)
}

func TestListForUser_ViewerPolicy(t *testing.T) {
	svc, cards, users := newTestCardService(t)
	ctx := context.Background()
	owner := addUser(t, users, "owner@example.com", false)
	visitor := addUser(t, users, "visitor@example.com", false)

	_, err := svc.Create(ctx, owner.ID, "Pending", "not reviewed yet", "")
	require.NoError(t, err)
	approved, err := svc.Create(ctx, owner.ID, "Approved", "reviewed", "")
	require.NoError(t, err)
	require.NoError(t, cards.Approve(ctx, approved.ID))

	// The owner sees both of their cards.
	_, own, err := svc.ListForUser(ctx, owner.ID, owner.ID)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	// Anyone else sees only the approved one.
	_, public, err := svc.ListForUser(ctx, owner.ID, visitor.ID)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, approved.ID, public[0].ID)

	// So does an anonymous viewer.
	_, anon, err := svc.ListForUser(ctx, owner.ID, "")
	require.NoError(t, err)
	assert.Len(t, anon, 1)

	_, _, err = svc.ListForUser(ctx, "no-such-user", visitor.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCardServiceSearch_ApprovedOnly(t *testing.T) {
	svc, cards, users := newTestCardService(t)
	ctx := context.Background()
	owner := addUser(t, users, "owner@example.com", false)

	_, err := svc.Create(ctx, owner.ID, "Pending Dragon", "hidden", "")
	require.NoError(t, err)
	approved, err := svc.Create(ctx, owner.ID, "Approved Dragon", "visible", "")
	require.NoError(t, err)
	require.NoError(t, cards.Approve(ctx, approved.ID))

	got, err := svc.Search(ctx, "dragon")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, approved.ID, got[0].ID)
}

func TestApprove(t *testing.T) {
	svc, _, users := newTestCardService(t)
	ctx := context.Background()
	owner := addUser(t, users, "owner@example.com", false)
	admin := addUser(t, users, "admin@example.com", true)

	card, err := svc.Create(ctx, owner.ID, "Blastoise", "shadowless", "")
	require.NoError(t, err)

	got, err := svc.Approve(ctx, card.ID, admin.ID)
	require.NoError(t, err)
	assert.True(t, got.Approved)

	// Idempotent: approving again still succeeds.
	got, err = svc.Approve(ctx, card.ID, admin.ID)
	require.NoError(t, err)
	assert.True(t, got.Approved)
}

// A non-admin actor gets Forbidden and the card stays pending.
func TestApprove_NonAdmin(t *testing.T) {
	svc, cards, users := newTestCardService(t)
	ctx := context.Background()
	owner := addUser(t, users, "owner@example.com", false)

	card, err := svc.Create(ctx, owner.ID, "Blastoise", "shadowless", "")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, card.ID, owner.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	stored, err := cards.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.False(t, stored.Approved)
}

func TestApprove_MissingCard(t *testing.T) {
	svc, _, users := newTestCardService(t)
	admin := addUser(t, users, "admin@example.com", true)

	_, err := svc.Approve(context.Background(), "no-such-card", admin.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAddComment(t *testing.T) {
	svc, _, users := newTestCardService(t)
	ctx := context.Background()
	owner := addUser(t, users, "owner@example.com", false)
	commenter := addUser(t, users, "fan@example.com", false)

	card, err := svc.Create(ctx, owner.ID, "Mewtwo", "psychic", "")
	require.NoError(t, err)

	comment, err := svc.AddComment(ctx, card.ID, commenter.ID, "  is this graded?  ")
	require.NoError(t, err)
	assert.Equal(t, "is this graded?", comment.Text, "text should be trimmed")
	assert.Equal(t, commenter.ID, comment.UserID)

	detail, err := svc.GetDetail(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, comment.ID, detail.Comments[0].ID)
}

func TestAddComment_Validation(t *testing.T) {
	svc, _, users := newTestCardService(t)
	ctx := context.Background()
	owner := addUser(t, users, "owner@example.com", false)
	card, err := svc.Create(ctx, owner.ID, "Mewtwo", "psychic", "")
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, card.ID, owner.ID, "   ")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.AddComment(ctx, card.ID, owner.ID, strings.Repeat("z", MaxCommentLength+1))
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestAddComment_MissingCard(t *testing.T) {
	svc, _, users := newTestCardService(t)
	author := addUser(t, users, "fan@example.com", false)

	_, err := svc.AddComment(context.Background(), "no-such-card", author.ID, "hello?")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
