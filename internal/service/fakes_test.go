package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/xid"
	"github.com/sakif/card-exchange/internal/apperror"
	"github.com/sakif/card-exchange/internal/auth"
	"github.com/sakif/card-exchange/internal/model"
	"github.com/sakif/card-exchange/internal/repository"
)

// In-memory repository fakes. They implement just enough behavior for
// the service tests: the interesting logic (filters, FK checks,
// conflict detection) mirrors what the sqlite package does, without a
// database in the loop.

type fakeUserRepo struct {
	users map[string]*model.User // keyed by ID
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	user.Email = strings.ToLower(user.Email)
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.DuplicateEmail(user.Email)
		}
	}
	user.ID = xid.New().String()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	email = strings.ToLower(email)
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) UpsertGoogle(_ context.Context, user *model.User) error {
	email := strings.ToLower(user.Email)
	for _, u := range f.users {
		if u.Email == email {
			if u.GoogleID == "" {
				u.GoogleID = user.GoogleID
			}
			*user = *u
			return nil
		}
	}
	user.ID = xid.New().String()
	user.Email = email
	f.users[user.ID] = user
	return nil
}

type fakeCardRepo struct {
	cards map[string]*model.TradingCard
	order []string // insertion order, newest appended last
}

func newFakeCardRepo() *fakeCardRepo {
	return &fakeCardRepo{cards: make(map[string]*model.TradingCard)}
}

func (f *fakeCardRepo) Create(_ context.Context, card *model.TradingCard) error {
	card.ID = xid.New().String()
	card.Approved = false
	f.cards[card.ID] = card
	f.order = append(f.order, card.ID)
	return nil
}

func (f *fakeCardRepo) GetByID(_ context.Context, id string) (*model.TradingCard, error) {
	c, ok := f.cards[id]
	if !ok {
		return nil, apperror.NotFound("trading card", id)
	}
	return c, nil
}

func (f *fakeCardRepo) List(_ context.Context, filter repository.CardFilter) ([]model.TradingCard, error) {
	var out []model.TradingCard
	// Newest first, like the real query.
	for i := len(f.order) - 1; i >= 0; i-- {
		c := f.cards[f.order[i]]
		if filter.ApprovedOnly && !c.Approved {
			continue
		}
		if filter.OwnerID != "" && c.UserID != filter.OwnerID {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCardRepo) Search(_ context.Context, keyword string, approvedOnly bool) ([]model.TradingCard, error) {
	keyword = strings.ToLower(keyword)
	var out []model.TradingCard
	for i := len(f.order) - 1; i >= 0; i-- {
		c := f.cards[f.order[i]]
		if approvedOnly && !c.Approved {
			continue
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(c.Title), keyword) &&
			!strings.Contains(strings.ToLower(c.Description), keyword) {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCardRepo) Approve(_ context.Context, id string) error {
	c, ok := f.cards[id]
	if !ok {
		return apperror.NotFound("trading card", id)
	}
	c.Approved = true
	return nil
}

type fakeCommentRepo struct {
	comments []model.Comment
}

func (f *fakeCommentRepo) Create(_ context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	f.comments = append(f.comments, *comment)
	return nil
}

func (f *fakeCommentRepo) ListByCard(_ context.Context, cardID string) ([]model.Comment, error) {
	var out []model.Comment
	for _, c := range f.comments {
		if c.CardID == cardID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeSessionRepo struct {
	sessions map[string]*repository.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*repository.Session)}
}

func (f *fakeSessionRepo) Create(_ context.Context, session *repository.Session) error {
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id string) (*repository.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	return s, nil
}

func (f *fakeSessionRepo) Delete(_ context.Context, id string) error {
	delete(f.sessions, id)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSessionStore(t *testing.T) (*auth.SessionStore, *fakeSessionRepo) {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars")
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	repo := newFakeSessionRepo()
	return auth.NewSessionStore(repo, tokens), repo
}
