package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/card-exchange/internal/auth"
	"github.com/sakif/card-exchange/internal/service"
	"github.com/sakif/card-exchange/internal/storage"
)

// CardHandler serves the card listing, upload, search, profile, comment
// and admin routes.
type CardHandler struct {
	cardService *service.CardService
	images      *storage.ImageStore
	logger      *slog.Logger
}

// NewCardHandler creates a CardHandler.
func NewCardHandler(cardService *service.CardService, images *storage.ImageStore, logger *slog.Logger) *CardHandler {
	return &CardHandler{
		cardService: cardService,
		images:      images,
		logger:      logger,
	}
}

// HandleIndex lists approved cards, newest first.
//
// HTTP: GET /?limit=&offset=
func (h *CardHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	cards, err := h.cardService.ListPublic(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("index: listing cards failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cards)
}

// HandleUpload creates a pending card from a multipart form.
//
// HTTP: POST /upload (RequireAuth)
// FORM: title, description, image (optional file part)
//
// The image, when present, is stored before the card row is written so
// a failed write never leaves a card pointing at a missing file. The
// reverse — an orphaned file after a failed insert — is tolerable.
func (h *CardHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(storage.MaxImageBytes + 1<<20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	imagePath := ""
	file, _, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		imagePath, err = h.images.Save(file)
		if err != nil {
			writeError(w, err)
			return
		}
	case errors.Is(err, http.ErrMissingFile):
		// The image part is optional.
	default:
		http.Error(w, "invalid image part", http.StatusBadRequest)
		return
	}

	card, err := h.cardService.Create(r.Context(), userID,
		r.FormValue("title"), r.FormValue("description"), imagePath)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, card)
}

// HandleDetail returns a card with its comment thread.
//
// HTTP: GET /trading_card/{id}
func (h *CardHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.cardService.GetDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// HandleUserProfile returns a user and their cards. The viewer's
// identity (if any) decides whether pending cards are included — owners
// see all of their own cards, everyone else sees approved only.
//
// HTTP: GET /user/{id} (OptionalAuth)
func (h *CardHandler) HandleUserProfile(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	user, cards, err := h.cardService.ListForUser(r.Context(), r.PathValue("id"), viewerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":  user,
		"cards": cards,
	})
}

// HandleSearch returns approved cards matching the keyword.
//
// HTTP: GET /search?keyword=
func (h *CardHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")

	cards, err := h.cardService.Search(r.Context(), keyword)
	if err != nil {
		h.logger.Error("search failed",
			slog.String("keyword", keyword),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cards)
}

// HandleAddComment appends a comment to a card's thread.
//
// HTTP: POST /trading_card/{id}/add_comment (RequireAuth)
// BODY: {"text": "..."}  (also accepts a form field named "comment",
// which is what the original upload form posts)
func (h *CardHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}

	text := ""
	switch {
	case strings.HasPrefix(r.Header.Get("Content-Type"), "application/json"):
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		text = body.Text
	default:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form body", http.StatusBadRequest)
			return
		}
		text = r.FormValue("comment")
	}

	comment, err := h.cardService.AddComment(r.Context(), r.PathValue("id"), userID, text)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

// HandleApprove transitions a card pending→approved.
//
// HTTP: POST /admin/approve_trading_card/{id} (RequireAdmin)
func (h *CardHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}

	card, err := h.cardService.Approve(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, card)
}

// HandleAdminDashboard lists every card, pending ones included, for
// review.
//
// HTTP: GET /admin/dashboard (RequireAdmin)
func (h *CardHandler) HandleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	cards, err := h.cardService.ListAll(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("admin dashboard: listing cards failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cards)
}

// paginationParams reads limit/offset query parameters, tolerating
// absent or malformed values. The repository clamps the final range.
func paginationParams(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
