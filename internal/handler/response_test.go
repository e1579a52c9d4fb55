package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sakif/card-exchange/internal/apperror"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", apperror.ValidationFailed("title", "title is required"), http.StatusBadRequest, "validation_error"},
		{"invalid credentials", apperror.InvalidCredentials(), http.StatusUnauthorized, "invalid_credentials"},
		{"invalid token", apperror.InvalidToken("bad id_token"), http.StatusUnauthorized, "invalid_token"},
		{"unauthenticated", apperror.Unauthenticated("session expired"), http.StatusUnauthorized, "unauthenticated"},
		{"forbidden", apperror.Forbidden("admins only"), http.StatusForbidden, "forbidden"},
		{"not found", apperror.NotFound("trading card", "abc"), http.StatusNotFound, "not_found"},
		{"conflict", apperror.DuplicateEmail("a@b.com"), http.StatusConflict, "conflict"},
		{"wrapped still maps", fmt.Errorf("loading card: %w", apperror.NotFound("trading card", "abc")), http.StatusNotFound, "not_found"},
		{"unknown error", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decoding error body: %v", err)
			}
			if resp.Error != tt.wantType {
				t.Errorf("error type = %q, want %q", resp.Error, tt.wantType)
			}
			if resp.Message == "" {
				t.Error("error response must carry a message")
			}
		})
	}
}

// Raw error text never reaches the client.
func TestWriteError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("open /var/lib/secret.db: permission denied"))

	body := rec.Body.String()
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if body == "" || strings.Contains(body, "secret.db") {
		t.Errorf("response leaked internal detail: %s", body)
	}
}
