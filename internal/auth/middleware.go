package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/card-exchange/internal/apperror"
)

// SessionCookie is the name of the session cookie.
const SessionCookie = "session"

// contextKey is an unexported type for context keys in this package.
// A package-private key type means only this package can read or write
// the user ID in a request context — no collisions with other packages.
type contextKey string

const userIDKey contextKey = "userID"

// AdminChecker answers "does this user hold the administrator flag".
// The auth middleware can't import the service layer (the service layer
// imports auth), so the admin lookup is injected behind this interface.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// RequireAuth enforces authentication on protected routes.
//
// It reads the session cookie, resolves it through the SessionStore
// (signature check + server-side session lookup), and stores the user
// ID in the request context. A missing or dead session sends browsers
// to /login and gives API callers a 401 — the redirect keeps the
// classic "hit a protected page, land on the login form" flow, the
// 401 keeps JSON clients from parsing an HTML login page.
func RequireAuth(sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := resolveRequest(r, sessions)
			if err != nil {
				deny(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin enforces authentication AND the administrator flag.
//
// The two failures are deliberately distinct: no valid session is
// handled exactly like RequireAuth (redirect/401), but a valid session
// without the admin flag is 403 Forbidden — an authenticated non-admin
// shouldn't be bounced to a login page they'd only log straight back
// in from.
func RequireAdmin(sessions *SessionStore, admins AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := resolveRequest(r, sessions)
			if err != nil {
				deny(w, r, err)
				return
			}

			isAdmin, err := admins.IsAdmin(r.Context(), userID)
			if err != nil {
				internalError(w)
				return
			}
			if !isAdmin {
				http.Error(w, `{"error":"forbidden","message":"administrator privilege required"}`, http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the user identity if a valid session is
// present but never blocks the request. Used on public routes where a
// logged-in viewer sees more (their own pending cards on their
// profile) than an anonymous one.
func OptionalAuth(sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := resolveRequest(r, sessions); err == nil && userID != "" {
				r = r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the
// request context. Returns ("", false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// resolveRequest reads the session cookie and resolves it to a user ID.
func resolveRequest(r *http.Request, sessions *SessionStore) (string, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", err
	}
	return sessions.Resolve(r.Context(), cookie.Value)
}

// deny answers a failed session resolution. A missing cookie or a dead
// session is the caller's problem (401/redirect); anything else — the
// session store itself failing — is ours, and bouncing the user to a
// login page they are arguably logged in on would be a lie. That gets
// a 500.
func deny(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, http.ErrNoCookie) || errors.Is(err, apperror.ErrUnauthenticated) {
		unauthenticated(w, r)
		return
	}
	internalError(w)
}

// unauthenticated answers a request that lacks a valid session:
// redirect browsers to the login page, 401 for JSON clients.
func unauthenticated(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		http.Error(w, `{"error":"unauthenticated","message":"valid authentication required"}`, http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func internalError(w http.ResponseWriter) {
	http.Error(w, `{"error":"internal_error","message":"An internal error occurred"}`, http.StatusInternalServerError)
}

// wantsJSON reports whether the client is an API consumer rather than
// a browser navigating pages.
func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") {
		return true
	}
	// Browsers send Accept: text/html on navigations; requests without
	// it are almost always programmatic.
	return !strings.Contains(accept, "text/html")
}
