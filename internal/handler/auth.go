package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/card-exchange/internal/auth"
	"github.com/sakif/card-exchange/internal/service"
)

// AuthHandler manages registration, both login paths, and logout.
//
// ROUTES:
//
//	POST /register        → create a password account
//	GET  /login           → login affordances (Google consent URL)
//	POST /login           → password login
//	GET  /oauth_callback  → complete the Google flow
//	GET  /logout          → revoke the session, clear the cookie
//	GET  /api/me          → current user
type AuthHandler struct {
	authService *service.AuthService
	google      *auth.GoogleProvider
	logger      *slog.Logger
}

// NewAuthHandler creates an AuthHandler. google may be nil when OAuth
// credentials aren't configured; the Google routes then report that
// login method as unavailable while password auth keeps working.
func NewAuthHandler(authService *service.AuthService, google *auth.GoogleProvider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		google:      google,
		logger:      logger,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a new password account.
//
// HTTP: POST /register
// A duplicate email is a 409 with a user-facing message — registration
// never overwrites an existing account.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	user, err := h.authService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleLoginPage returns the login affordances: where to POST
// credentials, and the Google consent URL if OAuth is configured.
//
// HTTP: GET /login
//
// The consent URL embeds a random state stored in a short-lived cookie;
// the callback checks the two match (OAuth CSRF protection).
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"passwordLogin": "/login",
		"register":      "/register",
	}

	if h.google != nil {
		state := xid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     "oauth_state",
			Value:    state,
			Path:     "/",
			MaxAge:   600, // 10 minutes — long enough to approve, short enough to limit replay
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		resp["googleLogin"] = h.google.AuthURL(state)
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleLogin authenticates with email + password and sets the session
// cookie.
//
// HTTP: POST /login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	result, err := h.authService.LoginPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusOK, result.User)
}

// HandleOAuthCallback completes the Google login flow.
//
// HTTP: GET /oauth_callback?code=xxx&state=yyy
//
// FLOW:
//  1. Check the state parameter against the state cookie (CSRF)
//  2. Exchange the code for a verified Google identity
//  3. Find-or-create the local user, establish a session
//  4. Set the session cookie and redirect home
func (h *AuthHandler) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		http.Error(w, "Google login is not configured", http.StatusNotFound)
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("oauth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// The user may have denied the consent screen.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, "/login?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	gUser, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	result, err := h.authService.LoginGoogle(r.Context(), gUser)
	if err != nil {
		h.logger.Error("oauth callback: login failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout revokes the session and clears the cookie.
//
// HTTP: GET /logout
// The original flow triggers logout from a plain link, so this stays a
// GET; revocation is idempotent, so a prefetched logout costs the user
// a login but nothing worse.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Error("logout: revoking session failed", slog.String("error", err.Error()))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me (RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// Unreachable on a RequireAuth route, but be safe.
		http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// setSessionCookie hands the signed session token to the browser.
// HttpOnly keeps JavaScript away from it; SameSite=Lax keeps it off
// cross-site POSTs. Secure should be enabled behind HTTPS.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
