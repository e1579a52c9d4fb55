package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/sakif/card-exchange/internal/apperror"
)

// googleTokenInfoURL is Google's ID-token verification endpoint. It
// checks the token's signature against Google's current keys and
// returns the decoded claims; we still have to check the audience
// ourselves, since the endpoint verifies signatures for any Google
// client, not specifically ours.
const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleUser is the identity we extract from a verified Google ID token.
type GoogleUser struct {
	Sub   string // Google's stable subject identifier — never changes for an account
	Email string
}

// GoogleProvider wraps golang.org/x/oauth2 for the Google Authorization
// Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. We redirect the user to Google's consent page with our ClientID.
//  2. Google redirects back to CallbackURL with a short-lived code.
//  3. We exchange the code for tokens server-to-server, using the
//     ClientSecret — the tokens never touch the browser.
//  4. The token response includes an ID token, which we verify before
//     trusting anything in it.
type GoogleProvider struct {
	config       *oauth2.Config
	tokenInfoURL string
	httpClient   *http.Client
}

// NewGoogleProvider creates a GoogleProvider with the given
// credentials. Register the OAuth client and callback URL at
// https://console.cloud.google.com/apis/credentials; callbackURL must
// match the registered redirect URI exactly.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email"},
			Endpoint:     google.Endpoint,
		},
		tokenInfoURL: googleTokenInfoURL,
		httpClient:   http.DefaultClient,
	}
}

// AuthURL returns the Google consent URL to redirect the user to.
// The state is a random value stored in a cookie before the redirect
// and checked on callback — standard OAuth CSRF protection.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for a verified Google
// identity: code → token response → ID token → VerifyIDToken.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// The ID token rides along in the token response's extra fields
	// when the "openid" scope was requested.
	rawIDToken, ok := oauthToken.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, apperror.InvalidToken("token response contained no ID token")
	}

	return p.VerifyIDToken(ctx, rawIDToken)
}

// tokenInfoResponse is the slice of Google's tokeninfo payload we use.
// All values arrive as strings regardless of their logical type.
type tokenInfoResponse struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
}

// VerifyIDToken verifies a Google-issued ID token and extracts the
// subject and email.
//
// Verification is delegated to Google's tokeninfo endpoint: a token
// with a bad signature or past its expiry gets a non-200 response.
// The audience check is ours — tokeninfo accepts tokens minted for ANY
// Google OAuth client, and without the aud check a malicious site could
// replay its own users' tokens against us.
//
// Every verification failure is apperror.ErrInvalidToken; transport
// failures reaching Google stay ordinary errors (they're our outage,
// not the caller's bad token).
func (p *GoogleProvider) VerifyIDToken(ctx context.Context, rawIDToken string) (*GoogleUser, error) {
	reqURL := p.tokenInfoURL + "?id_token=" + url.QueryEscape(rawIDToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building tokeninfo request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling tokeninfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.InvalidToken("identity token failed verification")
	}

	var info tokenInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("auth: decoding tokeninfo response: %w", err)
	}

	if info.Aud != p.config.ClientID {
		return nil, apperror.InvalidToken("identity token audience mismatch")
	}
	if info.Sub == "" || info.Email == "" {
		return nil, apperror.InvalidToken("identity token missing subject or email")
	}
	if info.EmailVerified != "true" {
		return nil, apperror.InvalidToken("identity token email not verified")
	}

	return &GoogleUser{
		Sub:   info.Sub,
		Email: info.Email,
	}, nil
}
