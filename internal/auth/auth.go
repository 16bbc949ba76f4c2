// Package auth checks the admin token that guards mutating HTTP routes.
//
// There is no user store: a request is an admin session when it presents the
// configured token, and any authenticated session may mutate the family.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// HeaderToken is an alternative to "Authorization: Bearer <token>".
const HeaderToken = "X-Silsilah-Token"

// ErrUnauthorized is returned when a protected operation lacks a valid token.
var ErrUnauthorized = errors.New("unauthorized")

// Session is the caller identity for one request.
type Session struct {
	Authenticated bool
}

// IsAdmin reports whether the session may change members.
func (s Session) IsAdmin() bool { return s.Authenticated }

// Authenticator validates request tokens against one shared secret.
type Authenticator struct {
	token []byte
}

// New returns an Authenticator for token. An empty token disables checks.
func New(token string) *Authenticator {
	return &Authenticator{token: []byte(strings.TrimSpace(token))}
}

// Enabled reports whether a token is configured.
func (a *Authenticator) Enabled() bool { return len(a.token) > 0 }

// Session builds the session for r from its bearer or header token.
func (a *Authenticator) Session(r *http.Request) Session {
	if !a.Enabled() {
		return Session{}
	}
	got := r.Header.Get(HeaderToken)
	if h := r.Header.Get("Authorization"); got == "" && h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			got = strings.TrimSpace(tok)
		}
	}
	if got == "" {
		return Session{}
	}
	return Session{Authenticated: subtle.ConstantTimeCompare([]byte(got), a.token) == 1}
}

// Require returns ErrUnauthorized unless checks are disabled or s is an
// admin session.
func (a *Authenticator) Require(s Session) error {
	if !a.Enabled() || s.IsAdmin() {
		return nil
	}
	return ErrUnauthorized
}
