// Package auth verifies the access tokens issued by the hosted backend's
// auth service and carries the resulting principal through request contexts.
// Sign-in itself happens against the backend; this package never mints tokens.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the claims of a backend-issued access token (HS256 JWT).
type AccessClaims struct {
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	jwt.RegisteredClaims
}

// Principal is the caller of a request. The zero value is anonymous.
type Principal struct {
	UserID    string
	SessionID string
	Email     string
	// AccessToken is forwarded to the backend so row-level security applies.
	AccessToken string
}

// Anonymous is the unauthenticated principal.
var Anonymous = Principal{}

// Authenticated reports whether the principal is a signed-in user.
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

// SessionKey identifies the sign-in session for per-session caches.
// Tokens without a session id fall back to the user id.
func (p Principal) SessionKey() string {
	if p.SessionID != "" {
		return p.SessionID
	}
	return p.UserID
}

// principal builds the Principal described by verified claims.
func (c *AccessClaims) principal(token string) Principal {
	return Principal{
		UserID:      c.Subject,
		SessionID:   c.SessionID,
		Email:       c.Email,
		AccessToken: token,
	}
}
