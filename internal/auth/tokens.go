package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/purriosity/purriosity-server/internal/backend"
)

// Audience of end-user tokens issued by the hosted backend.
const authenticatedAudience = "authenticated"

// Token verification errors.
var (
	ErrNoSecret     = errors.New("token verification is not configured")
	ErrInvalidToken = errors.New("invalid access token")
	ErrExpiredToken = errors.New("access token expired")
)

// TokenVerifier checks backend-issued access tokens.
type TokenVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewTokenVerifier creates a verifier for HS256 tokens signed with secret.
// An empty secret yields a verifier that rejects every token.
func NewTokenVerifier(secret string, leeway time.Duration) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithAudience(authenticatedAudience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(leeway),
		),
	}
}

// Enabled reports whether tokens can be verified at all.
func (v *TokenVerifier) Enabled() bool {
	return len(v.secret) > 0
}

// Verify validates token and returns its principal.
func (v *TokenVerifier) Verify(token string) (Principal, error) {
	if !v.Enabled() {
		return Anonymous, ErrNoSecret
	}

	claims := &AccessClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Anonymous, ErrExpiredToken
	case err != nil:
		return Anonymous, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Anonymous, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims.principal(token), nil
}

type contextKey struct{}

// WithPrincipal stores p in ctx and attaches its access token for backend calls.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, contextKey{}, p)
	return backend.WithAccessToken(ctx, p.AccessToken)
}

// FromContext returns the principal stored by WithPrincipal, or Anonymous.
func FromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(contextKey{}).(Principal)
	return p
}
