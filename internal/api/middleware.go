package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/purriosity/purriosity-server/internal/auth"
	domainerrors "github.com/purriosity/purriosity-server/internal/errors"
)

// authMiddleware returns a middleware that verifies Bearer tokens and stores
// the principal in context. A missing or invalid token leaves the request
// anonymous; handlers decide whether that is enough.
func authMiddleware(verifier *auth.TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if verifier == nil || !strings.HasPrefix(authHeader, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := verifier.Verify(strings.TrimSpace(authHeader[7:]))
			if err != nil {
				logger.Debug("ignoring invalid access token", "path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

// requestLogger logs one line per request at debug level, and failed
// requests at warn.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			level := slog.LevelDebug
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// isMutation reports whether r writes through the API.
func isMutation(r *http.Request) bool {
	if !strings.HasPrefix(r.URL.Path, "/api/v1/") {
		return false
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// loginURL builds the sign-in redirect for an unauthenticated caller.
// returnTo must be a local path; anything else falls back to fallback.
func (s *Server) loginURL(returnTo, fallback string) string {
	if !isLocalPath(returnTo) {
		returnTo = fallback
	}
	base := strings.TrimRight(s.opts.PublicURL, "/") + s.opts.LoginPath
	return base + "?redirect=" + url.QueryEscape(returnTo)
}

// isLocalPath reports whether p is a path on this site. Browsers treat
// "/\\host" like "//host" and drop tabs and newlines before resolving.
func isLocalPath(p string) bool {
	if !strings.HasPrefix(p, "/") {
		return false
	}
	if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
		return false
	}
	return !strings.ContainsFunc(p, func(r rune) bool { return r < 0x20 || r == 0x7f })
}

// requireUser returns the caller, or AUTH_REQUIRED carrying a login
// redirect back to returnTo.
func (s *Server) requireUser(ctx context.Context, returnTo, fallback string) (auth.Principal, error) {
	p := auth.FromContext(ctx)
	if !p.Authenticated() {
		return p, domainerrors.AuthRequired(s.loginURL(returnTo, fallback))
	}
	return p, nil
}

// requireAdmin returns the caller if their profile has is_admin set.
func (s *Server) requireAdmin(ctx context.Context) (auth.Principal, error) {
	p, err := s.requireUser(ctx, "/admin", "/admin")
	if err != nil {
		return p, err
	}
	if err := s.services.Admin.RequireAdmin(ctx, p); err != nil {
		return p, err
	}
	return p, nil
}
