// Package backend defines the generic data-access client used by every
// service, along with the query model shared by all drivers.
//
// Drivers:
//   - postgrest: the hosted REST backend (Supabase-compatible).
//   - sqlite: a local database with the same tables, for development and tests.
//   - Null: returned when no backend is configured; reads are empty, writes fail.
package backend

import (
	"context"
	"fmt"
)

// Tables consumed by the application.
const (
	TableProducts     = "products"
	TableBlogPosts    = "blog_posts"
	TableCategories   = "categories"
	TableProductLikes = "product_likes"
	TableProductSaves = "product_saves"
	TableProfiles     = "profiles"
)

// Client reads and writes rows in the backend.
// Implementations must be safe for concurrent use.
type Client interface {
	// Select returns the rows matching q.
	Select(ctx context.Context, q Query) ([]Row, error)
	// Insert writes rows into table and returns them as stored.
	Insert(ctx context.Context, table string, rows ...Row) ([]Row, error)
	// Update sets values on every row matching q and returns the updated rows.
	Update(ctx context.Context, q Query, values Row) ([]Row, error)
	// Delete removes every row matching q.
	Delete(ctx context.Context, q Query) error
	// Driver names the implementation, e.g. "rest", "sqlite" or "null".
	Driver() string
}

// Error is a failure reported by the backend itself.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
}

type ctxKey struct{}

// WithAccessToken attaches the caller's access token so row-level security
// applies to requests made with ctx.
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, token)
}

// AccessToken returns the token attached by WithAccessToken.
func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(ctxKey{}).(string)
	return token
}
