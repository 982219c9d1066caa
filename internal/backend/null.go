package backend

import (
	"context"

	domainerrors "github.com/purriosity/purriosity-server/internal/errors"
)

// ErrNotConfigured is returned by Null for every write.
var ErrNotConfigured = domainerrors.Unavailable("backend is not configured")

// Null is the client used when no backend credentials are present.
// Reads succeed with no rows so pages still render; writes fail.
type Null struct{}

var _ Client = Null{}

// Select returns no rows.
func (Null) Select(context.Context, Query) ([]Row, error) { return []Row{}, nil }

// Insert fails with ErrNotConfigured.
func (Null) Insert(context.Context, string, ...Row) ([]Row, error) { return nil, ErrNotConfigured }

// Update fails with ErrNotConfigured.
func (Null) Update(context.Context, Query, Row) ([]Row, error) { return nil, ErrNotConfigured }

// Delete fails with ErrNotConfigured.
func (Null) Delete(context.Context, Query) error { return ErrNotConfigured }

// Driver returns "null".
func (Null) Driver() string { return "null" }
