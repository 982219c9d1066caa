// Package media stores uploaded images in object storage and computes
// BlurHash placeholders for them.
package media

import "context"

// ObjectStore persists objects and returns their public URL.
// Implementations: postgrest.Storage (hosted backend), S3Store, LocalStore.
type ObjectStore interface {
	// Put writes data under key and returns the public URL of the object.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	// Name identifies the driver in logs.
	Name() string
}
