package api

import "time"

// API limits and constants.
const (
	// MaxUploadSize is the maximum allowed size for image uploads (10 MB).
	MaxUploadSize = 10 << 20

	// DefaultListLimit caps list endpoints when the client sends no limit.
	DefaultListLimit = 100

	// MaxListLimit is the largest accepted limit.
	MaxListLimit = 500
)

// Cache-Control header values.
const (
	CacheOneWeek = "public, max-age=604800"
	CacheNoStore = "no-cache"
)

// Mutation rate limit defaults, per client IP.
const (
	defaultMutationsPerMinute = 60
	defaultMutationBurst      = 20
	mutationInterval          = time.Minute
)
