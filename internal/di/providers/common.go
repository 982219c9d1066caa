package providers

import "time"

const (
	// shutdownTimeout bounds graceful shutdown of each handle and the
	// background reindex started at boot.
	shutdownTimeout = 30 * time.Second

	// tokenLeeway absorbs clock skew between us and the token issuer.
	tokenLeeway = 30 * time.Second
)
