package providers

import (
	"github.com/samber/do/v2"

	"github.com/purriosity/purriosity-server/internal/auth"
	"github.com/purriosity/purriosity-server/internal/config"
	"github.com/purriosity/purriosity-server/internal/logger"
)

// ProvideTokenVerifier provides the access token verifier.
func ProvideTokenVerifier(i do.Injector) (*auth.TokenVerifier, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	verifier := auth.NewTokenVerifier(cfg.Auth.JWTSecret, tokenLeeway)
	if !verifier.Enabled() {
		log.Warn("SUPABASE_JWT_SECRET is not set, every request is anonymous")
	}

	return verifier, nil
}
