// Package di provides dependency injection configuration for the Purriosity server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/purriosity/purriosity-server/internal/auth"
	"github.com/purriosity/purriosity-server/internal/catalog"
	"github.com/purriosity/purriosity-server/internal/config"
	"github.com/purriosity/purriosity-server/internal/di/providers"
	"github.com/purriosity/purriosity-server/internal/logger"
	"github.com/purriosity/purriosity-server/internal/metrics"
	"github.com/purriosity/purriosity-server/internal/service"
	"github.com/purriosity/purriosity-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideMetrics)

	// Backend layer
	do.Provide(injector, providers.ProvideBackend)
	do.Provide(injector, providers.ProvideMediaStorage)

	// Catalog layer
	do.Provide(injector, providers.ProvideMapper)
	do.Provide(injector, providers.ProvideSynonymWatcher)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenVerifier)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideProductService)
	do.Provide(injector, providers.ProvideCategoryService)
	do.Provide(injector, providers.ProvideSearchService)
	do.Provide(injector, providers.ProvidePurrService)
	do.Provide(injector, providers.ProvideSavedService)
	do.Provide(injector, providers.ProvideBlogService)
	do.Provide(injector, providers.ProvideAdminService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and starts the HTTP server.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*metrics.Metrics](injector)
	_ = do.MustInvoke[*providers.BackendHandle](injector)
	_ = do.MustInvoke[*providers.MediaStorage](injector)
	_ = do.MustInvoke[*catalog.Mapper](injector)
	_ = do.MustInvoke[*providers.SynonymWatcherHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*auth.TokenVerifier](injector)

	// Business services
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*service.ProductService](injector)
	_ = do.MustInvoke[*service.CategoryService](injector)
	_ = do.MustInvoke[*service.SearchService](injector)
	_ = do.MustInvoke[*service.PurrService](injector)
	_ = do.MustInvoke[*service.SavedService](injector)
	_ = do.MustInvoke[*service.BlogService](injector)
	_ = do.MustInvoke[*service.AdminService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
