package providers

import (
	"github.com/samber/do/v2"

	"github.com/purriosity/purriosity-server/internal/catalog"
	"github.com/purriosity/purriosity-server/internal/config"
	"github.com/purriosity/purriosity-server/internal/logger"
	"github.com/purriosity/purriosity-server/internal/service"
	"github.com/purriosity/purriosity-server/internal/validation"
)

// ProvideValidator provides the shared input validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideProductService provides the product catalog service.
func ProvideProductService(i do.Injector) (*service.ProductService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	backendHandle := do.MustInvoke[*BackendHandle](i)
	mapper := do.MustInvoke[*catalog.Mapper](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	caps := service.Capabilities{ProductsHaveIsActive: cfg.Backend.ProductsHaveIsActive}
	return service.NewProductService(backendHandle.Client, mapper, sseHandle.Manager, validator, caps, log.Component("products")), nil
}

// ProvideCategoryService provides the category service.
func ProvideCategoryService(i do.Injector) (*service.CategoryService, error) {
	backendHandle := do.MustInvoke[*BackendHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCategoryService(backendHandle.Client, sseHandle.Manager, validator, log.Component("categories")), nil
}

// ProvideSearchService provides the product search service.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	backendHandle := do.MustInvoke[*BackendHandle](i)
	mapper := do.MustInvoke[*catalog.Mapper](i)
	categories := do.MustInvoke[*service.CategoryService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSearchService(backendHandle.Client, mapper, categories, log.Component("search")), nil
}

// ProvidePurrService provides the like toggling service.
func ProvidePurrService(i do.Injector) (*service.PurrService, error) {
	backendHandle := do.MustInvoke[*BackendHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPurrService(backendHandle.Client, sseHandle.Manager, log.Component("purr")), nil
}

// ProvideSavedService provides the saved products service.
func ProvideSavedService(i do.Injector) (*service.SavedService, error) {
	backendHandle := do.MustInvoke[*BackendHandle](i)
	mapper := do.MustInvoke[*catalog.Mapper](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSavedService(backendHandle.Client, mapper, log.Component("saved")), nil
}

// ProvideBlogService provides the blog service.
func ProvideBlogService(i do.Injector) (*service.BlogService, error) {
	backendHandle := do.MustInvoke[*BackendHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBlogService(backendHandle.Client, indexHandle.SearchIndex, sseHandle.Manager, validator, log.Component("blog")), nil
}

// ProvideAdminService provides the admin dashboard service.
func ProvideAdminService(i do.Injector) (*service.AdminService, error) {
	backendHandle := do.MustInvoke[*BackendHandle](i)
	mapper := do.MustInvoke[*catalog.Mapper](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAdminService(backendHandle.Client, mapper, log.Component("admin")), nil
}
