package api

import (
	"github.com/purriosity/purriosity-server/internal/media"
	"github.com/purriosity/purriosity-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Products   *service.ProductService
	Categories *service.CategoryService
	Search     *service.SearchService
	Purr       *service.PurrService
	Saved      *service.SavedService
	Blog       *service.BlogService
	Admin      *service.AdminService
	Uploader   *media.Uploader // nil when uploads are not configured
}
