package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/purriosity/purriosity-server/internal/service"
)

func (s *Server) registerCategoryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCategories",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories",
		Summary:     "List categories",
		Description: "Returns the category chips in display order, or the built-in list when the table is unavailable",
		Tags:        []string{"Categories"},
	}, s.handleListCategories)
}

// CategoriesOutput wraps the category list for Huma.
type CategoriesOutput struct {
	Body service.CategoryList
}

func (s *Server) handleListCategories(ctx context.Context, _ *struct{}) (*CategoriesOutput, error) {
	return &CategoriesOutput{Body: s.services.Categories.List(ctx)}, nil
}
