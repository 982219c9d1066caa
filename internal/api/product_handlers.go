package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/purriosity/purriosity-server/internal/domain"
	"github.com/purriosity/purriosity-server/internal/service"
)

func (s *Server) registerProductRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listProducts",
		Method:      http.MethodGet,
		Path:        "/api/v1/products",
		Summary:     "List products",
		Description: "Returns active products, newest first, optionally filtered by category",
		Tags:        []string{"Products"},
	}, s.handleListProducts)

	huma.Register(s.api, huma.Operation{
		OperationID: "getProduct",
		Method:      http.MethodGet,
		Path:        "/api/v1/products/{id}",
		Summary:     "Get product",
		Description: "Returns an active product and counts the view",
		Tags:        []string{"Products"},
	}, s.handleGetProduct)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRelatedProducts",
		Method:      http.MethodGet,
		Path:        "/api/v1/products/{id}/related",
		Summary:     "Related products",
		Description: "Returns products sharing a tag with the product, or the newest products when none do",
		Tags:        []string{"Products"},
	}, s.handleRelatedProducts)
}

// === DTOs ===

// ProductResponse is a product with its display helpers.
type ProductResponse struct {
	domain.Product
	PurrCountDisplay string `json:"purr_count_display" doc:"Abbreviated purr count, e.g. 1.2k"`
}

func newProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{Product: p, PurrCountDisplay: domain.FormatPurrCount(p.PurrCount)}
}

func newProductResponses(products []domain.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = newProductResponse(p)
	}
	return out
}

// ListProductsInput contains parameters for listing products.
type ListProductsInput struct {
	Category string `query:"category" doc:"Category name; empty or Alle for all"`
	Limit    int    `query:"limit" minimum:"0" maximum:"500" doc:"Maximum products to return; 0 for all"`
}

// ListProductsResponse contains a product list.
type ListProductsResponse struct {
	Category string            `json:"category" doc:"Category the list was filtered by"`
	Products []ProductResponse `json:"products" doc:"Products, newest first"`
}

// ListProductsOutput wraps the product list for Huma.
type ListProductsOutput struct {
	Body ListProductsResponse
}

// GetProductInput contains parameters for getting a product.
type GetProductInput struct {
	ID string `path:"id" doc:"Product ID"`
}

// ProductOutput wraps a product for Huma.
type ProductOutput struct {
	Body ProductResponse
}

// RelatedProductsInput contains parameters for related products.
type RelatedProductsInput struct {
	ID    string `path:"id" doc:"Product ID"`
	Limit int    `query:"limit" minimum:"0" maximum:"24" doc:"Maximum products to return (default 6)"`
}

// ProductsOutput wraps a bare product list for Huma.
type ProductsOutput struct {
	Body []ProductResponse
}

// === Handlers ===

func (s *Server) handleListProducts(ctx context.Context, input *ListProductsInput) (*ListProductsOutput, error) {
	category := input.Category
	if category == "" {
		category = domain.AllCategory
	}

	products, err := s.services.Products.List(ctx, service.ListOptions{
		Category: category,
		Limit:    input.Limit,
	})
	if err != nil {
		return nil, err
	}

	return &ListProductsOutput{Body: ListProductsResponse{
		Category: category,
		Products: newProductResponses(products),
	}}, nil
}

func (s *Server) handleGetProduct(ctx context.Context, input *GetProductInput) (*ProductOutput, error) {
	product, err := s.services.Products.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	// A lost view never fails the page.
	if err := s.services.Products.RecordView(ctx, product.ID); err != nil {
		s.logger.Warn("failed to record product view", "product_id", product.ID, "error", err)
	}

	return &ProductOutput{Body: newProductResponse(product)}, nil
}

func (s *Server) handleRelatedProducts(ctx context.Context, input *RelatedProductsInput) (*ProductsOutput, error) {
	product, err := s.services.Products.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	related := s.services.Products.Related(ctx, product, input.Limit)
	return &ProductsOutput{Body: newProductResponses(related)}, nil
}
