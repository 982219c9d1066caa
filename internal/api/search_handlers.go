package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/purriosity/purriosity-server/internal/service"
)

// Search transports, used as a metrics label.
const (
	transportHTTP      = "http"
	transportWebSocket = "websocket"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchProducts",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search products",
		Description: "Returns up to 10 matching products and up to 5 category suggestions. " +
			"For search-as-you-type use the /api/v1/search/live WebSocket, which debounces input.",
		Tags: []string{"Search"},
	}, s.handleSearch)
}

// === DTOs ===

// SearchInput contains parameters for searching products.
type SearchInput struct {
	Query string `query:"q" maxLength:"200" doc:"Search query"`
}

// SearchResponse is the search dropdown content.
type SearchResponse struct {
	Query       string            `json:"query" doc:"Original search query"`
	Products    []ProductResponse `json:"products" doc:"Matching active products"`
	Suggestions []string          `json:"suggestions" doc:"Matching category names"`
	Error       string            `json:"error,omitempty" doc:"Set when the product lookup failed"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body SearchResponse
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	resp, err := s.runSearch(ctx, input.Query, transportHTTP)
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Body: resp}, nil
}

// runSearch runs one query. A failed product lookup still yields a
// response, carrying the suggestions and a generic error message; only a
// cancelled ctx returns an error.
func (s *Server) runSearch(ctx context.Context, query, transport string) (SearchResponse, error) {
	result, err := s.services.Search.Search(ctx, query)

	outcome := "ok"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.countSearch(transport, "cancelled")
		return SearchResponse{}, err
	case err != nil:
		outcome = "failed"
	case strings.TrimSpace(query) == "":
		outcome = "empty"
	}
	s.countSearch(transport, outcome)

	resp := SearchResponse{
		Query:       query,
		Products:    []ProductResponse{},
		Suggestions: []string{},
	}
	if result != nil {
		resp.Products = newProductResponses(result.Products)
		resp.Suggestions = result.Suggestions
	}
	if err != nil {
		resp.Error = service.ErrSearchFailed.Message
	}
	return resp, nil
}

func (s *Server) countSearch(transport, outcome string) {
	if s.infra.Metrics != nil {
		s.infra.Metrics.SearchQueries.WithLabelValues(transport, outcome).Inc()
	}
}
