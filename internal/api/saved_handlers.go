package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/purriosity/purriosity-server/internal/domain"
	domainerrors "github.com/purriosity/purriosity-server/internal/errors"
)

func (s *Server) registerSavedRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "toggleSaved",
		Method:      http.MethodPost,
		Path:        "/api/v1/products/{id}/save",
		Summary:     "Toggle saved",
		Description: "Saves or removes a product from the caller's list",
		Tags:        []string{"Saved"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleToggleSaved)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSaved",
		Method:      http.MethodGet,
		Path:        "/api/v1/saved",
		Summary:     "List saved products",
		Description: "Returns the caller's saved products, most recently saved first",
		Tags:        []string{"Saved"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSaved)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSavedIDs",
		Method:      http.MethodGet,
		Path:        "/api/v1/saved/ids",
		Summary:     "List saved product IDs",
		Description: "Returns the ids of the caller's saved products",
		Tags:        []string{"Saved"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSavedIDs)
}

// === DTOs ===

// ToggleSavedInput identifies the product to save.
type ToggleSavedInput struct {
	ID       string `path:"id" doc:"Product ID"`
	ReturnTo string `query:"return_to" doc:"Local path to come back to after sign-in"`
}

// SavedResponse is the save button state.
type SavedResponse struct {
	Result    domain.ToggleResult `json:"result" enum:"saved,removed" doc:"Toggle result"`
	ProductID string              `json:"product_id" doc:"Product ID"`
	Saved     bool                `json:"saved" doc:"Whether the product is now saved"`
}

// SavedOutput wraps the save state for Huma.
type SavedOutput struct {
	Body SavedResponse
}

// SavedIDsResponse lists saved product ids.
type SavedIDsResponse struct {
	ProductIDs []string `json:"product_ids" doc:"Saved product IDs"`
}

// SavedIDsOutput wraps the saved ids for Huma.
type SavedIDsOutput struct {
	Body SavedIDsResponse
}

// === Handlers ===

func (s *Server) handleToggleSaved(ctx context.Context, input *ToggleSavedInput) (*SavedOutput, error) {
	p, err := s.requireUser(ctx, input.ReturnTo, "/product/"+input.ID)
	if err != nil {
		s.countSave(domain.ResultAuthRequired)
		return nil, err
	}

	out := s.services.Saved.Toggle(ctx, p, input.ID)
	s.countSave(out.Result)

	switch out.Result {
	case domain.ResultSaved, domain.ResultRemoved:
	case domain.ResultAuthRequired:
		return nil, domainerrors.AuthRequired(s.loginURL(input.ReturnTo, "/product/"+input.ID))
	default:
		return nil, domainerrors.Unavailable("saved list could not be updated, please try again")
	}

	return &SavedOutput{Body: SavedResponse{
		Result:    out.Result,
		ProductID: input.ID,
		Saved:     out.Saved,
	}}, nil
}

func (s *Server) handleListSaved(ctx context.Context, _ *struct{}) (*ProductsOutput, error) {
	p, err := s.requireUser(ctx, "/saved", "/saved")
	if err != nil {
		return nil, err
	}

	products, err := s.services.Saved.ListSavedProducts(ctx, p)
	if err != nil {
		return nil, err
	}
	return &ProductsOutput{Body: newProductResponses(products)}, nil
}

func (s *Server) handleListSavedIDs(ctx context.Context, _ *struct{}) (*SavedIDsOutput, error) {
	p, err := s.requireUser(ctx, "/saved", "/saved")
	if err != nil {
		return nil, err
	}

	ids, err := s.services.Saved.SavedIDs(ctx, p)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return &SavedIDsOutput{Body: SavedIDsResponse{ProductIDs: ids}}, nil
}

func (s *Server) countSave(result domain.ToggleResult) {
	if s.infra.Metrics != nil {
		s.infra.Metrics.SaveToggles.WithLabelValues(string(result)).Inc()
	}
}
