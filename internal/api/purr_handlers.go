package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/purriosity/purriosity-server/internal/auth"
	"github.com/purriosity/purriosity-server/internal/domain"
	domainerrors "github.com/purriosity/purriosity-server/internal/errors"
)

func (s *Server) registerPurrRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getPurr",
		Method:      http.MethodGet,
		Path:        "/api/v1/products/{id}/purr",
		Summary:     "Get purr state",
		Description: "Returns the purr count and whether the caller purred the product",
		Tags:        []string{"Purrs"},
		Security:    []map[string][]string{{"bearer": {}}, {}},
	}, s.handleGetPurr)

	huma.Register(s.api, huma.Operation{
		OperationID: "togglePurr",
		Method:      http.MethodPost,
		Path:        "/api/v1/products/{id}/purr",
		Summary:     "Toggle purr",
		Description: "Purrs or un-purrs a product. Anonymous callers get AUTH_REQUIRED with a login_url",
		Tags:        []string{"Purrs"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleTogglePurr)
}

// === DTOs ===

// PurrInput identifies the product of a purr request.
type PurrInput struct {
	ID       string `path:"id" doc:"Product ID"`
	ReturnTo string `query:"return_to" doc:"Local path to come back to after sign-in"`
}

// PurrResponse is the purr button state.
type PurrResponse struct {
	Result       domain.ToggleResult `json:"result,omitempty" enum:"liked,unliked" doc:"Toggle result"`
	ProductID    string              `json:"product_id" doc:"Product ID"`
	Liked        bool                `json:"liked" doc:"Whether the caller purred the product"`
	Count        int                 `json:"count" doc:"Total purrs"`
	CountDisplay string              `json:"count_display" doc:"Abbreviated purr count"`
}

// PurrOutput wraps the purr state for Huma.
type PurrOutput struct {
	Body PurrResponse
}

// === Handlers ===

func (s *Server) handleGetPurr(ctx context.Context, input *PurrInput) (*PurrOutput, error) {
	state, err := s.services.Purr.State(ctx, auth.FromContext(ctx), input.ID)
	if err != nil {
		return nil, err
	}

	return &PurrOutput{Body: PurrResponse{
		ProductID:    input.ID,
		Liked:        state.Liked,
		Count:        state.Count,
		CountDisplay: domain.FormatPurrCount(state.Count),
	}}, nil
}

func (s *Server) handleTogglePurr(ctx context.Context, input *PurrInput) (*PurrOutput, error) {
	p, err := s.requireUser(ctx, input.ReturnTo, "/product/"+input.ID)
	if err != nil {
		s.countPurr(domain.ResultAuthRequired)
		return nil, err
	}

	out := s.services.Purr.Toggle(ctx, p, input.ID)
	s.countPurr(out.Result)

	switch out.Result {
	case domain.ResultLiked, domain.ResultUnliked:
	case domain.ResultAuthRequired:
		return nil, domainerrors.AuthRequired(s.loginURL(input.ReturnTo, "/product/"+input.ID))
	default:
		return nil, domainerrors.Unavailable("purr could not be saved, please try again")
	}

	return &PurrOutput{Body: PurrResponse{
		Result:       out.Result,
		ProductID:    input.ID,
		Liked:        out.Liked,
		Count:        out.Count,
		CountDisplay: domain.FormatPurrCount(out.Count),
	}}, nil
}

func (s *Server) countPurr(result domain.ToggleResult) {
	if s.infra.Metrics != nil {
		s.infra.Metrics.PurrToggles.WithLabelValues(string(result)).Inc()
	}
}
