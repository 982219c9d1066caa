package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/catalog"
	"github.com/purriosity/purriosity-server/internal/domain"
	domainerrors "github.com/purriosity/purriosity-server/internal/errors"
)

// Search limits.
const (
	SearchProductLimit    = 10
	SearchSuggestionLimit = 5
)

// ErrSearchFailed is the generic error shown when the backend query fails.
var ErrSearchFailed = domainerrors.Unavailable("search failed")

// SearchResult is the search dropdown content.
type SearchResult struct {
	Query       string           `json:"query"`
	Products    []domain.Product `json:"products"`
	Suggestions []string         `json:"suggestions"`
}

// SearchService runs the product search box.
type SearchService struct {
	client     backend.Client
	mapper     *catalog.Mapper
	categories *CategoryService
	logger     *slog.Logger
	fold       cases.Caser
}

// NewSearchService creates a new search service.
func NewSearchService(client backend.Client, mapper *catalog.Mapper, categories *CategoryService, logger *slog.Logger) *SearchService {
	return &SearchService{
		client:     client,
		mapper:     mapper,
		categories: categories,
		logger:     logger,
		fold:       cases.Fold(),
	}
}

// Search returns up to 5 category suggestions and up to 10 active products
// for query. A blank query returns an empty result without touching the
// backend. On a backend failure the suggestions are still returned along
// with ErrSearchFailed.
func (s *SearchService) Search(ctx context.Context, query string) (*SearchResult, error) {
	result := &SearchResult{
		Query:       query,
		Products:    []domain.Product{},
		Suggestions: []string{},
	}
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return result, nil
	}

	result.Suggestions = s.suggest(ctx, strings.TrimSpace(query))

	q := backend.From(backend.TableProducts).Take(SearchProductLimit)
	var group []backend.Filter
	for _, term := range terms {
		if plain := escapeLike(term); strings.TrimSpace(plain) != "" {
			group = append(group, backend.ILike("title", plain))
		}
		group = append(group,
			backend.Has("tags", term),
			backend.Has("tags", strings.ToLower(term)),
			backend.Has("tags", capitalize(term)),
		)
	}
	q = q.AnyOf(group...)

	rows, err := s.client.Select(ctx, q)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		s.logger.Error("product search failed", "query", query, "error", err)
		return result, ErrSearchFailed.WithCause(err)
	}
	result.Products = s.mapper.MapActive(rows)
	return result, nil
}

// suggest returns category names containing query, skipping the "Alle" bucket.
func (s *SearchService) suggest(ctx context.Context, query string) []string {
	needle := s.fold.String(query)
	out := []string{}
	for _, c := range s.categories.Current(ctx).Categories {
		if c.Name == domain.AllCategory {
			continue
		}
		if strings.Contains(s.fold.String(c.Name), needle) {
			out = append(out, c.Name)
			if len(out) == SearchSuggestionLimit {
				break
			}
		}
	}
	return out
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(term string) string {
	r, size := utf8.DecodeRuneInString(term)
	if r == utf8.RuneError {
		return term
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(term[size:])
}

var likeEscaper = strings.NewReplacer("%", "", "_", "", "*", "", ",", " ", "(", "", ")", "")

// escapeLike strips characters that would act as wildcards or break the filter syntax.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
