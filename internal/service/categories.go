package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/domain"
	domainerrors "github.com/purriosity/purriosity-server/internal/errors"
	"github.com/purriosity/purriosity-server/internal/sse"
	"github.com/purriosity/purriosity-server/internal/validation"
)

// categoryFallbackRetry is how long Current serves the fallback list before
// reading the table again.
const categoryFallbackRetry = 30 * time.Second

// CategoryList is the category chips in display order.
type CategoryList struct {
	Categories []domain.Category `json:"categories"`
	// UsingFallback is set when the table could not be read and the built-in
	// list is shown instead; edits will not persist.
	UsingFallback bool `json:"using_fallback"`
}

// CategoryService manages the curated category list.
type CategoryService struct {
	client    backend.Client
	events    EventEmitter
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time

	// last built list, for suggestion lookups
	current atomic.Pointer[loadedCategories]
}

type loadedCategories struct {
	list CategoryList
	at   time.Time
}

// NewCategoryService creates a new category service.
func NewCategoryService(client backend.Client, events EventEmitter, validator *validation.Validator, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		client:    client,
		events:    emitterOrNoop(events),
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns the categories ordered by display_order. It never fails:
// a read error yields the default list with UsingFallback set, and an empty
// table yields the default list without it.
func (s *CategoryService) List(ctx context.Context) CategoryList {
	rows, err := s.client.Select(ctx, backend.From(backend.TableCategories).OrderBy("display_order", false))
	var list CategoryList
	switch {
	case err != nil:
		s.logger.Warn("failed to load categories, using defaults", "error", err)
		list = CategoryList{Categories: domain.DefaultCategories(s.now()), UsingFallback: true}
	case len(rows) == 0:
		list = CategoryList{Categories: domain.DefaultCategories(s.now())}
	default:
		cats := make([]domain.Category, 0, len(rows))
		for _, r := range rows {
			cats = append(cats, s.mapCategory(r))
		}
		list = CategoryList{Categories: cats}
	}
	s.current.Store(&loadedCategories{list: list, at: s.now()})
	return list
}

// Current returns the most recently loaded list, loading it on first use.
// A fallback list is replaced by a fresh read once categoryFallbackRetry
// has passed.
func (s *CategoryService) Current(ctx context.Context) CategoryList {
	loaded := s.current.Load()
	if loaded == nil {
		return s.List(ctx)
	}
	if loaded.list.UsingFallback && s.now().Sub(loaded.at) >= categoryFallbackRetry {
		return s.List(ctx)
	}
	return loaded.list
}

// Add appends a category after the last one.
func (s *CategoryService) Add(ctx context.Context, input domain.CategoryInput) (domain.Category, error) {
	if err := s.validator.Validate(input); err != nil {
		return domain.Category{}, err
	}

	last, err := s.client.Select(ctx, backend.From(backend.TableCategories).
		Select("display_order").
		OrderBy("display_order", true).
		Take(1))
	if err != nil {
		s.logger.Error("failed to read category order", "error", err)
		return domain.Category{}, writeError(err, "failed to add category")
	}
	order := 0
	if len(last) > 0 {
		if n, ok := last[0].Number("display_order"); ok {
			order = int(n) + 1
		}
	}

	rows, err := s.client.Insert(ctx, backend.TableCategories, backend.Row{
		"name":          input.Name,
		"emoji":         input.Emoji,
		"display_order": order,
	})
	if err != nil {
		s.logger.Error("failed to add category", "name", input.Name, "error", err)
		return domain.Category{}, writeError(err, "failed to add category")
	}
	if len(rows) == 0 {
		return domain.Category{}, domainerrors.Internal("backend returned no category")
	}

	cat := s.mapCategory(rows[0])
	s.logger.Info("category added", "category_id", cat.ID, "name", cat.Name, "display_order", order)
	s.changed(ctx)
	return cat, nil
}

// Update renames a category or changes its emoji.
func (s *CategoryService) Update(ctx context.Context, id string, input domain.CategoryInput) (domain.Category, error) {
	if err := s.validator.Validate(input); err != nil {
		return domain.Category{}, err
	}

	rows, err := s.client.Update(ctx, backend.From(backend.TableCategories).Eq("id", id), backend.Row{
		"name":       input.Name,
		"emoji":      input.Emoji,
		"updated_at": s.now().UTC(),
	})
	if err != nil {
		s.logger.Error("failed to update category", "category_id", id, "error", err)
		return domain.Category{}, writeError(err, "failed to update category")
	}
	if len(rows) == 0 {
		return domain.Category{}, domainerrors.NotFoundf("category %s not found", id)
	}

	cat := s.mapCategory(rows[0])
	s.changed(ctx)
	return cat, nil
}

// Delete removes a category. Products keep their labels.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if err := s.client.Delete(ctx, backend.From(backend.TableCategories).Eq("id", id)); err != nil {
		s.logger.Error("failed to delete category", "category_id", id, "error", err)
		return writeError(err, "failed to delete category")
	}
	s.logger.Info("category deleted", "category_id", id)
	s.changed(ctx)
	return nil
}

// Reorder writes display_order = index for each id, one update per category,
// in order. It stops at the first failure and returns how many were written;
// earlier writes are not undone.
func (s *CategoryService) Reorder(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, domainerrors.Validation("category order is empty")
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return 0, domainerrors.Validationf("category %s listed twice", id)
		}
		seen[id] = struct{}{}
	}

	written := 0
	for i, id := range ids {
		_, err := s.client.Update(ctx, backend.From(backend.TableCategories).Eq("id", id), backend.Row{
			"display_order": i,
			"updated_at":    s.now().UTC(),
		})
		if err != nil {
			s.logger.Error("category reorder stopped",
				"category_id", id,
				"position", i,
				"written", written,
				"error", err,
			)
			if written > 0 {
				s.changed(ctx)
			}
			return written, writeError(err, "failed to reorder categories")
		}
		written++
	}

	s.changed(ctx)
	return written, nil
}

// changed reloads the list and announces it.
func (s *CategoryService) changed(ctx context.Context) {
	list := s.List(ctx)
	s.events.Emit(sse.NewCategoriesChangedEvent(list.Categories))
}

func (s *CategoryService) mapCategory(r backend.Row) domain.Category {
	c := domain.Category{
		ID:    r.StringOr("", "id"),
		Name:  r.StringOr("", "name"),
		Emoji: r.StringOr("", "emoji"),
	}
	if n, ok := r.Number("display_order"); ok {
		c.DisplayOrder = int(n)
	}
	c.CreatedAt, _ = r.Time("created_at")
	c.UpdatedAt, _ = r.Time("updated_at")
	return c
}
