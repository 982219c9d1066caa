package service

import (
	"context"
	"log/slog"

	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/catalog"
	"github.com/purriosity/purriosity-server/internal/domain"
	domainerrors "github.com/purriosity/purriosity-server/internal/errors"
	"github.com/purriosity/purriosity-server/internal/sse"
	"github.com/purriosity/purriosity-server/internal/validation"
)

// DefaultRelatedLimit is the number of related products shown on a detail page.
const DefaultRelatedLimit = 6

// relatedTagLimit bounds how many source tags the overlap query uses.
const relatedTagLimit = 3

// Capabilities describes optional schema features of the backend.
type Capabilities struct {
	// ProductsHaveIsActive states that products.is_active exists and may be written.
	ProductsHaveIsActive bool
}

// ListOptions filters the public catalog.
type ListOptions struct {
	Category string // "Alle" or empty for everything
	Limit    int    // 0 for no limit
}

// ProductService serves the catalog and the admin product pages.
type ProductService struct {
	client    backend.Client
	mapper    *catalog.Mapper
	events    EventEmitter
	validator *validation.Validator
	caps      Capabilities
	logger    *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(
	client backend.Client,
	mapper *catalog.Mapper,
	events EventEmitter,
	validator *validation.Validator,
	caps Capabilities,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		client:    client,
		mapper:    mapper,
		events:    emitterOrNoop(events),
		validator: validator,
		caps:      caps,
		logger:    logger,
	}
}

// List returns active products, newest first, filtered by category.
func (s *ProductService) List(ctx context.Context, opts ListOptions) ([]domain.Product, error) {
	rows, err := s.client.Select(ctx, backend.From(backend.TableProducts).OrderBy("created_at", true))
	if err != nil {
		s.logger.Error("failed to list products", "category", opts.Category, "error", err)
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to load products")
	}

	products := s.mapper.FilterByCategory(s.mapper.MapActive(rows), opts.Category)
	if opts.Limit > 0 && len(products) > opts.Limit {
		products = products[:opts.Limit]
	}
	return products, nil
}

// Get returns an active product by id.
func (s *ProductService) Get(ctx context.Context, id string) (domain.Product, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if !p.IsActive {
		return domain.Product{}, domainerrors.NotFoundf("product %s not found", id)
	}
	return p, nil
}

// Related returns up to n products sharing a tag with product, falling back
// to the newest other products. It never fails: backend errors are logged
// and an empty list is the worst case.
func (s *ProductService) Related(ctx context.Context, product domain.Product, n int) []domain.Product {
	if n <= 0 {
		n = DefaultRelatedLimit
	}

	if len(product.Tags) > 0 {
		// Stored rows keep raw spellings, so match every alias of each label.
		tags := s.overlapTags(product.Tags[:min(len(product.Tags), relatedTagLimit)])
		q := backend.From(backend.TableProducts).
			Overlaps("tags", tags).
			Neq("id", product.ID).
			OrderBy("created_at", true).
			Take(n)

		rows, err := s.client.Select(ctx, q)
		if err != nil {
			s.logger.Warn("related products query failed, using fallback",
				"product_id", product.ID,
				"error", err,
			)
		} else if related := s.mapper.MapActive(rows); len(related) > 0 {
			return related
		}
	}

	return s.recentExcept(ctx, product.ID, n)
}

// overlapTags expands mapped labels into the raw spellings they fold from.
func (s *ProductService) overlapTags(labels []string) []string {
	syn := s.mapper.Synonyms()
	seen := make(map[string]bool)
	var out []string
	for _, label := range labels {
		for _, tag := range syn.Aliases(label) {
			if !seen[tag] {
				seen[tag] = true
				out = append(out, tag)
			}
		}
	}
	return out
}

// recentExcept returns the n newest active products other than id.
func (s *ProductService) recentExcept(ctx context.Context, id string, n int) []domain.Product {
	q := backend.From(backend.TableProducts).
		Neq("id", id).
		OrderBy("created_at", true).
		Take(n)

	rows, err := s.client.Select(ctx, q)
	if err != nil {
		s.logger.Warn("fallback products query failed", "product_id", id, "error", err)
		return []domain.Product{}
	}
	return s.mapper.MapActive(rows)
}

// ListAll returns every product including inactive ones, newest first.
func (s *ProductService) ListAll(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.client.Select(ctx, backend.From(backend.TableProducts).OrderBy("created_at", true))
	if err != nil {
		s.logger.Error("failed to list products", "error", err)
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to load products")
	}
	return s.mapper.MapProducts(rows), nil
}

// GetAny returns a product by id regardless of is_active.
func (s *ProductService) GetAny(ctx context.Context, id string) (domain.Product, error) {
	return s.find(ctx, id)
}

// Create validates input and inserts a product.
func (s *ProductService) Create(ctx context.Context, input domain.ProductInput) (domain.Product, error) {
	if err := s.validator.Validate(input); err != nil {
		return domain.Product{}, err
	}

	rows, err := s.client.Insert(ctx, backend.TableProducts, s.productRow(input))
	if err != nil {
		s.logger.Error("failed to create product", "title", input.Title, "error", err)
		return domain.Product{}, writeError(err, "failed to create product")
	}
	if len(rows) == 0 {
		return domain.Product{}, domainerrors.Internal("backend returned no product")
	}

	p := s.mapper.MapProduct(rows[0])
	s.events.Emit(sse.NewProductCreatedEvent(p))
	s.logger.Info("product created", "product_id", p.ID, "title", p.Title)
	return p, nil
}

// Update replaces the editable fields of a product.
func (s *ProductService) Update(ctx context.Context, id string, input domain.ProductInput) (domain.Product, error) {
	if err := s.validator.Validate(input); err != nil {
		return domain.Product{}, err
	}

	rows, err := s.client.Update(ctx, backend.From(backend.TableProducts).Eq("id", id), s.productRow(input))
	if err != nil {
		s.logger.Error("failed to update product", "product_id", id, "error", err)
		return domain.Product{}, writeError(err, "failed to update product")
	}
	if len(rows) == 0 {
		return domain.Product{}, domainerrors.NotFoundf("product %s not found", id)
	}

	p := s.mapper.MapProduct(rows[0])
	s.events.Emit(sse.NewProductUpdatedEvent(p))
	s.logger.Info("product updated", "product_id", p.ID)
	return p, nil
}

// Delete removes a product. Likes and saves go with it.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.client.Delete(ctx, backend.From(backend.TableProducts).Eq("id", id)); err != nil {
		s.logger.Error("failed to delete product", "product_id", id, "error", err)
		return writeError(err, "failed to delete product")
	}

	s.events.Emit(sse.NewProductDeletedEvent(id))
	s.logger.Info("product deleted", "product_id", id)
	return nil
}

// RecordView increments the view counter. Concurrent views may overwrite
// each other; the counter is informational.
func (s *ProductService) RecordView(ctx context.Context, id string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.client.Update(ctx,
		backend.From(backend.TableProducts).Eq("id", id),
		backend.Row{"view_count": p.ViewCount + 1},
	)
	if err != nil {
		s.logger.Warn("failed to record product view", "product_id", id, "error", err)
		return writeError(err, "failed to record view")
	}
	return nil
}

func (s *ProductService) find(ctx context.Context, id string) (domain.Product, error) {
	rows, err := s.client.Select(ctx, backend.From(backend.TableProducts).Eq("id", id).Take(1))
	if err != nil {
		s.logger.Error("failed to load product", "product_id", id, "error", err)
		return domain.Product{}, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "failed to load product")
	}
	if len(rows) == 0 {
		return domain.Product{}, domainerrors.NotFoundf("product %s not found", id)
	}
	return s.mapper.MapProduct(rows[0]), nil
}

// productRow converts admin input to a products row. Tags and categories
// are stored as entered; folding happens when rows are read.
func (s *ProductService) productRow(input domain.ProductInput) backend.Row {
	currency := input.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	row := backend.Row{
		"title":             input.Title,
		"description":       input.Description,
		"short_description": input.ShortDescription,
		"images":            nonNil(input.Images),
		"price":             input.Price,
		"currency":          currency,
		"affiliate_url":     input.AffiliateURL,
		"star_rating":       input.StarRating,
		"tags":              nonNil(input.Tags),
		"categories":        nonNil(input.Categories),
	}
	if s.caps.ProductsHaveIsActive {
		active := true
		if input.IsActive != nil {
			active = *input.IsActive
		}
		row["is_active"] = active
	}
	return row
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
