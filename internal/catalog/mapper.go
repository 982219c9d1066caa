// Package catalog turns backend rows into products and filters them.
//
// Tag and category labels are folded through a synonym table at mapping
// time, not at storage time: stored rows keep their raw labels, so changing
// the table changes how existing rows map.
package catalog

import (
	"sync/atomic"
	"time"

	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/domain"
)

// Mapper converts rows to products using the current synonym table.
// It is safe for concurrent use; the table can be swapped at runtime.
type Mapper struct {
	synonyms atomic.Pointer[Synonyms]
	now      func() time.Time
}

// NewMapper creates a mapper. A nil table means DefaultSynonyms.
func NewMapper(synonyms *Synonyms) *Mapper {
	if synonyms == nil {
		synonyms = DefaultSynonyms()
	}
	m := &Mapper{now: time.Now}
	m.synonyms.Store(synonyms)
	return m
}

// Synonyms returns the table in use.
func (m *Mapper) Synonyms() *Synonyms {
	return m.synonyms.Load()
}

// SetSynonyms replaces the table. Rows mapped afterwards use the new table.
func (m *Mapper) SetSynonyms(s *Synonyms) {
	if s != nil {
		m.synonyms.Store(s)
	}
}

// MapProduct builds a fully populated product from a row of unknown shape.
// snake_case and camelCase keys are both accepted; missing fields get
// defaults so callers never need nil checks.
func (m *Mapper) MapProduct(row backend.Row) domain.Product {
	syn := m.synonyms.Load()

	p := domain.Product{
		ID:               row.StringOr("", "id"),
		Title:            row.StringOr("", "title"),
		Description:      row.StringOr("", "description"),
		ShortDescription: row.StringOr("", "shortDescription", "short_description"),
		Currency:         row.StringOr(domain.DefaultCurrency, "currency"),
		AffiliateURL:     row.StringOr("", "affiliateUrl", "affiliate_url"),
		IsActive:         true,
	}

	if images, ok := row.Strings("images"); ok {
		p.Images = images
	} else if featured, ok := row.String("featured_image_url"); ok && featured != "" {
		p.Images = []string{featured}
	} else {
		p.Images = []string{}
	}

	if price, ok := row.Number("price"); ok {
		p.Price = price
	}
	if n, ok := row.NumberStrict("purr_count", "purrCount"); ok {
		p.PurrCount = int(n)
	}
	if n, ok := row.NumberStrict("view_count", "viewCount"); ok {
		p.ViewCount = int(n)
	}
	if n, ok := row.NumberStrict("star_rating", "starRating"); ok {
		p.StarRating = n
	}

	tags, _ := row.Strings("tags")
	p.Tags = fold(syn, tags)
	categories, _ := row.Strings("categories")
	p.Categories = fold(syn, categories)

	if created, ok := row.Time("createdAt", "created_at"); ok {
		p.CreatedAt = created
	} else {
		p.CreatedAt = m.now()
	}

	if active, ok := row.Bool("is_active", "isActive"); ok {
		p.IsActive = active
	}

	return p
}

// MapProducts maps every row, preserving order.
func (m *Mapper) MapProducts(rows []backend.Row) []domain.Product {
	out := make([]domain.Product, len(rows))
	for i, r := range rows {
		out[i] = m.MapProduct(r)
	}
	return out
}

// MapActive maps rows and drops inactive products.
func (m *Mapper) MapActive(rows []backend.Row) []domain.Product {
	return domain.ActiveOnly(m.MapProducts(rows))
}

// Normalize folds labels through the current table and de-duplicates them.
func (m *Mapper) Normalize(labels []string) []string {
	return fold(m.synonyms.Load(), labels)
}

// fold maps labels to their canonical form and drops case-insensitive
// duplicates, keeping the first-seen spelling. Never returns nil.
func fold(syn *Synonyms, labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		label := syn.Canonical(l)
		if label == "" {
			continue
		}
		key := foldKey(label)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, label)
	}
	return out
}
