package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/domain"
	"github.com/purriosity/purriosity-server/internal/logger"
)

func TestMapProduct_Defaults(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewMapper(nil)
	m.now = func() time.Time { return now }

	rows := []backend.Row{
		{},
		{"id": "p1"},
		{"id": "p2", "title": nil, "tags": nil, "price": nil},
		{"id": "p3", "purrCount": "12", "is_active": "yes"},
	}
	for _, row := range rows {
		p := m.MapProduct(row)
		assert.NotNil(t, p.Images)
		assert.NotNil(t, p.Tags)
		assert.NotNil(t, p.Categories)
		assert.Zero(t, p.Price)
		assert.Zero(t, p.PurrCount)
		assert.Equal(t, domain.DefaultCurrency, p.Currency)
		assert.Equal(t, now, p.CreatedAt)
		assert.True(t, p.IsActive)
	}
}

func TestMapProduct_KeyPrecedence(t *testing.T) {
	m := NewMapper(nil)

	p := m.MapProduct(backend.Row{
		"id":                 "p1",
		"shortDescription":   "camel",
		"short_description":  "snake",
		"affiliate_url":      "https://example.com/a",
		"price":              "24.99",
		"purr_count":         float64(4),
		"purrCount":          float64(9),
		"viewCount":          float64(3),
		"star_rating":        4.5,
		"featured_image_url": "https://img/1.jpg",
		"created_at":         "2024-02-03T04:05:06Z",
		"isActive":           false,
	})

	assert.Equal(t, "camel", p.ShortDescription)
	assert.Equal(t, "https://example.com/a", p.AffiliateURL)
	assert.InDelta(t, 24.99, p.Price, 1e-9)
	assert.Equal(t, 4, p.PurrCount)
	assert.Equal(t, 3, p.ViewCount)
	assert.Equal(t, 4.5, p.StarRating)
	assert.Equal(t, []string{"https://img/1.jpg"}, p.Images)
	assert.Equal(t, 2024, p.CreatedAt.Year())
	assert.False(t, p.IsActive)
}

func TestMapProduct_ImagesWinOverFeatured(t *testing.T) {
	p := NewMapper(nil).MapProduct(backend.Row{
		"images":             []any{"a.jpg", "b.jpg"},
		"featured_image_url": "f.jpg",
	})
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, p.Images)
	assert.Equal(t, "a.jpg", p.PrimaryImage())
}

func TestMapProduct_FoldsSynonymsOnce(t *testing.T) {
	p := NewMapper(nil).MapProduct(backend.Row{
		"tags":       []any{"cute", "niedlich", "Spielzeug", "toy", "Budget"},
		"categories": []any{"Gift", "geschenke"},
	})

	assert.Equal(t, []string{"Niedlich", "Spielzeug", "Budget"}, p.Tags)
	assert.Equal(t, []string{"Geschenke"}, p.Categories)
}

func TestFold_KeepsFirstSeenCasingForUnknownTags(t *testing.T) {
	got := fold(DefaultSynonyms(), []string{"Katzenminze", "KATZENMINZE", " katzenminze ", ""})
	assert.Equal(t, []string{"Katzenminze"}, got)
}

func TestFilterByCategory(t *testing.T) {
	m := NewMapper(nil)
	products := []domain.Product{
		{ID: "tagged", Tags: []string{"Niedlich", "Spielzeug"}},
		{ID: "categorized", Tags: []string{"Niedlich"}, Categories: []string{"Luxus"}},
		{ID: "plain"},
	}

	ids := func(ps []domain.Product) []string {
		out := []string{}
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	assert.Equal(t, []string{"tagged"}, ids(m.FilterByCategory(products, "Niedlich")))
	assert.Equal(t, []string{"tagged"}, ids(m.FilterByCategory(products, "cute")))
	assert.Equal(t, []string{"categorized"}, ids(m.FilterByCategory(products, "luxus")))
	assert.Len(t, m.FilterByCategory(products, domain.AllCategory), 3)
	assert.Len(t, m.FilterByCategory(products, ""), 3)
	assert.Empty(t, m.FilterByCategory(products, "Pflege"))
}

func TestEndToEnd_MapThenFilter(t *testing.T) {
	m := NewMapper(nil)
	products := m.MapProducts([]backend.Row{{"id": "p", "tags": []any{"Niedlich", "Spielzeug"}}})

	assert.Len(t, m.FilterByCategory(products, "Niedlich"), 1)
	assert.Empty(t, m.FilterByCategory(products, "Luxus"))
}

func TestNewSynonyms_RejectsConflicts(t *testing.T) {
	_, err := NewSynonyms(map[string][]string{"A": {"x"}, "B": {"X"}})
	assert.Error(t, err)

	_, err = NewSynonyms(map[string][]string{"A": {" "}})
	assert.Error(t, err)
}

func TestParseSynonyms(t *testing.T) {
	syn, err := ParseSynonyms([]byte("synonyms:\n  Flauschig: [fluffy, weich]\n"))
	require.NoError(t, err)
	assert.Equal(t, "Flauschig", syn.Canonical("FLUFFY"))
	assert.Equal(t, "cute", syn.Canonical("cute"), "replaced table drops defaults")

	_, err = ParseSynonyms([]byte("other: 1\n"))
	assert.Error(t, err)
	_, err = ParseSynonyms([]byte("synonyms: [\n"))
	assert.Error(t, err)
}

func TestSynonyms_Aliases(t *testing.T) {
	syn, err := NewSynonyms(map[string][]string{"Flauschig": {"fluffy", "weich"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"Flauschig", "flauschig", "fluffy", "weich"}, syn.Aliases("Flauschig"))
	assert.Equal(t, []string{"Flauschig", "FLUFFY", "flauschig", "fluffy", "weich"}, syn.Aliases("FLUFFY"))
	assert.Equal(t, []string{"Budget", "budget"}, syn.Aliases("Budget"))
	assert.Empty(t, syn.Aliases("  "))
}

func TestMapper_SetSynonymsChangesMapping(t *testing.T) {
	m := NewMapper(nil)
	row := backend.Row{"tags": []any{"fluffy"}}
	assert.Equal(t, []string{"fluffy"}, m.MapProduct(row).Tags)

	syn, err := NewSynonyms(map[string][]string{"Flauschig": {"fluffy"}})
	require.NoError(t, err)
	m.SetSynonyms(syn)
	assert.Equal(t, []string{"Flauschig"}, m.MapProduct(row).Tags)

	m.SetSynonyms(nil)
	assert.Same(t, syn, m.Synonyms())
}

func TestSynonymWatcher_Reloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synonyms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("synonyms:\n  Flauschig: [fluffy]\n"), 0o600))

	m := NewMapper(nil)
	w, err := NewSynonymWatcher(path, m, logger.Discard())
	require.NoError(t, err)
	w.settle = 50 * time.Millisecond
	failed := make(chan struct{}, 16)
	w.onReload = func(err error) {
		if err != nil {
			failed <- struct{}{}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("synonyms:\n  Weich: [fluffy]\n"), 0o600))
	assert.Eventually(t, func() bool {
		return m.Synonyms().Canonical("fluffy") == "Weich"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("synonyms: [\n"), 0o600))
	select {
	case <-failed:
	case <-time.After(5 * time.Second):
		t.Fatal("broken file was never read")
	}
	assert.Equal(t, "Weich", m.Synonyms().Canonical("fluffy"), "bad file keeps previous table")
}
