package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/backend/backendtest"
	"github.com/purriosity/purriosity-server/internal/domain"
	domainerrors "github.com/purriosity/purriosity-server/internal/errors"
	"github.com/purriosity/purriosity-server/internal/logger"
	"github.com/purriosity/purriosity-server/internal/sse"
)

func addCategories(t *testing.T, svc *CategoryService, names ...string) []domain.Category {
	t.Helper()
	out := make([]domain.Category, 0, len(names))
	for _, name := range names {
		c, err := svc.Add(context.Background(), domain.CategoryInput{Name: name, Emoji: "🐱"})
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

func categoryNames(list CategoryList) []string {
	out := make([]string, len(list.Categories))
	for i, c := range list.Categories {
		out[i] = c.Name
	}
	return out
}

func TestCategoryService_List_EmptyTableUsesDefaults(t *testing.T) {
	env := newTestEnv(t)

	list := env.categories().List(context.Background())
	assert.False(t, list.UsingFallback)
	assert.Len(t, list.Categories, len(domain.DefaultCategories(time.Now())))
	assert.Equal(t, domain.AllCategory, list.Categories[0].Name)
}

func TestCategoryService_List_ErrorUsesFallback(t *testing.T) {
	env := newTestEnv(t)
	env.rec.FailNext(backendtest.OpSelect, backend.TableCategories, errBoom)

	list := env.categories().List(context.Background())
	assert.True(t, list.UsingFallback)
	assert.NotEmpty(t, list.Categories)
}

func TestCategoryService_Add_AppendsAtEnd(t *testing.T) {
	env := newTestEnv(t)
	svc := env.categories()

	cats := addCategories(t, svc, "Spielzeug", "Luxus", "Niedlich")
	for i, c := range cats {
		assert.Equal(t, i, c.DisplayOrder)
		assert.NotEmpty(t, c.ID)
	}

	list := svc.Current(context.Background())
	assert.Equal(t, []string{"Spielzeug", "Luxus", "Niedlich"}, categoryNames(list))
	assert.Len(t, env.events.ofType(sse.EventCategoriesChanged), 3)
}

func TestCategoryService_Current_RetriesAfterFallback(t *testing.T) {
	env := newTestEnv(t)
	svc := env.categories()
	addCategories(t, svc, "Spielzeug")
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	env.rec.FailNext(backendtest.OpSelect, backend.TableCategories, errBoom)
	assert.True(t, svc.List(context.Background()).UsingFallback)

	env.rec.Reset()
	assert.True(t, svc.Current(context.Background()).UsingFallback, "cached within the retry window")
	assert.Zero(t, env.rec.Count(backendtest.OpSelect, backend.TableCategories))

	now = now.Add(categoryFallbackRetry)
	list := svc.Current(context.Background())
	assert.False(t, list.UsingFallback)
	assert.Equal(t, []string{"Spielzeug"}, categoryNames(list))
	assert.Equal(t, 1, env.rec.Count(backendtest.OpSelect, backend.TableCategories))
}

func TestCategoryService_Add_Validation(t *testing.T) {
	env := newTestEnv(t)
	svc := env.categories()

	_, err := svc.Add(context.Background(), domain.CategoryInput{Name: " ", Emoji: "🐱"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.Add(context.Background(), domain.CategoryInput{Name: "Luxus", Emoji: "abc"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	assert.Zero(t, env.rec.Count(backendtest.OpInsert, ""))
}

func TestCategoryService_Update(t *testing.T) {
	env := newTestEnv(t)
	svc := env.categories()
	cats := addCategories(t, svc, "Luxus")

	updated, err := svc.Update(context.Background(), cats[0].ID, domain.CategoryInput{Name: "Premium", Emoji: "💎"})
	require.NoError(t, err)
	assert.Equal(t, "Premium", updated.Name)
	assert.Equal(t, "💎", updated.Emoji)

	_, err = svc.Update(context.Background(), "missing", domain.CategoryInput{Name: "X", Emoji: "💎"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestCategoryService_Delete(t *testing.T) {
	env := newTestEnv(t)
	svc := env.categories()
	cats := addCategories(t, svc, "Luxus", "Spielzeug")

	require.NoError(t, svc.Delete(context.Background(), cats[0].ID))
	assert.Equal(t, []string{"Spielzeug"}, categoryNames(svc.Current(context.Background())))
}

func TestCategoryService_Reorder_PersistsSequentialOrder(t *testing.T) {
	env := newTestEnv(t)
	svc := env.categories()
	cats := addCategories(t, svc, "A", "B", "C")
	env.rec.Reset()

	order := []string{cats[2].ID, cats[0].ID, cats[1].ID}
	written, err := svc.Reorder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	updates := env.rec.Calls(backendtest.OpUpdate)
	require.Len(t, updates, 3)
	for i, u := range updates {
		assert.Equal(t, i, u.Rows[0]["display_order"])
	}

	list := svc.List(context.Background())
	assert.Equal(t, []string{"C", "A", "B"}, categoryNames(list))
	for i, c := range list.Categories {
		assert.Equal(t, i, c.DisplayOrder)
	}
}

func TestCategoryService_Reorder_StopsAtFirstFailure(t *testing.T) {
	env := newTestEnv(t)
	cats := addCategories(t, env.categories(), "A", "B", "C")

	flaky := &failNthUpdate{Client: env.rec, n: 2}
	svc := NewCategoryService(flaky, env.events, env.validator, logger.Discard())

	written, err := svc.Reorder(context.Background(), []string{cats[2].ID, cats[1].ID, cats[0].ID})
	assert.Error(t, err)
	assert.Equal(t, 1, written)
	assert.Equal(t, int32(2), flaky.seen.Load(), "no updates after the failure")
}

func TestCategoryService_Reorder_RejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	svc := env.categories()

	_, err := svc.Reorder(context.Background(), nil)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.Reorder(context.Background(), []string{"1", "2", "1"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	assert.Zero(t, env.rec.Count(backendtest.OpUpdate, ""))
}

// failNthUpdate fails the nth update call.
type failNthUpdate struct {
	backend.Client
	n    int32
	seen atomic.Int32
}

func (f *failNthUpdate) Update(ctx context.Context, q backend.Query, values backend.Row) ([]backend.Row, error) {
	if f.seen.Add(1) == f.n {
		return nil, errBoom
	}
	return f.Client.Update(ctx, q, values)
}
