package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/backend/backendtest"
	"github.com/purriosity/purriosity-server/internal/domain"
	domainerrors "github.com/purriosity/purriosity-server/internal/errors"
	"github.com/purriosity/purriosity-server/internal/logger"
	"github.com/purriosity/purriosity-server/internal/sse"
)

func seedCatalog(t *testing.T, env *testEnv) {
	t.Helper()
	env.seed(t, backend.TableProducts,
		product("p1", "Plüschmaus", 1, "Niedlich", "Spielzeug"),
		product("p2", "Federangel", 2, "Spielzeug"),
		product("p3", "Samtkissen", 3, "Luxus"),
		inactive(product("p4", "Alte Bürste", 4, "Niedlich")),
		product("p5", "Kuschelhöhle", 5, "Niedlich"),
	)
}

func TestProductService_List_NewestFirstActiveOnly(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)

	products, err := env.products().List(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p5", "p3", "p2", "p1"}, productIDs(products))
}

func TestProductService_List_FiltersByCategory(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)
	svc := env.products()

	cute, err := svc.List(context.Background(), ListOptions{Category: "Niedlich"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p5", "p1"}, productIDs(cute))

	luxury, err := svc.List(context.Background(), ListOptions{Category: "luxus"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p3"}, productIDs(luxury))

	all, err := svc.List(context.Background(), ListOptions{Category: domain.AllCategory, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"p5", "p3"}, productIDs(all))
}

func TestProductService_List_BackendError(t *testing.T) {
	env := newTestEnv(t)
	env.rec.FailNext(backendtest.OpSelect, backend.TableProducts, errBoom)

	_, err := env.products().List(context.Background(), ListOptions{})
	assert.ErrorIs(t, err, domainerrors.ErrUnavailable)
}

func TestProductService_Get_HidesInactive(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)
	svc := env.products()

	p, err := svc.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Plüschmaus", p.Title)

	_, err = svc.Get(context.Background(), "p4")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	hidden, err := svc.GetAny(context.Background(), "p4")
	require.NoError(t, err)
	assert.False(t, hidden.IsActive)
}

func TestProductService_Related_SharesTagAndExcludesSource(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)
	svc := env.products()

	source, err := svc.Get(context.Background(), "p1")
	require.NoError(t, err)

	related := svc.Related(context.Background(), source, 6)
	assert.Equal(t, []string{"p5", "p2"}, productIDs(related))
	assert.NotContains(t, productIDs(related), "p1")
}

func TestProductService_Related_MatchesRawSynonymTags(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, backend.TableProducts,
		product("a", "Pfotenkissen", 1, "cute"),
		product("b", "Mauskissen", 2, "cute"),
		product("c", "Katzenbett", 3, "süß"),
		product("z1", "Gurkenlampe", 9, "weird"),
	)
	svc := env.products()

	source, err := svc.Get(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, []string{"Niedlich"}, source.Tags)

	related := svc.Related(context.Background(), source, 1)
	assert.Equal(t, []string{"c"}, productIDs(related))

	related = svc.Related(context.Background(), source, 6)
	assert.Equal(t, []string{"c", "b"}, productIDs(related))
}

func TestProductService_Related_NoTagsSkipsOverlapQuery(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)

	// p4 is inactive and dropped after the limit.
	related := env.products().Related(context.Background(), domain.Product{ID: "p3"}, 3)
	assert.Equal(t, []string{"p5", "p2"}, productIDs(related))

	selects := env.rec.Calls(backendtest.OpSelect)
	require.Len(t, selects, 1)
	for _, f := range selects[0].Query.Filters {
		assert.NotEqual(t, backend.OpOverlaps, f.Op)
	}
}

func TestProductService_Related_FallsBackWhenNothingOverlaps(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)

	related := env.products().Related(context.Background(),
		domain.Product{ID: "p3", Tags: []string{"Luxus"}}, 6)
	assert.Equal(t, []string{"p5", "p2", "p1"}, productIDs(related))
	assert.Equal(t, 2, env.rec.Count(backendtest.OpSelect, backend.TableProducts))
}

func TestProductService_Related_FallsBackOnError(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)
	env.rec.FailNext(backendtest.OpSelect, backend.TableProducts, errBoom)

	related := env.products().Related(context.Background(),
		domain.Product{ID: "p1", Tags: []string{"Niedlich"}}, 6)
	assert.NotContains(t, productIDs(related), "p1")
	assert.Len(t, related, 3)
}

func TestProductService_Related_NeverFails(t *testing.T) {
	env := newTestEnv(t)
	env.rec.FailAlways(backendtest.OpSelect, backend.TableProducts, errBoom)

	related := env.products().Related(context.Background(),
		domain.Product{ID: "p1", Tags: []string{"Niedlich"}}, 6)
	assert.NotNil(t, related)
	assert.Empty(t, related)
}

func TestProductService_Create(t *testing.T) {
	env := newTestEnv(t)
	svc := env.products()

	p, err := svc.Create(context.Background(), domain.ProductInput{
		Title:        "Kratzbrett",
		Description:  "Aus Wellpappe.",
		Price:        12.5,
		AffiliateURL: "https://shop.example/kratzbrett",
		Tags:         []string{"Spielzeug"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.True(t, p.IsActive)
	assert.Equal(t, domain.DefaultCurrency, p.Currency)
	assert.Equal(t, 0, p.PurrCount)

	inserts := env.rec.Calls(backendtest.OpInsert)
	require.Len(t, inserts, 1)
	assert.Equal(t, true, inserts[0].Rows[0]["is_active"])

	created := env.events.ofType(sse.EventProductCreated)
	assert.Len(t, created, 1)
}

func TestProductService_Create_WithoutActiveColumn(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProductService(env.rec, env.mapper, env.events, env.validator, Capabilities{}, logger.Discard())

	_, err := svc.Create(context.Background(), domain.ProductInput{Title: "Napf", Price: 4})
	require.NoError(t, err)

	inserts := env.rec.Calls(backendtest.OpInsert)
	require.Len(t, inserts, 1)
	assert.NotContains(t, inserts[0].Rows[0], "is_active")
}

func TestProductService_Create_Validation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.products().Create(context.Background(), domain.ProductInput{Title: "  "})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Zero(t, env.rec.Count(backendtest.OpInsert, ""))
}

func TestProductService_Update(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)
	svc := env.products()
	off := false

	p, err := svc.Update(context.Background(), "p2", domain.ProductInput{
		Title:    "Federangel XL",
		Price:    7,
		IsActive: &off,
	})
	require.NoError(t, err)
	assert.Equal(t, "Federangel XL", p.Title)
	assert.False(t, p.IsActive)

	_, err = svc.Update(context.Background(), "missing", domain.ProductInput{Title: "x"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestProductService_Delete(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)
	svc := env.products()

	require.NoError(t, svc.Delete(context.Background(), "p2"))
	_, err := svc.GetAny(context.Background(), "p2")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Len(t, env.events.ofType(sse.EventProductDeleted), 1)

	err = svc.Delete(context.Background(), "p2")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestProductService_RecordView(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)
	svc := env.products()

	require.NoError(t, svc.RecordView(context.Background(), "p1"))
	require.NoError(t, svc.RecordView(context.Background(), "p1"))

	p, err := svc.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.ViewCount)

	assert.ErrorIs(t, svc.RecordView(context.Background(), "p4"), domainerrors.ErrNotFound)
}
