package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/backend/backendtest"
	"github.com/purriosity/purriosity-server/internal/domain"
	"github.com/purriosity/purriosity-server/internal/media"
	"github.com/purriosity/purriosity-server/internal/service"
)

func TestAdmin_Gate(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/admin/stats")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	env := decodeError(t, resp)
	assert.Equal(t, "AUTH_REQUIRED", env.Code)
	assert.Contains(t, string(env.Details), "redirect=%2Fadmin")

	resp = ts.api.Get("/api/v1/admin/stats", bearer(t, userID))
	require.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, resp).Code)

	resp = ts.api.Get("/api/v1/admin/stats", bearer(t, "user-unknown"))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAdmin_Profile(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/admin/me", bearer(t, userID))
	require.Equal(t, http.StatusOK, resp.Code)
	profile := decodeData[domain.AdminProfile](t, resp)
	assert.Equal(t, userID, profile.ID)
	assert.False(t, profile.IsAdmin)

	resp = ts.api.Get("/api/v1/admin/me", bearer(t, adminID))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, decodeData[domain.AdminProfile](t, resp).IsAdmin)
}

func TestAdmin_Stats(t *testing.T) {
	ts := setupTestServer(t)
	seedCatalog(t, ts)

	resp := ts.api.Get("/api/v1/admin/stats", bearer(t, adminID))
	require.Equal(t, http.StatusOK, resp.Code)

	stats := decodeData[domain.DashboardStats](t, resp)
	assert.Equal(t, 4, stats.Products)
	assert.Equal(t, 3, stats.ActiveProducts)
	assert.Equal(t, 1500, stats.TotalPurrs)
	assert.Equal(t, 1, stats.Admins)
}

func TestAdmin_ProductLifecycle(t *testing.T) {
	ts := setupTestServer(t)
	auth := bearer(t, adminID)

	resp := ts.api.Post("/api/v1/admin/products", auth, map[string]any{
		"title":      "Kuschelhöhle",
		"price":      24.9,
		"tags":       []string{"Schlafen"},
		"categories": []string{"Niedlich"},
		"is_active":  false,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	created := decodeData[domain.Product](t, resp)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "EUR", created.Currency)
	assert.False(t, created.IsActive)

	// Inactive products are hidden from the shop but visible to admins.
	assert.Equal(t, http.StatusNotFound, ts.api.Get("/api/v1/products/"+created.ID).Code)
	resp = ts.api.Get("/api/v1/admin/products/"+created.ID, auth)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Put("/api/v1/admin/products/"+created.ID, auth, map[string]any{
		"title":     "Kuschelhöhle XL",
		"price":     29.9,
		"is_active": true,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decodeData[domain.Product](t, resp)
	assert.Equal(t, "Kuschelhöhle XL", updated.Title)
	assert.True(t, updated.IsActive)

	resp = ts.api.Get("/api/v1/admin/products", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeData[[]domain.Product](t, resp), 1)

	resp = ts.api.Delete("/api/v1/admin/products/"+created.ID, auth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, http.StatusNotFound, ts.api.Get("/api/v1/admin/products/"+created.ID, auth).Code)
}

func TestAdmin_ProductValidation(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/admin/products", bearer(t, adminID), map[string]any{
		"title": "",
		"price": -1,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "VALIDATION", decodeError(t, resp).Code)
	assert.Zero(t, ts.backend.Count(backendtest.OpInsert, backend.TableProducts))
}

func TestAdmin_ProductRequiresAdmin(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/admin/products", bearer(t, userID), map[string]any{"title": "Napf", "price": 5})
	require.Equal(t, http.StatusForbidden, resp.Code)
	assert.Zero(t, ts.backend.Count(backendtest.OpInsert, backend.TableProducts))
}

func TestAdmin_BlogLifecycle(t *testing.T) {
	ts := setupTestServer(t)
	auth := bearer(t, adminID)

	resp := ts.api.Post("/api/v1/admin/blog", auth, map[string]any{
		"title": "Warum Katzen schnurren",
		"html":  "<p>Schnurren ist <strong>Wohlfühlen</strong>.</p>",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	post := decodeData[domain.BlogPost](t, resp)
	assert.Equal(t, "warum-katzen-schnurren", post.Slug)
	assert.Contains(t, post.Content, "**Wohlfühlen**")
	assert.NotEmpty(t, post.Excerpt)

	// Same title again gets a numbered slug.
	resp = ts.api.Post("/api/v1/admin/blog", auth, map[string]any{"title": "Warum Katzen schnurren", "content": "Nochmal."})
	require.Equal(t, http.StatusOK, resp.Code)
	second := decodeData[domain.BlogPost](t, resp)
	assert.Equal(t, "warum-katzen-schnurren-2", second.Slug)

	resp = ts.api.Put("/api/v1/admin/blog/"+post.ID, auth, map[string]any{
		"title":   "Warum Katzen wirklich schnurren",
		"content": "Neu.",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "warum-katzen-schnurren", decodeData[domain.BlogPost](t, resp).Slug)

	resp = ts.api.Post("/api/v1/admin/blog/reindex", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 2, decodeData[ReindexResponse](t, resp).Indexed)

	resp = ts.api.Delete("/api/v1/admin/blog/"+second.ID, auth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, http.StatusNotFound, ts.api.Get("/api/v1/blog/warum-katzen-schnurren-2").Code)
	assert.Equal(t, http.StatusNotFound, ts.api.Delete("/api/v1/admin/blog/"+second.ID, auth).Code)
}

func TestAdmin_CategoryLifecycle(t *testing.T) {
	ts := setupTestServer(t)
	auth := bearer(t, adminID)

	var ids []string
	for _, c := range []struct{ name, emoji string }{{"Spielzeug", "🧶"}, {"Pflege", "🪮"}, {"Reisen", "🧳"}} {
		resp := ts.api.Post("/api/v1/admin/categories", auth, map[string]any{"name": c.name, "emoji": c.emoji})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		ids = append(ids, decodeData[domain.Category](t, resp).ID)
	}

	resp := ts.api.Put("/api/v1/admin/categories/"+ids[1], auth, map[string]any{"name": "Fellpflege", "emoji": "🪮"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Fellpflege", decodeData[domain.Category](t, resp).Name)

	resp = ts.api.Put("/api/v1/admin/categories/order", auth, map[string]any{"ids": []string{ids[2], ids[0], ids[1]}})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 3, decodeData[ReorderResponse](t, resp).Written)

	resp = ts.api.Get("/api/v1/admin/categories", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	list := decodeData[service.CategoryList](t, resp)
	names := make([]string, len(list.Categories))
	for i, c := range list.Categories {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"Reisen", "Spielzeug", "Fellpflege"}, names)

	resp = ts.api.Delete("/api/v1/admin/categories/"+ids[0], auth)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestAdmin_ReorderRejectsDuplicates(t *testing.T) {
	ts := setupTestServer(t)
	ts.seed(t, backend.TableCategories,
		backend.Row{"id": "c1", "name": "Lustig", "emoji": "😂", "display_order": 0},
		backend.Row{"id": "c2", "name": "Luxus", "emoji": "👑", "display_order": 1},
	)

	resp := ts.api.Put("/api/v1/admin/categories/order", bearer(t, adminID), map[string]any{"ids": []string{"c2", "c2"}})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decodeError(t, resp).Code)
	assert.Zero(t, ts.backend.Count(backendtest.OpUpdate, backend.TableCategories))
}

func TestAdmin_ReorderWriteFailure(t *testing.T) {
	ts := setupTestServer(t)
	ts.seed(t, backend.TableCategories,
		backend.Row{"id": "c1", "name": "Lustig", "emoji": "😂", "display_order": 0},
		backend.Row{"id": "c2", "name": "Luxus", "emoji": "👑", "display_order": 1},
	)
	ts.backend.FailNext(backendtest.OpUpdate, backend.TableCategories, errBackendDown)

	resp := ts.api.Put("/api/v1/admin/categories/order", bearer(t, adminID), map[string]any{"ids": []string{"c2", "c1"}})
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	env := decodeError(t, resp)
	assert.Equal(t, "UNAVAILABLE", env.Code)
	assert.Equal(t, 1, ts.backend.Count(backendtest.OpUpdate, backend.TableCategories))
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for x := range 8 {
		for y := range 6 {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: 120, B: uint8(y * 40), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAdmin_UploadAndServe(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/uploads/products", bytes.NewReader(pngImage(t)))
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Authorization", strings.TrimPrefix(bearer(t, adminID), "Authorization: "))
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	upload := decodeData[media.Upload](t, rec)
	assert.True(t, strings.HasPrefix(upload.Key, "products/"))
	assert.True(t, strings.HasSuffix(upload.Key, ".png"))
	assert.Equal(t, 8, upload.Width)
	assert.Equal(t, 6, upload.Height)
	assert.NotEmpty(t, upload.BlurHash)
	assert.Equal(t, "http://localhost:8080/media/"+upload.Key, upload.URL)
	assert.InDelta(t, 1, testutil.ToFloat64(ts.metrics.Uploads.WithLabelValues("products", "stored")), 0)

	get := httptest.NewRequest(http.MethodGet, "/media/"+upload.Key, nil)
	rec = httptest.NewRecorder()
	ts.ServeHTTP(rec, get)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, CacheOneWeek, rec.Header().Get("Cache-Control"))
	assert.Equal(t, pngImage(t), rec.Body.Bytes())

	get = httptest.NewRequest(http.MethodGet, "/media/products/missing.png", nil)
	rec = httptest.NewRecorder()
	ts.ServeHTTP(rec, get)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_UploadRejectsNonImage(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/uploads/blog", strings.NewReader("%PDF-1.4 not an image"))
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Authorization", strings.TrimPrefix(bearer(t, adminID), "Authorization: "))
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	var env testErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "VALIDATION", env.Code)
	assert.InDelta(t, 1, testutil.ToFloat64(ts.metrics.Uploads.WithLabelValues("blog", "failed")), 0)
}

func TestAdmin_UploadUnknownFolder(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/uploads/avatars", bytes.NewReader(pngImage(t)))
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Authorization", strings.TrimPrefix(bearer(t, adminID), "Authorization: "))
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
