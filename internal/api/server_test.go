package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purriosity/purriosity-server/internal/auth"
	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/backend/backendtest"
	"github.com/purriosity/purriosity-server/internal/catalog"
	"github.com/purriosity/purriosity-server/internal/logger"
	"github.com/purriosity/purriosity-server/internal/media"
	"github.com/purriosity/purriosity-server/internal/metrics"
	"github.com/purriosity/purriosity-server/internal/search"
	"github.com/purriosity/purriosity-server/internal/service"
	"github.com/purriosity/purriosity-server/internal/sse"
	"github.com/purriosity/purriosity-server/internal/validation"
)

const testJWTSecret = "test-secret-with-enough-bytes-for-hs256"

const (
	adminID = "user-mia"
	userID  = "user-leo"
)

var errBackendDown = &backend.Error{Status: 503, Code: "PGRST000", Message: "backend down"}

// testServer wraps the API server with the pieces tests poke at directly.
type testServer struct {
	*Server
	api     humatest.TestAPI
	backend *backendtest.Recorder
	events  *sse.Manager
	metrics *metrics.Metrics
	local   *media.LocalStore
}

type testServerOption func(*Options)

// setupTestServer builds a server over a temp SQLite backend with real
// services, a blog index and local media storage.
func setupTestServer(t *testing.T, opts ...testServerOption) *testServer {
	t.Helper()

	log := logger.Discard()
	rec := backendtest.NewRecorder(backendtest.NewSQLite(t))

	index, err := search.NewSearchIndex(search.Options{DataPath: t.TempDir(), Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	local, err := media.NewLocalStore(t.TempDir(), "http://localhost:8080/media")
	require.NoError(t, err)

	events := sse.NewManager(log)
	m := metrics.New()
	mapper := catalog.NewMapper(nil)
	validator := validation.New()

	categories := service.NewCategoryService(rec, events, validator, log)
	services := &Services{
		Products:   service.NewProductService(rec, mapper, events, validator, service.Capabilities{ProductsHaveIsActive: true}, log),
		Categories: categories,
		Search:     service.NewSearchService(rec, mapper, categories, log),
		Purr:       service.NewPurrService(rec, events, log),
		Saved:      service.NewSavedService(rec, mapper, log),
		Blog:       service.NewBlogService(rec, index, events, validator, log),
		Admin:      service.NewAdminService(rec, mapper, log),
		Uploader:   media.NewUploader(local, 0, log),
	}

	options := Options{
		Version:        "test",
		PublicURL:      "https://purriosity.example",
		SearchDebounce: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&options)
	}

	s := NewServer(services, Infrastructure{
		Backend:    rec,
		Verifier:   auth.NewTokenVerifier(testJWTSecret, 0),
		Events:     events,
		BlogIndex:  index,
		Metrics:    m,
		LocalMedia: local,
	}, options, log)
	t.Cleanup(s.Close)

	ts := &testServer{
		Server:  s,
		api:     humatest.Wrap(t, s.api),
		backend: rec,
		events:  events,
		metrics: m,
		local:   local,
	}

	ts.seed(t, backend.TableProfiles,
		backend.Row{"id": adminID, "email": "mia@example.com", "is_admin": true},
		backend.Row{"id": userID, "email": "leo@example.com", "is_admin": false},
	)
	return ts
}

// seed inserts rows directly and clears the recorder afterwards.
func (ts *testServer) seed(t *testing.T, table string, rows ...backend.Row) {
	t.Helper()
	_, err := ts.backend.Insert(context.Background(), table, rows...)
	require.NoError(t, err)
	ts.backend.Reset()
}

// bearer returns an Authorization header line for userID.
func bearer(t *testing.T, userID string) string {
	t.Helper()
	claims := auth.AccessClaims{
		SessionID: "sess-" + userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

func productRow(id, title string, day int, tags ...string) backend.Row {
	return backend.Row{
		"id":         id,
		"title":      title,
		"price":      12.5,
		"tags":       tags,
		"created_at": time.Date(2024, time.March, day, 9, 0, 0, 0, time.UTC),
	}
}

// testEnvelope is the success envelope with typed data.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// testErrorEnvelope is the error envelope of a domain error.
type testErrorEnvelope struct {
	Version int             `json:"v"`
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func decodeData[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	require.True(t, env.Success, resp.Body.String())
	assert.Equal(t, EnvelopeVersion, env.Version)
	return env.Data
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) testErrorEnvelope {
	t.Helper()
	var env testErrorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	assert.False(t, env.Success)
	assert.Equal(t, EnvelopeVersion, env.Version)
	return env
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	health := decodeData[HealthResponse](t, resp)
	assert.Equal(t, statusHealthy, health.Status)
	assert.Equal(t, "sqlite", health.Components["backend"].Message)
	assert.Equal(t, "0 posts indexed", health.Components["search"].Message)
	assert.Equal(t, statusHealthy, health.Components["sse"].Status)
}

func TestHealthCheck_BackendDown(t *testing.T) {
	ts := setupTestServer(t)
	ts.backend.FailAlways(backendtest.OpSelect, backend.TableCategories, errBackendDown)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	health := decodeData[HealthResponse](t, resp)
	assert.Equal(t, statusUnhealthy, health.Status)
	assert.Equal(t, statusUnhealthy, health.Components["backend"].Status)
}

func TestServer_UnknownRoute(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestServer_InvalidTokenIsAnonymous(t *testing.T) {
	ts := setupTestServer(t)
	ts.seed(t, backend.TableProducts, productRow("p1", "Kratzbaum", 1))

	resp := ts.api.Get("/api/v1/products/p1/purr", "Authorization: Bearer not-a-jwt")
	require.Equal(t, http.StatusOK, resp.Code)

	state := decodeData[PurrResponse](t, resp)
	assert.False(t, state.Liked)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	ts.api.Get("/api/v1/categories")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "purriosity_http_requests_total")
}
