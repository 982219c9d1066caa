package postgrest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/logger"
)

type captured struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   []byte
}

func newTestServer(t *testing.T, status int, response string) (*Client, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.Query()
		got.header = r.Header.Clone()
		got.body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	c := New(Options{BaseURL: srv.URL, AnonKey: "anon", Timeout: 5 * time.Second, Logger: logger.Discard()})
	return c, got
}

func TestEncodeQuery(t *testing.T) {
	q := backend.From(backend.TableProducts).
		Select("id", "tags").
		Neq("id", "p-1").
		Overlaps("tags", []string{"Niedlich", "Spielzeug"}).
		In("id", []string{"a", "b"}).
		OrderBy("created_at", true).
		Take(6)

	params := encodeQuery(q)
	assert.Equal(t, "id,tags", params.Get("select"))
	assert.Equal(t, []string{"neq.p-1", `in.("a","b")`}, params["id"])
	assert.Equal(t, `ov.{"Niedlich","Spielzeug"}`, params.Get("tags"))
	assert.Equal(t, "created_at.desc", params.Get("order"))
	assert.Equal(t, "6", params.Get("limit"))
}

func TestEncodeQuery_OrGroups(t *testing.T) {
	single := backend.From("products").AnyOf(backend.ILike("title", "maus"), backend.Has("tags", "Maus"))
	assert.Equal(t, `(title.ilike."%maus%",tags.cs.{"Maus"})`, encodeQuery(single).Get("or"))

	double := single.AnyOf(backend.ILike("title", "ball"))
	params := encodeQuery(double)
	assert.Empty(t, params.Get("or"))
	assert.Equal(t,
		`(or(title.ilike."%maus%",tags.cs.{"Maus"}),or(title.ilike."%ball%"))`,
		params.Get("and"))
}

func TestQuote_EscapesSeparators(t *testing.T) {
	assert.Equal(t, `"a\"b"`, quote(`a"b`))
	assert.Equal(t, `"a\\b"`, quote(`a\b`))
	assert.Equal(t, `"x,y"`, quote("x,y"))
}

func TestClient_Select(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK, `[{"id":"p-1","purr_count":3,"tags":["Niedlich"]}]`)

	rows, err := c.Select(context.Background(), backend.From("products").Eq("id", "p-1"))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/rest/v1/products", got.path)
	assert.Equal(t, "eq.p-1", got.query.Get("id"))
	assert.Equal(t, "anon", got.header.Get("apikey"))
	assert.Equal(t, "Bearer anon", got.header.Get("Authorization"))

	n, ok := rows[0].NumberStrict("purr_count")
	assert.True(t, ok)
	assert.Equal(t, 3.0, n)
}

func TestClient_UsesCallerToken(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK, `[]`)

	ctx := backend.WithAccessToken(context.Background(), "user-jwt")
	rows, err := c.Select(ctx, backend.From("product_saves"))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, "Bearer user-jwt", got.header.Get("Authorization"))
	assert.Equal(t, "anon", got.header.Get("apikey"))
}

func TestClient_Insert(t *testing.T) {
	c, got := newTestServer(t, http.StatusCreated, `[{"user_id":"u","product_id":"p"}]`)

	rows, err := c.Insert(context.Background(), backend.TableProductLikes,
		backend.Row{"user_id": "u", "product_id": "p"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "return=representation", got.header.Get("Prefer"))

	var sent []map[string]string
	require.NoError(t, json.Unmarshal(got.body, &sent))
	assert.Equal(t, []map[string]string{{"user_id": "u", "product_id": "p"}}, sent)
}

func TestClient_UpdateAndDelete(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK, `[{"id":"c1","display_order":2}]`)
	ctx := context.Background()

	rows, err := c.Update(ctx, backend.From("categories").Eq("id", "c1"), backend.Row{"display_order": 2})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, http.MethodPatch, got.method)
	assert.Equal(t, "eq.c1", got.query.Get("id"))

	require.NoError(t, c.Delete(ctx, backend.From("categories").Eq("id", "c1")))
	assert.Equal(t, http.MethodDelete, got.method)
}

func TestClient_RefusesUnfilteredWrites(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK, `[]`)
	ctx := context.Background()

	_, err := c.Update(ctx, backend.From("categories"), backend.Row{"name": "x"})
	assert.Error(t, err)
	assert.Error(t, c.Delete(ctx, backend.From("categories")))
	assert.Empty(t, got.method, "no request is sent")
}

func TestClient_BackendError(t *testing.T) {
	c, _ := newTestServer(t, http.StatusNotFound,
		`{"code":"42P01","message":"relation \"public.categories\" does not exist"}`)

	_, err := c.Select(context.Background(), backend.From("categories"))
	require.Error(t, err)

	var apiErr *backend.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "42P01", apiErr.Code)
}

func TestClient_InvalidQueryNeverSent(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK, `[]`)
	_, err := c.Select(context.Background(), backend.From("products").Eq("id;drop", "x"))
	assert.Error(t, err)
	assert.Empty(t, got.method)
}

func TestStorage_Put(t *testing.T) {
	var path, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"Key":"media/blog/abc.png"}`)
	}))
	defer srv.Close()

	s := NewStorage(Options{BaseURL: srv.URL + "/", AnonKey: "anon"}, "media")
	url, err := s.Put(context.Background(), "blog/abc.png", "image/png", []byte("png"))
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/media/blog/abc.png", path)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, srv.URL+"/storage/v1/object/public/media/blog/abc.png", url)
}

func TestStorage_PutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"statusCode":"409","error":"Duplicate","message":"The resource already exists"}`)
	}))
	defer srv.Close()

	s := NewStorage(Options{BaseURL: srv.URL, AnonKey: "anon"}, "media")
	_, err := s.Put(context.Background(), "blog/x.png", "image/png", []byte("png"))

	var apiErr *backend.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "The resource already exists", apiErr.Message)
}
