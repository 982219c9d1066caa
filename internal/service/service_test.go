package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/purriosity/purriosity-server/internal/auth"
	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/backend/backendtest"
	"github.com/purriosity/purriosity-server/internal/catalog"
	"github.com/purriosity/purriosity-server/internal/domain"
	"github.com/purriosity/purriosity-server/internal/logger"
	"github.com/purriosity/purriosity-server/internal/sse"
	"github.com/purriosity/purriosity-server/internal/validation"
)

var errBoom = &backend.Error{Status: 500, Code: "XX000", Message: "boom"}

var (
	mia = auth.Principal{UserID: "user-mia", SessionID: "sess-mia"}
	leo = auth.Principal{UserID: "user-leo", SessionID: "sess-leo"}
)

type testEnv struct {
	rec       *backendtest.Recorder
	mapper    *catalog.Mapper
	validator *validation.Validator
	events    *recordingEmitter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		rec:       backendtest.NewRecorder(backendtest.NewSQLite(t)),
		mapper:    catalog.NewMapper(nil),
		validator: validation.New(),
		events:    &recordingEmitter{},
	}
}

func (e *testEnv) products() *ProductService {
	return NewProductService(e.rec, e.mapper, e.events, e.validator, Capabilities{ProductsHaveIsActive: true}, logger.Discard())
}

func (e *testEnv) categories() *CategoryService {
	return NewCategoryService(e.rec, e.events, e.validator, logger.Discard())
}

// seed inserts rows directly and clears the recorder afterwards.
func (e *testEnv) seed(t *testing.T, table string, rows ...backend.Row) {
	t.Helper()
	_, err := e.rec.Insert(context.Background(), table, rows...)
	require.NoError(t, err)
	e.rec.Reset()
}

func product(id, title string, created int, tags ...string) backend.Row {
	return backend.Row{
		"id":         id,
		"title":      title,
		"price":      9.99,
		"tags":       tags,
		"created_at": time.Date(2024, time.January, created, 12, 0, 0, 0, time.UTC),
	}
}

func inactive(r backend.Row) backend.Row {
	r["is_active"] = false
	return r
}

func productIDs(products []domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(e sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEmitter) ofType(t sse.EventType) []sse.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sse.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
