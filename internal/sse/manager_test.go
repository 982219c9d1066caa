package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/purriosity/purriosity-server/internal/domain"
	"github.com/purriosity/purriosity-server/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func startManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	t.Cleanup(func() {
		require.NoError(t, m.Shutdown(context.Background()))
		cancel()
	})
	return m
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case e := <-c.EventChan:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestManager_FiltersByProduct(t *testing.T) {
	m := startManager(t)

	all, err := m.Connect(ConnectOptions{})
	require.NoError(t, err)
	onlyA, err := m.Connect(ConnectOptions{ProductIDs: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, 2, m.ClientCount())

	m.Emit(NewPurrUpdatedEvent(domain.PurrUpdate{ProductID: "b", Count: 1}))
	m.Emit(NewPurrUpdatedEvent(domain.PurrUpdate{ProductID: "a", Count: 7}))

	assert.Equal(t, "b", receive(t, all).ProductID)
	assert.Equal(t, "a", receive(t, all).ProductID)

	got := receive(t, onlyA)
	assert.Equal(t, EventPurrUpdated, got.Type)
	assert.Equal(t, 7, got.Data.(domain.PurrUpdate).Count)

	m.Disconnect(onlyA.ID)
	m.Disconnect(onlyA.ID)
	assert.Equal(t, 1, m.ClientCount())

	_, open := <-onlyA.Done
	assert.False(t, open)
}

func TestManager_UnscopedEventsReachFilteredClients(t *testing.T) {
	m := startManager(t)

	c, err := m.Connect(ConnectOptions{ProductIDs: []string{"a"}})
	require.NoError(t, err)

	m.Emit(NewCategoriesChangedEvent(nil))
	assert.Equal(t, EventCategoriesChanged, receive(t, c).Type)
}

func TestManager_FiltersByType(t *testing.T) {
	m := startManager(t)

	c, err := m.Connect(ConnectOptions{Types: []EventType{EventBlogPostDeleted}})
	require.NoError(t, err)

	m.Emit(NewCategoriesChangedEvent(nil))
	m.Emit(NewPurrUpdatedEvent(domain.PurrUpdate{ProductID: "a", Count: 1}))
	m.Emit(NewBlogPostDeletedEvent("alt"))

	got := receive(t, c)
	assert.Equal(t, EventBlogPostDeleted, got.Type)
}

func TestStreamOptions(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?product=p1&types=purr.updated,%20categories.changed&types=blog.deleted", nil)
	opts := streamOptions(r)

	assert.Equal(t, []string{"p1"}, opts.ProductIDs)
	assert.Equal(t, []EventType{EventPurrUpdated, EventCategoriesChanged, EventBlogPostDeleted}, opts.Types)
	assert.True(t, opts.Heartbeats)
}

func TestManager_ShutdownClosesClientsAndDropsLateEvents(t *testing.T) {
	m := NewManager(logger.Discard())
	go m.Start(context.Background())

	c, err := m.Connect(ConnectOptions{})
	require.NoError(t, err)

	m.Emit(NewProductDeletedEvent("p"))
	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))

	// Queued events are drained before clients close.
	e, ok := <-c.EventChan
	require.True(t, ok)
	assert.Equal(t, EventProductDeleted, e.Type)
	_, ok = <-c.EventChan
	assert.False(t, ok)

	m.Emit(NewProductDeletedEvent("late"))
	assert.Equal(t, 0, m.ClientCount())
}

func TestHandler_StreamsEvents(t *testing.T) {
	m := startManager(t)
	srv := httptest.NewServer(NewHandler(m, logger.Discard()))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?product=p1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readFrame := func() string {
		var b strings.Builder
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if line == "\n" {
				return b.String()
			}
			b.WriteString(line)
		}
	}

	assert.Equal(t, "retry: 3000\n", readFrame())
	assert.Contains(t, readFrame(), "event: connected")

	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	m.Emit(NewPurrUpdatedEvent(domain.PurrUpdate{ProductID: "other", Count: 1}))
	m.Emit(NewPurrUpdatedEvent(domain.PurrUpdate{ProductID: "p1", Liked: true, Count: 3}))

	frame := readFrame()
	assert.Contains(t, frame, "event: purr.updated")
	assert.Contains(t, frame, `"product_id":"p1"`)
	assert.Contains(t, frame, `"count":3`)

	cancel()
	assert.Eventually(t, func() bool { return m.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHandler_RejectsNonGet(t *testing.T) {
	m := NewManager(logger.Discard())
	rec := httptest.NewRecorder()
	NewHandler(m, logger.Discard()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
