package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/purriosity/purriosity-server/internal/id"
)

// Client is a subscriber: an SSE connection or an in-process view.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string

	// products restricts delivery of product-scoped events. Empty means all.
	products map[string]struct{}
	// types restricts delivery to these event types. Empty means all.
	types map[EventType]struct{}
	// wantHeartbeat is false for in-process subscribers.
	wantHeartbeat bool
}

// ConnectOptions selects what a client receives.
type ConnectOptions struct {
	// ProductIDs limits product events to these products. Empty means all.
	ProductIDs []string
	// Types limits delivery to these event types. Empty means all.
	// Heartbeats are governed by Heartbeats alone.
	Types []EventType
	// Heartbeats requests periodic heartbeat events.
	Heartbeats bool
	// Buffer is the per-client queue size (default 100).
	Buffer int
}

func (c *Client) wants(event Event) bool {
	if event.Type == EventHeartbeat {
		return c.wantHeartbeat
	}
	if len(c.types) > 0 {
		if _, ok := c.types[event.Type]; !ok {
			return false
		}
	}
	if len(c.products) == 0 || event.ProductID == "" {
		return true
	}
	_, ok := c.products[event.ProductID]
	return ok
}

// Manager fans events out to subscribers.
type Manager struct {
	clients           map[string]*Client
	events            chan Event
	logger            *slog.Logger
	wg                sync.WaitGroup
	heartbeatInterval time.Duration
	mu                sync.RWMutex

	// Shutdown state - protected by shutdownMu
	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewManager creates a new Manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		clients:           make(map[string]*Client),
		events:            make(chan Event, 1000),
		logger:            logger,
		heartbeatInterval: 30 * time.Second,
	}
}

// Start runs the broadcast loop until ctx is done or the manager shuts down.
// Call it once, in its own goroutine.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	m.logger.Info("event manager starting")

	heartbeatTicker := time.NewTicker(m.heartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case event, ok := <-m.events:
			if !ok {
				m.closeAllClients()
				return
			}
			m.broadcast(event)

		case <-heartbeatTicker.C:
			m.broadcast(NewHeartbeatEvent())

		case <-ctx.Done():
			m.logger.Info("event manager stopping")
			m.closeAllClients()
			return
		}
	}
}

// Shutdown stops accepting events, drains queued ones, and closes all clients.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return nil
	}
	m.shutdown = true
	close(m.events)
	m.shutdownMu.Unlock()

	// Start drains the closed channel and exits.
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("event manager shutdown complete")
	case <-ctx.Done():
		m.logger.Warn("event drain timeout, some events may be lost")
	}
	return nil
}

// broadcast delivers event to every interested client without blocking.
func (m *Manager) broadcast(event Event) {
	var delivered, dropped, filtered int

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.clients {
		if !client.wants(event) {
			filtered++
			continue
		}

		select {
		case client.EventChan <- event:
			delivered++
		default:
			dropped++
			m.logger.Warn("dropped event for slow client",
				slog.String("client_id", client.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	if event.Type != EventHeartbeat {
		m.logger.Debug("event broadcast",
			slog.String("event_type", string(event.Type)),
			slog.Group("stats",
				slog.Int("delivered", delivered),
				slog.Int("filtered", filtered),
				slog.Int("dropped", dropped)))
	}
}

// Connect registers a subscriber. Callers must Disconnect it when done.
func (m *Manager) Connect(opts ConnectOptions) (*Client, error) {
	clientID, err := id.Client("sub")
	if err != nil {
		return nil, err
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 100
	}

	client := &Client{
		ID:            clientID,
		EventChan:     make(chan Event, opts.Buffer),
		Done:          make(chan struct{}),
		ConnectedAt:   time.Now(),
		wantHeartbeat: opts.Heartbeats,
	}
	if len(opts.ProductIDs) > 0 {
		client.products = make(map[string]struct{}, len(opts.ProductIDs))
		for _, p := range opts.ProductIDs {
			client.products[p] = struct{}{}
		}
	}

	if len(opts.Types) > 0 {
		client.types = make(map[EventType]struct{}, len(opts.Types))
		for _, t := range opts.Types {
			client.types[t] = struct{}{}
		}
	}

	m.mu.Lock()
	m.clients[client.ID] = client
	totalClients := len(m.clients)
	m.mu.Unlock()

	m.logger.Debug("subscriber connected",
		slog.String("client_id", clientID),
		slog.Int("products", len(opts.ProductIDs)),
		slog.Int("total_clients", totalClients))
	return client, nil
}

// Disconnect removes a client and closes its channels. Unknown ids are ignored.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	client, ok := m.clients[clientID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, clientID)
	totalClients := len(m.clients)
	m.mu.Unlock()

	close(client.Done)
	close(client.EventChan)

	m.logger.Debug("subscriber disconnected",
		slog.String("client_id", clientID),
		slog.Duration("duration", time.Since(client.ConnectedAt)),
		slog.Int("total_clients", totalClients))
}

// Emit queues an event for broadcasting. Events emitted after Shutdown are dropped.
func (m *Manager) Emit(event Event) {
	// Hold the read lock through the send so Shutdown cannot close the channel under us.
	m.shutdownMu.RLock()
	defer m.shutdownMu.RUnlock()

	if m.shutdown {
		return
	}

	select {
	case m.events <- event:
	default:
		m.logger.Error("event channel full, dropping event",
			slog.String("event_type", string(event.Type)))
	}
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// closeAllClients closes all client connections (used during shutdown).
func (m *Manager) closeAllClients() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.clients {
		close(client.Done)
		close(client.EventChan)
	}
	m.clients = make(map[string]*Client)

	m.logger.Info("all subscribers disconnected")
}
