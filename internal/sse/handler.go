package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// retryMillis is the reconnect delay suggested to EventSource clients.
	retryMillis = 3000
	// writeGrace bounds a single frame write so stalled clients are dropped.
	writeGrace = 60 * time.Second
)

// Handler streams events at GET /api/v1/events.
//
// Query parameters narrow the stream:
//
//	?product=p1&product=p2         product events for these products only
//	?types=purr.updated,blog.deleted  only these event types
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
	}
}

// streamOptions builds the subscription from the request query.
func streamOptions(r *http.Request) ConnectOptions {
	q := r.URL.Query()
	opts := ConnectOptions{
		ProductIDs: q["product"],
		Heartbeats: true,
	}
	for _, raw := range q["types"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				opts.Types = append(opts.Types, EventType(t))
			}
		}
	}
	return opts
}

// ServeHTTP handles the SSE connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	if ctx.Err() != nil {
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if _, err := fmt.Fprintf(w, "retry: %d\n\n", retryMillis); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Error("streaming not supported", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	opts := streamOptions(r)
	client, err := h.manager.Connect(opts)
	if err != nil {
		h.logger.Error("failed to register SSE client", slog.String("error", err.Error()))
		http.Error(w, "Failed to establish connection", http.StatusInternalServerError)
		return
	}
	defer h.manager.Disconnect(client.ID)

	log := h.logger.With(slog.String("client_id", client.ID))

	hello := map[string]any{"client_id": client.ID}
	if len(opts.Types) > 0 {
		hello["types"] = opts.Types
	}
	if err := h.writeFrame(w, rc, "connected", hello); err != nil {
		log.Warn("failed to send connected frame", slog.String("error", err.Error()))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Done:
			log.Debug("stream closed by manager")
			return
		case event, ok := <-client.EventChan:
			if !ok {
				return
			}
			if err := h.writeFrame(w, rc, string(event.Type), event); err != nil {
				log.Debug("client went away", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// writeFrame writes one named event and flushes it.
func (h *Handler) writeFrame(w http.ResponseWriter, rc *http.ResponseController, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}
	if err := rc.SetWriteDeadline(time.Now().Add(writeGrace)); err != nil {
		h.logger.Debug("write deadline unsupported", slog.String("error", err.Error()))
	}
	return nil
}
