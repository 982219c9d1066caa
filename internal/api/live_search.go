package api

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/purriosity/purriosity-server/internal/http/response"
	"github.com/purriosity/purriosity-server/internal/search"
)

const (
	liveWriteWait      = 10 * time.Second
	livePongWait       = 60 * time.Second
	livePingPeriod     = (livePongWait * 9) / 10
	liveMaxMessageSize = 1024
)

// liveReply is what one debounced search produces.
type liveReply struct {
	resp SearchResponse
	ok   bool
}

// upgrader accepts same-origin requests and the configured CORS origins.
// With no origins configured every origin is accepted.
func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(s.opts.CORSOrigins) == 0 {
				return true
			}
			return slices.Contains(s.opts.CORSOrigins, origin) || slices.Contains(s.opts.CORSOrigins, "*")
		},
	}
}

// handleLiveSearch serves search-as-you-type over a WebSocket. Every text
// frame is a query; input is debounced and each reply is the latest result
// set wrapped in the API envelope.
func (s *Server) handleLiveSearch(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Debug("live search upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	debouncer := search.NewDebouncer(s.opts.SearchDebounce, func(ctx context.Context, query string) liveReply {
		resp, err := s.runSearch(ctx, query, transportWebSocket)
		return liveReply{resp: resp, ok: err == nil}
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writeLiveResults(conn, debouncer.Results())
	}()

	conn.SetReadLimit(liveMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("live search closed unexpectedly", "error", err)
			}
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		debouncer.Submit(string(msg))
	}

	// Closing the debouncer cancels any running search and ends the writer.
	debouncer.Close()
	wg.Wait()
}

// writeLiveResults is the only writer on conn.
func (s *Server) writeLiveResults(conn *websocket.Conn, results <-chan liveReply) {
	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case reply, ok := <-results:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if !reply.ok {
				continue
			}
			if err := conn.WriteJSON(response.Wrap(reply.resp)); err != nil {
				s.logger.Debug("live search write failed", "error", err)
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}
