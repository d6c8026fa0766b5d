package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"geoguide/pkg/session"
)

const (
	writeWait  = 5 * time.Second
	clientSend = 16
)

// SnapshotSource publishes session snapshots.
type SnapshotSource interface {
	Snapshot() session.Snapshot
	Observe(fn func(session.Snapshot)) (cancel func())
}

// StreamMessage is the websocket envelope.
type StreamMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// StreamHub pushes every session snapshot to connected websocket clients.
type StreamHub struct {
	source   SnapshotSource
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*streamClient]struct{}
	closed  bool
}

// NewStreamHub creates a hub. Browser origins must be listed in
// allowedOrigins unless they match the request host.
func NewStreamHub(src SnapshotSource, allowedOrigins []string) *StreamHub {
	h := &StreamHub{
		source:  src,
		logger:  slog.With("component", "stream"),
		clients: make(map[*streamClient]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(allowedOrigins, origin) {
				return true
			}
			u, err := url.Parse(origin)
			if err == nil && u.Host == r.Host {
				return true
			}
			h.logger.Warn("Rejected websocket origin", "origin", origin)
			return false
		},
	}
	return h
}

// Run forwards snapshots until ctx ends, then disconnects every client.
func (h *StreamHub) Run(ctx context.Context) {
	cancel := h.source.Observe(func(s session.Snapshot) {
		h.broadcast(StreamMessage{Type: "snapshot", Payload: s})
	})
	<-ctx.Done()
	cancel()

	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Clients returns the number of connected clients.
func (h *StreamHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleStream handles GET /api/stream
func (h *StreamHub) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Websocket upgrade failed", "error", err)
		return
	}

	c := &streamClient{conn: conn, send: make(chan []byte, clientSend)}
	initial, err := json.Marshal(StreamMessage{Type: "snapshot", Payload: h.source.Snapshot()})
	if err != nil {
		h.logger.Error("Failed to encode stream message", "error", err)
		conn.Close()
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	c.send <- initial
	h.mu.Unlock()
	h.logger.Debug("Websocket client connected", "remote", r.RemoteAddr)

	go h.writeLoop(c)
	go func() {
		defer h.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *StreamHub) writeLoop(c *streamClient) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *StreamHub) remove(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.logger.Debug("Websocket client disconnected")
	}
}

// broadcast runs on the session loop and never blocks on a client.
func (h *StreamHub) broadcast(msg StreamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode stream message", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("Dropping snapshot for slow client")
		}
	}
}
