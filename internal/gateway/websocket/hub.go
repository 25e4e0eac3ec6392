// Package websocket implements the event hub that streams loop events to
// connected browser clients.
package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is one message pushed to subscribers of a session.
type Event struct {
	Type      string `json:"type"` // chunk, tool_result, status
	SessionID string `json:"session_id"`
	Data      any    `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client is one connected subscriber.
type client struct {
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
}

// Hub fans loop events out to websocket subscribers keyed by session id.
// An empty subscription receives every session's events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
	}
}

// Handler upgrades an HTTP request into a subscription. The session_id
// query parameter scopes which events the client receives.
func (h *Hub) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn:      conn,
		sessionID: r.URL.Query().Get("session_id"),
		send:      make(chan []byte, 64),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// readLoop drains client frames; the hub is push-only, so anything the
// client sends is discarded and a read error tears the client down.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Broadcast pushes an event to every subscriber of its session.
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.sessionID != "" && c.sessionID != event.SessionID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Slow consumer: drop the event rather than block the loop.
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
