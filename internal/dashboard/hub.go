// Package dashboard is the read-only operator view onto the audit log: a
// small HTTP API plus a WebSocket feed that broadcasts newly committed
// audit entries to connected viewers. It subscribes to the audit log's
// append stream only — nothing here feeds back into evaluation, and no
// governance package imports it. Grounded on the teacher's
// internal/api/{websocket,server,handlers}.go.
package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// newUpgrader builds a WebSocket upgrader. Non-browser clients (curl, a
// CLI tail command) send no Origin header and are always accepted.
func newUpgrader(allowAllOrigins bool) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowAllOrigins {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return strings.Contains(origin, r.Host)
		},
	}
}

// Hub manages WebSocket connections for the live audit-entry feed.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]bool
	upgrader websocket.Upgrader
	logger   *slog.Logger
	done     chan struct{}
}

// NewHub creates a Hub. allowAllOrigins mirrors the server's CORS setting.
func NewHub(logger *slog.Logger, allowAllOrigins bool) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:  make(map[*websocket.Conn]bool),
		upgrader: newUpgrader(allowAllOrigins),
		logger:   logger.With("component", "dashboard.Hub"),
		done:     make(chan struct{}),
	}
}

// Run blocks until Close is called. Start it in its own goroutine.
func (h *Hub) Run() {
	<-h.done
}

// Close shuts the hub down and drops every connection.
func (h *Hub) Close() {
	close(h.done)
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.Close()
		delete(h.clients, conn)
	}
}

// HandleWebSocket upgrades an HTTP connection and registers it as a
// viewer of the audit feed.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	h.logger.Debug("dashboard client connected", "remote", conn.RemoteAddr())

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			_ = conn.Close()
			h.logger.Debug("dashboard client disconnected", "remote", conn.RemoteAddr())
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// Broadcast pushes an audit entry to every connected viewer. Dead
// connections found mid-broadcast are collected under a read lock and
// cleaned up under a write lock afterward, never the other way around.
func (h *Hub) Broadcast(data interface{}) {
	msg, err := json.Marshal(map[string]interface{}{
		"type": "audit_entry",
		"data": data,
	})
	if err != nil {
		h.logger.Error("failed to marshal dashboard message", "error", err)
		return
	}

	h.mu.RLock()
	var dead []*websocket.Conn
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("failed to write to dashboard client", "error", err)
			dead = append(dead, conn)
		}
	}
	h.mu.RUnlock()

	if len(dead) > 0 {
		h.mu.Lock()
		for _, c := range dead {
			delete(h.clients, c)
			_ = c.Close()
		}
		h.mu.Unlock()
	}
}

// ClientCount reports the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
