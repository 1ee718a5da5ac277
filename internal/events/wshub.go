package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/elihu-analytics/clinic-scheduler/pkg/logging"
)

// Hub fans appointment events out to live admin sessions over websockets.
// It implements DeliveryHandler so the outbox deliverer can feed it.
type Hub struct {
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		sessions: make(map[*websocket.Conn]struct{}),
	}
}

// envelope is the frame pushed to each session.
type envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Handle broadcasts one outbox entry to every connected session.
// Write failures drop the session; they never fail delivery.
func (h *Hub) Handle(_ context.Context, entry OutboxEntry) error {
	frame, err := json.Marshal(envelope{Type: entry.Type, Payload: entry.Payload, CreatedAt: entry.CreatedAt})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.sessions {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			h.logger.Debug("ws session dropped", "error", err)
			conn.Close()
			delete(h.sessions, conn)
		}
	}
	return nil
}

// ServeHTTP upgrades the request and keeps the session registered until the
// peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.sessions[conn] = struct{}{}
	count := len(h.sessions)
	h.mu.Unlock()
	h.logger.Debug("ws session opened", "sessions", count)

	// Reader loop only watches for close; the hub never expects input.
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.sessions, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// SessionCount reports connected sessions, for health reporting.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}
