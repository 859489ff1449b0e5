// Package realtime pushes gallery change events to connected browsers so
// open gallery views refresh without polling.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event types sent to clients.
const (
	EventMediaUploaded = "media_uploaded"
	EventMediaDeleted  = "media_deleted"
)

// Event is one gallery change notification.
type Event struct {
	Type    string `json:"type"`
	MediaID int64  `json:"media_id"`
	UserID  int64  `json:"user_id"`
}

// Hub tracks connected clients per user and fans events out to the
// owner's connections only; one user's uploads are never announced to
// another's browser.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client under its user ID.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	conns, ok := h.clients[c.userID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.clients[c.userID] = conns
	}
	conns[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if conns, ok := h.clients[c.userID]; ok {
		if _, ok := conns[c]; ok {
			delete(conns, c)
			close(c.send)
		}
		if len(conns) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
}

// Notify sends the event to every connection the owning user has open.
func (h *Hub) Notify(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[ev.UserID] {
		select {
		case c.send <- data:
		default:
			// Client buffer full; drop rather than block the request.
		}
	}
}

// ClientCount returns the total number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.clients {
		n += len(conns)
	}
	return n
}
