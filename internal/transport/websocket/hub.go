package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub tracks connected clients and delivers each ledger event to the clients
// subscribed to the event's user.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Publish implements notify.Bus. data must be a JSON-encoded model.Event;
// only its userId is inspected.
func (h *Hub) Publish(topic string, data []byte) error {
	var hdr struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(data, &hdr); err != nil {
		h.logger.Error("websocket: undecodable event", "topic", topic, "error", err)
		return err
	}
	h.Deliver(hdr.UserID, data)
	return nil
}

// Deliver sends data to every client subscribed to userID.
func (h *Hub) Deliver(userID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.userID != userID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full; drop rather than block the publisher.
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
