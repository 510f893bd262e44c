package sse

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jastip-hub/jastip-hub/internal/domain/notification"
)

// Hub manages SSE clients. Each client observes exactly one shopping
// session; broadcasts fan out to everyone watching that session.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*notification.SSEClient
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*notification.SSEClient),
	}
}

func (h *Hub) Register(client *notification.SSEClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ClientID] = client
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		c.Close()
		delete(h.clients, clientID)
	}
}

func (h *Hub) BroadcastToSession(sessionID uuid.UUID, message *notification.SSEMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.SessionID == sessionID {
			trySend(c, message)
		}
	}
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

// trySend drops the message when the client buffer is full; a slow consumer
// must never hold up the emitting transition.
func trySend(c *notification.SSEClient, msg *notification.SSEMessage) bool {
	select {
	case c.MessageChan <- msg:
		return true
	default:
		return false
	}
}

// Emitter adapts the hub to the core's fire-and-forget event port.
type Emitter struct {
	hub *Hub
}

func NewEmitter(hub *Hub) *Emitter {
	return &Emitter{hub: hub}
}

func (e *Emitter) Emit(sessionID uuid.UUID, event string, payload interface{}) {
	e.hub.BroadcastToSession(sessionID, notification.NewSSEMessage(event, payload))
}
