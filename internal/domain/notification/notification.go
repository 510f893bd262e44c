// Package notification defines the events the core emits toward the UI and
// chat collaborators. Emission is fire-and-forget: delivery failures are the
// collaborator's problem and never block a state transition.
package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event names carried on the SSE stream.
const (
	EventSessionPhase        = "session.phase"
	EventOrderUpdated        = "order.updated"
	EventOrderNeedsRevision  = "order.needs_revision"
	EventDisbursementUpdated = "disbursement.updated"
)

// SessionPhaseEvent announces a phase change or countdown tick.
type SessionPhaseEvent struct {
	SessionID     uuid.UUID `json:"sessionId"`
	Phase         string    `json:"phase"`
	TimeRemaining string    `json:"timeRemaining"`
}

// OrderUpdatedEvent announces any order mutation.
type OrderUpdatedEvent struct {
	SessionID uuid.UUID `json:"sessionId"`
	OrderID   uuid.UUID `json:"orderId"`
	Status    string    `json:"status"`
}

// OrderNeedsRevisionEvent is the system chat message raised when the host
// flags an item as out of stock.
type OrderNeedsRevisionEvent struct {
	SessionID uuid.UUID `json:"sessionId"`
	OrderID   uuid.UUID `json:"orderId"`
	ItemName  string    `json:"itemName"`
}

// DisbursementUpdatedEvent announces payout state changes.
type DisbursementUpdatedEvent struct {
	SessionID uuid.UUID `json:"sessionId"`
	Status    string    `json:"status"`
}

// SSEClient represents an active SSE connection observing one session.
type SSEClient struct {
	ClientID    string
	UserID      *string
	SessionID   uuid.UUID
	ConnectedAt time.Time
	MessageChan chan *SSEMessage
}

// NewSSEClient creates a client with a buffered channel; sends are
// non-blocking and drop when the buffer is full.
func NewSSEClient(clientID string, userID *string, sessionID uuid.UUID) *SSEClient {
	return &SSEClient{
		ClientID:    clientID,
		UserID:      userID,
		SessionID:   sessionID,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *SSEMessage, 100),
	}
}

// Close closes the client's message channel.
func (c *SSEClient) Close() {
	close(c.MessageChan)
}

// SSEMessage is one event on the wire.
type SSEMessage struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewSSEMessage creates a message, swallowing marshal errors into an empty
// payload: an unserializable event must not break the emitting transition.
func NewSSEMessage(event string, payload interface{}) *SSEMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("{}")
	}
	return &SSEMessage{
		ID:        uuid.New().String(),
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// Emitter is the outward face the core uses; implementations must be
// non-blocking and may drop events.
type Emitter interface {
	Emit(sessionID uuid.UUID, event string, payload interface{})
}
