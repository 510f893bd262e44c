package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jastip-hub/jastip-hub/internal/domain/session"
)

// Status represents order status.
type Status string

const (
	StatusPending       Status = "PENDING"
	StatusAccepted      Status = "ACCEPTED"
	StatusRejected      Status = "REJECTED"
	StatusBought        Status = "BOUGHT"
	StatusNeedsRevision Status = "NEEDS_REVISION"
)

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusBought, StatusNeedsRevision:
		return true
	}
	return false
}

var (
	ErrValidation        = errors.New("invalid order request")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrUnauthorized      = errors.New("only the session host may change order status")
	ErrSessionNotOpen    = errors.New("session is not accepting new orders")
	ErrQuotaExceeded     = errors.New("guest quota for this session is full")
)

// Order is a guest's item request within a shopping session. Amounts are in
// minor currency units; priceEstimate is a guest-supplied unit price and is
// never renegotiated server-side. Orders are never deleted, only
// terminal-stamped.
type Order struct {
	ID            int64     `json:"id"`
	OrderID       uuid.UUID `json:"orderId"`
	SessionID     uuid.UUID `json:"sessionId"`
	RequesterID   uuid.UUID `json:"requesterId"`
	ItemName      string    `json:"itemName"`
	Quantity      int       `json:"quantity"`
	PriceEstimate int64     `json:"priceEstimate"`
	JastipFee     int64     `json:"jastipFee"`
	Notes         string    `json:"notes,omitempty"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Validate checks guest-supplied fields at submission time. Failures wrap
// ErrValidation so the transport can answer with a client error.
func (o *Order) Validate() error {
	if strings.TrimSpace(o.ItemName) == "" {
		return fmt.Errorf("%w: itemName is required", ErrValidation)
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if o.PriceEstimate < 0 {
		return fmt.Errorf("%w: priceEstimate must not be negative", ErrValidation)
	}
	if o.JastipFee < 0 {
		return fmt.Errorf("%w: jastipFee must not be negative", ErrValidation)
	}
	return nil
}

// LineTotal is the goods value of this request.
func (o *Order) LineTotal() int64 {
	return o.PriceEstimate * int64(o.Quantity)
}

// Billable reports whether the order counts toward settlement.
func (o *Order) Billable() bool {
	return o.Status == StatusAccepted || o.Status == StatusBought
}

// CanTransitionTo validates a status edge against the session phase at the
// time of the change. Pending decisions are only legal while the window is
// live; fulfillment bookkeeping (BOUGHT, NEEDS_REVISION and their
// corrections) only starts once the open phase has ended, and stays legal
// after the session terminates.
func (o *Order) CanTransitionTo(target Status, phase session.Phase) bool {
	switch o.Status {
	case StatusPending:
		if phase != session.PhaseOpen && phase != session.PhaseRevisionWindow {
			return false
		}
		return target == StatusAccepted || target == StatusRejected
	case StatusAccepted:
		if phase == session.PhaseOpen {
			return false
		}
		return target == StatusBought || target == StatusNeedsRevision
	case StatusBought:
		// Mis-tap correction back to accepted.
		return target == StatusAccepted && phase != session.PhaseOpen
	case StatusNeedsRevision:
		// Host resupplied the item.
		return target == StatusAccepted && phase != session.PhaseOpen
	default:
		return false
	}
}

// Transition applies a host-authorized status change.
func (o *Order) Transition(target Status, phase session.Phase, now time.Time) error {
	if !o.CanTransitionTo(target, phase) {
		return ErrInvalidTransition
	}
	o.Status = target
	o.UpdatedAt = now
	return nil
}

// DistinctRequesters counts the guests holding at least one order.
func DistinctRequesters(orders []*Order) int {
	seen := make(map[uuid.UUID]struct{})
	for _, o := range orders {
		seen[o.RequesterID] = struct{}{}
	}
	return len(seen)
}

// HasRequester reports whether requesterID already holds an order. A guest
// inside the session may keep submitting without consuming more quota.
func HasRequester(orders []*Order, requesterID uuid.UUID) bool {
	for _, o := range orders {
		if o.RequesterID == requesterID {
			return true
		}
	}
	return false
}
