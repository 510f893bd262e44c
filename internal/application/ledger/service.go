// Package ledger applies guest and host commands to a session's orders:
// submission with quota enforcement, and host-authorized status transitions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jastip-hub/jastip-hub/internal/domain/notification"
	"github.com/jastip-hub/jastip-hub/internal/domain/order"
	"github.com/jastip-hub/jastip-hub/internal/domain/session"
	"github.com/jastip-hub/jastip-hub/internal/infrastructure/memlock"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrStoreUnavailable = errors.New("order store write failed")
)

// Service is the order ledger.
type Service struct {
	sessionRepo session.Repository
	orderRepo   order.Repository
	emitter     notification.Emitter
	locks       *memlock.KeyedMutex
	now         func() time.Time
	logger      zerolog.Logger
}

func NewService(
	sessionRepo session.Repository,
	orderRepo order.Repository,
	emitter notification.Emitter,
	locks *memlock.KeyedMutex,
	logger zerolog.Logger,
) *Service {
	return &Service{
		sessionRepo: sessionRepo,
		orderRepo:   orderRepo,
		emitter:     emitter,
		locks:       locks,
		now:         time.Now,
		logger:      logger.With().Str("service", "ledger").Logger(),
	}
}

// SubmitInput is a guest's item request.
type SubmitInput struct {
	SessionID     uuid.UUID
	RequesterID   uuid.UUID
	ItemName      string
	Quantity      int
	PriceEstimate int64
	JastipFee     int64
	Notes         string
}

// Submit creates a pending order. It is rejected when the session is not in
// its Open phase, when the request fails validation, or when the requester is
// new and the distinct-requester quota is already full. Quota is per person:
// a guest already in the session may keep adding orders. The quota check and
// the insert run under the session lock so two new guests racing for the
// last slot cannot both win.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*order.Order, error) {
	now := s.now().UTC()
	o := &order.Order{
		OrderID:       uuid.New(),
		SessionID:     in.SessionID,
		RequesterID:   in.RequesterID,
		ItemName:      in.ItemName,
		Quantity:      in.Quantity,
		PriceEstimate: in.PriceEstimate,
		JastipFee:     in.JastipFee,
		Notes:         in.Notes,
		Status:        order.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(in.SessionID)
	defer unlock()

	sess, err := s.sessionRepo.GetByID(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if !sess.AcceptsOrders(s.now()) {
		return nil, order.ErrSessionNotOpen
	}

	existing, err := s.orderRepo.ListBySession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if !order.HasRequester(existing, in.RequesterID) &&
		order.DistinctRequesters(existing) >= sess.MaxGuests {
		return nil, order.ErrQuotaExceeded
	}

	if err := s.orderRepo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("%w: create order: %v", ErrStoreUnavailable, err)
	}

	s.emitter.Emit(sess.SessionID, notification.EventOrderUpdated, notification.OrderUpdatedEvent{
		SessionID: sess.SessionID,
		OrderID:   o.OrderID,
		Status:    string(o.Status),
	})
	s.logger.Info().
		Str("session_id", sess.SessionID.String()).
		Str("order_id", o.OrderID.String()).
		Str("requester_id", o.RequesterID.String()).
		Msg("order submitted")
	return o, nil
}

// SetStatus applies a host-authorized status transition. The write to the
// store is authoritative: if it fails the transition is not applied and the
// caller may retry. Flagging an item NEEDS_REVISION additionally emits one
// system chat event carrying the item name; emission is fire-and-forget and
// can neither block nor fail the transition.
func (s *Service) SetStatus(ctx context.Context, orderID uuid.UUID, target order.Status, actorID uuid.UUID) (*order.Order, error) {
	stale, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if stale == nil {
		return nil, ErrOrderNotFound
	}

	unlock := s.locks.Lock(stale.SessionID)
	defer unlock()

	// Reload under the lock; the first read only located the session.
	o, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	sess, err := s.sessionRepo.GetByID(ctx, o.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if !sess.IsHost(actorID) {
		return nil, order.ErrUnauthorized
	}

	phase, _ := sess.PhaseAt(s.now())
	if err := o.Transition(target, phase, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.orderRepo.UpdateStatus(ctx, o.OrderID, o.Status); err != nil {
		return nil, fmt.Errorf("%w: write order status: %v", ErrStoreUnavailable, err)
	}

	s.emitter.Emit(sess.SessionID, notification.EventOrderUpdated, notification.OrderUpdatedEvent{
		SessionID: sess.SessionID,
		OrderID:   o.OrderID,
		Status:    string(o.Status),
	})
	if target == order.StatusNeedsRevision {
		s.emitter.Emit(sess.SessionID, notification.EventOrderNeedsRevision, notification.OrderNeedsRevisionEvent{
			SessionID: sess.SessionID,
			OrderID:   o.OrderID,
			ItemName:  o.ItemName,
		})
	}
	s.logger.Info().
		Str("order_id", o.OrderID.String()).
		Str("status", string(o.Status)).
		Msg("order status changed")
	return o, nil
}

// List returns the session's orders.
func (s *Service) List(ctx context.Context, sessionID uuid.UUID) ([]*order.Order, error) {
	return s.orderRepo.ListBySession(ctx, sessionID)
}
