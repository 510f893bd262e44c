// Package disbursement coordinates the single host payout of a session. The
// coordinator, not the payout gateway, is the source of truth for "have we
// already tried": a completed payout is pinned locally and every later
// attempt is rejected before any network call.
package disbursement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jastip-hub/jastip-hub/internal/domain/disbursement"
	"github.com/jastip-hub/jastip-hub/internal/domain/notification"
	"github.com/jastip-hub/jastip-hub/internal/domain/order"
	"github.com/jastip-hub/jastip-hub/internal/domain/session"
	"github.com/jastip-hub/jastip-hub/internal/domain/settlement"
	"github.com/jastip-hub/jastip-hub/internal/infrastructure/memlock"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrGatewayUnavailable = errors.New("payout gateway request failed")
)

// Service is the disbursement coordinator.
type Service struct {
	sessionRepo session.Repository
	orderRepo   order.Repository
	repo        disbursement.Repository
	gateway     disbursement.Gateway
	emitter     notification.Emitter
	locks       *memlock.KeyedMutex
	now         func() time.Time
	logger      zerolog.Logger
}

func NewService(
	sessionRepo session.Repository,
	orderRepo order.Repository,
	repo disbursement.Repository,
	gateway disbursement.Gateway,
	emitter notification.Emitter,
	locks *memlock.KeyedMutex,
	logger zerolog.Logger,
) *Service {
	return &Service{
		sessionRepo: sessionRepo,
		orderRepo:   orderRepo,
		repo:        repo,
		gateway:     gateway,
		emitter:     emitter,
		locks:       locks,
		now:         time.Now,
		logger:      logger.With().Str("service", "disbursement").Logger(),
	}
}

// Request issues the host payout. Eligibility is re-validated at call time
// under the session lock, not trusted from whatever snapshot the caller
// rendered: a double-tap or a stale view is rejected locally with
// ErrConflict and the gateway sees exactly one request. The REQUESTED state
// is persisted before the gateway call so a crash cannot lose the fact that
// an attempt was made.
func (s *Service) Request(ctx context.Context, sessionID, actorID uuid.UUID, bank disbursement.BankDetails) (*disbursement.Disbursement, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if !sess.IsHost(actorID) {
		return nil, session.ErrNotHost
	}

	d, err := s.repo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		d = disbursement.New(sess.SessionID, sess.HostID)
	}

	orders, err := s.orderRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	net := settlement.ComputeHostNet(orders).Net

	if !d.CanRequest(net) {
		if net <= 0 {
			return nil, disbursement.ErrNotEligible
		}
		return nil, disbursement.ErrConflict
	}

	now := s.now().UTC()
	if err := d.MarkRequested(net, now); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, d); err != nil {
		return nil, fmt.Errorf("persist disbursement request: %w", err)
	}

	result, err := s.gateway.RequestPayout(ctx, sess.SessionID, sess.HostID, net, bank)
	if err != nil {
		if ferr := d.MarkFailed(err.Error(), s.now().UTC()); ferr == nil {
			if uerr := s.repo.Upsert(ctx, d); uerr != nil {
				s.logger.Error().Err(uerr).Str("session_id", sessionID.String()).Msg("failed to persist payout failure")
			}
		}
		s.emitDisbursement(d)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	d.PayoutRef = &result.Ref
	if result.Status == disbursement.PayoutCompleted {
		if err := d.MarkCompleted(result.Ref, s.now().UTC()); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Upsert(ctx, d); err != nil {
		return nil, fmt.Errorf("persist disbursement: %w", err)
	}

	s.emitDisbursement(d)
	s.logger.Info().
		Str("session_id", sessionID.String()).
		Str("payout_ref", result.Ref).
		Int64("amount", net).
		Msg("payout requested")
	return d, nil
}

// Status returns the session's disbursement record. A REQUESTED record is
// reconciled against the gateway; a COMPLETED one is never re-queried.
func (s *Service) Status(ctx context.Context, sessionID uuid.UUID) (*disbursement.Disbursement, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	d, err := s.repo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		sess, err := s.sessionRepo.GetByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if sess == nil {
			return nil, ErrSessionNotFound
		}
		return disbursement.New(sess.SessionID, sess.HostID), nil
	}
	if d.Status != disbursement.StatusRequested {
		return d, nil
	}

	result, err := s.gateway.QueryPayoutStatus(ctx, sessionID)
	if err != nil {
		// The local record stays authoritative; report it as-is.
		s.logger.Warn().Err(err).Str("session_id", sessionID.String()).Msg("payout status query failed")
		return d, nil
	}

	changed := false
	switch result.Status {
	case disbursement.PayoutCompleted:
		if err := d.MarkCompleted(result.Ref, s.now().UTC()); err == nil {
			changed = true
		}
	case disbursement.PayoutFailed:
		if err := d.MarkFailed("payout failed at gateway", s.now().UTC()); err == nil {
			changed = true
		}
	}
	if changed {
		if err := s.repo.Upsert(ctx, d); err != nil {
			return nil, fmt.Errorf("persist disbursement: %w", err)
		}
		s.emitDisbursement(d)
	}
	return d, nil
}

func (s *Service) emitDisbursement(d *disbursement.Disbursement) {
	s.emitter.Emit(d.SessionID, notification.EventDisbursementUpdated, notification.DisbursementUpdatedEvent{
		SessionID: d.SessionID,
		Status:    string(d.Status),
	})
}
