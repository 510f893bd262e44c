package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appSettlement "github.com/jastip-hub/jastip-hub/internal/application/settlement"
	"github.com/jastip-hub/jastip-hub/internal/application/timer"
	"github.com/jastip-hub/jastip-hub/internal/domain/disbursement"
	"github.com/jastip-hub/jastip-hub/internal/domain/notification"
	"github.com/jastip-hub/jastip-hub/internal/domain/order"
	"github.com/jastip-hub/jastip-hub/internal/domain/session"
	"github.com/jastip-hub/jastip-hub/internal/domain/settlement"
	"github.com/jastip-hub/jastip-hub/internal/infrastructure/memlock"
)

// ErrStoreUnavailable marks a failed authoritative write. Nothing was
// applied and the caller may retry.
var ErrStoreUnavailable = errors.New("session store write failed")

// Service owns the session lifecycle: creation, the timer-driven phase
// machine, explicit host close, and the derived view models.
type Service struct {
	repo          session.Repository
	orderRepo     order.Repository
	disbRepo      disbursement.Repository
	settlementSvc *appSettlement.Service
	emitter       notification.Emitter
	locks         *memlock.KeyedMutex
	driver        *timer.Driver
	now           func() time.Time
	logger        zerolog.Logger
}

// NewService creates a session service and its timer driver.
func NewService(
	repo session.Repository,
	orderRepo order.Repository,
	disbRepo disbursement.Repository,
	settlementSvc *appSettlement.Service,
	emitter notification.Emitter,
	locks *memlock.KeyedMutex,
	logger zerolog.Logger,
) *Service {
	s := &Service{
		repo:          repo,
		orderRepo:     orderRepo,
		disbRepo:      disbRepo,
		settlementSvc: settlementSvc,
		emitter:       emitter,
		locks:         locks,
		now:           time.Now,
		logger:        logger.With().Str("service", "session").Logger(),
	}
	s.driver = timer.New(s.handleSignal, logger)
	return s
}

// CreateInput creates a new shopping session.
type CreateInput struct {
	HostID          uuid.UUID
	Title           string
	LocationName    string
	DurationMinutes int
	MaxGuests       int
}

// Create opens a new session owned by the host. An earlier session left open
// by the same host is not rejected; the most recently created one simply
// becomes the active session and older ones are history.
func (s *Service) Create(ctx context.Context, in CreateInput) (*session.Session, error) {
	sess := &session.Session{
		SessionID:       uuid.New(),
		HostID:          in.HostID,
		Title:           in.Title,
		LocationName:    in.LocationName,
		DurationMinutes: in.DurationMinutes,
		MaxGuests:       in.MaxGuests,
		Status:          session.StatusOpen,
		CreatedAt:       s.now().UTC(),
	}
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("%w: create session: %v", ErrStoreUnavailable, err)
	}
	s.logger.Info().
		Str("session_id", sess.SessionID.String()).
		Str("host_id", sess.HostID.String()).
		Int("duration_minutes", sess.DurationMinutes).
		Msg("session opened")
	return sess, nil
}

// Get returns the raw session record.
func (s *Service) Get(ctx context.Context, sessionID uuid.UUID) (*session.Session, error) {
	return s.repo.GetByID(ctx, sessionID)
}

// Active resolves the host's single active session. When the store holds
// more than one open session the most recently created wins.
func (s *Service) Active(ctx context.Context, hostID uuid.UUID) (*session.Session, error) {
	open, err := s.repo.ListOpenByHost(ctx, hostID)
	if err != nil {
		return nil, err
	}
	return session.MostRecentOpen(open), nil
}

// ListByHost returns the host's session history.
func (s *Service) ListByHost(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]*session.Session, error) {
	return s.repo.ListByHost(ctx, hostID, limit, offset)
}

// Finish closes the session by explicit host command. Closing an already
// terminal session is a successful no-op with no store write; an explicit
// close racing the expiry timer is decided at the per-session lock, and
// whichever terminal state got there first stands.
func (s *Service) Finish(ctx context.Context, sessionID, actorID uuid.UUID) (*session.Session, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil || sess == nil {
		return nil, err
	}
	if !sess.IsHost(actorID) {
		return nil, session.ErrNotHost
	}
	if sess.IsTerminal() {
		return sess, nil
	}

	// The timestamp is fixed before the guarded write so the returned
	// record carries exactly what the row now holds.
	closedAt := s.now().UTC()
	moved, err := s.repo.UpdateStatus(ctx, sessionID, session.StatusOpen, session.StatusClosed, closedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: close session: %v", ErrStoreUnavailable, err)
	}
	if !moved {
		// Lost the guarded write; re-read whatever terminal state won.
		return s.repo.GetByID(ctx, sessionID)
	}

	sess.Status = session.StatusClosed
	sess.ClosedAt = &closedAt
	s.driver.Cancel(sessionID)
	s.emitter.Emit(sessionID, notification.EventSessionPhase, notification.SessionPhaseEvent{
		SessionID:     sessionID,
		Phase:         string(session.PhaseClosed),
		TimeRemaining: FormatRemaining(0),
	})
	s.logger.Info().Str("session_id", sessionID.String()).Msg("session closed by host")
	return sess, nil
}

// Observe attaches a phase-timer observer for the session and returns its
// detach func. Terminal sessions need no timer and get a no-op detach.
func (s *Service) Observe(ctx context.Context, sessionID uuid.UUID) (func(), error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	if sess.IsTerminal() {
		return func() {}, nil
	}
	return s.driver.Attach(sess), nil
}

// View is the derived model pushed to the UI collaborator.
type View struct {
	Session       *session.Session           `json:"session"`
	Phase         session.Phase              `json:"phase"`
	TimeRemaining string                     `json:"timeRemaining"`
	Orders        []*order.Order             `json:"orders"`
	Bills         []settlement.Bill          `json:"bills"`
	HostNet       settlement.HostNet         `json:"hostNet"`
	Disbursement  *disbursement.Disbursement `json:"disbursement"`
}

// View assembles the full session view model. Bills and host net are
// recomputed from the order snapshot on every call.
func (s *Service) View(ctx context.Context, sessionID uuid.UUID) (*View, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil || sess == nil {
		return nil, err
	}
	orders, err := s.orderRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	disb, err := s.disbRepo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if disb == nil {
		disb = disbursement.New(sess.SessionID, sess.HostID)
	}

	phase, remaining := sess.PhaseAt(s.now())
	return &View{
		Session:       sess,
		Phase:         phase,
		TimeRemaining: FormatRemaining(remaining),
		Orders:        orders,
		Bills:         s.settlementSvc.BillsFor(orders),
		HostNet:       settlement.ComputeHostNet(orders),
		Disbursement:  disb,
	}, nil
}

// handleSignal is the timer sink. It runs on the ticker goroutine, so it
// only fans out the countdown and hands the expiry write-back to a separate
// goroutine; it never blocks on I/O.
func (s *Service) handleSignal(sig timer.Signal) {
	s.emitter.Emit(sig.SessionID, notification.EventSessionPhase, notification.SessionPhaseEvent{
		SessionID:     sig.SessionID,
		Phase:         string(sig.Phase),
		TimeRemaining: FormatRemaining(sig.TimeRemaining),
	})
	if sig.Phase == session.PhaseExpired {
		go s.expire(context.Background(), sig.SessionID)
	}
}

// expire writes EXPIRED back to the store once the timer crosses zero,
// unless an explicit close already won the race.
func (s *Service) expire(ctx context.Context, sessionID uuid.UUID) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID.String()).Msg("expiry write-back: load failed")
		return
	}
	if sess == nil || sess.Status != session.StatusOpen {
		return
	}
	moved, err := s.repo.UpdateStatus(ctx, sessionID, session.StatusOpen, session.StatusExpired, s.now().UTC())
	if err != nil {
		// The phase stays correct on read even without the write-back;
		// log and move on.
		s.logger.Warn().Err(err).Str("session_id", sessionID.String()).Msg("expiry write-back failed")
		return
	}
	if moved {
		s.logger.Info().Str("session_id", sessionID.String()).Msg("session expired")
	}
}

// FormatRemaining renders a countdown as M:SS text for display.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
