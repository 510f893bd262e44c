package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the authoritative, persisted session status.
type Status string

const (
	StatusOpen    Status = "OPEN"
	StatusClosed  Status = "CLOSED"
	StatusExpired Status = "EXPIRED"
)

// Phase is the derived lifecycle phase shown to clients. It refines the
// persisted status with wall-clock information: a session that is still OPEN
// in the store may already be in its revision window, or past its deadline.
type Phase string

const (
	PhaseOpen           Phase = "OPEN"
	PhaseRevisionWindow Phase = "REVISION_WINDOW"
	PhaseClosed         Phase = "CLOSED"
	PhaseExpired        Phase = "EXPIRED"
)

// RevisionWindow is the final interval before expiry during which the host
// flags out-of-stock items instead of accepting new requests.
const RevisionWindow = 2 * time.Minute

var (
	ErrValidation        = errors.New("invalid session request")
	ErrInvalidTransition = errors.New("invalid session status transition")
	ErrNotHost           = errors.New("acting user is not the session host")
)

// Session is a time-boxed group shopping window owned by a host.
type Session struct {
	ID              int64      `json:"id"`
	SessionID       uuid.UUID  `json:"sessionId"`
	HostID          uuid.UUID  `json:"hostId"`
	Title           string     `json:"title"`
	LocationName    string     `json:"locationName"`
	DurationMinutes int        `json:"durationMinutes"`
	MaxGuests       int        `json:"maxGuests"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	ClosedAt        *time.Time `json:"closedAt,omitempty"`
}

// Validate checks the fields a host supplies at creation time. Failures wrap
// ErrValidation so the transport can answer with a client error.
func (s *Session) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if s.DurationMinutes <= 0 {
		return fmt.Errorf("%w: durationMinutes must be positive", ErrValidation)
	}
	if s.MaxGuests <= 0 {
		return fmt.Errorf("%w: maxGuests must be positive", ErrValidation)
	}
	return nil
}

// Deadline is the instant the shopping window ends.
func (s *Session) Deadline() time.Time {
	return s.CreatedAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// IsTerminal reports whether the persisted status is final.
func (s *Session) IsTerminal() bool {
	return s.Status == StatusClosed || s.Status == StatusExpired
}

// IsHost reports whether userID owns the session.
func (s *Session) IsHost(userID uuid.UUID) bool {
	return s.HostID == userID
}

// CanTransitionTo validates a persisted status transition. The machine only
// moves forward: OPEN -> CLOSED (host close) or OPEN -> EXPIRED (timer).
func (s *Session) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusOpen:    {StatusClosed, StatusExpired},
		StatusClosed:  {},
		StatusExpired: {},
	}
	for _, allowed := range transitions[s.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Close marks the session closed by explicit host action.
func (s *Session) Close(now time.Time) error {
	if !s.CanTransitionTo(StatusClosed) {
		return ErrInvalidTransition
	}
	s.Status = StatusClosed
	s.ClosedAt = &now
	return nil
}

// Expire marks the session expired by the timer.
func (s *Session) Expire(now time.Time) error {
	if !s.CanTransitionTo(StatusExpired) {
		return ErrInvalidTransition
	}
	s.Status = StatusExpired
	s.ClosedAt = &now
	return nil
}

// TimedPhase computes the advisory phase of a still-open window from the
// clock alone. Past the deadline it yields PhaseExpired, which callers must
// reconcile with the persisted status (a server-confirmed CLOSED always wins).
func TimedPhase(createdAt time.Time, durationMinutes int, now time.Time) (Phase, time.Duration) {
	deadline := createdAt.Add(time.Duration(durationMinutes) * time.Minute)
	remaining := deadline.Sub(now)
	switch {
	case remaining <= 0:
		return PhaseExpired, 0
	case remaining <= RevisionWindow:
		return PhaseRevisionWindow, remaining
	default:
		return PhaseOpen, remaining
	}
}

// PhaseAt reconciles the persisted status with the clock.
func (s *Session) PhaseAt(now time.Time) (Phase, time.Duration) {
	switch s.Status {
	case StatusClosed:
		return PhaseClosed, 0
	case StatusExpired:
		return PhaseExpired, 0
	}
	return TimedPhase(s.CreatedAt, s.DurationMinutes, now)
}

// AcceptsOrders reports whether new guest requests are allowed at now.
// Only the Open phase accepts requests; the revision window and both
// terminal states do not.
func (s *Session) AcceptsOrders(now time.Time) bool {
	phase, _ := s.PhaseAt(now)
	return phase == PhaseOpen
}

// MostRecentOpen picks the active session when the store holds more than one
// live session for a host: most recently created wins, the rest are history.
func MostRecentOpen(sessions []*Session) *Session {
	var active *Session
	for _, s := range sessions {
		if s.Status != StatusOpen {
			continue
		}
		if active == nil || s.CreatedAt.After(active.CreatedAt) {
			active = s
		}
	}
	return active
}
