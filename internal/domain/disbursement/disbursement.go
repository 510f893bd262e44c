package disbursement

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents disbursement status.
type Status string

const (
	StatusNone      Status = "NONE"
	StatusRequested Status = "REQUESTED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

var (
	ErrInvalidTransition = errors.New("invalid disbursement status transition")
	// ErrConflict marks a payout attempt that must be rejected locally,
	// before any gateway call: a request is already in flight or has
	// already completed.
	ErrConflict = errors.New("disbursement already requested or completed")
	ErrNotEligible = errors.New("nothing to disburse")
)

// Disbursement tracks the single host payout of a session. COMPLETED is
// absorbing: once reached, the record is the idempotency boundary toward the
// payout gateway and no further external call is ever made for the session.
type Disbursement struct {
	ID          int64      `json:"id"`
	SessionID   uuid.UUID  `json:"sessionId"`
	HostID      uuid.UUID  `json:"hostId"`
	Status      Status     `json:"status"`
	Amount      int64      `json:"amount"`
	PayoutRef   *string    `json:"payoutRef,omitempty"`
	LastError   *string    `json:"lastError,omitempty"`
	RequestedAt *time.Time `json:"requestedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// New returns the implicit empty record for a session that has never
// requested a payout.
func New(sessionID, hostID uuid.UUID) *Disbursement {
	return &Disbursement{SessionID: sessionID, HostID: hostID, Status: StatusNone}
}

// CanTransitionTo validates a status transition. FAILED -> REQUESTED is the
// retry edge; COMPLETED has no outgoing edges.
func (d *Disbursement) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusNone:      {StatusRequested},
		StatusRequested: {StatusCompleted, StatusFailed},
		StatusCompleted: {},
		StatusFailed:    {StatusRequested},
	}
	for _, allowed := range transitions[d.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CanRequest reports whether a new payout attempt is allowed for the given
// net amount. Both in-flight and completed payouts block further attempts.
func (d *Disbursement) CanRequest(net int64) bool {
	return net > 0 && d.Status != StatusRequested && d.Status != StatusCompleted
}

// MarkRequested records the start of a payout attempt.
func (d *Disbursement) MarkRequested(amount int64, now time.Time) error {
	if !d.CanTransitionTo(StatusRequested) {
		return ErrConflict
	}
	d.Status = StatusRequested
	d.Amount = amount
	d.RequestedAt = &now
	d.LastError = nil
	return nil
}

// MarkCompleted pins the record to its absorbing state.
func (d *Disbursement) MarkCompleted(payoutRef string, now time.Time) error {
	if !d.CanTransitionTo(StatusCompleted) {
		return ErrInvalidTransition
	}
	d.Status = StatusCompleted
	d.PayoutRef = &payoutRef
	d.CompletedAt = &now
	return nil
}

// MarkFailed records a failed attempt; the session may retry.
func (d *Disbursement) MarkFailed(errMsg string, now time.Time) error {
	if !d.CanTransitionTo(StatusFailed) {
		return ErrInvalidTransition
	}
	d.Status = StatusFailed
	d.LastError = &errMsg
	return nil
}
