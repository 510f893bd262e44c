package disbursement

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for disbursements. There is at most one row
// per session; GetBySession returns nil when no payout was ever attempted.
type Repository interface {
	GetBySession(ctx context.Context, sessionID uuid.UUID) (*Disbursement, error)
	// Upsert inserts or replaces the session's single record.
	Upsert(ctx context.Context, d *Disbursement) error
}
