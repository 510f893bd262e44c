package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for shopping sessions.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, sessionID uuid.UUID) (*Session, error)
	ListByHost(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]*Session, error)
	ListOpenByHost(ctx context.Context, hostID uuid.UUID) ([]*Session, error)
	// UpdateStatus writes a terminal status and the caller-supplied closedAt,
	// guarded on the current status so concurrent close/expiry cannot both
	// win. It returns false when no row matched (the session already left
	// fromStatus).
	UpdateStatus(ctx context.Context, sessionID uuid.UUID, from, to Status, closedAt time.Time) (bool, error)
}
