package order

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status Status) error
}
