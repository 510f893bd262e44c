package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jastip-hub/jastip-hub/internal/domain/disbursement"
)

// DisbursementRepository implements disbursement.Repository.
type DisbursementRepository struct {
	pool *pgxpool.Pool
}

func NewDisbursementRepository(pool *pgxpool.Pool) *DisbursementRepository {
	return &DisbursementRepository{pool: pool}
}

func (r *DisbursementRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*disbursement.Disbursement, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, session_id, host_id, status, amount, payout_ref, last_error, requested_at, completed_at
		FROM disbursements WHERE session_id=$1
	`, sessionID)
	var d disbursement.Disbursement
	var payoutRef, lastErr *string
	var requestedAt, completedAt *time.Time
	if err := row.Scan(&d.ID, &d.SessionID, &d.HostID, &d.Status, &d.Amount, &payoutRef, &lastErr, &requestedAt, &completedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	d.PayoutRef = payoutRef
	d.LastError = lastErr
	d.RequestedAt = requestedAt
	d.CompletedAt = completedAt
	return &d, nil
}

// Upsert keeps the one-row-per-session invariant at the storage level.
func (r *DisbursementRepository) Upsert(ctx context.Context, d *disbursement.Disbursement) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO disbursements
		(session_id, host_id, status, amount, payout_ref, last_error, requested_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (session_id) DO UPDATE SET
			status=EXCLUDED.status,
			amount=EXCLUDED.amount,
			payout_ref=EXCLUDED.payout_ref,
			last_error=EXCLUDED.last_error,
			requested_at=EXCLUDED.requested_at,
			completed_at=EXCLUDED.completed_at
	`, d.SessionID, d.HostID, d.Status, d.Amount, d.PayoutRef, d.LastError, d.RequestedAt, d.CompletedAt)
	return err
}
