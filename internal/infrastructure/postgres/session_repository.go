package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jastip-hub/jastip-hub/internal/domain/session"
)

// SessionRepository implements session.Repository.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, session_id, host_id, title, location_name, duration_minutes, max_guests, status, created_at, closed_at`

func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions
		(session_id, host_id, title, location_name, duration_minutes, max_guests, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, s.SessionID, s.HostID, s.Title, s.LocationName, s.DurationMinutes, s.MaxGuests, s.Status, s.CreatedAt)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (*session.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE session_id=$1
	`, sessionID)
	return scanShopSession(row)
}

func (r *SessionRepository) ListByHost(ctx context.Context, hostID uuid.UUID, limit, offset int) ([]*session.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE host_id=$1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, hostID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShopSessions(rows)
}

func (r *SessionRepository) ListOpenByHost(ctx context.Context, hostID uuid.UUID) ([]*session.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE host_id=$1 AND status=$2
		ORDER BY created_at DESC
	`, hostID, session.StatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShopSessions(rows)
}

// UpdateStatus is guarded on the current status so a concurrent close and
// expiry cannot both write; only the row still in fromStatus is touched. The
// closedAt written is the caller's, so the record the caller hands out
// matches the row.
func (r *SessionRepository) UpdateStatus(ctx context.Context, sessionID uuid.UUID, from, to session.Status, closedAt time.Time) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE sessions SET status=$1, closed_at=$2
		WHERE session_id=$3 AND status=$4
	`, to, closedAt, sessionID, from)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func scanShopSession(row pgx.Row) (*session.Session, error) {
	var s session.Session
	var closedAt *time.Time
	if err := row.Scan(&s.ID, &s.SessionID, &s.HostID, &s.Title, &s.LocationName, &s.DurationMinutes, &s.MaxGuests, &s.Status, &s.CreatedAt, &closedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	s.ClosedAt = closedAt
	return &s, nil
}

func collectShopSessions(rows pgx.Rows) ([]*session.Session, error) {
	var sessions []*session.Session
	for rows.Next() {
		var s session.Session
		var closedAt *time.Time
		if err := rows.Scan(&s.ID, &s.SessionID, &s.HostID, &s.Title, &s.LocationName, &s.DurationMinutes, &s.MaxGuests, &s.Status, &s.CreatedAt, &closedAt); err != nil {
			return nil, err
		}
		s.ClosedAt = closedAt
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}
