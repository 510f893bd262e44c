package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jastip-hub/jastip-hub/internal/domain/order"
)

// OrderRepository implements order.Repository.
type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, order_id, session_id, requester_id, item_name, quantity, price_estimate, jastip_fee, notes, status, created_at, updated_at`

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO orders
		(order_id, session_id, requester_id, item_name, quantity, price_estimate, jastip_fee, notes, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, o.OrderID, o.SessionID, o.RequesterID, o.ItemName, o.Quantity, o.PriceEstimate, o.JastipFee, o.Notes, o.Status, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *OrderRepository) GetByID(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE order_id=$1
	`, orderID)
	return scanOrder(row)
}

func (r *OrderRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*order.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE session_id=$1
		ORDER BY created_at ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []*order.Order
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(&o.ID, &o.OrderID, &o.SessionID, &o.RequesterID, &o.ItemName, &o.Quantity, &o.PriceEstimate, &o.JastipFee, &o.Notes, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status order.Status) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE orders SET status=$1, updated_at=$2 WHERE order_id=$3
	`, status, time.Now().UTC(), orderID)
	return err
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	if err := row.Scan(&o.ID, &o.OrderID, &o.SessionID, &o.RequesterID, &o.ItemName, &o.Quantity, &o.PriceEstimate, &o.JastipFee, &o.Notes, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}
