package datafeed

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/fazecat/signalmaker/Internal/types"
)

// RecordOrder stores a freshly placed order. The broker-assigned order
// id is the upsert key, so re-recording the same order is harmless.
func (s *Store) RecordOrder(ctx context.Context, o *types.OrderRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (
			broker_order_id, symbol, broker, quantity, price, order_type,
			stop_loss, target, status, security_id, trailing_jump, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (broker_order_id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = CURRENT_TIMESTAMP`,
		o.BrokerOrderID, o.Symbol, o.Broker, o.Quantity, o.Price, o.OrderKind,
		o.StopLoss, o.Target, o.Status, o.SecurityID, o.TrailingJump, o.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to record order for %s: %w", o.Symbol, err)
	}
	return nil
}

// ApplyStatusUpdate patches an order with broker-side reconciliation
// state, keyed by the broker order id.
func (s *Store) ApplyStatusUpdate(ctx context.Context, orderID, status string, filledQty, remainingQty int64, averagePrice float64, legs string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE orders SET
			status = $2,
			filled_quantity = $3,
			remaining_quantity = $4,
			average_price = $5,
			legs = COALESCE(NULLIF($6, ''), legs),
			updated_at = CURRENT_TIMESTAMP
		WHERE broker_order_id = $1`,
		orderID, status, filledQty, remainingQty, averagePrice, legs)
	if err != nil {
		return fmt.Errorf("failed to update order %s: %w", orderID, err)
	}
	return nil
}

// CountOpenPositions counts orders in states that still tie up capital.
func (s *Store) CountOpenPositions(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE status = ANY($1)`,
		pq.Array(types.OpenStatuses()),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count open positions: %w", err)
	}
	return count, nil
}

// Orders returns the most recent order records.
func (s *Store) Orders(ctx context.Context, limit int) ([]types.OrderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT broker_order_id, symbol, broker, quantity, price, order_type,
			COALESCE(stop_loss, 0), COALESCE(target, 0), status,
			COALESCE(security_id, ''), COALESCE(trailing_jump, 0),
			COALESCE(filled_quantity, 0), COALESCE(remaining_quantity, 0),
			COALESCE(average_price, 0), COALESCE(legs, ''), created_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	defer rows.Close()

	var out []types.OrderRecord
	for rows.Next() {
		var o types.OrderRecord
		if err := rows.Scan(
			&o.BrokerOrderID, &o.Symbol, &o.Broker, &o.Quantity, &o.Price, &o.OrderKind,
			&o.StopLoss, &o.Target, &o.Status,
			&o.SecurityID, &o.TrailingJump,
			&o.FilledQty, &o.RemainingQty,
			&o.AveragePrice, &o.Legs, &o.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
