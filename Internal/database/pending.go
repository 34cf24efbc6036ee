package datafeed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fazecat/signalmaker/Internal/types"
)

// The pending-confirmation methods implement confirmation.Store, so
// signals that are mid-confirmation survive a process restart.

func (s *Store) Get(ctx context.Context, symbol string) (*types.PendingConfirmation, error) {
	var p types.PendingConfirmation
	err := s.db.QueryRowContext(ctx, `
		SELECT symbol, signal_date, confirmation_count, anchor_close
		FROM pending_confirmations WHERE symbol = $1`, symbol).
		Scan(&p.Symbol, &p.SignalDate, &p.ConfirmationCount, &p.AnchorClose)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pending confirmation for %s: %w", symbol, err)
	}
	return &p, nil
}

func (s *Store) Put(ctx context.Context, p *types.PendingConfirmation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_confirmations (symbol, signal_date, confirmation_count, anchor_close)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol) DO UPDATE SET
			signal_date = EXCLUDED.signal_date,
			confirmation_count = EXCLUDED.confirmation_count,
			anchor_close = EXCLUDED.anchor_close`,
		p.Symbol, p.SignalDate, p.ConfirmationCount, p.AnchorClose)
	if err != nil {
		return fmt.Errorf("failed to save pending confirmation for %s: %w", p.Symbol, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_confirmations WHERE symbol = $1`, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete pending confirmation for %s: %w", symbol, err)
	}
	return nil
}

func (s *Store) All(ctx context.Context) ([]types.PendingConfirmation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, signal_date, confirmation_count, anchor_close
		FROM pending_confirmations ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending confirmations: %w", err)
	}
	defer rows.Close()

	var out []types.PendingConfirmation
	for rows.Next() {
		var p types.PendingConfirmation
		if err := rows.Scan(&p.Symbol, &p.SignalDate, &p.ConfirmationCount, &p.AnchorClose); err != nil {
			return nil, fmt.Errorf("failed to scan pending confirmation: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
