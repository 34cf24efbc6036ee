package datafeed

import (
	"context"
	"fmt"

	"github.com/fazecat/signalmaker/Internal/types"
)

// ListSecurities returns all known symbol-to-security-id listings for
// the broker resolver.
func (s *Store) ListSecurities(ctx context.Context) ([]types.SecurityListing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, COALESCE(name, ''), security_id FROM securities ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch securities: %w", err)
	}
	defer rows.Close()

	var out []types.SecurityListing
	for rows.Next() {
		var l types.SecurityListing
		if err := rows.Scan(&l.Symbol, &l.Name, &l.SecurityID); err != nil {
			return nil, fmt.Errorf("failed to scan security row: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpsertSecurity stores one listing, keyed by symbol.
func (s *Store) UpsertSecurity(ctx context.Context, l types.SecurityListing) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO securities (symbol, name, security_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			security_id = EXCLUDED.security_id`,
		l.Symbol, l.Name, l.SecurityID)
	if err != nil {
		return fmt.Errorf("failed to upsert security %s: %w", l.Symbol, err)
	}
	return nil
}
