package datafeed

import (
	"context"
	"fmt"

	"github.com/fazecat/signalmaker/Internal/types"
)

// UpsertSignal stores a composite signal keyed on (symbol, signal_date).
// A rerun for the same key replaces the previous values.
func (s *Store) UpsertSignal(ctx context.Context, sig *types.CompositeSignal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (
			symbol, signal_date, close,
			traditional_label, traditional_score,
			model_label, model_probability, model_score,
			sentiment_label, sentiment_score, sentiment_confidence,
			composite_score, final_label
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (symbol, signal_date) DO UPDATE SET
			close = EXCLUDED.close,
			traditional_label = EXCLUDED.traditional_label,
			traditional_score = EXCLUDED.traditional_score,
			model_label = EXCLUDED.model_label,
			model_probability = EXCLUDED.model_probability,
			model_score = EXCLUDED.model_score,
			sentiment_label = EXCLUDED.sentiment_label,
			sentiment_score = EXCLUDED.sentiment_score,
			sentiment_confidence = EXCLUDED.sentiment_confidence,
			composite_score = EXCLUDED.composite_score,
			final_label = EXCLUDED.final_label,
			created_at = CURRENT_TIMESTAMP`,
		sig.Symbol, sig.Date, sig.Close,
		sig.TraditionalLabel, sig.TraditionalScore,
		sig.ModelLabel, sig.ModelProbability, sig.ModelScore,
		sig.SentimentLabel, sig.SentimentScore, sig.SentimentConfidence,
		sig.CompositeScore, sig.FinalLabel,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert signal for %s: %w", sig.Symbol, err)
	}
	return nil
}

// RecentSignals returns the newest signals, most recent date first.
func (s *Store) RecentSignals(ctx context.Context, limit int) ([]types.CompositeSignal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, signal_date, close,
			traditional_label, traditional_score,
			model_label, model_probability, model_score,
			sentiment_label, sentiment_score, sentiment_confidence,
			composite_score, final_label
		FROM signals
		ORDER BY signal_date DESC, symbol
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch signals: %w", err)
	}
	defer rows.Close()

	var out []types.CompositeSignal
	for rows.Next() {
		var sig types.CompositeSignal
		if err := rows.Scan(
			&sig.Symbol, &sig.Date, &sig.Close,
			&sig.TraditionalLabel, &sig.TraditionalScore,
			&sig.ModelLabel, &sig.ModelProbability, &sig.ModelScore,
			&sig.SentimentLabel, &sig.SentimentScore, &sig.SentimentConfidence,
			&sig.CompositeScore, &sig.FinalLabel,
		); err != nil {
			return nil, fmt.Errorf("failed to scan signal row: %w", err)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}
