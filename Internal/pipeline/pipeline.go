package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fazecat/signalmaker/Internal/broker"
	"github.com/fazecat/signalmaker/Internal/features"
	"github.com/fazecat/signalmaker/Internal/indicators"
	"github.com/fazecat/signalmaker/Internal/strategy"
	"github.com/fazecat/signalmaker/Internal/strategy/confirmation"
	"github.com/fazecat/signalmaker/Internal/strategy/signals"
	"github.com/fazecat/signalmaker/Internal/types"
	"github.com/fazecat/signalmaker/Internal/utils"
)

// BarSource supplies daily bars in ascending date order with no
// duplicate dates per symbol.
type BarSource interface {
	GetDailyBars(ctx context.Context, symbol string) ([]types.Bar, error)
}

// Store is the persistence surface the pipeline writes through.
type Store interface {
	UpsertSignal(ctx context.Context, sig *types.CompositeSignal) error
	RecordOrder(ctx context.Context, o *types.OrderRecord) error
	ApplyStatusUpdate(ctx context.Context, orderID, status string, filledQty, remainingQty int64, averagePrice float64, legs string) error
	CountOpenPositions(ctx context.Context) (int, error)
	GetWatchlist(ctx context.Context) ([]string, error)
}

// Options tune one pipeline run.
type Options struct {
	Sizer            strategy.SizerConfig
	MaxPositions     int
	EnableAutoOrders bool
	DryRun           bool
	RateLimitDelay   time.Duration
	Retry            utils.RetryConfig
}

// Summary is the end-of-run accounting reported to the operator.
type Summary struct {
	Signals       int
	Confirmations int
	Placed        int
	Skipped       int
}

func (s Summary) String() string {
	return fmt.Sprintf("signals=%d confirmations=%d placed=%d skipped=%d",
		s.Signals, s.Confirmations, s.Placed, s.Skipped)
}

// Pipeline runs the daily pass: bars through indicators, fusion,
// confirmation, sizing and placement, one symbol at a time.
type Pipeline struct {
	bars    BarSource
	store   Store
	engine  *signals.FusionEngine
	tracker *confirmation.Tracker
	gateway broker.Broker
	opts    Options
	log     zerolog.Logger

	sleep func(time.Duration)
}

func New(bars BarSource, store Store, engine *signals.FusionEngine, tracker *confirmation.Tracker, gateway broker.Broker, opts Options, log zerolog.Logger) *Pipeline {
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = utils.DefaultRetryConfig()
	}
	return &Pipeline{
		bars:    bars,
		store:   store,
		engine:  engine,
		tracker: tracker,
		gateway: gateway,
		opts:    opts,
		log:     log,
		sleep:   time.Sleep,
	}
}

// Run executes one pass over the symbols. Per-symbol failures below the
// sizing boundary are logged and skipped; only configuration-level
// problems abort the batch.
func (p *Pipeline) Run(ctx context.Context, symbols []string) (Summary, error) {
	var summary Summary

	openPositions, err := p.store.CountOpenPositions(ctx)
	if err != nil {
		return summary, fmt.Errorf("counting open positions: %w", err)
	}

	for i, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if i > 0 && p.opts.RateLimitDelay > 0 {
			p.sleep(p.opts.RateLimitDelay)
		}

		confirmed, err := p.processSymbol(ctx, symbol, &summary)
		if err != nil {
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("skipping symbol")
			continue
		}
		if confirmed == nil {
			continue
		}
		summary.Confirmations++

		placed := p.placeOrder(ctx, confirmed, openPositions+summary.Placed, &summary)
		if placed {
			summary.Placed++
		}
	}

	p.log.Info().
		Int("signals", summary.Signals).
		Int("confirmations", summary.Confirmations).
		Int("placed", summary.Placed).
		Int("skipped", summary.Skipped).
		Msg("run complete")
	return summary, nil
}

// processSymbol takes one symbol through signal generation and
// confirmation tracking. It returns a confirmed order when the symbol's
// pending entry matured on this pass.
func (p *Pipeline) processSymbol(ctx context.Context, symbol string, summary *Summary) (*types.ConfirmedOrder, error) {
	bars, err := p.bars.GetDailyBars(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("loading bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no price history")
	}

	series, err := indicators.Compute(bars, indicators.DefaultSMAPeriod, indicators.DefaultRSIPeriod)
	if err != nil {
		return nil, err
	}
	vector, err := features.Latest(series)
	if err != nil {
		return nil, err
	}

	sig := p.engine.Fuse(ctx, symbol, series, vector)
	summary.Signals++

	if err := p.store.UpsertSignal(ctx, sig); err != nil {
		p.log.Error().Err(err).Str("symbol", symbol).Msg("failed to persist signal")
	}

	p.log.Info().
		Str("symbol", symbol).
		Str("traditional", sig.TraditionalLabel).
		Str("final", sig.FinalLabel).
		Float64("composite", sig.CompositeScore).
		Msg("signal generated")

	if sig.IsStrongBuy() {
		if _, err := p.tracker.Arm(ctx, sig); err != nil {
			return nil, fmt.Errorf("arming confirmation: %w", err)
		}
	}

	return p.tracker.Observe(ctx, bars[len(bars)-1])
}

// placeOrder sizes and submits one confirmed signal. Every skip reason
// is logged and counted; a transport-level failure is retried with
// backoff before giving up on the attempt.
func (p *Pipeline) placeOrder(ctx context.Context, confirmed *types.ConfirmedOrder, openPositions int, summary *Summary) bool {
	if !p.opts.EnableAutoOrders {
		p.log.Info().Str("symbol", confirmed.Symbol).Msg("auto orders disabled, not placing")
		summary.Skipped++
		return false
	}

	if p.opts.MaxPositions > 0 && openPositions >= p.opts.MaxPositions {
		p.log.Warn().Str("symbol", confirmed.Symbol).Int("max_positions", p.opts.MaxPositions).
			Msg("maximum positions reached, not placing")
		summary.Skipped++
		return false
	}

	intent, err := strategy.BuildOrderIntent(*confirmed, p.opts.Sizer)
	if err != nil {
		if errors.Is(err, strategy.ErrNoViableSize) {
			p.log.Warn().Err(err).Str("symbol", confirmed.Symbol).Msg("no viable size, skipping order")
		} else {
			p.log.Error().Err(err).Str("symbol", confirmed.Symbol).Msg("failed to size order")
		}
		summary.Skipped++
		return false
	}

	// Dry runs size the order so the log shows exactly what would have
	// been sent, then stop short of any broker.
	if p.opts.DryRun {
		p.log.Info().Str("symbol", confirmed.Symbol).Int64("quantity", intent.Quantity).
			Float64("stop_loss", intent.StopLossPrice).Float64("target", intent.TargetPrice).
			Msg("dry run, not placing")
		summary.Skipped++
		return false
	}

	var record *types.OrderRecord
	err = utils.RetryWithBackoff(ctx, p.opts.Retry, transportOnly, func() error {
		var placeErr error
		record, placeErr = p.gateway.Place(ctx, intent)
		return placeErr
	})
	if err != nil {
		var rejected *broker.RejectedError
		switch {
		case errors.As(err, &rejected):
			p.log.Error().Str("symbol", confirmed.Symbol).Int("status", rejected.StatusCode).
				Str("body", rejected.Body).Msg("broker rejected order")
		case errors.Is(err, broker.ErrSecurityIDNotFound):
			p.log.Warn().Err(err).Str("symbol", confirmed.Symbol).Msg("security id not found, skipping order")
		default:
			p.log.Error().Err(err).Str("symbol", confirmed.Symbol).Msg("order placement failed")
		}
		summary.Skipped++
		return false
	}

	if err := p.store.RecordOrder(ctx, record); err != nil {
		p.log.Error().Err(err).Str("symbol", record.Symbol).Msg("failed to persist order record")
	}

	p.log.Info().
		Str("symbol", record.Symbol).
		Str("order_id", record.BrokerOrderID).
		Int64("quantity", record.Quantity).
		Float64("price", record.Price).
		Str("status", record.Status).
		Msg("order placed")
	return true
}

// transportOnly limits retries to network-level failures; rejections
// and resolution misses are terminal.
func transportOnly(err error) bool {
	var te *broker.TransportError
	return errors.As(err, &te)
}

// Reconcile polls broker-side status for all orders and applies the
// updates to the store. It returns the number of orders updated.
func (p *Pipeline) Reconcile(ctx context.Context) (int, error) {
	updates, err := p.gateway.Reconcile(ctx)
	if err != nil {
		return 0, fmt.Errorf("polling broker orders: %w", err)
	}

	applied := 0
	for _, u := range updates {
		if err := p.store.ApplyStatusUpdate(ctx, u.OrderID, u.Status, u.FilledQty, u.RemainingQty, u.AveragePrice, u.Legs); err != nil {
			p.log.Error().Err(err).Str("order_id", u.OrderID).Msg("failed to apply status update")
			continue
		}
		applied++
		p.log.Info().Str("order_id", u.OrderID).Str("status", u.Status).Msg("order status updated")
	}
	return applied, nil
}
