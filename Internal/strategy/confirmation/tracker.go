package confirmation

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/fazecat/signalmaker/Internal/types"
)

// DefaultCandles is how many newer bars must print before a strong buy
// is acted on.
const DefaultCandles = 1

// Store persists pending confirmations keyed by symbol, so a restart
// does not drop signals that are mid-confirmation.
type Store interface {
	Get(ctx context.Context, symbol string) (*types.PendingConfirmation, error)
	Put(ctx context.Context, p *types.PendingConfirmation) error
	Delete(ctx context.Context, symbol string) error
	All(ctx context.Context) ([]types.PendingConfirmation, error)
}

// Step advances one pending confirmation against the latest bar. It is a
// pure function: the caller owns persisting the returned state. A bar
// dated strictly after the anchor date counts as one confirmation candle
// and moves the anchor to that bar; the anchor close (the price at
// signal time) never changes. When the count reaches candles the state
// is consumed and a confirmed order is emitted with the bar's close as
// entry price.
func Step(state *types.PendingConfirmation, bar types.Bar, candles int) (*types.PendingConfirmation, *types.ConfirmedOrder) {
	if state == nil {
		return nil, nil
	}

	next := *state
	if bar.Date.After(next.SignalDate) {
		next.ConfirmationCount++
		next.SignalDate = bar.Date
	}

	if next.ConfirmationCount >= candles {
		return nil, &types.ConfirmedOrder{
			Symbol:      next.Symbol,
			EntryPrice:  bar.Close,
			SignalPrice: next.AnchorClose,
			Date:        bar.Date,
		}
	}
	return &next, nil
}

// Tracker applies Step against a store, enforcing one pending entry per
// symbol.
type Tracker struct {
	store   Store
	candles int
	log     zerolog.Logger
}

func NewTracker(store Store, candles int, log zerolog.Logger) *Tracker {
	if candles < 0 {
		candles = DefaultCandles
	}
	return &Tracker{store: store, candles: candles, log: log}
}

// Arm opens a pending confirmation for a strong-buy signal. A symbol
// that is already pending is left untouched and Arm reports false.
func (t *Tracker) Arm(ctx context.Context, sig *types.CompositeSignal) (bool, error) {
	existing, err := t.store.Get(ctx, sig.Symbol)
	if err != nil {
		return false, err
	}
	if existing != nil {
		t.log.Debug().Str("symbol", sig.Symbol).Msg("already pending, ignoring repeat strong buy")
		return false, nil
	}

	p := &types.PendingConfirmation{
		Symbol:      sig.Symbol,
		SignalDate:  sig.Date,
		AnchorClose: sig.Close,
	}
	if err := t.store.Put(ctx, p); err != nil {
		return false, err
	}
	t.log.Info().Str("symbol", sig.Symbol).Time("date", sig.Date).Msg("strong buy pending confirmation")
	return true, nil
}

// Observe feeds the latest bar for a symbol through the state machine.
// It returns a confirmed order when the confirmation count is reached,
// nil otherwise.
func (t *Tracker) Observe(ctx context.Context, bar types.Bar) (*types.ConfirmedOrder, error) {
	state, err := t.store.Get(ctx, bar.Symbol)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}

	next, confirmed := Step(state, bar, t.candles)
	if confirmed != nil {
		if err := t.store.Delete(ctx, bar.Symbol); err != nil {
			return nil, err
		}
		t.log.Info().
			Str("symbol", confirmed.Symbol).
			Float64("entry_price", confirmed.EntryPrice).
			Float64("signal_price", confirmed.SignalPrice).
			Msg("signal confirmed")
		return confirmed, nil
	}

	if next.ConfirmationCount != state.ConfirmationCount {
		if err := t.store.Put(ctx, next); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// Pending lists all symbols currently awaiting confirmation.
func (t *Tracker) Pending(ctx context.Context) ([]types.PendingConfirmation, error) {
	return t.store.All(ctx)
}
