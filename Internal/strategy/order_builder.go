package strategy

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fazecat/signalmaker/Internal/types"
)

// ErrNoViableSize means the configured capital cannot buy a single
// share at the entry price. The caller skips the order.
var ErrNoViableSize = errors.New("capital per trade buys zero shares at entry price")

// SizerConfig is the risk surface applied to every confirmed signal.
type SizerConfig struct {
	CapitalPerTrade  float64 // currency amount committed per position
	StopLossPercent  float64 // distance below entry, e.g. 5 for 5%
	TargetPercent    float64 // distance above entry
	LimitPriceOffset float64 // discount below entry for LIMIT entries
	OrderKind        string  // LIMIT or MARKET
	TimeInForce      string
	TrailingJump     float64
}

// round2 rounds a price to the two decimal places brokers accept.
func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// BuildOrderIntent sizes a confirmed signal under the risk config.
// Quantity is the whole number of shares the per-trade capital affords;
// stop, target and limit prices are percentage offsets from the entry,
// rounded to 2 decimals. The intent carries a correlation id minted
// here exactly once, so every placement attempt for it submits the
// same id and the broker can deduplicate a resubmission.
func BuildOrderIntent(order types.ConfirmedOrder, cfg SizerConfig) (*types.OrderIntent, error) {
	if order.EntryPrice <= 0 {
		return nil, fmt.Errorf("invalid entry price %.2f for %s", order.EntryPrice, order.Symbol)
	}

	entry := decimal.NewFromFloat(order.EntryPrice)
	capital := decimal.NewFromFloat(cfg.CapitalPerTrade)
	hundred := decimal.NewFromInt(100)

	quantity := capital.Div(entry).IntPart()
	if quantity <= 0 {
		return nil, fmt.Errorf("%s at %.2f: %w", order.Symbol, order.EntryPrice, ErrNoViableSize)
	}

	intent := &types.OrderIntent{
		Symbol:        order.Symbol,
		CorrelationID: "auto_" + uuid.NewString(),
		Quantity:      quantity,
		OrderKind:     cfg.OrderKind,
		EntryPrice:    order.EntryPrice,
		TimeInForce:   cfg.TimeInForce,
		StopLossPrice: round2(entry.Mul(
			decimal.NewFromInt(1).Sub(decimal.NewFromFloat(cfg.StopLossPercent).Div(hundred)))),
		TargetPrice: round2(entry.Mul(
			decimal.NewFromInt(1).Add(decimal.NewFromFloat(cfg.TargetPercent).Div(hundred)))),
	}

	if cfg.OrderKind == types.OrderKindLimit {
		intent.LimitPrice = round2(entry.Mul(
			decimal.NewFromInt(1).Sub(decimal.NewFromFloat(cfg.LimitPriceOffset).Div(hundred))))
	}

	return intent, nil
}
