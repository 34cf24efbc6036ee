package strategy

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fazecat/signalmaker/Internal/types"
)

func testSizerConfig() SizerConfig {
	return SizerConfig{
		CapitalPerTrade:  10000,
		StopLossPercent:  5,
		TargetPercent:    10,
		LimitPriceOffset: 0.5,
		OrderKind:        types.OrderKindLimit,
		TimeInForce:      "DAY",
	}
}

func confirmedAt(price float64) types.ConfirmedOrder {
	return types.ConfirmedOrder{
		Symbol:      "TEST",
		EntryPrice:  price,
		SignalPrice: price,
		Date:        time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuildOrderIntentQuantity(t *testing.T) {
	intent, err := BuildOrderIntent(confirmedAt(250), testSizerConfig())
	if err != nil {
		t.Fatalf("BuildOrderIntent failed: %v", err)
	}
	if intent.Quantity != 40 {
		t.Errorf("quantity = %d, want 40 (10000 / 250)", intent.Quantity)
	}
}

func TestBuildOrderIntentQuantityFloors(t *testing.T) {
	intent, err := BuildOrderIntent(confirmedAt(333), testSizerConfig())
	if err != nil {
		t.Fatalf("BuildOrderIntent failed: %v", err)
	}
	if intent.Quantity != 30 {
		t.Errorf("quantity = %d, want floor(10000/333) = 30", intent.Quantity)
	}
}

func TestBuildOrderIntentPrices(t *testing.T) {
	intent, err := BuildOrderIntent(confirmedAt(250), testSizerConfig())
	if err != nil {
		t.Fatalf("BuildOrderIntent failed: %v", err)
	}
	if intent.StopLossPrice != 237.50 {
		t.Errorf("stop loss = %.2f, want 237.50", intent.StopLossPrice)
	}
	if intent.TargetPrice != 275.00 {
		t.Errorf("target = %.2f, want 275.00", intent.TargetPrice)
	}
	if intent.LimitPrice != 248.75 {
		t.Errorf("limit = %.2f, want 248.75", intent.LimitPrice)
	}
}

func TestBuildOrderIntentMarketSkipsLimitPrice(t *testing.T) {
	cfg := testSizerConfig()
	cfg.OrderKind = types.OrderKindMarket

	intent, err := BuildOrderIntent(confirmedAt(250), cfg)
	if err != nil {
		t.Fatalf("BuildOrderIntent failed: %v", err)
	}
	if intent.LimitPrice != 0 {
		t.Errorf("limit price = %.2f, want unset for MARKET", intent.LimitPrice)
	}
	if intent.EntryPrice != 250 {
		t.Errorf("entry price = %.2f, want kept for bookkeeping", intent.EntryPrice)
	}
}

func TestBuildOrderIntentMintsCorrelationID(t *testing.T) {
	a, err := BuildOrderIntent(confirmedAt(250), testSizerConfig())
	if err != nil {
		t.Fatalf("BuildOrderIntent failed: %v", err)
	}
	b, err := BuildOrderIntent(confirmedAt(250), testSizerConfig())
	if err != nil {
		t.Fatalf("BuildOrderIntent failed: %v", err)
	}

	if !strings.HasPrefix(a.CorrelationID, "auto_") {
		t.Errorf("correlation id = %q, want auto_ prefix", a.CorrelationID)
	}
	// One id per intent: retries of the same intent reuse it, distinct
	// intents never share one.
	if a.CorrelationID == b.CorrelationID {
		t.Error("distinct intents must carry distinct correlation ids")
	}
}

func TestBuildOrderIntentNoViableSize(t *testing.T) {
	_, err := BuildOrderIntent(confirmedAt(15000), testSizerConfig())
	if !errors.Is(err, ErrNoViableSize) {
		t.Errorf("err = %v, want ErrNoViableSize", err)
	}
}

func TestBuildOrderIntentRejectsBadEntry(t *testing.T) {
	if _, err := BuildOrderIntent(confirmedAt(0), testSizerConfig()); err == nil {
		t.Error("zero entry price should be rejected")
	}
}
