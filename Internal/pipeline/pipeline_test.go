package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fazecat/signalmaker/Internal/broker"
	"github.com/fazecat/signalmaker/Internal/model"
	"github.com/fazecat/signalmaker/Internal/strategy"
	"github.com/fazecat/signalmaker/Internal/strategy/confirmation"
	"github.com/fazecat/signalmaker/Internal/strategy/signals"
	"github.com/fazecat/signalmaker/Internal/types"
)

type memBars struct {
	bars map[string][]types.Bar
}

func (m *memBars) GetDailyBars(_ context.Context, symbol string) ([]types.Bar, error) {
	return m.bars[symbol], nil
}

type memStore struct {
	signals map[string]*types.CompositeSignal
	orders  []*types.OrderRecord
	updates map[string]string
	open    int
}

func newMemStore() *memStore {
	return &memStore{
		signals: make(map[string]*types.CompositeSignal),
		updates: make(map[string]string),
	}
}

func (m *memStore) UpsertSignal(_ context.Context, sig *types.CompositeSignal) error {
	m.signals[sig.Symbol+"|"+sig.Date.Format("2006-01-02")] = sig
	return nil
}

func (m *memStore) RecordOrder(_ context.Context, o *types.OrderRecord) error {
	m.orders = append(m.orders, o)
	return nil
}

func (m *memStore) ApplyStatusUpdate(_ context.Context, orderID, status string, _, _ int64, _ float64, _ string) error {
	m.updates[orderID] = status
	return nil
}

func (m *memStore) CountOpenPositions(context.Context) (int, error) { return m.open, nil }

func (m *memStore) GetWatchlist(context.Context) ([]string, error) { return nil, nil }

func trendBars(symbol string, n int) []types.Bar {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, 0, n)
	for i := 0; i < n; i++ {
		close := 100 - 0.1*float64(i)
		if i >= 54 {
			close = 98 + 0.2*float64(i-54)
		}
		bars = append(bars, types.Bar{
			Symbol: symbol,
			Date:   start.AddDate(0, 0, i),
			Open:   close,
			High:   close + 0.5,
			Low:    close - 0.5,
			Close:  close,
			Volume: 1000 + int64(i),
		})
	}
	return bars
}

func testPipeline(bars *memBars, store *memStore, opts Options) (*Pipeline, *confirmation.MemoryStore) {
	log := zerolog.Nop()
	engine := signals.NewFusionEngine(model.NewHeuristic(), nil, log)
	pendingStore := confirmation.NewMemoryStore()
	tracker := confirmation.NewTracker(pendingStore, 1, log)
	gateway := broker.NewDemo(log)

	if opts.Sizer.CapitalPerTrade == 0 {
		opts.Sizer = strategy.SizerConfig{
			CapitalPerTrade:  10000,
			StopLossPercent:  5,
			TargetPercent:    10,
			LimitPriceOffset: 0.5,
			OrderKind:        types.OrderKindLimit,
			TimeInForce:      "DAY",
		}
	}

	p := New(bars, store, engine, tracker, gateway, opts, log)
	return p, pendingStore
}

func TestRunCreatesPendingOnCrossBar(t *testing.T) {
	bars := &memBars{bars: map[string][]types.Bar{"TEST": trendBars("TEST", 55)}}
	store := newMemStore()
	p, pending := testPipeline(bars, store, Options{EnableAutoOrders: true, MaxPositions: 5})

	summary, err := p.Run(context.Background(), []string{"TEST"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Signals != 1 {
		t.Errorf("signals = %d, want 1", summary.Signals)
	}
	if summary.Confirmations != 0 || summary.Placed != 0 {
		t.Errorf("summary = %+v, want no confirmation on the signal bar itself", summary)
	}

	entry, _ := pending.Get(context.Background(), "TEST")
	if entry == nil {
		t.Fatal("expected a pending confirmation after the cross bar")
	}
	if entry.AnchorClose != 98 {
		t.Errorf("anchor close = %f, want the cross-bar close 98", entry.AnchorClose)
	}

	if len(store.signals) != 1 {
		t.Errorf("stored signals = %d, want 1", len(store.signals))
	}
}

func TestRunConfirmsAndPlacesOnNextBar(t *testing.T) {
	bars := &memBars{bars: map[string][]types.Bar{"TEST": trendBars("TEST", 55)}}
	store := newMemStore()
	p, _ := testPipeline(bars, store, Options{EnableAutoOrders: true, MaxPositions: 5})

	ctx := context.Background()
	if _, err := p.Run(ctx, []string{"TEST"}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// The next trading day a new bar prints and the pending entry
	// matures.
	bars.bars["TEST"] = trendBars("TEST", 56)
	summary, err := p.Run(ctx, []string{"TEST"})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if summary.Confirmations != 1 {
		t.Fatalf("confirmations = %d, want 1", summary.Confirmations)
	}
	if summary.Placed != 1 {
		t.Fatalf("placed = %d, want 1 (summary: %+v)", summary.Placed, summary)
	}

	if len(store.orders) != 1 {
		t.Fatalf("orders recorded = %d, want 1", len(store.orders))
	}
	order := store.orders[0]
	if order.Status != types.OrderStatusSimulated {
		t.Errorf("status = %s, want simulated from the demo broker", order.Status)
	}
	// Entry is the confirming bar's close, 98.2; capital 10000 buys 101.
	if order.Quantity != 101 {
		t.Errorf("quantity = %d, want 101", order.Quantity)
	}
}

func TestRunSkipsSymbolWithTooFewBars(t *testing.T) {
	bars := &memBars{bars: map[string][]types.Bar{
		"THIN": trendBars("THIN", 10),
		"TEST": trendBars("TEST", 55),
	}}
	store := newMemStore()
	p, _ := testPipeline(bars, store, Options{EnableAutoOrders: true, MaxPositions: 5})

	summary, err := p.Run(context.Background(), []string{"THIN", "TEST"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Signals != 1 {
		t.Errorf("signals = %d, want 1 (thin symbol skipped, batch continues)", summary.Signals)
	}
}

func TestRunRespectsMaxPositions(t *testing.T) {
	bars := &memBars{bars: map[string][]types.Bar{"TEST": trendBars("TEST", 56)}}
	store := newMemStore()
	store.open = 5
	p, pending := testPipeline(bars, store, Options{EnableAutoOrders: true, MaxPositions: 5})

	ctx := context.Background()
	// Arm directly so the single run confirms.
	_ = pending.Put(ctx, &types.PendingConfirmation{
		Symbol:      "TEST",
		SignalDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 54),
		AnchorClose: 98,
	})

	summary, err := p.Run(ctx, []string{"TEST"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Confirmations != 1 {
		t.Fatalf("confirmations = %d, want 1", summary.Confirmations)
	}
	if summary.Placed != 0 || summary.Skipped != 1 {
		t.Errorf("summary = %+v, want the order skipped at the position cap", summary)
	}
	if len(store.orders) != 0 {
		t.Error("no order should be recorded at the position cap")
	}
}

func TestRunAutoOrdersDisabled(t *testing.T) {
	bars := &memBars{bars: map[string][]types.Bar{"TEST": trendBars("TEST", 56)}}
	store := newMemStore()
	p, pending := testPipeline(bars, store, Options{EnableAutoOrders: false, MaxPositions: 5})

	ctx := context.Background()
	_ = pending.Put(ctx, &types.PendingConfirmation{
		Symbol:      "TEST",
		SignalDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 54),
		AnchorClose: 98,
	})

	summary, err := p.Run(ctx, []string{"TEST"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Skipped != 1 || summary.Placed != 0 {
		t.Errorf("summary = %+v, want confirmation counted but order skipped", summary)
	}
}

func TestRunDryRunSizesButNeverPlaces(t *testing.T) {
	bars := &memBars{bars: map[string][]types.Bar{"TEST": trendBars("TEST", 56)}}
	store := newMemStore()
	p, pending := testPipeline(bars, store, Options{EnableAutoOrders: true, MaxPositions: 5, DryRun: true})

	spy := &placeSpy{}
	p.gateway = spy

	ctx := context.Background()
	_ = pending.Put(ctx, &types.PendingConfirmation{
		Symbol:      "TEST",
		SignalDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 54),
		AnchorClose: 98,
	})

	summary, err := p.Run(ctx, []string{"TEST"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Confirmations != 1 || summary.Skipped != 1 || summary.Placed != 0 {
		t.Errorf("summary = %+v, want the confirmed order sized and skipped", summary)
	}
	if spy.calls != 0 {
		t.Errorf("gateway called %d times, want 0 on a dry run", spy.calls)
	}
}

type placeSpy struct {
	broker.Broker
	calls int
}

func (s *placeSpy) Place(context.Context, *types.OrderIntent) (*types.OrderRecord, error) {
	s.calls++
	return nil, errors.New("dry run must not reach the gateway")
}

type stubGateway struct {
	broker.Broker
	updates []broker.StatusUpdate
}

func (s *stubGateway) Reconcile(context.Context) ([]broker.StatusUpdate, error) {
	return s.updates, nil
}

func TestReconcileAppliesUpdates(t *testing.T) {
	store := newMemStore()
	p, _ := testPipeline(&memBars{}, store, Options{})
	p.gateway = &stubGateway{updates: []broker.StatusUpdate{
		{OrderID: "1", Status: types.OrderStatusFilled, FilledQty: 40},
		{OrderID: "2", Status: types.OrderStatusCancelled},
	}}

	applied, err := p.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if applied != 2 {
		t.Errorf("applied = %d, want 2", applied)
	}
	if store.updates["1"] != types.OrderStatusFilled || store.updates["2"] != types.OrderStatusCancelled {
		t.Errorf("updates = %v", store.updates)
	}
}
