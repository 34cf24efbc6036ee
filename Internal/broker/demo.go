package broker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fazecat/signalmaker/Internal/types"
)

const DemoName = "demo"

// Demo is the paper broker: it never touches the network, always
// accepts, and records the order as simulated with a synthetic id.
type Demo struct {
	log zerolog.Logger
	now func() time.Time
}

func NewDemo(log zerolog.Logger) *Demo {
	return &Demo{log: log, now: time.Now}
}

func (d *Demo) Name() string { return DemoName }

func (d *Demo) Place(_ context.Context, intent *types.OrderIntent) (*types.OrderRecord, error) {
	price := intent.EntryPrice
	if intent.OrderKind == types.OrderKindLimit {
		price = intent.LimitPrice
	}

	record := &types.OrderRecord{
		Symbol:        intent.Symbol,
		Broker:        DemoName,
		Quantity:      intent.Quantity,
		Price:         price,
		OrderKind:     intent.OrderKind,
		StopLoss:      intent.StopLossPrice,
		Target:        intent.TargetPrice,
		Status:        types.OrderStatusSimulated,
		Timestamp:     d.now(),
		BrokerOrderID: "sim-" + uuid.NewString(),
	}

	d.log.Info().Str("symbol", intent.Symbol).Int64("quantity", intent.Quantity).
		Float64("price", price).Msg("order simulated")
	return record, nil
}

func (d *Demo) ModifyLeg(context.Context, string, string, LegChanges) error { return nil }

func (d *Demo) CancelLeg(context.Context, string, string) error { return nil }

func (d *Demo) Reconcile(context.Context) ([]StatusUpdate, error) { return nil, nil }
