package types

import "time"

// Bar is one daily OHLCV observation for a symbol. Bars for a symbol are
// keyed by Date (calendar day) and always handled in ascending date order.
type Bar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Traditional (rule-based) signal labels.
const (
	SignalStrongBuy       = "STRONG_BUY"
	SignalFreshStrongBuy  = "FRESH_STRONG_BUY"
	SignalStrongSell      = "STRONG_SELL"
	SignalFreshStrongSell = "FRESH_STRONG_SELL"
	SignalNeutral         = "NEUTRAL"
)

// Model signal labels.
const (
	ModelBuy  = "BUY"
	ModelSell = "SELL"
	ModelHold = "HOLD"
)

// Sentiment labels.
const (
	SentimentBullish         = "BULLISH"
	SentimentStronglyBullish = "STRONGLY_BULLISH"
	SentimentBearish         = "BEARISH"
	SentimentStronglyBearish = "STRONGLY_BEARISH"
	SentimentNeutral         = "NEUTRAL"
)

// Final composite labels.
const (
	CompositeStrongBuy  = "STRONG_BUY"
	CompositeBuy        = "BUY"
	CompositeNeutral    = "NEUTRAL"
	CompositeSell       = "SELL"
	CompositeStrongSell = "STRONG_SELL"
)

// CompositeSignal is the fused decision for one (symbol, date). It is
// immutable once created; a later run for the same key supersedes it via
// upsert in the store.
type CompositeSignal struct {
	Symbol              string    `json:"symbol"`
	Date                time.Time `json:"date"`
	Close               float64   `json:"close"`
	TraditionalLabel    string    `json:"traditional_label"`
	TraditionalScore    float64   `json:"traditional_score"`
	ModelLabel          string    `json:"model_label"`
	ModelProbability    float64   `json:"model_probability"`
	ModelScore          float64   `json:"model_score"`
	SentimentLabel      string    `json:"sentiment_label"`
	SentimentScore      float64   `json:"sentiment_score"`
	SentimentConfidence float64   `json:"sentiment_confidence"`
	CompositeScore      float64   `json:"composite_score"`
	FinalLabel          string    `json:"final_label"`
	Notes               string    `json:"notes,omitempty"`
}

// IsStrongBuy reports whether the traditional component should open a
// pending confirmation. A cross on the latest bar is reported FRESH, so
// both variants count.
func (s *CompositeSignal) IsStrongBuy() bool {
	return s.TraditionalLabel == SignalStrongBuy || s.TraditionalLabel == SignalFreshStrongBuy
}

// PendingConfirmation tracks a strong-buy signal waiting for confirmation
// candles. At most one exists per symbol; SignalDate advances to the most
// recent bar on every confirmation tick.
type PendingConfirmation struct {
	Symbol            string    `json:"symbol"`
	SignalDate        time.Time `json:"signal_date"`
	ConfirmationCount int       `json:"confirmation_count"`
	AnchorClose       float64   `json:"anchor_close"`
}

// ConfirmedOrder is emitted when a pending confirmation reaches the
// configured candle count.
type ConfirmedOrder struct {
	Symbol      string    `json:"symbol"`
	EntryPrice  float64   `json:"entry_price"`
	SignalPrice float64   `json:"signal_price"`
	Date        time.Time `json:"date"`
}

// Order kinds and time-in-force values accepted by the broker layer.
const (
	OrderKindLimit  = "LIMIT"
	OrderKindMarket = "MARKET"
)

// OrderIntent holds the concrete parameters for one confirmed signal.
// It is computed fresh each time and never persisted directly.
type OrderIntent struct {
	Symbol        string  `json:"symbol"`
	CorrelationID string  `json:"correlation_id"`
	Quantity      int64   `json:"quantity"`
	OrderKind     string  `json:"order_kind"`
	LimitPrice    float64 `json:"limit_price"`
	EntryPrice    float64 `json:"entry_price"`
	StopLossPrice float64 `json:"stop_loss_price"`
	TargetPrice   float64 `json:"target_price"`
	TimeInForce   string  `json:"time_in_force"`
}

// Order status values. Broker-side reconciliation maps the wire statuses
// onto these.
const (
	OrderStatusSimulated       = "simulated"
	OrderStatusOpen            = "open"
	OrderStatusFilled          = "filled"
	OrderStatusPartiallyFilled = "partially_filled"
	OrderStatusCancelled       = "cancelled"
	OrderStatusRejected        = "rejected"
)

// OrderRecord is the authoritative, append-only record of trading
// activity. Status is the only field mutated after creation.
type OrderRecord struct {
	Symbol        string    `json:"symbol"`
	Broker        string    `json:"broker"`
	Quantity      int64     `json:"quantity"`
	Price         float64   `json:"price"`
	OrderKind     string    `json:"order_kind"`
	StopLoss      float64   `json:"stop_loss"`
	Target        float64   `json:"target"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	BrokerOrderID string    `json:"broker_order_id,omitempty"`
	SecurityID    string    `json:"security_id,omitempty"`
	TrailingJump  float64   `json:"trailing_jump,omitempty"`
	FilledQty     int64     `json:"filled_quantity,omitempty"`
	RemainingQty  int64     `json:"remaining_quantity,omitempty"`
	AveragePrice  float64   `json:"average_price,omitempty"`
	Legs          string    `json:"legs,omitempty"`
}

// OpenStatuses are the order states that count against max_positions.
func OpenStatuses() []string {
	return []string{OrderStatusSimulated, OrderStatusOpen, OrderStatusFilled, OrderStatusPartiallyFilled}
}

// SecurityListing maps a tradable symbol/name to the broker's security id.
type SecurityListing struct {
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	SecurityID string `json:"security_id"`
}
