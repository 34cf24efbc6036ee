package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fazecat/signalmaker/Internal/types"
)

// Dhan wire defaults.
const (
	DhanName            = "dhan"
	DefaultSegment      = "NSE_EQ"
	DefaultProductType  = "CNC"
	DefaultTrailingJump = 10
)

// DhanConfig holds the credentials and order defaults for the live
// broker.
type DhanConfig struct {
	ClientID     string
	AccessToken  string
	Segment      string
	ProductType  string
	TrailingJump float64
}

// Dhan places super (bracket) orders against the Dhan API. Transports
// are tried in order on network failure; an application-level rejection
// stops the walk immediately.
type Dhan struct {
	cfg        DhanConfig
	transports []Transport
	listings   []types.SecurityListing
	log        zerolog.Logger

	now func() time.Time
}

func NewDhan(cfg DhanConfig, transports []Transport, listings []types.SecurityListing, log zerolog.Logger) *Dhan {
	if cfg.Segment == "" {
		cfg.Segment = DefaultSegment
	}
	if cfg.ProductType == "" {
		cfg.ProductType = DefaultProductType
	}
	if cfg.TrailingJump == 0 {
		cfg.TrailingJump = DefaultTrailingJump
	}
	return &Dhan{cfg: cfg, transports: transports, listings: listings, log: log, now: time.Now}
}

func (d *Dhan) Name() string { return DhanName }

func (d *Dhan) headers() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"access-token": d.cfg.AccessToken,
	}
}

// send walks the transport list. A transport-level error moves on to
// the next transport; a non-2xx response is surfaced as a rejection and
// never retried.
func (d *Dhan) send(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	var lastErr error
	for _, t := range d.transports {
		resp, err := t.Do(ctx, method, path, query, body, d.headers())
		if err != nil {
			lastErr = &TransportError{Transport: t.Name(), Err: err}
			d.log.Warn().Err(err).Str("transport", t.Name()).Str("path", path).
				Msg("transport failed, trying next")
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &RejectedError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
		}
		return resp.Body, nil
	}
	if lastErr == nil {
		lastErr = &TransportError{Transport: "none", Err: fmt.Errorf("no transports configured")}
	}
	return nil, lastErr
}

type superOrderRequest struct {
	DhanClientID    string  `json:"dhanClientId"`
	CorrelationID   string  `json:"correlationId"`
	TransactionType string  `json:"transactionType"`
	ExchangeSegment string  `json:"exchangeSegment"`
	ProductType     string  `json:"productType"`
	OrderType       string  `json:"orderType"`
	SecurityID      string  `json:"securityId"`
	Quantity        int64   `json:"quantity"`
	Price           string  `json:"price,omitempty"`
	TargetPrice     string  `json:"targetPrice"`
	StopLossPrice   string  `json:"stopLossPrice"`
	TrailingJump    float64 `json:"trailingJump"`
}

type superOrderResponse struct {
	OrderID     string `json:"orderId"`
	OrderStatus string `json:"orderStatus"`
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// Place resolves the security id, builds the bracket payload and
// submits it. On success the returned record is open with the broker's
// order id attached.
func (d *Dhan) Place(ctx context.Context, intent *types.OrderIntent) (*types.OrderRecord, error) {
	securityID, err := ResolveSecurityID(intent.Symbol, d.listings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", intent.Symbol, err)
	}

	// The correlation id is minted once per intent, not per attempt:
	// resubmitting after a lost response must present the same id or
	// the broker cannot deduplicate it.
	correlationID := intent.CorrelationID
	if correlationID == "" {
		correlationID = "auto_" + uuid.NewString()
	}

	payload := superOrderRequest{
		DhanClientID:    d.cfg.ClientID,
		CorrelationID:   correlationID,
		TransactionType: "BUY",
		ExchangeSegment: d.cfg.Segment,
		ProductType:     d.cfg.ProductType,
		OrderType:       intent.OrderKind,
		SecurityID:      securityID,
		Quantity:        intent.Quantity,
		TargetPrice:     formatPrice(intent.TargetPrice),
		StopLossPrice:   formatPrice(intent.StopLossPrice),
		TrailingJump:    d.cfg.TrailingJump,
	}
	if intent.OrderKind == types.OrderKindLimit {
		payload.Price = formatPrice(intent.LimitPrice)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding super order: %w", err)
	}

	d.log.Info().Str("symbol", intent.Symbol).Str("security_id", securityID).
		Int64("quantity", intent.Quantity).Str("order_type", intent.OrderKind).
		Msg("placing super order")

	respBody, err := d.send(ctx, http.MethodPost, "/super/orders", nil, body)
	if err != nil {
		return nil, err
	}

	var placed superOrderResponse
	if err := json.Unmarshal(respBody, &placed); err != nil {
		return nil, fmt.Errorf("decoding super order response: %w", err)
	}

	price := intent.EntryPrice
	if intent.OrderKind == types.OrderKindLimit {
		price = intent.LimitPrice
	}

	return &types.OrderRecord{
		Symbol:        intent.Symbol,
		Broker:        DhanName,
		Quantity:      intent.Quantity,
		Price:         price,
		OrderKind:     intent.OrderKind,
		StopLoss:      intent.StopLossPrice,
		Target:        intent.TargetPrice,
		Status:        types.OrderStatusOpen,
		Timestamp:     d.now(),
		BrokerOrderID: placed.OrderID,
		SecurityID:    securityID,
		TrailingJump:  d.cfg.TrailingJump,
	}, nil
}

type modifyOrderRequest struct {
	DhanClientID  string  `json:"dhanClientId"`
	OrderID       string  `json:"orderId"`
	OrderType     string  `json:"orderType,omitempty"`
	LegName       string  `json:"legName"`
	Quantity      int64   `json:"quantity,omitempty"`
	Price         string  `json:"price,omitempty"`
	StopLossPrice string  `json:"stopLossPrice,omitempty"`
	TargetPrice   string  `json:"targetPrice,omitempty"`
	TrailingJump  float64 `json:"trailingJump,omitempty"`
}

// ModifyLeg updates one leg of a pending super order.
func (d *Dhan) ModifyLeg(ctx context.Context, orderID, leg string, changes LegChanges) error {
	payload := modifyOrderRequest{
		DhanClientID: d.cfg.ClientID,
		OrderID:      orderID,
		OrderType:    changes.OrderType,
		LegName:      leg,
		Quantity:     changes.Quantity,
		TrailingJump: changes.TrailingJump,
	}
	if changes.Price > 0 {
		payload.Price = formatPrice(changes.Price)
	}
	if changes.StopLossPrice > 0 {
		payload.StopLossPrice = formatPrice(changes.StopLossPrice)
	}
	if changes.TargetPrice > 0 {
		payload.TargetPrice = formatPrice(changes.TargetPrice)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding modify order: %w", err)
	}

	_, err = d.send(ctx, http.MethodPut, "/super/orders/"+orderID, nil, body)
	return err
}

// CancelLeg cancels one leg of a super order.
func (d *Dhan) CancelLeg(ctx context.Context, orderID, leg string) error {
	_, err := d.send(ctx, http.MethodDelete, "/super/orders/"+orderID+"/"+leg, nil, nil)
	return err
}

type dhanOrder struct {
	OrderID            string          `json:"orderId"`
	OrderStatus        string          `json:"orderStatus"`
	RemainingQuantity  int64           `json:"remainingQuantity"`
	FilledQty          int64           `json:"filledQty"`
	AverageTradedPrice float64         `json:"averageTradedPrice"`
	LegDetails         json.RawMessage `json:"legDetails"`
}

// statusFromDhan maps a broker status string onto the local enum. An
// unknown status maps to the empty string and the caller leaves the
// record untouched.
func statusFromDhan(s string) string {
	switch s {
	case "TRADED":
		return types.OrderStatusFilled
	case "PART_TRADED":
		return types.OrderStatusPartiallyFilled
	case "CANCELLED":
		return types.OrderStatusCancelled
	case "REJECTED":
		return types.OrderStatusRejected
	case "PENDING":
		return types.OrderStatusOpen
	}
	return ""
}

// Reconcile polls broker-side order state and maps it onto local status
// updates.
func (d *Dhan) Reconcile(ctx context.Context) ([]StatusUpdate, error) {
	query := url.Values{"dhanClientId": {d.cfg.ClientID}}
	body, err := d.send(ctx, http.MethodGet, "/super/orders", query, nil)
	if err != nil {
		return nil, err
	}

	var orders []dhanOrder
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("decoding orders response: %w", err)
	}

	updates := make([]StatusUpdate, 0, len(orders))
	for _, o := range orders {
		status := statusFromDhan(o.OrderStatus)
		if status == "" {
			d.log.Warn().Str("order_id", o.OrderID).Str("status", o.OrderStatus).
				Msg("unrecognized broker status, skipping")
			continue
		}
		legs := ""
		if len(o.LegDetails) > 0 {
			legs = string(o.LegDetails)
		}
		updates = append(updates, StatusUpdate{
			OrderID:      o.OrderID,
			Status:       status,
			FilledQty:    o.FilledQty,
			RemainingQty: o.RemainingQuantity,
			AveragePrice: o.AverageTradedPrice,
			Legs:         legs,
		})
	}
	return updates, nil
}
