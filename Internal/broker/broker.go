package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/fazecat/signalmaker/Internal/types"
)

// Super order leg names.
const (
	LegEntry    = "ENTRY_LEG"
	LegTarget   = "TARGET_LEG"
	LegStopLoss = "STOP_LOSS_LEG"
)

// ErrSecurityIDNotFound means no listing matched the symbol under any of
// the resolution strategies.
var ErrSecurityIDNotFound = errors.New("security id not found")

// TransportError is a network-level failure on one transport. It is
// retryable: the gateway moves on to the next transport in its list.
type TransportError struct {
	Transport string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Transport, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectedError is an application-level rejection from the broker. It is
// terminal for the attempt and carries the response body verbatim for
// diagnosis.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("broker rejected request (status %d): %s", e.StatusCode, e.Body)
}

// LegChanges carries the fields a modify call may update. Zero values
// are omitted from the wire payload.
type LegChanges struct {
	OrderType     string
	Quantity      int64
	Price         float64
	StopLossPrice float64
	TargetPrice   float64
	TrailingJump  float64
}

// StatusUpdate is one broker-side order state observed during
// reconciliation, already mapped onto the local status enum.
type StatusUpdate struct {
	OrderID      string
	Status       string
	FilledQty    int64
	RemainingQty int64
	AveragePrice float64
	Legs         string
}

// Broker places and manages bracket orders. Variants share this surface
// so the pipeline never branches on a broker name.
type Broker interface {
	Name() string
	Place(ctx context.Context, intent *types.OrderIntent) (*types.OrderRecord, error)
	ModifyLeg(ctx context.Context, orderID, leg string, changes LegChanges) error
	CancelLeg(ctx context.Context, orderID, leg string) error
	Reconcile(ctx context.Context) ([]StatusUpdate, error)
}
