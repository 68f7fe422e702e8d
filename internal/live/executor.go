package live

import (
	"context"
	"errors"
)

// ErrExecutionFailed wraps broker-side order failures. The session surfaces
// these without retrying.
var ErrExecutionFailed = errors.New("order execution failed")

// ErrNoQuote is returned when no quote has been seen for a symbol yet.
var ErrNoQuote = errors.New("no quote available")

// OrderRequest describes one order to place.
type OrderRequest struct {
	ClientOrderID string  // idempotency key, assigned by the caller
	Symbol        string  // ticker symbol
	Side          string  // BUY | SELL
	Shares        float64 // shares to trade
}

// Fill describes a completed execution.
type Fill struct {
	OrderID string  // broker order id
	Symbol  string  // ticker symbol
	Side    string  // BUY | SELL
	Shares  float64 // shares actually filled
	Price   float64 // execution price
}

// OrderExecutor places orders against a broker.
type OrderExecutor interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (*Fill, error)
}

// PositionQuery reports the broker-side open position for a symbol.
type PositionQuery interface {
	OpenPosition(ctx context.Context, symbol string) (float64, error)
}
