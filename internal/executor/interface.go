package executor

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/crypto-exec-engine/internal/order"
	"github.com/ducminhle1904/crypto-exec-engine/pkg/types"
)

// OrderExecutor is the exchange-agnostic order lifecycle contract. Each
// venue adapter (mock or live) implements it; the router and composition
// helpers work purely against this interface. Connection state gates all
// order operations: calls on a disconnected executor fail with
// ErrNotConnected.
//
// "Order not found" is routine and reported as a false/nil result, not an
// error. Connectivity problems are reported as *ExecError and are the
// caller's cue to reconnect and retry.
type OrderExecutor interface {
	Name() string

	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	CreateOrder(ctx context.Context, req OrderRequest) (*order.Order, error)
	CancelOrder(ctx context.Context, orderID string) (bool, error)
	GetOrder(ctx context.Context, orderID string) (*order.Order, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]*order.Order, error)
	GetOrderHistory(ctx context.Context, filter HistoryFilter) ([]*order.Order, error)
	GetBalance(ctx context.Context) (map[string]decimal.Decimal, error)
	GetTicker(ctx context.Context, symbol string) (*types.Ticker, error)

	// OrderSummary derives aggregate stats purely from the local order
	// table; it never touches the network.
	OrderSummary() Summary
}

// OrderRequest carries the parameters for a new order. Zero-valued
// decimals mean "not set" for the optional price fields.
type OrderRequest struct {
	Symbol        string
	Side          order.Side
	Type          order.Type
	Amount        decimal.Decimal
	Price         decimal.Decimal
	StopPrice     decimal.Decimal
	TimeInForce   order.TimeInForce
	ClientOrderID string
	ParentOrderID string
	ReduceOnly    bool
	PostOnly      bool
	IcebergAmt    decimal.Decimal
	Tags          map[string]string
}

// Validate checks the request invariants shared by all adapters.
func (r OrderRequest) Validate() error {
	if r.Symbol == "" {
		return ErrInvalidOrder.WithDetails("symbol is required")
	}
	if r.Side != order.SideBuy && r.Side != order.SideSell {
		return ErrInvalidOrder.WithDetails("side must be buy or sell")
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidOrder.WithDetails("amount must be positive")
	}
	if r.Type == order.TypeLimit && !r.Price.IsPositive() {
		return ErrInvalidOrder.WithDetails("limit orders require a price")
	}
	return nil
}

// HistoryFilter narrows an order history query. Zero times mean no bound;
// a zero limit defaults to 100.
type HistoryFilter struct {
	Symbol    string
	Limit     int
	StartTime time.Time
	EndTime   time.Time
}

// Summary aggregates the state of an executor's order table.
type Summary struct {
	Exchange        string          `json:"exchange"`
	TotalOrders     int             `json:"total_orders"`
	ActiveOrders    int             `json:"active_orders"`
	FilledOrders    int             `json:"filled_orders"`
	TotalVolume     decimal.Decimal `json:"total_volume"`
	TotalCommission decimal.Decimal `json:"total_commission"`
}
