package executor

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/crypto-exec-engine/internal/bybit"
	"github.com/ducminhle1904/crypto-exec-engine/internal/monitoring"
	"github.com/ducminhle1904/crypto-exec-engine/internal/order"
	"github.com/ducminhle1904/crypto-exec-engine/pkg/types"
)

// BybitExecutor routes orders to Bybit through the exchange REST API. It
// keeps a local mirror of every order it placed so summaries and lookups by
// engine order id work without extra round trips.
type BybitExecutor struct {
	name      string
	category  string
	client    *bybit.Client
	limiter   *RateLimiter
	book      *orderBook
	log       *zap.Logger
	connected atomic.Bool
}

// NewBybitExecutor creates a live executor for the given Bybit environment.
func NewBybitExecutor(cfg bybit.Config, limiter *RateLimiter, log *zap.Logger) *BybitExecutor {
	if log == nil {
		log = zap.NewNop()
	}
	if limiter == nil {
		limiter = NewRateLimiter(10, time.Second)
	}
	return &BybitExecutor{
		name:     "bybit",
		category: "spot",
		client:   bybit.NewClient(cfg),
		limiter:  limiter,
		book:     newOrderBook(),
		log:      log.With(zap.String("exchange", "bybit")),
	}
}

func (e *BybitExecutor) Name() string { return e.name }

// Connect verifies credentials with a balance call before going online.
func (e *BybitExecutor) Connect(ctx context.Context) error {
	if err := e.limiter.Acquire(ctx); err != nil {
		return err
	}
	if _, err := e.client.GetWalletBalances(ctx); err != nil {
		return ErrConnectionFailed.WithDetails(err.Error())
	}
	e.connected.Store(true)
	e.log.Info("connected to bybit", zap.String("environment", e.client.Environment()))
	return nil
}

func (e *BybitExecutor) Disconnect() error {
	e.connected.Store(false)
	e.log.Info("disconnected from bybit")
	return nil
}

func (e *BybitExecutor) IsConnected() bool {
	return e.connected.Load()
}

// CreateOrder places the order on the exchange and mirrors it locally. The
// exchange-assigned order id becomes the engine order id.
func (e *BybitExecutor) CreateOrder(ctx context.Context, req OrderRequest) (*order.Order, error) {
	if !e.IsConnected() {
		return nil, ErrNotConnected
	}
	if err := req.Validate(); err != nil {
		monitoring.RecordOrderRejected(e.name, req.Symbol)
		return nil, err
	}
	if err := e.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	params := bybit.PlaceOrderParams{
		Category:    e.category,
		Symbol:      exchangeSymbol(req.Symbol),
		Side:        bybitSide(req.Side),
		OrderType:   bybitOrderType(req.Type),
		Qty:         req.Amount.String(),
		OrderLinkID: req.ClientOrderID,
		TimeInForce: string(req.TimeInForce),
		ReduceOnly:  req.ReduceOnly,
		PostOnly:    req.PostOnly,
	}
	if req.Price.IsPositive() {
		params.Price = req.Price.String()
	}
	if req.StopPrice.IsPositive() {
		params.TriggerPrice = req.StopPrice.String()
	}

	placed, err := e.client.PlaceOrder(ctx, params)
	if err != nil {
		monitoring.RecordOrderRejected(e.name, req.Symbol)
		if bybit.IsInsufficientBalanceError(err) {
			return nil, ErrInsufficientBalance.WithDetails(err.Error())
		}
		return nil, ErrConnectionFailed.WithDetails(err.Error())
	}

	o := order.New(placed.OrderID, req.Symbol, req.Side, req.Type, req.Amount)
	o.ClientOrderID = req.ClientOrderID
	o.ParentOrderID = req.ParentOrderID
	o.Price = req.Price
	o.StopPrice = req.StopPrice
	o.ReduceOnly = req.ReduceOnly
	o.PostOnly = req.PostOnly
	if req.TimeInForce != "" {
		o.TimeInForce = req.TimeInForce
	}
	for k, v := range req.Tags {
		o.Tags[k] = v
	}
	o.Tags[order.TagExchange] = e.name
	applyExchangeState(o, placed)

	e.book.track(o)
	monitoring.RecordOrderCreated(e.name, o.Symbol, string(o.Side), string(o.Type))
	e.log.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("symbol", o.Symbol),
		zap.String("side", string(o.Side)),
		zap.String("type", string(o.Type)),
		zap.String("amount", o.Amount.String()))
	return o, nil
}

// CancelOrder cancels on the exchange. An order-not-found response maps to
// a false result, matching the mock's semantics.
func (e *BybitExecutor) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	if !e.IsConnected() {
		return false, ErrNotConnected
	}
	if err := e.limiter.Acquire(ctx); err != nil {
		return false, err
	}

	local := e.book.get(orderID)
	symbol := ""
	if local != nil {
		symbol = exchangeSymbol(local.Symbol)
	}

	if err := e.client.CancelOrder(ctx, e.category, symbol, orderID); err != nil {
		if bybit.IsOrderNotFoundError(err) {
			return false, nil
		}
		return false, ErrConnectionFailed.WithDetails(err.Error())
	}

	e.book.withOrder(orderID, func(o *order.Order) bool {
		return o.Cancel()
	})
	monitoring.RecordOrderCancelled(e.name)
	e.log.Info("order cancelled", zap.String("order_id", orderID))
	return true, nil
}

// GetOrder returns the locally mirrored order, refreshed from the exchange
// when it is still active.
func (e *BybitExecutor) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	if !e.IsConnected() {
		return nil, ErrNotConnected
	}
	local := e.book.get(orderID)
	if local == nil || !local.IsActive() {
		return local, nil
	}
	if err := e.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	remote, err := e.client.GetOpenOrders(ctx, e.category, exchangeSymbol(local.Symbol))
	if err != nil {
		return nil, ErrConnectionFailed.WithDetails(err.Error())
	}
	for i := range remote {
		if remote[i].OrderID == orderID {
			e.book.withOrder(orderID, func(o *order.Order) bool {
				applyExchangeState(o, &remote[i])
				return true
			})
			break
		}
	}
	return e.book.get(orderID), nil
}

func (e *BybitExecutor) GetOpenOrders(ctx context.Context, symbol string) ([]*order.Order, error) {
	if !e.IsConnected() {
		return nil, ErrNotConnected
	}
	return e.book.openOrders(symbol), nil
}

func (e *BybitExecutor) GetOrderHistory(ctx context.Context, filter HistoryFilter) ([]*order.Order, error) {
	if !e.IsConnected() {
		return nil, ErrNotConnected
	}
	return e.book.history(filter), nil
}

func (e *BybitExecutor) GetBalance(ctx context.Context) (map[string]decimal.Decimal, error) {
	if !e.IsConnected() {
		return nil, ErrNotConnected
	}
	if err := e.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	raw, err := e.client.GetWalletBalances(ctx)
	if err != nil {
		return nil, ErrConnectionFailed.WithDetails(err.Error())
	}
	out := make(map[string]decimal.Decimal, len(raw))
	for coin, amount := range raw {
		out[coin] = decimal.NewFromFloat(amount)
	}
	return out, nil
}

func (e *BybitExecutor) GetTicker(ctx context.Context, symbol string) (*types.Ticker, error) {
	if !e.IsConnected() {
		return nil, ErrNotConnected
	}
	if err := e.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	raw, err := e.client.GetTicker(ctx, e.category, exchangeSymbol(symbol))
	if err != nil {
		return nil, ErrConnectionFailed.WithDetails(err.Error())
	}

	t := &types.Ticker{Symbol: symbol, Timestamp: time.Now().UTC()}
	t.Bid, _ = decimal.NewFromString(raw.Bid)
	t.Ask, _ = decimal.NewFromString(raw.Ask)
	t.Last, _ = decimal.NewFromString(raw.LastPrice)
	if vol, err := decimal.NewFromString(raw.Volume24h); err == nil {
		t.Volume = vol.InexactFloat64()
	}
	return t, nil
}

func (e *BybitExecutor) OrderSummary() Summary {
	return e.book.summary(e.name)
}

// applyExchangeState folds the exchange's view of an order into the local
// mirror. Fill deltas go through UpdateFill so the average price stays
// volume weighted; terminal states are applied directly.
func applyExchangeState(o *order.Order, remote *bybit.Order) {
	execQty, err := decimal.NewFromString(remote.CumExecQty)
	if err == nil && execQty.GreaterThan(o.FilledAmount) {
		delta := execQty.Sub(o.FilledAmount)
		// The exchange reports cumulative figures. The delta's own price is
		// the change in executed value over the change in executed quantity;
		// using the cumulative average here would skew the local VWAP once
		// fills arrive across more than one refresh.
		fillPrice := deltaFillPrice(o, remote, delta)
		if fillPrice.IsPositive() {
			fee, _ := decimal.NewFromString(remote.CumExecFee)
			feeDelta := fee.Sub(o.Commission)
			if feeDelta.IsNegative() {
				feeDelta = decimal.Zero
			}
			o.UpdateFill(delta, fillPrice, feeDelta)
		}
	}

	switch remote.OrderStatus {
	case "Cancelled":
		o.Cancel()
	case "Rejected":
		o.Reject("rejected by exchange")
	case "Expired":
		if o.IsActive() {
			o.Status = order.StatusExpired
		}
	}
}

// deltaFillPrice prices the unseen portion of a refresh as
// (cumExecValue - localValue) / deltaQty. When the exchange omits the
// executed value it falls back to the cumulative average price, which is
// exact whenever the whole fill arrives in one refresh.
func deltaFillPrice(o *order.Order, remote *bybit.Order, delta decimal.Decimal) decimal.Decimal {
	execValue, err := decimal.NewFromString(remote.CumExecValue)
	if err == nil && execValue.IsPositive() {
		localValue := o.AveragePrice.Mul(o.FilledAmount)
		deltaValue := execValue.Sub(localValue)
		if deltaValue.IsPositive() {
			return deltaValue.Div(delta)
		}
	}
	avgPrice, err := decimal.NewFromString(remote.AvgPrice)
	if err != nil {
		return decimal.Zero
	}
	return avgPrice
}

// exchangeSymbol converts "BTC/USDT" to Bybit's "BTCUSDT" form.
func exchangeSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "")
}

func bybitSide(s order.Side) string {
	if s == order.SideBuy {
		return "Buy"
	}
	return "Sell"
}

func bybitOrderType(t order.Type) string {
	switch t {
	case order.TypeLimit, order.TypeStopLimit, order.TypeTakeProfitLimit:
		return "Limit"
	default:
		return "Market"
	}
}
