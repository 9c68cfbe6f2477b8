package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/crypto-exec-engine/internal/monitoring"
	"github.com/ducminhle1904/crypto-exec-engine/internal/order"
	"github.com/ducminhle1904/crypto-exec-engine/pkg/types"
)

// Taker commission applied to simulated market fills, 0.1%.
var mockCommissionRate = decimal.NewFromFloat(0.001)

// Simulated half-spread around the seeded last price, 0.05% per side.
var mockHalfSpread = decimal.NewFromFloat(0.0005)

// MockExecutor simulates an exchange in memory for paper trading and tests.
// Market orders fill immediately at the quoted price with taker commission;
// limit and stop orders rest on the book until cancelled. Balances are
// tracked per asset and debited or credited on fills.
type MockExecutor struct {
	name         string
	log          *zap.Logger
	limiter      *RateLimiter
	book         *orderBook
	connectDelay time.Duration

	connected atomic.Bool
	counter   atomic.Int64

	mu       sync.Mutex
	balances map[string]decimal.Decimal
	tickers  map[string]decimal.Decimal // symbol -> last price
}

// NewMockExecutor creates a mock venue with seeded balances and reference
// prices. connectDelay is the simulated connection latency; zero connects
// immediately. Pass nil for logger to disable logging.
func NewMockExecutor(name string, connectDelay time.Duration, limiter *RateLimiter, log *zap.Logger) *MockExecutor {
	if name == "" {
		name = "mock"
	}
	if log == nil {
		log = zap.NewNop()
	}
	if limiter == nil {
		limiter = NewRateLimiter(10, time.Second)
	}
	return &MockExecutor{
		name:         name,
		log:          log.With(zap.String("exchange", name)),
		limiter:      limiter,
		book:         newOrderBook(),
		connectDelay: connectDelay,
		balances: map[string]decimal.Decimal{
			"USDT": decimal.NewFromInt(10000),
			"BTC":  decimal.NewFromFloat(0.5),
			"ETH":  decimal.NewFromInt(5),
		},
		tickers: map[string]decimal.Decimal{
			"BTC/USDT": decimal.NewFromInt(50000),
			"ETH/USDT": decimal.NewFromInt(3000),
			"ADA/USDT": decimal.NewFromFloat(0.5),
		},
	}
}

func (m *MockExecutor) Name() string { return m.name }

// Connect simulates connection latency and marks the executor online.
func (m *MockExecutor) Connect(ctx context.Context) error {
	if m.connectDelay > 0 {
		select {
		case <-time.After(m.connectDelay):
		case <-ctx.Done():
			return ErrConnectionFailed.WithDetails(ctx.Err().Error())
		}
	}
	m.connected.Store(true)
	m.log.Info("connected to mock exchange")
	return nil
}

func (m *MockExecutor) Disconnect() error {
	m.connected.Store(false)
	m.log.Info("disconnected from mock exchange")
	return nil
}

func (m *MockExecutor) IsConnected() bool {
	return m.connected.Load()
}

// SetTicker overrides the reference price for a symbol. Tests and demos use
// it to move the simulated market.
func (m *MockExecutor) SetTicker(symbol string, last decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickers[symbol] = last
}

// SetBalance overrides the free balance of an asset.
func (m *MockExecutor) SetBalance(asset string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[asset] = amount
}

func (m *MockExecutor) nextOrderID() string {
	return fmt.Sprintf("%s_%d_%d", m.name, m.counter.Add(1), time.Now().Unix())
}

// CreateOrder validates and registers the order. Market orders are filled
// synchronously against the current ticker; everything else rests as new.
func (m *MockExecutor) CreateOrder(ctx context.Context, req OrderRequest) (*order.Order, error) {
	if !m.IsConnected() {
		return nil, ErrNotConnected
	}
	if err := req.Validate(); err != nil {
		monitoring.RecordOrderRejected(m.name, req.Symbol)
		return nil, err
	}
	if err := m.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	o := order.New(m.nextOrderID(), req.Symbol, req.Side, req.Type, req.Amount)
	o.ClientOrderID = req.ClientOrderID
	o.ParentOrderID = req.ParentOrderID
	o.Price = req.Price
	o.StopPrice = req.StopPrice
	o.ReduceOnly = req.ReduceOnly
	o.PostOnly = req.PostOnly
	o.IcebergAmt = req.IcebergAmt
	if req.TimeInForce != "" {
		o.TimeInForce = req.TimeInForce
	}
	for k, v := range req.Tags {
		o.Tags[k] = v
	}
	o.Tags[order.TagExchange] = m.name

	if o.Type == order.TypeMarket {
		if err := m.fillMarketOrder(o); err != nil {
			monitoring.RecordOrderRejected(m.name, o.Symbol)
			return nil, err
		}
	}

	m.book.track(o)
	monitoring.RecordOrderCreated(m.name, o.Symbol, string(o.Side), string(o.Type))
	m.log.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("symbol", o.Symbol),
		zap.String("side", string(o.Side)),
		zap.String("type", string(o.Type)),
		zap.String("amount", o.Amount.String()),
		zap.String("status", string(o.Status)))
	return o, nil
}

// fillMarketOrder executes a full simulated fill and settles both legs of
// the balance. Buys pay the ask plus commission in quote currency; sells
// receive the bid and pay commission out of the proceeds.
func (m *MockExecutor) fillMarketOrder(o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ticker := m.tickerLocked(o.Symbol)
	var price decimal.Decimal
	if o.Side == order.SideBuy {
		price = ticker.BuyPrice()
	} else {
		price = ticker.SellPrice()
	}

	base, quote := splitSymbol(o.Symbol)
	notional := price.Mul(o.Amount)
	commission := notional.Mul(mockCommissionRate)

	if o.Side == order.SideBuy {
		cost := notional.Add(commission)
		if m.balances[quote].LessThan(cost) {
			return ErrInsufficientBalance.WithDetails(fmt.Sprintf(
				"need %s %s, have %s", cost.StringFixed(8), quote, m.balances[quote].StringFixed(8)))
		}
		m.balances[quote] = m.balances[quote].Sub(cost)
		m.balances[base] = m.balances[base].Add(o.Amount)
	} else {
		if m.balances[base].LessThan(o.Amount) {
			return ErrInsufficientBalance.WithDetails(fmt.Sprintf(
				"need %s %s, have %s", o.Amount.StringFixed(8), base, m.balances[base].StringFixed(8)))
		}
		m.balances[base] = m.balances[base].Sub(o.Amount)
		m.balances[quote] = m.balances[quote].Add(notional.Sub(commission))
	}

	if err := o.UpdateFill(o.Amount, price, commission); err != nil {
		return ErrInvalidOrder.WithDetails(err.Error())
	}
	o.CommissionAsset = quote
	monitoring.RecordFill(m.name, o.Symbol, notional.InexactFloat64())
	return nil
}

// CancelOrder cancels a resting order. Unknown or non-cancellable orders
// report false without an error.
func (m *MockExecutor) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	if !m.IsConnected() {
		return false, ErrNotConnected
	}
	if err := m.limiter.Acquire(ctx); err != nil {
		return false, err
	}

	ok := m.book.withOrder(orderID, func(o *order.Order) bool {
		return o.Cancel()
	})
	if ok {
		m.log.Info("order cancelled", zap.String("order_id", orderID))
		monitoring.RecordOrderCancelled(m.name)
	}
	return ok, nil
}

// GetOrder returns the tracked order, or nil when unknown.
func (m *MockExecutor) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	if !m.IsConnected() {
		return nil, ErrNotConnected
	}
	return m.book.get(orderID), nil
}

func (m *MockExecutor) GetOpenOrders(ctx context.Context, symbol string) ([]*order.Order, error) {
	if !m.IsConnected() {
		return nil, ErrNotConnected
	}
	return m.book.openOrders(symbol), nil
}

func (m *MockExecutor) GetOrderHistory(ctx context.Context, filter HistoryFilter) ([]*order.Order, error) {
	if !m.IsConnected() {
		return nil, ErrNotConnected
	}
	return m.book.history(filter), nil
}

func (m *MockExecutor) GetBalance(ctx context.Context) (map[string]decimal.Decimal, error) {
	if !m.IsConnected() {
		return nil, ErrNotConnected
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(m.balances))
	for asset, amount := range m.balances {
		out[asset] = amount
	}
	return out, nil
}

// GetTicker returns a synthetic quote built around the seeded last price.
func (m *MockExecutor) GetTicker(ctx context.Context, symbol string) (*types.Ticker, error) {
	if !m.IsConnected() {
		return nil, ErrNotConnected
	}
	if err := m.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickerLocked(symbol), nil
}

// tickerLocked builds the quote for a symbol. Unknown symbols get a default
// last price of 100 so paper flows never dead-end on missing market data.
func (m *MockExecutor) tickerLocked(symbol string) *types.Ticker {
	last, ok := m.tickers[symbol]
	if !ok {
		last = decimal.NewFromInt(100)
	}
	spread := last.Mul(mockHalfSpread)
	return &types.Ticker{
		Symbol:    symbol,
		Bid:       last.Sub(spread),
		Ask:       last.Add(spread),
		Last:      last,
		Volume:    1000,
		Timestamp: time.Now().UTC(),
	}
}

func (m *MockExecutor) OrderSummary() Summary {
	return m.book.summary(m.name)
}

// splitSymbol separates "BTC/USDT" into base and quote. Symbols without a
// separator settle against USDT.
func splitSymbol(symbol string) (base, quote string) {
	if i := strings.Index(symbol, "/"); i > 0 {
		return symbol[:i], symbol[i+1:]
	}
	return symbol, "USDT"
}
