package executor

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ducminhle1904/crypto-exec-engine/internal/bybit"
	"github.com/ducminhle1904/crypto-exec-engine/internal/order"
)

// TestApplyExchangeState_MultiRefreshVWAP tests that fills folded in across
// several refreshes keep the exact volume-weighted average price
func TestApplyExchangeState_MultiRefreshVWAP(t *testing.T) {
	o := order.New("ord_1", "BTC/USDT", order.SideBuy, order.TypeLimit, decimal.NewFromInt(2))

	// First refresh: 1 unit executed at 100
	applyExchangeState(o, &bybit.Order{
		OrderStatus:  "PartiallyFilled",
		CumExecQty:   "1",
		CumExecValue: "100",
		CumExecFee:   "0.1",
		AvgPrice:     "100",
	})
	assert.True(t, o.FilledAmount.Equal(decimal.NewFromInt(1)))
	assert.True(t, o.AveragePrice.Equal(decimal.NewFromInt(100)))

	// Second refresh: another unit at 200, cumulative average now 150.
	// The delta must be priced at (300-100)/1 = 200, not the average.
	applyExchangeState(o, &bybit.Order{
		OrderStatus:  "Filled",
		CumExecQty:   "2",
		CumExecValue: "300",
		CumExecFee:   "0.3",
		AvgPrice:     "150",
	})
	assert.True(t, o.IsFilled())
	assert.True(t, o.AveragePrice.Equal(decimal.NewFromInt(150)),
		"average price %s, want 150", o.AveragePrice)
	assert.True(t, o.Commission.Equal(decimal.NewFromFloat(0.3)))
}

// TestApplyExchangeState_SingleRefreshFallback tests the average-price
// fallback when the exchange omits the executed value
func TestApplyExchangeState_SingleRefreshFallback(t *testing.T) {
	o := order.New("ord_2", "BTC/USDT", order.SideBuy, order.TypeMarket, decimal.NewFromInt(1))

	applyExchangeState(o, &bybit.Order{
		OrderStatus: "Filled",
		CumExecQty:  "1",
		CumExecFee:  "0.05",
		AvgPrice:    "50000",
	})
	assert.True(t, o.IsFilled())
	assert.True(t, o.AveragePrice.Equal(decimal.NewFromInt(50000)))
}

// TestApplyExchangeState_Terminal tests terminal status mapping
func TestApplyExchangeState_Terminal(t *testing.T) {
	cancelled := order.New("ord_3", "BTC/USDT", order.SideBuy, order.TypeLimit, decimal.NewFromInt(1))
	applyExchangeState(cancelled, &bybit.Order{OrderStatus: "Cancelled"})
	assert.Equal(t, order.StatusCancelled, cancelled.Status)

	rejected := order.New("ord_4", "BTC/USDT", order.SideBuy, order.TypeLimit, decimal.NewFromInt(1))
	applyExchangeState(rejected, &bybit.Order{OrderStatus: "Rejected"})
	assert.Equal(t, order.StatusRejected, rejected.Status)
}
