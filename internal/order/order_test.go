package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// TestUpdateFill_VWAPAcrossFills tests average price recomputation over multiple fills
func TestUpdateFill_VWAPAcrossFills(t *testing.T) {
	o := New("ord_1", "BTC/USDT", SideBuy, TypeLimit, decimal.NewFromInt(2))

	err := o.UpdateFill(decimal.NewFromInt(1), decimal.NewFromInt(100), decimal.Zero)
	assert.NoError(t, err)
	assert.Equal(t, StatusPartiallyFilled, o.Status)
	assert.True(t, o.AveragePrice.Equal(decimal.NewFromInt(100)))

	err = o.UpdateFill(decimal.NewFromInt(1), decimal.NewFromInt(200), decimal.Zero)
	assert.NoError(t, err)
	assert.Equal(t, StatusFilled, o.Status)
	assert.True(t, o.AveragePrice.Equal(decimal.NewFromInt(150)),
		"expected VWAP 150, got %s", o.AveragePrice)
}

// TestUpdateFill_ExactDecimalNoDrift tests that repeated decimal fills stay exact
func TestUpdateFill_ExactDecimalNoDrift(t *testing.T) {
	o := New("ord_2", "BTC/USDT", SideBuy, TypeLimit, decimal.NewFromFloat(0.3))

	for i := 0; i < 3; i++ {
		err := o.UpdateFill(decimal.NewFromFloat(0.1), decimal.NewFromInt(50000), decimal.NewFromInt(5))
		assert.NoError(t, err)
	}

	assert.Equal(t, StatusFilled, o.Status)
	assert.True(t, o.FilledAmount.Equal(decimal.NewFromFloat(0.3)))
	assert.True(t, o.AveragePrice.Equal(decimal.NewFromInt(50000)))
	assert.True(t, o.Commission.Equal(decimal.NewFromInt(15)))
	assert.True(t, o.RemainingAmount().IsZero())
}

// TestUpdateFill_Overfill tests that an overfilling fill is rejected without mutation
func TestUpdateFill_Overfill(t *testing.T) {
	o := New("ord_3", "BTC/USDT", SideBuy, TypeLimit, decimal.NewFromInt(1))

	err := o.UpdateFill(decimal.NewFromFloat(0.6), decimal.NewFromInt(100), decimal.Zero)
	assert.NoError(t, err)

	err = o.UpdateFill(decimal.NewFromFloat(0.5), decimal.NewFromInt(100), decimal.Zero)
	assert.Error(t, err)
	assert.True(t, o.FilledAmount.Equal(decimal.NewFromFloat(0.6)))
	assert.Equal(t, StatusPartiallyFilled, o.Status)
}

// TestUpdateFill_NonPositiveAmount tests rejection of zero and negative fills
func TestUpdateFill_NonPositiveAmount(t *testing.T) {
	o := New("ord_4", "BTC/USDT", SideBuy, TypeLimit, decimal.NewFromInt(1))

	err := o.UpdateFill(decimal.Zero, decimal.NewFromInt(100), decimal.Zero)
	assert.Error(t, err)

	err = o.UpdateFill(decimal.NewFromInt(-1), decimal.NewFromInt(100), decimal.Zero)
	assert.Error(t, err)
	assert.Equal(t, StatusNew, o.Status)
}

// TestUpdateFill_TerminalState tests that filled orders reject further fills
func TestUpdateFill_TerminalState(t *testing.T) {
	o := New("ord_5", "BTC/USDT", SideSell, TypeMarket, decimal.NewFromInt(1))

	err := o.UpdateFill(decimal.NewFromInt(1), decimal.NewFromInt(100), decimal.Zero)
	assert.NoError(t, err)
	assert.True(t, o.IsFilled())

	err = o.UpdateFill(decimal.NewFromFloat(0.1), decimal.NewFromInt(100), decimal.Zero)
	assert.Error(t, err)
}

// TestCancel_Cancellable tests cancellation of new and partially filled orders
func TestCancel_Cancellable(t *testing.T) {
	o := New("ord_6", "BTC/USDT", SideBuy, TypeLimit, decimal.NewFromInt(2))
	assert.True(t, o.Cancel())
	assert.Equal(t, StatusCancelled, o.Status)

	partial := New("ord_7", "BTC/USDT", SideBuy, TypeLimit, decimal.NewFromInt(2))
	partial.UpdateFill(decimal.NewFromInt(1), decimal.NewFromInt(100), decimal.Zero)
	assert.True(t, partial.Cancel())
	assert.Equal(t, StatusCancelled, partial.Status)
	// Fill state survives cancellation
	assert.True(t, partial.FilledAmount.Equal(decimal.NewFromInt(1)))
}

// TestCancel_NotCancellable tests that terminal orders refuse cancellation
func TestCancel_NotCancellable(t *testing.T) {
	o := New("ord_8", "BTC/USDT", SideBuy, TypeMarket, decimal.NewFromInt(1))
	o.UpdateFill(decimal.NewFromInt(1), decimal.NewFromInt(100), decimal.Zero)

	assert.False(t, o.Cancel())
	assert.Equal(t, StatusFilled, o.Status)

	// Cancelling twice is a no-op returning false
	c := New("ord_9", "BTC/USDT", SideBuy, TypeLimit, decimal.NewFromInt(1))
	assert.True(t, c.Cancel())
	assert.False(t, c.Cancel())
}

// TestReject_OnlyBeforeFills tests that rejection is limited to unfilled orders
func TestReject_OnlyBeforeFills(t *testing.T) {
	o := New("ord_10", "BTC/USDT", SideBuy, TypeLimit, decimal.NewFromInt(1))
	assert.True(t, o.Reject("insufficient balance"))
	assert.Equal(t, StatusRejected, o.Status)
	assert.Equal(t, "insufficient balance", o.Tags["reject_reason"])

	p := New("ord_11", "BTC/USDT", SideBuy, TypeLimit, decimal.NewFromInt(2))
	p.UpdateFill(decimal.NewFromInt(1), decimal.NewFromInt(100), decimal.Zero)
	assert.False(t, p.Reject("late"))
}

// TestFillPercentage tests fill percentage computation
func TestFillPercentage(t *testing.T) {
	o := New("ord_12", "BTC/USDT", SideBuy, TypeLimit, decimal.NewFromInt(4))
	assert.Equal(t, 0.0, o.FillPercentage())

	o.UpdateFill(decimal.NewFromInt(1), decimal.NewFromInt(100), decimal.Zero)
	assert.InDelta(t, 25.0, o.FillPercentage(), 1e-9)
}

// TestFlatten tests flat record serialization
func TestFlatten(t *testing.T) {
	o := New("ord_13", "ETH/USDT", SideSell, TypeLimit, decimal.NewFromInt(3))
	o.Price = decimal.NewFromInt(3000)
	o.Tags[TagBracketID] = "abc"
	o.UpdateFill(decimal.NewFromInt(1), decimal.NewFromInt(3000), decimal.NewFromInt(3))

	rec := o.Flatten()
	assert.Equal(t, "ord_13", rec["id"])
	assert.Equal(t, "sell", rec["side"])
	assert.Equal(t, "limit", rec["order_type"])
	assert.Equal(t, "partially_filled", rec["status"])
	assert.Equal(t, "3000", rec["price"])
	assert.Equal(t, "abc", rec["tag.bracket_id"])
	// Unset optional fields are omitted
	_, hasStop := rec["stop_price"]
	assert.False(t, hasStop)
}

// TestFromRecord_RoundTrip tests that Flatten and FromRecord are inverses
func TestFromRecord_RoundTrip(t *testing.T) {
	o := New("ord_14", "BTC/USDT", SideBuy, TypeStopLimit, decimal.NewFromInt(2))
	o.ClientOrderID = "client_7"
	o.Price = decimal.NewFromInt(49500)
	o.StopPrice = decimal.NewFromInt(49000)
	o.ReduceOnly = true
	o.Tags[TagOCOPair] = "ord_15"
	assert.NoError(t, o.UpdateFill(decimal.NewFromInt(1), decimal.NewFromInt(100), decimal.NewFromFloat(0.1)))
	assert.NoError(t, o.UpdateFill(decimal.NewFromInt(1), decimal.NewFromInt(200), decimal.NewFromFloat(0.2)))

	back, err := FromRecord(o.Flatten())
	assert.NoError(t, err)

	assert.Equal(t, o.ID, back.ID)
	assert.Equal(t, o.ClientOrderID, back.ClientOrderID)
	assert.Equal(t, o.Symbol, back.Symbol)
	assert.Equal(t, o.Side, back.Side)
	assert.Equal(t, o.Type, back.Type)
	assert.Equal(t, o.Status, back.Status)
	assert.Equal(t, o.TimeInForce, back.TimeInForce)
	assert.True(t, back.ReduceOnly)
	assert.Equal(t, "ord_15", back.Tags[TagOCOPair])

	// Decimal strings survive exactly, including the 150 volume-weighted average
	assert.True(t, back.Amount.Equal(o.Amount))
	assert.True(t, back.FilledAmount.Equal(o.FilledAmount))
	assert.True(t, back.AveragePrice.Equal(decimal.NewFromInt(150)))
	assert.True(t, back.Commission.Equal(o.Commission))
	assert.True(t, back.Price.Equal(o.Price))
	assert.True(t, back.StopPrice.Equal(o.StopPrice))

	assert.True(t, back.CreatedAt.Equal(o.CreatedAt))
	assert.True(t, back.UpdatedAt.Equal(o.UpdatedAt))
}

// TestFromRecord_BadInput tests malformed record rejection
func TestFromRecord_BadInput(t *testing.T) {
	_, err := FromRecord(map[string]string{"symbol": "BTC/USDT", "amount": "1"})
	assert.Error(t, err)

	_, err = FromRecord(map[string]string{"id": "x", "symbol": "BTC/USDT", "amount": "not-a-number"})
	assert.Error(t, err)

	_, err = FromRecord(map[string]string{"id": "x", "symbol": "BTC/USDT", "amount": "0"})
	assert.Error(t, err)

	_, err = FromRecord(map[string]string{
		"id": "x", "symbol": "BTC/USDT", "amount": "1", "created_at": "yesterday",
	})
	assert.Error(t, err)
}

// TestSideOpposite tests side inversion for exit legs
func TestSideOpposite(t *testing.T) {
	assert.Equal(t, SideSell, SideBuy.Opposite())
	assert.Equal(t, SideBuy, SideSell.Opposite())
}
