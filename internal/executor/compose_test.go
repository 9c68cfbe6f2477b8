package executor

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ducminhle1904/crypto-exec-engine/internal/order"
)

// TestCreateOCOOrder tests the cross-linked limit/stop pair
func TestCreateOCOOrder(t *testing.T) {
	m := newConnectedMock(t, "mock")

	limitLeg, stopLeg, err := CreateOCOOrder(context.Background(), m, "BTC/USDT", order.SideSell,
		decimal.NewFromFloat(0.1), decimal.NewFromInt(52000), decimal.NewFromInt(48000))
	assert.NoError(t, err)

	assert.Equal(t, order.TypeLimit, limitLeg.Type)
	assert.Equal(t, order.TypeStopMarket, stopLeg.Type)
	assert.Equal(t, order.SideSell, limitLeg.Side)
	assert.Equal(t, order.SideSell, stopLeg.Side)

	// Legs reference each other
	assert.Equal(t, stopLeg.ID, limitLeg.Tags[order.TagOCOPair])
	assert.Equal(t, limitLeg.ID, stopLeg.Tags[order.TagOCOPair])

	// Both rest on the book
	open, _ := m.GetOpenOrders(context.Background(), "BTC/USDT")
	assert.Len(t, open, 2)
}

// TestCreateBracketOrder tests the three-leg bracket with shared tags
func TestCreateBracketOrder(t *testing.T) {
	m := newConnectedMock(t, "mock")

	legs, err := CreateBracketOrder(context.Background(), m, "ETH/USDT", order.SideBuy,
		decimal.NewFromFloat(0.5), decimal.NewFromInt(2990),
		decimal.NewFromInt(3200), decimal.NewFromInt(2850))
	assert.NoError(t, err)
	assert.Len(t, legs, 3)

	entry, takeProfit, stopLoss := legs[0], legs[1], legs[2]

	assert.Equal(t, order.SideBuy, entry.Side)
	assert.Equal(t, order.TypeLimit, entry.Type)

	// Exit legs flip the side and reference the entry
	assert.Equal(t, order.SideSell, takeProfit.Side)
	assert.Equal(t, order.TypeTakeProfitLimit, takeProfit.Type)
	assert.Equal(t, entry.ID, takeProfit.ParentOrderID)
	assert.True(t, takeProfit.ReduceOnly)

	assert.Equal(t, order.SideSell, stopLoss.Side)
	assert.Equal(t, order.TypeStopMarket, stopLoss.Type)
	assert.Equal(t, entry.ID, stopLoss.ParentOrderID)

	// All legs share the bracket id and carry the full member list
	bracketID := entry.Tags[order.TagBracketID]
	assert.NotEmpty(t, bracketID)
	for _, leg := range legs {
		assert.Equal(t, bracketID, leg.Tags[order.TagBracketID])
		members := strings.Split(leg.Tags[order.TagBracketOrders], ",")
		assert.Len(t, members, 3)
		assert.Contains(t, members, entry.ID)
	}
}

// TestBatchCreateOrders tests best-effort batch placement
func TestBatchCreateOrders(t *testing.T) {
	m := newConnectedMock(t, "mock")

	reqs := []OrderRequest{
		{Symbol: "BTC/USDT", Side: order.SideBuy, Type: order.TypeLimit,
			Amount: decimal.NewFromFloat(0.1), Price: decimal.NewFromInt(48000)},
		// Missing price, fails validation
		{Symbol: "BTC/USDT", Side: order.SideBuy, Type: order.TypeLimit,
			Amount: decimal.NewFromFloat(0.1)},
		{Symbol: "ETH/USDT", Side: order.SideSell, Type: order.TypeLimit,
			Amount: decimal.NewFromInt(1), Price: decimal.NewFromInt(3100)},
	}

	placed := BatchCreateOrders(context.Background(), m, reqs, nil)
	assert.Len(t, placed, 2)
	assert.Equal(t, "BTC/USDT", placed[0].Symbol)
	assert.Equal(t, "ETH/USDT", placed[1].Symbol)
}

// TestBatchCancelOrders tests per-order cancel outcomes
func TestBatchCancelOrders(t *testing.T) {
	m := newConnectedMock(t, "mock")
	ctx := context.Background()

	resting, _ := m.CreateOrder(ctx, OrderRequest{
		Symbol: "BTC/USDT", Side: order.SideBuy, Type: order.TypeLimit,
		Amount: decimal.NewFromFloat(0.1), Price: decimal.NewFromInt(48000),
	})
	filled, _ := m.CreateOrder(ctx, OrderRequest{
		Symbol: "BTC/USDT", Side: order.SideBuy, Type: order.TypeMarket,
		Amount: decimal.NewFromFloat(0.01),
	})

	results := BatchCancelOrders(ctx, m, []string{resting.ID, filled.ID, "unknown"}, nil)

	assert.True(t, results[resting.ID])
	assert.False(t, results[filled.ID])
	assert.False(t, results["unknown"])
}
