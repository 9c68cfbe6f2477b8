package executor

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/crypto-exec-engine/internal/order"
)

// CreateOCOOrder places a one-cancels-other pair: a limit order and a stop
// order on the same side, cross-linked through their tags so the caller can
// cancel the sibling when either leg fills. If the stop leg fails, the
// already-placed limit leg is cancelled to avoid a dangling half-pair.
func CreateOCOOrder(ctx context.Context, exec OrderExecutor, symbol string, side order.Side,
	amount, limitPrice, stopPrice decimal.Decimal) (*order.Order, *order.Order, error) {

	limitOrder, err := exec.CreateOrder(ctx, OrderRequest{
		Symbol: symbol,
		Side:   side,
		Type:   order.TypeLimit,
		Amount: amount,
		Price:  limitPrice,
	})
	if err != nil {
		return nil, nil, err
	}

	stopOrder, err := exec.CreateOrder(ctx, OrderRequest{
		Symbol:    symbol,
		Side:      side,
		Type:      order.TypeStopMarket,
		Amount:    amount,
		StopPrice: stopPrice,
	})
	if err != nil {
		exec.CancelOrder(ctx, limitOrder.ID)
		return nil, nil, err
	}

	limitOrder.Tags[order.TagOCOPair] = stopOrder.ID
	stopOrder.Tags[order.TagOCOPair] = limitOrder.ID
	return limitOrder, stopOrder, nil
}

// CreateBracketOrder places an entry limit order together with its exit
// legs: a take-profit limit and a stop-loss on the opposite side. All three
// share a bracket id tag and each carries the full id list, so bracket
// members can be found from any leg. Legs placed before a failure are
// cancelled on the way out.
func CreateBracketOrder(ctx context.Context, exec OrderExecutor, symbol string, side order.Side,
	amount, entryPrice, takeProfitPrice, stopLossPrice decimal.Decimal) ([]*order.Order, error) {

	bracketID := uuid.NewString()
	exitSide := side.Opposite()

	entry, err := exec.CreateOrder(ctx, OrderRequest{
		Symbol: symbol,
		Side:   side,
		Type:   order.TypeLimit,
		Amount: amount,
		Price:  entryPrice,
		Tags:   map[string]string{order.TagBracketID: bracketID},
	})
	if err != nil {
		return nil, err
	}

	takeProfit, err := exec.CreateOrder(ctx, OrderRequest{
		Symbol:        symbol,
		Side:          exitSide,
		Type:          order.TypeTakeProfitLimit,
		Amount:        amount,
		Price:         takeProfitPrice,
		ParentOrderID: entry.ID,
		ReduceOnly:    true,
		Tags:          map[string]string{order.TagBracketID: bracketID},
	})
	if err != nil {
		exec.CancelOrder(ctx, entry.ID)
		return nil, err
	}

	stopLoss, err := exec.CreateOrder(ctx, OrderRequest{
		Symbol:        symbol,
		Side:          exitSide,
		Type:          order.TypeStopMarket,
		Amount:        amount,
		StopPrice:     stopLossPrice,
		ParentOrderID: entry.ID,
		ReduceOnly:    true,
		Tags:          map[string]string{order.TagBracketID: bracketID},
	})
	if err != nil {
		exec.CancelOrder(ctx, entry.ID)
		exec.CancelOrder(ctx, takeProfit.ID)
		return nil, err
	}

	legs := []*order.Order{entry, takeProfit, stopLoss}
	ids := []string{entry.ID, takeProfit.ID, stopLoss.ID}
	joined := strings.Join(ids, ",")
	for _, leg := range legs {
		leg.Tags[order.TagBracketOrders] = joined
	}
	return legs, nil
}

// BatchCreateOrders places a batch of orders best-effort: failures are
// logged and excluded from the result rather than aborting the batch.
func BatchCreateOrders(ctx context.Context, exec OrderExecutor, reqs []OrderRequest,
	log *zap.Logger) []*order.Order {
	if log == nil {
		log = zap.NewNop()
	}

	out := make([]*order.Order, 0, len(reqs))
	for _, req := range reqs {
		o, err := exec.CreateOrder(ctx, req)
		if err != nil {
			log.Warn("batch order failed",
				zap.String("symbol", req.Symbol),
				zap.String("side", string(req.Side)),
				zap.Error(err))
			continue
		}
		out = append(out, o)
	}
	return out
}

// BatchCancelOrders cancels the given orders best-effort and reports the
// per-order outcome. Errors count as a false outcome for that order.
func BatchCancelOrders(ctx context.Context, exec OrderExecutor, orderIDs []string,
	log *zap.Logger) map[string]bool {
	if log == nil {
		log = zap.NewNop()
	}

	results := make(map[string]bool, len(orderIDs))
	for _, id := range orderIDs {
		ok, err := exec.CancelOrder(ctx, id)
		if err != nil {
			log.Warn("batch cancel failed", zap.String("order_id", id), zap.Error(err))
			ok = false
		}
		results[id] = ok
	}
	return results
}
