package executor

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/crypto-exec-engine/internal/monitoring"
	"github.com/ducminhle1904/crypto-exec-engine/internal/order"
)

// RouterConfig tunes chunking behaviour for smart routing.
type RouterConfig struct {
	// MaxVenueShare caps each chunk at this fraction of the total amount,
	// spreading impact across venues. Default 0.30.
	MaxVenueShare decimal.Decimal
	// MinChunk is the smallest residual worth routing; remainders below it
	// are abandoned. Default 0.001.
	MinChunk decimal.Decimal
}

// SmartOrderRouter splits a parent order into chunks and sends each chunk
// to whichever connected venue quotes the best price at that moment.
type SmartOrderRouter struct {
	executors []OrderExecutor
	cfg       RouterConfig
	log       *zap.Logger
}

// NewSmartOrderRouter builds a router over the given venues. Zero-valued
// config fields fall back to defaults.
func NewSmartOrderRouter(executors []OrderExecutor, cfg RouterConfig, log *zap.Logger) *SmartOrderRouter {
	if !cfg.MaxVenueShare.IsPositive() {
		cfg.MaxVenueShare = decimal.NewFromFloat(0.30)
	}
	if !cfg.MinChunk.IsPositive() {
		cfg.MinChunk = decimal.NewFromFloat(0.001)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SmartOrderRouter{executors: executors, cfg: cfg, log: log}
}

// FindBestExecution polls every connected venue for a quote and returns the
// one offering the best side-aware price: lowest ask for buys, highest bid
// for sells. Venues that error are logged and skipped. Returns nil when no
// venue can quote.
func (r *SmartOrderRouter) FindBestExecution(ctx context.Context, symbol string, side order.Side) (OrderExecutor, decimal.Decimal) {
	return r.findBest(ctx, symbol, side, nil)
}

// findBest is FindBestExecution with an exclusion set, used while routing
// to stop re-selecting a venue that already failed a chunk.
func (r *SmartOrderRouter) findBest(ctx context.Context, symbol string, side order.Side,
	exclude map[OrderExecutor]bool) (OrderExecutor, decimal.Decimal) {
	var best OrderExecutor
	var bestPrice decimal.Decimal

	for _, exec := range r.executors {
		if !exec.IsConnected() || exclude[exec] {
			continue
		}
		ticker, err := exec.GetTicker(ctx, symbol)
		if err != nil {
			r.log.Warn("venue quote failed",
				zap.String("exchange", exec.Name()),
				zap.String("symbol", symbol),
				zap.Error(err))
			continue
		}

		var price decimal.Decimal
		if side == order.SideBuy {
			price = ticker.BuyPrice()
		} else {
			price = ticker.SellPrice()
		}
		if !price.IsPositive() {
			continue
		}

		better := best == nil ||
			(side == order.SideBuy && price.LessThan(bestPrice)) ||
			(side == order.SideSell && price.GreaterThan(bestPrice))
		if better {
			best = exec
			bestPrice = price
		}
	}
	return best, bestPrice
}

// ExecuteWithSmartRouting works a market order across venues in chunks of
// at most MaxVenueShare of the total, re-selecting the best venue before
// each chunk. It returns one execution report per filled chunk; a partial
// result with no error means the residual fell below MinChunk or every
// venue stopped quoting. Only market orders are supported.
func (r *SmartOrderRouter) ExecuteWithSmartRouting(ctx context.Context, symbol string, side order.Side,
	typ order.Type, totalAmount decimal.Decimal) ([]order.ExecutionReport, error) {

	if typ != order.TypeMarket {
		return nil, ErrUnsupportedOrderType.WithDetails("smart routing currently handles market orders only")
	}
	if !totalAmount.IsPositive() {
		return nil, ErrInvalidOrder.WithDetails("routing amount must be positive")
	}

	maxChunk := totalAmount.Mul(r.cfg.MaxVenueShare)
	remaining := totalAmount
	failed := make(map[OrderExecutor]bool)
	var reports []order.ExecutionReport

	for remaining.GreaterThanOrEqual(r.cfg.MinChunk) {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		venue, price := r.findBest(ctx, symbol, side, failed)
		if venue == nil {
			r.log.Warn("no venue available for routing",
				zap.String("symbol", symbol),
				zap.String("remaining", remaining.String()))
			break
		}

		chunk := decimal.Min(remaining, maxChunk)
		o, err := venue.CreateOrder(ctx, OrderRequest{
			Symbol: symbol,
			Side:   side,
			Type:   order.TypeMarket,
			Amount: chunk,
		})
		if err != nil {
			r.log.Warn("chunk execution failed, skipping venue",
				zap.String("exchange", venue.Name()),
				zap.String("symbol", symbol),
				zap.String("chunk", chunk.String()),
				zap.Error(err))
			// A failed chunk leaves the remaining amount untouched; the
			// next iteration re-polls quotes among the remaining venues.
			failed[venue] = true
			continue
		}

		if o.FilledAmount.IsPositive() {
			reports = append(reports, order.ReportFromOrder(o))
			remaining = remaining.Sub(o.FilledAmount)
			monitoring.RecordRoutedChunk(venue.Name(), symbol)
			r.log.Info("routed chunk executed",
				zap.String("exchange", venue.Name()),
				zap.String("symbol", symbol),
				zap.String("amount", o.FilledAmount.String()),
				zap.String("quoted_price", price.String()),
				zap.String("avg_price", o.AveragePrice.String()),
				zap.String("remaining", remaining.String()))
		} else {
			// Resting chunk on a market order should not happen; bail out
			// rather than loop forever.
			break
		}
	}

	return reports, nil
}
