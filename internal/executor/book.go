package executor

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/crypto-exec-engine/internal/order"
)

// orderBook is the in-memory order table owned by one executor instance.
// Orders are registered at creation and retained for the lifetime of the
// executor; they are never deleted. Fill application to a single order is
// serialized through the book's lock (single-writer discipline), which
// keeps the volume-weighted average recomputation safe even when multiple
// routing legs are in flight across different orders.
type orderBook struct {
	mu     sync.Mutex
	orders map[string]*order.Order
}

func newOrderBook() *orderBook {
	return &orderBook{orders: make(map[string]*order.Order)}
}

func (b *orderBook) track(o *order.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[o.ID] = o
}

func (b *orderBook) get(orderID string) *order.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.orders[orderID]
}

// withOrder runs fn under the book lock against the tracked order, if any.
// It returns false when the order is unknown.
func (b *orderBook) withOrder(orderID string, fn func(*order.Order) bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok {
		return false
	}
	return fn(o)
}

func (b *orderBook) openOrders(symbol string) []*order.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*order.Order
	for _, o := range b.orders {
		if !o.IsActive() {
			continue
		}
		if symbol != "" && o.Symbol != symbol {
			continue
		}
		out = append(out, o)
	}
	return out
}

func (b *orderBook) history(filter HistoryFilter) []*order.Order {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}

	b.mu.Lock()
	out := make([]*order.Order, 0, len(b.orders))
	for _, o := range b.orders {
		if filter.Symbol != "" && o.Symbol != filter.Symbol {
			continue
		}
		if !filter.StartTime.IsZero() && o.CreatedAt.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && o.CreatedAt.After(filter.EndTime) {
			continue
		}
		out = append(out, o)
	}
	b.mu.Unlock()

	// Newest first.
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func (b *orderBook) summary(exchange string) Summary {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Summary{
		Exchange:        exchange,
		TotalOrders:     len(b.orders),
		TotalVolume:     decimal.Zero,
		TotalCommission: decimal.Zero,
	}
	for _, o := range b.orders {
		if o.IsActive() {
			s.ActiveOrders++
		}
		if o.IsFilled() {
			s.FilledOrders++
			s.TotalVolume = s.TotalVolume.Add(o.FilledAmount.Mul(o.AveragePrice))
			s.TotalCommission = s.TotalCommission.Add(o.Commission)
		}
	}
	return s
}
