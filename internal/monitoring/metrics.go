package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Order lifecycle metrics
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exec_engine_orders_total",
			Help: "Total number of orders created",
		},
		[]string{"exchange", "symbol", "side", "type"},
	)

	ordersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exec_engine_orders_rejected_total",
			Help: "Total number of orders rejected before placement",
		},
		[]string{"exchange", "symbol"},
	)

	ordersCancelled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exec_engine_orders_cancelled_total",
			Help: "Total number of orders cancelled",
		},
		[]string{"exchange"},
	)

	fillNotional = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "exec_engine_fill_notional",
			Help:    "Distribution of fill notional values in quote currency",
			Buckets: prometheus.ExponentialBuckets(10, 10, 6),
		},
		[]string{"exchange", "symbol"},
	)

	// Routing metrics
	routedChunks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exec_engine_routed_chunks_total",
			Help: "Total number of order chunks routed to venues",
		},
		[]string{"exchange", "symbol"},
	)

	// Risk metrics
	portfolioVaR = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "exec_engine_portfolio_var_95",
			Help: "Current portfolio 95% value at risk",
		},
	)

	currentCapital = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "exec_engine_current_capital",
			Help: "Current trading capital",
		},
	)

	tradesBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exec_engine_trades_blocked_total",
			Help: "Total number of trades blocked by risk validation",
		},
		[]string{"symbol"},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(ordersTotal)
	prometheus.MustRegister(ordersRejected)
	prometheus.MustRegister(ordersCancelled)
	prometheus.MustRegister(fillNotional)
	prometheus.MustRegister(routedChunks)
	prometheus.MustRegister(portfolioVaR)
	prometheus.MustRegister(currentCapital)
	prometheus.MustRegister(tradesBlocked)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordOrderCreated records an order creation
func RecordOrderCreated(exchange, symbol, side, orderType string) {
	ordersTotal.WithLabelValues(exchange, symbol, side, orderType).Inc()
}

// RecordOrderRejected records an order rejection
func RecordOrderRejected(exchange, symbol string) {
	ordersRejected.WithLabelValues(exchange, symbol).Inc()
}

// RecordOrderCancelled records an order cancellation
func RecordOrderCancelled(exchange string) {
	ordersCancelled.WithLabelValues(exchange).Inc()
}

// RecordFill records an executed fill's notional value
func RecordFill(exchange, symbol string, notional float64) {
	fillNotional.WithLabelValues(exchange, symbol).Observe(notional)
}

// RecordRoutedChunk records one chunk routed to a venue
func RecordRoutedChunk(exchange, symbol string) {
	routedChunks.WithLabelValues(exchange, symbol).Inc()
}

// UpdatePortfolioVaR updates the portfolio VaR gauge
func UpdatePortfolioVaR(varValue float64) {
	portfolioVaR.Set(varValue)
}

// UpdateCapital updates the current capital gauge
func UpdateCapital(capital float64) {
	currentCapital.Set(capital)
}

// RecordTradeBlocked records a trade blocked by risk validation
func RecordTradeBlocked(symbol string) {
	tradesBlocked.WithLabelValues(symbol).Inc()
}
