package executor

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ducminhle1904/crypto-exec-engine/internal/bybit"
)

// VenueConfig selects and configures a single execution venue.
type VenueConfig struct {
	Name  string // exchange kind: "bybit" or "mock"
	Label string // instance name, defaults to Name

	// Credentials, live exchanges only.
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool

	RateLimitRequests int
	RateLimitWindow   time.Duration
	SimulatedDelay    time.Duration // mock venue connection latency
}

// NewVenue builds an order executor for the configured venue kind. Live
// exchanges require credentials; an empty or "mock" name yields a simulated
// venue. Each venue owns its own rate limiter.
func NewVenue(cfg VenueConfig, log *zap.Logger) (OrderExecutor, error) {
	limiter := NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	label := cfg.Label
	if label == "" {
		label = cfg.Name
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "bybit":
		if cfg.APIKey == "" || cfg.APISecret == "" {
			limiter.Stop()
			return nil, ErrMissingCredentials.WithDetails(
				"bybit requires EXCHANGE_API_KEY and EXCHANGE_API_SECRET")
		}
		return NewBybitExecutor(bybit.Config{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			Testnet:   cfg.Testnet,
			Demo:      cfg.Demo,
		}, limiter, log), nil

	case "", "mock":
		return NewMockExecutor(label, cfg.SimulatedDelay, limiter, log), nil

	default:
		limiter.Stop()
		return nil, ErrUnsupportedExchange.WithDetails(
			"supported exchanges: bybit, mock, got " + cfg.Name)
	}
}
