package bybit

import (
	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// Client wraps the Bybit API client with the calls the execution engine
// needs: order placement, cancellation, queries, tickers and balances.
type Client struct {
	httpClient *bybit_api.Client
	testnet    bool
	demo       bool
}

// Config holds the configuration for the Bybit client
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool // Demo trading environment
}

// NewClient creates a new Bybit client
func NewClient(config Config) *Client {
	var baseURL string
	if config.Demo {
		// Demo trading environment (paper trading)
		baseURL = "https://api-demo.bybit.com"
	} else if config.Testnet {
		baseURL = bybit_api.TESTNET
	} else {
		baseURL = bybit_api.MAINNET
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &Client{
		httpClient: httpClient,
		testnet:    config.Testnet,
		demo:       config.Demo,
	}
}

// Environment returns a string describing the current environment
func (c *Client) Environment() string {
	if c.demo {
		return "demo"
	} else if c.testnet {
		return "testnet"
	}
	return "mainnet"
}
