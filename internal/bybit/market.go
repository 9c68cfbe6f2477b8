package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// Ticker holds the level-1 quote for a symbol.
type Ticker struct {
	Symbol    string
	Bid       string
	Ask       string
	LastPrice string
	Volume24h string
}

// GetTicker retrieves the current quote for a symbol
func (c *Client) GetTicker(ctx context.Context, category, symbol string) (*Ticker, error) {
	if category == "" {
		category = "spot"
	}
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticker: %w", err)
	}

	serverResp, ok := any(result).(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var tickerResult struct {
		List []struct {
			Symbol    string `json:"symbol"`
			Bid1Price string `json:"bid1Price"`
			Ask1Price string `json:"ask1Price"`
			LastPrice string `json:"lastPrice"`
			Volume24h string `json:"volume24h"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &tickerResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ticker result: %w", err)
	}
	if len(tickerResult.List) == 0 {
		return nil, fmt.Errorf("no ticker data for symbol %s", symbol)
	}

	t := tickerResult.List[0]
	return &Ticker{
		Symbol:    t.Symbol,
		Bid:       t.Bid1Price,
		Ask:       t.Ask1Price,
		LastPrice: t.LastPrice,
		Volume24h: t.Volume24h,
	}, nil
}

// GetWalletBalances retrieves per-coin wallet balances for the unified
// account.
func (c *Client) GetWalletBalances(ctx context.Context) (map[string]float64, error) {
	params := map[string]interface{}{
		"accountType": "UNIFIED",
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account balance: %w", err)
	}

	serverResp, ok := any(result).(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var walletResult struct {
		List []struct {
			Coin []struct {
				Coin          string `json:"coin"`
				WalletBalance string `json:"walletBalance"`
			} `json:"coin"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &walletResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet result: %w", err)
	}

	balances := make(map[string]float64)
	for _, account := range walletResult.List {
		for _, coin := range account.Coin {
			amount, err := strconv.ParseFloat(coin.WalletBalance, 64)
			if err != nil {
				continue
			}
			balances[coin.Coin] = amount
		}
	}
	return balances, nil
}
