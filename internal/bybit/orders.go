package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// Order represents a trading order as reported by the exchange. Numeric
// fields stay as strings until the caller converts them.
type Order struct {
	OrderID      string    `json:"orderId"`
	OrderLinkID  string    `json:"orderLinkId"`
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"`
	OrderType    string    `json:"orderType"`
	Qty          string    `json:"qty"`
	Price        string    `json:"price"`
	TriggerPrice string    `json:"triggerPrice"`
	TimeInForce  string    `json:"timeInForce"`
	OrderStatus  string    `json:"orderStatus"`
	CumExecQty   string    `json:"cumExecQty"`
	CumExecValue string    `json:"cumExecValue"`
	CumExecFee   string    `json:"cumExecFee"`
	AvgPrice     string    `json:"avgPrice"`
	CreatedTime  time.Time `json:"createdTime"`
	UpdatedTime  time.Time `json:"updatedTime"`
}

// PlaceOrderParams holds parameters for placing an order
type PlaceOrderParams struct {
	Category     string // "spot", "linear", "inverse"
	Symbol       string
	Side         string // Buy or Sell
	OrderType    string // Market or Limit
	Qty          string
	Price        string // required for limit orders
	TriggerPrice string // for conditional orders
	TimeInForce  string
	OrderLinkID  string
	ReduceOnly   bool
	PostOnly     bool
}

// PlaceOrder places a new order
func (c *Client) PlaceOrder(ctx context.Context, params PlaceOrderParams) (*Order, error) {
	if params.Category == "" {
		params.Category = "spot"
	}
	if params.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if params.Qty == "" {
		return nil, fmt.Errorf("qty is required")
	}
	if params.OrderType == "Limit" && params.Price == "" {
		return nil, fmt.Errorf("price is required for limit orders")
	}
	if params.OrderType == "Limit" && params.TimeInForce == "" {
		params.TimeInForce = "GTC"
	}

	apiParams := map[string]interface{}{
		"category":  params.Category,
		"symbol":    params.Symbol,
		"side":      params.Side,
		"orderType": params.OrderType,
		"qty":       params.Qty,
	}
	if params.Price != "" {
		apiParams["price"] = params.Price
	}
	if params.TriggerPrice != "" {
		apiParams["triggerPrice"] = params.TriggerPrice
	}
	if params.TimeInForce != "" {
		apiParams["timeInForce"] = params.TimeInForce
	}
	if params.OrderLinkID != "" {
		apiParams["orderLinkId"] = params.OrderLinkID
	}
	if params.ReduceOnly {
		apiParams["reduceOnly"] = params.ReduceOnly
	}
	if params.PostOnly {
		apiParams["postOnly"] = params.PostOnly
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(apiParams).PlaceOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	order, err := parseOrderResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order response: %w", err)
	}
	return order, nil
}

// CancelOrder cancels an existing order
func (c *Client) CancelOrder(ctx context.Context, category, symbol, orderID string) error {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"orderId":  orderID,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).CancelOrder(ctx)
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	if serverResp, ok := any(result).(*bybit_api.ServerResponse); ok {
		if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
			return err
		}
	}
	return nil
}

// GetOpenOrders retrieves open orders
func (c *Client) GetOpenOrders(ctx context.Context, category, symbol string) ([]Order, error) {
	params := map[string]interface{}{
		"category": category,
	}
	if symbol != "" {
		params["symbol"] = symbol
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetOpenOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get open orders: %w", err)
	}

	orders, err := parseOrdersResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse orders response: %w", err)
	}
	return orders, nil
}

// GetOrderHistory retrieves order history
func (c *Client) GetOrderHistory(ctx context.Context, category, symbol string, limit int) ([]Order, error) {
	params := map[string]interface{}{
		"category": category,
	}
	if symbol != "" {
		params["symbol"] = symbol
	}
	if limit > 0 {
		params["limit"] = limit
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetOrderHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get order history: %w", err)
	}

	orders, err := parseOrdersResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order history response: %w", err)
	}
	return orders, nil
}

// orderRecord is the raw order shape shared by the placement and list
// responses.
type orderRecord struct {
	OrderID      string `json:"orderId"`
	OrderLinkID  string `json:"orderLinkId"`
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`
	OrderType    string `json:"orderType"`
	Qty          string `json:"qty"`
	Price        string `json:"price"`
	TriggerPrice string `json:"triggerPrice"`
	TimeInForce  string `json:"timeInForce"`
	OrderStatus  string `json:"orderStatus"`
	CumExecQty   string `json:"cumExecQty"`
	CumExecValue string `json:"cumExecValue"`
	CumExecFee   string `json:"cumExecFee"`
	AvgPrice     string `json:"avgPrice"`
	CreatedTime  string `json:"createdTime"`
	UpdatedTime  string `json:"updatedTime"`
}

func (r orderRecord) toOrder() Order {
	return Order{
		OrderID:      r.OrderID,
		OrderLinkID:  r.OrderLinkID,
		Symbol:       r.Symbol,
		Side:         r.Side,
		OrderType:    r.OrderType,
		Qty:          r.Qty,
		Price:        r.Price,
		TriggerPrice: r.TriggerPrice,
		TimeInForce:  r.TimeInForce,
		OrderStatus:  r.OrderStatus,
		CumExecQty:   r.CumExecQty,
		CumExecValue: r.CumExecValue,
		CumExecFee:   r.CumExecFee,
		AvgPrice:     r.AvgPrice,
		CreatedTime:  parseTimestamp(r.CreatedTime),
		UpdatedTime:  parseTimestamp(r.UpdatedTime),
	}
}

// parseOrderResponse parses the order placement API response
func parseOrderResponse(response interface{}) (*Order, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
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

	var rec orderRecord
	if err := json.Unmarshal(resultBytes, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order result: %w", err)
	}

	order := rec.toOrder()
	return &order, nil
}

// parseOrdersResponse parses the orders list API response
func parseOrdersResponse(response interface{}) ([]Order, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
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

	var listResult struct {
		List           []orderRecord `json:"list"`
		NextPageCursor string        `json:"nextPageCursor"`
		Category       string        `json:"category"`
	}
	if err := json.Unmarshal(resultBytes, &listResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order list result: %w", err)
	}

	orders := make([]Order, 0, len(listResult.List))
	for _, rec := range listResult.List {
		orders = append(orders, rec.toOrder())
	}
	return orders, nil
}

// parseTimestamp converts a millisecond epoch string to time.Time.
func parseTimestamp(ts string) time.Time {
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
