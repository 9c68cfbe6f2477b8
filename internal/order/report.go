package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExecutionReport is an immutable record of one fill event, produced once
// per completed routing leg.
type ExecutionReport struct {
	OrderID         string
	TradeID         string
	Symbol          string
	Side            Side
	ExecutedAmount  decimal.Decimal
	ExecutedPrice   decimal.Decimal
	Commission      decimal.Decimal
	CommissionAsset string
	ExecutionTime   time.Time
	IsMaker         bool
}

// ReportFromOrder builds the execution report for a filled order leg.
func ReportFromOrder(o *Order) ExecutionReport {
	return ExecutionReport{
		OrderID:         o.ID,
		Symbol:          o.Symbol,
		Side:            o.Side,
		ExecutedAmount:  o.FilledAmount,
		ExecutedPrice:   o.AveragePrice,
		Commission:      o.Commission,
		CommissionAsset: o.CommissionAsset,
		ExecutionTime:   time.Now().UTC(),
	}
}

// Flatten serializes the report to a flat key-value record, decimals as
// canonical strings and the timestamp as ISO-8601.
func (r ExecutionReport) Flatten() map[string]string {
	rec := map[string]string{
		"order_id":        r.OrderID,
		"symbol":          r.Symbol,
		"side":            string(r.Side),
		"executed_amount": r.ExecutedAmount.String(),
		"executed_price":  r.ExecutedPrice.String(),
		"commission":      r.Commission.String(),
		"execution_time":  r.ExecutionTime.Format(time.RFC3339Nano),
	}
	if r.TradeID != "" {
		rec["trade_id"] = r.TradeID
	}
	if r.CommissionAsset != "" {
		rec["commission_asset"] = r.CommissionAsset
	}
	if r.IsMaker {
		rec["is_maker"] = "true"
	}
	return rec
}
