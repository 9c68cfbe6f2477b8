package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side represents buy or sell
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the other side, used when building exit legs.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Type represents the order type
type Type string

const (
	TypeMarket           Type = "market"
	TypeLimit            Type = "limit"
	TypeStopMarket       Type = "stop_market"
	TypeStopLimit        Type = "stop_limit"
	TypeTakeProfitMarket Type = "take_profit_market"
	TypeTakeProfitLimit  Type = "take_profit_limit"
	TypeTrailingStop     Type = "trailing_stop"
)

// Status represents the lifecycle state of an order
type Status string

const (
	StatusNew             Status = "new"
	StatusPendingNew      Status = "pending_new"
	StatusPartiallyFilled Status = "partially_filled"
	StatusFilled          Status = "filled"
	StatusPendingCancel   Status = "pending_cancel"
	StatusCancelled       Status = "cancelled"
	StatusRejected        Status = "rejected"
	StatusExpired         Status = "expired"
)

// TimeInForce represents how long an order remains active
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
	TimeInForceDay TimeInForce = "DAY"
)

// Well-known tag keys used to link composed orders.
const (
	TagOCOPair       = "oco_pair"
	TagBracketID     = "bracket_id"
	TagBracketOrders = "bracket_orders"
	TagExchange      = "exchange"
)

// Order is a single order and its fill state. Amounts, prices and
// commissions use decimal arithmetic so repeated fills cannot drift the
// volume-weighted average price or the balance bookkeeping.
type Order struct {
	ID            string
	ClientOrderID string
	ParentOrderID string

	Symbol      string
	Side        Side
	Type        Type
	Amount      decimal.Decimal
	Price       decimal.Decimal // limit price, zero when unset
	StopPrice   decimal.Decimal // stop/trigger price, zero when unset
	TimeInForce TimeInForce
	ReduceOnly  bool
	PostOnly    bool
	IcebergAmt  decimal.Decimal

	Status          Status
	FilledAmount    decimal.Decimal
	AveragePrice    decimal.Decimal
	Commission      decimal.Decimal
	CommissionAsset string

	CreatedAt time.Time
	UpdatedAt time.Time

	Tags map[string]string
}

// New creates an order in status new with the given identity and terms.
func New(id, symbol string, side Side, typ Type, amount decimal.Decimal) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:          id,
		Symbol:      symbol,
		Side:        side,
		Type:        typ,
		Amount:      amount,
		TimeInForce: TimeInForceGTC,
		Status:      StatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
		Tags:        make(map[string]string),
	}
}

// IsActive reports whether the order can still receive fills.
func (o *Order) IsActive() bool {
	switch o.Status {
	case StatusNew, StatusPendingNew, StatusPartiallyFilled:
		return true
	}
	return false
}

// IsFilled reports whether the order is completely filled.
func (o *Order) IsFilled() bool {
	return o.Status == StatusFilled
}

// IsCancellable reports whether a cancel request may be applied.
func (o *Order) IsCancellable() bool {
	return o.Status == StatusNew || o.Status == StatusPartiallyFilled
}

// RemainingAmount returns the unfilled portion.
func (o *Order) RemainingAmount() decimal.Decimal {
	return o.Amount.Sub(o.FilledAmount)
}

// FillPercentage returns filled/amount as a percentage.
func (o *Order) FillPercentage() float64 {
	if o.Amount.IsZero() {
		return 0
	}
	pct, _ := o.FilledAmount.Div(o.Amount).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

// UpdateFill applies one fill event. It is the only mutator of fill state:
// it increments the cumulative filled amount, recomputes the volume-weighted
// average price exactly, accumulates commission, and moves the status to
// partially_filled or filled. Fills that would overfill the order or carry a
// non-positive amount are rejected before any state changes.
func (o *Order) UpdateFill(fillAmount, fillPrice, commission decimal.Decimal) error {
	if !o.IsActive() {
		return fmt.Errorf("order %s is %s and cannot be filled", o.ID, o.Status)
	}
	if !fillAmount.IsPositive() {
		return fmt.Errorf("fill amount must be positive, got %s", fillAmount)
	}
	newFilled := o.FilledAmount.Add(fillAmount)
	if newFilled.GreaterThan(o.Amount) {
		return fmt.Errorf("fill of %s would exceed order amount %s (already filled %s)",
			fillAmount, o.Amount, o.FilledAmount)
	}

	totalValue := o.AveragePrice.Mul(o.FilledAmount).Add(fillPrice.Mul(fillAmount))
	o.FilledAmount = newFilled
	o.AveragePrice = totalValue.Div(newFilled)
	o.Commission = o.Commission.Add(commission)

	if o.FilledAmount.GreaterThanOrEqual(o.Amount) {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartiallyFilled
	}
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel transitions a cancellable order to cancelled. It returns false and
// leaves the order untouched when the order is in a non-cancellable state.
func (o *Order) Cancel() bool {
	if !o.IsCancellable() {
		return false
	}
	o.Status = StatusCancelled
	o.UpdatedAt = time.Now().UTC()
	return true
}

// Reject marks an order rejected with the reason stored in its tags.
// Only orders that have not started filling can be rejected.
func (o *Order) Reject(reason string) bool {
	if o.Status != StatusNew && o.Status != StatusPendingNew {
		return false
	}
	o.Status = StatusRejected
	o.Tags["reject_reason"] = reason
	o.UpdatedAt = time.Now().UTC()
	return true
}

// Flatten serializes the order to a flat key-value record: decimals as
// canonical strings, timestamps as ISO-8601. Zero-valued optional prices are
// omitted.
func (o *Order) Flatten() map[string]string {
	rec := map[string]string{
		"id":            o.ID,
		"symbol":        o.Symbol,
		"side":          string(o.Side),
		"order_type":    string(o.Type),
		"amount":        o.Amount.String(),
		"time_in_force": string(o.TimeInForce),
		"status":        string(o.Status),
		"filled_amount": o.FilledAmount.String(),
		"average_price": o.AveragePrice.String(),
		"commission":    o.Commission.String(),
		"created_at":    o.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":    o.UpdatedAt.Format(time.RFC3339Nano),
	}
	if o.ClientOrderID != "" {
		rec["client_order_id"] = o.ClientOrderID
	}
	if o.ParentOrderID != "" {
		rec["parent_order_id"] = o.ParentOrderID
	}
	if o.CommissionAsset != "" {
		rec["commission_asset"] = o.CommissionAsset
	}
	if o.Price.IsPositive() {
		rec["price"] = o.Price.String()
	}
	if o.StopPrice.IsPositive() {
		rec["stop_price"] = o.StopPrice.String()
	}
	if o.IcebergAmt.IsPositive() {
		rec["iceberg_amount"] = o.IcebergAmt.String()
	}
	if o.ReduceOnly {
		rec["reduce_only"] = "true"
	}
	if o.PostOnly {
		rec["post_only"] = "true"
	}
	for k, v := range o.Tags {
		rec["tag."+k] = v
	}
	return rec
}

// FromRecord rebuilds an order from a flat record produced by Flatten.
// Decimal fields parse from their canonical strings, timestamps from
// ISO-8601, tag.* keys repopulate the tag map. Unknown keys are ignored.
func FromRecord(rec map[string]string) (*Order, error) {
	if rec["id"] == "" || rec["symbol"] == "" {
		return nil, fmt.Errorf("record is missing order identity (id, symbol)")
	}
	o := &Order{
		ID:              rec["id"],
		ClientOrderID:   rec["client_order_id"],
		ParentOrderID:   rec["parent_order_id"],
		Symbol:          rec["symbol"],
		Side:            Side(rec["side"]),
		Type:            Type(rec["order_type"]),
		TimeInForce:     TimeInForce(rec["time_in_force"]),
		Status:          Status(rec["status"]),
		CommissionAsset: rec["commission_asset"],
		ReduceOnly:      rec["reduce_only"] == "true",
		PostOnly:        rec["post_only"] == "true",
		Tags:            make(map[string]string),
	}
	if o.TimeInForce == "" {
		o.TimeInForce = TimeInForceGTC
	}
	if o.Status == "" {
		o.Status = StatusNew
	}

	for key, dst := range map[string]*decimal.Decimal{
		"amount":         &o.Amount,
		"filled_amount":  &o.FilledAmount,
		"average_price":  &o.AveragePrice,
		"commission":     &o.Commission,
		"price":          &o.Price,
		"stop_price":     &o.StopPrice,
		"iceberg_amount": &o.IcebergAmt,
	} {
		raw, ok := rec[key]
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", key, raw, err)
		}
		*dst = d
	}
	if !o.Amount.IsPositive() {
		return nil, fmt.Errorf("record amount must be positive, got %s", o.Amount)
	}

	for key, dst := range map[string]*time.Time{
		"created_at": &o.CreatedAt,
		"updated_at": &o.UpdatedAt,
	} {
		raw, ok := rec[key]
		if !ok {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", key, raw, err)
		}
		*dst = ts
	}

	for k, v := range rec {
		if strings.HasPrefix(k, "tag.") {
			o.Tags[strings.TrimPrefix(k, "tag.")] = v
		}
	}
	return o, nil
}
