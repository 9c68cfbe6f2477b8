package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// Ticker is a venue quote snapshot. Bid or Ask may be zero when the venue
// does not publish book data; Last is always set.
type Ticker struct {
	Symbol    string
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Last      decimal.Decimal
	Volume    float64
	Timestamp time.Time
}

// BuyPrice returns the price a buyer should expect: the ask, falling back
// to the last trade when no ask is available.
func (t *Ticker) BuyPrice() decimal.Decimal {
	if t.Ask.IsPositive() {
		return t.Ask
	}
	return t.Last
}

// SellPrice returns the price a seller should expect: the bid, falling back
// to the last trade when no bid is available.
func (t *Ticker) SellPrice() decimal.Decimal {
	if t.Bid.IsPositive() {
		return t.Bid
	}
	return t.Last
}

type Balance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

// Returns converts a close-price series into simple period returns.
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			out = append(out, (closes[i]-closes[i-1])/closes[i-1])
		}
	}
	return out
}
