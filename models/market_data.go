package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote represents real-time quote data for an underlying stock
type Quote struct {
	Symbol    string          `json:"symbol"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Last      decimal.Decimal `json:"last"`
	BidSize   int64           `json:"bid_size,omitempty"`
	AskSize   int64           `json:"ask_size,omitempty"`
	Volume    int64           `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

// Bar represents OHLCV price data for a time period
type Bar struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
	VWAP      decimal.Decimal `json:"vwap,omitempty"`
}

// TechnicalIndicators holds the trend and momentum indicators computed from
// an underlying's daily bars
type TechnicalIndicators struct {
	Symbol    string          `json:"symbol"`
	SMA20     decimal.Decimal `json:"sma_20"`
	SMA50     decimal.Decimal `json:"sma_50"`
	RSI       float64         `json:"rsi"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// OptionQuote is one contract from an option-chain snapshot, keyed by
// (expiration, strike, side)
type OptionQuote struct {
	Symbol       string          `json:"symbol"` // OCC contract symbol
	Underlying   string          `json:"underlying"`
	Strike       float64         `json:"strike"`
	OptionType   OptionType      `json:"option_type"`
	Expiration   time.Time       `json:"expiration"`
	Bid          decimal.Decimal `json:"bid"`
	Ask          decimal.Decimal `json:"ask"`
	Last         decimal.Decimal `json:"last"`
	Volume       int64           `json:"volume"`
	OpenInterest int64           `json:"open_interest"`
	IV           *float64        `json:"iv,omitempty"`    // percent, nil when the feed omits greeks
	Delta        *float64        `json:"delta,omitempty"` // magnitude 0-1, nil when the feed omits greeks
}

// MidPrice returns the bid/ask midpoint, falling back to whichever side is
// quoted, then to the last trade.
func (q *OptionQuote) MidPrice() decimal.Decimal {
	bidSet := q.Bid.IsPositive()
	askSet := q.Ask.IsPositive()
	switch {
	case bidSet && askSet:
		return q.Bid.Add(q.Ask).Div(decimal.NewFromInt(2))
	case askSet:
		return q.Ask
	case bidSet:
		return q.Bid
	default:
		return q.Last
	}
}
