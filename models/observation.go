package models

import (
	"fmt"
	"time"
)

// OptionType identifies the side of an options contract
type OptionType string

const (
	OptionTypeCall OptionType = "call"
	OptionTypePut  OptionType = "put"
)

// Validate checks that the option type is one of the two known sides.
// Any other value is a fatal input error for the row; it is never coerced.
func (t OptionType) Validate() error {
	switch t {
	case OptionTypeCall, OptionTypePut:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOptionType, string(t))
	}
}

// OptionObservation is one normalized contract under evaluation.
// Optional indicators are pointers: nil means "absent", which is distinct
// from zero and causes the corresponding scoring category to be skipped.
type OptionObservation struct {
	Symbol          string     `json:"symbol"`
	UnderlyingPrice float64    `json:"underlying_price"`
	MA20            *float64   `json:"ma20,omitempty"`
	MA50            *float64   `json:"ma50,omitempty"`
	RSI             *float64   `json:"rsi,omitempty"`
	Delta           *float64   `json:"delta,omitempty"`
	IV              *float64   `json:"iv,omitempty"` // implied volatility in percent (120.0 = 120%)
	Volume          int64      `json:"volume"`
	OpenInterest    int64      `json:"open_interest"`
	Strike          float64    `json:"strike"`
	OptionType      OptionType `json:"option_type"`
	Expiration      time.Time  `json:"expiration"`
	MoneynessPct    float64    `json:"moneyness_pct"` // signed ITM distance in percent, positive = ITM
}

// MoneynessRatio derives the strike/underlying ratio from the signed
// moneyness percentage. Calls use 1 + pct/100; puts use 1 - pct/100, so a
// put that is ITM by 5% yields 0.95. The put convention is the contract here;
// source data using the opposite sign must be flipped before normalization.
func (o *OptionObservation) MoneynessRatio() float64 {
	if o.OptionType == OptionTypePut {
		return 1 - o.MoneynessPct/100
	}
	return 1 + o.MoneynessPct/100
}

// IntrinsicValue returns the portion of a premium attributable to the
// contract being in the money right now.
func (o *OptionObservation) IntrinsicValue() float64 {
	var intrinsic float64
	if o.OptionType == OptionTypePut {
		intrinsic = o.Strike - o.UnderlyingPrice
	} else {
		intrinsic = o.UnderlyingPrice - o.Strike
	}
	if intrinsic < 0 {
		return 0
	}
	return intrinsic
}

// Key returns the identifying key used when reporting row-level failures.
func (o *OptionObservation) Key() string {
	return fmt.Sprintf("%s %.2f %s %s",
		o.Symbol, o.Strike, o.OptionType, o.Expiration.Format("2006-01-02"))
}

// Validate checks the structural requirements of an observation.
func (o *OptionObservation) Validate() error {
	if err := o.OptionType.Validate(); err != nil {
		return err
	}
	if o.Expiration.IsZero() {
		return fmt.Errorf("observation %s: expiration date is required", o.Symbol)
	}
	if o.Volume < 0 || o.OpenInterest < 0 {
		return fmt.Errorf("observation %s: volume and open interest must be non-negative", o.Symbol)
	}
	return nil
}
