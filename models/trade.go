package models

import (
	"fmt"
	"time"
)

// TradeParameters describe the proposed trade an observation is evaluated
// against. They are supplied per evaluation and are not part of the
// contract data itself.
type TradeParameters struct {
	Premium      float64   `json:"premium"`
	PurchaseDate time.Time `json:"purchase_date"`
}

// ValidateFor checks the trade parameters against a contract's expiration.
// A zero premium is allowed (the scoring engine guards the division); a
// negative one is not. A purchase date after expiration makes the whole
// evaluation meaningless and is rejected up front.
func (t *TradeParameters) ValidateFor(expiration time.Time) error {
	if t.Premium < 0 {
		return fmt.Errorf("%w: premium %.2f is negative", ErrInvalidTradeParameters, t.Premium)
	}
	if t.PurchaseDate.IsZero() {
		return fmt.Errorf("%w: purchase date is required", ErrInvalidTradeParameters)
	}
	if CalendarDate(t.PurchaseDate).After(CalendarDate(expiration)) {
		return fmt.Errorf("%w: purchase date %s is after expiration %s",
			ErrInvalidTradeParameters,
			t.PurchaseDate.Format("2006-01-02"), expiration.Format("2006-01-02"))
	}
	return nil
}

// CalendarDate truncates a timestamp to its calendar date in UTC.
// Day arithmetic on raw timestamps can be off by one depending on
// time-of-day, so every date comparison goes through this first.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
