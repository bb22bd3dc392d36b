package models

import (
	"errors"
	"testing"
	"time"
)

func TestTradeParameters_ValidateFor(t *testing.T) {
	expiration := time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		trade   TradeParameters
		wantErr bool
	}{
		{
			name:    "valid",
			trade:   TradeParameters{Premium: 1.25, PurchaseDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
			wantErr: false,
		},
		{
			name:    "zero premium is allowed",
			trade:   TradeParameters{Premium: 0, PurchaseDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
			wantErr: false,
		},
		{
			name:    "negative premium",
			trade:   TradeParameters{Premium: -0.5, PurchaseDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
			wantErr: true,
		},
		{
			name:    "purchase after expiration",
			trade:   TradeParameters{Premium: 1, PurchaseDate: time.Date(2026, 9, 19, 0, 0, 0, 0, time.UTC)},
			wantErr: true,
		},
		{
			name:    "purchase on expiration day",
			trade:   TradeParameters{Premium: 1, PurchaseDate: expiration},
			wantErr: false,
		},
		{
			name: "same day different time-of-day",
			// 18:00 on expiration day is still the same calendar date
			trade:   TradeParameters{Premium: 1, PurchaseDate: time.Date(2026, 9, 18, 18, 30, 0, 0, time.UTC)},
			wantErr: false,
		},
		{
			name:    "zero purchase date",
			trade:   TradeParameters{Premium: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.trade.ValidateFor(expiration)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTradeParameters) {
				t.Errorf("error should wrap ErrInvalidTradeParameters, got %v", err)
			}
		})
	}
}

func TestCalendarDate(t *testing.T) {
	late := time.Date(2026, 9, 18, 23, 59, 59, 0, time.UTC)
	early := time.Date(2026, 9, 18, 0, 0, 1, 0, time.UTC)

	if !CalendarDate(late).Equal(CalendarDate(early)) {
		t.Error("timestamps on the same day should normalize to the same date")
	}
	if got := CalendarDate(late); got.Hour() != 0 || got.Minute() != 0 {
		t.Errorf("CalendarDate() should be midnight, got %v", got)
	}
}
