package normalize

import (
	"testing"
	"time"

	"option-scout/models"
)

func TestParsePercent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *float64
	}{
		{"plain", "62.5", fptr(62.5)},
		{"percent sign", "120%", fptr(120)},
		{"plus prefix", "+5.3%", fptr(5.3)},
		{"negative", "-10.2%", fptr(-10.2)},
		{"thousands separator", "1,250.5", fptr(1250.5)},
		{"surrounding space", "  45 % ", fptr(45)},
		{"zero is zero, not nil", "0", fptr(0)},
		{"empty is nil", "", nil},
		{"garbage is nil", "n/a", nil},
		{"dashes are nil", "--", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePercent(tt.raw)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("ParsePercent(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("ParsePercent(%q) = %v, want %v", tt.raw, *got, *tt.want)
			}
		})
	}
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		raw  string
		want *float64
	}{
		{"$1,234.56", fptr(1234.56)},
		{"195.50", fptr(195.50)},
		{"$0.25", fptr(0.25)},
		{"", nil},
		{"N/A", nil},
	}

	for _, tt := range tests {
		got := ParseMoney(tt.raw)
		if (got == nil) != (tt.want == nil) {
			t.Fatalf("ParseMoney(%q) = %v, want %v", tt.raw, got, tt.want)
		}
		if got != nil && *got != *tt.want {
			t.Errorf("ParseMoney(%q) = %v, want %v", tt.raw, *got, *tt.want)
		}
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"600", 600},
		{"1,250", 1250},
		{"0", 0},
		{"", 0},
		{"n/a", 0},
		{"-50", 0}, // malformed negative counts clamp to "no liquidity"
	}

	for _, tt := range tests {
		if got := ParseCount(tt.raw); got != tt.want {
			t.Errorf("ParseCount(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestDaysToExpiration(t *testing.T) {
	expiration := time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		purchase time.Time
		want     int
	}{
		{"ten days out", time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC), 10},
		{"same day", expiration, 0},
		{
			// The classic off-by-one: a late-evening purchase timestamp must
			// not shave a day off the difference.
			"late evening purchase",
			time.Date(2026, 9, 8, 23, 45, 0, 0, time.UTC),
			10,
		},
		{
			"expiration carries a time too",
			time.Date(2026, 9, 8, 9, 30, 0, 0, time.UTC),
			10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysToExpiration(expiration, tt.purchase); got != tt.want {
				t.Errorf("DaysToExpiration() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseOptionType(t *testing.T) {
	tests := []struct {
		raw     string
		want    models.OptionType
		wantErr bool
	}{
		{"call", models.OptionTypeCall, false},
		{"CALL", models.OptionTypeCall, false},
		{"c", models.OptionTypeCall, false},
		{"Put", models.OptionTypePut, false},
		{"p", models.OptionTypePut, false},
		{"straddle", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseOptionType(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOptionType(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseOptionType(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func testRow(overrides map[string]string) Row {
	fields := map[string]string{
		"symbol":        "AAPL",
		"price":         "100",
		"ma20":          "95",
		"ma50":          "90",
		"rsi":           "60",
		"delta":         "0.75",
		"iv":            "90%",
		"volume":        "600",
		"open interest": "600",
		"strike":        "95",
		"type":          "call",
		"expiration":    "2026-09-18",
		"moneyness":     "+5.3%",
	}
	for k, v := range overrides {
		fields[k] = v
	}
	return Row{Index: 1, Fields: fields}
}

func TestNormalize(t *testing.T) {
	t.Run("complete row", func(t *testing.T) {
		obs, rowErr := Normalize(testRow(nil))
		if rowErr != nil {
			t.Fatalf("unexpected row error: %v", rowErr)
		}

		if obs.Symbol != "AAPL" {
			t.Errorf("symbol = %q", obs.Symbol)
		}
		if obs.UnderlyingPrice != 100 || obs.Strike != 95 {
			t.Errorf("price/strike = %v/%v", obs.UnderlyingPrice, obs.Strike)
		}
		if obs.MA20 == nil || *obs.MA20 != 95 || obs.MA50 == nil || *obs.MA50 != 90 {
			t.Error("moving averages not parsed")
		}
		if obs.Delta == nil || *obs.Delta != 0.75 {
			t.Error("delta not parsed")
		}
		if obs.IV == nil || *obs.IV != 90 {
			t.Error("iv not parsed")
		}
		if obs.Volume != 600 || obs.OpenInterest != 600 {
			t.Errorf("liquidity = %d/%d", obs.Volume, obs.OpenInterest)
		}
		if obs.OptionType != models.OptionTypeCall {
			t.Errorf("option type = %v", obs.OptionType)
		}
		if obs.MoneynessPct != 5.3 {
			t.Errorf("moneyness = %v", obs.MoneynessPct)
		}
		if obs.Expiration != time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC) {
			t.Errorf("expiration = %v", obs.Expiration)
		}
	})

	t.Run("optional fields degrade to nil", func(t *testing.T) {
		obs, rowErr := Normalize(testRow(map[string]string{
			"ma20": "", "ma50": "n/a", "rsi": "", "delta": "--", "iv": "",
		}))
		if rowErr != nil {
			t.Fatalf("unexpected row error: %v", rowErr)
		}
		if obs.MA20 != nil || obs.MA50 != nil || obs.RSI != nil || obs.Delta != nil || obs.IV != nil {
			t.Error("missing optional fields should be nil, not defaulted")
		}
	})

	t.Run("negative put delta normalized to magnitude", func(t *testing.T) {
		obs, rowErr := Normalize(testRow(map[string]string{"type": "put", "delta": "-0.45"}))
		if rowErr != nil {
			t.Fatalf("unexpected row error: %v", rowErr)
		}
		if obs.Delta == nil || *obs.Delta != 0.45 {
			t.Errorf("delta = %v, want 0.45", obs.Delta)
		}
	})

	t.Run("header aliases", func(t *testing.T) {
		row := Row{Index: 2, Fields: map[string]string{
			"ticker":           "MSFT",
			"underlying price": "400",
			"strike price":     "395",
			"right":            "call",
			"expiry":           "09/18/2026",
			"moneyness_pct":    "1.3",
			"oi":               "1,000",
		}}
		obs, rowErr := Normalize(row)
		if rowErr != nil {
			t.Fatalf("unexpected row error: %v", rowErr)
		}
		if obs.Symbol != "MSFT" || obs.UnderlyingPrice != 400 || obs.Strike != 395 {
			t.Errorf("aliased fields not resolved: %+v", obs)
		}
		if obs.OpenInterest != 1000 {
			t.Errorf("open interest = %d, want 1000", obs.OpenInterest)
		}
	})

	requiredFailures := []struct {
		name      string
		overrides map[string]string
		wantField string
	}{
		{"missing price", map[string]string{"price": ""}, "underlying_price"},
		{"missing strike", map[string]string{"strike": "???"}, "strike"},
		{"bad option type", map[string]string{"type": "spread"}, "option_type"},
		{"bad expiration", map[string]string{"expiration": "someday"}, "expiration_date"},
		{"missing moneyness", map[string]string{"moneyness": ""}, "moneyness_pct"},
	}

	for _, tt := range requiredFailures {
		t.Run(tt.name, func(t *testing.T) {
			_, rowErr := Normalize(testRow(tt.overrides))
			if rowErr == nil {
				t.Fatal("expected a row error")
			}
			if rowErr.Field != tt.wantField {
				t.Errorf("row error field = %q, want %q", rowErr.Field, tt.wantField)
			}
			if rowErr.Index != 1 || rowErr.Symbol != "AAPL" {
				t.Errorf("row error should carry identifying key, got %+v", rowErr)
			}
		})
	}
}

func fptr(v float64) *float64 { return &v }
