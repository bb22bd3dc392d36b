// Package normalize converts heterogeneous raw contract rows into typed
// OptionObservation values. It is the only place raw broker-export noise
// (percent signs, dollar signs, thousands separators, mixed date layouts)
// is handled; everything downstream sees canonical numbers or an explicit
// nil for "absent".
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"option-scout/models"
)

// expirationLayouts are the date formats accepted for expiration columns,
// tried in order.
var expirationLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
	"Jan 2 2006",
	"Jan 2, 2006",
	"20060102",
}

// ParsePercent parses a percentage-like field, stripping "%", "+" and
// thousands separators. It returns nil, not zero, on unparseable input so
// callers can distinguish "absent" from "zero".
func ParsePercent(raw string) *float64 {
	return parseNumeric(raw, "%", "+", ",")
}

// ParseMoney parses a money-like field, stripping "$" in addition to the
// percent-field noise.
func ParseMoney(raw string) *float64 {
	return parseNumeric(raw, "%", "+", ",", "$")
}

// ParseCount parses a count field (volume, open interest), defaulting to 0
// on failure. Counts are safe to default: the liquidity rules treat 0 as
// "no liquidity", which is the conservative fallback.
func ParseCount(raw string) int64 {
	v := parseNumeric(raw, "+", ",", "$")
	if v == nil || *v < 0 {
		return 0
	}
	return int64(*v)
}

// DaysToExpiration returns the plain calendar-day difference between the
// expiration and purchase dates. Both are normalized to calendar dates
// first; subtracting raw timestamps is off by one depending on time-of-day.
func DaysToExpiration(expiration, purchase time.Time) int {
	diff := models.CalendarDate(expiration).Sub(models.CalendarDate(purchase))
	return int(diff.Hours() / 24)
}

// ParseOptionType parses a call/put field. Anything outside the two known
// sides is an error, never a default.
func ParseOptionType(raw string) (models.OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "call", "c":
		return models.OptionTypeCall, nil
	case "put", "p":
		return models.OptionTypePut, nil
	default:
		return "", fmt.Errorf("%w: %q", models.ErrUnknownOptionType, raw)
	}
}

// ParseExpiration parses an expiration date field against the accepted
// layouts.
func ParseExpiration(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("expiration date is empty")
	}
	for _, layout := range expirationLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized expiration date %q", s)
}

// Normalize converts one raw row into an observation. Optional indicator
// fields (moving averages, RSI, delta, IV) degrade to nil when missing or
// malformed; structurally required fields yield a RowError that excludes
// the row from the verdict list.
func Normalize(row Row) (models.OptionObservation, *models.RowError) {
	symbol := strings.ToUpper(strings.TrimSpace(row.Lookup("symbol", "ticker")))

	fail := func(field, reason string) (models.OptionObservation, *models.RowError) {
		return models.OptionObservation{}, &models.RowError{
			Index:  row.Index,
			Symbol: symbol,
			Field:  field,
			Reason: reason,
		}
	}

	price := ParseMoney(row.Lookup("price", "underlying price", "underlying_price", "stock price", "last"))
	if price == nil {
		return fail("underlying_price", "missing or unparseable")
	}

	strike := ParseMoney(row.Lookup("strike", "strike price", "strike_price"))
	if strike == nil {
		return fail("strike", "missing or unparseable")
	}

	optType, err := ParseOptionType(row.Lookup("type", "option type", "option_type", "right", "side"))
	if err != nil {
		return fail("option_type", err.Error())
	}

	expiration, err := ParseExpiration(row.Lookup("expiration", "expiration date", "expiration_date", "expiry", "exp date", "maturity"))
	if err != nil {
		return fail("expiration_date", err.Error())
	}

	moneyness := ParsePercent(row.Lookup("moneyness", "moneyness %", "moneyness_pct"))
	if moneyness == nil {
		return fail("moneyness_pct", "missing or unparseable")
	}

	obs := models.OptionObservation{
		Symbol:          symbol,
		UnderlyingPrice: *price,
		Strike:          *strike,
		OptionType:      optType,
		Expiration:      expiration,
		MoneynessPct:    *moneyness,
		MA20:            ParseMoney(row.Lookup("ma20", "ma 20", "sma20", "sma 20")),
		MA50:            ParseMoney(row.Lookup("ma50", "ma 50", "sma50", "sma 50")),
		RSI:             ParsePercent(row.Lookup("rsi")),
		Delta:           parseDelta(row.Lookup("delta")),
		IV:              ParsePercent(row.Lookup("iv", "implied volatility", "implied_volatility")),
		Volume:          ParseCount(row.Lookup("volume", "vol")),
		OpenInterest:    ParseCount(row.Lookup("open interest", "open_interest", "oi")),
	}

	return obs, nil
}

// parseDelta parses a delta field as a sign-less magnitude. Put deltas are
// quoted negative by most brokers; the scoring rules work on magnitude with
// direction carried by the option type.
func parseDelta(raw string) *float64 {
	v := ParsePercent(raw)
	if v == nil {
		return nil
	}
	if *v < 0 {
		abs := -*v
		return &abs
	}
	return v
}

// parseNumeric strips the given noise tokens and whitespace, then parses a
// float. Returns nil on empty or unparseable input.
func parseNumeric(raw string, strip ...string) *float64 {
	s := strings.TrimSpace(raw)
	for _, tok := range strip {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
