package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"option-scout/models"
	"option-scout/observability"
	"option-scout/services"

	"github.com/shopspring/decimal"
)

// Cache payloads are stored as JSON objects; slices get a wrapper so every
// cached value round-trips through map[string]interface{}.
type cachedChain struct {
	Contracts []models.OptionQuote `json:"contracts"`
}

type cachedExpirations struct {
	Dates []time.Time `json:"dates"`
}

// GetQuote returns the latest underlying quote, serving from the repository
// cache when a fresh entry exists.
func (a *App) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if a.marketData == nil {
		return nil, fmt.Errorf("market data service not configured")
	}

	var quote models.Quote
	if a.cacheGet(ctx, symbol, "quote", &quote) {
		return &quote, nil
	}

	fresh, err := a.marketData.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	a.cacheSet(ctx, symbol, "quote", fresh, time.Duration(a.cfg.Cache.QuoteTTLSeconds)*time.Second)
	return fresh, nil
}

// GetIndicators computes SMA20/SMA50/RSI from the underlying's daily bars,
// caching the computed indicators rather than the raw bar history.
func (a *App) GetIndicators(ctx context.Context, symbol string) (*models.TechnicalIndicators, error) {
	if a.marketData == nil {
		return nil, fmt.Errorf("market data service not configured")
	}

	var cached models.TechnicalIndicators
	if a.cacheGet(ctx, symbol, "indicators", &cached) {
		return &cached, nil
	}

	bars, err := a.marketData.GetDailyBars(ctx, symbol, a.cfg.Screen.LookbackDays)
	if err != nil {
		return nil, err
	}

	indicators, err := services.ComputeIndicators(bars)
	if err != nil {
		return nil, err
	}
	a.cacheSet(ctx, symbol, "indicators", indicators, time.Duration(a.cfg.Cache.BarsTTLSeconds)*time.Second)
	return indicators, nil
}

// GetExpirations lists the expiration dates with listed contracts for a
// symbol, cached alongside the chain snapshots.
func (a *App) GetExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	if a.chains == nil {
		return nil, fmt.Errorf("option chain service not configured")
	}

	var cached cachedExpirations
	if a.cacheGet(ctx, symbol, "expirations", &cached) {
		return cached.Dates, nil
	}

	dates, err := a.chains.GetExpirations(ctx, symbol)
	if err != nil {
		return nil, err
	}
	a.cacheSet(ctx, symbol, "expirations", cachedExpirations{Dates: dates},
		time.Duration(a.cfg.Cache.ChainTTLSeconds)*time.Second)
	return dates, nil
}

// GetChain returns the option-chain snapshot for one expiration, cached
// per (symbol, expiration) pair.
func (a *App) GetChain(ctx context.Context, symbol string, expiration time.Time) ([]models.OptionQuote, error) {
	if a.chains == nil {
		return nil, fmt.Errorf("option chain service not configured")
	}

	dataType := "chain:" + expiration.Format("2006-01-02")

	var cached cachedChain
	if a.cacheGet(ctx, symbol, dataType, &cached) {
		return cached.Contracts, nil
	}

	contracts, err := a.chains.GetChain(ctx, symbol, expiration)
	if err != nil {
		return nil, err
	}
	a.cacheSet(ctx, symbol, dataType, cachedChain{Contracts: contracts},
		time.Duration(a.cfg.Cache.ChainTTLSeconds)*time.Second)
	return contracts, nil
}

// getChain is the internal alias used by chain screening
func (a *App) getChain(ctx context.Context, symbol string, expiration time.Time) ([]models.OptionQuote, error) {
	return a.GetChain(ctx, symbol, expiration)
}

// underlyingSnapshot fetches the price and indicators needed to score a
// chain. The price is required; indicators are best-effort and their
// absence only skips the trend and momentum categories.
func (a *App) underlyingSnapshot(ctx context.Context, symbol string) (float64, *models.TechnicalIndicators, error) {
	quote, err := a.GetQuote(ctx, symbol)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
	}

	price := quote.Last.InexactFloat64()
	if price <= 0 {
		price = quote.Bid.Add(quote.Ask).Div(decimal.NewFromInt(2)).InexactFloat64()
	}
	if price <= 0 {
		return 0, nil, fmt.Errorf("%w: no usable price for %s", models.ErrDataUnavailable, symbol)
	}

	indicators, err := a.GetIndicators(ctx, symbol)
	if err != nil {
		observability.WithSymbol(symbol).Warn("indicators unavailable, trend and momentum skipped", "error", err)
		indicators = nil
	}

	return price, indicators, nil
}

// BuildObservation assembles a scoring observation from a chain contract
// and its underlying's current price and indicators. MoneynessPct is
// signed ITM distance: positive when the contract is in the money on
// either side.
func BuildObservation(q models.OptionQuote, underlyingPrice float64, indicators *models.TechnicalIndicators) models.OptionObservation {
	obs := models.OptionObservation{
		Symbol:          q.Underlying,
		UnderlyingPrice: underlyingPrice,
		Delta:           q.Delta,
		IV:              q.IV,
		Volume:          q.Volume,
		OpenInterest:    q.OpenInterest,
		Strike:          q.Strike,
		OptionType:      q.OptionType,
		Expiration:      q.Expiration,
	}

	if q.Strike > 0 {
		ratio := underlyingPrice / q.Strike
		if q.OptionType == models.OptionTypePut {
			obs.MoneynessPct = (1 - ratio) * 100
		} else {
			obs.MoneynessPct = (ratio - 1) * 100
		}
	}

	if indicators != nil {
		ma20 := indicators.SMA20.InexactFloat64()
		ma50 := indicators.SMA50.InexactFloat64()
		rsi := indicators.RSI
		if ma20 > 0 {
			obs.MA20 = &ma20
		}
		if ma50 > 0 {
			obs.MA50 = &ma50
		}
		if rsi > 0 {
			obs.RSI = &rsi
		}
	}

	return obs
}

// cacheGet loads a cached payload into out. A miss, a decode failure, or
// the absence of a repository all read as a miss.
func (a *App) cacheGet(ctx context.Context, symbol, dataType string, out interface{}) bool {
	if a.repo == nil {
		return false
	}
	data, err := a.repo.GetCachedData(ctx, symbol, dataType)
	if err != nil || data == nil {
		return false
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// cacheSet stores a payload in the repository cache. Failures are logged
// and otherwise ignored; caching is never allowed to fail a screen.
func (a *App) cacheSet(ctx context.Context, symbol, dataType string, v interface{}, ttl time.Duration) {
	if a.repo == nil || ttl <= 0 {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return
	}
	if err := a.repo.SetCachedData(ctx, symbol, dataType, data, ttl); err != nil {
		observability.WithSymbol(symbol).Warn("cache write failed", "data_type", dataType, "error", err)
	}
}
