package services

import (
	"context"
	"time"

	"option-scout/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// MarketDataServiceInterface defines the interface for underlying price and
// history operations
type MarketDataServiceInterface interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetLatestTrade(ctx context.Context, symbol string) (*models.Quote, error)
	GetBars(ctx context.Context, symbol string, start, end time.Time, timeframe marketdata.TimeFrame) ([]models.Bar, error)
	GetDailyBars(ctx context.Context, symbol string, days int) ([]models.Bar, error)
}

// OptionChainServiceInterface defines the interface for option-chain
// snapshot operations
type OptionChainServiceInterface interface {
	GetExpirations(ctx context.Context, symbol string) ([]time.Time, error)
	GetChain(ctx context.Context, symbol string, expiration time.Time) ([]models.OptionQuote, error)
}

// Compile-time interface verification
var _ MarketDataServiceInterface = (*AlpacaService)(nil)
var _ OptionChainServiceInterface = (*TradierService)(nil)
