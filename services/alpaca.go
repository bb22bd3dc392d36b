package services

import (
	"context"
	"fmt"
	"time"

	"option-scout/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// AlpacaService handles communication with Alpaca for underlying market data.
// Only the data API is used; this application never places orders.
type AlpacaService struct {
	dataClient *marketdata.Client
}

// NewAlpacaService creates a new AlpacaService instance
func NewAlpacaService(apiKey, apiSecret, baseURL string) *AlpacaService {
	dataClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})

	return &AlpacaService{
		dataClient: dataClient,
	}
}

// GetQuote returns the latest quote for a symbol
func (s *AlpacaService) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return WithCircuitBreaker(ctx, BreakerAlpaca, func() (*models.Quote, error) {
		quote, err := s.dataClient.GetLatestQuote(symbol, marketdata.GetLatestQuoteRequest{})
		if err != nil {
			return nil, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
		}

		return &models.Quote{
			Symbol:    symbol,
			Bid:       decimal.NewFromFloat(quote.BidPrice),
			Ask:       decimal.NewFromFloat(quote.AskPrice),
			BidSize:   int64(quote.BidSize),
			AskSize:   int64(quote.AskSize),
			Timestamp: quote.Timestamp,
		}, nil
	})
}

// GetLatestTrade returns the latest trade for a symbol
func (s *AlpacaService) GetLatestTrade(ctx context.Context, symbol string) (*models.Quote, error) {
	return WithCircuitBreaker(ctx, BreakerAlpaca, func() (*models.Quote, error) {
		trade, err := s.dataClient.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
		if err != nil {
			return nil, fmt.Errorf("failed to get trade for %s: %w", symbol, err)
		}

		return &models.Quote{
			Symbol:    symbol,
			Last:      decimal.NewFromFloat(trade.Price),
			Volume:    int64(trade.Size),
			Timestamp: trade.Timestamp,
		}, nil
	})
}

// GetBars returns historical bars for a symbol
func (s *AlpacaService) GetBars(ctx context.Context, symbol string, start, end time.Time, timeframe marketdata.TimeFrame) ([]models.Bar, error) {
	return WithCircuitBreaker(ctx, BreakerAlpaca, func() ([]models.Bar, error) {
		var bars []marketdata.Bar

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			var err error
			bars, err = s.dataClient.GetBars(symbol, marketdata.GetBarsRequest{
				TimeFrame: timeframe,
				Start:     start,
				End:       end,
			})
			if err != nil {
				return fmt.Errorf("failed to get bars for %s: %w", symbol, err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		result := make([]models.Bar, 0, len(bars))
		for _, bar := range bars {
			result = append(result, models.Bar{
				Symbol:    symbol,
				Timestamp: bar.Timestamp,
				Open:      decimal.NewFromFloat(bar.Open),
				High:      decimal.NewFromFloat(bar.High),
				Low:       decimal.NewFromFloat(bar.Low),
				Close:     decimal.NewFromFloat(bar.Close),
				Volume:    int64(bar.Volume),
				VWAP:      decimal.NewFromFloat(bar.VWAP),
			})
		}

		return result, nil
	})
}

// GetDailyBars returns daily bars for the last N days
func (s *AlpacaService) GetDailyBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	return s.GetBars(ctx, symbol, start, end, marketdata.OneDay)
}
