package services

import (
	"fmt"

	"option-scout/models"

	"github.com/shopspring/decimal"
)

const (
	smaShortPeriod = 20
	smaLongPeriod  = 50
	rsiPeriod      = 14
)

// ComputeIndicators derives the technical indicators the trend and momentum
// rules consume from a daily close series. Bars must be in chronological
// order; the most recent close is last.
func ComputeIndicators(bars []models.Bar) (*models.TechnicalIndicators, error) {
	if len(bars) < smaLongPeriod {
		return nil, fmt.Errorf("%w: need %d daily bars for indicators, have %d",
			models.ErrDataUnavailable, smaLongPeriod, len(bars))
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close.InexactFloat64()
	}

	return &models.TechnicalIndicators{
		SMA20: decimal.NewFromFloat(simpleMovingAverage(closes, smaShortPeriod)),
		SMA50: decimal.NewFromFloat(simpleMovingAverage(closes, smaLongPeriod)),
		RSI:   relativeStrengthIndex(closes, rsiPeriod),
	}, nil
}

// simpleMovingAverage computes the mean of the trailing period closes
func simpleMovingAverage(prices []float64, period int) float64 {
	if len(prices) < period {
		return 0
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period)
}

// relativeStrengthIndex computes a simple-average RSI over the trailing
// period. Too little history yields the neutral midpoint rather than an
// error; the momentum rule treats 50 as "no signal".
func relativeStrengthIndex(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50.0
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := prices[len(prices)-i] - prices[len(prices)-i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
