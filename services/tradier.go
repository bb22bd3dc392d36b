package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"option-scout/models"
)

// TradierService handles communication with the Tradier markets API for
// option-chain snapshots. All requests pass through a client-side rate
// limiter; Tradier enforces per-minute quotas on market-data endpoints.
type TradierService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewTradierService creates a new TradierService instance
func NewTradierService(apiKey, baseURL string, requestsPerSec float64, timeout time.Duration) *TradierService {
	return &TradierService{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSec), 1),
	}
}

// tradierExpirationsResponse represents the expirations listing from the
// Tradier API
type tradierExpirationsResponse struct {
	Expirations struct {
		Date []string `json:"date"`
	} `json:"expirations"`
}

// tradierChainResponse represents an option-chain snapshot from the Tradier
// API
type tradierChainResponse struct {
	Options struct {
		Option []tradierOption `json:"option"`
	} `json:"options"`
}

type tradierOption struct {
	Symbol         string  `json:"symbol"`
	Underlying     string  `json:"underlying"`
	Strike         float64 `json:"strike"`
	OptionType     string  `json:"option_type"`
	ExpirationDate string  `json:"expiration_date"`
	Bid            float64 `json:"bid"`
	Ask            float64 `json:"ask"`
	Last           float64 `json:"last"`
	Volume         int64   `json:"volume"`
	OpenInterest   int64   `json:"open_interest"`
	Greeks         *struct {
		Delta float64 `json:"delta"`
		MidIV float64 `json:"mid_iv"` // quoted as a fraction, 1.2 = 120%
	} `json:"greeks"`
}

// GetExpirations returns the available expiration dates for a symbol
func (s *TradierService) GetExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	return WithCircuitBreaker(ctx, BreakerTradier, func() ([]time.Time, error) {
		var expirations []time.Time

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			params := url.Values{}
			params.Set("symbol", symbol)
			params.Set("includeAllRoots", "true")

			var payload tradierExpirationsResponse
			if err := s.get(ctx, "/markets/options/expirations", params, &payload); err != nil {
				return err
			}

			expirations = expirations[:0]
			for _, raw := range payload.Expirations.Date {
				date, err := time.Parse("2006-01-02", raw)
				if err != nil {
					continue
				}
				expirations = append(expirations, date)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		if len(expirations) == 0 {
			return nil, fmt.Errorf("%w: no expirations for %s", models.ErrDataUnavailable, symbol)
		}
		return expirations, nil
	})
}

// GetChain returns the option-chain snapshot for one symbol and expiration,
// with greeks attached where the provider supplies them.
func (s *TradierService) GetChain(ctx context.Context, symbol string, expiration time.Time) ([]models.OptionQuote, error) {
	return WithCircuitBreaker(ctx, BreakerTradier, func() ([]models.OptionQuote, error) {
		var quotes []models.OptionQuote

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			params := url.Values{}
			params.Set("symbol", symbol)
			params.Set("expiration", expiration.Format("2006-01-02"))
			params.Set("greeks", "true")

			var payload tradierChainResponse
			if err := s.get(ctx, "/markets/options/chains", params, &payload); err != nil {
				return err
			}

			quotes = quotes[:0]
			for _, opt := range payload.Options.Option {
				quote, err := convertTradierOption(opt)
				if err != nil {
					// Unknown contract sides slip into Tradier's weekly roots
					// occasionally; skip them rather than failing the chain.
					continue
				}
				quotes = append(quotes, quote)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		if len(quotes) == 0 {
			return nil, fmt.Errorf("%w: empty chain for %s %s",
				models.ErrDataUnavailable, symbol, expiration.Format("2006-01-02"))
		}
		return quotes, nil
	})
}

// get performs one rate-limited, authenticated GET against the Tradier API
func (s *TradierService) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	reqURL := s.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tradier API returned status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// convertTradierOption maps one provider contract onto the domain quote
func convertTradierOption(opt tradierOption) (models.OptionQuote, error) {
	optType := models.OptionType(strings.ToLower(opt.OptionType))
	if err := optType.Validate(); err != nil {
		return models.OptionQuote{}, err
	}

	expiration, err := time.Parse("2006-01-02", opt.ExpirationDate)
	if err != nil {
		return models.OptionQuote{}, fmt.Errorf("bad expiration %q: %w", opt.ExpirationDate, err)
	}

	quote := models.OptionQuote{
		Symbol:       opt.Symbol,
		Underlying:   opt.Underlying,
		Strike:       opt.Strike,
		OptionType:   optType,
		Expiration:   expiration,
		Bid:          decimal.NewFromFloat(opt.Bid),
		Ask:          decimal.NewFromFloat(opt.Ask),
		Last:         decimal.NewFromFloat(opt.Last),
		Volume:       opt.Volume,
		OpenInterest: opt.OpenInterest,
	}

	if opt.Greeks != nil {
		delta := opt.Greeks.Delta
		if delta < 0 {
			delta = -delta
		}
		quote.Delta = &delta

		ivPct := opt.Greeks.MidIV * 100
		quote.IV = &ivPct
	}

	return quote, nil
}
