package settings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ValidationResult is the outcome of probing a provider with a credential.
type ValidationResult struct {
	Service  ServiceName   `json:"service"`
	Valid    bool          `json:"valid"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration_ms"`
}

// Validator checks provider credentials by hitting a cheap authenticated
// endpoint before they are saved.
type Validator struct {
	client *http.Client
}

// NewValidator creates a validator with a ten second probe timeout.
func NewValidator() *Validator {
	return &Validator{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// ValidateAPIKey probes the service named in config. A failed probe is a
// valid result with Valid=false; the error return covers misuse only.
func (v *Validator) ValidateAPIKey(ctx context.Context, config *APIKeyConfig) (*ValidationResult, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	start := time.Now()
	result := &ValidationResult{Service: config.ServiceName}

	var err error
	switch config.ServiceName {
	case ServiceAlpaca:
		err = v.probeAlpaca(ctx, config)
	case ServiceTradier:
		err = v.probeTradier(ctx, config)
	default:
		err = fmt.Errorf("unknown service: %s", config.ServiceName)
	}

	result.Duration = time.Since(start)
	if err != nil {
		result.Message = err.Error()
	} else {
		result.Valid = true
		result.Message = "Connection successful"
	}
	return result, nil
}

func (v *Validator) probeAlpaca(ctx context.Context, config *APIKeyConfig) error {
	if config.APIKey == "" {
		return errors.New("API key is required")
	}
	if config.APISecret == "" {
		return errors.New("API secret is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://paper-api.alpaca.markets"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v2/account", nil)
	if err != nil {
		return err
	}
	req.Header.Set("APCA-API-KEY-ID", config.APIKey)
	req.Header.Set("APCA-API-SECRET-KEY", config.APISecret)

	return v.doProbe(req, "invalid API credentials")
}

func (v *Validator) probeTradier(ctx context.Context, config *APIKeyConfig) error {
	if config.APIKey == "" {
		return errors.New("API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.tradier.com/v1"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/markets/clock", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+config.APIKey)
	req.Header.Set("Accept", "application/json")

	return v.doProbe(req, "invalid API key")
}

// doProbe executes one probe request, translating auth rejections into the
// provider-specific message.
func (v *Validator) doProbe(req *http.Request, authFailure string) error {
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.New(authFailure)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}
