package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"option-scout/models"
)

func TestNewTradierService(t *testing.T) {
	service := NewTradierService("test-key", "https://api.tradier.com/v1/", 2, 30*time.Second)
	if service == nil {
		t.Fatal("NewTradierService should not return nil")
	}
	if service.baseURL != "https://api.tradier.com/v1" {
		t.Errorf("baseURL should be trimmed, got %s", service.baseURL)
	}
	if service.limiter == nil {
		t.Error("limiter should not be nil")
	}
}

func TestGetChain_WithMockServer(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets/options/chains" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}

		query := r.URL.Query()
		if query.Get("symbol") != "AAPL" {
			t.Errorf("symbol = %s, want AAPL", query.Get("symbol"))
		}
		if query.Get("expiration") != "2026-09-18" {
			t.Errorf("expiration = %s, want 2026-09-18", query.Get("expiration"))
		}
		if query.Get("greeks") != "true" {
			t.Error("greeks should be requested")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"options": {
				"option": [
					{
						"symbol": "AAPL260918C00095000",
						"underlying": "AAPL",
						"strike": 95,
						"option_type": "call",
						"expiration_date": "2026-09-18",
						"bid": 5.90,
						"ask": 6.10,
						"last": 6.00,
						"volume": 600,
						"open_interest": 600,
						"greeks": {"delta": 0.75, "mid_iv": 0.90}
					},
					{
						"symbol": "AAPL260918P00095000",
						"underlying": "AAPL",
						"strike": 95,
						"option_type": "put",
						"expiration_date": "2026-09-18",
						"bid": 0.90,
						"ask": 1.10,
						"last": 1.00,
						"volume": 200,
						"open_interest": 450,
						"greeks": {"delta": -0.25, "mid_iv": 0.85}
					}
				]
			}
		}`))
	}))
	defer server.Close()

	service := NewTradierService("test-key", server.URL, 100, 5*time.Second)

	quotes, err := service.GetChain(context.Background(), "AAPL", time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(quotes))
	}

	call := quotes[0]
	if call.OptionType != models.OptionTypeCall || call.Strike != 95 {
		t.Errorf("unexpected call contract: %+v", call)
	}
	if call.Delta == nil || *call.Delta != 0.75 {
		t.Errorf("call delta = %v, want 0.75", call.Delta)
	}
	if call.IV == nil || *call.IV != 90 {
		t.Errorf("call IV = %v percent, want 90", call.IV)
	}

	put := quotes[1]
	if put.Delta == nil || *put.Delta != 0.25 {
		t.Errorf("put delta should be the magnitude, got %v", put.Delta)
	}
}

func TestGetChain_SkipsUnknownContractSides(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"options": {
				"option": [
					{"symbol": "X1", "underlying": "X", "strike": 10, "option_type": "call", "expiration_date": "2026-09-18", "volume": 1, "open_interest": 1},
					{"symbol": "X2", "underlying": "X", "strike": 10, "option_type": "warrant", "expiration_date": "2026-09-18", "volume": 1, "open_interest": 1}
				]
			}
		}`))
	}))
	defer server.Close()

	service := NewTradierService("test-key", server.URL, 100, 5*time.Second)

	quotes, err := service.GetChain(context.Background(), "X", time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quotes) != 1 {
		t.Errorf("expected the warrant row to be skipped, got %d quotes", len(quotes))
	}
}

func TestGetChain_EmptyChain(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"options": {"option": []}}`))
	}))
	defer server.Close()

	service := NewTradierService("test-key", server.URL, 100, 5*time.Second)

	_, err := service.GetChain(context.Background(), "ZZZZ", time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, models.ErrDataUnavailable) {
		t.Errorf("error = %v, want ErrDataUnavailable", err)
	}
}

func TestGetExpirations_WithMockServer(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets/options/expirations" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"expirations": {"date": ["2026-09-18", "2026-10-16", "not-a-date"]}}`))
	}))
	defer server.Close()

	service := NewTradierService("test-key", server.URL, 100, 5*time.Second)

	expirations, err := service.GetExpirations(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(expirations) != 2 {
		t.Fatalf("expected 2 parseable expirations, got %d", len(expirations))
	}
	if !expirations[0].Equal(time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first expiration = %v", expirations[0])
	}
}

func TestGetExpirations_NoneAvailable(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"expirations": {"date": []}}`))
	}))
	defer server.Close()

	service := NewTradierService("test-key", server.URL, 100, 5*time.Second)

	_, err := service.GetExpirations(context.Background(), "ZZZZ")
	if !errors.Is(err, models.ErrDataUnavailable) {
		t.Errorf("error = %v, want ErrDataUnavailable", err)
	}
}

func TestGetChain_NonOKStatus(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	service := NewTradierService("bad-key", server.URL, 100, 5*time.Second)

	_, err := service.GetChain(context.Background(), "AAPL", time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Error("expected error for non-OK status")
	}
}

func TestGetChain_ContextCancellation(t *testing.T) {
	SetGlobalRegistry(NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig))

	service := NewTradierService("test-key", "http://127.0.0.1:0", 100, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.GetChain(ctx, "AAPL", time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Error("expected error for cancelled context")
	}
}
