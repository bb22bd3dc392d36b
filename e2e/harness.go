// Package e2e provides end-to-end testing infrastructure for option-scout.
package e2e

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"option-scout/config"
	"option-scout/e2e/mocks"
	"option-scout/internal/api"
	"option-scout/internal/app"
	"option-scout/models"
	"option-scout/observability"
	"option-scout/repository"
	"option-scout/services"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// TestHarness wires a full application against a mock chain provider: real
// HTTP client stack for the chain service, an in-process stub for underlying
// market data, and an optional test database.
type TestHarness struct {
	t          *testing.T
	ctx        context.Context
	cancel     context.CancelFunc
	mockServer *mocks.MockServer
	marketData *StubMarketData
	repo       *repository.Repository
	app        *app.App
	router     http.Handler
	config     *config.Config
}

// NewTestHarness creates a new test harness with all dependencies initialized.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)

	return &TestHarness{
		t:      t,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Setup initializes all test dependencies. The database is optional: without
// E2E_DATABASE_URL the application runs with run history and caching
// disabled, which is a supported configuration.
func (h *TestHarness) Setup() error {
	observability.InitLogger(false)
	observability.GetMetrics()

	h.mockServer = mocks.NewMockServer()
	h.marketData = NewStubMarketData()
	h.config = config.NewTestConfig()

	var repo app.RepositoryInterface
	if dbURL := os.Getenv("E2E_DATABASE_URL"); dbURL != "" {
		r, err := repository.NewRepository(h.ctx, dbURL)
		if err != nil {
			return fmt.Errorf("failed to connect to test database: %w", err)
		}
		h.repo = r
		repo = r

		if err := h.runMigrations(dbURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	chains := services.NewTradierService("test-token", h.mockServer.URL(),
		100, 5*time.Second)

	h.app = app.New(h.config, repo, h.marketData, chains)
	h.app.Startup(h.ctx)

	handler := api.NewHandler(h.app, h.config)
	h.router = api.NewRouter(handler, h.config)

	return nil
}

// Teardown cleans up all test resources. Shutdown closes the repository.
func (h *TestHarness) Teardown() {
	if h.repo != nil {
		h.cleanupTestData()
	}

	if h.app != nil {
		h.app.Shutdown(context.Background())
	} else if h.repo != nil {
		h.repo.Close()
	}

	if h.mockServer != nil {
		h.mockServer.Close()
	}

	if h.cancel != nil {
		h.cancel()
	}
}

// Context returns the test context.
func (h *TestHarness) Context() context.Context {
	return h.ctx
}

// MockServer returns the mock chain provider for configuring responses.
func (h *TestHarness) MockServer() *mocks.MockServer {
	return h.mockServer
}

// MarketData returns the stub market-data service.
func (h *TestHarness) MarketData() *StubMarketData {
	return h.marketData
}

// Repository returns the test database repository, nil when no database is
// configured.
func (h *TestHarness) Repository() *repository.Repository {
	return h.repo
}

// App returns the application instance.
func (h *TestHarness) App() *app.App {
	return h.app
}

// Router returns the HTTP router for making requests.
func (h *TestHarness) Router() http.Handler {
	return h.router
}

// Config returns the test configuration.
func (h *TestHarness) Config() *config.Config {
	return h.config
}

// DoRequest performs an HTTP request with an optional JSON body and returns
// the response.
func (h *TestHarness) DoRequest(method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// DoCSVUpload performs a multipart CSV upload with the given form fields.
func (h *TestHarness) DoCSVUpload(path, csv string, fields map[string]string) *httptest.ResponseRecorder {
	h.t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "contracts.csv")
	if err != nil {
		h.t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(csv)); err != nil {
		h.t.Fatalf("failed to write form file: %v", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			h.t.Fatalf("failed to write form field %s: %v", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		h.t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// ResetDatabase clears all test data from the database.
func (h *TestHarness) ResetDatabase() error {
	return h.cleanupTestData()
}

func (h *TestHarness) runMigrations(dbURL string) error {
	migrationsDir := findMigrationsDir()
	if migrationsDir == "" {
		return fmt.Errorf("migrations directory not found")
	}

	// Use migrate CLI if available, otherwise skip
	_, err := exec.LookPath("migrate")
	if err != nil {
		h.t.Log("migrate CLI not found, skipping migrations (assuming schema exists)")
		return nil
	}

	cmd := exec.CommandContext(h.ctx, "migrate", "-path", migrationsDir, "-database", dbURL, "up")
	output, err := cmd.CombinedOutput()
	if err != nil {
		// Ignore "no change" errors
		if string(output) == "" || strings.Contains(string(output), "no change") {
			return nil
		}
		return fmt.Errorf("migration failed: %s: %w", string(output), err)
	}

	return nil
}

func (h *TestHarness) cleanupTestData() error {
	queries := []string{
		"DELETE FROM screen_runs",
		"DELETE FROM market_data_cache",
		"DELETE FROM api_keys",
	}

	for _, q := range queries {
		if _, err := h.repo.Pool().Exec(h.ctx, q); err != nil {
			h.t.Logf("cleanup query failed (may be ok if table doesn't exist): %s: %v", q, err)
		}
	}

	return nil
}

func findMigrationsDir() string {
	candidates := []string{
		"migrations",
		"../migrations",
		"../../migrations",
	}

	for _, c := range candidates {
		abs, err := filepath.Abs(c)
		if err != nil {
			continue
		}
		if _, err := os.Stat(abs); err == nil {
			return abs
		}
	}

	return ""
}

// SkipIfNoDatabase skips the test unless E2E_DATABASE_URL points at a
// reachable database.
func SkipIfNoDatabase(t *testing.T) {
	t.Helper()

	dbURL := os.Getenv("E2E_DATABASE_URL")
	if dbURL == "" {
		t.Skip("E2E_DATABASE_URL not set, skipping database-backed test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	repo, err := repository.NewRepository(ctx, dbURL)
	if err != nil {
		t.Skipf("E2E database not available: %v", err)
	}
	repo.Close()
}

// StubMarketData is an in-process market-data service with fixed quote and
// bar responses. The chain provider is mocked over HTTP; underlying data is
// stubbed here because its client does not take a base URL.
type StubMarketData struct {
	mu       sync.Mutex
	quote    models.Quote
	bars     []models.Bar
	quoteErr error
	barsErr  error
}

// NewStubMarketData returns a stub quoting 230.50 with 60 daily bars in a
// gentle uptrend, enough history for indicator computation.
func NewStubMarketData() *StubMarketData {
	s := &StubMarketData{
		quote: models.Quote{
			Bid:       decimal.NewFromFloat(230.40),
			Ask:       decimal.NewFromFloat(230.60),
			Last:      decimal.NewFromFloat(230.50),
			Volume:    1_200_000,
			Timestamp: time.Now(),
		},
	}

	for i := 0; i < 60; i++ {
		price := 200.0 + 0.5*float64(i)
		s.bars = append(s.bars, models.Bar{
			Timestamp: time.Now().AddDate(0, 0, i-60),
			Open:      decimal.NewFromFloat(price - 0.5),
			High:      decimal.NewFromFloat(price + 1),
			Low:       decimal.NewFromFloat(price - 1),
			Close:     decimal.NewFromFloat(price),
			Volume:    1_000_000,
		})
	}

	return s
}

// SetQuote overrides the stub quote.
func (s *StubMarketData) SetQuote(quote models.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quote = quote
}

// SetQuoteError makes quote lookups fail.
func (s *StubMarketData) SetQuoteError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quoteErr = err
}

// SetBarsError makes bar lookups fail.
func (s *StubMarketData) SetBarsError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.barsErr = err
}

func (s *StubMarketData) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quoteErr != nil {
		return nil, s.quoteErr
	}
	quote := s.quote
	quote.Symbol = symbol
	return &quote, nil
}

func (s *StubMarketData) GetLatestTrade(ctx context.Context, symbol string) (*models.Quote, error) {
	return s.GetQuote(ctx, symbol)
}

func (s *StubMarketData) GetBars(ctx context.Context, symbol string, start, end time.Time, timeframe marketdata.TimeFrame) ([]models.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.barsErr != nil {
		return nil, s.barsErr
	}
	bars := make([]models.Bar, len(s.bars))
	copy(bars, s.bars)
	for i := range bars {
		bars[i].Symbol = symbol
	}
	return bars, nil
}

func (s *StubMarketData) GetDailyBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	return s.GetBars(ctx, symbol, time.Time{}, time.Time{}, marketdata.OneDay)
}

// Compile-time interface verification
var _ services.MarketDataServiceInterface = (*StubMarketData)(nil)
