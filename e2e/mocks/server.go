// Package mocks provides an HTTP mock of the option-chain provider for
// end-to-end tests.
package mocks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockServer serves configurable chain-provider responses over real HTTP so
// the chain service is exercised through its full client stack.
type MockServer struct {
	mu     sync.RWMutex
	server *httptest.Server

	// Response configurations
	expirations map[string][]string        // key: symbol
	chains      map[string][]ChainContract // key: symbol|expiration

	// Error injection
	failStatus    int
	failRemaining int

	// Request tracking for assertions
	requestLog []RequestLog
}

// RequestLog records incoming requests for test assertions.
type RequestLog struct {
	Method string
	Path   string
	Query  string
}

// NewMockServer creates a mock provider preloaded with the default AAPL
// fixtures.
func NewMockServer() *MockServer {
	m := &MockServer{
		expirations: make(map[string][]string),
		chains:      make(map[string][]ChainContract),
	}
	m.setDefaults()
	m.server = httptest.NewServer(m)
	return m
}

// URL returns the mock server's base URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

func (m *MockServer) setDefaults() {
	dates := DefaultExpirations()
	m.expirations["AAPL"] = dates
	for _, date := range dates {
		m.chains["AAPL|"+date] = DefaultChain(date)
	}
}

// SetExpirations configures the expiration listing for a symbol.
func (m *MockServer) SetExpirations(symbol string, dates []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expirations[symbol] = dates
}

// SetChain configures the chain snapshot for a symbol and expiration.
func (m *MockServer) SetChain(symbol, expiration string, contracts []ChainContract) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chains[symbol+"|"+expiration] = contracts
}

// FailRequests makes the next n requests respond with the given status.
func (m *MockServer) FailRequests(n, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRemaining = n
	m.failStatus = status
}

// Requests returns a copy of the request log.
func (m *MockServer) Requests() []RequestLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RequestLog(nil), m.requestLog...)
}

// ResetRequests clears the request log.
func (m *MockServer) ResetRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestLog = nil
}

// ServeHTTP routes requests to the appropriate mock handler.
func (m *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestLog = append(m.requestLog, RequestLog{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
	})
	failing := m.failRemaining > 0
	status := m.failStatus
	if failing {
		m.failRemaining--
	}
	m.mu.Unlock()

	if failing {
		http.Error(w, "provider unavailable", status)
		return
	}

	switch r.URL.Path {
	case "/markets/options/expirations":
		m.handleExpirations(w, r)
	case "/markets/options/chains":
		m.handleChain(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (m *MockServer) handleExpirations(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	m.mu.RLock()
	dates := m.expirations[symbol]
	m.mu.RUnlock()

	payload := map[string]any{
		"expirations": map[string]any{"date": dates},
	}
	writeJSON(w, payload)
}

func (m *MockServer) handleChain(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	expiration := r.URL.Query().Get("expiration")

	m.mu.RLock()
	contracts := m.chains[symbol+"|"+expiration]
	m.mu.RUnlock()

	payload := map[string]any{
		"options": map[string]any{"option": contracts},
	}
	writeJSON(w, payload)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
