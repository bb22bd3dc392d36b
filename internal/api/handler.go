package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"option-scout/config"
	"option-scout/internal/app"
	"option-scout/internal/settings"
	"option-scout/models"

	"github.com/go-chi/chi/v5"
)

// Handler handles HTTP API requests
type Handler struct {
	app *app.App
	cfg *config.Config
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg}
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"services": map[string]string{
			"database": "unknown",
		},
	}

	if h.app.Repo() != nil {
		ctx := r.Context()
		if err := h.app.Repo().Health(ctx); err == nil {
			status["services"].(map[string]string)["database"] = "connected"
		} else {
			status["services"].(map[string]string)["database"] = "disconnected"
			status["status"] = "degraded"
		}
	} else {
		status["services"].(map[string]string)["database"] = "not_configured"
	}

	// Add circuit breaker status
	cbStatus := h.app.CircuitBreakers()
	status["circuit_breakers"] = cbStatus

	// Check if any breakers are open (degraded state)
	for _, cb := range cbStatus {
		if cb.State == "open" {
			status["status"] = "degraded"
			break
		}
	}

	h.jsonResponse(w, status)
}

// HandleScreenCSV scores every row of an uploaded broker export against
// one set of trade parameters. The file arrives as the multipart field
// "file"; premium and purchase_date ride alongside as form values.
func (h *Handler) HandleScreenCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Screen.MaxUploadBytes)

	if err := r.ParseMultipartForm(h.cfg.Screen.MaxUploadBytes); err != nil {
		h.jsonError(w, "upload too large or malformed", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.jsonError(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	trade, err := h.parseTradeForm(r)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.app.ScreenCSV(r.Context(), file, trade)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.jsonResponse(w, result)
}

// ScreenChainRequest is the body for a live chain screen
type ScreenChainRequest struct {
	Symbol       string  `json:"symbol"`
	Expiration   string  `json:"expiration,omitempty"` // YYYY-MM-DD, empty picks one
	Premium      float64 `json:"premium"`
	PurchaseDate string  `json:"purchase_date,omitempty"` // YYYY-MM-DD, empty means today
}

// HandleScreenChain fetches a live option chain and scores every contract
func (h *Handler) HandleScreenChain(w http.ResponseWriter, r *http.Request) {
	if !h.app.HasChains() {
		h.jsonError(w, "option chain service not configured", http.StatusServiceUnavailable)
		return
	}

	var req ScreenChainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid JSON request", http.StatusBadRequest)
		return
	}

	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if err := h.ValidateSymbol(req.Symbol); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var expiration time.Time
	if req.Expiration != "" {
		parsed, err := parseDate(req.Expiration)
		if err != nil {
			h.jsonError(w, "invalid expiration date", http.StatusBadRequest)
			return
		}
		expiration = parsed
	}

	trade, err := buildTrade(req.Premium, req.PurchaseDate)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.app.ScreenChain(r.Context(), req.Symbol, expiration, trade)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	h.jsonResponse(w, result)
}

// EvaluateRequest is the body for a single ad-hoc evaluation
type EvaluateRequest struct {
	Observation models.OptionObservation `json:"observation"`
	Trade       models.TradeParameters   `json:"trade"`
}

// HandleEvaluate scores one observation without touching market data
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid JSON request", http.StatusBadRequest)
		return
	}

	if req.Trade.PurchaseDate.IsZero() {
		req.Trade.PurchaseDate = models.CalendarDate(time.Now())
	}

	verdict, err := h.app.EvaluateOne(r.Context(), req.Observation, req.Trade)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.jsonResponse(w, verdict)
}

// LadderRequest is the body for a premium sensitivity ladder
type LadderRequest struct {
	Observation models.OptionObservation `json:"observation"`
	Trade       models.TradeParameters   `json:"trade"`
	Premiums    []float64                `json:"premiums,omitempty"`
}

// HandleLadder re-scores one observation across a range of premiums
func (h *Handler) HandleLadder(w http.ResponseWriter, r *http.Request) {
	var req LadderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid JSON request", http.StatusBadRequest)
		return
	}

	if req.Trade.PurchaseDate.IsZero() {
		req.Trade.PurchaseDate = models.CalendarDate(time.Now())
	}

	rungs, err := h.app.Ladder(r.Context(), req.Observation, req.Trade, req.Premiums)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.jsonResponse(w, rungs)
}

// HandleGetExpirations returns the listed expirations for a symbol
func (h *Handler) HandleGetExpirations(w http.ResponseWriter, r *http.Request) {
	if !h.app.HasChains() {
		h.jsonError(w, "option chain service not configured", http.StatusServiceUnavailable)
		return
	}

	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if err := h.ValidateSymbol(symbol); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	expirations, err := h.app.GetExpirations(r.Context(), symbol)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	dates := make([]string, len(expirations))
	for i, exp := range expirations {
		dates[i] = exp.Format("2006-01-02")
	}
	h.jsonResponse(w, map[string]interface{}{"symbol": symbol, "expirations": dates})
}

// HandleGetChain returns a raw option-chain snapshot for one expiration
func (h *Handler) HandleGetChain(w http.ResponseWriter, r *http.Request) {
	if !h.app.HasChains() {
		h.jsonError(w, "option chain service not configured", http.StatusServiceUnavailable)
		return
	}

	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if err := h.ValidateSymbol(symbol); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	expStr := r.URL.Query().Get("expiration")
	if expStr == "" {
		h.jsonError(w, "expiration query parameter is required", http.StatusBadRequest)
		return
	}
	expiration, err := parseDate(expStr)
	if err != nil {
		h.jsonError(w, "invalid expiration date", http.StatusBadRequest)
		return
	}

	contracts, err := h.app.GetChain(r.Context(), symbol, expiration)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	h.jsonResponse(w, map[string]interface{}{
		"symbol":     symbol,
		"expiration": expiration.Format("2006-01-02"),
		"contracts":  contracts,
	})
}

// HandleGetLatestRun returns the most recent screening run
func (h *Handler) HandleGetLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.app.GetLatestScreenRun(r.Context())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if run == nil {
		h.jsonResponse(w, map[string]interface{}{"run": nil})
		return
	}

	h.jsonResponse(w, run)
}

// HandleGetRuns returns screening run history
func (h *Handler) HandleGetRuns(w http.ResponseWriter, r *http.Request) {
	limit := h.ParseLimitParam(r, 10)

	runs, err := h.app.GetScreenRunHistory(r.Context(), limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, runs)
}

// HandleGetRun returns a specific screening run by ID
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.jsonError(w, "missing run ID", http.StatusBadRequest)
		return
	}

	run, err := h.app.GetScreenRun(r.Context(), id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if run == nil {
		h.jsonError(w, "screen run not found", http.StatusNotFound)
		return
	}

	h.jsonResponse(w, run)
}

// HandleGetSettings returns masked API key settings
func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	settingsStore := h.app.Settings()
	if settingsStore == nil {
		h.jsonError(w, "settings not available", http.StatusServiceUnavailable)
		return
	}

	h.jsonResponse(w, settingsStore.GetMaskedSettings())
}

// HandleUpdateAPIKey updates a single API key configuration
func (h *Handler) HandleUpdateAPIKey(w http.ResponseWriter, r *http.Request) {
	settingsStore := h.app.Settings()
	if settingsStore == nil {
		h.jsonError(w, "settings not available", http.StatusServiceUnavailable)
		return
	}

	var req settings.APIKeyConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid JSON request", http.StatusBadRequest)
		return
	}

	if req.ServiceName == "" {
		h.jsonError(w, "service name is required", http.StatusBadRequest)
		return
	}

	hasUpdate := req.APIKey != "" || req.APISecret != "" || req.BaseURL != ""
	if !hasUpdate {
		h.jsonResponse(w, map[string]string{"status": "no changes", "service": string(req.ServiceName)})
		return
	}

	// Merge with existing config to preserve fields not being updated
	existingConfig := settingsStore.GetAPIKey(req.ServiceName)
	if existingConfig != nil {
		if req.APIKey == "" {
			req.APIKey = existingConfig.APIKey
		}
		if req.APISecret == "" {
			req.APISecret = existingConfig.APISecret
		}
		if req.BaseURL == "" {
			req.BaseURL = existingConfig.BaseURL
		}
	}

	if err := settingsStore.SetAPIKey(&req); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]string{"status": "saved", "service": string(req.ServiceName)})
}

// HandleTestAPIKey tests if an API key is valid
func (h *Handler) HandleTestAPIKey(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")
	if service == "" {
		h.jsonError(w, "service name is required", http.StatusBadRequest)
		return
	}

	settingsStore := h.app.Settings()
	if settingsStore == nil {
		h.jsonError(w, "settings not available", http.StatusServiceUnavailable)
		return
	}

	serviceName := settings.ServiceName(service)
	config := settingsStore.GetAPIKey(serviceName)
	if config == nil {
		h.jsonError(w, "service not configured", http.StatusNotFound)
		return
	}

	validator := settings.NewValidator()
	result, err := validator.ValidateAPIKey(r.Context(), config)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, result)
}

// HandleDeleteAPIKey removes an API key configuration
func (h *Handler) HandleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")
	if service == "" {
		h.jsonError(w, "service name is required", http.StatusBadRequest)
		return
	}

	settingsStore := h.app.Settings()
	if settingsStore == nil {
		h.jsonError(w, "settings not available", http.StatusServiceUnavailable)
		return
	}

	if err := settingsStore.DeleteAPIKey(settings.ServiceName(service)); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]string{"status": "deleted", "service": service})
}

// HandleResetSettings removes all API key configurations
func (h *Handler) HandleResetSettings(w http.ResponseWriter, r *http.Request) {
	settingsStore := h.app.Settings()
	if settingsStore == nil {
		h.jsonError(w, "settings not available", http.StatusServiceUnavailable)
		return
	}

	if err := settingsStore.ResetAll(); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]string{"status": "reset"})
}

// Helper functions

// ValidateSymbol validates a stock symbol
func (h *Handler) ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	if len(symbol) > 10 {
		return fmt.Errorf("symbol too long (max 10 characters)")
	}

	matched, _ := regexp.MatchString("^[A-Z0-9.-]+$", symbol)
	if !matched {
		return fmt.Errorf("invalid symbol format (alphanumeric, dots, and dashes only)")
	}

	return nil
}

// ParseLimitParam parses the limit query parameter
func (h *Handler) ParseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

// parseTradeForm reads trade parameters from multipart/form values
func (h *Handler) parseTradeForm(r *http.Request) (models.TradeParameters, error) {
	trade := models.TradeParameters{
		PurchaseDate: models.CalendarDate(time.Now()),
	}

	if raw := r.FormValue("premium"); raw != "" {
		premium, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return trade, fmt.Errorf("invalid premium %q", raw)
		}
		trade.Premium = premium
	}

	if raw := r.FormValue("purchase_date"); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			return trade, fmt.Errorf("invalid purchase date %q", raw)
		}
		trade.PurchaseDate = date
	}

	return trade, nil
}

// buildTrade assembles trade parameters from request fields, defaulting the
// purchase date to today
func buildTrade(premium float64, purchaseDate string) (models.TradeParameters, error) {
	trade := models.TradeParameters{
		Premium:      premium,
		PurchaseDate: models.CalendarDate(time.Now()),
	}
	if purchaseDate != "" {
		date, err := parseDate(purchaseDate)
		if err != nil {
			return trade, fmt.Errorf("invalid purchase date %q", purchaseDate)
		}
		trade.PurchaseDate = date
	}
	return trade, nil
}

// parseDate parses a YYYY-MM-DD or RFC3339 date string
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
