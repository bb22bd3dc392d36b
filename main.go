package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"option-scout/config"
	"option-scout/internal/api"
	"option-scout/internal/app"
	"option-scout/internal/settings"
	"option-scout/observability"
	"option-scout/repository"
	"option-scout/services"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables; a missing .env file is fine
	_ = godotenv.Load()

	production := os.Getenv("ENV") == "production"
	observability.InitLogger(production)
	observability.InitMetrics()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}

	ctx := context.Background()

	// Database is optional: without it the scorer still works, but run
	// history and market-data caching are disabled.
	var repo app.RepositoryInterface
	if cfg.Database.URL != "" {
		r, err := repository.NewRepository(ctx, cfg.Database.URL)
		if err != nil {
			observability.Warn("database unavailable, run history and caching disabled", "error", err)
		} else {
			repo = r
			observability.Info("connected to database")
		}
	} else {
		observability.Warn("DATABASE_URL not set, run history and caching disabled")
	}

	// Settings store holds provider credentials, encrypted at rest. Env
	// credentials take precedence; the store covers keys set via the API.
	settingsStore, err := settings.NewStore("", cfg.Settings.EncryptionKey, settingsRepo(repo))
	if err != nil {
		observability.Fatal("failed to initialize settings store", "error", err)
	}

	marketData := buildMarketData(cfg, settingsStore)
	chains := buildChains(cfg, settingsStore)

	application := app.New(cfg, repo, marketData, chains)
	application.Startup(ctx)
	application.SetSettings(settingsStore)

	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		observability.Info("starting server", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Error("server forced to shutdown", "error", err)
	}

	application.Shutdown(shutdownCtx)
	observability.Info("server stopped")
}

// settingsRepo narrows the app repository to the settings persistence
// interface, passing nil through when no database is configured
func settingsRepo(repo app.RepositoryInterface) settings.RepositoryInterface {
	if r, ok := repo.(settings.RepositoryInterface); ok {
		return r
	}
	return nil
}

// buildMarketData creates the underlying-quote service from environment
// credentials, falling back to the settings store
func buildMarketData(cfg *config.Config, store *settings.Store) services.MarketDataServiceInterface {
	key, secret, baseURL := cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL
	if key == "" {
		if stored := store.GetAPIKey(settings.ServiceAlpaca); stored != nil {
			key, secret = stored.APIKey, stored.APISecret
			if stored.BaseURL != "" {
				baseURL = stored.BaseURL
			}
		}
	}
	if key == "" || secret == "" {
		observability.Warn("Alpaca credentials not set, chain screening will lack underlying data")
		return nil
	}
	return services.NewAlpacaService(key, secret, baseURL)
}

// buildChains creates the option-chain service from environment
// credentials, falling back to the settings store
func buildChains(cfg *config.Config, store *settings.Store) services.OptionChainServiceInterface {
	key, baseURL := cfg.Tradier.APIKey, cfg.Tradier.BaseURL
	if key == "" {
		if stored := store.GetAPIKey(settings.ServiceTradier); stored != nil {
			key = stored.APIKey
			if stored.BaseURL != "" {
				baseURL = stored.BaseURL
			}
		}
	}
	if key == "" {
		observability.Warn("Tradier credentials not set, chain screening disabled")
		return nil
	}
	return services.NewTradierService(key, baseURL,
		cfg.Tradier.RequestsPerSec, time.Duration(cfg.Tradier.TimeoutSeconds)*time.Second)
}
