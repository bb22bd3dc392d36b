// Package app wires the scoring engine to market data, persistence, and
// settings. Orchestration only; scoring semantics live in the scoring
// package and provider specifics in services.
package app

import (
	"context"
	"fmt"
	"time"

	"option-scout/config"
	"option-scout/internal/settings"
	"option-scout/models"
	"option-scout/observability"
	"option-scout/services"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// maintenanceTimeout bounds one background maintenance pass
const maintenanceTimeout = 30 * time.Second

// RepositoryInterface defines the repository operations needed by App
type RepositoryInterface interface {
	Close()
	Health(ctx context.Context) error
	CreateScreenRun(ctx context.Context, run *models.ScreenRun) error
	UpdateScreenRun(ctx context.Context, run *models.ScreenRun) error
	GetScreenRun(ctx context.Context, id uuid.UUID) (*models.ScreenRun, error)
	GetLatestScreenRun(ctx context.Context) (*models.ScreenRun, error)
	GetScreenRunHistory(ctx context.Context, limit int) ([]models.ScreenRun, error)
	PruneScreenRuns(ctx context.Context, keep int) (int64, error)
	GetCachedData(ctx context.Context, symbol, dataType string) (map[string]interface{}, error)
	SetCachedData(ctx context.Context, symbol, dataType string, data map[string]interface{}, ttl time.Duration) error
	CleanExpiredCache(ctx context.Context) (int64, error)
}

// App struct holds application dependencies using interfaces for testability
type App struct {
	ctx        context.Context
	cfg        *config.Config
	repo       RepositoryInterface
	marketData services.MarketDataServiceInterface
	chains     services.OptionChainServiceInterface
	settings   *settings.Store
	cron       *cron.Cron
	screenSem  chan struct{}
}

// New creates a new App application struct. repo, marketData, and chains
// may each be nil; the corresponding operations report unavailability.
func New(cfg *config.Config, repo RepositoryInterface, marketData services.MarketDataServiceInterface, chains services.OptionChainServiceInterface) *App {
	return &App{
		cfg:        cfg,
		repo:       repo,
		marketData: marketData,
		chains:     chains,
		screenSem:  make(chan struct{}, cfg.Screen.MaxConcurrent),
	}
}

// Startup is called when the app starts
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	if a.repo != nil {
		a.startMaintenance()
	}
}

// Shutdown is called when the app is closing
func (a *App) Shutdown(ctx context.Context) {
	if a.cron != nil {
		stopCtx := a.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
	}
	if a.repo != nil {
		a.repo.Close()
	}
}

// Repo returns the repository interface for API handlers
func (a *App) Repo() RepositoryInterface {
	return a.repo
}

// SetSettings attaches the credential store
func (a *App) SetSettings(store *settings.Store) {
	a.settings = store
}

// Settings returns the attached credential store, or nil
func (a *App) Settings() *settings.Store {
	return a.settings
}

// HasMarketData reports whether underlying quotes and bars are available
func (a *App) HasMarketData() bool {
	return a.marketData != nil
}

// HasChains reports whether option chain lookups are available
func (a *App) HasChains() bool {
	return a.chains != nil
}

// GetScreenRun returns one screening run by its string ID
func (a *App) GetScreenRun(ctx context.Context, id string) (*models.ScreenRun, error) {
	if a.repo == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	runID, err := ParseUUID(id)
	if err != nil {
		return nil, err
	}

	return a.repo.GetScreenRun(ctx, runID)
}

// GetLatestScreenRun returns the most recent screening run
func (a *App) GetLatestScreenRun(ctx context.Context) (*models.ScreenRun, error) {
	if a.repo == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return a.repo.GetLatestScreenRun(ctx)
}

// GetScreenRunHistory returns recent screening runs
func (a *App) GetScreenRunHistory(ctx context.Context, limit int) ([]models.ScreenRun, error) {
	if a.repo == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 || limit > a.cfg.Screen.RunRetentionCount {
		limit = a.cfg.Screen.RunRetentionCount
	}
	return a.repo.GetScreenRunHistory(ctx, limit)
}

// CircuitBreakers reports the state of all external-service breakers
func (a *App) CircuitBreakers() map[string]services.CircuitBreakerStatus {
	return services.GetGlobalRegistry().Status()
}

// ParseUUID parses a string UUID into a [16]byte
func ParseUUID(id string) ([16]byte, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return [16]byte{}, fmt.Errorf("invalid UUID: %w", err)
	}
	return parsed, nil
}

// ScreenSemCapacity returns the capacity of the screening semaphore (for testing)
func (a *App) ScreenSemCapacity() int {
	return cap(a.screenSem)
}

// startMaintenance schedules periodic cache and run-history pruning
func (a *App) startMaintenance() {
	schedule := a.cfg.Cache.PruneSchedule
	if schedule == "" {
		schedule = "@hourly"
	}

	a.cron = cron.New()
	if _, err := a.cron.AddFunc(schedule, a.runMaintenance); err != nil {
		observability.Error("failed to schedule maintenance", "schedule", schedule, "error", err)
		a.cron = nil
		return
	}
	a.cron.Start()
	observability.Info("maintenance scheduled", "schedule", schedule)
}

// runMaintenance is one maintenance pass: expired cache rows and screen
// runs beyond the retention count are removed
func (a *App) runMaintenance() {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
	defer cancel()

	removed, err := a.repo.CleanExpiredCache(ctx)
	if err != nil {
		observability.Error("cache cleanup failed", "error", err)
	} else if removed > 0 {
		observability.Info("expired cache entries removed", "count", removed)
	}

	pruned, err := a.repo.PruneScreenRuns(ctx, a.cfg.Screen.RunRetentionCount)
	if err != nil {
		observability.Error("screen run pruning failed", "error", err)
	} else if pruned > 0 {
		observability.Info("old screen runs pruned", "count", pruned)
	}
}
