package repository

import (
	"context"
	"time"

	"option-scout/internal/settings"
	"option-scout/models"

	"github.com/google/uuid"
)

// RepositoryInterface defines all repository operations
type RepositoryInterface interface {
	// Health and lifecycle
	Close()
	Health(ctx context.Context) error

	// Screen runs
	CreateScreenRun(ctx context.Context, run *models.ScreenRun) error
	UpdateScreenRun(ctx context.Context, run *models.ScreenRun) error
	GetScreenRun(ctx context.Context, id uuid.UUID) (*models.ScreenRun, error)
	GetLatestScreenRun(ctx context.Context) (*models.ScreenRun, error)
	GetScreenRunHistory(ctx context.Context, limit int) ([]models.ScreenRun, error)
	PruneScreenRuns(ctx context.Context, keep int) (int64, error)

	// API keys
	GetAPIKey(ctx context.Context, serviceName string) (*settings.APIKeyModel, error)
	GetAllAPIKeys(ctx context.Context) ([]settings.APIKeyModel, error)
	UpsertAPIKey(ctx context.Context, apiKey *settings.APIKeyModel) error
	DeleteAPIKey(ctx context.Context, serviceName string) error

	// Cache
	GetCachedData(ctx context.Context, symbol, dataType string) (map[string]interface{}, error)
	SetCachedData(ctx context.Context, symbol, dataType string, data map[string]interface{}, ttl time.Duration) error
	InvalidateCache(ctx context.Context, symbol, dataType string) error
	InvalidateAllCacheForSymbol(ctx context.Context, symbol string) error
	CleanExpiredCache(ctx context.Context) (int64, error)
}

// Compile-time interface verification
var _ RepositoryInterface = (*Repository)(nil)
