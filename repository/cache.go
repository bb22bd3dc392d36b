package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"option-scout/observability"

	"github.com/jackc/pgx/v5"
)

// Cache data types stored in market_data_cache
const (
	CacheTypeQuote       = "quote"
	CacheTypeDailyBars   = "daily_bars"
	CacheTypeChain       = "chain"
	CacheTypeExpirations = "expirations"
)

// GetCachedData retrieves cached data for a symbol and data type.
// Returns (nil, nil) on a cache miss.
func (r *Repository) GetCachedData(ctx context.Context, symbol, dataType string) (map[string]interface{}, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "market_data_cache")

	var data []byte

	// Let the database handle expiry check to avoid timezone issues
	err := r.db.QueryRow(ctx, `
		SELECT data FROM market_data_cache
		WHERE symbol = $1 AND data_type = $2 AND expires_at > NOW()
	`, symbol, dataType).Scan(&data)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("select", "market_data_cache")
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return result, nil
}

// SetCachedData stores data in the cache with a TTL
func (r *Repository) SetCachedData(ctx context.Context, symbol, dataType string, data map[string]interface{}, ttl time.Duration) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("upsert", "market_data_cache")

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO market_data_cache (symbol, data_type, data, expires_at)
		VALUES ($1, $2, $3, NOW() + $4::interval)
		ON CONFLICT (symbol, data_type)
		DO UPDATE SET data = EXCLUDED.data, expires_at = NOW() + $4::interval, created_at = NOW()
	`, symbol, dataType, jsonData, ttl.String())

	if err != nil {
		metrics.RecordDBError("upsert", "market_data_cache")
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// InvalidateCache removes cached data for a symbol and data type
func (r *Repository) InvalidateCache(ctx context.Context, symbol, dataType string) error {
	if err := r.checkDB(); err != nil {
		return err
	}

	_, err := r.db.Exec(ctx, `
		DELETE FROM market_data_cache WHERE symbol = $1 AND data_type = $2
	`, symbol, dataType)

	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	return nil
}

// InvalidateAllCacheForSymbol removes all cached data for a symbol
func (r *Repository) InvalidateAllCacheForSymbol(ctx context.Context, symbol string) error {
	if err := r.checkDB(); err != nil {
		return err
	}

	_, err := r.db.Exec(ctx, `DELETE FROM market_data_cache WHERE symbol = $1`, symbol)
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

// CleanExpiredCache removes all expired cache entries
func (r *Repository) CleanExpiredCache(ctx context.Context) (int64, error) {
	if err := r.checkDB(); err != nil {
		return 0, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("delete", "market_data_cache")

	result, err := r.db.Exec(ctx, `DELETE FROM market_data_cache WHERE expires_at < NOW()`)
	if err != nil {
		metrics.RecordDBError("delete", "market_data_cache")
		return 0, fmt.Errorf("failed to clean expired cache: %w", err)
	}
	return result.RowsAffected(), nil
}
