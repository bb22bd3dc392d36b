package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// External service configurations
	Alpaca  AlpacaConfig
	Tradier TradierConfig

	// Screening configuration
	Screen ScreenConfig

	// Market data cache configuration
	Cache CacheConfig

	// HTTP configuration
	HTTP HTTPConfig

	// Settings store configuration
	Settings SettingsConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// AlpacaConfig holds Alpaca market-data API configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// TradierConfig holds Tradier option-chain API configuration
type TradierConfig struct {
	APIKey          string
	BaseURL         string
	RequestsPerSec  float64 // client-side rate limit
	TimeoutSeconds  int
}

// ScreenConfig holds screening configuration
type ScreenConfig struct {
	MaxConcurrent     int // max parallel evaluations in a batch
	LookbackDays      int // daily bars fetched for SMA/RSI computation
	MaxUploadBytes    int64
	DefaultDaysAhead  int // chain screening horizon when no expiration given
	RunRetentionCount int // completed runs listed by the API
}

// CacheConfig holds market data cache configuration
type CacheConfig struct {
	QuoteTTLSeconds int
	ChainTTLSeconds int
	BarsTTLSeconds  int
	PruneSchedule   string // cron expression for cache maintenance
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port               string
	CORSAllowedOrigins string
}

// SettingsConfig holds the encrypted settings store configuration
type SettingsConfig struct {
	EncryptionKey string // base64-encoded 32-byte AES key
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Alpaca: AlpacaConfig{
			APIKey:    os.Getenv("ALPACA_API_KEY"),
			APISecret: os.Getenv("ALPACA_API_SECRET"),
			BaseURL:   getEnvString("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
		},
		Tradier: TradierConfig{
			APIKey:         os.Getenv("TRADIER_API_KEY"),
			BaseURL:        getEnvString("TRADIER_BASE_URL", "https://api.tradier.com/v1"),
			RequestsPerSec: getEnvFloatUnbounded("TRADIER_REQUESTS_PER_SEC", 2),
			TimeoutSeconds: getEnvInt("TRADIER_TIMEOUT_SECONDS", 30),
		},
		Screen: ScreenConfig{
			MaxConcurrent:     getEnvInt("SCREEN_MAX_CONCURRENT", 8),
			LookbackDays:      getEnvInt("SCREEN_LOOKBACK_DAYS", 100),
			MaxUploadBytes:    int64(getEnvInt("SCREEN_MAX_UPLOAD_BYTES", 5_242_880)),
			DefaultDaysAhead:  getEnvInt("SCREEN_DEFAULT_DAYS_AHEAD", 45),
			RunRetentionCount: getEnvInt("SCREEN_RUN_RETENTION_COUNT", 50),
		},
		Cache: CacheConfig{
			QuoteTTLSeconds: getEnvInt("CACHE_QUOTE_TTL_SECONDS", 60),
			ChainTTLSeconds: getEnvInt("CACHE_CHAIN_TTL_SECONDS", 300),
			BarsTTLSeconds:  getEnvInt("CACHE_BARS_TTL_SECONDS", 3600),
			PruneSchedule:   getEnvString("CACHE_PRUNE_SCHEDULE", "@hourly"),
		},
		HTTP: HTTPConfig{
			Port:               getEnvString("PORT", "8080"),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
		},
		Settings: SettingsConfig{
			EncryptionKey: os.Getenv("SETTINGS_ENCRYPTION_KEY"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Tradier.RequestsPerSec <= 0 {
		return fmt.Errorf("TRADIER_REQUESTS_PER_SEC must be positive, got %.2f", c.Tradier.RequestsPerSec)
	}
	if c.Tradier.TimeoutSeconds <= 0 {
		return fmt.Errorf("TRADIER_TIMEOUT_SECONDS must be positive, got %d", c.Tradier.TimeoutSeconds)
	}
	if c.Screen.MaxConcurrent <= 0 {
		return fmt.Errorf("SCREEN_MAX_CONCURRENT must be positive, got %d", c.Screen.MaxConcurrent)
	}
	// SMA50 needs at least 50 daily bars
	if c.Screen.LookbackDays < 50 {
		return fmt.Errorf("SCREEN_LOOKBACK_DAYS must be at least 50, got %d", c.Screen.LookbackDays)
	}
	if c.Screen.MaxUploadBytes <= 0 {
		return fmt.Errorf("SCREEN_MAX_UPLOAD_BYTES must be positive, got %d", c.Screen.MaxUploadBytes)
	}
	if c.Cache.QuoteTTLSeconds <= 0 || c.Cache.ChainTTLSeconds <= 0 || c.Cache.BarsTTLSeconds <= 0 {
		return fmt.Errorf("cache TTLs must be positive, got quote=%d chain=%d bars=%d",
			c.Cache.QuoteTTLSeconds, c.Cache.ChainTTLSeconds, c.Cache.BarsTTLSeconds)
	}

	return nil
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

// HasTradier returns true if Tradier configuration is available
func (c *Config) HasTradier() bool {
	return c.Tradier.APIKey != ""
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatUnbounded(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL: "",
		},
		Alpaca: AlpacaConfig{
			APIKey:    "",
			APISecret: "",
			BaseURL:   "https://paper-api.alpaca.markets",
		},
		Tradier: TradierConfig{
			APIKey:         "",
			BaseURL:        "https://api.tradier.com/v1",
			RequestsPerSec: 2,
			TimeoutSeconds: 30,
		},
		Screen: ScreenConfig{
			MaxConcurrent:     8,
			LookbackDays:      100,
			MaxUploadBytes:    5_242_880,
			DefaultDaysAhead:  45,
			RunRetentionCount: 50,
		},
		Cache: CacheConfig{
			QuoteTTLSeconds: 60,
			ChainTTLSeconds: 300,
			BarsTTLSeconds:  3600,
			PruneSchedule:   "@hourly",
		},
		HTTP: HTTPConfig{
			Port:               "8080",
			CORSAllowedOrigins: "*",
		},
		Settings: SettingsConfig{
			EncryptionKey: "",
		},
	}
}
