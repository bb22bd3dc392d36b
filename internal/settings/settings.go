package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"option-scout/observability"
)

// ServiceName identifies a configurable market data provider.
type ServiceName string

const (
	ServiceAlpaca  ServiceName = "alpaca"
	ServiceTradier ServiceName = "tradier"
)

// knownServices lists every provider the settings UI exposes
var knownServices = []ServiceName{ServiceAlpaca, ServiceTradier}

// APIKeyConfig is one provider's credential set.
type APIKeyConfig struct {
	ServiceName ServiceName `json:"service_name"`
	APIKey      string      `json:"api_key,omitempty"`
	APISecret   string      `json:"api_secret,omitempty"` // Alpaca needs both key and secret
	BaseURL     string      `json:"base_url,omitempty"`   // Optional base URL override
}

// Settings holds all user-configurable settings.
type Settings struct {
	APIKeys map[ServiceName]*APIKeyConfig `json:"api_keys"`
}

// MaskedAPIKeyConfig is a credential entry safe to return over the API.
type MaskedAPIKeyConfig struct {
	ServiceName  ServiceName `json:"service_name"`
	APIKey       string      `json:"api_key,omitempty"`
	APISecret    string      `json:"api_secret,omitempty"`
	BaseURL      string      `json:"base_url,omitempty"`
	IsConfigured bool        `json:"is_configured"`
}

// Store manages persistent storage of settings. When constructed with a
// repository, the database is the source of truth and the encrypted file
// serves only as a migration source for pre-database installs.
type Store struct {
	mu         sync.RWMutex
	filePath   string
	settings   *Settings
	crypto     *Crypto
	passphrase string
	repo       RepositoryInterface
}

// NewStore creates a settings store rooted at dataDir (default
// ~/.option-scout). repo may be nil, in which case settings live only in
// the encrypted file.
func NewStore(dataDir string, passphrase string, repo RepositoryInterface) (*Store, error) {
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".option-scout")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	crypto, err := NewCrypto(passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize crypto: %w", err)
	}

	store := &Store{
		filePath:   filepath.Join(dataDir, "settings.enc"),
		crypto:     crypto,
		passphrase: passphrase,
		repo:       repo,
		settings:   newDefaultSettings(),
	}

	if repo == nil {
		store.loadFileOrWarn()
		return store, nil
	}

	if err := store.loadFromDatabase(); err == nil && len(store.settings.APIKeys) > 0 {
		return store, nil
	}

	// Database empty or unreadable: fall back to the file and migrate
	// whatever it holds so the next start reads the database only.
	store.loadFileOrWarn()
	if len(store.settings.APIKeys) > 0 {
		if err := store.saveToDatabase(); err != nil {
			observability.Warn("failed to migrate settings to database", "error", err)
		}
	}
	return store, nil
}

// newDefaultSettings creates empty default settings
func newDefaultSettings() *Settings {
	return &Settings{APIKeys: make(map[ServiceName]*APIKeyConfig)}
}

// loadFileOrWarn loads the encrypted file, keeping empty defaults when the
// file is missing or unreadable. A corrupt file is logged, not fatal.
func (s *Store) loadFileOrWarn() {
	if err := s.loadFromFile(); err != nil && !errors.Is(err, os.ErrNotExist) {
		observability.Warn("failed to load settings file", "error", err)
	}
}

func (s *Store) loadFromFile() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	decrypted, err := s.crypto.Decrypt(data)
	if err != nil {
		return fmt.Errorf("failed to decrypt settings: %w", err)
	}

	var loaded Settings
	if err := json.Unmarshal(decrypted, &loaded); err != nil {
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if loaded.APIKeys == nil {
		loaded.APIKeys = make(map[ServiceName]*APIKeyConfig)
	}

	s.mu.Lock()
	s.settings = &loaded
	s.mu.Unlock()
	return nil
}

// Save persists settings to the configured backend.
func (s *Store) Save() error {
	if s.repo != nil {
		return s.saveToDatabase()
	}
	return s.saveToFile()
}

func (s *Store) saveToFile() error {
	s.mu.RLock()
	data, err := json.Marshal(s.settings)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	encrypted, err := s.crypto.Encrypt(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt settings: %w", err)
	}

	if err := os.WriteFile(s.filePath, encrypted, 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// GetAPIKey returns a copy of one service's credentials, unmasked, or nil
// when the service is not configured.
func (s *Store) GetAPIKey(service ServiceName) *APIKeyConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	config, ok := s.settings.APIKeys[service]
	if !ok {
		return nil
	}
	clone := *config
	return &clone
}

// SetAPIKey stores a credential set and persists immediately.
func (s *Store) SetAPIKey(config *APIKeyConfig) error {
	if config == nil {
		return errors.New("config cannot be nil")
	}
	if config.ServiceName == "" {
		return errors.New("service name is required")
	}

	s.mu.Lock()
	s.settings.APIKeys[config.ServiceName] = config
	s.mu.Unlock()

	return s.Save()
}

// DeleteAPIKey removes one service's credentials from memory and from
// whichever backend holds them.
func (s *Store) DeleteAPIKey(service ServiceName) error {
	s.mu.Lock()
	delete(s.settings.APIKeys, service)
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.deleteFromDatabase(service); err != nil {
			return err
		}
	}
	return s.Save()
}

// GetMaskedSettings returns an entry for every known provider, configured or
// not, with key material masked.
func (s *Store) GetMaskedSettings() map[ServiceName]*MaskedAPIKeyConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[ServiceName]*MaskedAPIKeyConfig, len(knownServices))
	for _, service := range knownServices {
		masked := &MaskedAPIKeyConfig{ServiceName: service}
		if config, ok := s.settings.APIKeys[service]; ok {
			masked.APIKey = maskString(config.APIKey)
			masked.APISecret = maskString(config.APISecret)
			masked.BaseURL = config.BaseURL
			masked.IsConfigured = config.APIKey != "" || config.APISecret != ""
		}
		result[service] = masked
	}
	return result
}

// IsConfigured reports whether a service has an API key set.
func (s *Store) IsConfigured(service ServiceName) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	config, ok := s.settings.APIKeys[service]
	return ok && config.APIKey != ""
}

// maskString hides all but the last four characters.
func maskString(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return "****" + s[len(s)-4:]
	}
}

// GetAllAPIKeys returns copies of every stored credential, unmasked. Callers
// wiring provider clients use this; nothing here should reach an API response.
func (s *Store) GetAllAPIKeys() map[ServiceName]*APIKeyConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[ServiceName]*APIKeyConfig, len(s.settings.APIKeys))
	for name, config := range s.settings.APIKeys {
		clone := *config
		result[name] = &clone
	}
	return result
}

// ResetAll removes every stored credential from memory and the backend.
func (s *Store) ResetAll() error {
	s.mu.Lock()
	services := make([]ServiceName, 0, len(s.settings.APIKeys))
	for name := range s.settings.APIKeys {
		services = append(services, name)
	}
	s.settings.APIKeys = make(map[ServiceName]*APIKeyConfig)
	s.mu.Unlock()

	if s.repo != nil {
		for _, service := range services {
			if err := s.deleteFromDatabase(service); err != nil {
				return err
			}
		}
	}
	return s.Save()
}

// ServiceDisplayName returns the human-readable provider name.
func ServiceDisplayName(service ServiceName) string {
	switch service {
	case ServiceAlpaca:
		return "Alpaca Markets"
	case ServiceTradier:
		return "Tradier"
	default:
		return string(service)
	}
}

// ServiceDescription explains what the provider is used for.
func ServiceDescription(service ServiceName) string {
	switch service {
	case ServiceAlpaca:
		return "Underlying quotes and daily bars for indicators"
	case ServiceTradier:
		return "Option chains, expirations, and greeks"
	default:
		return ""
	}
}
