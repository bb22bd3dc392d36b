package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// dbTimeout bounds every settings database round trip
const dbTimeout = 5 * time.Second

// APIKeyModel is the database representation of a stored credential.
// Key material is encrypted with the store's passphrase before it ever
// reaches the repository; base URLs are stored in the clear.
type APIKeyModel struct {
	ID                 uuid.UUID `json:"id"`
	ServiceName        string    `json:"service_name"`
	APIKeyEncrypted    []byte    `json:"-"`
	APISecretEncrypted []byte    `json:"-"`
	BaseURL            string    `json:"base_url,omitempty"`
}

// RepositoryInterface is the slice of the repository the settings store
// needs. Declared here so the store can be tested without a database.
type RepositoryInterface interface {
	GetAPIKey(ctx context.Context, serviceName string) (*APIKeyModel, error)
	GetAllAPIKeys(ctx context.Context) ([]APIKeyModel, error)
	UpsertAPIKey(ctx context.Context, apiKey *APIKeyModel) error
	DeleteAPIKey(ctx context.Context, serviceName string) error
}

// loadFromDatabase replaces the in-memory settings with the decrypted
// contents of the api_keys table
func (s *Store) loadFromDatabase() error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	models, err := s.repo.GetAllAPIKeys(ctx)
	if err != nil {
		return fmt.Errorf("failed to load api keys from database: %w", err)
	}

	settings := newDefaultSettings()
	for i := range models {
		config, err := s.decryptModel(&models[i])
		if err != nil {
			return fmt.Errorf("failed to decrypt key for %s: %w", models[i].ServiceName, err)
		}
		settings.APIKeys[config.ServiceName] = config
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	return nil
}

// saveToDatabase upserts every in-memory key into the api_keys table
func (s *Store) saveToDatabase() error {
	s.mu.RLock()
	configs := make([]*APIKeyConfig, 0, len(s.settings.APIKeys))
	for _, config := range s.settings.APIKeys {
		configCopy := *config
		configs = append(configs, &configCopy)
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	for _, config := range configs {
		model, err := s.encryptConfig(config)
		if err != nil {
			return fmt.Errorf("failed to encrypt key for %s: %w", config.ServiceName, err)
		}
		if err := s.repo.UpsertAPIKey(ctx, model); err != nil {
			return fmt.Errorf("failed to save key for %s: %w", config.ServiceName, err)
		}
	}

	return nil
}

// deleteFromDatabase removes one service's credential row
func (s *Store) deleteFromDatabase(service ServiceName) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if err := s.repo.DeleteAPIKey(ctx, string(service)); err != nil {
		return fmt.Errorf("failed to delete key for %s: %w", service, err)
	}
	return nil
}

// encryptConfig converts an in-memory config into its database form
func (s *Store) encryptConfig(config *APIKeyConfig) (*APIKeyModel, error) {
	model := &APIKeyModel{
		ServiceName: string(config.ServiceName),
		BaseURL:     config.BaseURL,
	}

	if config.APIKey != "" {
		encrypted, err := s.crypto.Encrypt([]byte(config.APIKey))
		if err != nil {
			return nil, err
		}
		model.APIKeyEncrypted = encrypted
	}

	if config.APISecret != "" {
		encrypted, err := s.crypto.Encrypt([]byte(config.APISecret))
		if err != nil {
			return nil, err
		}
		model.APISecretEncrypted = encrypted
	}

	return model, nil
}

// decryptModel converts a database row back into an in-memory config
func (s *Store) decryptModel(model *APIKeyModel) (*APIKeyConfig, error) {
	config := &APIKeyConfig{
		ServiceName: ServiceName(model.ServiceName),
		BaseURL:     model.BaseURL,
	}

	if len(model.APIKeyEncrypted) > 0 {
		plaintext, err := s.crypto.Decrypt(model.APIKeyEncrypted)
		if err != nil {
			return nil, err
		}
		config.APIKey = string(plaintext)
	}

	if len(model.APISecretEncrypted) > 0 {
		plaintext, err := s.crypto.Decrypt(model.APISecretEncrypted)
		if err != nil {
			return nil, err
		}
		config.APISecret = string(plaintext)
	}

	return config, nil
}
