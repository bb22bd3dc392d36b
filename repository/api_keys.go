package repository

import (
	"context"
	"fmt"

	"option-scout/internal/settings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const apiKeyColumns = `id, service_name, api_key_encrypted, api_secret_encrypted, base_url`

// GetAPIKey loads one provider credential row. Key material stays encrypted;
// only the settings store holds the passphrase.
func (r *Repository) GetAPIKey(ctx context.Context, serviceName string) (*settings.APIKeyModel, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}

	var m settings.APIKeyModel
	err := r.db.QueryRow(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE service_name = $1`,
		serviceName,
	).Scan(&m.ID, &m.ServiceName, &m.APIKeyEncrypted, &m.APISecretEncrypted, &m.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return &m, nil
}

// GetAllAPIKeys loads every stored credential, ordered by service name.
func (r *Repository) GetAllAPIKeys(ctx context.Context) ([]settings.APIKeyModel, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys ORDER BY service_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query api keys: %w", err)
	}

	keys, err := pgx.CollectRows(rows, pgx.RowToStructByPos[settings.APIKeyModel])
	if err != nil {
		return nil, fmt.Errorf("failed to scan api keys: %w", err)
	}
	return keys, nil
}

// UpsertAPIKey writes a credential row keyed by service name, assigning an
// ID on first insert.
func (r *Repository) UpsertAPIKey(ctx context.Context, apiKey *settings.APIKeyModel) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	if apiKey.ID == uuid.Nil {
		apiKey.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO api_keys (id, service_name, api_key_encrypted, api_secret_encrypted, base_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (service_name) DO UPDATE SET
			api_key_encrypted = EXCLUDED.api_key_encrypted,
			api_secret_encrypted = EXCLUDED.api_secret_encrypted,
			base_url = EXCLUDED.base_url,
			updated_at = NOW()`,
		apiKey.ID, apiKey.ServiceName, apiKey.APIKeyEncrypted, apiKey.APISecretEncrypted, apiKey.BaseURL,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert api key: %w", err)
	}
	return nil
}

// DeleteAPIKey removes a credential row. Deleting an absent service is not
// an error.
func (r *Repository) DeleteAPIKey(ctx context.Context, serviceName string) error {
	if err := r.checkDB(); err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM api_keys WHERE service_name = $1`, serviceName); err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	return nil
}
