package settings

import (
	"context"
	"errors"
)

// stubRepository is an in-memory RepositoryInterface for store tests.
// failWith makes every call fail; failFirstLoad fails only the initial
// GetAllAPIKeys, mimicking a database the store has never written to.
type stubRepository struct {
	rows          map[string]*APIKeyModel
	failWith      error
	failFirstLoad error
	loads         int
}

func newStubRepository() *stubRepository {
	return &stubRepository{rows: make(map[string]*APIKeyModel)}
}

func (r *stubRepository) GetAPIKey(ctx context.Context, serviceName string) (*APIKeyModel, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	row, ok := r.rows[serviceName]
	if !ok {
		return nil, errors.New("not found")
	}
	return row, nil
}

func (r *stubRepository) GetAllAPIKeys(ctx context.Context) ([]APIKeyModel, error) {
	r.loads++
	if r.failWith != nil {
		return nil, r.failWith
	}
	if r.failFirstLoad != nil && r.loads == 1 {
		return nil, r.failFirstLoad
	}
	rows := make([]APIKeyModel, 0, len(r.rows))
	for _, row := range r.rows {
		rows = append(rows, *row)
	}
	return rows, nil
}

func (r *stubRepository) UpsertAPIKey(ctx context.Context, apiKey *APIKeyModel) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.rows[apiKey.ServiceName] = apiKey
	return nil
}

func (r *stubRepository) DeleteAPIKey(ctx context.Context, serviceName string) error {
	if r.failWith != nil {
		return r.failWith
	}
	delete(r.rows, serviceName)
	return nil
}
