package settings

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// seedSettingsFile writes an encrypted settings.enc under dir, the way a
// pre-database install would have left it.
func seedSettingsFile(t *testing.T, dir, passphrase string, configs ...*APIKeyConfig) {
	t.Helper()

	s := newDefaultSettings()
	for _, c := range configs {
		s.APIKeys[c.ServiceName] = c
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal settings: %v", err)
	}

	crypto, err := NewCrypto(passphrase)
	if err != nil {
		t.Fatalf("NewCrypto() error = %v", err)
	}
	sealed, err := crypto.Encrypt(data)
	if err != nil {
		t.Fatalf("encrypt settings: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "settings.enc"), sealed, 0600); err != nil {
		t.Fatalf("write settings file: %v", err)
	}
}

func TestStoreWritesEncryptedRows(t *testing.T) {
	repo := newStubRepository()
	store, err := NewStore(t.TempDir(), "test-passphrase", repo)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	err = store.SetAPIKey(&APIKeyConfig{
		ServiceName: ServiceAlpaca,
		APIKey:      "AKTEST123",
		APISecret:   "secret456",
		BaseURL:     "https://paper-api.alpaca.markets",
	})
	if err != nil {
		t.Fatalf("SetAPIKey() error = %v", err)
	}

	row := repo.rows[string(ServiceAlpaca)]
	if row == nil {
		t.Fatalf("expected a row for %s, repository holds %d rows", ServiceAlpaca, len(repo.rows))
	}

	t.Run("credentials encrypted at rest", func(t *testing.T) {
		if string(row.APIKeyEncrypted) == "AKTEST123" {
			t.Error("API key stored in the clear")
		}
		if string(row.APISecretEncrypted) == "secret456" {
			t.Error("API secret stored in the clear")
		}
	})

	t.Run("base URL stored in the clear", func(t *testing.T) {
		if row.BaseURL != "https://paper-api.alpaca.markets" {
			t.Errorf("BaseURL = %q", row.BaseURL)
		}
	})

	t.Run("round trip decrypts", func(t *testing.T) {
		got := store.GetAPIKey(ServiceAlpaca)
		if got == nil {
			t.Fatal("GetAPIKey() returned nil")
		}
		if got.APIKey != "AKTEST123" || got.APISecret != "secret456" {
			t.Errorf("got key=%q secret=%q", got.APIKey, got.APISecret)
		}
	})
}

func TestStoreReloadsFromRepository(t *testing.T) {
	dir := t.TempDir()
	repo := newStubRepository()

	first, err := NewStore(dir, "test-passphrase", repo)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	mustSet(t, first, &APIKeyConfig{ServiceName: ServiceTradier, APIKey: "tr-persisted"})
	mustSet(t, first, &APIKeyConfig{ServiceName: ServiceAlpaca, APIKey: "AKPERSIST", APISecret: "shh"})

	// A fresh store over the same repository sees everything the first wrote.
	second, err := NewStore(dir, "test-passphrase", repo)
	if err != nil {
		t.Fatalf("NewStore() reload error = %v", err)
	}

	if got := second.GetAPIKey(ServiceTradier); got == nil || got.APIKey != "tr-persisted" {
		t.Errorf("Tradier key after reload = %+v", got)
	}
	if got := second.GetAPIKey(ServiceAlpaca); got == nil || got.APIKey != "AKPERSIST" || got.APISecret != "shh" {
		t.Errorf("Alpaca key after reload = %+v", got)
	}
}

func TestStoreDeletesRepositoryRow(t *testing.T) {
	repo := newStubRepository()
	store, err := NewStore(t.TempDir(), "test-passphrase", repo)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	mustSet(t, store, &APIKeyConfig{ServiceName: ServiceTradier, APIKey: "tr-doomed"})

	if err := store.DeleteAPIKey(ServiceTradier); err != nil {
		t.Fatalf("DeleteAPIKey() error = %v", err)
	}

	if len(repo.rows) != 0 {
		t.Errorf("repository still holds %d rows after delete", len(repo.rows))
	}
	if store.IsConfigured(ServiceTradier) {
		t.Error("IsConfigured() = true after delete")
	}
}

func TestStoreMigratesFileToRepository(t *testing.T) {
	dir := t.TempDir()
	seedSettingsFile(t, dir, "test-passphrase",
		&APIKeyConfig{ServiceName: ServiceTradier, APIKey: "tr-from-file"},
		&APIKeyConfig{ServiceName: ServiceAlpaca, APIKey: "AKFROMFILE", APISecret: "file-secret"},
	)

	// The repository has never been written to: the initial load fails and
	// the store falls back to the file, then migrates it.
	repo := newStubRepository()
	repo.failFirstLoad = errors.New("no keys found")

	store, err := NewStore(dir, "test-passphrase", repo)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if len(repo.rows) != 2 {
		t.Errorf("expected both file keys migrated, repository holds %d rows", len(repo.rows))
	}
	if got := store.GetAPIKey(ServiceTradier); got == nil || got.APIKey != "tr-from-file" {
		t.Errorf("migrated Tradier key = %+v", got)
	}
	if got := store.GetAPIKey(ServiceAlpaca); got == nil || got.APIKey != "AKFROMFILE" {
		t.Errorf("migrated Alpaca key = %+v", got)
	}
}

func TestStoreSkipsMigrationWhenRepositoryPopulated(t *testing.T) {
	dir := t.TempDir()
	seedSettingsFile(t, dir, "test-passphrase",
		&APIKeyConfig{ServiceName: ServiceTradier, APIKey: "tr-stale-file"})

	repo := newStubRepository()
	crypto, _ := NewCrypto("test-passphrase")
	sealed, _ := crypto.Encrypt([]byte("ak-live-db-key"))
	repo.rows[string(ServiceAlpaca)] = &APIKeyModel{
		ServiceName:     string(ServiceAlpaca),
		APIKeyEncrypted: sealed,
	}

	store, err := NewStore(dir, "test-passphrase", repo)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if store.IsConfigured(ServiceTradier) {
		t.Error("stale file key migrated over a populated repository")
	}
	if !store.IsConfigured(ServiceAlpaca) {
		t.Error("existing repository key not loaded")
	}
}

func TestStoreSurfacesRepositoryErrors(t *testing.T) {
	repo := newStubRepository()
	store, err := NewStore(t.TempDir(), "test-passphrase", repo)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	repo.failWith = errors.New("database connection lost")
	if err := store.SetAPIKey(&APIKeyConfig{ServiceName: ServiceTradier, APIKey: "tr-x"}); err == nil {
		t.Error("SetAPIKey() succeeded while the repository was failing")
	}

	repo.failWith = nil
	if err := store.SetAPIKey(&APIKeyConfig{ServiceName: ServiceTradier, APIKey: "tr-y"}); err != nil {
		t.Errorf("SetAPIKey() after recovery error = %v", err)
	}
}

func mustSet(t *testing.T, store *Store, config *APIKeyConfig) {
	t.Helper()
	if err := store.SetAPIKey(config); err != nil {
		t.Fatalf("SetAPIKey(%s) error = %v", config.ServiceName, err)
	}
}
