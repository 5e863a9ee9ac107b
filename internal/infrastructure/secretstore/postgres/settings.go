package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/marketingops/n8n-gateway/internal/core/secretstore"
	"github.com/marketingops/n8n-gateway/internal/domain/models"
)

// SettingsStore reads the dashboard's legacy user_settings row. It only
// knows n8n and never writes; new values go to the secrets table.
type SettingsStore struct {
	db *sqlx.DB
}

// NewSettingsStore creates a store on an open connection.
func NewSettingsStore(db *sqlx.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

type settingsRow struct {
	APIKey    sql.NullString `db:"n8n_api_key"`
	BaseURL   sql.NullString `db:"n8n_base_url"`
	UpdatedAt sql.NullTime   `db:"updated_at"`
}

// Source implements secretstore.Store.
func (s *SettingsStore) Source() models.SecretSource {
	return models.SecretSourceSettings
}

// Get loads the legacy row. A missing table or row means nothing is configured.
func (s *SettingsStore) Get(ctx context.Context, ownerID string, provider models.Provider) (*models.Credential, error) {
	if provider != models.ProviderN8N {
		return nil, nil
	}

	var row settingsRow
	err := s.db.GetContext(ctx, &row,
		"SELECT n8n_api_key, n8n_base_url, updated_at FROM user_settings WHERE user_id = $1",
		ownerID)
	if errors.Is(err, sql.ErrNoRows) || isUndefinedTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user settings: %w", err)
	}
	if !row.APIKey.Valid && !row.BaseURL.Valid {
		return nil, nil
	}

	cred := &models.Credential{
		OwnerID:  ownerID,
		Provider: provider,
		APIKey:   row.APIKey.String,
		BaseURL:  row.BaseURL.String,
		Active:   true,
		Source:   s.Source(),
	}
	if row.UpdatedAt.Valid {
		cred.UpdatedAt = row.UpdatedAt.Time
	}
	return cred, nil
}

// Save is not supported.
func (s *SettingsStore) Save(ctx context.Context, cred *models.Credential) error {
	return secretstore.ErrReadOnly
}

// Delete is not supported.
func (s *SettingsStore) Delete(ctx context.Context, ownerID string, provider models.Provider) (bool, error) {
	return false, secretstore.ErrReadOnly
}

// Ping checks the connection.
func (s *SettingsStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

// Close is a no-op; the connection is owned by whoever opened it.
func (s *SettingsStore) Close() error {
	return nil
}
