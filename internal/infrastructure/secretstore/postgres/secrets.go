package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/marketingops/n8n-gateway/internal/domain/models"
)

// SecretsStore reads and writes the generic per-user key/value table.
// A provider's credential is the pair of rows "<provider>_api_key" and
// "<provider>_base_url".
type SecretsStore struct {
	db *sqlx.DB
}

// NewSecretsStore creates a store on an open connection.
func NewSecretsStore(db *sqlx.DB) *SecretsStore {
	return &SecretsStore{db: db}
}

type secretRow struct {
	Name      string    `db:"name"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

func secretNames(provider models.Provider) (apiKey, baseURL string) {
	if provider == models.ProviderN8N {
		return models.SecretNameN8NAPIKey, models.SecretNameN8NBaseURL
	}
	return string(provider) + "_api_key", string(provider) + "_base_url"
}

// Source implements secretstore.Store.
func (s *SecretsStore) Source() models.SecretSource {
	return models.SecretSourceSecrets
}

// Get loads the owner's rows for the provider.
func (s *SecretsStore) Get(ctx context.Context, ownerID string, provider models.Provider) (*models.Credential, error) {
	apiKeyName, baseURLName := secretNames(provider)

	var rows []secretRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT name, value, updated_at FROM user_secrets WHERE user_id = $1 AND name IN ($2, $3)",
		ownerID, apiKeyName, baseURLName)
	if isUndefinedTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user secrets: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cred := &models.Credential{
		OwnerID:  ownerID,
		Provider: provider,
		Active:   true,
		Source:   s.Source(),
	}
	for _, row := range rows {
		switch row.Name {
		case apiKeyName:
			cred.APIKey = row.Value
		case baseURLName:
			cred.BaseURL = row.Value
		}
		if row.UpdatedAt.After(cred.UpdatedAt) {
			cred.UpdatedAt = row.UpdatedAt
		}
	}
	return cred, nil
}

// Save upserts both rows in one transaction. An empty base URL removes the
// stored one so the deployment default applies again.
func (s *SecretsStore) Save(ctx context.Context, cred *models.Credential) error {
	apiKeyName, baseURLName := secretNames(cred.Provider)
	if cred.UpdatedAt.IsZero() {
		cred.UpdatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := upsertSecret(ctx, tx, cred.OwnerID, apiKeyName, cred.APIKey, cred.UpdatedAt); err != nil {
		_ = tx.Rollback()
		return err
	}

	if cred.BaseURL != "" {
		err = upsertSecret(ctx, tx, cred.OwnerID, baseURLName, cred.BaseURL, cred.UpdatedAt)
	} else {
		_, err = tx.ExecContext(ctx, "DELETE FROM user_secrets WHERE user_id = $1 AND name = $2", cred.OwnerID, baseURLName)
	}
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to write base url: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user secrets: %w", err)
	}
	cred.Source = s.Source()
	return nil
}

func upsertSecret(ctx context.Context, tx *sqlx.Tx, ownerID, name, value string, updatedAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_secrets (user_id, name, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		ownerID, name, value, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert secret %s: %w", name, err)
	}
	return nil
}

// Delete removes both rows.
func (s *SecretsStore) Delete(ctx context.Context, ownerID string, provider models.Provider) (bool, error) {
	apiKeyName, baseURLName := secretNames(provider)

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM user_secrets WHERE user_id = $1 AND name IN ($2, $3)",
		ownerID, apiKeyName, baseURLName)
	if err != nil {
		return false, fmt.Errorf("failed to delete user secrets: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// Ping checks the connection.
func (s *SecretsStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

// Close is a no-op; the connection is owned by whoever opened it.
func (s *SecretsStore) Close() error {
	return nil
}
