package secretstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/marketingops/n8n-gateway/internal/domain/models"
)

// ChainStore consults several stores in order. Reads return the first
// credential carrying an API key; writes go to the first writable store.
type ChainStore struct {
	stores []Store
}

// NewChainStore creates a chain over the given stores. At least one is required.
func NewChainStore(stores ...Store) (*ChainStore, error) {
	if len(stores) == 0 {
		return nil, fmt.Errorf("at least one secret store is required")
	}
	return &ChainStore{stores: stores}, nil
}

// Source returns the source of the primary store.
func (c *ChainStore) Source() models.SecretSource {
	return c.stores[0].Source()
}

// Get walks the chain. A failing store is logged and skipped. When no store
// has an API key, the first partial record (base URL only) is returned.
func (c *ChainStore) Get(ctx context.Context, ownerID string, provider models.Provider) (*models.Credential, error) {
	var partial *models.Credential
	var lastErr error
	failed := 0

	for _, store := range c.stores {
		cred, err := store.Get(ctx, ownerID, provider)
		if err != nil {
			log.Warn().
				Err(err).
				Str("source", string(store.Source())).
				Str("owner_id", ownerID).
				Msg("secret lookup failed, trying next source")
			lastErr = err
			failed++
			continue
		}
		if cred == nil {
			continue
		}
		if cred.APIKey != "" {
			return cred, nil
		}
		if partial == nil {
			partial = cred
		}
	}

	if partial == nil && failed == len(c.stores) {
		return nil, fmt.Errorf("all secret sources failed: %w", lastErr)
	}
	return partial, nil
}

// Save writes to the first store that accepts writes.
func (c *ChainStore) Save(ctx context.Context, cred *models.Credential) error {
	for _, store := range c.stores {
		err := store.Save(ctx, cred)
		if errors.Is(err, ErrReadOnly) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to save to %s: %w", store.Source(), err)
		}
		cred.Source = store.Source()
		return nil
	}
	return ErrReadOnly
}

// Delete removes the credential from every writable store.
func (c *ChainStore) Delete(ctx context.Context, ownerID string, provider models.Provider) (bool, error) {
	deleted := false
	for _, store := range c.stores {
		ok, err := store.Delete(ctx, ownerID, provider)
		if errors.Is(err, ErrReadOnly) {
			continue
		}
		if err != nil {
			return deleted, fmt.Errorf("failed to delete from %s: %w", store.Source(), err)
		}
		deleted = deleted || ok
	}
	return deleted, nil
}

// Ping checks every store.
func (c *ChainStore) Ping(ctx context.Context) error {
	for _, store := range c.stores {
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", store.Source(), err)
		}
	}
	return nil
}

// Close closes every store and returns the first error.
func (c *ChainStore) Close() error {
	var firstErr error
	for _, store := range c.stores {
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
