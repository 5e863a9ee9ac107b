// Package secrets resolves the effective n8n connection config of a user.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketingops/n8n-gateway/internal/core/cache"
	"github.com/marketingops/n8n-gateway/internal/core/secretstore"
	"github.com/marketingops/n8n-gateway/internal/core/vault"
	domainerrors "github.com/marketingops/n8n-gateway/internal/domain/errors"
	"github.com/marketingops/n8n-gateway/internal/domain/models"
	"github.com/marketingops/n8n-gateway/internal/pkg/encryption"
)

// DefaultCacheTTL is how long resolved secrets stay cached.
const DefaultCacheTTL = time.Minute

// Resolver looks up, caches and saves per-user n8n credentials.
type Resolver interface {
	// Resolve never fails for a user with nothing configured: the result then
	// has no API key and the default base URL.
	Resolve(ctx context.Context, userID string) (*models.N8NSecrets, error)

	// Save seals and persists the API key, then drops the cached entry.
	Save(ctx context.Context, userID, apiKey, baseURL string) (*models.N8NSecrets, error)

	// Delete removes the stored credential and the cached entry.
	Delete(ctx context.Context, userID string) (bool, error)

	// Invalidate drops the cached entry of a user.
	Invalidate(ctx context.Context, userID string) error
}

// Config holds the dependencies of the resolver.
type Config struct {
	Store       secretstore.Store
	Vault       vault.Client
	CacheClient cache.Client
	Encryptor   encryption.Encryptor
	TTL         time.Duration
	// DefaultBaseURL applies when neither the user nor the vault has one.
	DefaultBaseURL string
}

type resolver struct {
	store          secretstore.Store
	vault          vault.Client
	cacheClient    cache.Client
	encryptor      encryption.Encryptor
	ttl            time.Duration
	defaultBaseURL string
}

// NewResolver creates a new resolver.
func NewResolver(cfg *Config) (Resolver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("secret store is required")
	}
	if cfg.Encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}

	defaultBaseURL := cfg.DefaultBaseURL
	if defaultBaseURL == "" {
		defaultBaseURL = models.DefaultN8NBaseURL
	}

	return &resolver{
		store:          cfg.Store,
		vault:          cfg.Vault,
		cacheClient:    cfg.CacheClient,
		encryptor:      cfg.Encryptor,
		ttl:            ttl,
		defaultBaseURL: defaultBaseURL,
	}, nil
}

// Resolve returns the user's secrets, falling back to deployment defaults.
// Store and vault faults are logged and treated as nothing configured.
func (r *resolver) Resolve(ctx context.Context, userID string) (*models.N8NSecrets, error) {
	if userID == "" {
		return nil, domainerrors.NewUnauthorizedError("user is required")
	}

	if cached := r.getCached(ctx, userID); cached != nil {
		return cached, nil
	}

	result := &models.N8NSecrets{Source: models.SecretSourceDefault}

	cred, err := r.store.Get(ctx, userID, models.ProviderN8N)
	lookupFailed := err != nil
	if lookupFailed {
		log.Warn().Err(err).Str("user_id", userID).Msg("secret lookup failed, treating as not configured")
		cred = nil
	}

	if cred != nil {
		apiKey, err := encryption.Open(r.encryptor, cred.APIKey)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Str("source", string(cred.Source)).
				Msg("stored api key could not be opened, treating as not configured")
			apiKey = ""
		}
		result.APIKey = apiKey
		result.BaseURL = cred.BaseURL
		if apiKey != "" || cred.BaseURL != "" {
			result.Source = cred.Source
		}
	}

	if result.APIKey == "" {
		result.APIKey = r.vaultDefault(ctx, vault.KeyN8NDefaultAPIKey)
		result.DefaultKey = result.APIKey != ""
	}
	if result.BaseURL == "" {
		result.BaseURL = r.vaultDefault(ctx, vault.KeyN8NDefaultBaseURL)
	}
	if result.BaseURL == "" {
		result.BaseURL = r.defaultBaseURL
	}
	result.BaseURL = strings.TrimRight(result.BaseURL, "/")

	// A fault is only answered for this request; the next one asks the store again.
	if !lookupFailed {
		r.setCached(ctx, userID, result)
	}
	return result, nil
}

// Save persists a new API key and optional base URL for the user.
func (r *resolver) Save(ctx context.Context, userID, apiKey, baseURL string) (*models.N8NSecrets, error) {
	if userID == "" {
		return nil, domainerrors.NewUnauthorizedError("user is required")
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, domainerrors.NewValidationError("api key is required", "n8n_api_key must not be empty")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")

	sealed, err := encryption.Seal(r.encryptor, apiKey)
	if err != nil {
		return nil, domainerrors.NewInternalError("failed to seal api key", err)
	}

	cred := &models.Credential{
		OwnerID:  userID,
		Provider: models.ProviderN8N,
		APIKey:   sealed,
		BaseURL:  baseURL,
		Active:   true,
	}
	if err := r.store.Save(ctx, cred); err != nil {
		return nil, domainerrors.NewInternalError("failed to save n8n credentials", err)
	}

	if err := r.Invalidate(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to invalidate cached secrets")
	}

	log.Info().Str("user_id", userID).Str("source", string(cred.Source)).Msg("n8n credentials saved")

	return &models.N8NSecrets{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Source:  cred.Source,
	}, nil
}

// Delete removes the stored credential.
func (r *resolver) Delete(ctx context.Context, userID string) (bool, error) {
	deleted, err := r.store.Delete(ctx, userID, models.ProviderN8N)
	if err != nil {
		return false, domainerrors.NewInternalError("failed to delete n8n credentials", err)
	}

	if err := r.Invalidate(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to invalidate cached secrets")
	}
	return deleted, nil
}

// Invalidate drops the cached entry.
func (r *resolver) Invalidate(ctx context.Context, userID string) error {
	if r.cacheClient == nil {
		return nil
	}
	if _, err := r.cacheClient.Delete(ctx, cacheKey(userID)); err != nil {
		return fmt.Errorf("failed to delete cached secrets: %w", err)
	}
	return nil
}

func (r *resolver) vaultDefault(ctx context.Context, key string) string {
	if r.vault == nil {
		return ""
	}
	value, err := vault.Lookup(ctx, r.vault, vault.URI(vault.TypeDotEnv, key))
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("vault lookup failed")
		return ""
	}
	return value
}

// getCached returns nil on any miss. Entries that fail to decrypt or decode
// (for example after a key rotation) are dropped.
func (r *resolver) getCached(ctx context.Context, userID string) *models.N8NSecrets {
	if r.cacheClient == nil {
		return nil
	}

	key := cacheKey(userID)
	encrypted, err := r.cacheClient.Get(ctx, key)
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("secret cache read failed")
		return nil
	}
	if encrypted == nil {
		return nil
	}

	decrypted, err := r.encryptor.Decrypt(string(encrypted))
	if err != nil {
		_, _ = r.cacheClient.Delete(ctx, key)
		return nil
	}

	var secrets models.N8NSecrets
	if err := json.Unmarshal(decrypted, &secrets); err != nil {
		_, _ = r.cacheClient.Delete(ctx, key)
		return nil
	}
	return &secrets
}

func (r *resolver) setCached(ctx context.Context, userID string, secrets *models.N8NSecrets) {
	if r.cacheClient == nil {
		return
	}

	data, err := json.Marshal(secrets)
	if err != nil {
		return
	}
	encrypted, err := r.encryptor.Encrypt(data)
	if err != nil {
		log.Debug().Err(err).Msg("failed to encrypt secrets for cache")
		return
	}
	if err := r.cacheClient.Set(ctx, cacheKey(userID), []byte(encrypted), r.ttl); err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("secret cache write failed")
	}
}

func cacheKey(userID string) string {
	return cache.PrefixSecrets + userID
}
