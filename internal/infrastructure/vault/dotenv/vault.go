// Package dotenv provides a vault backed by environment variables.
package dotenv

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/marketingops/n8n-gateway/internal/core/vault"
)

const scheme = "dotenv://"

// Vault reads secrets from the environment first, then from values stored at runtime.
type Vault struct {
	secrets map[string]string
	mu      sync.RWMutex
}

// NewVault creates a new DotEnv vault instance.
func NewVault() *Vault {
	return &Vault{
		secrets: make(map[string]string),
	}
}

// StoreSecret keeps a secret in memory and returns "dotenv://{key}".
func (v *Vault) StoreSecret(ctx context.Context, key string, value string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.secrets[key] = value
	return vault.URI(vault.TypeDotEnv, key), nil
}

// GetSecret resolves a "dotenv://KEY" URI. A bare key is accepted too.
func (v *Vault) GetSecret(ctx context.Context, uri string) (string, error) {
	key := strings.TrimPrefix(uri, scheme)

	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if value, ok := v.secrets[key]; ok {
		return value, nil
	}

	return "", fmt.Errorf("%w: %s", vault.ErrSecretNotFound, key)
}

// DeleteSecret removes a runtime secret. Environment variables are untouched.
func (v *Vault) DeleteSecret(ctx context.Context, uri string) (bool, error) {
	key := strings.TrimPrefix(uri, scheme)

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.secrets[key]; ok {
		delete(v.secrets, key)
		return true, nil
	}

	return false, nil
}

// Ping always succeeds.
func (v *Vault) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (v *Vault) Close() error {
	return nil
}
