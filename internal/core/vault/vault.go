// Package vault defines access to deployment-level secrets such as the
// build-time n8n defaults and the encryption key.
package vault

import (
	"context"
	"errors"
	"fmt"
)

// ErrSecretNotFound is returned when a secret URI does not resolve.
var ErrSecretNotFound = errors.New("secret not found")

// Client defines the interface for vault/secrets operations.
type Client interface {
	// GetSecret retrieves a secret by URI. Returns ErrSecretNotFound if absent.
	GetSecret(ctx context.Context, uri string) (string, error)

	// StoreSecret stores a secret and returns its URI.
	StoreSecret(ctx context.Context, key string, value string) (string, error)

	// DeleteSecret reports whether the secret existed.
	DeleteSecret(ctx context.Context, uri string) (bool, error)

	Ping(ctx context.Context) error

	Close() error
}

// URI builds the reference of a key inside a vault of the given type.
func URI(t Type, key string) string {
	return fmt.Sprintf("%s://%s", t, key)
}

// Lookup returns the secret or "" when it is not set. Other errors are returned.
func Lookup(ctx context.Context, c Client, uri string) (string, error) {
	value, err := c.GetSecret(ctx, uri)
	if errors.Is(err, ErrSecretNotFound) {
		return "", nil
	}
	return value, err
}
