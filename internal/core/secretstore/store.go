// Package secretstore defines where per-user provider credentials are kept.
package secretstore

import (
	"context"
	"errors"

	"github.com/marketingops/n8n-gateway/internal/domain/models"
)

// ErrReadOnly is returned by stores that can be read but not written.
var ErrReadOnly = errors.New("secret store is read-only")

// Store defines credential persistence for one backing source.
// Values are handled as stored; sealing is the caller's concern.
type Store interface {
	// Source names the store in resolved results.
	Source() models.SecretSource

	// Get returns nil, nil when the owner has nothing stored for the provider.
	Get(ctx context.Context, ownerID string, provider models.Provider) (*models.Credential, error)

	// Save creates or replaces the owner's credential for cred.Provider.
	Save(ctx context.Context, cred *models.Credential) error

	// Delete reports whether a credential existed.
	Delete(ctx context.Context, ownerID string, provider models.Provider) (bool, error)

	Ping(ctx context.Context) error

	Close() error
}
