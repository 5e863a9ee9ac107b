// Package n8n provides typed access to the n8n workflow API on top of a
// request transport, plus the connection health check.
package n8n

import (
	"context"

	"github.com/marketingops/n8n-gateway/internal/domain/models"
	"github.com/marketingops/n8n-gateway/internal/services/proxy"
	"github.com/marketingops/n8n-gateway/internal/services/secrets"
)

// Transport sends requests to one user's n8n instance.
type Transport interface {
	// Do performs one call. Failures are returned unchanged to callers.
	Do(ctx context.Context, req *models.ProxyRequest) (*models.ProxyResponse, error)

	// BaseURL returns the n8n instance URL used for editor deep links.
	BaseURL(ctx context.Context) (string, error)
}

// userTransport binds the server-side forwarder to an authenticated user.
type userTransport struct {
	forwarder proxy.Forwarder
	resolver  secrets.Resolver
	userID    string
}

// NewUserTransport returns a Transport that forwards on behalf of userID.
func NewUserTransport(forwarder proxy.Forwarder, resolver secrets.Resolver, userID string) Transport {
	return &userTransport{
		forwarder: forwarder,
		resolver:  resolver,
		userID:    userID,
	}
}

func (t *userTransport) Do(ctx context.Context, req *models.ProxyRequest) (*models.ProxyResponse, error) {
	return t.forwarder.Forward(ctx, t.userID, req)
}

func (t *userTransport) BaseURL(ctx context.Context) (string, error) {
	creds, err := t.resolver.Resolve(ctx, t.userID)
	if err != nil {
		return "", err
	}
	return creds.BaseURL, nil
}
