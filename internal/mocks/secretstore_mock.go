package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/marketingops/n8n-gateway/internal/domain/models"
)

// MockSecretStore is a mock implementation of secretstore.Store.
type MockSecretStore struct {
	mock.Mock
}

// Source returns the configured source name.
func (m *MockSecretStore) Source() models.SecretSource {
	args := m.Called()
	return args.Get(0).(models.SecretSource)
}

// Get mocks the Get method.
func (m *MockSecretStore) Get(ctx context.Context, ownerID string, provider models.Provider) (*models.Credential, error) {
	args := m.Called(ctx, ownerID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Credential), args.Error(1)
}

// Save mocks the Save method.
func (m *MockSecretStore) Save(ctx context.Context, cred *models.Credential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

// Delete mocks the Delete method.
func (m *MockSecretStore) Delete(ctx context.Context, ownerID string, provider models.Provider) (bool, error) {
	args := m.Called(ctx, ownerID, provider)
	return args.Bool(0), args.Error(1)
}

// Ping mocks the Ping method.
func (m *MockSecretStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks the Close method.
func (m *MockSecretStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
