package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/marketingops/n8n-gateway/internal/domain/models"
)

// MockResolver is a mock implementation of secrets.Resolver.
type MockResolver struct {
	mock.Mock
}

// Resolve mocks the Resolve method.
func (m *MockResolver) Resolve(ctx context.Context, userID string) (*models.N8NSecrets, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.N8NSecrets), args.Error(1)
}

// Save mocks the Save method.
func (m *MockResolver) Save(ctx context.Context, userID, apiKey, baseURL string) (*models.N8NSecrets, error) {
	args := m.Called(ctx, userID, apiKey, baseURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.N8NSecrets), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockResolver) Delete(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// Invalidate mocks the Invalidate method.
func (m *MockResolver) Invalidate(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
