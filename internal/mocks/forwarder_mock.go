package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/marketingops/n8n-gateway/internal/domain/models"
)

// MockForwarder is a mock implementation of proxy.Forwarder.
type MockForwarder struct {
	mock.Mock
}

// Forward mocks the Forward method.
func (m *MockForwarder) Forward(ctx context.Context, userID string, req *models.ProxyRequest) (*models.ProxyResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProxyResponse), args.Error(1)
}
