package connection_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/marketingops/n8n-gateway/internal/domain/errors"
	"github.com/marketingops/n8n-gateway/internal/domain/models"
	rediscache "github.com/marketingops/n8n-gateway/internal/infrastructure/cache/redis"
	"github.com/marketingops/n8n-gateway/internal/mocks"
	"github.com/marketingops/n8n-gateway/internal/services/connection"
	"github.com/marketingops/n8n-gateway/internal/services/n8n"
)

// probeTransport answers the health probe with a fixed outcome and records
// the connection status seen while the probe is in flight.
type probeTransport struct {
	err      error
	cancel   context.CancelFunc
	calls    int
	observe  func() models.ConnectionStatus
	observed models.ConnectionStatus
}

func (p *probeTransport) Do(ctx context.Context, req *models.ProxyRequest) (*models.ProxyResponse, error) {
	p.calls++
	if p.observe != nil {
		p.observed = p.observe()
	}
	if p.cancel != nil {
		p.cancel()
		return nil, domainerrors.NewTransportError(ctx.Err())
	}
	if p.err != nil {
		return nil, p.err
	}
	return &models.ProxyResponse{StatusCode: http.StatusOK, ContentType: "application/json", Body: []byte(`{"data":[]}`)}, nil
}

func (p *probeTransport) BaseURL(ctx context.Context) (string, error) {
	return "http://localhost:5678", nil
}

func newCoordinator(t *testing.T, transport *probeTransport) (*connection.Coordinator, *mocks.MockResolver, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	cacheClient, err := rediscache.NewClient(rediscache.Config{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	t.Cleanup(func() {
		cacheClient.Close()
		mr.Close()
	})

	resolver := new(mocks.MockResolver)
	coordinator, err := connection.NewCoordinator(&connection.Config{
		CacheClient: cacheClient,
		Resolver:    resolver,
		Transports:  func(userID string) n8n.Transport { return transport },
		TTL:         time.Minute,
	})
	require.NoError(t, err)

	transport.observe = func() models.ConnectionStatus {
		state, err := coordinator.State(context.Background(), "user-1")
		require.NoError(t, err)
		return state.Status
	}

	return coordinator, resolver, mr
}

func TestNewCoordinator_Validation(t *testing.T) {
	_, err := connection.NewCoordinator(nil)
	assert.ErrorContains(t, err, "config is required")

	_, err = connection.NewCoordinator(&connection.Config{})
	assert.ErrorContains(t, err, "cache client is required")
}

func TestState_InitiallyIdleAndDisconnected(t *testing.T) {
	coordinator, _, _ := newCoordinator(t, &probeTransport{})

	state, err := coordinator.State(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, models.ConnectionPhaseIdle, state.Phase)
	assert.Equal(t, models.ConnectionStatusDisconnected, state.Status)
	assert.Nil(t, state.CheckedAt)
}

func TestTest_Connected(t *testing.T) {
	transport := &probeTransport{}
	coordinator, _, _ := newCoordinator(t, transport)

	state, health, err := coordinator.Test(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusConnected, health.Status)
	assert.Equal(t, models.ConnectionStatusChecking, transport.observed)
	assert.Equal(t, models.ConnectionPhaseIdle, state.Phase)
	assert.Equal(t, models.ConnectionStatusConnected, state.Status)
	assert.NotNil(t, state.CheckedAt)
}

func TestTest_FailureRecordsError(t *testing.T) {
	transport := &probeTransport{err: domainerrors.NewUpstreamError(http.StatusUnauthorized, `{"message":"unauthorized"}`)}
	coordinator, _, _ := newCoordinator(t, transport)

	state, health, err := coordinator.Test(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusError, health.Status)
	assert.Equal(t, models.ConnectionStatusError, state.Status)
	assert.Contains(t, state.LastError, "unauthorized")
}

func TestTest_ClientGoneMidCheckStillSettles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	transport := &probeTransport{cancel: cancel}
	coordinator, _, _ := newCoordinator(t, transport)

	state, health, err := coordinator.Test(ctx, "user-1")

	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusError, health.Status)
	assert.Equal(t, models.ConnectionPhaseIdle, state.Phase)
	assert.Equal(t, models.ConnectionStatusError, state.Status)

	stored, err := coordinator.State(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionPhaseIdle, stored.Phase)
	assert.Equal(t, models.ConnectionStatusError, stored.Status)
	assert.NotNil(t, stored.CheckedAt)
}

func TestSave_ClientGoneMidCheckStillSettles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	transport := &probeTransport{cancel: cancel}
	coordinator, resolver, _ := newCoordinator(t, transport)
	resolver.On("Save", mock.Anything, "user-1", "key", "").
		Return(&models.N8NSecrets{APIKey: "key", BaseURL: models.DefaultN8NBaseURL}, nil)

	result, err := coordinator.Save(ctx, "user-1", "key", "")

	require.Error(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Saved)
	assert.False(t, result.Verified)

	stored, err := coordinator.State(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionPhaseIdle, stored.Phase)
	assert.Equal(t, models.ConnectionStatusError, stored.Status)
}

func TestSave_Verified(t *testing.T) {
	transport := &probeTransport{}
	coordinator, resolver, _ := newCoordinator(t, transport)
	resolver.On("Save", mock.Anything, "user-1", "good-key", "https://n8n.example.com").
		Return(&models.N8NSecrets{APIKey: "good-key", BaseURL: "https://n8n.example.com", Source: models.SecretSourceSecrets}, nil)

	result, err := coordinator.Save(context.Background(), "user-1", "good-key", "https://n8n.example.com")

	require.NoError(t, err)
	assert.True(t, result.Saved)
	assert.True(t, result.Verified)
	assert.Equal(t, models.ConnectionStatusConnected, result.State.Status)
	assert.Equal(t, models.ConnectionPhaseIdle, result.State.Phase)
	assert.Equal(t, 1, transport.calls)
}

func TestSave_FailedCheckIsNotSuccess(t *testing.T) {
	// Arrange
	transport := &probeTransport{err: domainerrors.NewUpstreamError(http.StatusUnauthorized, "invalid api key")}
	coordinator, resolver, _ := newCoordinator(t, transport)
	resolver.On("Save", mock.Anything, "user-1", "bad-key", "").
		Return(&models.N8NSecrets{APIKey: "bad-key", BaseURL: models.DefaultN8NBaseURL}, nil)

	// Act
	result, err := coordinator.Save(context.Background(), "user-1", "bad-key", "")

	// Assert
	require.Error(t, err)
	assert.True(t, domainerrors.IsUpstreamError(err))
	require.NotNil(t, result)
	assert.True(t, result.Saved, "persistence happened")
	assert.False(t, result.Verified)
	assert.Equal(t, models.ConnectionStatusError, result.State.Status)
	resolver.AssertCalled(t, "Save", mock.Anything, "user-1", "bad-key", "")

	state, err := coordinator.State(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusError, state.Status)
	assert.Equal(t, models.ConnectionPhaseIdle, state.Phase)
}

func TestSave_EmptyKeyPersistsNothing(t *testing.T) {
	transport := &probeTransport{}
	coordinator, resolver, mr := newCoordinator(t, transport)

	result, err := coordinator.Save(context.Background(), "user-1", "  ", "https://n8n.example.com")

	assert.Nil(t, result)
	assert.True(t, domainerrors.IsValidationError(err))
	resolver.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 0, transport.calls)
	assert.False(t, mr.Exists("connection:user-1"))
}

func TestSave_PersistFailureSkipsCheck(t *testing.T) {
	transport := &probeTransport{}
	coordinator, resolver, _ := newCoordinator(t, transport)
	resolver.On("Save", mock.Anything, "user-1", "key", "").
		Return(nil, domainerrors.NewInternalError("failed to save n8n credentials", errors.New("db down")))

	result, err := coordinator.Save(context.Background(), "user-1", "key", "")

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, 0, transport.calls)

	state, err := coordinator.State(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionPhaseIdle, state.Phase)
	assert.Equal(t, models.ConnectionStatusDisconnected, state.Status)
}

func TestState_ExpiresWithTTL(t *testing.T) {
	coordinator, _, mr := newCoordinator(t, &probeTransport{})
	_, _, err := coordinator.Test(context.Background(), "user-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	state, err := coordinator.State(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusDisconnected, state.Status)
}
