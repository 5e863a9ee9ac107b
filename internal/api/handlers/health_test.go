package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/marketingops/n8n-gateway/internal/api/handlers"
	"github.com/marketingops/n8n-gateway/internal/mocks"
	"github.com/marketingops/n8n-gateway/internal/testutil"
)

func newHealthRouter(mockCache *mocks.MockCache, mockStore *mocks.MockSecretStore) http.Handler {
	handler := handlers.NewHealthHandler(mockCache, mockStore)

	router := testutil.SetupTestRouter()
	router.GET("/health", handler.Health)
	router.GET("/ready", handler.Ready)
	router.GET("/live", handler.Live)
	return router
}

func TestHealthHandler_Health_AllHealthy(t *testing.T) {
	mockCache := new(mocks.MockCache)
	mockStore := new(mocks.MockSecretStore)
	mockCache.On("Ping", mock.Anything).Return(nil)
	mockStore.On("Ping", mock.Anything).Return(nil)

	w := testutil.PerformRequest(newHealthRouter(mockCache, mockStore), http.MethodGet, "/health", nil, nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)

	var response handlers.HealthResponse
	testutil.ParseJSONResponse(t, w, &response)

	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "healthy", response.Components["cache"])
	assert.Equal(t, "healthy", response.Components["secrets"])

	mockCache.AssertExpectations(t)
	mockStore.AssertExpectations(t)
}

func TestHealthHandler_Health_StoreUnhealthy(t *testing.T) {
	mockCache := new(mocks.MockCache)
	mockStore := new(mocks.MockSecretStore)
	mockCache.On("Ping", mock.Anything).Return(nil)
	mockStore.On("Ping", mock.Anything).Return(assert.AnError)

	w := testutil.PerformRequest(newHealthRouter(mockCache, mockStore), http.MethodGet, "/health", nil, nil)

	testutil.AssertStatusCode(t, http.StatusServiceUnavailable, w)

	var response handlers.HealthResponse
	testutil.ParseJSONResponse(t, w, &response)

	assert.Equal(t, "unhealthy", response.Status)
	assert.Equal(t, "healthy", response.Components["cache"])
	assert.Equal(t, "unhealthy", response.Components["secrets"])
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name       string
		cacheErr   error
		storeErr   error
		wantStatus int
		wantReason string
	}{
		{name: "ready", wantStatus: http.StatusOK},
		{name: "cache down", cacheErr: assert.AnError, wantStatus: http.StatusServiceUnavailable, wantReason: "cache unavailable"},
		{name: "store down", storeErr: assert.AnError, wantStatus: http.StatusServiceUnavailable, wantReason: "secret store unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCache := new(mocks.MockCache)
			mockStore := new(mocks.MockSecretStore)
			mockCache.On("Ping", mock.Anything).Return(tt.cacheErr)
			mockStore.On("Ping", mock.Anything).Return(tt.storeErr).Maybe()

			w := testutil.PerformRequest(newHealthRouter(mockCache, mockStore), http.MethodGet, "/ready", nil, nil)

			testutil.AssertStatusCode(t, tt.wantStatus, w)
			var response map[string]string
			testutil.ParseJSONResponse(t, w, &response)
			assert.Equal(t, tt.wantReason, response["reason"])
		})
	}
}

func TestHealthHandler_Live(t *testing.T) {
	w := testutil.PerformRequest(newHealthRouter(new(mocks.MockCache), new(mocks.MockSecretStore)), http.MethodGet, "/live", nil, nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}
