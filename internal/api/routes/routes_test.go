package routes_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marketingops/n8n-gateway/internal/api/handlers"
	"github.com/marketingops/n8n-gateway/internal/api/middleware"
	"github.com/marketingops/n8n-gateway/internal/api/routes"
	"github.com/marketingops/n8n-gateway/internal/core/auth"
	domainerrors "github.com/marketingops/n8n-gateway/internal/domain/errors"
	"github.com/marketingops/n8n-gateway/internal/domain/models"
	rediscache "github.com/marketingops/n8n-gateway/internal/infrastructure/cache/redis"
	"github.com/marketingops/n8n-gateway/internal/mocks"
	"github.com/marketingops/n8n-gateway/internal/services/connection"
	"github.com/marketingops/n8n-gateway/internal/services/n8n"
	"github.com/marketingops/n8n-gateway/internal/testutil"
)

type fixture struct {
	router    http.Handler
	verifier  *mocks.MockVerifier
	forwarder *mocks.MockForwarder
	resolver  *mocks.MockResolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	cacheClient, err := rediscache.NewClient(rediscache.Config{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	t.Cleanup(func() {
		cacheClient.Close()
		mr.Close()
	})

	f := &fixture{
		verifier:  new(mocks.MockVerifier),
		forwarder: new(mocks.MockForwarder),
		resolver:  new(mocks.MockResolver),
	}
	f.verifier.On("Verify", mock.Anything, testutil.TestToken).Return(testutil.NewTestUser(), nil)
	f.verifier.On("Verify", mock.Anything, mock.Anything).Return(nil, auth.ErrInvalidToken)

	transports := func(userID string) n8n.Transport {
		return n8n.NewUserTransport(f.forwarder, f.resolver, userID)
	}
	coordinator, err := connection.NewCoordinator(&connection.Config{
		CacheClient: cacheClient,
		Resolver:    f.resolver,
		Transports:  transports,
		TTL:         time.Minute,
	})
	require.NoError(t, err)

	store := new(mocks.MockSecretStore)
	store.On("Ping", mock.Anything).Return(nil)

	router := testutil.SetupTestRouter()
	routes.SetupWithMiddleware(router, &routes.Config{
		HealthHandler:     handlers.NewHealthHandler(cacheClient, store),
		FunctionsHandler:  handlers.NewFunctionsHandler(f.forwarder, f.resolver),
		WorkflowsHandler:  handlers.NewWorkflowsHandler(transports),
		ConnectionHandler: handlers.NewConnectionHandler(coordinator),
		AuthMiddleware:    middleware.NewAuthMiddleware(f.verifier),
		CORS:              middleware.DefaultCORSConfig(),
	}, middleware.NewLoggingMiddleware(), middleware.NewErrorMiddleware())
	f.router = router

	return f
}

func TestProtectedRoutes_RejectWithoutValidToken(t *testing.T) {
	protected := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodPost, "/functions/v1/n8n-proxy", `{"path":"/workflows"}`},
		{http.MethodGet, "/functions/v1/get-n8n-secrets", nil},
		{http.MethodGet, "/functions/v1/debug-n8n-api", nil},
		{http.MethodGet, "/api/v1/n8n/workflows", nil},
		{http.MethodPost, "/api/v1/n8n/workflows/1/activate", nil},
		{http.MethodPost, "/api/v1/n8n/workflows/1/deactivate", nil},
		{http.MethodDelete, "/api/v1/n8n/workflows/1", nil},
		{http.MethodGet, "/api/v1/n8n/workflows/1/url", nil},
		{http.MethodGet, "/api/v1/n8n/connection", nil},
		{http.MethodPost, "/api/v1/n8n/connection/test", nil},
		{http.MethodPut, "/api/v1/n8n/config", `{"api_key":"k"}`},
	}
	headers := []struct {
		name    string
		headers map[string]string
	}{
		{"missing", nil},
		{"not bearer", map[string]string{"Authorization": "Basic abc"}},
		{"empty bearer", map[string]string{"Authorization": "Bearer "}},
		{"invalid token", testutil.BearerHeaders("forged")},
	}

	f := newFixture(t)
	for _, route := range protected {
		for _, h := range headers {
			t.Run(route.method+" "+route.path+" "+h.name, func(t *testing.T) {
				w := testutil.PerformRequest(f.router, route.method, route.path, route.body, h.headers)

				testutil.AssertStatusCode(t, http.StatusUnauthorized, w)

				var response middleware.ErrorResponse
				testutil.ParseJSONResponse(t, w, &response)
				assert.Equal(t, domainerrors.ErrCodeUnauthorized, response.Code)
			})
		}
	}

	f.forwarder.AssertNotCalled(t, "Forward", mock.Anything, mock.Anything, mock.Anything)
	f.resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
	f.resolver.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProxyRoute_AuthenticatedCallForwards(t *testing.T) {
	f := newFixture(t)
	f.forwarder.On("Forward", mock.Anything, testutil.TestUserID, mock.Anything).
		Return(&models.ProxyResponse{StatusCode: http.StatusOK, ContentType: "application/json", Body: []byte(`{"data":[]}`)}, nil)

	w := testutil.PerformRequest(f.router, http.MethodPost, "/functions/v1/n8n-proxy",
		`{"path":"/workflows?limit=100"}`, testutil.BearerHeaders(testutil.TestToken))

	testutil.AssertStatusCode(t, http.StatusOK, w)
	assert.Equal(t, `{"data":[]}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	f.forwarder.AssertNumberOfCalls(t, "Forward", 1)
}

func TestWorkflowURLRoute_UsesResolvedBaseURL(t *testing.T) {
	f := newFixture(t)
	f.resolver.On("Resolve", mock.Anything, testutil.TestUserID).
		Return(&models.N8NSecrets{APIKey: "k", BaseURL: testutil.TestBaseURL, Source: models.SecretSourceSecrets}, nil)

	w := testutil.PerformRequest(f.router, http.MethodGet, "/api/v1/n8n/workflows/abc/url", nil, testutil.BearerHeaders(testutil.TestToken))

	testutil.AssertStatusCode(t, http.StatusOK, w)
	assert.JSONEq(t, `{"url":"https://n8n.example.com/workflow/abc"}`, w.Body.String())
}

func TestPreflight_AnyPathAnswersWithCORS(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/functions/v1/n8n-proxy", "/api/v1/n8n/config", "/unknown"} {
		w := testutil.PerformRequest(f.router, http.MethodOptions, path, nil, map[string]string{
			"Origin":                        "https://dashboard.example.com",
			"Access-Control-Request-Method": http.MethodPost,
		})

		assert.Equal(t, http.StatusNoContent, w.Code, path)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"), path)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization", path)
	}
	f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestHealthRoutes_NoAuthRequired(t *testing.T) {
	f := newFixture(t)

	w := testutil.PerformRequest(f.router, http.MethodGet, "/health", nil, nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)
	f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestUnknownRoute_NotFoundEnvelope(t *testing.T) {
	f := newFixture(t)

	w := testutil.PerformRequest(f.router, http.MethodGet, "/nope", nil, nil)

	testutil.AssertStatusCode(t, http.StatusNotFound, w)

	var response middleware.ErrorResponse
	testutil.ParseJSONResponse(t, w, &response)
	assert.Equal(t, domainerrors.ErrCodeNotFound, response.Code)
	assert.Equal(t, "/nope", response.Details)
}
