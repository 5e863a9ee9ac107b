package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/marketingops/n8n-gateway/internal/api/dto"
	"github.com/marketingops/n8n-gateway/internal/api/handlers"
	"github.com/marketingops/n8n-gateway/internal/api/middleware"
	domainerrors "github.com/marketingops/n8n-gateway/internal/domain/errors"
	"github.com/marketingops/n8n-gateway/internal/domain/models"
	"github.com/marketingops/n8n-gateway/internal/mocks"
	"github.com/marketingops/n8n-gateway/internal/testutil"
)

// withUser stands in for the auth middleware.
func withUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetUser(c, testutil.NewTestUser())
		c.Next()
	}
}

func newFunctionsRouter(forwarder *mocks.MockForwarder, resolver *mocks.MockResolver) http.Handler {
	handler := handlers.NewFunctionsHandler(forwarder, resolver)

	router := testutil.SetupTestRouter()
	group := router.Group("/functions/v1", withUser())
	group.POST("/n8n-proxy", handler.Proxy)
	group.GET("/get-n8n-secrets", handler.Secrets)
	group.GET("/debug-n8n-api", handler.Debug)
	return router
}

func TestFunctionsHandler_Proxy_RelaysUpstreamResponse(t *testing.T) {
	forwarder := new(mocks.MockForwarder)
	forwarder.On("Forward", mock.Anything, testutil.TestUserID, mock.MatchedBy(func(req *models.ProxyRequest) bool {
		return req.Method == "POST" && req.Path == "/workflows" && string(req.Body) == `{"name":"x"}`
	})).Return(&models.ProxyResponse{
		StatusCode:  http.StatusCreated,
		ContentType: "application/json; charset=utf-8",
		Body:        []byte(`{"id":"7",  "name":"x"}`),
	}, nil)

	w := testutil.PerformRequest(newFunctionsRouter(forwarder, new(mocks.MockResolver)), http.MethodPost,
		"/functions/v1/n8n-proxy", `{"path":"/workflows","method":"POST","body":{"name":"x"}}`, nil)

	testutil.AssertStatusCode(t, http.StatusCreated, w)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `{"id":"7",  "name":"x"}`, w.Body.String())
	forwarder.AssertExpectations(t)
}

func TestFunctionsHandler_Proxy_UpstreamErrorKeepsStatus(t *testing.T) {
	forwarder := new(mocks.MockForwarder)
	forwarder.On("Forward", mock.Anything, testutil.TestUserID, mock.Anything).Return(
		&models.ProxyResponse{StatusCode: http.StatusNotFound, Body: []byte(`{"message":"not found"}`)},
		domainerrors.NewUpstreamError(http.StatusNotFound, `{"message":"not found"}`),
	)

	w := testutil.PerformRequest(newFunctionsRouter(forwarder, new(mocks.MockResolver)), http.MethodPost,
		"/functions/v1/n8n-proxy", `{"path":"/workflows/missing"}`, nil)

	testutil.AssertStatusCode(t, http.StatusNotFound, w)

	var response middleware.ErrorResponse
	testutil.ParseJSONResponse(t, w, &response)
	assert.Equal(t, domainerrors.ErrCodeUpstream, response.Code)
	assert.Equal(t, http.StatusNotFound, response.Status)
	assert.Equal(t, `{"message":"not found"}`, response.Details)
}

func TestFunctionsHandler_Proxy_TransportErrorIs500(t *testing.T) {
	forwarder := new(mocks.MockForwarder)
	forwarder.On("Forward", mock.Anything, testutil.TestUserID, mock.Anything).
		Return(nil, domainerrors.NewTransportError(errors.New("connection refused")))

	w := testutil.PerformRequest(newFunctionsRouter(forwarder, new(mocks.MockResolver)), http.MethodPost,
		"/functions/v1/n8n-proxy", `{"path":"/workflows"}`, nil)

	testutil.AssertStatusCode(t, http.StatusInternalServerError, w)

	var response middleware.ErrorResponse
	testutil.ParseJSONResponse(t, w, &response)
	assert.Equal(t, domainerrors.ErrCodeTransport, response.Code)
	assert.Equal(t, "internal error", response.Error)
	assert.Zero(t, response.Status)
}

func TestFunctionsHandler_Proxy_ConfigurationMissing(t *testing.T) {
	forwarder := new(mocks.MockForwarder)
	forwarder.On("Forward", mock.Anything, testutil.TestUserID, mock.Anything).
		Return(nil, domainerrors.NewConfigurationMissingError("n8n API key not configured"))

	w := testutil.PerformRequest(newFunctionsRouter(forwarder, new(mocks.MockResolver)), http.MethodPost,
		"/functions/v1/n8n-proxy", `{"path":"/workflows"}`, nil)

	testutil.AssertStatusCode(t, http.StatusBadRequest, w)
	assert.Contains(t, w.Body.String(), domainerrors.ErrCodeConfigurationMissing)
}

func TestFunctionsHandler_Proxy_InvalidBody(t *testing.T) {
	forwarder := new(mocks.MockForwarder)

	w := testutil.PerformRequest(newFunctionsRouter(forwarder, new(mocks.MockResolver)), http.MethodPost,
		"/functions/v1/n8n-proxy", `{"method":"GET"}`, nil)

	testutil.AssertStatusCode(t, http.StatusBadRequest, w)
	assert.Contains(t, w.Body.String(), domainerrors.ErrCodeValidation)
	forwarder.AssertNotCalled(t, "Forward", mock.Anything, mock.Anything, mock.Anything)
}

func TestFunctionsHandler_Secrets(t *testing.T) {
	tests := []struct {
		name    string
		secrets *models.N8NSecrets
		want    string
	}{
		{
			name:    "configured",
			secrets: &models.N8NSecrets{APIKey: "k-1", BaseURL: testutil.TestBaseURL, Source: models.SecretSourceSecrets},
			want:    `{"api_key":"k-1","api_key_present":true,"base_url":"https://n8n.example.com","source":"secrets"}`,
		},
		{
			name:    "not configured",
			secrets: &models.N8NSecrets{BaseURL: models.DefaultN8NBaseURL, Source: models.SecretSourceDefault},
			want:    `{"api_key":null,"api_key_present":false,"base_url":"http://localhost:5678","source":"default"}`,
		},
		{
			name:    "deployment default key stays server side",
			secrets: &models.N8NSecrets{APIKey: "deploy-key", BaseURL: "https://n8n.internal", Source: models.SecretSourceDefault, DefaultKey: true},
			want:    `{"api_key":null,"api_key_present":true,"base_url":"https://n8n.internal","source":"default"}`,
		},
		{
			name:    "stored base url with deployment key",
			secrets: &models.N8NSecrets{APIKey: "deploy-key", BaseURL: testutil.TestBaseURL, Source: models.SecretSourceSecrets, DefaultKey: true},
			want:    `{"api_key":null,"api_key_present":true,"base_url":"https://n8n.example.com","source":"secrets"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := new(mocks.MockResolver)
			resolver.On("Resolve", mock.Anything, testutil.TestUserID).Return(tt.secrets, nil)

			w := testutil.PerformRequest(newFunctionsRouter(new(mocks.MockForwarder), resolver), http.MethodGet,
				"/functions/v1/get-n8n-secrets", nil, nil)

			testutil.AssertStatusCode(t, http.StatusOK, w)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
}

func TestFunctionsHandler_Debug_ProbesAndMasksKey(t *testing.T) {
	resolver := new(mocks.MockResolver)
	resolver.On("Resolve", mock.Anything, testutil.TestUserID).Return(&models.N8NSecrets{
		APIKey:  "abcd1234efgh5678",
		BaseURL: testutil.TestBaseURL,
		Source:  models.SecretSourceCredentials,
	}, nil)
	forwarder := new(mocks.MockForwarder)
	forwarder.On("Forward", mock.Anything, testutil.TestUserID, &models.ProxyRequest{Method: http.MethodGet, Path: "/workflows?limit=1"}).
		Return(&models.ProxyResponse{StatusCode: http.StatusUnauthorized, ContentType: "application/json", Body: []byte(`{"message":"unauthorized"}`)},
			domainerrors.NewUpstreamError(http.StatusUnauthorized, `{"message":"unauthorized"}`))

	w := testutil.PerformRequest(newFunctionsRouter(forwarder, resolver), http.MethodGet, "/functions/v1/debug-n8n-api", nil, nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)
	assert.NotContains(t, w.Body.String(), "abcd1234efgh5678")

	var report dto.DebugResponse
	testutil.ParseJSONResponse(t, w, &report)
	assert.True(t, report.APIKeyPresent)
	assert.Equal(t, "abcd********5678", report.APIKeyPreview)
	assert.Equal(t, "credentials", report.Source)
	assert.Equal(t, "https://n8n.example.com/api/v1/workflows?limit=1", report.ProbeURL)
	if assert.NotNil(t, report.Probe) {
		assert.False(t, report.Probe.OK)
		assert.Equal(t, http.StatusUnauthorized, report.Probe.Status)
		assert.Equal(t, domainerrors.ErrCodeUpstream, report.Probe.Code)
		assert.Equal(t, `{"message":"unauthorized"}`, report.Probe.BodyExcerpt)
	}
}

func TestFunctionsHandler_Debug_NoKeySkipsProbe(t *testing.T) {
	resolver := new(mocks.MockResolver)
	resolver.On("Resolve", mock.Anything, testutil.TestUserID).
		Return(&models.N8NSecrets{BaseURL: models.DefaultN8NBaseURL, Source: models.SecretSourceDefault}, nil)
	forwarder := new(mocks.MockForwarder)

	w := testutil.PerformRequest(newFunctionsRouter(forwarder, resolver), http.MethodGet, "/functions/v1/debug-n8n-api", nil, nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)

	var report map[string]json.RawMessage
	testutil.ParseJSONResponse(t, w, &report)
	assert.JSONEq(t, "false", string(report["api_key_present"]))
	assert.NotContains(t, report, "probe")
	forwarder.AssertNotCalled(t, "Forward", mock.Anything, mock.Anything, mock.Anything)
}
