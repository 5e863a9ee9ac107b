package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketingops/n8n-gateway/internal/api/dto"
	"github.com/marketingops/n8n-gateway/internal/api/handlers"
	domainerrors "github.com/marketingops/n8n-gateway/internal/domain/errors"
	"github.com/marketingops/n8n-gateway/internal/domain/models"
	"github.com/marketingops/n8n-gateway/internal/services/n8n"
	"github.com/marketingops/n8n-gateway/internal/testutil"
)

type routeResult struct {
	resp *models.ProxyResponse
	err  error
}

// routeTransport answers "METHOD path" with canned results and records calls.
type routeTransport struct {
	mu      sync.Mutex
	routes  map[string]routeResult
	baseURL string
	calls   []string
}

func newRouteTransport() *routeTransport {
	return &routeTransport{routes: map[string]routeResult{}, baseURL: testutil.TestBaseURL}
}

func (f *routeTransport) on(method, path string, status int, body string) *routeTransport {
	result := routeResult{resp: &models.ProxyResponse{StatusCode: status, ContentType: "application/json", Body: []byte(body)}}
	if status >= 300 {
		result.err = domainerrors.NewUpstreamError(status, body)
	}
	f.routes[method+" "+path] = result
	return f
}

func (f *routeTransport) fail(method, path string, err error) *routeTransport {
	f.routes[method+" "+path] = routeResult{err: err}
	return f
}

func (f *routeTransport) Do(ctx context.Context, req *models.ProxyRequest) (*models.ProxyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := req.Method + " " + req.Path
	f.calls = append(f.calls, key)
	result, ok := f.routes[key]
	if !ok {
		return nil, domainerrors.NewUpstreamError(http.StatusNotFound, "no route "+key)
	}
	return result.resp, result.err
}

func (f *routeTransport) BaseURL(ctx context.Context) (string, error) {
	return f.baseURL, nil
}

func (f *routeTransport) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newWorkflowsRouter(transport n8n.Transport) http.Handler {
	handler := handlers.NewWorkflowsHandler(func(userID string) n8n.Transport { return transport })

	router := testutil.SetupTestRouter()
	group := router.Group("/api/v1/n8n/workflows", withUser())
	group.GET("", handler.List)
	group.POST("/:id/activate", handler.Activate)
	group.POST("/:id/deactivate", handler.Deactivate)
	group.DELETE("/:id", handler.Delete)
	group.GET("/:id/url", handler.URL)
	return router
}

func TestWorkflowsHandler_List(t *testing.T) {
	transport := newRouteTransport().
		on(http.MethodGet, "/workflows?limit=100", http.StatusOK, `{"data":[{"id":"1","name":"Leads","active":true},{"id":"2","name":"Digest","active":false}]}`)

	w := testutil.PerformRequest(newWorkflowsRouter(transport), http.MethodGet, "/api/v1/n8n/workflows", nil, nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)

	var response dto.WorkflowListResponse
	testutil.ParseJSONResponse(t, w, &response)
	require.Len(t, response.Data, 2)
	assert.Equal(t, 2, response.Count)
	assert.Equal(t, "Leads", response.Data[0].Name)
	assert.True(t, response.Data[0].Active)
}

func TestWorkflowsHandler_List_BareArray(t *testing.T) {
	body, err := json.Marshal(testutil.NewTestWorkflows(3))
	require.NoError(t, err)
	transport := newRouteTransport().on(http.MethodGet, "/workflows?limit=100", http.StatusOK, string(body))

	w := testutil.PerformRequest(newWorkflowsRouter(transport), http.MethodGet, "/api/v1/n8n/workflows", nil, nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)

	var response dto.WorkflowListResponse
	testutil.ParseJSONResponse(t, w, &response)
	require.Len(t, response.Data, 3)
	assert.Equal(t, "wf-2", response.Data[2].ID)
	assert.False(t, response.Data[0].Active)
}

func TestWorkflowsHandler_List_EmptyIsArray(t *testing.T) {
	transport := newRouteTransport().on(http.MethodGet, "/workflows?limit=100", http.StatusOK, `{"data":[]}`)

	w := testutil.PerformRequest(newWorkflowsRouter(transport), http.MethodGet, "/api/v1/n8n/workflows", nil, nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)
	assert.JSONEq(t, `{"data":[],"count":0}`, w.Body.String())
}

func TestWorkflowsHandler_List_MalformedIsParseError(t *testing.T) {
	transport := newRouteTransport().on(http.MethodGet, "/workflows?limit=100", http.StatusOK, `<html>`)

	w := testutil.PerformRequest(newWorkflowsRouter(transport), http.MethodGet, "/api/v1/n8n/workflows", nil, nil)

	testutil.AssertStatusCode(t, http.StatusBadGateway, w)
	assert.Contains(t, w.Body.String(), domainerrors.ErrCodeParse)
}

func TestWorkflowsHandler_Activate(t *testing.T) {
	transport := newRouteTransport().
		on(http.MethodPost, "/workflows/wf-1/activate", http.StatusOK, `{"id":"wf-1","name":"Leads","active":true}`)

	w := testutil.PerformRequest(newWorkflowsRouter(transport), http.MethodPost, "/api/v1/n8n/workflows/wf-1/activate", nil, nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)

	var workflow models.Workflow
	testutil.ParseJSONResponse(t, w, &workflow)
	assert.Equal(t, "wf-1", workflow.ID)
	assert.True(t, workflow.Active)
}

func TestWorkflowsHandler_Deactivate_UpstreamFailure(t *testing.T) {
	transport := newRouteTransport().
		on(http.MethodPost, "/workflows/wf-1/deactivate", http.StatusBadRequest, `{"message":"cannot deactivate"}`)

	w := testutil.PerformRequest(newWorkflowsRouter(transport), http.MethodPost, "/api/v1/n8n/workflows/wf-1/deactivate", nil, nil)

	testutil.AssertStatusCode(t, http.StatusBadRequest, w)
	assert.Contains(t, w.Body.String(), "cannot deactivate")
}

func TestWorkflowsHandler_Delete(t *testing.T) {
	transport := newRouteTransport().on(http.MethodDelete, "/workflows/wf-9", http.StatusOK, `{"id":"wf-9"}`)

	w := testutil.PerformRequest(newWorkflowsRouter(transport), http.MethodDelete, "/api/v1/n8n/workflows/wf-9", nil, nil)

	testutil.AssertStatusCode(t, http.StatusNoContent, w)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, []string{"DELETE /workflows/wf-9"}, transport.Calls())
}

func TestWorkflowsHandler_Delete_TransportFailure(t *testing.T) {
	transport := newRouteTransport().fail(http.MethodDelete, "/workflows/wf-9", domainerrors.NewTransportError(assert.AnError))

	w := testutil.PerformRequest(newWorkflowsRouter(transport), http.MethodDelete, "/api/v1/n8n/workflows/wf-9", nil, nil)

	testutil.AssertStatusCode(t, http.StatusInternalServerError, w)
	assert.Contains(t, w.Body.String(), domainerrors.ErrCodeTransport)
}

func TestWorkflowsHandler_URL(t *testing.T) {
	transport := newRouteTransport()
	transport.baseURL = "https://n8n.example.com/"

	w := testutil.PerformRequest(newWorkflowsRouter(transport), http.MethodGet, "/api/v1/n8n/workflows/wf-1/url", nil, nil)

	testutil.AssertStatusCode(t, http.StatusOK, w)
	assert.JSONEq(t, `{"url":"https://n8n.example.com/workflow/wf-1"}`, w.Body.String())
	assert.Empty(t, transport.Calls())
}
