package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	domainerrors "github.com/marketingops/n8n-gateway/internal/domain/errors"
	"github.com/marketingops/n8n-gateway/internal/domain/models"
)

const (
	// ListLimit is the page size requested by List.
	ListLimit = 100

	// HealthProbePath is the lightweight call used to classify connectivity.
	HealthProbePath = "/workflows?limit=1"
)

// WorkflowClient exposes the workflow operations of the n8n public API.
type WorkflowClient struct {
	transport Transport
}

// NewWorkflowClient creates a client over the given transport.
func NewWorkflowClient(transport Transport) *WorkflowClient {
	return &WorkflowClient{transport: transport}
}

// List returns the workflows in upstream order. The result is a full
// replacement for any previously fetched list.
func (c *WorkflowClient) List(ctx context.Context) ([]models.Workflow, error) {
	resp, err := c.transport.Do(ctx, &models.ProxyRequest{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/workflows?limit=%d", ListLimit),
	})
	if err != nil {
		return nil, err
	}
	return decodeWorkflowList(resp.Body)
}

// Activate turns a workflow on and returns it as reported by n8n.
func (c *WorkflowClient) Activate(ctx context.Context, id string) (*models.Workflow, error) {
	return c.setActive(ctx, id, true)
}

// Deactivate turns a workflow off and returns it as reported by n8n.
func (c *WorkflowClient) Deactivate(ctx context.Context, id string) (*models.Workflow, error) {
	return c.setActive(ctx, id, false)
}

// Delete removes a workflow. It cannot be undone; callers confirm beforehand.
func (c *WorkflowClient) Delete(ctx context.Context, id string) error {
	path, err := workflowPath(id, "")
	if err != nil {
		return err
	}
	_, err = c.transport.Do(ctx, &models.ProxyRequest{Method: http.MethodDelete, Path: path})
	return err
}

// URLFor returns the editor deep link of a workflow.
func (c *WorkflowClient) URLFor(ctx context.Context, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", domainerrors.NewValidationError("invalid workflow id", "id is required")
	}
	baseURL, err := c.transport.BaseURL(ctx)
	if err != nil {
		return "", err
	}
	return WorkflowURL(baseURL, id), nil
}

// WorkflowURL builds <baseURL>/workflow/<id>.
func WorkflowURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/workflow/" + url.PathEscape(id)
}

func (c *WorkflowClient) setActive(ctx context.Context, id string, active bool) (*models.Workflow, error) {
	action := "deactivate"
	if active {
		action = "activate"
	}

	path, err := workflowPath(id, action)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.Do(ctx, &models.ProxyRequest{Method: http.MethodPost, Path: path})
	if err != nil {
		return nil, err
	}

	// Some n8n versions answer with an empty body; the call itself confirms the state.
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return &models.Workflow{ID: id, Active: active}, nil
	}

	var workflow models.Workflow
	if err := json.Unmarshal(resp.Body, &workflow); err != nil {
		return nil, domainerrors.NewParseError("workflow", err)
	}
	if workflow.ID == "" {
		workflow.ID = id
	}
	return &workflow, nil
}

func workflowPath(id, action string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", domainerrors.NewValidationError("invalid workflow id", "id is required")
	}
	path := "/workflows/" + url.PathEscape(id)
	if action != "" {
		path += "/" + action
	}
	return path, nil
}

// decodeWorkflowList accepts both {"data": [...]} and a bare array.
func decodeWorkflowList(body []byte) ([]models.Workflow, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, domainerrors.NewParseError("workflow list", fmt.Errorf("empty response"))
	}

	if trimmed[0] == '[' {
		var workflows []models.Workflow
		if err := json.Unmarshal(trimmed, &workflows); err != nil {
			return nil, domainerrors.NewParseError("workflow list", err)
		}
		return workflows, nil
	}

	var page models.WorkflowListResponse
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, domainerrors.NewParseError("workflow list", err)
	}
	if page.Data == nil {
		return []models.Workflow{}, nil
	}
	return page.Data, nil
}
