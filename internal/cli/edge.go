// Package cli implements n8nctl, a terminal client for the n8n gateway.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domainerrors "github.com/marketingops/n8n-gateway/internal/domain/errors"
	"github.com/marketingops/n8n-gateway/internal/domain/models"
)

const (
	proxyPath      = "/functions/v1/n8n-proxy"
	secretsPath    = "/functions/v1/get-n8n-secrets"
	connectionPath = "/api/v1/n8n/connection"
	testPath       = "/api/v1/n8n/connection/test"
	configPath     = "/api/v1/n8n/config"

	defaultTimeout = 60 * time.Second
)

// EdgeClient talks to the gateway on behalf of one signed-in user. It
// implements n8n.Transport by sending every call through the proxy route.
type EdgeClient struct {
	server     string
	token      string
	httpClient *http.Client
}

// NewEdgeClient creates a client for the gateway at server.
func NewEdgeClient(server, token string, httpClient *http.Client) *EdgeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &EdgeClient{
		server:     strings.TrimRight(server, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

type proxyBody struct {
	Path   string          `json:"path"`
	Method string          `json:"method,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// errorEnvelope is the gateway's error body.
type errorEnvelope struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details"`
	Status  int    `json:"status"`
}

// Do relays req through the gateway proxy.
func (c *EdgeClient) Do(ctx context.Context, req *models.ProxyRequest) (*models.ProxyResponse, error) {
	payload, err := json.Marshal(proxyBody{Path: req.Path, Method: req.Method, Body: req.Body})
	if err != nil {
		return nil, domainerrors.NewBadRequestError("invalid proxy request", err.Error())
	}

	resp, err := c.send(ctx, http.MethodPost, proxyPath, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return resp, decodeError(resp)
	}
	return resp, nil
}

// BaseURL returns the n8n base URL the gateway resolved for the user.
func (c *EdgeClient) BaseURL(ctx context.Context) (string, error) {
	var secrets struct {
		BaseURL string `json:"base_url"`
	}
	if err := c.call(ctx, http.MethodGet, secretsPath, nil, &secrets); err != nil {
		return "", err
	}
	return secrets.BaseURL, nil
}

// Connection is the coordinator state as reported by the gateway.
type Connection struct {
	State  *models.ConnectionState `json:"state"`
	Health *models.HealthResult    `json:"health,omitempty"`
}

// SaveResult is the outcome of a save as reported by the gateway.
type SaveResult struct {
	Saved    bool                    `json:"saved"`
	Verified bool                    `json:"verified"`
	BaseURL  string                  `json:"base_url"`
	Health   models.HealthResult     `json:"health"`
	State    *models.ConnectionState `json:"state"`
	Error    string                  `json:"error"`
	Code     string                  `json:"code"`
	Details  string                  `json:"details"`
}

// State fetches the current connection state.
func (c *EdgeClient) State(ctx context.Context) (*Connection, error) {
	var conn Connection
	if err := c.call(ctx, http.MethodGet, connectionPath, nil, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// Test asks the gateway to run a health check with the stored settings.
func (c *EdgeClient) Test(ctx context.Context) (*Connection, error) {
	var conn Connection
	if err := c.call(ctx, http.MethodPost, testPath, nil, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// Save stores new settings. A saved but unverified configuration is
// returned together with an error.
func (c *EdgeClient) Save(ctx context.Context, apiKey, baseURL string) (*SaveResult, error) {
	payload, err := json.Marshal(map[string]string{"api_key": apiKey, "base_url": baseURL})
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, http.MethodPut, configPath, payload)
	if err != nil {
		return nil, err
	}

	var result SaveResult
	if jsonErr := json.Unmarshal(resp.Body, &result); jsonErr != nil || !result.Saved {
		if resp.StatusCode >= 300 {
			return nil, decodeError(resp)
		}
		return nil, domainerrors.NewParseError("save response", jsonErr)
	}
	if !result.Verified {
		return &result, &domainerrors.DomainError{
			Code:       result.Code,
			Message:    result.Error,
			Details:    result.Details,
			HTTPStatus: resp.StatusCode,
		}
	}
	return &result, nil
}

func (c *EdgeClient) call(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return domainerrors.NewParseError("gateway response", err)
	}
	return nil
}

func (c *EdgeClient) send(ctx context.Context, method, path string, payload []byte) (*models.ProxyResponse, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.server+path, body)
	if err != nil {
		return nil, domainerrors.NewBadRequestError("invalid gateway request", err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domainerrors.NewTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domainerrors.NewTransportError(fmt.Errorf("failed to read gateway response: %w", err))
	}

	return &models.ProxyResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}

// decodeError turns a gateway error envelope back into a DomainError.
func decodeError(resp *models.ProxyResponse) error {
	var envelope errorEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil || envelope.Code == "" {
		return &domainerrors.DomainError{
			Code:       domainerrors.ErrCodeTransport,
			Message:    fmt.Sprintf("gateway returned status %d", resp.StatusCode),
			Details:    strings.TrimSpace(string(resp.Body)),
			HTTPStatus: resp.StatusCode,
		}
	}
	return &domainerrors.DomainError{
		Code:           envelope.Code,
		Message:        envelope.Error,
		Details:        envelope.Details,
		HTTPStatus:     resp.StatusCode,
		UpstreamStatus: envelope.Status,
	}
}
