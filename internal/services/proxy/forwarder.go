// Package proxy relays authenticated calls to a user's n8n REST API.
package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	domainerrors "github.com/marketingops/n8n-gateway/internal/domain/errors"
	"github.com/marketingops/n8n-gateway/internal/domain/models"
	"github.com/marketingops/n8n-gateway/internal/services/secrets"
)

const (
	// APIPrefix is prepended to every forwarded path.
	APIPrefix = "/api/v1"

	// APIKeyHeader carries the user's n8n API key.
	APIKeyHeader = "X-N8N-API-KEY"

	// DefaultTimeout bounds one upstream call.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResponseSize caps how much of an upstream body is buffered.
	DefaultMaxResponseSize = 32 << 20

	maxRedirects = 10
)

// Forwarder sends one request to n8n on behalf of a user.
type Forwarder interface {
	Forward(ctx context.Context, userID string, req *models.ProxyRequest) (*models.ProxyResponse, error)
}

// Config holds the configuration for the forwarder.
type Config struct {
	Resolver   secrets.Resolver
	HTTPClient *http.Client
	// Timeout applies when HTTPClient is nil. Zero means DefaultTimeout; negative disables it.
	Timeout time.Duration
	// MaxResponseSize is the largest upstream body relayed. Zero means DefaultMaxResponseSize.
	MaxResponseSize int64
}

type forwarder struct {
	resolver        secrets.Resolver
	httpClient      *http.Client
	maxResponseSize int64
}

// NewForwarder creates a new forwarder.
func NewForwarder(cfg *Config) (Forwarder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("secrets resolver is required")
	}

	var httpClient http.Client
	if cfg.HTTPClient != nil {
		httpClient = *cfg.HTTPClient
	} else {
		timeout := cfg.Timeout
		switch {
		case timeout == 0:
			timeout = DefaultTimeout
		case timeout < 0:
			timeout = 0
		}
		httpClient.Timeout = timeout
	}
	if httpClient.CheckRedirect == nil {
		httpClient.CheckRedirect = stripKeyOnHostChange
	}

	maxResponseSize := cfg.MaxResponseSize
	if maxResponseSize <= 0 {
		maxResponseSize = DefaultMaxResponseSize
	}

	return &forwarder{
		resolver:        cfg.Resolver,
		httpClient:      &httpClient,
		maxResponseSize: maxResponseSize,
	}, nil
}

// stripKeyOnHostChange follows redirects but never hands the API key to a
// host other than the one the user configured.
func stripKeyOnHostChange(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if req.URL.Host != via[0].URL.Host {
		req.Header.Del(APIKeyHeader)
	}
	return nil
}

// Forward resolves the user's secrets and performs exactly one upstream call.
// Non-2xx answers become UPSTREAM_ERROR with the upstream status and body;
// network failures become TRANSPORT_ERROR.
func (f *forwarder) Forward(ctx context.Context, userID string, req *models.ProxyRequest) (*models.ProxyResponse, error) {
	method, path, err := normalize(req)
	if err != nil {
		return nil, err
	}

	creds, err := f.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !creds.HasAPIKey() {
		return nil, domainerrors.NewConfigurationMissingError("n8n API key not configured")
	}

	url := creds.BaseURL + APIPrefix + path

	var body io.Reader
	if models.AllowsBody(method) && len(req.Body) > 0 && !bytes.Equal(bytes.TrimSpace(req.Body), []byte("null")) {
		body = bytes.NewReader(req.Body)
	}

	upstreamReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, domainerrors.NewBadRequestError("invalid proxy request", err.Error())
	}
	upstreamReq.Header.Set(APIKeyHeader, creds.APIKey)
	upstreamReq.Header.Set("Content-Type", "application/json")
	upstreamReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.httpClient.Do(upstreamReq)
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userID).
			Str("method", method).
			Str("path", path).
			Msg("n8n request failed")
		return nil, domainerrors.NewTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, f.maxResponseSize+1))
	if err != nil {
		return nil, domainerrors.NewTransportError(fmt.Errorf("failed to read n8n response: %w", err))
	}
	if int64(len(respBody)) > f.maxResponseSize {
		log.Error().
			Str("user_id", userID).
			Str("method", method).
			Str("path", path).
			Int64("limit", f.maxResponseSize).
			Msg("n8n response too large")
		return nil, domainerrors.NewTransportError(fmt.Errorf("upstream response exceeds %d bytes", f.maxResponseSize))
	}

	log.Debug().
		Str("user_id", userID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("n8n request forwarded")

	result := &models.ProxyResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}
	if !result.IsSuccess() {
		return result, domainerrors.NewUpstreamError(resp.StatusCode, string(respBody))
	}
	return result, nil
}

// normalize validates the request and returns the upper-cased method and a
// path that starts with a slash.
func normalize(req *models.ProxyRequest) (string, string, error) {
	if req == nil {
		return "", "", domainerrors.NewValidationError("invalid proxy request", "request is required")
	}

	path := strings.TrimSpace(req.Path)
	if path == "" {
		return "", "", domainerrors.NewValidationError("invalid proxy request", "path is required")
	}
	if strings.Contains(path, "://") || strings.HasPrefix(path, "//") {
		return "", "", domainerrors.NewValidationError("invalid proxy request", "path must be relative to the n8n API")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return "", "", domainerrors.NewValidationError("invalid proxy request", fmt.Sprintf("method %s is not allowed", method))
	}

	return method, path, nil
}
