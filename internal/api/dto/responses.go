package dto

import (
	"github.com/marketingops/n8n-gateway/internal/domain/models"
)

// SecretsResponse is the answer of GET /functions/v1/get-n8n-secrets.
// APIKey is null when the user has no key of their own; a deployment default
// key is reported through APIKeyPresent only.
type SecretsResponse struct {
	APIKey        *string `json:"api_key"`
	APIKeyPresent bool    `json:"api_key_present"`
	BaseURL       string  `json:"base_url"`
	Source        string  `json:"source"`
}

// NewSecretsResponse converts resolved secrets.
func NewSecretsResponse(s *models.N8NSecrets) SecretsResponse {
	resp := SecretsResponse{
		APIKeyPresent: s.HasAPIKey(),
		BaseURL:       s.BaseURL,
		Source:        string(s.Source),
	}
	if s.HasAPIKey() && !s.DefaultKey {
		key := s.APIKey
		resp.APIKey = &key
	}
	return resp
}

// DebugResponse is the diagnostic report of GET /functions/v1/debug-n8n-api.
type DebugResponse struct {
	BaseURL       string      `json:"base_url"`
	APIKeyPresent bool        `json:"api_key_present"`
	APIKeyPreview string      `json:"api_key_preview,omitempty"`
	Source        string      `json:"source"`
	ProbeURL      string      `json:"probe_url"`
	Probe         *DebugProbe `json:"probe,omitempty"`
}

// DebugProbe is the outcome of the single diagnostic call to n8n.
type DebugProbe struct {
	OK          bool   `json:"ok"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	LatencyMs   int64  `json:"latency_ms"`
	BodyExcerpt string `json:"body_excerpt,omitempty"`
	Code        string `json:"code,omitempty"`
	Error       string `json:"error,omitempty"`
}

// WorkflowListResponse is the answer of GET /api/v1/n8n/workflows.
type WorkflowListResponse struct {
	Data  []models.Workflow `json:"data"`
	Count int               `json:"count"`
}

// WorkflowURLResponse carries an editor deep link.
type WorkflowURLResponse struct {
	URL string `json:"url"`
}

// ConnectionResponse is the coordinator state, plus the check that produced it when one ran.
type ConnectionResponse struct {
	State  *models.ConnectionState `json:"state"`
	Health *models.HealthResult    `json:"health,omitempty"`
}

// SaveConfigResponse reports both halves of a save. On a failed
// verification Error and Code describe the failed check.
type SaveConfigResponse struct {
	Saved    bool                    `json:"saved"`
	Verified bool                    `json:"verified"`
	BaseURL  string                  `json:"base_url,omitempty"`
	Source   string                  `json:"source,omitempty"`
	Health   models.HealthResult     `json:"health"`
	State    *models.ConnectionState `json:"state"`
	Error    string                  `json:"error,omitempty"`
	Code     string                  `json:"code,omitempty"`
	Details  string                  `json:"details,omitempty"`
}
