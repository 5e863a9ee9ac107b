// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import "encoding/json"

// ProxyRequest is the body of POST /functions/v1/n8n-proxy.
type ProxyRequest struct {
	Path   string          `json:"path" binding:"required"`
	Method string          `json:"method"`
	Body   json.RawMessage `json:"body,omitempty" swaggertype:"object"`
}

// SaveConfigRequest is the body of PUT /api/v1/n8n/config.
type SaveConfigRequest struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url" binding:"omitempty,url"`
}
