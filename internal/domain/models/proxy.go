package models

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ProxyRequest is one call to relay to the n8n REST API.
// Path is relative to /api/v1 and may carry a query string.
type ProxyRequest struct {
	Method string          `json:"method"`
	Path   string          `json:"path"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// ProxyResponse is the upstream answer, relayed verbatim.
type ProxyResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsSuccess reports whether the upstream status is 2xx.
func (r *ProxyResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsJSON reports whether the upstream declared a JSON body.
func (r *ProxyResponse) IsJSON() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "json")
}

// AllowsBody reports whether a request body may be sent with the method.
func AllowsBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return false
	}
	return true
}
