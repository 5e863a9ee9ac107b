package models

import (
	"encoding/json"
	"time"
)

// Workflow is an n8n workflow as returned by the public API.
// It is owned by n8n; the gateway never persists it.
type Workflow struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Active      bool            `json:"active"`
	Nodes       []WorkflowNode  `json:"nodes,omitempty"`
	Connections json.RawMessage `json:"connections,omitempty"`
	Tags        []WorkflowTag   `json:"tags,omitempty"`
	CreatedAt   *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
}

// WorkflowNode is a single node of a workflow.
type WorkflowNode struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	TypeVersion float64         `json:"typeVersion,omitempty"`
	Position    []float64       `json:"position,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// WorkflowTag is a tag attached to a workflow.
type WorkflowTag struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// WorkflowListResponse is the paginated shape of GET /workflows.
type WorkflowListResponse struct {
	Data       []Workflow `json:"data"`
	NextCursor string     `json:"nextCursor,omitempty"`
}
