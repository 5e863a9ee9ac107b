package models

import "time"

// ConnectionStatus is the result of the most recent health check.
type ConnectionStatus string

const (
	ConnectionStatusChecking     ConnectionStatus = "checking"
	ConnectionStatusConnected    ConnectionStatus = "connected"
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
	ConnectionStatusError        ConnectionStatus = "error"
)

// ConnectionPhase is what the config flow is currently doing.
type ConnectionPhase string

const (
	ConnectionPhaseIdle    ConnectionPhase = "idle"
	ConnectionPhaseTesting ConnectionPhase = "testing"
	ConnectionPhaseSaving  ConnectionPhase = "saving"
)

// HealthResult is the outcome of one health check.
type HealthResult struct {
	Status    ConnectionStatus `json:"status"`
	Error     string           `json:"error,omitempty"`
	CheckedAt time.Time        `json:"checkedAt"`
	// Err is the failure behind a non-connected status, kept for callers that
	// need to propagate it. It is never serialized.
	Err error `json:"-"`
}

// ConnectionState is the per-user state of the config flow.
type ConnectionState struct {
	UserID    string           `json:"userId"`
	Phase     ConnectionPhase  `json:"phase"`
	Status    ConnectionStatus `json:"status"`
	LastError string           `json:"lastError,omitempty"`
	CheckedAt *time.Time       `json:"checkedAt,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// NewConnectionState returns the state of a user that never ran a check.
func NewConnectionState(userID string) *ConnectionState {
	return &ConnectionState{
		UserID:    userID,
		Phase:     ConnectionPhaseIdle,
		Status:    ConnectionStatusDisconnected,
		UpdatedAt: time.Now().UTC(),
	}
}
