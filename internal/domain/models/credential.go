// Package models contains the domain models of the n8n gateway.
package models

import "time"

// Provider identifies which third-party service a credential belongs to.
type Provider string

const (
	// ProviderN8N is the n8n workflow automation API.
	ProviderN8N Provider = "n8n"
)

// Secret names used in the generic per-user secrets table.
const (
	SecretNameN8NAPIKey  = "n8n_api_key"
	SecretNameN8NBaseURL = "n8n_base_url"
)

// DefaultN8NBaseURL is used when neither the user nor the deployment configured one.
const DefaultN8NBaseURL = "http://localhost:5678"

// Credential is the stored connection config of one user for one provider.
// At most one active record exists per (OwnerID, Provider).
type Credential struct {
	OwnerID   string    `json:"ownerId" bson:"ownerId"`
	Provider  Provider  `json:"provider" bson:"provider"`
	APIKey    string    `json:"apiKey" bson:"apiKey"`
	BaseURL   string    `json:"baseUrl" bson:"baseUrl"`
	Active    bool      `json:"active" bson:"active"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
	// Source is set by the store that returned or accepted the record.
	Source SecretSource `json:"source,omitempty" bson:"-"`
}

// SecretSource names where resolved secrets came from.
type SecretSource string

const (
	SecretSourceSecrets     SecretSource = "secrets"
	SecretSourceSettings    SecretSource = "settings"
	SecretSourceCredentials SecretSource = "credentials"
	SecretSourceDefault     SecretSource = "default"
)

// N8NSecrets is the effective n8n connection config for a user.
// APIKey is empty when nothing is configured.
type N8NSecrets struct {
	APIKey  string       `json:"apiKey,omitempty"`
	BaseURL string       `json:"baseUrl"`
	Source  SecretSource `json:"source"`
	// DefaultKey is set when APIKey is the deployment default, not the user's own.
	DefaultKey bool `json:"defaultKey,omitempty"`
}

// HasAPIKey reports whether an API key was resolved.
func (s *N8NSecrets) HasAPIKey() bool {
	return s != nil && s.APIKey != ""
}

// User is the authenticated caller.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}
