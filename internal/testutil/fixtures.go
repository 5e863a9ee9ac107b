package testutil

import (
	"fmt"
	"time"

	"github.com/marketingops/n8n-gateway/internal/domain/models"
)

// Test constants
const (
	TestUserID   = "user-test-def"
	TestToken    = "token-test-123"
	TestAPIKey   = "n8n_api_test_key_0001"
	TestBaseURL  = "https://n8n.example.com"
	TestWorkflow = "wf-test-42"
)

// NewTestUser returns the user the mock verifier hands out for TestToken.
func NewTestUser() *models.User {
	return &models.User{
		ID:    TestUserID,
		Email: "ops@example.com",
		Role:  "authenticated",
	}
}

// NewTestCredential returns a stored n8n credential for TestUserID.
func NewTestCredential() *models.Credential {
	return &models.Credential{
		OwnerID:   TestUserID,
		Provider:  models.ProviderN8N,
		APIKey:    TestAPIKey,
		BaseURL:   TestBaseURL,
		Active:    true,
		UpdatedAt: time.Now().UTC(),
	}
}

// NewTestWorkflows returns count inactive workflows with ids wf-0, wf-1, ...
func NewTestWorkflows(count int) []models.Workflow {
	workflows := make([]models.Workflow, 0, count)
	for i := 0; i < count; i++ {
		workflows = append(workflows, models.Workflow{
			ID:   fmt.Sprintf("wf-%d", i),
			Name: fmt.Sprintf("Workflow %d", i),
		})
	}
	return workflows
}
