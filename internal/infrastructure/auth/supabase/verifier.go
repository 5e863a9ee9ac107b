// Package supabase verifies bearer tokens against the Supabase auth API.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/marketingops/n8n-gateway/internal/core/auth"
	"github.com/marketingops/n8n-gateway/internal/domain/models"
)

// VerifierConfig holds the configuration for the remote verifier.
type VerifierConfig struct {
	// URL is the Supabase project URL, e.g. https://xyz.supabase.co.
	URL        string
	AnonKey    string
	HTTPClient *http.Client
}

// Verifier asks GET /auth/v1/user who a token belongs to.
type Verifier struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// NewVerifier creates a new remote verifier.
func NewVerifier(config *VerifierConfig) (*Verifier, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if config.AnonKey == "" {
		return nil, fmt.Errorf("supabase anon key is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 10 * time.Second,
		}
	}

	return &Verifier{
		baseURL:    strings.TrimRight(config.URL, "/"),
		anonKey:    config.AnonKey,
		httpClient: httpClient,
	}, nil
}

// Verify returns the user behind the token. Any 401 or 403 from Supabase
// means the token is not valid.
func (v *Verifier) Verify(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, auth.ErrInvalidToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", v.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach supabase auth: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, auth.ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("supabase auth returned status %d: %s", resp.StatusCode, string(body))
	}

	var user userResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode supabase user: %w", err)
	}
	if user.ID == "" {
		return nil, auth.ErrInvalidToken
	}

	return &models.User{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
	}, nil
}
