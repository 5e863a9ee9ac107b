// Package auth defines bearer token verification.
package auth

import (
	"context"
	"errors"

	"github.com/marketingops/n8n-gateway/internal/domain/models"
)

// ErrInvalidToken is returned for any token that does not identify a user.
var ErrInvalidToken = errors.New("invalid or expired token")

// Type selects the verifier implementation.
type Type string

const (
	// TypeJWT verifies Supabase access tokens locally with the project JWT secret.
	TypeJWT Type = "jwt"
	// TypeSupabase asks the Supabase auth API who the token belongs to.
	TypeSupabase Type = "supabase"
)

// Verifier turns a bearer token into the user it was issued to.
type Verifier interface {
	Verify(ctx context.Context, token string) (*models.User, error)
}
