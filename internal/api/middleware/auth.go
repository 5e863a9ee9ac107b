// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/marketingops/n8n-gateway/internal/core/auth"
	domainerrors "github.com/marketingops/n8n-gateway/internal/domain/errors"
	"github.com/marketingops/n8n-gateway/internal/domain/models"
)

const (
	contextKeyToken = "auth_token"
	contextKeyUser  = "user"
)

// AuthMiddleware verifies the bearer token of every protected request.
type AuthMiddleware struct {
	verifier auth.Verifier
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(verifier auth.Verifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Authenticate returns a gin middleware that validates the Bearer token.
// Requests without a valid token are aborted before any handler runs.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			HandleError(c, domainerrors.NewUnauthorizedError("missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			HandleError(c, domainerrors.NewUnauthorizedError("invalid authorization header format"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			HandleError(c, domainerrors.NewUnauthorizedError("empty token"))
			return
		}

		user, err := m.verifier.Verify(c.Request.Context(), token)
		if err != nil || user == nil || user.ID == "" {
			logger := GetRequestLogger(c)
			logger.Debug().Err(err).Msg("token rejected")
			HandleError(c, domainerrors.NewUnauthorizedError("invalid or expired token"))
			return
		}

		c.Set(contextKeyToken, token)
		SetUser(c, user)
		c.Set("logger", GetRequestLogger(c).With().Str("user_id", user.ID).Logger())

		c.Next()
	}
}

// GetToken retrieves the auth token from the gin context.
func GetToken(c *gin.Context) string {
	return c.GetString(contextKeyToken)
}

// SetUser stores the authenticated user on the gin context.
func SetUser(c *gin.Context, user *models.User) {
	c.Set(contextKeyUser, user)
}

// GetUser retrieves the authenticated user from the gin context.
func GetUser(c *gin.Context) *models.User {
	if user, exists := c.Get(contextKeyUser); exists {
		if u, ok := user.(*models.User); ok {
			return u
		}
	}
	return nil
}

// GetUserID returns the id of the authenticated user, or "".
func GetUserID(c *gin.Context) string {
	if user := GetUser(c); user != nil {
		return user.ID
	}
	return ""
}
