package vault

// Type represents the type of vault.
type Type string

const (
	// TypeDotEnv reads secrets from the process environment (loaded from .env).
	TypeDotEnv Type = "dotenv"
)

// Well-known secret keys.
const (
	KeyN8NDefaultAPIKey  = "N8N_DEFAULT_API_KEY"
	KeyN8NDefaultBaseURL = "N8N_DEFAULT_BASE_URL"
	KeyEncryptionKey     = "SECRETS_ENCRYPTION_KEY"
)
