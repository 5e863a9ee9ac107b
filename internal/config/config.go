// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Cache    CacheConfig
	Vault    VaultConfig
	Secrets  SecretsConfig
	Auth     AuthConfig
	N8N      N8NConfig
	Log      LogConfig
	Postgres PostgresConfig
	MongoDB  MongoDBConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host        string `validate:"required"`
	Port        int    `validate:"min=1,max=65535"`
	GinMode     string `validate:"oneof=debug release test"`
	CORSOrigins []string
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig holds cache-related configuration.
type CacheConfig struct {
	Type     string `validate:"oneof=redis"`
	Host     string `validate:"required"`
	Port     string `validate:"required"`
	Password string
	DB       int
	TTL      time.Duration
}

// VaultConfig holds vault configuration.
type VaultConfig struct {
	Type          string `validate:"oneof=dotenv"`
	EncryptionKey string
}

// SecretsConfig selects the credential stores consulted for each user.
// Sources are tried in order; the first one is also where saves go.
type SecretsConfig struct {
	Sources  []string `validate:"min=1,dive,oneof=secrets settings credentials"`
	CacheTTL time.Duration
}

// AuthConfig holds Supabase authentication configuration.
type AuthConfig struct {
	Type      string `validate:"oneof=jwt supabase"`
	JWTSecret string `validate:"required_if=Type jwt"`
	URL       string `validate:"required_if=Type supabase"`
	AnonKey   string `validate:"required_if=Type supabase"`
	Timeout   time.Duration
}

// N8NConfig holds the upstream n8n configuration.
type N8NConfig struct {
	DefaultBaseURL string `validate:"required,url"`
	Timeout        time.Duration
}

// PostgresConfig holds the Postgres connection used by the secrets and settings sources.
type PostgresConfig struct {
	URL            string
	MigrateOnStart bool
}

// MongoDBConfig holds the MongoDB connection used by the credentials source.
type MongoDBConfig struct {
	URI      string
	Database string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `validate:"oneof=trace debug info warn error"`
	Format string `validate:"oneof=json console"`
}

// UsesSource reports whether the named secret source is enabled.
func (c SecretsConfig) UsesSource(name string) bool {
	for _, s := range c.Sources {
		if s == name {
			return true
		}
	}
	return false
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			GinMode:     getEnv("GIN_MODE", "debug"),
			CORSOrigins: getEnvAsList("CORS_ALLOW_ORIGINS", []string{"*"}),
		},
		Cache: CacheConfig{
			Type:     getEnv("CACHE_TYPE", "redis"),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 1800)) * time.Second,
		},
		Vault: VaultConfig{
			Type:          getEnv("VAULT_TYPE", "dotenv"),
			EncryptionKey: getEnv("SECRETS_ENCRYPTION_KEY", ""),
		},
		Secrets: SecretsConfig{
			Sources:  getEnvAsList("SECRET_SOURCES", []string{"secrets", "settings"}),
			CacheTTL: time.Duration(getEnvAsInt("SECRET_CACHE_TTL_SECONDS", 60)) * time.Second,
		},
		Auth: AuthConfig{
			Type:      getEnv("AUTH_TYPE", "jwt"),
			JWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),
			URL:       getEnv("SUPABASE_URL", ""),
			AnonKey:   getEnv("SUPABASE_ANON_KEY", ""),
			Timeout:   time.Duration(getEnvAsInt("SUPABASE_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		N8N: N8NConfig{
			DefaultBaseURL: getEnv("N8N_DEFAULT_BASE_URL", "http://localhost:5678"),
			Timeout:        time.Duration(getEnvAsInt("N8N_PROXY_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Postgres: PostgresConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MigrateOnStart: getEnvAsBool("DATABASE_MIGRATE", true),
		},
		MongoDB: MongoDBConfig{
			URI:      getEnv("MONGODB_URI", ""),
			Database: getEnv("MONGODB_DATABASE", "dashboard"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the struct tags and the cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if (c.Secrets.UsesSource("secrets") || c.Secrets.UsesSource("settings")) && c.Postgres.URL == "" {
		return fmt.Errorf("invalid configuration: DATABASE_URL is required for the secrets and settings sources")
	}
	if c.Secrets.UsesSource("credentials") && c.MongoDB.URI == "" {
		return fmt.Errorf("invalid configuration: MONGODB_URI is required for the credentials source")
	}

	return nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean with a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated environment variable.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
