// Package main is the entry point for the n8n gateway.
// @title n8n Gateway API
// @version 1.0
// @description Per-user n8n proxy, connection settings and workflow operations for the marketing-operations dashboard

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Supabase access token
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/marketingops/n8n-gateway/docs"
	"github.com/marketingops/n8n-gateway/internal/api/handlers"
	"github.com/marketingops/n8n-gateway/internal/api/middleware"
	"github.com/marketingops/n8n-gateway/internal/api/routes"
	"github.com/marketingops/n8n-gateway/internal/config"
	"github.com/marketingops/n8n-gateway/internal/core/auth"
	"github.com/marketingops/n8n-gateway/internal/core/cache"
	"github.com/marketingops/n8n-gateway/internal/core/secretstore"
	"github.com/marketingops/n8n-gateway/internal/core/vault"
	"github.com/marketingops/n8n-gateway/internal/domain/models"
	jwtauth "github.com/marketingops/n8n-gateway/internal/infrastructure/auth/jwt"
	supabaseauth "github.com/marketingops/n8n-gateway/internal/infrastructure/auth/supabase"
	rediscache "github.com/marketingops/n8n-gateway/internal/infrastructure/cache/redis"
	"github.com/marketingops/n8n-gateway/internal/infrastructure/secretstore/mongodb"
	"github.com/marketingops/n8n-gateway/internal/infrastructure/secretstore/postgres"
	dotenvvault "github.com/marketingops/n8n-gateway/internal/infrastructure/vault/dotenv"
	"github.com/marketingops/n8n-gateway/internal/pkg/encryption"
	"github.com/marketingops/n8n-gateway/internal/services/connection"
	"github.com/marketingops/n8n-gateway/internal/services/n8n"
	"github.com/marketingops/n8n-gateway/internal/services/proxy"
	"github.com/marketingops/n8n-gateway/internal/services/secrets"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogger(cfg.Log)

	ctx := context.Background()

	// Initialize vault client using factory pattern
	vaultClient, err := createVaultClient(cfg.Vault)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize vault client")
	}
	defer vaultClient.Close()

	// Initialize cache client using factory pattern
	cacheClient, err := createCacheClient(cfg.Cache)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize cache client")
	}
	defer cacheClient.Close()

	// Initialize the credential sources in lookup order
	secretStore, closeStores, err := createSecretStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize secret store")
	}
	defer closeStores()

	encryptor, err := createEncryptor(ctx, cfg.Vault, vaultClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize encryptor")
	}

	verifier, err := createVerifier(cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth verifier")
	}

	resolver, err := secrets.NewResolver(&secrets.Config{
		Store:          secretStore,
		Vault:          vaultClient,
		CacheClient:    cacheClient,
		Encryptor:      encryptor,
		TTL:            cfg.Secrets.CacheTTL,
		DefaultBaseURL: cfg.N8N.DefaultBaseURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize secret resolver")
	}

	// A configured timeout of 0 disables it.
	proxyTimeout := cfg.N8N.Timeout
	if proxyTimeout == 0 {
		proxyTimeout = -1
	}
	forwarder, err := proxy.NewForwarder(&proxy.Config{
		Resolver: resolver,
		Timeout:  proxyTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize n8n forwarder")
	}

	transports := func(userID string) n8n.Transport {
		return n8n.NewUserTransport(forwarder, resolver, userID)
	}

	coordinator, err := connection.NewCoordinator(&connection.Config{
		CacheClient: cacheClient,
		Resolver:    resolver,
		Transports:  transports,
		TTL:         cfg.Cache.TTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize connection coordinator")
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	router := setupRouter(cfg, &routes.Config{
		HealthHandler:     handlers.NewHealthHandler(cacheClient, secretStore),
		FunctionsHandler:  handlers.NewFunctionsHandler(forwarder, resolver),
		WorkflowsHandler:  handlers.NewWorkflowsHandler(transports),
		ConnectionHandler: handlers.NewConnectionHandler(coordinator),
		AuthMiddleware:    middleware.NewAuthMiddleware(verifier),
		CORS:              middleware.DefaultCORSConfig().WithOrigins(cfg.Server.CORSOrigins),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address()).Strs("secret_sources", cfg.Secrets.Sources).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

// setupLogger configures the global zerolog logger.
func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// createVaultClient creates a vault client based on the configuration.
func createVaultClient(cfg config.VaultConfig) (vault.Client, error) {
	switch vault.Type(cfg.Type) {
	case vault.TypeDotEnv:
		return dotenvvault.NewVault(), nil
	default:
		return nil, fmt.Errorf("unsupported vault type: %s", cfg.Type)
	}
}

// createCacheClient creates a cache client based on the configuration.
func createCacheClient(cfg config.CacheConfig) (cache.Client, error) {
	switch cache.Type(cfg.Type) {
	case cache.TypeRedis:
		return rediscache.NewClient(rediscache.Config{
			Host:       cfg.Host,
			Port:       cfg.Port,
			Password:   cfg.Password,
			DB:         cfg.DB,
			DefaultTTL: cfg.TTL,
		})
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// createSecretStore opens every configured source and chains them in the
// configured order. The returned func releases the underlying connections.
func createSecretStore(ctx context.Context, cfg *config.Config) (secretstore.Store, func(), error) {
	var (
		stores  []secretstore.Store
		closers []func()
		db      *sqlx.DB
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	openPostgres := func() (*sqlx.DB, error) {
		if db != nil {
			return db, nil
		}
		conn, err := postgres.Open(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = conn.Close() })
		if cfg.Postgres.MigrateOnStart {
			if err := postgres.Migrate(ctx, conn); err != nil {
				return nil, err
			}
		}
		db = conn
		return db, nil
	}

	for _, source := range cfg.Secrets.Sources {
		switch models.SecretSource(source) {
		case models.SecretSourceSecrets:
			conn, err := openPostgres()
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			stores = append(stores, postgres.NewSecretsStore(conn))
		case models.SecretSourceSettings:
			conn, err := openPostgres()
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			stores = append(stores, postgres.NewSettingsStore(conn))
		case models.SecretSourceCredentials:
			client, err := mongodb.NewClient(ctx, &mongodb.ClientConfig{
				URI:          cfg.MongoDB.URI,
				DatabaseName: cfg.MongoDB.Database,
			})
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			closers = append(closers, func() { _ = client.Close(context.Background()) })
			if err := client.EnsureIndexes(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to ensure credential indexes")
			}
			stores = append(stores, client.Credentials())
		default:
			closeAll()
			return nil, nil, fmt.Errorf("unsupported secret source: %s", source)
		}
	}

	chain, err := secretstore.NewChainStore(stores...)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return chain, closeAll, nil
}

// createEncryptor creates an encryptor based on the configuration.
func createEncryptor(ctx context.Context, cfg config.VaultConfig, vaultClient vault.Client) (encryption.Encryptor, error) {
	encryptionKey := cfg.EncryptionKey
	if encryptionKey == "" {
		key, err := vault.Lookup(ctx, vaultClient, vault.URI(vault.TypeDotEnv, vault.KeyEncryptionKey))
		if err == nil && key != "" {
			encryptionKey = key
		}
	}

	if encryptionKey == "" {
		log.Warn().Msg("SECRETS_ENCRYPTION_KEY not set, using NoOp encryptor")
		return encryption.NewNoOpEncryptor(), nil
	}

	return encryption.NewAESEncryptor(encryptionKey)
}

// createVerifier creates the bearer token verifier based on the configuration.
func createVerifier(cfg config.AuthConfig) (auth.Verifier, error) {
	switch auth.Type(cfg.Type) {
	case auth.TypeJWT:
		return jwtauth.NewVerifier(cfg.JWTSecret)
	case auth.TypeSupabase:
		return supabaseauth.NewVerifier(&supabaseauth.VerifierConfig{
			URL:        cfg.URL,
			AnonKey:    cfg.AnonKey,
			HTTPClient: &http.Client{Timeout: cfg.Timeout},
		})
	default:
		return nil, fmt.Errorf("unsupported auth type: %s", cfg.Type)
	}
}

// setupRouter creates and configures the Gin router.
func setupRouter(cfg *config.Config, routesCfg *routes.Config) *gin.Engine {
	router := gin.New()

	routes.SetupWithMiddleware(router, routesCfg, middleware.NewLoggingMiddleware(), middleware.NewErrorMiddleware())

	// Swagger documentation endpoint
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if cfg.Server.GinMode == gin.DebugMode {
		log.Debug().Int("routes", len(router.Routes())).Msg("router ready")
	}

	return router
}
