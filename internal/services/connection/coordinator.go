// Package connection drives the test and save flows of a user's n8n
// connection settings and keeps the resulting status.
package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketingops/n8n-gateway/internal/core/cache"
	domainerrors "github.com/marketingops/n8n-gateway/internal/domain/errors"
	"github.com/marketingops/n8n-gateway/internal/domain/models"
	"github.com/marketingops/n8n-gateway/internal/services/n8n"
	"github.com/marketingops/n8n-gateway/internal/services/secrets"
)

// DefaultStateTTL bounds how long an idle user's state is kept.
const DefaultStateTTL = 30 * time.Minute

// TransportFactory returns the n8n transport of a user.
type TransportFactory func(userID string) n8n.Transport

// SaveResult reports both halves of a save: persistence and verification.
type SaveResult struct {
	Saved    bool                    `json:"saved"`
	Verified bool                    `json:"verified"`
	Secrets  *models.N8NSecrets      `json:"-"`
	Health   models.HealthResult     `json:"health"`
	State    *models.ConnectionState `json:"state"`
}

// Config holds the dependencies of the coordinator.
type Config struct {
	CacheClient cache.Client
	Resolver    secrets.Resolver
	Transports  TransportFactory
	TTL         time.Duration
}

// Coordinator runs the idle/testing/saving flow per user.
type Coordinator struct {
	cacheClient cache.Client
	resolver    secrets.Resolver
	transports  TransportFactory
	ttl         time.Duration
}

// NewCoordinator creates a new coordinator.
func NewCoordinator(cfg *Config) (*Coordinator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.CacheClient == nil {
		return nil, fmt.Errorf("cache client is required")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("secrets resolver is required")
	}
	if cfg.Transports == nil {
		return nil, fmt.Errorf("transport factory is required")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultStateTTL
	}

	return &Coordinator{
		cacheClient: cfg.CacheClient,
		resolver:    cfg.Resolver,
		transports:  cfg.Transports,
		ttl:         ttl,
	}, nil
}

// State returns the user's current state. A user who never ran a check is
// idle and disconnected.
func (c *Coordinator) State(ctx context.Context, userID string) (*models.ConnectionState, error) {
	data, err := c.cacheClient.Get(ctx, stateKey(userID))
	if err != nil {
		return nil, domainerrors.NewServiceUnavailableError("cache", err)
	}
	if data == nil {
		return models.NewConnectionState(userID), nil
	}

	var state models.ConnectionState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("dropping unreadable connection state")
		_, _ = c.cacheClient.Delete(ctx, stateKey(userID))
		return models.NewConnectionState(userID), nil
	}
	return &state, nil
}

// Test runs a health check with the stored configuration.
func (c *Coordinator) Test(ctx context.Context, userID string) (*models.ConnectionState, models.HealthResult, error) {
	if err := c.setPhase(ctx, userID, models.ConnectionPhaseTesting); err != nil {
		return nil, models.HealthResult{}, err
	}

	health := n8n.NewHealthChecker(c.transports(userID), c.recorder(userID)).Check(ctx)

	if err := c.setPhase(ctx, userID, models.ConnectionPhaseIdle); err != nil {
		return nil, health, err
	}

	state, err := c.State(context.WithoutCancel(ctx), userID)
	return state, health, err
}

// Save validates, persists, and then verifies the new configuration. The
// save only succeeds when the follow-up health check reports connected; on
// a failed check the returned result has Saved set and the check's error is
// returned.
func (c *Coordinator) Save(ctx context.Context, userID, apiKey, baseURL string) (*SaveResult, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domainerrors.NewValidationError("api key is required", "n8n_api_key must not be empty")
	}

	if err := c.setPhase(ctx, userID, models.ConnectionPhaseSaving); err != nil {
		return nil, err
	}

	saved, err := c.resolver.Save(ctx, userID, apiKey, baseURL)
	if err != nil {
		c.finishWithError(ctx, userID, err)
		return nil, err
	}

	health := n8n.NewHealthChecker(c.transports(userID), c.recorder(userID)).Check(ctx)

	if err := c.setPhase(ctx, userID, models.ConnectionPhaseIdle); err != nil {
		return nil, err
	}
	state, err := c.State(context.WithoutCancel(ctx), userID)
	if err != nil {
		return nil, err
	}

	result := &SaveResult{
		Saved:    true,
		Verified: health.Status == models.ConnectionStatusConnected,
		Secrets:  saved,
		Health:   health,
		State:    state,
	}

	if !result.Verified {
		log.Warn().Str("user_id", userID).Str("status", string(health.Status)).Str("error", health.Error).
			Msg("n8n configuration saved but connection check failed")
		if health.Err != nil {
			return result, health.Err
		}
		return result, domainerrors.NewServiceUnavailableError("n8n", errors.New(health.Error))
	}

	log.Info().Str("user_id", userID).Msg("n8n configuration saved and verified")
	return result, nil
}

// recorder persists every status transition reported by the health checker.
func (c *Coordinator) recorder(userID string) n8n.StatusRecorder {
	return statusRecorder{coordinator: c, userID: userID}
}

type statusRecorder struct {
	coordinator *Coordinator
	userID      string
}

func (r statusRecorder) RecordStatus(ctx context.Context, status models.ConnectionStatus, message string) {
	err := r.coordinator.update(ctx, r.userID, func(state *models.ConnectionState) {
		state.Status = status
		state.LastError = message
		if status != models.ConnectionStatusChecking {
			now := time.Now().UTC()
			state.CheckedAt = &now
		}
	})
	if err != nil {
		log.Warn().Err(err).Str("user_id", r.userID).Msg("failed to record connection status")
	}
}

func (c *Coordinator) setPhase(ctx context.Context, userID string, phase models.ConnectionPhase) error {
	return c.update(ctx, userID, func(state *models.ConnectionState) {
		state.Phase = phase
	})
}

// finishWithError returns to idle after a failed persist. The connection
// status is left as it was since no check ran.
func (c *Coordinator) finishWithError(ctx context.Context, userID string, cause error) {
	err := c.update(ctx, userID, func(state *models.ConnectionState) {
		state.Phase = models.ConnectionPhaseIdle
		state.LastError = cause.Error()
	})
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to reset connection phase")
	}
}

// update writes on a context detached from the caller so a client that
// disconnects mid-check cannot leave the user stuck in testing or checking.
func (c *Coordinator) update(ctx context.Context, userID string, mutate func(*models.ConnectionState)) error {
	ctx = context.WithoutCancel(ctx)

	state, err := c.State(ctx, userID)
	if err != nil {
		return err
	}

	mutate(state)
	state.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(state)
	if err != nil {
		return domainerrors.NewInternalError("failed to encode connection state", err)
	}
	if err := c.cacheClient.Set(ctx, stateKey(userID), data, c.ttl); err != nil {
		return domainerrors.NewServiceUnavailableError("cache", err)
	}
	return nil
}

func stateKey(userID string) string {
	return cache.PrefixConnection + userID
}
