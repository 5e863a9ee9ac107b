package n8n

import (
	"context"
	"net/http"
	"time"

	domainerrors "github.com/marketingops/n8n-gateway/internal/domain/errors"
	"github.com/marketingops/n8n-gateway/internal/domain/models"
)

// StatusRecorder receives connection status transitions.
type StatusRecorder interface {
	RecordStatus(ctx context.Context, status models.ConnectionStatus, message string)
}

// HealthChecker probes n8n and reduces the outcome to a connection status.
// It is the only component that moves a status to checking.
type HealthChecker struct {
	transport Transport
	recorder  StatusRecorder
	now       func() time.Time
}

// NewHealthChecker creates a checker. recorder may be nil.
func NewHealthChecker(transport Transport, recorder StatusRecorder) *HealthChecker {
	return &HealthChecker{
		transport: transport,
		recorder:  recorder,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Check never returns an error: every outcome is a status. A user without a
// configured key is disconnected; any other failure is an error carrying the message.
func (h *HealthChecker) Check(ctx context.Context) models.HealthResult {
	h.record(ctx, models.ConnectionStatusChecking, "")

	result := models.HealthResult{Status: models.ConnectionStatusConnected}

	_, err := h.transport.Do(ctx, &models.ProxyRequest{
		Method: http.MethodGet,
		Path:   HealthProbePath,
	})
	switch {
	case err == nil:
	case domainerrors.IsConfigurationMissing(err):
		result.Status = models.ConnectionStatusDisconnected
		result.Error = errorMessage(err)
		result.Err = err
	default:
		result.Status = models.ConnectionStatusError
		result.Error = errorMessage(err)
		result.Err = err
	}
	result.CheckedAt = h.now()

	h.record(ctx, result.Status, result.Error)
	return result
}

func (h *HealthChecker) record(ctx context.Context, status models.ConnectionStatus, message string) {
	if h.recorder != nil {
		h.recorder.RecordStatus(ctx, status, message)
	}
}

// errorMessage prefers the upstream body over the generic envelope text.
func errorMessage(err error) string {
	if domainErr, ok := domainerrors.GetDomainError(err); ok {
		if domainErr.Details != "" && domainErr.Code == domainerrors.ErrCodeUpstream {
			return domainErr.Message + ": " + domainErr.Details
		}
		return domainErr.Message
	}
	return err.Error()
}
