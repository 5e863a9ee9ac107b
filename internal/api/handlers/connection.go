package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marketingops/n8n-gateway/internal/api/dto"
	"github.com/marketingops/n8n-gateway/internal/api/middleware"
	domainerrors "github.com/marketingops/n8n-gateway/internal/domain/errors"
	"github.com/marketingops/n8n-gateway/internal/services/connection"
)

// ConnectionHandler drives the connection settings flow.
type ConnectionHandler struct {
	coordinator *connection.Coordinator
}

// NewConnectionHandler creates a new ConnectionHandler.
func NewConnectionHandler(coordinator *connection.Coordinator) *ConnectionHandler {
	return &ConnectionHandler{
		coordinator: coordinator,
	}
}

// State handles GET /api/v1/n8n/connection
// @Summary Get connection state
// @Description Returns the current phase and connection status of the caller
// @Tags Connection
// @Produce json
// @Success 200 {object} dto.ConnectionResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/n8n/connection [get]
func (h *ConnectionHandler) State(c *gin.Context) {
	state, err := h.coordinator.State(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ConnectionResponse{State: state})
}

// Test handles POST /api/v1/n8n/connection/test
// @Summary Test the stored connection
// @Description Runs a health check with the stored settings. A failed check is reported in the body, not as an HTTP error.
// @Tags Connection
// @Produce json
// @Success 200 {object} dto.ConnectionResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/n8n/connection/test [post]
func (h *ConnectionHandler) Test(c *gin.Context) {
	state, health, err := h.coordinator.Test(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ConnectionResponse{State: state, Health: &health})
}

// SaveConfig handles PUT /api/v1/n8n/config
// @Summary Save connection settings
// @Description Persists the API key and base URL, then verifies them with a health check. The save only succeeds when the check connects; otherwise the response is 502 with saved=true and verified=false.
// @Tags Connection
// @Accept json
// @Produce json
// @Param request body dto.SaveConfigRequest true "n8n settings"
// @Success 200 {object} dto.SaveConfigResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 502 {object} dto.SaveConfigResponse
// @Security BearerAuth
// @Router /api/v1/n8n/config [put]
func (h *ConnectionHandler) SaveConfig(c *gin.Context) {
	var req dto.SaveConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, domainerrors.NewValidationError("invalid request body", err.Error()))
		return
	}

	result, err := h.coordinator.Save(c.Request.Context(), middleware.GetUserID(c), req.APIKey, req.BaseURL)
	if result == nil {
		middleware.HandleError(c, err)
		return
	}

	resp := dto.SaveConfigResponse{
		Saved:    result.Saved,
		Verified: result.Verified,
		Health:   result.Health,
		State:    result.State,
	}
	if result.Secrets != nil {
		resp.BaseURL = result.Secrets.BaseURL
		resp.Source = string(result.Secrets.Source)
	}

	if err != nil {
		resp.Error = err.Error()
		resp.Code = domainerrors.ErrCodeServiceUnavailable
		if domainErr, ok := domainerrors.GetDomainError(err); ok {
			resp.Error = domainErr.Message
			resp.Code = domainErr.Code
			resp.Details = domainErr.Details
		}
		c.JSON(http.StatusBadGateway, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}
