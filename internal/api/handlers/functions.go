package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marketingops/n8n-gateway/internal/api/dto"
	"github.com/marketingops/n8n-gateway/internal/api/middleware"
	domainerrors "github.com/marketingops/n8n-gateway/internal/domain/errors"
	"github.com/marketingops/n8n-gateway/internal/domain/models"
	"github.com/marketingops/n8n-gateway/internal/services/n8n"
	"github.com/marketingops/n8n-gateway/internal/services/proxy"
	"github.com/marketingops/n8n-gateway/internal/services/secrets"
)

const debugExcerptSize = 512

// FunctionsHandler serves the edge-function routes the dashboard calls:
// the n8n proxy, the secrets lookup, and the diagnostic probe.
type FunctionsHandler struct {
	forwarder proxy.Forwarder
	resolver  secrets.Resolver
}

// NewFunctionsHandler creates a new FunctionsHandler.
func NewFunctionsHandler(forwarder proxy.Forwarder, resolver secrets.Resolver) *FunctionsHandler {
	return &FunctionsHandler{
		forwarder: forwarder,
		resolver:  resolver,
	}
}

// Proxy handles POST /functions/v1/n8n-proxy
// @Summary Forward a call to n8n
// @Description Relays one request to the caller's n8n instance with their stored API key. The upstream status, content type and body are returned unchanged.
// @Tags Functions
// @Accept json
// @Produce json
// @Param request body dto.ProxyRequest true "Path relative to /api/v1, method and optional JSON body"
// @Success 200 {object} object "Upstream response"
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /functions/v1/n8n-proxy [post]
func (h *FunctionsHandler) Proxy(c *gin.Context) {
	var req dto.ProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, domainerrors.NewValidationError("invalid request body", err.Error()))
		return
	}

	resp, err := h.forwarder.Forward(c.Request.Context(), middleware.GetUserID(c), &models.ProxyRequest{
		Method: req.Method,
		Path:   req.Path,
		Body:   req.Body,
	})
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, resp.Body)
}

// Secrets handles GET /functions/v1/get-n8n-secrets
// @Summary Get the caller's n8n connection settings
// @Description Returns the caller's API key (null when they have none of their own), whether any key applies, the base URL and the source they came from
// @Tags Functions
// @Produce json
// @Success 200 {object} dto.SecretsResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /functions/v1/get-n8n-secrets [get]
func (h *FunctionsHandler) Secrets(c *gin.Context) {
	creds, err := h.resolver.Resolve(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSecretsResponse(creds))
}

// Debug handles GET /functions/v1/debug-n8n-api
// @Summary Diagnose the n8n connection
// @Description Resolves the caller's settings and performs one probe call, reporting status, latency and a body excerpt. The API key itself is never returned.
// @Tags Functions
// @Produce json
// @Success 200 {object} dto.DebugResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /functions/v1/debug-n8n-api [get]
func (h *FunctionsHandler) Debug(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	creds, err := h.resolver.Resolve(ctx, userID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	report := dto.DebugResponse{
		BaseURL:       creds.BaseURL,
		APIKeyPresent: creds.HasAPIKey(),
		APIKeyPreview: maskKey(creds.APIKey),
		Source:        string(creds.Source),
		ProbeURL:      creds.BaseURL + proxy.APIPrefix + n8n.HealthProbePath,
	}

	if creds.HasAPIKey() {
		start := time.Now()
		resp, err := h.forwarder.Forward(ctx, userID, &models.ProxyRequest{
			Method: http.MethodGet,
			Path:   n8n.HealthProbePath,
		})
		probe := &dto.DebugProbe{LatencyMs: time.Since(start).Milliseconds()}
		if resp != nil {
			probe.Status = resp.StatusCode
			probe.ContentType = resp.ContentType
			probe.BodyExcerpt = excerpt(resp.Body)
		}
		if err != nil {
			probe.Error = err.Error()
			if domainErr, ok := domainerrors.GetDomainError(err); ok {
				probe.Code = domainErr.Code
				probe.Error = domainErr.Message
			}
		} else {
			probe.OK = true
		}
		report.Probe = probe
	}

	logger := middleware.GetRequestLogger(c)
	logger.Info().
		Bool("api_key_present", report.APIKeyPresent).
		Str("source", report.Source).
		Interface("probe", report.Probe).
		Msg("n8n debug report")

	c.JSON(http.StatusOK, report)
}

// maskKey keeps the first and last four characters of a key.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func excerpt(body []byte) string {
	if len(body) > debugExcerptSize {
		return string(body[:debugExcerptSize]) + "..."
	}
	return string(body)
}
