package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marketingops/n8n-gateway/internal/api/dto"
	"github.com/marketingops/n8n-gateway/internal/api/middleware"
	"github.com/marketingops/n8n-gateway/internal/services/connection"
	"github.com/marketingops/n8n-gateway/internal/services/n8n"
)

// WorkflowsHandler exposes typed workflow operations for the caller's n8n instance.
type WorkflowsHandler struct {
	transports connection.TransportFactory
}

// NewWorkflowsHandler creates a new WorkflowsHandler.
func NewWorkflowsHandler(transports connection.TransportFactory) *WorkflowsHandler {
	return &WorkflowsHandler{
		transports: transports,
	}
}

func (h *WorkflowsHandler) client(c *gin.Context) *n8n.WorkflowClient {
	return n8n.NewWorkflowClient(h.transports(middleware.GetUserID(c)))
}

// List handles GET /api/v1/n8n/workflows
// @Summary List workflows
// @Description Fetches up to 100 workflows from n8n. Nothing is cached between calls.
// @Tags Workflows
// @Produce json
// @Success 200 {object} dto.WorkflowListResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 502 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/n8n/workflows [get]
func (h *WorkflowsHandler) List(c *gin.Context) {
	workflows, err := h.client(c).List(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.WorkflowListResponse{
		Data:  workflows,
		Count: len(workflows),
	})
}

// Activate handles POST /api/v1/n8n/workflows/{id}/activate
// @Summary Activate a workflow
// @Tags Workflows
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} models.Workflow
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/n8n/workflows/{id}/activate [post]
func (h *WorkflowsHandler) Activate(c *gin.Context) {
	workflow, err := h.client(c).Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, workflow)
}

// Deactivate handles POST /api/v1/n8n/workflows/{id}/deactivate
// @Summary Deactivate a workflow
// @Tags Workflows
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} models.Workflow
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/n8n/workflows/{id}/deactivate [post]
func (h *WorkflowsHandler) Deactivate(c *gin.Context) {
	workflow, err := h.client(c).Deactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, workflow)
}

// Delete handles DELETE /api/v1/n8n/workflows/{id}
// @Summary Delete a workflow
// @Description Irreversibly deletes the workflow in n8n.
// @Tags Workflows
// @Param id path string true "Workflow ID"
// @Success 204 "Deleted"
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/n8n/workflows/{id} [delete]
func (h *WorkflowsHandler) Delete(c *gin.Context) {
	if err := h.client(c).Delete(c.Request.Context(), c.Param("id")); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// URL handles GET /api/v1/n8n/workflows/{id}/url
// @Summary Get the editor link of a workflow
// @Tags Workflows
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} dto.WorkflowURLResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/n8n/workflows/{id}/url [get]
func (h *WorkflowsHandler) URL(c *gin.Context) {
	url, err := h.client(c).URLFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.WorkflowURLResponse{URL: url})
}
