package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/finbook-oss/finbook_backend/internal/apperrors"
	portssvc "github.com/finbook-oss/finbook_backend/internal/core/ports/services"
	"github.com/finbook-oss/finbook_backend/internal/core/services"
	"github.com/finbook-oss/finbook_backend/internal/dto"
	"github.com/finbook-oss/finbook_backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// dispatchHandler handles HTTP requests that trigger or inspect dispatches.
type dispatchHandler struct {
	dispatcherService portssvc.DispatcherSvcFacade
}

// newDispatchHandler creates a new dispatchHandler.
func newDispatchHandler(ds portssvc.DispatcherSvcFacade) *dispatchHandler {
	return &dispatchHandler{
		dispatcherService: ds,
	}
}

// registerDispatchRoutes registers dispatch and event instance routes.
func registerDispatchRoutes(rg *gin.RouterGroup, ds portssvc.DispatcherSvcFacade) {
	h := newDispatchHandler(ds)

	rg.POST("/templates/:orchid/dispatch", h.dispatch)

	events := rg.Group("/events")
	{
		events.GET("", h.listEventInstances)
		events.GET("/:id", h.getEventInstance)
	}
}

// dispatch godoc
// @Summary Dispatch an event template
// @Description Executes a template against a payload: generates the reference, evaluates line rules, creates and posts the journal, and records a durable event instance. A failed dispatch still records a FAILED instance, which is returned with the error.
// @Tags dispatch
// @Accept  json
// @Produce  json
// @Param   orchid path string true "Template orchid"
// @Param   request body dto.DispatchRequest true "Event payload"
// @Success 200 {object} dto.EventInstanceResponse
// @Failure 400 {object} map[string]string "Invalid input or missing payload fields"
// @Failure 404 {object} map[string]string "Template not found"
// @Failure 409 {object} map[string]string "Template is inactive"
// @Failure 422 {object} dto.EventInstanceResponse "Dispatch failed; the FAILED instance is returned"
// @Failure 500 {object} map[string]string "Failed to dispatch"
// @Router /templates/{orchid}/dispatch [post]
func (h *dispatchHandler) dispatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, userID := mustScope(c)
	orchid := c.Param("orchid")

	var req dto.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Dispatch", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger.Info("Received dispatch request", slog.String("orchid", orchid))

	instance, err := h.dispatcherService.Dispatch(c.Request.Context(), orgID, orchid, req.Payload, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTemplateNotFound), errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		case errors.Is(err, services.ErrTemplateInactive):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case instance != nil:
			// The FAILED instance is durable; return it alongside the cause.
			logger.Warn("Dispatch failed",
				slog.String("orchid", orchid),
				slog.String("event_id", instance.EventID),
				slog.String("error", err.Error()))
			c.JSON(http.StatusUnprocessableEntity, dto.ToEventInstanceResponse(instance))
		default:
			logger.Error("Failed to dispatch", slog.String("orchid", orchid), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to dispatch"})
		}
		return
	}

	logger.Info("Dispatch processed",
		slog.String("orchid", orchid),
		slog.String("event_id", instance.EventID),
		slog.String("reference", instance.Reference))
	c.JSON(http.StatusOK, dto.ToEventInstanceResponse(instance))
}

// getEventInstance godoc
// @Summary Get an event instance
// @Description Retrieves the durable record of one dispatch attempt
// @Tags dispatch
// @Produce  json
// @Param   id path string true "Event ID"
// @Success 200 {object} dto.EventInstanceResponse
// @Failure 404 {object} map[string]string "Event instance not found"
// @Failure 500 {object} map[string]string "Failed to retrieve event instance"
// @Router /events/{id} [get]
func (h *dispatchHandler) getEventInstance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, _ := mustScope(c)
	eventID := c.Param("id")

	instance, err := h.dispatcherService.GetEventInstance(c.Request.Context(), orgID, eventID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event instance not found"})
		} else {
			logger.Error("Failed to get event instance", slog.String("event_id", eventID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve event instance"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToEventInstanceResponse(instance))
}

// listEventInstances godoc
// @Summary List event instances
// @Description Retrieves a page of dispatch records, most recent first, optionally filtered by template orchid
// @Tags dispatch
// @Produce  json
// @Param   orchid query string false "Filter by template orchid"
// @Param   limit query int false "Page size (default 50)"
// @Param   offset query int false "Page offset"
// @Success 200 {array} dto.EventInstanceResponse
// @Failure 500 {object} map[string]string "Failed to list event instances"
// @Router /events [get]
func (h *dispatchHandler) listEventInstances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, _ := mustScope(c)
	limit, offset := pageParams(c)
	orchid := c.Query("orchid")

	instances, err := h.dispatcherService.ListEventInstances(c.Request.Context(), orgID, orchid, limit, offset)
	if err != nil {
		logger.Error("Failed to list event instances", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list event instances"})
		return
	}

	resp := make([]dto.EventInstanceResponse, 0, len(instances))
	for i := range instances {
		resp = append(resp, dto.ToEventInstanceResponse(&instances[i]))
	}
	c.JSON(http.StatusOK, resp)
}
