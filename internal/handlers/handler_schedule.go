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

// scheduleHandler handles HTTP requests related to recurring schedules.
type scheduleHandler struct {
	scheduleService portssvc.ScheduleSvcFacade
}

// newScheduleHandler creates a new scheduleHandler.
func newScheduleHandler(ss portssvc.ScheduleSvcFacade) *scheduleHandler {
	return &scheduleHandler{
		scheduleService: ss,
	}
}

// registerScheduleRoutes registers routes related to recurring schedules.
func registerScheduleRoutes(rg *gin.RouterGroup, ss portssvc.ScheduleSvcFacade) {
	h := newScheduleHandler(ss)

	schedules := rg.Group("/schedules")
	{
		schedules.POST("", h.createSchedule)
		schedules.GET("", h.listSchedules)
		schedules.GET("/:id", h.getSchedule)
		schedules.PATCH("/:id", h.updateSchedule)
		schedules.DELETE("/:id", h.disableSchedule)
	}
}

// createSchedule godoc
// @Summary Create a recurring schedule
// @Description Registers a recurring dispatch of an event template and computes its first run time
// @Tags schedules
// @Accept  json
// @Produce  json
// @Param   schedule body dto.CreateScheduleRequest true "Schedule details"
// @Success 201 {object} dto.ScheduleResponse
// @Failure 400 {object} map[string]string "Invalid input or schedule spec"
// @Failure 404 {object} map[string]string "Template not found"
// @Failure 500 {object} map[string]string "Failed to create schedule"
// @Router /schedules [post]
func (h *scheduleHandler) createSchedule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, userID := mustScope(c)

	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateSchedule", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger.Info("Received request to create schedule", slog.String("orchid", req.TemplateOrchid))

	schedule, err := h.scheduleService.CreateSchedule(c.Request.Context(), orgID, req, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBadScheduleSpec), errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		default:
			logger.Error("Failed to create schedule in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create schedule"})
		}
		return
	}

	logger.Info("Schedule created successfully", slog.String("schedule_id", schedule.ScheduleID))
	c.JSON(http.StatusCreated, dto.ToScheduleResponse(schedule))
}

// getSchedule godoc
// @Summary Get a schedule by ID
// @Description Retrieves one recurring schedule
// @Tags schedules
// @Produce  json
// @Param   id path string true "Schedule ID"
// @Success 200 {object} dto.ScheduleResponse
// @Failure 404 {object} map[string]string "Schedule not found"
// @Failure 500 {object} map[string]string "Failed to retrieve schedule"
// @Router /schedules/{id} [get]
func (h *scheduleHandler) getSchedule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, _ := mustScope(c)
	scheduleID := c.Param("id")

	schedule, err := h.scheduleService.GetScheduleByID(c.Request.Context(), orgID, scheduleID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
		} else {
			logger.Error("Failed to get schedule", slog.String("schedule_id", scheduleID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve schedule"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToScheduleResponse(schedule))
}

// listSchedules godoc
// @Summary List schedules
// @Description Retrieves all recurring schedules of the organization
// @Tags schedules
// @Produce  json
// @Success 200 {array} dto.ScheduleResponse
// @Failure 500 {object} map[string]string "Failed to list schedules"
// @Router /schedules [get]
func (h *scheduleHandler) listSchedules(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, _ := mustScope(c)

	schedules, err := h.scheduleService.ListSchedules(c.Request.Context(), orgID)
	if err != nil {
		logger.Error("Failed to list schedules", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list schedules"})
		return
	}

	resp := make([]dto.ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		resp = append(resp, dto.ToScheduleResponse(&schedules[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// updateSchedule godoc
// @Summary Update a schedule
// @Description Patches a schedule's payload, spec or window. A spec change recomputes the next run time.
// @Tags schedules
// @Accept  json
// @Produce  json
// @Param   id path string true "Schedule ID"
// @Param   schedule body dto.UpdateScheduleRequest true "Fields to update"
// @Success 200 {object} dto.ScheduleResponse
// @Failure 400 {object} map[string]string "Invalid input or schedule spec"
// @Failure 404 {object} map[string]string "Schedule not found"
// @Failure 500 {object} map[string]string "Failed to update schedule"
// @Router /schedules/{id} [patch]
func (h *scheduleHandler) updateSchedule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, userID := mustScope(c)
	scheduleID := c.Param("id")

	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateSchedule", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	schedule, err := h.scheduleService.UpdateSchedule(c.Request.Context(), orgID, scheduleID, req, userID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
		case errors.Is(err, services.ErrBadScheduleSpec), errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to update schedule", slog.String("schedule_id", scheduleID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update schedule"})
		}
		return
	}

	logger.Info("Schedule updated successfully", slog.String("schedule_id", scheduleID))
	c.JSON(http.StatusOK, dto.ToScheduleResponse(schedule))
}

// disableSchedule godoc
// @Summary Disable a schedule
// @Description Soft-deletes a schedule, preserving its run history
// @Tags schedules
// @Produce  json
// @Param   id path string true "Schedule ID"
// @Success 204 "Schedule disabled"
// @Failure 404 {object} map[string]string "Schedule not found"
// @Failure 500 {object} map[string]string "Failed to disable schedule"
// @Router /schedules/{id} [delete]
func (h *scheduleHandler) disableSchedule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, userID := mustScope(c)
	scheduleID := c.Param("id")

	err := h.scheduleService.DisableSchedule(c.Request.Context(), orgID, scheduleID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
		} else {
			logger.Error("Failed to disable schedule", slog.String("schedule_id", scheduleID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to disable schedule"})
		}
		return
	}

	logger.Info("Schedule disabled", slog.String("schedule_id", scheduleID))
	c.Status(http.StatusNoContent)
}
