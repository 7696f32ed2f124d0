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

// templateHandler handles HTTP requests related to event templates.
type templateHandler struct {
	templateService portssvc.TemplateSvcFacade
}

// newTemplateHandler creates a new templateHandler.
func newTemplateHandler(ts portssvc.TemplateSvcFacade) *templateHandler {
	return &templateHandler{
		templateService: ts,
	}
}

// registerTemplateRoutes registers routes related to event templates.
func registerTemplateRoutes(rg *gin.RouterGroup, ts portssvc.TemplateSvcFacade) {
	h := newTemplateHandler(ts)

	templates := rg.Group("/templates")
	{
		templates.POST("", h.createTemplate)
		templates.GET("", h.listTemplates)
		templates.GET("/:orchid", h.getTemplate)
		templates.PUT("/:orchid", h.replaceTemplate)
		templates.POST("/:orchid/activate", h.activateTemplate)
		templates.POST("/:orchid/deactivate", h.deactivateTemplate)
	}
}

// templateErrorStatus maps definition-time validation failures to HTTP codes.
func templateErrorStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, services.ErrDuplicateOrchid):
		return http.StatusConflict, true
	case errors.Is(err, services.ErrUnknownPlaceholder),
		errors.Is(err, services.ErrUnknownSourceField),
		errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, true
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, true
	default:
		return 0, false
	}
}

// createTemplate godoc
// @Summary Create an event template
// @Description Creates a template after validating placeholders, formulas and referenced accounts
// @Tags templates
// @Accept  json
// @Produce  json
// @Param   template body dto.SaveTemplateRequest true "Template definition"
// @Success 201 {object} dto.TemplateResponse
// @Failure 400 {object} map[string]string "Invalid definition"
// @Failure 409 {object} map[string]string "Orchid already exists"
// @Failure 500 {object} map[string]string "Failed to create template"
// @Router /templates [post]
func (h *templateHandler) createTemplate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, userID := mustScope(c)

	var req dto.SaveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateTemplate", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger.Info("Received request to create template", slog.String("orchid", req.Orchid))

	tpl, err := h.templateService.CreateTemplate(c.Request.Context(), orgID, req, userID)
	if err != nil {
		if status, ok := templateErrorStatus(err); ok {
			c.JSON(status, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to create template in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template"})
		}
		return
	}

	logger.Info("Template created successfully", slog.String("orchid", tpl.Orchid))
	c.JSON(http.StatusCreated, dto.ToTemplateResponse(tpl))
}

// replaceTemplate godoc
// @Summary Replace an event template
// @Description Swaps the full definition of a template, bumping its version. The orchid is immutable.
// @Tags templates
// @Accept  json
// @Produce  json
// @Param   orchid path string true "Template orchid"
// @Param   template body dto.SaveTemplateRequest true "New template definition"
// @Success 200 {object} dto.TemplateResponse
// @Failure 400 {object} map[string]string "Invalid definition"
// @Failure 404 {object} map[string]string "Template not found"
// @Failure 500 {object} map[string]string "Failed to replace template"
// @Router /templates/{orchid} [put]
func (h *templateHandler) replaceTemplate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, userID := mustScope(c)
	orchid := c.Param("orchid")

	var req dto.SaveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ReplaceTemplate", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	tpl, err := h.templateService.ReplaceTemplate(c.Request.Context(), orgID, orchid, req, userID)
	if err != nil {
		if status, ok := templateErrorStatus(err); ok {
			c.JSON(status, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to replace template", slog.String("orchid", orchid), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to replace template"})
		}
		return
	}

	logger.Info("Template replaced successfully", slog.String("orchid", orchid), slog.Int("version", tpl.Version))
	c.JSON(http.StatusOK, dto.ToTemplateResponse(tpl))
}

// getTemplate godoc
// @Summary Get a template by orchid
// @Description Retrieves one event template by its unique code
// @Tags templates
// @Produce  json
// @Param   orchid path string true "Template orchid"
// @Success 200 {object} dto.TemplateResponse
// @Failure 404 {object} map[string]string "Template not found"
// @Failure 500 {object} map[string]string "Failed to retrieve template"
// @Router /templates/{orchid} [get]
func (h *templateHandler) getTemplate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, _ := mustScope(c)
	orchid := c.Param("orchid")

	tpl, err := h.templateService.GetTemplateByOrchid(c.Request.Context(), orgID, orchid)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		} else {
			logger.Error("Failed to get template", slog.String("orchid", orchid), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve template"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToTemplateResponse(tpl))
}

// listTemplates godoc
// @Summary List templates
// @Description Retrieves all event templates of the organization
// @Tags templates
// @Produce  json
// @Success 200 {array} dto.TemplateResponse
// @Failure 500 {object} map[string]string "Failed to list templates"
// @Router /templates [get]
func (h *templateHandler) listTemplates(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, _ := mustScope(c)

	templates, err := h.templateService.ListTemplates(c.Request.Context(), orgID)
	if err != nil {
		logger.Error("Failed to list templates", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list templates"})
		return
	}

	resp := make([]dto.TemplateResponse, 0, len(templates))
	for i := range templates {
		resp = append(resp, dto.ToTemplateResponse(&templates[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// activateTemplate godoc
// @Summary Activate a template
// @Description Enables a template for dispatch
// @Tags templates
// @Produce  json
// @Param   orchid path string true "Template orchid"
// @Success 204 "Template activated"
// @Failure 404 {object} map[string]string "Template not found"
// @Failure 500 {object} map[string]string "Failed to activate template"
// @Router /templates/{orchid}/activate [post]
func (h *templateHandler) activateTemplate(c *gin.Context) {
	h.setActive(c, true)
}

// deactivateTemplate godoc
// @Summary Deactivate a template
// @Description Disables a template; dispatching it fails until it is reactivated
// @Tags templates
// @Produce  json
// @Param   orchid path string true "Template orchid"
// @Success 204 "Template deactivated"
// @Failure 404 {object} map[string]string "Template not found"
// @Failure 500 {object} map[string]string "Failed to deactivate template"
// @Router /templates/{orchid}/deactivate [post]
func (h *templateHandler) deactivateTemplate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *templateHandler) setActive(c *gin.Context, active bool) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, userID := mustScope(c)
	orchid := c.Param("orchid")

	err := h.templateService.SetTemplateActive(c.Request.Context(), orgID, orchid, active, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		} else {
			logger.Error("Failed to set template active flag", slog.String("orchid", orchid), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template"})
		}
		return
	}

	logger.Info("Template active flag updated", slog.String("orchid", orchid), slog.Bool("active", active))
	c.Status(http.StatusNoContent)
}
