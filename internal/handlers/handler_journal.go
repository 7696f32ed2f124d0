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

// journalHandler handles HTTP requests related to journals.
type journalHandler struct {
	journalService portssvc.JournalSvcFacade
}

// newJournalHandler creates a new journalHandler.
func newJournalHandler(js portssvc.JournalSvcFacade) *journalHandler {
	return &journalHandler{
		journalService: js,
	}
}

// registerJournalRoutes registers routes related to journals.
func registerJournalRoutes(rg *gin.RouterGroup, js portssvc.JournalSvcFacade) {
	h := newJournalHandler(js)

	journals := rg.Group("/journals")
	{
		journals.POST("", h.createJournal)
		journals.GET("", h.listJournals)
		journals.GET("/:id", h.getJournal)
		journals.PATCH("/:id", h.updateDraft)
		journals.DELETE("/:id", h.deleteDraft)
		journals.POST("/post", h.postJournals)
		journals.POST("/reverse", h.reverseJournals)
	}
}

// createJournal godoc
// @Summary Create a draft journal
// @Description Creates a balanced journal entry in DRAFT status; account balances do not move
// @Tags journals
// @Accept  json
// @Produce  json
// @Param   journal body dto.CreateJournalRequest true "Journal details"
// @Success 201 {object} dto.JournalResponse
// @Failure 400 {object} map[string]string "Invalid input or unbalanced lines"
// @Failure 409 {object} map[string]string "Reference already in use"
// @Failure 500 {object} map[string]string "Failed to create journal"
// @Router /journals [post]
func (h *journalHandler) createJournal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, userID := mustScope(c)

	var req dto.CreateJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateJournal", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	journal, err := h.journalService.CreateJournal(c.Request.Context(), orgID, req, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnbalancedEntry),
			errors.Is(err, services.ErrJournalAccountNotFound),
			errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, apperrors.ErrDuplicate):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to create journal in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create journal"})
		}
		return
	}

	logger.Info("Journal created successfully", slog.String("journal_id", journal.JournalID))
	c.JSON(http.StatusCreated, dto.ToJournalResponse(journal))
}

// getJournal godoc
// @Summary Get a journal by ID
// @Description Retrieves a journal with its lines
// @Tags journals
// @Produce  json
// @Param   id path string true "Journal ID"
// @Success 200 {object} dto.JournalResponse
// @Failure 404 {object} map[string]string "Journal not found"
// @Failure 500 {object} map[string]string "Failed to retrieve journal"
// @Router /journals/{id} [get]
func (h *journalHandler) getJournal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, _ := mustScope(c)
	journalID := c.Param("id")

	journal, err := h.journalService.GetJournalByID(c.Request.Context(), orgID, journalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Journal not found"})
		} else {
			logger.Error("Failed to get journal", slog.String("journal_id", journalID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve journal"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToJournalResponse(journal))
}

// listJournals godoc
// @Summary List journals
// @Description Retrieves a page of journals, most recent first. postedOnly=true excludes drafts.
// @Tags journals
// @Produce  json
// @Param   limit query int false "Page size (default 50)"
// @Param   offset query int false "Page offset"
// @Param   postedOnly query bool false "Exclude draft journals"
// @Success 200 {array} dto.JournalResponse
// @Failure 500 {object} map[string]string "Failed to list journals"
// @Router /journals [get]
func (h *journalHandler) listJournals(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, _ := mustScope(c)
	limit, offset := pageParams(c)
	postedOnly := c.Query("postedOnly") == "true"

	journals, err := h.journalService.ListJournals(c.Request.Context(), orgID, limit, offset, postedOnly)
	if err != nil {
		logger.Error("Failed to list journals", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list journals"})
		return
	}

	resp := make([]dto.JournalResponse, 0, len(journals))
	for i := range journals {
		resp = append(resp, dto.ToJournalResponse(&journals[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// updateDraft godoc
// @Summary Update a draft journal
// @Description Patches a DRAFT journal. Supplying lines replaces them all and re-validates the balance.
// @Tags journals
// @Accept  json
// @Produce  json
// @Param   id path string true "Journal ID"
// @Param   journal body dto.UpdateJournalRequest true "Fields to update"
// @Success 200 {object} dto.JournalResponse
// @Failure 400 {object} map[string]string "Invalid input or unbalanced lines"
// @Failure 404 {object} map[string]string "Journal not found"
// @Failure 409 {object} map[string]string "Journal is no longer a draft"
// @Failure 500 {object} map[string]string "Failed to update journal"
// @Router /journals/{id} [patch]
func (h *journalHandler) updateDraft(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, userID := mustScope(c)
	journalID := c.Param("id")

	var req dto.UpdateJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateDraft", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	journal, err := h.journalService.UpdateDraft(c.Request.Context(), orgID, journalID, req, userID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Journal not found"})
		case errors.Is(err, services.ErrNotDraft), errors.Is(err, apperrors.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrUnbalancedEntry),
			errors.Is(err, services.ErrJournalAccountNotFound),
			errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, apperrors.ErrDuplicate):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to update draft", slog.String("journal_id", journalID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update journal"})
		}
		return
	}

	logger.Info("Draft journal updated", slog.String("journal_id", journalID))
	c.JSON(http.StatusOK, dto.ToJournalResponse(journal))
}

// deleteDraft godoc
// @Summary Delete a draft journal
// @Description Hard-deletes a journal that is still in DRAFT status
// @Tags journals
// @Produce  json
// @Param   id path string true "Journal ID"
// @Success 204 "Journal deleted"
// @Failure 404 {object} map[string]string "Journal not found"
// @Failure 409 {object} map[string]string "Journal is no longer a draft"
// @Failure 500 {object} map[string]string "Failed to delete journal"
// @Router /journals/{id} [delete]
func (h *journalHandler) deleteDraft(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, userID := mustScope(c)
	journalID := c.Param("id")

	err := h.journalService.DeleteDraft(c.Request.Context(), orgID, journalID, userID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Journal not found"})
		case errors.Is(err, services.ErrNotDraft), errors.Is(err, apperrors.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to delete draft", slog.String("journal_id", journalID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete journal"})
		}
		return
	}

	logger.Info("Draft journal deleted", slog.String("journal_id", journalID))
	c.Status(http.StatusNoContent)
}

// postJournals godoc
// @Summary Post draft journals
// @Description Posts each named DRAFT journal independently, applying lines to balances. Partial success is reported per journal.
// @Tags journals
// @Accept  json
// @Produce  json
// @Param   request body dto.BulkJournalRequest true "Journal IDs to post"
// @Success 200 {object} dto.BulkOperationResult
// @Failure 400 {object} map[string]string "Invalid input format"
// @Failure 500 {object} map[string]string "Failed to post journals"
// @Router /journals/post [post]
func (h *journalHandler) postJournals(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, userID := mustScope(c)

	var req dto.BulkJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for PostJournals", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger.Info("Received request to post journals", slog.Int("count", len(req.JournalIDs)))

	result, err := h.journalService.PostJournals(c.Request.Context(), orgID, req.JournalIDs, userID)
	if err != nil {
		logger.Error("Failed to post journals", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to post journals"})
		return
	}

	logger.Info("Journal posting completed",
		slog.Int("succeeded", len(result.Succeeded)),
		slog.Int("failed", len(result.Failed)))
	c.JSON(http.StatusOK, result)
}

// reverseJournals godoc
// @Summary Reverse posted journals
// @Description Reverses each named POSTED journal independently by creating a mirrored reversing journal. Partial success is reported per journal.
// @Tags journals
// @Accept  json
// @Produce  json
// @Param   request body dto.BulkJournalRequest true "Journal IDs to reverse"
// @Success 200 {object} dto.BulkOperationResult
// @Failure 400 {object} map[string]string "Invalid input format"
// @Failure 500 {object} map[string]string "Failed to reverse journals"
// @Router /journals/reverse [post]
func (h *journalHandler) reverseJournals(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	orgID, userID := mustScope(c)

	var req dto.BulkJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ReverseJournals", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger.Info("Received request to reverse journals", slog.Int("count", len(req.JournalIDs)))

	result, err := h.journalService.ReverseJournals(c.Request.Context(), orgID, req.JournalIDs, userID)
	if err != nil {
		logger.Error("Failed to reverse journals", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reverse journals"})
		return
	}

	logger.Info("Journal reversal completed",
		slog.Int("succeeded", len(result.Succeeded)),
		slog.Int("failed", len(result.Failed)))
	c.JSON(http.StatusOK, result)
}
