package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finbook-oss/finbook_backend/internal/apperrors"
	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	portsrepo "github.com/finbook-oss/finbook_backend/internal/core/ports/repositories"
	portssvc "github.com/finbook-oss/finbook_backend/internal/core/ports/services"
	"github.com/finbook-oss/finbook_backend/internal/core/ruleengine"
	"github.com/finbook-oss/finbook_backend/internal/dto"
	"github.com/finbook-oss/finbook_backend/internal/middleware"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrTemplateInactive = errors.New("template is inactive")

	// ErrMissingFields lists every required field absent from the payload,
	// not just the first.
	ErrMissingFields = errors.New("payload is missing required fields")

	// ErrReferenceCollision indicates reference generation kept colliding
	// after the bounded number of retries.
	ErrReferenceCollision = errors.New("reference generation exhausted retries")
)

// journalStepName is the built-in ledger step recorded on every instance.
const journalStepName = "journal"

// DispatcherConfig bounds dispatch behavior.
type DispatcherConfig struct {
	// MaxReferenceAttempts bounds transparent retries on reference collision.
	MaxReferenceAttempts int
	// PluginTimeout bounds each downstream plugin call so a hanging plugin
	// cannot block dispatch completion.
	PluginTimeout time.Duration
}

// DefaultDispatcherConfig returns the production defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxReferenceAttempts: 3,
		PluginTimeout:        5 * time.Second,
	}
}

// dispatcherService orchestrates one template execution: payload validation,
// rule evaluation, journal creation and posting, downstream plugins, and the
// durable event instance that records it all.
type dispatcherService struct {
	templateRepo portsrepo.TemplateRepositoryFacade
	counterRepo  portsrepo.CounterRepositoryFacade
	eventRepo    portsrepo.EventRepositoryFacade
	journalSvc   portssvc.JournalSvcFacade
	plugins      []portssvc.DispatchPlugin
	cfg          DispatcherConfig
}

// NewDispatcherService creates a new dispatcher. plugins run after the
// built-in journal step, in registration order.
func NewDispatcherService(
	templateRepo portsrepo.TemplateRepositoryFacade,
	counterRepo portsrepo.CounterRepositoryFacade,
	eventRepo portsrepo.EventRepositoryFacade,
	journalSvc portssvc.JournalSvcFacade,
	cfg DispatcherConfig,
	plugins ...portssvc.DispatchPlugin,
) portssvc.DispatcherSvcFacade {
	if cfg.MaxReferenceAttempts <= 0 {
		cfg.MaxReferenceAttempts = DefaultDispatcherConfig().MaxReferenceAttempts
	}
	if cfg.PluginTimeout <= 0 {
		cfg.PluginTimeout = DefaultDispatcherConfig().PluginTimeout
	}
	return &dispatcherService{
		templateRepo: templateRepo,
		counterRepo:  counterRepo,
		eventRepo:    eventRepo,
		journalSvc:   journalSvc,
		plugins:      plugins,
		cfg:          cfg,
	}
}

var _ portssvc.DispatcherSvcFacade = (*dispatcherService)(nil)

// Dispatch executes one template against a payload. Every attempt leaves a
// persisted event instance, successful or not.
func (s *dispatcherService) Dispatch(ctx context.Context, orgID string, orchid string, payload map[string]any, userID string) (*domain.EventInstance, error) {
	logger := middleware.GetLoggerFromCtx(ctx).With(slog.String("orchid", orchid))

	tpl, err := s.templateRepo.FindTemplateByOrchid(ctx, orgID, orchid)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: '%s'", ErrTemplateNotFound, orchid)
		}
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if !tpl.IsActive {
		return nil, fmt.Errorf("%w: '%s'", ErrTemplateInactive, orchid)
	}

	now := time.Now().UTC()
	instance := domain.EventInstance{
		EventID:        uuid.NewString(),
		OrganizationID: orgID,
		TemplateOrchid: orchid,
		Type:           tpl.Name,
		Payload:        payload,
		Status:         domain.EventPending,
		Results:        []domain.StepResult{},
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}
	if err := s.eventRepo.SaveEventInstance(ctx, instance); err != nil {
		logger.Error("Failed to persist event instance", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to persist event instance: %w", err)
	}

	// Payload schema check: collect every missing field before failing.
	if missing := missingFields(tpl.InputSchema.Required, payload); len(missing) > 0 {
		err := fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
		return s.fail(ctx, instance, err, userID)
	}

	// Evaluate and post, retrying reference generation on collision. The
	// collision is detected by the unique reference index when the draft is
	// saved; a fresh serial is allocated per attempt.
	var journalID string
	var reference string
	var stepErr error
	for attempt := 1; attempt <= s.cfg.MaxReferenceAttempts; attempt++ {
		var serial int64
		if tpl.ReferenceConfig.SerialMethod == domain.SerialIncrementor {
			serial, err = s.counterRepo.AllocateSerial(ctx, orgID, orchid)
			if err != nil {
				return s.fail(ctx, instance, fmt.Errorf("failed to allocate serial: %w", err), userID)
			}
		}

		result, err := ruleengine.Evaluate(*tpl, payload, serial)
		if err != nil {
			// Evaluation failures (imbalance, bad placeholder, bad formula)
			// are template defects; no journal and no balance change occur.
			return s.fail(ctx, instance, err, userID)
		}
		reference = result.Reference

		journalID, stepErr = s.postJournal(ctx, orgID, result, userID)
		if stepErr == nil {
			break
		}
		if !errors.Is(stepErr, apperrors.ErrDuplicate) {
			return s.fail(ctx, instance, stepErr, userID)
		}
		logger.Warn("Reference collision, retrying", slog.String("reference", reference), slog.Int("attempt", attempt))
		stepErr = fmt.Errorf("%w: last tried '%s'", ErrReferenceCollision, reference)
	}
	if stepErr != nil {
		return s.fail(ctx, instance, stepErr, userID)
	}

	instance.Reference = reference
	instance.Results = append(instance.Results, domain.StepResult{
		Step:     journalStepName,
		Success:  true,
		ResultID: &journalID,
	})

	// Downstream plugins run after the ledger step and fail independently;
	// a plugin failure never orphans the posted journal.
	for _, plugin := range s.plugins {
		pluginCtx, cancel := context.WithTimeout(ctx, s.cfg.PluginTimeout)
		stepResult := plugin.Apply(pluginCtx, instance, journalID)
		cancel()
		if !stepResult.Success {
			logger.Warn("Dispatch plugin failed", slog.String("plugin", plugin.Name()), slog.String("error", stepResult.Error))
		}
		instance.Results = append(instance.Results, stepResult)
	}

	processedAt := time.Now().UTC()
	instance.Status = domain.EventProcessed
	instance.ProcessedAt = &processedAt
	instance.LastUpdatedAt = processedAt
	instance.LastUpdatedBy = userID
	if err := s.eventRepo.FinalizeEventInstance(ctx, instance); err != nil {
		logger.Error("Failed to finalize event instance", slog.String("error", err.Error()), slog.String("event_id", instance.EventID))
		return nil, fmt.Errorf("failed to finalize event instance: %w", err)
	}

	logger.Info("Dispatch processed", slog.String("event_id", instance.EventID), slog.String("reference", reference), slog.String("journal_id", journalID))
	return &instance, nil
}

// postJournal creates a draft from the evaluated lines and posts it. A
// posting failure removes the draft so no unposted journal is left behind.
func (s *dispatcherService) postJournal(ctx context.Context, orgID string, result *ruleengine.Result, userID string) (string, error) {
	lines := make([]dto.CreateJournalLineRequest, len(result.Lines))
	for i, line := range result.Lines {
		lines[i] = dto.CreateJournalLineRequest{
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Narration: line.Narration,
		}
	}

	reference := result.Reference
	journal, err := s.journalSvc.CreateJournal(ctx, orgID, dto.CreateJournalRequest{
		Date:        time.Now().UTC(),
		Reference:   &reference,
		Description: result.Narration,
		Lines:       lines,
	}, userID)
	if err != nil {
		return "", err
	}

	postResult, err := s.journalSvc.PostJournals(ctx, orgID, []string{journal.JournalID}, userID)
	if err != nil {
		return "", err
	}
	if len(postResult.Failed) > 0 {
		postErr := fmt.Errorf("failed to post journal: %s", postResult.Failed[0].Error)
		if delErr := s.journalSvc.DeleteDraft(ctx, orgID, journal.JournalID, userID); delErr != nil {
			middleware.GetLoggerFromCtx(ctx).Error("Failed to clean up draft after post failure",
				slog.String("journal_id", journal.JournalID), slog.String("error", delErr.Error()))
		}
		return "", postErr
	}
	return journal.JournalID, nil
}

// fail records the terminal FAILED state on the instance and surfaces the error.
func (s *dispatcherService) fail(ctx context.Context, instance domain.EventInstance, cause error, userID string) (*domain.EventInstance, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	instance.Status = domain.EventFailed
	instance.ProcessedAt = &now
	instance.ErrorMessage = cause.Error()
	instance.Results = append(instance.Results, domain.StepResult{
		Step:    journalStepName,
		Success: false,
		Error:   cause.Error(),
	})
	instance.LastUpdatedAt = now
	instance.LastUpdatedBy = userID

	if err := s.eventRepo.FinalizeEventInstance(ctx, instance); err != nil {
		// The dispatch failure still takes precedence in the returned error.
		logger.Error("Failed to finalize failed event instance", slog.String("error", err.Error()), slog.String("event_id", instance.EventID))
	}

	logger.Warn("Dispatch failed", slog.String("event_id", instance.EventID), slog.String("error", cause.Error()))
	return &instance, cause
}

// missingFields returns every required field absent from the payload.
func missingFields(required []string, payload map[string]any) []string {
	var missing []string
	for _, field := range required {
		if _, ok := payload[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

// GetEventInstance retrieves one event instance.
func (s *dispatcherService) GetEventInstance(ctx context.Context, orgID string, eventID string) (*domain.EventInstance, error) {
	instance, err := s.eventRepo.FindEventInstanceByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if instance.OrganizationID != orgID {
		return nil, apperrors.ErrNotFound
	}
	return instance, nil
}

// ListEventInstances retrieves a page of instances.
func (s *dispatcherService) ListEventInstances(ctx context.Context, orgID string, orchid string, limit int, offset int) ([]domain.EventInstance, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.eventRepo.ListEventInstances(ctx, orgID, orchid, limit, offset)
}
