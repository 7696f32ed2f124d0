package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finbook-oss/finbook_backend/internal/apperrors"
	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	portsrepo "github.com/finbook-oss/finbook_backend/internal/core/ports/repositories"
	portssvc "github.com/finbook-oss/finbook_backend/internal/core/ports/services"
	"github.com/finbook-oss/finbook_backend/internal/dto"
	"github.com/finbook-oss/finbook_backend/internal/middleware"
)

var (
	ErrBadScheduleSpec = errors.New("invalid schedule specification")
)

// EndOfMonthClamp documents the rollover policy for monthly schedules whose
// day-of-month exceeds the target month's length: the run is clamped to the
// last day of that month (day 31 in February fires on Feb 28/29), never
// rolled into the next month.
const EndOfMonthClamp = true

// dueBatchSize caps how many due schedules one tick claims.
const dueBatchSize = 100

// scheduleService manages recurring schedules and executes due ones.
type scheduleService struct {
	scheduleRepo portsrepo.ScheduleRepositoryFacade
	templateRepo portsrepo.TemplateRepositoryFacade
	dispatcher   portssvc.DispatcherSvcFacade
}

// NewScheduleService creates a new schedule service.
func NewScheduleService(scheduleRepo portsrepo.ScheduleRepositoryFacade, templateRepo portsrepo.TemplateRepositoryFacade, dispatcher portssvc.DispatcherSvcFacade) portssvc.ScheduleSvcFacade {
	return &scheduleService{
		scheduleRepo: scheduleRepo,
		templateRepo: templateRepo,
		dispatcher:   dispatcher,
	}
}

var _ portssvc.ScheduleSvcFacade = (*scheduleService)(nil)

// validateSpec checks a schedule spec's shape.
func validateSpec(spec domain.ScheduleSpec) error {
	if !domain.ValidScheduleType(spec.Type) {
		return fmt.Errorf("%w: unknown type '%s'", ErrBadScheduleSpec, spec.Type)
	}
	if spec.Time != "" {
		if _, err := time.Parse("15:04", spec.Time); err != nil {
			return fmt.Errorf("%w: time must be HH:MM, got '%s'", ErrBadScheduleSpec, spec.Time)
		}
	}
	switch spec.Type {
	case domain.ScheduleWeekly:
		if spec.DayOfWeek == nil || *spec.DayOfWeek < 0 || *spec.DayOfWeek > 6 {
			return fmt.Errorf("%w: weekly schedules need dayOfWeek 0..6", ErrBadScheduleSpec)
		}
	case domain.ScheduleMonthly, domain.ScheduleCalendarMonthly:
		if spec.DayOfMonth == nil || *spec.DayOfMonth < 1 || *spec.DayOfMonth > 31 {
			return fmt.Errorf("%w: monthly schedules need dayOfMonth 1..31", ErrBadScheduleSpec)
		}
	}
	return nil
}

// specTime parses the HH:MM of a spec, defaulting to midnight.
func specTime(spec domain.ScheduleSpec) (hour, minute int) {
	if spec.Time == "" {
		return 0, 0
	}
	t, err := time.Parse("15:04", spec.Time)
	if err != nil {
		return 0, 0
	}
	return t.Hour(), t.Minute()
}

// clampDay clamps day to the length of the month containing year/month.
func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

// NextRunAfter computes the first run time strictly after `after` for the
// given spec. Daily schedules fire at the configured time each day; weekly
// at the configured weekday and time; monthly and calendar_monthly at the
// configured day-of-month and time, clamped to the last day of shorter
// months per EndOfMonthClamp.
func NextRunAfter(spec domain.ScheduleSpec, after time.Time) time.Time {
	hour, minute := specTime(spec)
	after = after.UTC()

	switch spec.Type {
	case domain.ScheduleDaily:
		candidate := time.Date(after.Year(), after.Month(), after.Day(), hour, minute, 0, 0, time.UTC)
		if !candidate.After(after) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate

	case domain.ScheduleWeekly:
		target := time.Weekday(*spec.DayOfWeek)
		candidate := time.Date(after.Year(), after.Month(), after.Day(), hour, minute, 0, 0, time.UTC)
		daysAhead := (int(target) - int(candidate.Weekday()) + 7) % 7
		candidate = candidate.AddDate(0, 0, daysAhead)
		if !candidate.After(after) {
			candidate = candidate.AddDate(0, 0, 7)
		}
		return candidate

	case domain.ScheduleMonthly, domain.ScheduleCalendarMonthly:
		day := *spec.DayOfMonth
		candidate := time.Date(after.Year(), after.Month(), clampDay(after.Year(), after.Month(), day), hour, minute, 0, 0, time.UTC)
		if !candidate.After(after) {
			next := time.Date(after.Year(), after.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
			candidate = time.Date(next.Year(), next.Month(), clampDay(next.Year(), next.Month(), day), hour, minute, 0, 0, time.UTC)
		}
		return candidate

	default:
		// Unreachable for validated specs.
		return after.AddDate(0, 0, 1)
	}
}

// CreateSchedule registers a schedule and computes its first run time. The
// first run is the first due point at or after StartAt.
func (s *scheduleService) CreateSchedule(ctx context.Context, orgID string, req dto.CreateScheduleRequest, userID string) (*domain.RecurringSchedule, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := validateSpec(req.Spec); err != nil {
		return nil, err
	}
	if req.EndAt != nil && !req.EndAt.After(req.StartAt) {
		return nil, fmt.Errorf("%w: endAt must be after startAt", ErrBadScheduleSpec)
	}
	if req.MaxRuns != nil && *req.MaxRuns < 1 {
		return nil, fmt.Errorf("%w: maxRuns must be at least 1", ErrBadScheduleSpec)
	}

	tpl, err := s.templateRepo.FindTemplateByOrchid(ctx, orgID, req.TemplateOrchid)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: '%s'", ErrTemplateNotFound, req.TemplateOrchid)
		}
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if !tpl.IsActive {
		return nil, fmt.Errorf("%w: '%s'", ErrTemplateInactive, req.TemplateOrchid)
	}

	now := time.Now().UTC()
	// An instant before StartAt so a due point exactly at StartAt is kept.
	firstRun := NextRunAfter(req.Spec, req.StartAt.Add(-time.Second))
	schedule := domain.RecurringSchedule{
		ScheduleID:     uuid.NewString(),
		OrganizationID: orgID,
		TemplateOrchid: req.TemplateOrchid,
		Payload:        req.Payload,
		Spec:           req.Spec,
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		NextRun:        &firstRun,
		Enabled:        true,
		RunCount:       0,
		MaxRuns:        req.MaxRuns,
		Version:        1,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.scheduleRepo.SaveSchedule(ctx, schedule); err != nil {
		logger.Error("Failed to save schedule", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}

	logger.Info("Schedule created", slog.String("schedule_id", schedule.ScheduleID), slog.String("orchid", req.TemplateOrchid), slog.Time("next_run", firstRun))
	return &schedule, nil
}

// UpdateSchedule patches a schedule's payload, spec or window. A spec change
// recomputes the next run from now.
func (s *scheduleService) UpdateSchedule(ctx context.Context, orgID string, scheduleID string, req dto.UpdateScheduleRequest, userID string) (*domain.RecurringSchedule, error) {
	schedule, err := s.GetScheduleByID(ctx, orgID, scheduleID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if req.Payload != nil {
		schedule.Payload = *req.Payload
	}
	if req.Spec != nil {
		if err := validateSpec(*req.Spec); err != nil {
			return nil, err
		}
		schedule.Spec = *req.Spec
		next := NextRunAfter(*req.Spec, now)
		schedule.NextRun = &next
	}
	if req.EndAt != nil {
		schedule.EndAt = req.EndAt
	}
	if req.MaxRuns != nil {
		if *req.MaxRuns < 1 {
			return nil, fmt.Errorf("%w: maxRuns must be at least 1", ErrBadScheduleSpec)
		}
		schedule.MaxRuns = req.MaxRuns
	}
	schedule.LastUpdatedAt = now
	schedule.LastUpdatedBy = userID

	if err := s.scheduleRepo.UpdateSchedule(ctx, *schedule); err != nil {
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}
	return schedule, nil
}

// DisableSchedule soft-deletes a schedule; run history is preserved.
func (s *scheduleService) DisableSchedule(ctx context.Context, orgID string, scheduleID string, userID string) error {
	schedule, err := s.GetScheduleByID(ctx, orgID, scheduleID)
	if err != nil {
		return err
	}
	if !schedule.Enabled {
		return nil
	}
	schedule.Enabled = false
	schedule.LastUpdatedAt = time.Now().UTC()
	schedule.LastUpdatedBy = userID
	if err := s.scheduleRepo.UpdateSchedule(ctx, *schedule); err != nil {
		return fmt.Errorf("failed to disable schedule: %w", err)
	}

	middleware.GetLoggerFromCtx(ctx).Info("Schedule disabled", slog.String("schedule_id", scheduleID))
	return nil
}

// GetScheduleByID retrieves one schedule, scoped to the organization.
func (s *scheduleService) GetScheduleByID(ctx context.Context, orgID string, scheduleID string) (*domain.RecurringSchedule, error) {
	schedule, err := s.scheduleRepo.FindScheduleByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule.OrganizationID != orgID {
		return nil, apperrors.ErrNotFound
	}
	return schedule, nil
}

// ListSchedules retrieves all schedules for an organization.
func (s *scheduleService) ListSchedules(ctx context.Context, orgID string) ([]domain.RecurringSchedule, error) {
	return s.scheduleRepo.ListSchedules(ctx, orgID)
}

// RunDueSchedules claims and dispatches every due schedule. A schedule is
// claimed with an optimistic version bump before dispatch, so two racing
// workers cannot both fire it or double-advance its counters. Whatever the
// dispatch outcome, the schedule advances: lastRun is set, runCount
// incremented, and nextRun recomputed, so a failing dispatch never spins on
// the same instant.
func (s *scheduleService) RunDueSchedules(ctx context.Context, now time.Time) (int, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	due, err := s.scheduleRepo.FindDueSchedules(ctx, now, dueBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to select due schedules: %w", err)
	}

	dispatched := 0
	for _, schedule := range due {
		claimed, err := s.scheduleRepo.ClaimSchedule(ctx, schedule.ScheduleID, schedule.Version)
		if err != nil {
			logger.Error("Failed to claim schedule", slog.String("schedule_id", schedule.ScheduleID), slog.String("error", err.Error()))
			continue
		}
		if !claimed {
			// Another worker won the race for this tick.
			continue
		}

		if _, err := s.dispatcher.Dispatch(ctx, schedule.OrganizationID, schedule.TemplateOrchid, schedule.Payload, "scheduler"); err != nil {
			// Recorded on the event instance; the schedule still advances.
			logger.Warn("Scheduled dispatch failed",
				slog.String("schedule_id", schedule.ScheduleID),
				slog.String("orchid", schedule.TemplateOrchid),
				slog.String("error", err.Error()))
		}
		dispatched++

		ranAt := now
		schedule.LastRun = &ranAt
		schedule.RunCount++
		schedule.Version++
		next := NextRunAfter(schedule.Spec, now)
		schedule.NextRun = &next
		if schedule.Exhausted(next) {
			schedule.Enabled = false
		}
		schedule.LastUpdatedAt = time.Now().UTC()
		schedule.LastUpdatedBy = "scheduler"

		if err := s.scheduleRepo.RecordRun(ctx, schedule); err != nil {
			logger.Error("Failed to record schedule run", slog.String("schedule_id", schedule.ScheduleID), slog.String("error", err.Error()))
		}
	}

	if dispatched > 0 {
		logger.Info("Scheduler tick dispatched", slog.Int("count", dispatched))
	}
	return dispatched, nil
}
