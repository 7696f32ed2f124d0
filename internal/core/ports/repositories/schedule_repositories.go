package repositories

import (
	"context"
	"time"

	"github.com/finbook-oss/finbook_backend/internal/core/domain"
)

// ScheduleRepositoryFacade persists recurring schedules.
type ScheduleRepositoryFacade interface {
	// SaveSchedule persists a new schedule.
	SaveSchedule(ctx context.Context, schedule domain.RecurringSchedule) error

	// UpdateSchedule updates a schedule's payload, spec and window fields.
	UpdateSchedule(ctx context.Context, schedule domain.RecurringSchedule) error

	// FindScheduleByID retrieves one schedule.
	FindScheduleByID(ctx context.Context, scheduleID string) (*domain.RecurringSchedule, error)

	// ListSchedules retrieves all schedules for an organization.
	ListSchedules(ctx context.Context, orgID string) ([]domain.RecurringSchedule, error)

	// FindDueSchedules retrieves enabled schedules whose nextRun is at or
	// before now, whose end date (if any) is in the future, and whose run
	// count is below maxRuns (if set).
	FindDueSchedules(ctx context.Context, now time.Time, limit int) ([]domain.RecurringSchedule, error)

	// ClaimSchedule bumps the schedule's version iff it still matches the
	// expected value. It returns false when another worker claimed the row
	// first; the loser must skip the schedule for this tick.
	ClaimSchedule(ctx context.Context, scheduleID string, expectedVersion int) (bool, error)

	// RecordRun advances lastRun/runCount/nextRun (and the enabled flag) after
	// a claimed dispatch, whatever its outcome.
	RecordRun(ctx context.Context, schedule domain.RecurringSchedule) error
}
