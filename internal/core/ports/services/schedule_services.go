package services

import (
	"context"
	"time"

	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	"github.com/finbook-oss/finbook_backend/internal/dto"
)

// ScheduleSvcFacade manages recurring schedules and executes due ones.
type ScheduleSvcFacade interface {
	// CreateSchedule registers a schedule and computes its first run time.
	CreateSchedule(ctx context.Context, orgID string, req dto.CreateScheduleRequest, userID string) (*domain.RecurringSchedule, error)

	// UpdateSchedule patches a schedule's payload, spec or window.
	UpdateSchedule(ctx context.Context, orgID string, scheduleID string, req dto.UpdateScheduleRequest, userID string) (*domain.RecurringSchedule, error)

	// DisableSchedule soft-deletes a schedule, preserving its run history.
	DisableSchedule(ctx context.Context, orgID string, scheduleID string, userID string) error

	// GetScheduleByID retrieves one schedule.
	GetScheduleByID(ctx context.Context, orgID string, scheduleID string) (*domain.RecurringSchedule, error)

	// ListSchedules retrieves all schedules for an organization.
	ListSchedules(ctx context.Context, orgID string) ([]domain.RecurringSchedule, error)

	// RunDueSchedules claims and dispatches every schedule due at now,
	// advancing each schedule whatever the dispatch outcome. It returns the
	// number of schedules dispatched. Called by the recurrence worker each tick.
	RunDueSchedules(ctx context.Context, now time.Time) (int, error)
}
