package dto

import (
	"time"

	"github.com/finbook-oss/finbook_backend/internal/core/domain"
)

// CreateScheduleRequest registers a recurring dispatch of a template.
type CreateScheduleRequest struct {
	TemplateOrchid string              `json:"templateOrchid" binding:"required"`
	Payload        map[string]any      `json:"payload" binding:"required"`
	Spec           domain.ScheduleSpec `json:"spec" binding:"required"`
	StartAt        time.Time           `json:"startAt" binding:"required"`
	EndAt          *time.Time          `json:"endAt"`
	MaxRuns        *int                `json:"maxRuns"`
}

// UpdateScheduleRequest updates a schedule's payload or window. Nil fields
// are left unchanged.
type UpdateScheduleRequest struct {
	Payload *map[string]any      `json:"payload"`
	Spec    *domain.ScheduleSpec `json:"spec"`
	EndAt   *time.Time           `json:"endAt"`
	MaxRuns *int                 `json:"maxRuns"`
}

// ScheduleResponse is the API representation of a recurring schedule.
type ScheduleResponse struct {
	ScheduleID     string              `json:"scheduleID"`
	TemplateOrchid string              `json:"templateOrchid"`
	Payload        map[string]any      `json:"payload"`
	Spec           domain.ScheduleSpec `json:"spec"`
	StartAt        time.Time           `json:"startAt"`
	EndAt          *time.Time          `json:"endAt,omitempty"`
	NextRun        *time.Time          `json:"nextRun,omitempty"`
	LastRun        *time.Time          `json:"lastRun,omitempty"`
	Enabled        bool                `json:"enabled"`
	RunCount       int                 `json:"runCount"`
	MaxRuns        *int                `json:"maxRuns,omitempty"`
}

// ToScheduleResponse maps a domain schedule to its API representation.
func ToScheduleResponse(s *domain.RecurringSchedule) ScheduleResponse {
	return ScheduleResponse{
		ScheduleID:     s.ScheduleID,
		TemplateOrchid: s.TemplateOrchid,
		Payload:        s.Payload,
		Spec:           s.Spec,
		StartAt:        s.StartAt,
		EndAt:          s.EndAt,
		NextRun:        s.NextRun,
		LastRun:        s.LastRun,
		Enabled:        s.Enabled,
		RunCount:       s.RunCount,
		MaxRuns:        s.MaxRuns,
	}
}
