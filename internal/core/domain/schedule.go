package domain

import "time"

// ScheduleType selects the recurrence pattern of a schedule.
type ScheduleType string

const (
	ScheduleDaily           ScheduleType = "daily"
	ScheduleWeekly          ScheduleType = "weekly"
	ScheduleMonthly         ScheduleType = "monthly"
	ScheduleCalendarMonthly ScheduleType = "calendar_monthly"
)

// ValidScheduleType reports whether t is a known schedule type.
func ValidScheduleType(t ScheduleType) bool {
	switch t {
	case ScheduleDaily, ScheduleWeekly, ScheduleMonthly, ScheduleCalendarMonthly:
		return true
	default:
		return false
	}
}

// ScheduleSpec describes when a recurring schedule fires.
// Time is "HH:MM" (24h). DayOfWeek follows time.Weekday numbering
// (Sunday = 0). DayOfMonth is 1..31 and is clamped to the last day of
// shorter months.
type ScheduleSpec struct {
	Type       ScheduleType `json:"type"`
	Time       string       `json:"time,omitempty"`
	DayOfWeek  *int         `json:"dayOfWeek,omitempty"`
	DayOfMonth *int         `json:"dayOfMonth,omitempty"`
}

// RecurringSchedule re-fires an event template on a time-based schedule.
// Once a schedule has run it is disabled rather than deleted, preserving
// audit history; it terminates naturally when EndAt passes, MaxRuns is
// reached, or it is disabled.
type RecurringSchedule struct {
	ScheduleID     string         `json:"scheduleID"`     // Primary key (UUID)
	OrganizationID string         `json:"organizationID"` // Owning organization (NON-NULL)
	TemplateOrchid string         `json:"templateOrchid"`
	Payload        map[string]any `json:"payload"`
	Spec           ScheduleSpec   `json:"spec"`
	StartAt        time.Time      `json:"startAt"`
	EndAt          *time.Time     `json:"endAt,omitempty"`
	NextRun        *time.Time     `json:"nextRun,omitempty"`
	LastRun        *time.Time     `json:"lastRun,omitempty"`
	Enabled        bool           `json:"enabled"`
	RunCount       int            `json:"runCount"`
	MaxRuns        *int           `json:"maxRuns,omitempty"`
	Version        int            `json:"version"` // optimistic claim counter for racing workers
	AuditFields
}

// Exhausted reports whether the schedule has no further runs available as of now.
func (s RecurringSchedule) Exhausted(now time.Time) bool {
	if s.MaxRuns != nil && s.RunCount >= *s.MaxRuns {
		return true
	}
	if s.EndAt != nil && !s.EndAt.After(now) {
		return true
	}
	return false
}
