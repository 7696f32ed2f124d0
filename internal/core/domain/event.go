package domain

import "time"

// EventStatus is the lifecycle state of an event instance.
type EventStatus string

const (
	EventPending   EventStatus = "PENDING"
	EventProcessed EventStatus = "PROCESSED"
	EventFailed    EventStatus = "FAILED"
)

// StepResult records the outcome of one downstream step of a dispatch
// (the built-in "journal" step, plus any registered plugins).
type StepResult struct {
	Step     string  `json:"step"`
	Success  bool    `json:"success"`
	ResultID *string `json:"resultID,omitempty"` // e.g. the posted journal ID
	Error    string  `json:"error,omitempty"`
}

// EventInstance is the durable record of one dispatch attempt. Exactly one
// instance is written per attempt, successful or not; once PROCESSED or
// FAILED it is immutable apart from that terminal write.
type EventInstance struct {
	EventID        string         `json:"eventID"`        // Primary key (UUID)
	OrganizationID string         `json:"organizationID"` // Owning organization (NON-NULL)
	TemplateOrchid string         `json:"templateOrchid"`
	Type           string         `json:"type"`      // template name at dispatch time
	Reference      string         `json:"reference"` // generated journal reference, empty on early failure
	Payload        map[string]any `json:"payload"`
	Status         EventStatus    `json:"status"`
	ProcessedAt    *time.Time     `json:"processedAt,omitempty"`
	ErrorMessage   string         `json:"errorMessage,omitempty"`
	Results        []StepResult   `json:"results"`
	AuditFields
}
