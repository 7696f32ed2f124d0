package dto

import (
	"time"

	"github.com/finbook-oss/finbook_backend/internal/core/domain"
)

// DispatchRequest triggers one template execution against a payload.
type DispatchRequest struct {
	Payload map[string]any `json:"payload" binding:"required"`
}

// EventInstanceResponse is the API representation of an event instance.
type EventInstanceResponse struct {
	EventID        string              `json:"eventID"`
	TemplateOrchid string              `json:"templateOrchid"`
	Type           string              `json:"type"`
	Reference      string              `json:"reference,omitempty"`
	Status         domain.EventStatus  `json:"status"`
	ProcessedAt    *time.Time          `json:"processedAt,omitempty"`
	ErrorMessage   string              `json:"errorMessage,omitempty"`
	Results        []domain.StepResult `json:"results"`
}

// ToEventInstanceResponse maps a domain event instance to its API representation.
func ToEventInstanceResponse(e *domain.EventInstance) EventInstanceResponse {
	return EventInstanceResponse{
		EventID:        e.EventID,
		TemplateOrchid: e.TemplateOrchid,
		Type:           e.Type,
		Reference:      e.Reference,
		Status:         e.Status,
		ProcessedAt:    e.ProcessedAt,
		ErrorMessage:   e.ErrorMessage,
		Results:        e.Results,
	}
}
