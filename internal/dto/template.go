package dto

import (
	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LineRuleRequest describes one line rule in a template definition.
type LineRuleRequest struct {
	AccountID   string                 `json:"accountID" binding:"required"`
	Direction   domain.LineDirection   `json:"direction" binding:"required"`
	SourceField string                 `json:"sourceField" binding:"required"`
	Operator    domain.FormulaOperator `json:"operator" binding:"required"`
	Operand     *decimal.Decimal       `json:"operand"`
	Narration   string                 `json:"narration"`
}

// ReferenceConfigRequest describes reference generation for a template.
type ReferenceConfigRequest struct {
	Prefix       string              `json:"prefix" binding:"required"`
	SerialMethod domain.SerialMethod `json:"serialMethod" binding:"required"`
	Length       int                 `json:"length" binding:"required,min=1,max=16"`
}

// SaveTemplateRequest creates or fully replaces an event template.
type SaveTemplateRequest struct {
	Orchid            string                 `json:"orchid" binding:"required"`
	Name              string                 `json:"name" binding:"required"`
	ReferenceConfig   ReferenceConfigRequest `json:"referenceConfig" binding:"required"`
	NarrationTemplate string                 `json:"narrationTemplate"`
	RequiredFields    []string               `json:"requiredFields" binding:"required,min=1"`
	LineRules         []LineRuleRequest      `json:"lineRules" binding:"required,min=2"`
}

// TemplateResponse is the API representation of an event template.
type TemplateResponse struct {
	TemplateID        string                 `json:"templateID"`
	Orchid            string                 `json:"orchid"`
	Name              string                 `json:"name"`
	ReferenceConfig   domain.ReferenceConfig `json:"referenceConfig"`
	NarrationTemplate string                 `json:"narrationTemplate,omitempty"`
	RequiredFields    []string               `json:"requiredFields"`
	LineRules         []domain.LineRule      `json:"lineRules"`
	IsActive          bool                   `json:"isActive"`
	Version           int                    `json:"version"`
}

// ToTemplateResponse maps a domain template to its API representation.
func ToTemplateResponse(t *domain.EventTemplate) TemplateResponse {
	return TemplateResponse{
		TemplateID:        t.TemplateID,
		Orchid:            t.Orchid,
		Name:              t.Name,
		ReferenceConfig:   t.ReferenceConfig,
		NarrationTemplate: t.NarrationTemplate,
		RequiredFields:    t.InputSchema.Required,
		LineRules:         t.LineRules,
		IsActive:          t.IsActive,
		Version:           t.Version,
	}
}
