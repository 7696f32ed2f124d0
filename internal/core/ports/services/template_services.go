package services

import (
	"context"

	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	"github.com/finbook-oss/finbook_backend/internal/dto"
)

// TemplateSvcFacade manages event template definitions. All definition-time
// validation (placeholder closure, formula shape, account existence) happens
// here, before any dispatch is possible.
type TemplateSvcFacade interface {
	// CreateTemplate registers a new template after full validation.
	CreateTemplate(ctx context.Context, orgID string, req dto.SaveTemplateRequest, userID string) (*domain.EventTemplate, error)

	// ReplaceTemplate swaps the complete definition of an existing template,
	// bumping its version. Templates are never partially mutated.
	ReplaceTemplate(ctx context.Context, orgID string, orchid string, req dto.SaveTemplateRequest, userID string) (*domain.EventTemplate, error)

	// GetTemplateByOrchid retrieves a template by its unique code.
	GetTemplateByOrchid(ctx context.Context, orgID string, orchid string) (*domain.EventTemplate, error)

	// ListTemplates retrieves all templates for an organization.
	ListTemplates(ctx context.Context, orgID string) ([]domain.EventTemplate, error)

	// SetTemplateActive enables or disables a template.
	SetTemplateActive(ctx context.Context, orgID string, orchid string, active bool, userID string) error
}
