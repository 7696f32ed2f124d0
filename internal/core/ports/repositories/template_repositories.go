package repositories

import (
	"context"

	"github.com/finbook-oss/finbook_backend/internal/core/domain"
)

// TemplateReader defines read operations for event templates.
type TemplateReader interface {
	// FindTemplateByOrchid retrieves a template by its unique code within an organization.
	FindTemplateByOrchid(ctx context.Context, orgID string, orchid string) (*domain.EventTemplate, error)

	// ListTemplates retrieves all templates for an organization, ordered by orchid.
	ListTemplates(ctx context.Context, orgID string) ([]domain.EventTemplate, error)
}

// TemplateWriter defines write operations for event templates.
type TemplateWriter interface {
	// SaveTemplate persists a new template.
	SaveTemplate(ctx context.Context, tpl domain.EventTemplate) error

	// ReplaceTemplate swaps the full definition of an existing template,
	// bumping its version. Templates are never partially mutated.
	ReplaceTemplate(ctx context.Context, tpl domain.EventTemplate) error

	// SetTemplateActive enables or disables a template.
	SetTemplateActive(ctx context.Context, orgID string, orchid string, active bool, userID string) error
}

// TemplateRepositoryFacade combines all template repository interfaces.
type TemplateRepositoryFacade interface {
	TemplateReader
	TemplateWriter
}

// CounterRepositoryFacade allocates monotonic serials for incrementor
// reference generation. One counter row exists per (organization, orchid);
// allocation is an atomic read-modify-write so serials stay collision-free
// under concurrent dispatch and across process restarts.
type CounterRepositoryFacade interface {
	// AllocateSerial increments and returns the counter for the template.
	AllocateSerial(ctx context.Context, orgID string, orchid string) (int64, error)
}
