package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/finbook-oss/finbook_backend/internal/apperrors"
	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	portsrepo "github.com/finbook-oss/finbook_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const templateColumns = `template_id, organization_id, orchid, name, reference_config, narration_template, input_schema, line_rules, is_active, version, created_at, created_by, last_updated_at, last_updated_by`

// PgxTemplateRepository persists event templates in PostgreSQL.
// The structured parts of a template (reference config, input schema, line
// rules) live in JSONB columns; templates are read whole and replaced whole.
type PgxTemplateRepository struct {
	BaseRepository
}

// newPgxTemplateRepository creates a new repository for template data.
func newPgxTemplateRepository(pool *pgxpool.Pool) portsrepo.TemplateRepositoryFacade {
	return &PgxTemplateRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TemplateRepositoryFacade = (*PgxTemplateRepository)(nil)

// scanTemplate scans one template row in templateColumns order, decoding the
// JSONB definition columns.
func scanTemplate(row pgxRow) (*domain.EventTemplate, error) {
	var tpl domain.EventTemplate
	var refConfig, inputSchema, lineRules []byte
	err := row.Scan(
		&tpl.TemplateID,
		&tpl.OrganizationID,
		&tpl.Orchid,
		&tpl.Name,
		&refConfig,
		&tpl.NarrationTemplate,
		&inputSchema,
		&lineRules,
		&tpl.IsActive,
		&tpl.Version,
		&tpl.CreatedAt,
		&tpl.CreatedBy,
		&tpl.LastUpdatedAt,
		&tpl.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(refConfig, &tpl.ReferenceConfig); err != nil {
		return nil, fmt.Errorf("failed to decode reference config for template %s: %w", tpl.TemplateID, err)
	}
	if err := json.Unmarshal(inputSchema, &tpl.InputSchema); err != nil {
		return nil, fmt.Errorf("failed to decode input schema for template %s: %w", tpl.TemplateID, err)
	}
	if err := json.Unmarshal(lineRules, &tpl.LineRules); err != nil {
		return nil, fmt.Errorf("failed to decode line rules for template %s: %w", tpl.TemplateID, err)
	}
	return &tpl, nil
}

// templateJSONColumns marshals the structured template parts for storage.
func templateJSONColumns(tpl domain.EventTemplate) (refConfig, inputSchema, lineRules []byte, err error) {
	if refConfig, err = json.Marshal(tpl.ReferenceConfig); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode reference config: %w", err)
	}
	if inputSchema, err = json.Marshal(tpl.InputSchema); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode input schema: %w", err)
	}
	if lineRules, err = json.Marshal(tpl.LineRules); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode line rules: %w", err)
	}
	return refConfig, inputSchema, lineRules, nil
}

// SaveTemplate persists a new template.
func (r *PgxTemplateRepository) SaveTemplate(ctx context.Context, tpl domain.EventTemplate) error {
	refConfig, inputSchema, lineRules, err := templateJSONColumns(tpl)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode template "+tpl.Orchid, err)
	}

	query := `
		INSERT INTO event_templates (` + templateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err = r.Pool.Exec(ctx, query,
		tpl.TemplateID,
		tpl.OrganizationID,
		tpl.Orchid,
		tpl.Name,
		refConfig,
		tpl.NarrationTemplate,
		inputSchema,
		lineRules,
		tpl.IsActive,
		tpl.Version,
		tpl.CreatedAt,
		tpl.CreatedBy,
		tpl.LastUpdatedAt,
		tpl.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: template orchid '%s'", apperrors.ErrDuplicate, tpl.Orchid)
		}
		return apperrors.NewAppError(500, "failed to insert template "+tpl.Orchid, err)
	}
	return nil
}

// ReplaceTemplate swaps the full definition of an existing template.
func (r *PgxTemplateRepository) ReplaceTemplate(ctx context.Context, tpl domain.EventTemplate) error {
	refConfig, inputSchema, lineRules, err := templateJSONColumns(tpl)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode template "+tpl.Orchid, err)
	}

	query := `
		UPDATE event_templates
		SET name = $3, reference_config = $4, narration_template = $5, input_schema = $6, line_rules = $7, version = $8, last_updated_at = $9, last_updated_by = $10
		WHERE organization_id = $1 AND orchid = $2;
	`
	ct, err := r.Pool.Exec(ctx, query,
		tpl.OrganizationID,
		tpl.Orchid,
		tpl.Name,
		refConfig,
		tpl.NarrationTemplate,
		inputSchema,
		lineRules,
		tpl.Version,
		tpl.LastUpdatedAt,
		tpl.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to replace template "+tpl.Orchid, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetTemplateActive enables or disables a template.
func (r *PgxTemplateRepository) SetTemplateActive(ctx context.Context, orgID string, orchid string, active bool, userID string) error {
	query := `
		UPDATE event_templates
		SET is_active = $3, last_updated_at = $4, last_updated_by = $5
		WHERE organization_id = $1 AND orchid = $2;
	`
	ct, err := r.Pool.Exec(ctx, query, orgID, orchid, active, time.Now(), userID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to set active flag for template "+orchid, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FindTemplateByOrchid retrieves a template by its unique code within an organization.
func (r *PgxTemplateRepository) FindTemplateByOrchid(ctx context.Context, orgID string, orchid string) (*domain.EventTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM event_templates WHERE organization_id = $1 AND orchid = $2;`
	tpl, err := scanTemplate(r.Pool.QueryRow(ctx, query, orgID, orchid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find template "+orchid, err)
	}
	return tpl, nil
}

// ListTemplates retrieves all templates for an organization, ordered by orchid.
func (r *PgxTemplateRepository) ListTemplates(ctx context.Context, orgID string) ([]domain.EventTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM event_templates WHERE organization_id = $1 ORDER BY orchid;`
	rows, err := r.Pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list templates", err)
	}
	defer rows.Close()

	var templates []domain.EventTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan template row", err)
		}
		templates = append(templates, *tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating template rows", err)
	}
	return templates, nil
}
