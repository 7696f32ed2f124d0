package pgsql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/finbook-oss/finbook_backend/internal/apperrors"
	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	portsrepo "github.com/finbook-oss/finbook_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `event_id, organization_id, template_orchid, type, reference, payload, status, processed_at, error_message, results, created_at, created_by, last_updated_at, last_updated_by`

// PgxEventRepository persists event instances in PostgreSQL. Payload and step
// results are stored as JSONB.
type PgxEventRepository struct {
	BaseRepository
}

// newPgxEventRepository creates a new repository for event instances.
func newPgxEventRepository(pool *pgxpool.Pool) portsrepo.EventRepositoryFacade {
	return &PgxEventRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.EventRepositoryFacade = (*PgxEventRepository)(nil)

// scanEventInstance scans one event row in eventColumns order.
func scanEventInstance(row pgxRow) (*domain.EventInstance, error) {
	var ev domain.EventInstance
	var payload, results []byte
	var processedAt sql.NullTime
	err := row.Scan(
		&ev.EventID,
		&ev.OrganizationID,
		&ev.TemplateOrchid,
		&ev.Type,
		&ev.Reference,
		&payload,
		&ev.Status,
		&processedAt,
		&ev.ErrorMessage,
		&results,
		&ev.CreatedAt,
		&ev.CreatedBy,
		&ev.LastUpdatedAt,
		&ev.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if processedAt.Valid {
		ev.ProcessedAt = &processedAt.Time
	}
	if err := json.Unmarshal(payload, &ev.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload for event %s: %w", ev.EventID, err)
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &ev.Results); err != nil {
			return nil, fmt.Errorf("failed to decode results for event %s: %w", ev.EventID, err)
		}
	}
	return &ev, nil
}

// SaveEventInstance persists a new (PENDING) event instance.
func (r *PgxEventRepository) SaveEventInstance(ctx context.Context, instance domain.EventInstance) error {
	payload, err := json.Marshal(instance.Payload)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode payload for event "+instance.EventID, err)
	}
	results, err := json.Marshal(instance.Results)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode results for event "+instance.EventID, err)
	}

	query := `
		INSERT INTO event_instances (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err = r.Pool.Exec(ctx, query,
		instance.EventID,
		instance.OrganizationID,
		instance.TemplateOrchid,
		instance.Type,
		instance.Reference,
		payload,
		instance.Status,
		instance.ProcessedAt,
		instance.ErrorMessage,
		results,
		instance.CreatedAt,
		instance.CreatedBy,
		instance.LastUpdatedAt,
		instance.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert event instance "+instance.EventID, err)
	}
	return nil
}

// FinalizeEventInstance writes the terminal status, results, reference and
// error message of an instance. Only a PENDING instance may be finalized.
func (r *PgxEventRepository) FinalizeEventInstance(ctx context.Context, instance domain.EventInstance) error {
	results, err := json.Marshal(instance.Results)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode results for event "+instance.EventID, err)
	}

	query := `
		UPDATE event_instances
		SET status = $2, reference = $3, processed_at = $4, error_message = $5, results = $6, last_updated_at = $7, last_updated_by = $8
		WHERE event_id = $1 AND status = 'PENDING';
	`
	ct, err := r.Pool.Exec(ctx, query,
		instance.EventID,
		instance.Status,
		instance.Reference,
		instance.ProcessedAt,
		instance.ErrorMessage,
		results,
		instance.LastUpdatedAt,
		instance.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to finalize event instance "+instance.EventID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: event %s is not pending", apperrors.ErrConflict, instance.EventID)
	}
	return nil
}

// FindEventInstanceByID retrieves one event instance.
func (r *PgxEventRepository) FindEventInstanceByID(ctx context.Context, eventID string) (*domain.EventInstance, error) {
	query := `SELECT ` + eventColumns + ` FROM event_instances WHERE event_id = $1;`
	ev, err := scanEventInstance(r.Pool.QueryRow(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find event instance "+eventID, err)
	}
	return ev, nil
}

// ListEventInstances retrieves a page of instances for an organization, most
// recent first, optionally filtered by template orchid.
func (r *PgxEventRepository) ListEventInstances(ctx context.Context, orgID string, orchid string, limit int, offset int) ([]domain.EventInstance, error) {
	query := `SELECT ` + eventColumns + ` FROM event_instances WHERE organization_id = $1`
	args := []any{orgID}
	if orchid != "" {
		query += ` AND template_orchid = $2`
		args = append(args, orchid)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d;`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list event instances", err)
	}
	defer rows.Close()

	var instances []domain.EventInstance
	for rows.Next() {
		ev, err := scanEventInstance(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan event instance row", err)
		}
		instances = append(instances, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating event instance rows", err)
	}
	return instances, nil
}
