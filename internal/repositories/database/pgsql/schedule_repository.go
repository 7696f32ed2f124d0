package pgsql

import (
	"context"
	"database/sql"
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

const scheduleColumns = `schedule_id, organization_id, template_orchid, payload, spec, start_at, end_at, next_run, last_run, enabled, run_count, max_runs, version, created_at, created_by, last_updated_at, last_updated_by`

// PgxScheduleRepository persists recurring schedules in PostgreSQL. Payload
// and spec are JSONB; the version column backs the optimistic claim used by
// competing workers.
type PgxScheduleRepository struct {
	BaseRepository
}

// newPgxScheduleRepository creates a new repository for recurring schedules.
func newPgxScheduleRepository(pool *pgxpool.Pool) portsrepo.ScheduleRepositoryFacade {
	return &PgxScheduleRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ScheduleRepositoryFacade = (*PgxScheduleRepository)(nil)

// scanSchedule scans one schedule row in scheduleColumns order.
func scanSchedule(row pgxRow) (*domain.RecurringSchedule, error) {
	var s domain.RecurringSchedule
	var payload, spec []byte
	var endAt, nextRun, lastRun sql.NullTime
	var maxRuns sql.NullInt32
	err := row.Scan(
		&s.ScheduleID,
		&s.OrganizationID,
		&s.TemplateOrchid,
		&payload,
		&spec,
		&s.StartAt,
		&endAt,
		&nextRun,
		&lastRun,
		&s.Enabled,
		&s.RunCount,
		&maxRuns,
		&s.Version,
		&s.CreatedAt,
		&s.CreatedBy,
		&s.LastUpdatedAt,
		&s.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if endAt.Valid {
		s.EndAt = &endAt.Time
	}
	if nextRun.Valid {
		s.NextRun = &nextRun.Time
	}
	if lastRun.Valid {
		s.LastRun = &lastRun.Time
	}
	if maxRuns.Valid {
		v := int(maxRuns.Int32)
		s.MaxRuns = &v
	}
	if err := json.Unmarshal(payload, &s.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload for schedule %s: %w", s.ScheduleID, err)
	}
	if err := json.Unmarshal(spec, &s.Spec); err != nil {
		return nil, fmt.Errorf("failed to decode spec for schedule %s: %w", s.ScheduleID, err)
	}
	return &s, nil
}

// scheduleJSONColumns marshals the structured schedule parts for storage.
func scheduleJSONColumns(schedule domain.RecurringSchedule) (payload, spec []byte, err error) {
	if payload, err = json.Marshal(schedule.Payload); err != nil {
		return nil, nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	if spec, err = json.Marshal(schedule.Spec); err != nil {
		return nil, nil, fmt.Errorf("failed to encode spec: %w", err)
	}
	return payload, spec, nil
}

// SaveSchedule persists a new schedule.
func (r *PgxScheduleRepository) SaveSchedule(ctx context.Context, schedule domain.RecurringSchedule) error {
	payload, spec, err := scheduleJSONColumns(schedule)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode schedule "+schedule.ScheduleID, err)
	}

	query := `
		INSERT INTO recurring_schedules (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
	`
	_, err = r.Pool.Exec(ctx, query,
		schedule.ScheduleID,
		schedule.OrganizationID,
		schedule.TemplateOrchid,
		payload,
		spec,
		schedule.StartAt,
		schedule.EndAt,
		schedule.NextRun,
		schedule.LastRun,
		schedule.Enabled,
		schedule.RunCount,
		schedule.MaxRuns,
		schedule.Version,
		schedule.CreatedAt,
		schedule.CreatedBy,
		schedule.LastUpdatedAt,
		schedule.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert schedule "+schedule.ScheduleID, err)
	}
	return nil
}

// UpdateSchedule updates a schedule's payload, spec and window fields.
func (r *PgxScheduleRepository) UpdateSchedule(ctx context.Context, schedule domain.RecurringSchedule) error {
	payload, spec, err := scheduleJSONColumns(schedule)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode schedule "+schedule.ScheduleID, err)
	}

	query := `
		UPDATE recurring_schedules
		SET payload = $2, spec = $3, start_at = $4, end_at = $5, next_run = $6, enabled = $7, max_runs = $8, last_updated_at = $9, last_updated_by = $10
		WHERE schedule_id = $1;
	`
	ct, err := r.Pool.Exec(ctx, query,
		schedule.ScheduleID,
		payload,
		spec,
		schedule.StartAt,
		schedule.EndAt,
		schedule.NextRun,
		schedule.Enabled,
		schedule.MaxRuns,
		schedule.LastUpdatedAt,
		schedule.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update schedule "+schedule.ScheduleID, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FindScheduleByID retrieves one schedule.
func (r *PgxScheduleRepository) FindScheduleByID(ctx context.Context, scheduleID string) (*domain.RecurringSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM recurring_schedules WHERE schedule_id = $1;`
	s, err := scanSchedule(r.Pool.QueryRow(ctx, query, scheduleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find schedule "+scheduleID, err)
	}
	return s, nil
}

// ListSchedules retrieves all schedules for an organization.
func (r *PgxScheduleRepository) ListSchedules(ctx context.Context, orgID string) ([]domain.RecurringSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM recurring_schedules WHERE organization_id = $1 ORDER BY created_at;`
	rows, err := r.Pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list schedules", err)
	}
	defer rows.Close()

	var schedules []domain.RecurringSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan schedule row", err)
		}
		schedules = append(schedules, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating schedule rows", err)
	}
	return schedules, nil
}

// FindDueSchedules retrieves enabled schedules whose nextRun is at or before
// now, whose end date (if any) has not passed, and whose run count is below
// maxRuns (if set).
func (r *PgxScheduleRepository) FindDueSchedules(ctx context.Context, now time.Time, limit int) ([]domain.RecurringSchedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM recurring_schedules
		WHERE enabled = TRUE
		  AND next_run IS NOT NULL
		  AND next_run <= $1
		  AND (end_at IS NULL OR end_at > $1)
		  AND (max_runs IS NULL OR run_count < max_runs)
		ORDER BY next_run
		LIMIT $2;
	`
	rows, err := r.Pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query due schedules", err)
	}
	defer rows.Close()

	var schedules []domain.RecurringSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan schedule row", err)
		}
		schedules = append(schedules, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating schedule rows", err)
	}
	return schedules, nil
}

// ClaimSchedule bumps the schedule's version iff it still matches the
// expected value.
func (r *PgxScheduleRepository) ClaimSchedule(ctx context.Context, scheduleID string, expectedVersion int) (bool, error) {
	query := `UPDATE recurring_schedules SET version = version + 1 WHERE schedule_id = $1 AND version = $2;`
	ct, err := r.Pool.Exec(ctx, query, scheduleID, expectedVersion)
	if err != nil {
		return false, apperrors.NewAppError(500, "failed to claim schedule "+scheduleID, err)
	}
	return ct.RowsAffected() == 1, nil
}

// RecordRun advances lastRun/runCount/nextRun (and the enabled flag) after a
// claimed dispatch, whatever its outcome.
func (r *PgxScheduleRepository) RecordRun(ctx context.Context, schedule domain.RecurringSchedule) error {
	query := `
		UPDATE recurring_schedules
		SET last_run = $2, run_count = $3, next_run = $4, enabled = $5, last_updated_at = $6, last_updated_by = $7
		WHERE schedule_id = $1;
	`
	ct, err := r.Pool.Exec(ctx, query,
		schedule.ScheduleID,
		schedule.LastRun,
		schedule.RunCount,
		schedule.NextRun,
		schedule.Enabled,
		schedule.LastUpdatedAt,
		schedule.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to record run for schedule "+schedule.ScheduleID, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
