package pgsql

import (
	"context"

	"github.com/finbook-oss/finbook_backend/internal/apperrors"
	portsrepo "github.com/finbook-oss/finbook_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxCounterRepository allocates monotonic reference serials. Each template's
// counter is a single row; allocation is one atomic upsert, so concurrent
// dispatchers never observe the same serial.
type PgxCounterRepository struct {
	BaseRepository
}

// newPgxCounterRepository creates a new repository for reference counters.
func newPgxCounterRepository(pool *pgxpool.Pool) portsrepo.CounterRepositoryFacade {
	return &PgxCounterRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CounterRepositoryFacade = (*PgxCounterRepository)(nil)

// AllocateSerial increments and returns the counter for the template.
func (r *PgxCounterRepository) AllocateSerial(ctx context.Context, orgID string, orchid string) (int64, error) {
	query := `
		INSERT INTO reference_counters (organization_id, orchid, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (organization_id, orchid)
		DO UPDATE SET value = reference_counters.value + 1
		RETURNING value;
	`
	var serial int64
	if err := r.Pool.QueryRow(ctx, query, orgID, orchid).Scan(&serial); err != nil {
		return 0, apperrors.NewAppError(500, "failed to allocate serial for "+orchid, err)
	}
	return serial, nil
}
