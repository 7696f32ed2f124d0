package pgsql

import (
	portsrepo "github.com/finbook-oss/finbook_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires every PostgreSQL repository against one pool.
func NewRepositoryProvider(pool *pgxpool.Pool) *portsrepo.RepositoryProvider {
	return &portsrepo.RepositoryProvider{
		AccountRepo:  newPgxAccountRepository(pool),
		JournalRepo:  newPgxJournalRepository(pool),
		TemplateRepo: newPgxTemplateRepository(pool),
		CounterRepo:  newPgxCounterRepository(pool),
		EventRepo:    newPgxEventRepository(pool),
		ScheduleRepo: newPgxScheduleRepository(pool),
	}
}
