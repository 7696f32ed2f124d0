package repositories

import (
	"context"

	"github.com/finbook-oss/finbook_backend/internal/core/domain"
)

// EventRepositoryFacade persists event instances. One instance is written
// per dispatch attempt; the terminal status/results write happens exactly once.
type EventRepositoryFacade interface {
	// SaveEventInstance persists a new (PENDING) event instance.
	SaveEventInstance(ctx context.Context, instance domain.EventInstance) error

	// FinalizeEventInstance writes the terminal status, results, reference and
	// error message of an instance.
	FinalizeEventInstance(ctx context.Context, instance domain.EventInstance) error

	// FindEventInstanceByID retrieves one event instance.
	FindEventInstanceByID(ctx context.Context, eventID string) (*domain.EventInstance, error)

	// ListEventInstances retrieves a page of instances for an organization,
	// most recent first, optionally filtered by template orchid.
	ListEventInstances(ctx context.Context, orgID string, orchid string, limit int, offset int) ([]domain.EventInstance, error)
}
