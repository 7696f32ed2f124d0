package services

import (
	"context"

	"github.com/finbook-oss/finbook_backend/internal/core/domain"
)

// DispatchPlugin is a downstream consumer of a dispatch beyond the built-in
// ledger step (e.g. stock movement). Each plugin succeeds or fails
// independently; a plugin failure is recorded on the event instance but does
// not fail the instance once the ledger step has succeeded.
type DispatchPlugin interface {
	// Name identifies the plugin's step in the instance results.
	Name() string

	// Apply runs the plugin for a dispatched event. The context carries a
	// bounded timeout so a hanging plugin cannot block dispatch completion.
	Apply(ctx context.Context, instance domain.EventInstance, journalID string) domain.StepResult
}

// DispatcherSvcFacade orchestrates one template execution end to end.
type DispatcherSvcFacade interface {
	// Dispatch validates the payload against the template's schema, evaluates
	// the rule engine, creates and posts the journal, runs plugins, and
	// records a durable event instance with per-step outcomes. The instance
	// is written even when dispatch fails.
	Dispatch(ctx context.Context, orgID string, orchid string, payload map[string]any, userID string) (*domain.EventInstance, error)

	// GetEventInstance retrieves one event instance.
	GetEventInstance(ctx context.Context, orgID string, eventID string) (*domain.EventInstance, error)

	// ListEventInstances retrieves a page of instances, optionally filtered by
	// template orchid.
	ListEventInstances(ctx context.Context, orgID string, orchid string, limit int, offset int) ([]domain.EventInstance, error)
}
