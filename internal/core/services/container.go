package services

import (
	portsrepo "github.com/finbook-oss/finbook_backend/internal/core/ports/repositories"
	portssvc "github.com/finbook-oss/finbook_backend/internal/core/ports/services"
	"github.com/finbook-oss/finbook_backend/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly wired
// dependencies. plugins are optional downstream dispatch consumers.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, plugins ...portssvc.DispatchPlugin) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Account = NewAccountService(repos.AccountRepo)
	container.Journal = NewJournalService(repos.JournalRepo, repos.AccountRepo)
	container.Template = NewTemplateService(repos.TemplateRepo, repos.AccountRepo)
	container.Dispatcher = NewDispatcherService(
		repos.TemplateRepo,
		repos.CounterRepo,
		repos.EventRepo,
		container.Journal,
		DispatcherConfig{
			MaxReferenceAttempts: cfg.ReferenceRetryLimit,
			PluginTimeout:        cfg.PluginTimeout,
		},
		plugins...,
	)
	container.Schedule = NewScheduleService(repos.ScheduleRepo, repos.TemplateRepo, container.Dispatcher)

	return container
}

// Compile-time interface checks.
var (
	_ portssvc.AccountSvcFacade    = (*accountService)(nil)
	_ portssvc.JournalSvcFacade    = (*journalService)(nil)
	_ portssvc.TemplateSvcFacade   = (*templateService)(nil)
	_ portssvc.DispatcherSvcFacade = (*dispatcherService)(nil)
	_ portssvc.ScheduleSvcFacade   = (*scheduleService)(nil)
)
