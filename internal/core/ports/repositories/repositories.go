package repositories

// RepositoryProvider aggregates all repository facades for dependency injection.
type RepositoryProvider struct {
	AccountRepo  AccountRepositoryFacade
	JournalRepo  JournalRepositoryWithTx
	TemplateRepo TemplateRepositoryFacade
	CounterRepo  CounterRepositoryFacade
	EventRepo    EventRepositoryFacade
	ScheduleRepo ScheduleRepositoryFacade
}
