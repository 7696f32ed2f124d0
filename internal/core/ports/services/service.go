package services

// ServiceContainer aggregates all service facades for dependency injection.
type ServiceContainer struct {
	Account    AccountSvcFacade
	Journal    JournalSvcFacade
	Template   TemplateSvcFacade
	Dispatcher DispatcherSvcFacade
	Schedule   ScheduleSvcFacade
}
