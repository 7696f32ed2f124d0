package services_test

import (
	"context"
	"time"

	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	"github.com/finbook-oss/finbook_backend/internal/dto"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock type for the AccountRepositoryFacade interface
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) DeleteAccount(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountByCode(ctx context.Context, orgID string, code string) (*domain.Account, error) {
	args := m.Called(ctx, orgID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccounts(ctx context.Context, orgID string) ([]domain.Account, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) HasJournalLines(ctx context.Context, accountID string) (bool, error) {
	args := m.Called(ctx, accountID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByIDsForUpdate(ctx context.Context, tx pgx.Tx, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, tx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ApplyBalanceDeltasInTx(ctx context.Context, tx pgx.Tx, deltas map[string]decimal.Decimal, userID string, now time.Time) error {
	args := m.Called(ctx, tx, deltas, userID, now)
	return args.Error(0)
}

// MockJournalRepository is a mock type for the JournalRepositoryWithTx interface
type MockJournalRepository struct {
	mock.Mock
}

func (m *MockJournalRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(pgx.Tx)
	return tx, args.Error(1)
}

func (m *MockJournalRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockJournalRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockJournalRepository) SaveDraft(ctx context.Context, journal domain.Journal, lines []domain.JournalLine) error {
	args := m.Called(ctx, journal, lines)
	return args.Error(0)
}

func (m *MockJournalRepository) UpdateDraft(ctx context.Context, journal domain.Journal, lines []domain.JournalLine) error {
	args := m.Called(ctx, journal, lines)
	return args.Error(0)
}

func (m *MockJournalRepository) DeleteDraft(ctx context.Context, journalID string) error {
	args := m.Called(ctx, journalID)
	return args.Error(0)
}

func (m *MockJournalRepository) MarkPostedInTx(ctx context.Context, tx pgx.Tx, journalID string, userID string, now time.Time) error {
	args := m.Called(ctx, tx, journalID, userID, now)
	return args.Error(0)
}

func (m *MockJournalRepository) SavePostedInTx(ctx context.Context, tx pgx.Tx, journal domain.Journal, lines []domain.JournalLine) error {
	args := m.Called(ctx, tx, journal, lines)
	return args.Error(0)
}

func (m *MockJournalRepository) MarkReversedInTx(ctx context.Context, tx pgx.Tx, journalID string, reversingJournalID string, userID string, now time.Time) error {
	args := m.Called(ctx, tx, journalID, reversingJournalID, userID, now)
	return args.Error(0)
}

func (m *MockJournalRepository) FindJournalByID(ctx context.Context, journalID string) (*domain.Journal, error) {
	args := m.Called(ctx, journalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}

func (m *MockJournalRepository) FindJournalByIDForUpdate(ctx context.Context, tx pgx.Tx, journalID string) (*domain.Journal, error) {
	args := m.Called(ctx, tx, journalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}

func (m *MockJournalRepository) ListJournals(ctx context.Context, orgID string, limit int, offset int, postedOnly bool) ([]domain.Journal, error) {
	args := m.Called(ctx, orgID, limit, offset, postedOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Journal), args.Error(1)
}

func (m *MockJournalRepository) FindLinesByJournalID(ctx context.Context, journalID string) ([]domain.JournalLine, error) {
	args := m.Called(ctx, journalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JournalLine), args.Error(1)
}

func (m *MockJournalRepository) FindLinesByJournalIDs(ctx context.Context, journalIDs []string) (map[string][]domain.JournalLine, error) {
	args := m.Called(ctx, journalIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]domain.JournalLine), args.Error(1)
}

func (m *MockJournalRepository) ListLinesByAccountID(ctx context.Context, orgID string, accountID string, limit int, offset int) ([]domain.JournalLine, error) {
	args := m.Called(ctx, orgID, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JournalLine), args.Error(1)
}

// MockTemplateRepository is a mock type for the TemplateRepositoryFacade interface
type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) SaveTemplate(ctx context.Context, tpl domain.EventTemplate) error {
	args := m.Called(ctx, tpl)
	return args.Error(0)
}

func (m *MockTemplateRepository) ReplaceTemplate(ctx context.Context, tpl domain.EventTemplate) error {
	args := m.Called(ctx, tpl)
	return args.Error(0)
}

func (m *MockTemplateRepository) SetTemplateActive(ctx context.Context, orgID string, orchid string, active bool, userID string) error {
	args := m.Called(ctx, orgID, orchid, active, userID)
	return args.Error(0)
}

func (m *MockTemplateRepository) FindTemplateByOrchid(ctx context.Context, orgID string, orchid string) (*domain.EventTemplate, error) {
	args := m.Called(ctx, orgID, orchid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EventTemplate), args.Error(1)
}

func (m *MockTemplateRepository) ListTemplates(ctx context.Context, orgID string) ([]domain.EventTemplate, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EventTemplate), args.Error(1)
}

// MockCounterRepository is a mock type for the CounterRepositoryFacade interface
type MockCounterRepository struct {
	mock.Mock
}

func (m *MockCounterRepository) AllocateSerial(ctx context.Context, orgID string, orchid string) (int64, error) {
	args := m.Called(ctx, orgID, orchid)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventRepository is a mock type for the EventRepositoryFacade interface
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) SaveEventInstance(ctx context.Context, instance domain.EventInstance) error {
	args := m.Called(ctx, instance)
	return args.Error(0)
}

func (m *MockEventRepository) FinalizeEventInstance(ctx context.Context, instance domain.EventInstance) error {
	args := m.Called(ctx, instance)
	return args.Error(0)
}

func (m *MockEventRepository) FindEventInstanceByID(ctx context.Context, eventID string) (*domain.EventInstance, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EventInstance), args.Error(1)
}

func (m *MockEventRepository) ListEventInstances(ctx context.Context, orgID string, orchid string, limit int, offset int) ([]domain.EventInstance, error) {
	args := m.Called(ctx, orgID, orchid, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EventInstance), args.Error(1)
}

// MockScheduleRepository is a mock type for the ScheduleRepositoryFacade interface
type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) SaveSchedule(ctx context.Context, schedule domain.RecurringSchedule) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

func (m *MockScheduleRepository) UpdateSchedule(ctx context.Context, schedule domain.RecurringSchedule) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

func (m *MockScheduleRepository) FindScheduleByID(ctx context.Context, scheduleID string) (*domain.RecurringSchedule, error) {
	args := m.Called(ctx, scheduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecurringSchedule), args.Error(1)
}

func (m *MockScheduleRepository) ListSchedules(ctx context.Context, orgID string) ([]domain.RecurringSchedule, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RecurringSchedule), args.Error(1)
}

func (m *MockScheduleRepository) FindDueSchedules(ctx context.Context, now time.Time, limit int) ([]domain.RecurringSchedule, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RecurringSchedule), args.Error(1)
}

func (m *MockScheduleRepository) ClaimSchedule(ctx context.Context, scheduleID string, expectedVersion int) (bool, error) {
	args := m.Called(ctx, scheduleID, expectedVersion)
	return args.Bool(0), args.Error(1)
}

func (m *MockScheduleRepository) RecordRun(ctx context.Context, schedule domain.RecurringSchedule) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

// MockJournalService is a mock type for the JournalSvcFacade interface
type MockJournalService struct {
	mock.Mock
}

func (m *MockJournalService) CreateJournal(ctx context.Context, orgID string, req dto.CreateJournalRequest, userID string) (*domain.Journal, error) {
	args := m.Called(ctx, orgID, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}

func (m *MockJournalService) UpdateDraft(ctx context.Context, orgID string, journalID string, req dto.UpdateJournalRequest, userID string) (*domain.Journal, error) {
	args := m.Called(ctx, orgID, journalID, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}

func (m *MockJournalService) PostJournals(ctx context.Context, orgID string, journalIDs []string, userID string) (*dto.BulkOperationResult, error) {
	args := m.Called(ctx, orgID, journalIDs, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.BulkOperationResult), args.Error(1)
}

func (m *MockJournalService) ReverseJournals(ctx context.Context, orgID string, journalIDs []string, userID string) (*dto.BulkOperationResult, error) {
	args := m.Called(ctx, orgID, journalIDs, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.BulkOperationResult), args.Error(1)
}

func (m *MockJournalService) DeleteDraft(ctx context.Context, orgID string, journalID string, userID string) error {
	args := m.Called(ctx, orgID, journalID, userID)
	return args.Error(0)
}

func (m *MockJournalService) GetJournalByID(ctx context.Context, orgID string, journalID string) (*domain.Journal, error) {
	args := m.Called(ctx, orgID, journalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}

func (m *MockJournalService) ListJournals(ctx context.Context, orgID string, limit int, offset int, postedOnly bool) ([]domain.Journal, error) {
	args := m.Called(ctx, orgID, limit, offset, postedOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Journal), args.Error(1)
}

func (m *MockJournalService) ListLinesByAccount(ctx context.Context, orgID string, accountID string, limit int, offset int) ([]domain.JournalLine, error) {
	args := m.Called(ctx, orgID, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JournalLine), args.Error(1)
}

// MockDispatcherService is a mock type for the DispatcherSvcFacade interface
type MockDispatcherService struct {
	mock.Mock
}

func (m *MockDispatcherService) Dispatch(ctx context.Context, orgID string, orchid string, payload map[string]any, userID string) (*domain.EventInstance, error) {
	args := m.Called(ctx, orgID, orchid, payload, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EventInstance), args.Error(1)
}

func (m *MockDispatcherService) GetEventInstance(ctx context.Context, orgID string, eventID string) (*domain.EventInstance, error) {
	args := m.Called(ctx, orgID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EventInstance), args.Error(1)
}

func (m *MockDispatcherService) ListEventInstances(ctx context.Context, orgID string, orchid string, limit int, offset int) ([]domain.EventInstance, error) {
	args := m.Called(ctx, orgID, orchid, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EventInstance), args.Error(1)
}
