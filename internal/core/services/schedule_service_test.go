package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/finbook-oss/finbook_backend/internal/apperrors"
	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	portssvc "github.com/finbook-oss/finbook_backend/internal/core/ports/services"
	"github.com/finbook-oss/finbook_backend/internal/core/services"
	"github.com/finbook-oss/finbook_backend/internal/dto"
)

func intPtr(i int) *int {
	return &i
}

func TestNextRunAfter_Daily(t *testing.T) {
	spec := domain.ScheduleSpec{Type: domain.ScheduleDaily, Time: "09:00"}

	// Before today's fire time: fires today.
	after := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), services.NextRunAfter(spec, after))

	// At or past today's fire time: fires tomorrow.
	after = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), services.NextRunAfter(spec, after))
}

func TestNextRunAfter_Weekly(t *testing.T) {
	// Monday at 06:30.
	spec := domain.ScheduleSpec{Type: domain.ScheduleWeekly, Time: "06:30", DayOfWeek: intPtr(1)}

	// Wednesday -> the following Monday.
	after := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	next := services.NextRunAfter(spec, after)
	assert.Equal(t, time.Date(2026, 3, 16, 6, 30, 0, 0, time.UTC), next)
	assert.Equal(t, time.Monday, next.Weekday())

	// Monday before fire time -> same day.
	after = time.Date(2026, 3, 16, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 16, 6, 30, 0, 0, time.UTC), services.NextRunAfter(spec, after))

	// Monday past fire time -> a week later.
	after = time.Date(2026, 3, 16, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 23, 6, 30, 0, 0, time.UTC), services.NextRunAfter(spec, after))
}

func TestNextRunAfter_MonthlyClampsToShortMonths(t *testing.T) {
	spec := domain.ScheduleSpec{Type: domain.ScheduleMonthly, DayOfMonth: intPtr(31)}

	// February 2026 has 28 days: day 31 fires on the 28th, never rolls over.
	after := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), services.NextRunAfter(spec, after))

	// Leap February clamps to the 29th.
	after = time.Date(2028, 2, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC), services.NextRunAfter(spec, after))
}

func TestNextRunAfter_MonthlyAdvancesToNextMonth(t *testing.T) {
	spec := domain.ScheduleSpec{Type: domain.ScheduleMonthly, Time: "12:00", DayOfMonth: intPtr(31)}

	// Past January's fire instant: next due point is the clamped February one.
	after := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC), services.NextRunAfter(spec, after))
}

func TestNextRunAfter_CalendarMonthlyMatchesMonthly(t *testing.T) {
	after := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	monthly := services.NextRunAfter(domain.ScheduleSpec{Type: domain.ScheduleMonthly, DayOfMonth: intPtr(15)}, after)
	calendar := services.NextRunAfter(domain.ScheduleSpec{Type: domain.ScheduleCalendarMonthly, DayOfMonth: intPtr(15)}, after)
	assert.Equal(t, monthly, calendar)
}

type ScheduleServiceTestSuite struct {
	suite.Suite
	mockScheduleRepo *MockScheduleRepository
	mockTemplateRepo *MockTemplateRepository
	mockDispatcher   *MockDispatcherService
	service          portssvc.ScheduleSvcFacade
	ctx              context.Context
	orgID            string
	userID           string
}

func (suite *ScheduleServiceTestSuite) SetupTest() {
	suite.mockScheduleRepo = new(MockScheduleRepository)
	suite.mockTemplateRepo = new(MockTemplateRepository)
	suite.mockDispatcher = new(MockDispatcherService)
	suite.service = services.NewScheduleService(suite.mockScheduleRepo, suite.mockTemplateRepo, suite.mockDispatcher)
	suite.ctx = context.Background()
	suite.orgID = uuid.NewString()
	suite.userID = uuid.NewString()
}

func (suite *ScheduleServiceTestSuite) activeTemplate() *domain.EventTemplate {
	return &domain.EventTemplate{
		TemplateID:     uuid.NewString(),
		OrganizationID: suite.orgID,
		Orchid:         "RENT",
		Name:           "Monthly Rent",
		IsActive:       true,
	}
}

func (suite *ScheduleServiceTestSuite) TestCreateSchedule_Success() {
	startAt := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	req := dto.CreateScheduleRequest{
		TemplateOrchid: "RENT",
		Payload:        map[string]any{"amount": "1200"},
		Spec:           domain.ScheduleSpec{Type: domain.ScheduleMonthly, Time: "08:00", DayOfMonth: intPtr(1)},
		StartAt:        startAt,
	}

	suite.mockTemplateRepo.On("FindTemplateByOrchid", suite.ctx, suite.orgID, "RENT").Return(suite.activeTemplate(), nil).Once()
	suite.mockScheduleRepo.On("SaveSchedule", suite.ctx, mock.AnythingOfType("domain.RecurringSchedule")).Return(nil).Once()

	schedule, err := suite.service.CreateSchedule(suite.ctx, suite.orgID, req, suite.userID)

	suite.Require().NoError(err)
	suite.True(schedule.Enabled)
	suite.Equal(1, schedule.Version)
	suite.Require().NotNil(schedule.NextRun)
	// A due point exactly at StartAt is kept as the first run.
	suite.Equal(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC), *schedule.NextRun)
	suite.mockScheduleRepo.AssertExpectations(suite.T())
}

func (suite *ScheduleServiceTestSuite) TestCreateSchedule_WeeklyNeedsDayOfWeek() {
	req := dto.CreateScheduleRequest{
		TemplateOrchid: "RENT",
		Payload:        map[string]any{},
		Spec:           domain.ScheduleSpec{Type: domain.ScheduleWeekly},
		StartAt:        time.Now().UTC(),
	}

	_, err := suite.service.CreateSchedule(suite.ctx, suite.orgID, req, suite.userID)
	suite.ErrorIs(err, services.ErrBadScheduleSpec)
	suite.mockTemplateRepo.AssertNotCalled(suite.T(), "FindTemplateByOrchid", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ScheduleServiceTestSuite) TestCreateSchedule_EndBeforeStart() {
	startAt := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	endAt := startAt.Add(-time.Hour)
	req := dto.CreateScheduleRequest{
		TemplateOrchid: "RENT",
		Payload:        map[string]any{},
		Spec:           domain.ScheduleSpec{Type: domain.ScheduleDaily},
		StartAt:        startAt,
		EndAt:          &endAt,
	}

	_, err := suite.service.CreateSchedule(suite.ctx, suite.orgID, req, suite.userID)
	suite.ErrorIs(err, services.ErrBadScheduleSpec)
}

func (suite *ScheduleServiceTestSuite) TestCreateSchedule_TemplateNotFound() {
	req := dto.CreateScheduleRequest{
		TemplateOrchid: "NOPE",
		Payload:        map[string]any{},
		Spec:           domain.ScheduleSpec{Type: domain.ScheduleDaily},
		StartAt:        time.Now().UTC(),
	}
	suite.mockTemplateRepo.On("FindTemplateByOrchid", suite.ctx, suite.orgID, "NOPE").Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.CreateSchedule(suite.ctx, suite.orgID, req, suite.userID)
	suite.ErrorIs(err, services.ErrTemplateNotFound)
}

func (suite *ScheduleServiceTestSuite) TestCreateSchedule_TemplateInactive() {
	tpl := suite.activeTemplate()
	tpl.IsActive = false
	req := dto.CreateScheduleRequest{
		TemplateOrchid: "RENT",
		Payload:        map[string]any{},
		Spec:           domain.ScheduleSpec{Type: domain.ScheduleDaily},
		StartAt:        time.Now().UTC(),
	}
	suite.mockTemplateRepo.On("FindTemplateByOrchid", suite.ctx, suite.orgID, "RENT").Return(tpl, nil).Once()

	_, err := suite.service.CreateSchedule(suite.ctx, suite.orgID, req, suite.userID)
	suite.ErrorIs(err, services.ErrTemplateInactive)
}

func (suite *ScheduleServiceTestSuite) dueSchedule(version int) domain.RecurringSchedule {
	nextRun := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	return domain.RecurringSchedule{
		ScheduleID:     uuid.NewString(),
		OrganizationID: suite.orgID,
		TemplateOrchid: "RENT",
		Payload:        map[string]any{"amount": "1200"},
		Spec:           domain.ScheduleSpec{Type: domain.ScheduleMonthly, Time: "08:00", DayOfMonth: intPtr(1)},
		StartAt:        time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		NextRun:        &nextRun,
		Enabled:        true,
		Version:        version,
	}
}

func (suite *ScheduleServiceTestSuite) TestRunDueSchedules_DispatchesAndAdvances() {
	now := time.Date(2026, 7, 1, 8, 0, 5, 0, time.UTC)
	schedule := suite.dueSchedule(2)

	suite.mockScheduleRepo.On("FindDueSchedules", suite.ctx, now, mock.AnythingOfType("int")).Return([]domain.RecurringSchedule{schedule}, nil).Once()
	suite.mockScheduleRepo.On("ClaimSchedule", suite.ctx, schedule.ScheduleID, 2).Return(true, nil).Once()
	suite.mockDispatcher.On("Dispatch", suite.ctx, suite.orgID, "RENT", schedule.Payload, "scheduler").
		Return(&domain.EventInstance{Status: domain.EventProcessed}, nil).Once()
	suite.mockScheduleRepo.On("RecordRun", suite.ctx, mock.MatchedBy(func(s domain.RecurringSchedule) bool {
		return s.RunCount == 1 && s.Version == 3 && s.Enabled &&
			s.LastRun != nil && s.LastRun.Equal(now) &&
			s.NextRun != nil && s.NextRun.Equal(time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC))
	})).Return(nil).Once()

	dispatched, err := suite.service.RunDueSchedules(suite.ctx, now)

	suite.Require().NoError(err)
	suite.Equal(1, dispatched)
	suite.mockScheduleRepo.AssertExpectations(suite.T())
	suite.mockDispatcher.AssertExpectations(suite.T())
}

func (suite *ScheduleServiceTestSuite) TestRunDueSchedules_LostClaimSkips() {
	now := time.Date(2026, 7, 1, 8, 0, 5, 0, time.UTC)
	schedule := suite.dueSchedule(4)

	suite.mockScheduleRepo.On("FindDueSchedules", suite.ctx, now, mock.AnythingOfType("int")).Return([]domain.RecurringSchedule{schedule}, nil).Once()
	suite.mockScheduleRepo.On("ClaimSchedule", suite.ctx, schedule.ScheduleID, 4).Return(false, nil).Once()

	dispatched, err := suite.service.RunDueSchedules(suite.ctx, now)

	suite.Require().NoError(err)
	suite.Equal(0, dispatched)
	suite.mockDispatcher.AssertNotCalled(suite.T(), "Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockScheduleRepo.AssertNotCalled(suite.T(), "RecordRun", mock.Anything, mock.Anything)
}

func (suite *ScheduleServiceTestSuite) TestRunDueSchedules_MaxRunsDisables() {
	now := time.Date(2026, 7, 1, 8, 0, 5, 0, time.UTC)
	schedule := suite.dueSchedule(1)
	schedule.MaxRuns = intPtr(1)

	suite.mockScheduleRepo.On("FindDueSchedules", suite.ctx, now, mock.AnythingOfType("int")).Return([]domain.RecurringSchedule{schedule}, nil).Once()
	suite.mockScheduleRepo.On("ClaimSchedule", suite.ctx, schedule.ScheduleID, 1).Return(true, nil).Once()
	suite.mockDispatcher.On("Dispatch", suite.ctx, suite.orgID, "RENT", schedule.Payload, "scheduler").
		Return(&domain.EventInstance{Status: domain.EventProcessed}, nil).Once()
	suite.mockScheduleRepo.On("RecordRun", suite.ctx, mock.MatchedBy(func(s domain.RecurringSchedule) bool {
		return s.RunCount == 1 && !s.Enabled
	})).Return(nil).Once()

	dispatched, err := suite.service.RunDueSchedules(suite.ctx, now)
	suite.Require().NoError(err)
	suite.Equal(1, dispatched)
}

func (suite *ScheduleServiceTestSuite) TestRunDueSchedules_FailedDispatchStillAdvances() {
	now := time.Date(2026, 7, 1, 8, 0, 5, 0, time.UTC)
	schedule := suite.dueSchedule(1)

	suite.mockScheduleRepo.On("FindDueSchedules", suite.ctx, now, mock.AnythingOfType("int")).Return([]domain.RecurringSchedule{schedule}, nil).Once()
	suite.mockScheduleRepo.On("ClaimSchedule", suite.ctx, schedule.ScheduleID, 1).Return(true, nil).Once()
	suite.mockDispatcher.On("Dispatch", suite.ctx, suite.orgID, "RENT", schedule.Payload, "scheduler").
		Return(nil, errors.New("payload is missing required fields: amount")).Once()
	suite.mockScheduleRepo.On("RecordRun", suite.ctx, mock.MatchedBy(func(s domain.RecurringSchedule) bool {
		// The schedule advances whatever the dispatch outcome, so a failing
		// payload never spins on the same due instant.
		return s.RunCount == 1 && s.NextRun != nil && s.NextRun.After(now)
	})).Return(nil).Once()

	dispatched, err := suite.service.RunDueSchedules(suite.ctx, now)
	suite.Require().NoError(err)
	suite.Equal(1, dispatched)
	suite.mockScheduleRepo.AssertExpectations(suite.T())
}

func (suite *ScheduleServiceTestSuite) TestDisableSchedule() {
	schedule := suite.dueSchedule(1)
	suite.mockScheduleRepo.On("FindScheduleByID", suite.ctx, schedule.ScheduleID).Return(&schedule, nil).Once()
	suite.mockScheduleRepo.On("UpdateSchedule", suite.ctx, mock.MatchedBy(func(s domain.RecurringSchedule) bool {
		return !s.Enabled
	})).Return(nil).Once()

	err := suite.service.DisableSchedule(suite.ctx, suite.orgID, schedule.ScheduleID, suite.userID)
	suite.NoError(err)
	suite.mockScheduleRepo.AssertExpectations(suite.T())
}

func (suite *ScheduleServiceTestSuite) TestUpdateSchedule_SpecChangeRecomputesNextRun() {
	schedule := suite.dueSchedule(1)
	newSpec := domain.ScheduleSpec{Type: domain.ScheduleDaily, Time: "10:00"}

	suite.mockScheduleRepo.On("FindScheduleByID", suite.ctx, schedule.ScheduleID).Return(&schedule, nil).Once()
	suite.mockScheduleRepo.On("UpdateSchedule", suite.ctx, mock.MatchedBy(func(s domain.RecurringSchedule) bool {
		return s.Spec.Type == domain.ScheduleDaily && s.NextRun != nil && s.NextRun.After(time.Now().UTC().Add(-time.Minute))
	})).Return(nil).Once()

	updated, err := suite.service.UpdateSchedule(suite.ctx, suite.orgID, schedule.ScheduleID, dto.UpdateScheduleRequest{Spec: &newSpec}, suite.userID)
	suite.Require().NoError(err)
	suite.Equal(domain.ScheduleDaily, updated.Spec.Type)
}

func TestScheduleServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ScheduleServiceTestSuite))
}
