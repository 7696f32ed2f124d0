package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/finbook-oss/finbook_backend/internal/apperrors"
	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	portssvc "github.com/finbook-oss/finbook_backend/internal/core/ports/services"
	"github.com/finbook-oss/finbook_backend/internal/core/services"
	"github.com/finbook-oss/finbook_backend/internal/dto"
)

type TemplateServiceTestSuite struct {
	suite.Suite
	mockTemplateRepo *MockTemplateRepository
	mockAccountRepo  *MockAccountRepository
	service          portssvc.TemplateSvcFacade
	ctx              context.Context
	orgID            string
	userID           string
	receivableID     string
	revenueID        string
}

func (suite *TemplateServiceTestSuite) SetupTest() {
	suite.mockTemplateRepo = new(MockTemplateRepository)
	suite.mockAccountRepo = new(MockAccountRepository)
	suite.service = services.NewTemplateService(suite.mockTemplateRepo, suite.mockAccountRepo)
	suite.ctx = context.Background()
	suite.orgID = uuid.NewString()
	suite.userID = uuid.NewString()
	suite.receivableID = uuid.NewString()
	suite.revenueID = uuid.NewString()
}

func (suite *TemplateServiceTestSuite) ruleAccounts() map[string]domain.Account {
	return map[string]domain.Account{
		suite.receivableID: {AccountID: suite.receivableID, OrganizationID: suite.orgID, Code: "1200", IsActive: true},
		suite.revenueID:    {AccountID: suite.revenueID, OrganizationID: suite.orgID, Code: "4000", IsActive: true},
	}
}

func (suite *TemplateServiceTestSuite) validRequest() dto.SaveTemplateRequest {
	return dto.SaveTemplateRequest{
		Orchid: "INVOICE",
		Name:   "Customer Invoice",
		ReferenceConfig: dto.ReferenceConfigRequest{
			Prefix:       "INV",
			SerialMethod: domain.SerialIncrementor,
			Length:       6,
		},
		NarrationTemplate: "Invoice for %customerName%",
		RequiredFields:    []string{"customerName", "amount"},
		LineRules: []dto.LineRuleRequest{
			{AccountID: suite.receivableID, Direction: domain.DirectionDebit, SourceField: "amount", Operator: domain.OperatorDirect},
			{AccountID: suite.revenueID, Direction: domain.DirectionCredit, SourceField: "amount", Operator: domain.OperatorDirect},
		},
	}
}

func (suite *TemplateServiceTestSuite) TestCreateTemplate_Success() {
	suite.mockTemplateRepo.On("FindTemplateByOrchid", suite.ctx, suite.orgID, "INVOICE").Return(nil, apperrors.ErrNotFound).Once()
	suite.mockAccountRepo.On("FindAccountsByIDs", suite.ctx, mock.AnythingOfType("[]string")).Return(suite.ruleAccounts(), nil).Once()
	suite.mockTemplateRepo.On("SaveTemplate", suite.ctx, mock.AnythingOfType("domain.EventTemplate")).Return(nil).Once()

	tpl, err := suite.service.CreateTemplate(suite.ctx, suite.orgID, suite.validRequest(), suite.userID)

	suite.Require().NoError(err)
	suite.Equal("INVOICE", tpl.Orchid)
	suite.Equal(1, tpl.Version)
	suite.True(tpl.IsActive)
	suite.Len(tpl.LineRules, 2)
	suite.mockTemplateRepo.AssertExpectations(suite.T())
}

func (suite *TemplateServiceTestSuite) TestCreateTemplate_DuplicateOrchid() {
	existing := &domain.EventTemplate{Orchid: "INVOICE", OrganizationID: suite.orgID}
	suite.mockTemplateRepo.On("FindTemplateByOrchid", suite.ctx, suite.orgID, "INVOICE").Return(existing, nil).Once()

	tpl, err := suite.service.CreateTemplate(suite.ctx, suite.orgID, suite.validRequest(), suite.userID)

	suite.Nil(tpl)
	suite.ErrorIs(err, services.ErrDuplicateOrchid)
	suite.mockTemplateRepo.AssertNotCalled(suite.T(), "SaveTemplate", mock.Anything, mock.Anything)
}

func (suite *TemplateServiceTestSuite) TestCreateTemplate_UnknownPlaceholder() {
	req := suite.validRequest()
	req.NarrationTemplate = "Invoice for %customerName% due %dueDate%"
	suite.mockTemplateRepo.On("FindTemplateByOrchid", suite.ctx, suite.orgID, "INVOICE").Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.CreateTemplate(suite.ctx, suite.orgID, req, suite.userID)

	suite.ErrorIs(err, services.ErrUnknownPlaceholder)
	suite.ErrorContains(err, "dueDate")
}

func (suite *TemplateServiceTestSuite) TestCreateTemplate_UnknownPlaceholderInLineNarration() {
	req := suite.validRequest()
	req.LineRules[0].Narration = "Due from %customer%"
	suite.mockTemplateRepo.On("FindTemplateByOrchid", suite.ctx, suite.orgID, "INVOICE").Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.CreateTemplate(suite.ctx, suite.orgID, req, suite.userID)
	suite.ErrorIs(err, services.ErrUnknownPlaceholder)
}

func (suite *TemplateServiceTestSuite) TestCreateTemplate_UnknownSourceField() {
	req := suite.validRequest()
	req.LineRules[1].SourceField = "netAmount"
	suite.mockTemplateRepo.On("FindTemplateByOrchid", suite.ctx, suite.orgID, "INVOICE").Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.CreateTemplate(suite.ctx, suite.orgID, req, suite.userID)
	suite.ErrorIs(err, services.ErrUnknownSourceField)
}

func (suite *TemplateServiceTestSuite) TestCreateTemplate_OperatorNeedsOperand() {
	req := suite.validRequest()
	req.LineRules[1].Operator = domain.OperatorPercent

	suite.mockTemplateRepo.On("FindTemplateByOrchid", suite.ctx, suite.orgID, "INVOICE").Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.CreateTemplate(suite.ctx, suite.orgID, req, suite.userID)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *TemplateServiceTestSuite) TestCreateTemplate_UnknownOperator() {
	req := suite.validRequest()
	operand := decimal.NewFromInt(2)
	req.LineRules[1].Operator = domain.FormulaOperator("^")
	req.LineRules[1].Operand = &operand

	suite.mockTemplateRepo.On("FindTemplateByOrchid", suite.ctx, suite.orgID, "INVOICE").Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.CreateTemplate(suite.ctx, suite.orgID, req, suite.userID)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *TemplateServiceTestSuite) TestCreateTemplate_RuleAccountWrongOrg() {
	accounts := suite.ruleAccounts()
	acc := accounts[suite.revenueID]
	acc.OrganizationID = uuid.NewString()
	accounts[suite.revenueID] = acc

	suite.mockTemplateRepo.On("FindTemplateByOrchid", suite.ctx, suite.orgID, "INVOICE").Return(nil, apperrors.ErrNotFound).Once()
	suite.mockAccountRepo.On("FindAccountsByIDs", suite.ctx, mock.AnythingOfType("[]string")).Return(accounts, nil).Once()

	_, err := suite.service.CreateTemplate(suite.ctx, suite.orgID, suite.validRequest(), suite.userID)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *TemplateServiceTestSuite) TestReplaceTemplate_BumpsVersionAndPreservesIdentity() {
	createdAt := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	current := &domain.EventTemplate{
		TemplateID:     "tpl-1",
		OrganizationID: suite.orgID,
		Orchid:         "INVOICE",
		Version:        3,
		IsActive:       false,
		AuditFields:    domain.AuditFields{CreatedAt: createdAt, CreatedBy: "founder"},
	}

	suite.mockTemplateRepo.On("FindTemplateByOrchid", suite.ctx, suite.orgID, "INVOICE").Return(current, nil).Once()
	suite.mockAccountRepo.On("FindAccountsByIDs", suite.ctx, mock.AnythingOfType("[]string")).Return(suite.ruleAccounts(), nil).Once()
	suite.mockTemplateRepo.On("ReplaceTemplate", suite.ctx, mock.AnythingOfType("domain.EventTemplate")).Return(nil).Once()

	tpl, err := suite.service.ReplaceTemplate(suite.ctx, suite.orgID, "INVOICE", suite.validRequest(), suite.userID)

	suite.Require().NoError(err)
	suite.Equal("tpl-1", tpl.TemplateID)
	suite.Equal(4, tpl.Version)
	suite.False(tpl.IsActive, "replacement keeps the active flag")
	suite.Equal(createdAt, tpl.CreatedAt)
	suite.Equal("founder", tpl.CreatedBy)
}

func (suite *TemplateServiceTestSuite) TestReplaceTemplate_OrchidChangeRejected() {
	current := &domain.EventTemplate{TemplateID: "tpl-1", OrganizationID: suite.orgID, Orchid: "INVOICE", Version: 1}
	suite.mockTemplateRepo.On("FindTemplateByOrchid", suite.ctx, suite.orgID, "INVOICE").Return(current, nil).Once()

	req := suite.validRequest()
	req.Orchid = "INVOICE_V2"
	_, err := suite.service.ReplaceTemplate(suite.ctx, suite.orgID, "INVOICE", req, suite.userID)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *TemplateServiceTestSuite) TestSetTemplateActive() {
	suite.mockTemplateRepo.On("SetTemplateActive", suite.ctx, suite.orgID, "INVOICE", false, suite.userID).Return(nil).Once()

	err := suite.service.SetTemplateActive(suite.ctx, suite.orgID, "INVOICE", false, suite.userID)
	suite.NoError(err)
	suite.mockTemplateRepo.AssertExpectations(suite.T())
}

func TestTemplateServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TemplateServiceTestSuite))
}
