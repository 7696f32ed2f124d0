package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/finbook-oss/finbook_backend/internal/apperrors"
	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	portssvc "github.com/finbook-oss/finbook_backend/internal/core/ports/services"
	"github.com/finbook-oss/finbook_backend/internal/core/services"
	"github.com/finbook-oss/finbook_backend/internal/dto"
	"github.com/finbook-oss/finbook_backend/internal/handlers"
	"github.com/finbook-oss/finbook_backend/internal/middleware"
)

// --- Mock AccountService ---
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) CreateAccount(ctx context.Context, orgID string, req dto.CreateAccountRequest, userID string) (*domain.Account, error) {
	args := m.Called(ctx, orgID, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) GetAccountByID(ctx context.Context, orgID string, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, orgID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) GetAccountsByIDs(ctx context.Context, orgID string, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, orgID, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountService) ListAccounts(ctx context.Context, orgID string) ([]domain.Account, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountService) GetAccountTree(ctx context.Context, orgID string) ([]*domain.AccountNode, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AccountNode), args.Error(1)
}

func (m *MockAccountService) UpdateAccount(ctx context.Context, orgID string, accountID string, req dto.UpdateAccountRequest, userID string) (*domain.Account, error) {
	args := m.Called(ctx, orgID, accountID, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) DeleteAccount(ctx context.Context, orgID string, accountID string, userID string) error {
	args := m.Called(ctx, orgID, accountID, userID)
	return args.Error(0)
}

var _ portssvc.AccountSvcFacade = (*MockAccountService)(nil)

// --- Mock JournalService ---
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

var _ portssvc.JournalSvcFacade = (*MockJournalService)(nil)

// --- Test Suite ---
type AccountHandlerTestSuite struct {
	suite.Suite
	router             *gin.Engine
	mockAccountService *MockAccountService
	mockJournalService *MockJournalService
	orgID              string
}

func (suite *AccountHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.orgID = uuid.NewString()

	suite.mockAccountService = new(MockAccountService)
	suite.mockJournalService = new(MockJournalService)

	v1 := suite.router.Group("/api/v1", middleware.OrgScope())
	handlers.RegisterAccountRoutes(v1, suite.mockAccountService, suite.mockJournalService)
}

// serve runs a request through the router with the org scope header set.
func (suite *AccountHandlerTestSuite) serve(method, url string, body any) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		buf = bytes.NewBuffer(raw)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, buf)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Org-ID", suite.orgID)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// --- Test Cases ---

func (suite *AccountHandlerTestSuite) TestCreateAccount_Success() {
	req := dto.CreateAccountRequest{Code: "1000", Name: "Cash", AccountType: domain.Asset}
	account := &domain.Account{
		AccountID:      uuid.NewString(),
		OrganizationID: suite.orgID,
		Code:           "1000",
		Name:           "Cash",
		AccountType:    domain.Asset,
		NormalBalance:  domain.DebitNormal,
		IsActive:       true,
	}

	suite.mockAccountService.On("CreateAccount", mock.Anything, suite.orgID, mock.MatchedBy(func(r dto.CreateAccountRequest) bool {
		return r.Code == "1000" && r.AccountType == domain.Asset
	}), "system").Return(account, nil).Once()

	w := suite.serve(http.MethodPost, "/api/v1/accounts", req)

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.AccountResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("1000", resp.Code)
	suite.Equal(domain.DebitNormal, resp.NormalBalance)
	suite.mockAccountService.AssertExpectations(suite.T())
}

func (suite *AccountHandlerTestSuite) TestCreateAccount_DuplicateCodeConflict() {
	req := dto.CreateAccountRequest{Code: "1000", Name: "Cash", AccountType: domain.Asset}
	suite.mockAccountService.On("CreateAccount", mock.Anything, suite.orgID, mock.Anything, "system").
		Return(nil, fmt.Errorf("%w: code '1000'", services.ErrDuplicateAccountCode)).Once()

	w := suite.serve(http.MethodPost, "/api/v1/accounts", req)
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *AccountHandlerTestSuite) TestCreateAccount_MixedParentBadRequest() {
	req := dto.CreateAccountRequest{Code: "1100", Name: "Petty Cash", AccountType: domain.Asset}
	suite.mockAccountService.On("CreateAccount", mock.Anything, suite.orgID, mock.Anything, "system").
		Return(nil, fmt.Errorf("%w: parent '2000'", services.ErrMixedNormalBalance)).Once()

	w := suite.serve(http.MethodPost, "/api/v1/accounts", req)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *AccountHandlerTestSuite) TestCreateAccount_MissingOrgHeader() {
	raw, _ := json.Marshal(dto.CreateAccountRequest{Code: "1000", Name: "Cash", AccountType: domain.Asset})
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/accounts", bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockAccountService.AssertNotCalled(suite.T(), "CreateAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AccountHandlerTestSuite) TestGetAccount_NotFound() {
	accountID := uuid.NewString()
	suite.mockAccountService.On("GetAccountByID", mock.Anything, suite.orgID, accountID).
		Return(nil, apperrors.ErrNotFound).Once()

	w := suite.serve(http.MethodGet, "/api/v1/accounts/"+accountID, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *AccountHandlerTestSuite) TestGetAccountTree_Success() {
	tree := []*domain.AccountNode{
		{
			Account:         domain.Account{AccountID: uuid.NewString(), OrganizationID: suite.orgID, Code: "1000", CurrentBalance: decimal.NewFromInt(100)},
			RolledUpBalance: decimal.NewFromInt(140),
			Children: []*domain.AccountNode{
				{
					Account:         domain.Account{AccountID: uuid.NewString(), OrganizationID: suite.orgID, Code: "1100", CurrentBalance: decimal.NewFromInt(40)},
					RolledUpBalance: decimal.NewFromInt(40),
				},
			},
		},
	}
	suite.mockAccountService.On("GetAccountTree", mock.Anything, suite.orgID).Return(tree, nil).Once()

	w := suite.serve(http.MethodGet, "/api/v1/accounts/tree", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp []map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().Len(resp, 1)
	suite.Equal("1000", resp[0]["code"])
}

func (suite *AccountHandlerTestSuite) TestListAccountLines_Success() {
	accountID := uuid.NewString()
	account := &domain.Account{AccountID: accountID, OrganizationID: suite.orgID, Code: "1000"}
	lines := []domain.JournalLine{
		{LineID: uuid.NewString(), AccountID: accountID, Debit: decimal.NewFromInt(100)},
	}

	suite.mockAccountService.On("GetAccountByID", mock.Anything, suite.orgID, accountID).Return(account, nil).Once()
	suite.mockJournalService.On("ListLinesByAccount", mock.Anything, suite.orgID, accountID, 10, 0).Return(lines, nil).Once()

	w := suite.serve(http.MethodGet, "/api/v1/accounts/"+accountID+"/lines?limit=10", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp []dto.JournalLineResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().Len(resp, 1)
	suite.Equal(accountID, resp[0].AccountID)
	suite.mockJournalService.AssertExpectations(suite.T())
}

func (suite *AccountHandlerTestSuite) TestDeleteAccount_InUseConflict() {
	accountID := uuid.NewString()
	suite.mockAccountService.On("DeleteAccount", mock.Anything, suite.orgID, accountID, "system").
		Return(fmt.Errorf("%w: account '1000'", services.ErrAccountInUse)).Once()

	w := suite.serve(http.MethodDelete, "/api/v1/accounts/"+accountID, nil)
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *AccountHandlerTestSuite) TestDeleteAccount_Success() {
	accountID := uuid.NewString()
	suite.mockAccountService.On("DeleteAccount", mock.Anything, suite.orgID, accountID, "system").Return(nil).Once()

	w := suite.serve(http.MethodDelete, "/api/v1/accounts/"+accountID, nil)
	suite.Equal(http.StatusNoContent, w.Code)
}

func TestAccountHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AccountHandlerTestSuite))
}
