package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finbook-oss/finbook_backend/internal/apperrors"
	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	portsrepo "github.com/finbook-oss/finbook_backend/internal/core/ports/repositories"
	portssvc "github.com/finbook-oss/finbook_backend/internal/core/ports/services"
	"github.com/finbook-oss/finbook_backend/internal/dto"
	"github.com/finbook-oss/finbook_backend/internal/middleware"
)

var (
	ErrDuplicateAccountCode = errors.New("account code already exists")
	ErrParentNotFound       = errors.New("parent account not found")
	ErrMixedNormalBalance   = errors.New("parent and child normal balances differ")
	ErrSystemAccount        = errors.New("system accounts cannot be deleted")
	ErrAccountInUse         = errors.New("account has journal lines recorded against it")
)

// accountService provides chart-of-accounts operations. It is the sole
// mutator of account metadata; current balances move only through the
// journal engine's posting transactions.
type accountService struct {
	accountRepo portsrepo.AccountRepositoryFacade
}

// NewAccountService creates a new account service.
func NewAccountService(accountRepo portsrepo.AccountRepositoryFacade) portssvc.AccountSvcFacade {
	return &accountService{accountRepo: accountRepo}
}

var _ portssvc.AccountSvcFacade = (*accountService)(nil)

// CreateAccount registers a new account. The normal balance is computed from
// the account type; it is never supplied by the caller.
func (s *accountService) CreateAccount(ctx context.Context, orgID string, req dto.CreateAccountRequest, userID string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !domain.ValidAccountType(req.AccountType) {
		return nil, fmt.Errorf("%w: unknown account type '%s'", apperrors.ErrValidation, req.AccountType)
	}
	if req.OpeningBalance.IsNegative() {
		return nil, fmt.Errorf("%w: opening balance must not be negative", apperrors.ErrValidation)
	}

	// Reject duplicate codes up front; the unique index is the backstop
	// under concurrent creation.
	existing, err := s.accountRepo.FindAccountByCode(ctx, orgID, req.Code)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		logger.Error("Failed to check account code uniqueness", slog.String("error", err.Error()), slog.String("code", req.Code))
		return nil, fmt.Errorf("failed to check account code: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: code '%s'", ErrDuplicateAccountCode, req.Code)
	}

	normal := domain.NormalBalanceFor(req.AccountType)

	if req.ParentCode != nil {
		parent, err := s.accountRepo.FindAccountByCode(ctx, orgID, *req.ParentCode)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: code '%s'", ErrParentNotFound, *req.ParentCode)
			}
			logger.Error("Failed to fetch parent account", slog.String("error", err.Error()), slog.String("parent_code", *req.ParentCode))
			return nil, fmt.Errorf("failed to fetch parent account: %w", err)
		}
		// A CREDIT-normal parent hosting a DEBIT-normal child (or vice versa)
		// needs an explicit override, e.g. for contra accounts.
		if parent.NormalBalance != normal && !req.AllowMixedParent {
			return nil, fmt.Errorf("%w: parent '%s' is %s-normal, child would be %s-normal", ErrMixedNormalBalance, parent.Code, parent.NormalBalance, normal)
		}
	}

	now := time.Now().UTC()
	account := domain.Account{
		AccountID:      uuid.NewString(),
		OrganizationID: orgID,
		Code:           req.Code,
		Name:           req.Name,
		AccountType:    req.AccountType,
		NormalBalance:  normal,
		ParentCode:     req.ParentCode,
		Description:    req.Description,
		OpeningBalance: req.OpeningBalance,
		CurrentBalance: req.OpeningBalance,
		IsSystem:       req.IsSystem,
		IsActive:       true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: code '%s'", ErrDuplicateAccountCode, req.Code)
		}
		logger.Error("Failed to save account", slog.String("error", err.Error()), slog.String("code", req.Code))
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	logger.Info("Account created", slog.String("account_id", account.AccountID), slog.String("code", account.Code))
	return &account, nil
}

// GetAccountByID retrieves one account, obscuring existence across organizations.
func (s *accountService) GetAccountByID(ctx context.Context, orgID string, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.OrganizationID != orgID {
		return nil, apperrors.ErrNotFound
	}
	return account, nil
}

// GetAccountsByIDs retrieves multiple accounts, all scoped to the organization.
func (s *accountService) GetAccountsByIDs(ctx context.Context, orgID string, accountIDs []string) (map[string]domain.Account, error) {
	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
	if err != nil {
		return nil, err
	}
	for id, acc := range accounts {
		if acc.OrganizationID != orgID {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
		}
	}
	return accounts, nil
}

// ListAccounts retrieves all accounts for an organization.
func (s *accountService) ListAccounts(ctx context.Context, orgID string) ([]domain.Account, error) {
	return s.accountRepo.ListAccounts(ctx, orgID)
}

// GetAccountTree returns the account forest. Parent/child is a lookup
// relation over an index keyed by code; children lists are computed here on
// read. A parent's rolled-up balance is its own balance plus all descendants'.
func (s *accountService) GetAccountTree(ctx context.Context, orgID string) ([]*domain.AccountNode, error) {
	accounts, err := s.accountRepo.ListAccounts(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for tree: %w", err)
	}

	byCode := make(map[string]*domain.AccountNode, len(accounts))
	for _, acc := range accounts {
		byCode[acc.Code] = &domain.AccountNode{Account: acc, RolledUpBalance: acc.CurrentBalance}
	}

	var roots []*domain.AccountNode
	for _, node := range byCode {
		if node.ParentCode != nil {
			if parent, ok := byCode[*node.ParentCode]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
			// Dangling parent code: surface the node as a root rather than
			// dropping it from the tree.
		}
		roots = append(roots, node)
	}

	for _, root := range roots {
		rollUp(root)
	}
	sortNodes(roots)
	return roots, nil
}

// rollUp computes the rolled-up balance of node and returns it.
func rollUp(node *domain.AccountNode) decimal.Decimal {
	total := node.CurrentBalance
	for _, child := range node.Children {
		total = total.Add(rollUp(child))
	}
	node.RolledUpBalance = total
	return total
}

// sortNodes orders sibling nodes by code, recursively, for stable reads.
func sortNodes(nodes []*domain.AccountNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Code < nodes[j].Code })
	for _, node := range nodes {
		sortNodes(node.Children)
	}
}

// UpdateAccount updates mutable account fields. Type, code and normal
// balance are immutable after creation.
func (s *accountService) UpdateAccount(ctx context.Context, orgID string, accountID string, req dto.UpdateAccountRequest, userID string) (*domain.Account, error) {
	account, err := s.GetAccountByID(ctx, orgID, accountID)
	if err != nil {
		return nil, err
	}

	updated := false
	if req.Name != nil {
		account.Name = *req.Name
		updated = true
	}
	if req.Description != nil {
		account.Description = *req.Description
		updated = true
	}
	if !updated {
		return account, nil
	}

	account.LastUpdatedAt = time.Now().UTC()
	account.LastUpdatedBy = userID
	if err := s.accountRepo.UpdateAccount(ctx, *account); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return account, nil
}

// DeleteAccount removes an account. System accounts and accounts with any
// journal lines ever recorded are protected, preserving auditability.
func (s *accountService) DeleteAccount(ctx context.Context, orgID string, accountID string, userID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	account, err := s.GetAccountByID(ctx, orgID, accountID)
	if err != nil {
		return err
	}
	if account.IsSystem {
		return fmt.Errorf("%w: account '%s'", ErrSystemAccount, account.Code)
	}

	used, err := s.accountRepo.HasJournalLines(ctx, accountID)
	if err != nil {
		logger.Error("Failed to check account usage", slog.String("error", err.Error()), slog.String("account_id", accountID))
		return fmt.Errorf("failed to check account usage: %w", err)
	}
	if used {
		return fmt.Errorf("%w: account '%s'", ErrAccountInUse, account.Code)
	}

	if err := s.accountRepo.DeleteAccount(ctx, accountID); err != nil {
		logger.Error("Failed to delete account", slog.String("error", err.Error()), slog.String("account_id", accountID))
		return fmt.Errorf("failed to delete account: %w", err)
	}

	logger.Info("Account deleted", slog.String("account_id", accountID), slog.String("code", account.Code))
	return nil
}
