package services

import (
	"context"

	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	"github.com/finbook-oss/finbook_backend/internal/dto"
)

// AccountSvcFacade is the chart-of-accounts service surface.
type AccountSvcFacade interface {
	// CreateAccount registers a new account, deriving its normal balance from
	// the account type and validating code uniqueness and parent consistency.
	CreateAccount(ctx context.Context, orgID string, req dto.CreateAccountRequest, userID string) (*domain.Account, error)

	// GetAccountByID retrieves one account.
	GetAccountByID(ctx context.Context, orgID string, accountID string) (*domain.Account, error)

	// GetAccountsByIDs retrieves multiple accounts, keyed by ID.
	GetAccountsByIDs(ctx context.Context, orgID string, accountIDs []string) (map[string]domain.Account, error)

	// ListAccounts retrieves all accounts for an organization.
	ListAccounts(ctx context.Context, orgID string) ([]domain.Account, error)

	// GetAccountTree returns the account forest with rolled-up balances.
	GetAccountTree(ctx context.Context, orgID string) ([]*domain.AccountNode, error)

	// UpdateAccount updates mutable account fields.
	UpdateAccount(ctx context.Context, orgID string, accountID string, req dto.UpdateAccountRequest, userID string) (*domain.Account, error)

	// DeleteAccount removes an account. System accounts and accounts with any
	// recorded journal lines are protected.
	DeleteAccount(ctx context.Context, orgID string, accountID string, userID string) error
}
