package dto

import (
	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest is the payload for creating a new account.
type CreateAccountRequest struct {
	Code           string             `json:"code" binding:"required"`
	Name           string             `json:"name" binding:"required"`
	AccountType    domain.AccountType `json:"accountType" binding:"required"`
	ParentCode     *string            `json:"parentCode"`
	Description    string             `json:"description"`
	OpeningBalance decimal.Decimal    `json:"openingBalance"`
	IsSystem       bool               `json:"isSystem"`
	// AllowMixedParent permits attaching the account under a parent whose
	// normal balance differs (e.g. a contra account).
	AllowMixedParent bool `json:"allowMixedParent"`
}

// UpdateAccountRequest is the payload for updating mutable account fields.
type UpdateAccountRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// AccountResponse is the API representation of an account.
type AccountResponse struct {
	AccountID      string               `json:"accountID"`
	Code           string               `json:"code"`
	Name           string               `json:"name"`
	AccountType    domain.AccountType   `json:"accountType"`
	NormalBalance  domain.NormalBalance `json:"normalBalance"`
	ParentCode     *string              `json:"parentCode,omitempty"`
	Description    string               `json:"description,omitempty"`
	OpeningBalance decimal.Decimal      `json:"openingBalance"`
	CurrentBalance decimal.Decimal      `json:"currentBalance"`
	IsSystem       bool                 `json:"isSystem"`
	IsActive       bool                 `json:"isActive"`
}

// ToAccountResponse maps a domain account to its API representation.
func ToAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:      a.AccountID,
		Code:           a.Code,
		Name:           a.Name,
		AccountType:    a.AccountType,
		NormalBalance:  a.NormalBalance,
		ParentCode:     a.ParentCode,
		Description:    a.Description,
		OpeningBalance: a.OpeningBalance,
		CurrentBalance: a.CurrentBalance,
		IsSystem:       a.IsSystem,
		IsActive:       a.IsActive,
	}
}
