package domain

import (
	"github.com/shopspring/decimal"
)

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Income    AccountType = "INCOME"
	Expense   AccountType = "EXPENSE"
)

// NormalBalance indicates whether an account's natural increase is recorded
// as a debit or a credit. It is derived from the account type, never stored
// independently of it.
type NormalBalance string

const (
	DebitNormal  NormalBalance = "DEBIT"
	CreditNormal NormalBalance = "CREDIT"
)

// NormalBalanceFor returns the normal balance side for an account type.
// ASSET and EXPENSE accounts increase on the debit side; everything else
// increases on the credit side.
func NormalBalanceFor(t AccountType) NormalBalance {
	switch t {
	case Asset, Expense:
		return DebitNormal
	default:
		return CreditNormal
	}
}

// ValidAccountType reports whether t is one of the five known account types.
func ValidAccountType(t AccountType) bool {
	switch t {
	case Asset, Liability, Equity, Income, Expense:
		return true
	default:
		return false
	}
}

// Account represents one node of the chart of accounts.
// Accounts form a forest via ParentCode; parent/child is a lookup relation
// keyed by code, not an ownership relation.
type Account struct {
	AccountID      string          `json:"accountID"`      // Primary key (UUID)
	OrganizationID string          `json:"organizationID"` // Owning organization (NON-NULL)
	Code           string          `json:"code"`           // Unique per organization
	Name           string          `json:"name"`           // User-defined name
	AccountType    AccountType     `json:"accountType"`    // ASSET, LIABILITY, etc.
	NormalBalance  NormalBalance   `json:"normalBalance"`  // Derived from AccountType
	ParentCode     *string         `json:"parentCode"`     // Nullable, references another account code
	Description    string          `json:"description"`    // Nullable user description
	OpeningBalance decimal.Decimal `json:"openingBalance"` // Balance at account creation
	CurrentBalance decimal.Decimal `json:"currentBalance"` // Maintained exclusively by posting/reversal
	IsSystem       bool            `json:"isSystem"`       // System accounts cannot be deleted
	IsActive       bool            `json:"isActive"`
	AuditFields
}

// AccountNode is one element of the account forest returned by tree reads.
// RolledUpBalance is the account's own balance plus all descendants'.
type AccountNode struct {
	Account
	RolledUpBalance decimal.Decimal `json:"rolledUpBalance"`
	Children        []*AccountNode  `json:"children"`
}
