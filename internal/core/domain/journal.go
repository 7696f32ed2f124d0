package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalStatus indicates the lifecycle state of a journal entry.
type JournalStatus string

const (
	Draft    JournalStatus = "DRAFT"
	Posted   JournalStatus = "POSTED"
	Reversed JournalStatus = "REVERSED"
)

// Journal represents a single, balanced financial event composed of multiple lines.
// Lifecycle: DRAFT (mutable) -> POSTED (immutable, balances applied) ->
// REVERSED (terminal, mirrored reversing journal created). A DRAFT may be
// deleted outright; a POSTED journal may only be reversed.
type Journal struct {
	JournalID          string          `json:"journalID"`      // Primary key (UUID)
	OrganizationID     string          `json:"organizationID"` // Owning organization (NON-NULL)
	JournalDate        time.Time       `json:"journalDate"`    // Date the event occurred
	Reference          *string         `json:"reference"`      // Nullable, unique per organization when set
	Description        string          `json:"description"`    // Nullable user description
	Status             JournalStatus   `json:"status"`
	OriginalJournalID  *string         `json:"originalJournalID"`  // Set on a reversing journal, points at the journal it reverses
	ReversingJournalID *string         `json:"reversingJournalID"` // Set on a reversed journal, points at its reversal
	Amount             decimal.Decimal `json:"amount"`             // Total debit side; the economic value of the journal
	Lines              []JournalLine   `json:"lines,omitempty"`
	AuditFields
}

// JournalLine is a single line item within a journal, affecting one account.
// Exactly one of Debit/Credit is nonzero.
type JournalLine struct {
	LineID    string          `json:"lineID"`    // Primary key (UUID)
	JournalID string          `json:"journalID"` // FK -> Journal.journalID (NON-NULL)
	AccountID string          `json:"accountID"` // FK -> Account.accountID (NON-NULL)
	Debit     decimal.Decimal `json:"debit"`     // >= 0
	Credit    decimal.Decimal `json:"credit"`    // >= 0
	Narration string          `json:"narration"` // Nullable line note
	AuditFields
}

// IsDebit reports whether the line carries its amount on the debit side.
func (l JournalLine) IsDebit() bool {
	return l.Debit.IsPositive()
}

// Amount returns the nonzero side of the line.
func (l JournalLine) LineAmount() decimal.Decimal {
	if l.IsDebit() {
		return l.Debit
	}
	return l.Credit
}
