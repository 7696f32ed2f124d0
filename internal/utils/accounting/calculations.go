package accounting

import (
	"fmt"

	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BalanceDelta computes the change a journal line applies to an account's
// current balance. Used in both services and repositories to keep the sign
// convention in one place.
//
// DEBIT-normal accounts (ASSET/EXPENSE) move by (debit - credit);
// CREDIT-normal accounts move by (credit - debit).
func BalanceDelta(line domain.JournalLine, normal domain.NormalBalance) (decimal.Decimal, error) {
	switch normal {
	case domain.DebitNormal:
		return line.Debit.Sub(line.Credit), nil
	case domain.CreditNormal:
		return line.Credit.Sub(line.Debit), nil
	default:
		return decimal.Zero, fmt.Errorf("unknown normal balance '%s' for account ID %s", normal, line.AccountID)
	}
}

// ValidateLines checks the shape of a journal's lines: at least two lines,
// and each line carries exactly one of debit/credit, strictly positive.
func ValidateLines(lines []domain.JournalLine) error {
	if len(lines) < 2 {
		return fmt.Errorf("journal must have at least two lines")
	}
	for i, line := range lines {
		debitSet := line.Debit.IsPositive()
		creditSet := line.Credit.IsPositive()
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("line %d: debit and credit must be non-negative", i)
		}
		if debitSet == creditSet {
			return fmt.Errorf("line %d: exactly one of debit or credit must be set", i)
		}
	}
	return nil
}

// SumSides returns the total debit and total credit across lines.
func SumSides(lines []domain.JournalLine) (debits decimal.Decimal, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, line := range lines {
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}
	return debits, credits
}
