package accounting_test

import (
	"testing"

	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	"github.com/finbook-oss/finbook_backend/internal/utils/accounting"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func debitLine(amount int64) domain.JournalLine {
	return domain.JournalLine{AccountID: "acc-1", Debit: decimal.NewFromInt(amount), Credit: decimal.Zero}
}

func creditLine(amount int64) domain.JournalLine {
	return domain.JournalLine{AccountID: "acc-2", Debit: decimal.Zero, Credit: decimal.NewFromInt(amount)}
}

func TestBalanceDelta(t *testing.T) {
	cases := []struct {
		name     string
		line     domain.JournalLine
		normal   domain.NormalBalance
		expected int64
	}{
		{"debit to debit-normal increases", debitLine(100), domain.DebitNormal, 100},
		{"credit to debit-normal decreases", creditLine(40), domain.DebitNormal, -40},
		{"credit to credit-normal increases", creditLine(75), domain.CreditNormal, 75},
		{"debit to credit-normal decreases", debitLine(30), domain.CreditNormal, -30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			delta, err := accounting.BalanceDelta(tc.line, tc.normal)
			require.NoError(t, err)
			assert.True(t, delta.Equal(decimal.NewFromInt(tc.expected)), "expected %d, got %s", tc.expected, delta)
		})
	}
}

func TestBalanceDelta_UnknownNormal(t *testing.T) {
	_, err := accounting.BalanceDelta(debitLine(10), domain.NormalBalance("SIDEWAYS"))
	assert.Error(t, err)
}

func TestValidateLines(t *testing.T) {
	assert.NoError(t, accounting.ValidateLines([]domain.JournalLine{debitLine(100), creditLine(100)}))
}

func TestValidateLines_TooFew(t *testing.T) {
	assert.Error(t, accounting.ValidateLines(nil))
	assert.Error(t, accounting.ValidateLines([]domain.JournalLine{debitLine(100)}))
}

func TestValidateLines_BothSidesSet(t *testing.T) {
	bad := domain.JournalLine{AccountID: "acc-1", Debit: decimal.NewFromInt(10), Credit: decimal.NewFromInt(10)}
	err := accounting.ValidateLines([]domain.JournalLine{bad, creditLine(10)})
	assert.Error(t, err)
}

func TestValidateLines_NeitherSideSet(t *testing.T) {
	bad := domain.JournalLine{AccountID: "acc-1"}
	err := accounting.ValidateLines([]domain.JournalLine{bad, creditLine(10)})
	assert.Error(t, err)
}

func TestValidateLines_Negative(t *testing.T) {
	bad := domain.JournalLine{AccountID: "acc-1", Debit: decimal.NewFromInt(-5)}
	err := accounting.ValidateLines([]domain.JournalLine{bad, creditLine(5)})
	assert.Error(t, err)
}

func TestSumSides(t *testing.T) {
	debits, credits := accounting.SumSides([]domain.JournalLine{
		debitLine(60), debitLine(40), creditLine(100),
	})
	assert.True(t, debits.Equal(decimal.NewFromInt(100)))
	assert.True(t, credits.Equal(decimal.NewFromInt(100)))
}
