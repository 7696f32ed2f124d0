package domain

import "github.com/shopspring/decimal"

// SerialMethod selects how the serial part of a generated reference is produced.
type SerialMethod string

const (
	SerialIncrementor SerialMethod = "incrementor" // zero-padded monotonic counter per template
	SerialRandomHex   SerialMethod = "randomHex"   // random hex characters
)

// LineDirection indicates which side of a journal line a rule produces.
type LineDirection string

const (
	DirectionDebit  LineDirection = "debit"
	DirectionCredit LineDirection = "credit"
)

// FormulaOperator is the closed set of amount operations a line rule may use.
// Evaluation is a switch over this enum; there is no general expression language.
type FormulaOperator string

const (
	OperatorDirect   FormulaOperator = "direct"
	OperatorPercent  FormulaOperator = "%"
	OperatorAdd      FormulaOperator = "+"
	OperatorSubtract FormulaOperator = "-"
	OperatorMultiply FormulaOperator = "*"
)

// ValidOperator reports whether op is a known formula operator.
func ValidOperator(op FormulaOperator) bool {
	switch op {
	case OperatorDirect, OperatorPercent, OperatorAdd, OperatorSubtract, OperatorMultiply:
		return true
	default:
		return false
	}
}

// ReferenceConfig describes how a template builds journal references.
type ReferenceConfig struct {
	Prefix       string       `json:"prefix"`
	SerialMethod SerialMethod `json:"serialMethod"`
	Length       int          `json:"length"`
}

// AmountFormula computes one line amount from a payload field.
// Operand is required for every operator except direct.
type AmountFormula struct {
	SourceField string           `json:"sourceField"`
	Operator    FormulaOperator  `json:"operator"`
	Operand     *decimal.Decimal `json:"operand,omitempty"`
}

// LineRule is a template's recipe for one journal line.
type LineRule struct {
	AccountID string        `json:"accountID"`
	Direction LineDirection `json:"direction"`
	Formula   AmountFormula `json:"formula"`
	Narration string        `json:"narration"` // per-line narration template, may use %field% tokens
}

// InputSchema declares the payload fields a template requires.
type InputSchema struct {
	Required []string `json:"required"`
}

// EventTemplate is a declarative recipe that turns a business event payload
// into a balanced journal entry. Templates are versioned by replacement;
// a template is never partially mutated while in use.
type EventTemplate struct {
	TemplateID        string          `json:"templateID"`     // Primary key (UUID)
	OrganizationID    string          `json:"organizationID"` // Owning organization (NON-NULL)
	Orchid            string          `json:"orchid"`         // Unique template code, e.g. "INVOICE"
	Name              string          `json:"name"`
	ReferenceConfig   ReferenceConfig `json:"referenceConfig"`
	NarrationTemplate string          `json:"narrationTemplate"` // journal-level narration, may use %field% tokens
	InputSchema       InputSchema     `json:"inputSchema"`
	LineRules         []LineRule      `json:"lineRules"`
	IsActive          bool            `json:"isActive"`
	Version           int             `json:"version"`
	AuditFields
}
