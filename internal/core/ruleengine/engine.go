// Package ruleengine evaluates event templates against payloads.
//
// Evaluation is pure: given a template definition, a payload, and a
// pre-allocated serial, it computes a reference, a narration, and a set of
// balanced journal lines, or fails. It performs no I/O; the incrementor
// serial comes from the counter repository via the dispatcher, and reference
// collisions are the dispatcher's retry concern.
package ruleengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	"github.com/finbook-oss/finbook_backend/internal/utils"
	"github.com/shopspring/decimal"
)

var (
	// ErrTemplateImbalance indicates the template's line rules evaluated to
	// unequal debit and credit totals. The template itself is defective;
	// amounts are never rounded to compensate.
	ErrTemplateImbalance = errors.New("template line rules do not balance")

	// ErrPlaceholderUnresolved indicates a narration template referenced a
	// field absent from the payload. This fails loudly rather than emitting
	// the raw token or a blank.
	ErrPlaceholderUnresolved = errors.New("narration placeholder not present in payload")

	// ErrNonNumericField indicates an amount formula's source field did not
	// hold a numeric value.
	ErrNonNumericField = errors.New("formula source field is not numeric")

	// ErrBadFormula indicates a structurally invalid formula (unknown
	// operator, missing operand).
	ErrBadFormula = errors.New("invalid amount formula")
)

// placeholderPattern matches %fieldName% tokens in narration templates.
var placeholderPattern = regexp.MustCompile(`%([A-Za-z0-9_]+)%`)

// Result is the outcome of evaluating a template against a payload.
type Result struct {
	Reference string
	Narration string
	Lines     []domain.JournalLine
}

// Evaluate computes the candidate journal lines for tpl applied to payload.
// serial is the counter value for incrementor templates and is ignored for
// randomHex templates.
func Evaluate(tpl domain.EventTemplate, payload map[string]any, serial int64) (*Result, error) {
	reference, err := BuildReference(tpl.ReferenceConfig, serial)
	if err != nil {
		return nil, err
	}

	narration, err := Substitute(tpl.NarrationTemplate, payload)
	if err != nil {
		return nil, err
	}

	lines := make([]domain.JournalLine, 0, len(tpl.LineRules))
	debits, credits := decimal.Zero, decimal.Zero
	for i, rule := range tpl.LineRules {
		amount, err := EvaluateFormula(rule.Formula, payload)
		if err != nil {
			return nil, fmt.Errorf("line rule %d: %w", i, err)
		}

		lineNarration, err := Substitute(rule.Narration, payload)
		if err != nil {
			return nil, fmt.Errorf("line rule %d: %w", i, err)
		}

		line := domain.JournalLine{
			AccountID: rule.AccountID,
			Narration: lineNarration,
		}
		switch rule.Direction {
		case domain.DirectionDebit:
			line.Debit = amount
			debits = debits.Add(amount)
		case domain.DirectionCredit:
			line.Credit = amount
			credits = credits.Add(amount)
		default:
			return nil, fmt.Errorf("line rule %d: unknown direction '%s'", i, rule.Direction)
		}
		lines = append(lines, line)
	}

	if !debits.Equal(credits) {
		return nil, fmt.Errorf("%w: debits %s, credits %s", ErrTemplateImbalance, debits.String(), credits.String())
	}

	return &Result{Reference: reference, Narration: narration, Lines: lines}, nil
}

// BuildReference assembles "prefix-serial". Incrementor serials are
// zero-padded to cfg.Length; randomHex serials are cfg.Length hex characters.
func BuildReference(cfg domain.ReferenceConfig, serial int64) (string, error) {
	switch cfg.SerialMethod {
	case domain.SerialIncrementor:
		return fmt.Sprintf("%s-%0*d", cfg.Prefix, cfg.Length, serial), nil
	case domain.SerialRandomHex:
		hexSerial, err := utils.GenerateHexSerial(cfg.Length)
		if err != nil {
			return "", fmt.Errorf("failed to generate hex serial: %w", err)
		}
		return cfg.Prefix + "-" + hexSerial, nil
	default:
		return "", fmt.Errorf("unknown serial method '%s'", cfg.SerialMethod)
	}
}

// Substitute replaces every %field% token in tmpl with the stringified
// payload value. A token naming an absent field is an error.
func Substitute(tmpl string, payload map[string]any) (string, error) {
	if tmpl == "" {
		return "", nil
	}
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		field := strings.Trim(token, "%")
		value, ok := payload[field]
		if !ok {
			missing = append(missing, field)
			return token
		}
		return stringify(value)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrPlaceholderUnresolved, strings.Join(missing, ", "))
	}
	return out, nil
}

// Placeholders returns the distinct field names referenced by %field% tokens
// in tmpl, in order of first appearance.
func Placeholders(tmpl string) []string {
	seen := make(map[string]struct{})
	var fields []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		field := match[1]
		if _, ok := seen[field]; !ok {
			seen[field] = struct{}{}
			fields = append(fields, field)
		}
	}
	return fields
}

// EvaluateFormula computes a line amount from the payload.
func EvaluateFormula(f domain.AmountFormula, payload map[string]any) (decimal.Decimal, error) {
	raw, ok := payload[f.SourceField]
	if !ok {
		return decimal.Zero, fmt.Errorf("formula source field '%s' missing from payload", f.SourceField)
	}
	value, err := toDecimal(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: field '%s': %v", ErrNonNumericField, f.SourceField, err)
	}

	if f.Operator == domain.OperatorDirect {
		return value, nil
	}
	if f.Operand == nil {
		return decimal.Zero, fmt.Errorf("%w: operator '%s' requires an operand", ErrBadFormula, f.Operator)
	}

	switch f.Operator {
	case domain.OperatorPercent:
		return value.Mul(*f.Operand).Div(decimal.NewFromInt(100)), nil
	case domain.OperatorAdd:
		return value.Add(*f.Operand), nil
	case domain.OperatorSubtract:
		return value.Sub(*f.Operand), nil
	case domain.OperatorMultiply:
		return value.Mul(*f.Operand), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown operator '%s'", ErrBadFormula, f.Operator)
	}
}

// toDecimal coerces common JSON payload value shapes to a decimal.
func toDecimal(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case decimal.Decimal:
		return val, nil
	case float64:
		return decimal.NewFromFloat(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case string:
		return decimal.NewFromString(val)
	case json.Number:
		return decimal.NewFromString(val.String())
	default:
		return decimal.Zero, fmt.Errorf("unsupported value type %T", v)
	}
}

// stringify renders a payload value for narration substitution.
func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case decimal.Decimal:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", v)
	}
}
