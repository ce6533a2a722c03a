// Package condition evaluates CONDITION node comparisons.
//
// Evaluation is total: unknown operators, absent values and unparsable numbers
// all produce false instead of an error.
package condition

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/storeflow/pkg/domain"
)

// Value is a stored variable as seen by the evaluator.
type Value struct {
	Text string
	Set  bool
}

// Lookup builds a Value from a variable map.
func Lookup(vars map[string]string, key string) Value {
	v, ok := vars[key]
	return Value{Text: v, Set: ok}
}

// present reports whether the value exists and is non-empty after trimming.
func (v Value) present() bool {
	return v.Set && strings.TrimSpace(v.Text) != ""
}

// OperatorFunc compares a stored value with a literal.
type OperatorFunc func(stored Value, literal string) bool

var operators = map[domain.Operator]OperatorFunc{
	domain.OpExists:     func(v Value, _ string) bool { return v.present() },
	domain.OpNotExists:  func(v Value, _ string) bool { return !v.present() },
	domain.OpEq:         stringOp(func(a, b string) bool { return a == b }),
	domain.OpNeq:        stringOp(func(a, b string) bool { return a != b }),
	domain.OpContains:   stringOp(strings.Contains),
	domain.OpStartsWith: stringOp(strings.HasPrefix),
	domain.OpEndsWith:   stringOp(strings.HasSuffix),
	domain.OpGt:         numericOp(func(a, b float64) bool { return a > b }),
	domain.OpGte:        numericOp(func(a, b float64) bool { return a >= b }),
	domain.OpLt:         numericOp(func(a, b float64) bool { return a < b }),
	domain.OpLte:        numericOp(func(a, b float64) bool { return a <= b }),
}

// Evaluate applies op to the stored value and the literal.
func Evaluate(op domain.Operator, stored Value, literal string) bool {
	fn, ok := operators[op]
	if !ok {
		return false
	}
	return fn(stored, literal)
}

// Supported reports whether op is a known operator.
func Supported(op domain.Operator) bool {
	_, ok := operators[op]
	return ok
}

// NeedsLiteral reports whether op compares against a literal.
func NeedsLiteral(op domain.Operator) bool {
	return op != domain.OpExists && op != domain.OpNotExists
}

// stringOp compares trimmed values. An absent stored value is always false,
// NEQ included.
func stringOp(cmp func(stored, literal string) bool) OperatorFunc {
	return func(v Value, literal string) bool {
		if !v.Set {
			return false
		}
		return cmp(strings.TrimSpace(v.Text), strings.TrimSpace(literal))
	}
}

func numericOp(cmp func(stored, literal float64) bool) OperatorFunc {
	return func(v Value, literal string) bool {
		if !v.Set {
			return false
		}
		a, ok := ParseNumber(v.Text)
		if !ok {
			return false
		}
		b, ok := ParseNumber(literal)
		if !ok {
			return false
		}
		return cmp(a, b)
	}
}

var decimal = regexp.MustCompile(`^[+-]?(\d+([.,]\d*)?|[.,]\d+)([eE][+-]?\d+)?$`)

// ParseNumber parses a plain decimal accepting either a comma or a dot
// separator. NaN, infinities and hex floats are not numbers here.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !decimal.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatNumber renders a float without trailing zeros.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
