package checks

import (
	"fmt"

	"github.com/canonica-labs/engarde/pkg/frame"
)

// Op is an elementwise comparison operator.
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// ParseOp parses a comparison operator.
func ParseOp(s string) (Op, error) {
	switch op := Op(s); op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return op, nil
	case "=":
		return OpEq, nil
	}
	return "", fmt.Errorf("unknown comparison operator %q", s)
}

// Apply compares a with b. Missing or unorderable operands compare false,
// except that != is true for values that are not equal.
func (op Op) Apply(a, b interface{}) bool {
	switch op {
	case OpEq:
		return !frame.IsMissing(a) && frame.Equal(a, b)
	case OpNe:
		return frame.IsMissing(a) || !frame.Equal(a, b)
	}
	cmp, err := frame.Compare(a, b)
	if err != nil {
		return false
	}
	switch op {
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	}
	return false
}

// ColumnCompare returns a mask predicate comparing every value of a column
// against value. An absent column produces an empty mask.
func ColumnCompare(column string, op Op, value interface{}) MaskPredicate {
	return func(t *frame.Table, _ ...interface{}) []bool {
		col, ok := t.Column(column)
		if !ok {
			return nil
		}
		return col.Mask(func(v interface{}) bool {
			return op.Apply(v, value)
		})
	}
}
