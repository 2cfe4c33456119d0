package contract

import (
	"fmt"

	"github.com/canonica-labs/engarde/pkg/checks"
	"github.com/canonica-labs/engarde/pkg/frame"
)

// ComparisonCheck runs verify, verify_all or verify_any with a column
// comparison as the predicate.
//
// verify_all reports the rows where the comparison is false as cell-level
// locations. verify holds when the comparison is true for every row and,
// like verify_any, fails without locations.
type ComparisonCheck struct {
	// Mode is checks.NameVerify, checks.NameVerifyAll or checks.NameVerifyAny.
	Mode   string
	Column string
	Op     checks.Op
	Value  interface{}
}

func (c ComparisonCheck) Name() string { return c.Mode }

// Label renders the comparison, e.g. "amount > 0".
func (c ComparisonCheck) Label() string {
	return fmt.Sprintf("%s %s %v", c.Column, c.Op, c.Value)
}

func (c ComparisonCheck) Evaluate(t *frame.Table) (*frame.Table, error) {
	if t == nil {
		return nil, &checks.AssertionError{Check: c.Mode, Kind: checks.Structural, Message: "table is nil"}
	}
	if !t.Has(c.Column) {
		return nil, &checks.AssertionError{
			Check:    c.Mode,
			Kind:     checks.Structural,
			Message:  fmt.Sprintf("%s: column not found", c.Label()),
			Expected: c.Column,
			Observed: fmt.Sprintf("%v", t.Columns()),
		}
	}

	compare := checks.ColumnCompare(c.Column, c.Op, c.Value)
	var err error
	switch c.Mode {
	case checks.NameVerify:
		_, err = checks.VerifyCheck{Label: c.Label(), Predicate: func(t *frame.Table, _ ...interface{}) bool {
			return countTrue(compare(t)) == t.NumRows()
		}}.Evaluate(t)
	case checks.NameVerifyAll:
		_, err = checks.VerifyAllCheck{Label: c.Label(), Predicate: compare}.Evaluate(t)
	case checks.NameVerifyAny:
		_, err = checks.VerifyAnyCheck{Label: c.Label(), Predicate: compare}.Evaluate(t)
	default:
		return nil, fmt.Errorf("unknown comparison mode %q", c.Mode)
	}
	if err == nil {
		return t, nil
	}

	ae, ok := checks.AsAssertion(err)
	if !ok || c.Mode != checks.NameVerifyAll {
		return nil, err
	}
	return nil, c.withLocations(t, ae, compare(t))
}

// withLocations turns a structural verify failure into a cell-level one
// listing the rows where the comparison is false.
func (c ComparisonCheck) withLocations(t *frame.Table, ae *checks.AssertionError, mask []bool) *checks.AssertionError {
	bad := make([]bool, len(mask))
	for i, ok := range mask {
		bad[i] = !ok
	}
	return &checks.AssertionError{
		Check:     ae.Check,
		Kind:      checks.CellLevel,
		Message:   ae.Message,
		Expected:  ae.Expected,
		Observed:  ae.Observed,
		Locations: frame.BadLocations(t, []string{c.Column}, [][]bool{bad}),
	}
}

func countTrue(mask []bool) int {
	n := 0
	for _, ok := range mask {
		if ok {
			n++
		}
	}
	return n
}
