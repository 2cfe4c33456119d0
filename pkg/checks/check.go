// Package checks provides declarative contract checks over frame tables.
//
// Every check inspects a table and either returns it unchanged or fails with
// an *AssertionError. Checks hold no state between calls and never mutate the
// table they are given, so running a check twice yields the same outcome.
//
// Each check is available as a free function (NoneMissing, IsShape, ...) and
// as a value implementing Check, which is what decorators and contracts use.
package checks

import (
	"fmt"
	"sort"

	"github.com/canonica-labs/engarde/pkg/frame"
)

// Check names, as used in contracts, logs and metrics.
const (
	NameNoneMissing = "none_missing"
	NameIsShape     = "is_shape"
	NameUniqueIndex = "unique_index"
	NameIsMonotonic = "is_monotonic"
	NameWithinSet   = "within_set"
	NameWithinRange = "within_range"
	NameWithinNStd  = "within_n_std"
	NameHasDTypes   = "has_dtypes"
	NameVerify      = "verify"
	NameVerifyAll   = "verify_all"
	NameVerifyAny   = "verify_any"
)

// Names returns every built-in check name.
func Names() []string {
	return []string{
		NameNoneMissing, NameIsShape, NameUniqueIndex, NameIsMonotonic,
		NameWithinSet, NameWithinRange, NameWithinNStd, NameHasDTypes,
		NameVerify, NameVerifyAll, NameVerifyAny,
	}
}

// Check is a pure assertion over a table.
type Check interface {
	// Name returns the check's name.
	Name() string

	// Evaluate returns t unchanged when the check passes, or a nil table and
	// an *AssertionError when it fails.
	Evaluate(t *frame.Table) (*frame.Table, error)
}

type funcCheck struct {
	name string
	fn   func(t *frame.Table) error
}

// Func adapts a plain function to Check. A non-nil error from fn that is not
// already an AssertionError is wrapped in one.
func Func(name string, fn func(t *frame.Table) error) Check {
	return funcCheck{name: name, fn: fn}
}

func (c funcCheck) Name() string { return c.name }

func (c funcCheck) Evaluate(t *frame.Table) (*frame.Table, error) {
	if err := requireTable(c.name, t); err != nil {
		return nil, err
	}
	if err := c.fn(t); err != nil {
		if IsAssertion(err) {
			return nil, err
		}
		return nil, &AssertionError{Check: c.name, Kind: Structural, Message: err.Error()}
	}
	return t, nil
}

type suite []Check

// All combines checks into one that evaluates them in order and stops at
// the first failure.
func All(checks ...Check) Check {
	return suite(checks)
}

func (s suite) Name() string { return "all" }

func (s suite) Evaluate(t *frame.Table) (*frame.Table, error) {
	for _, c := range s {
		if _, err := c.Evaluate(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func requireTable(check string, t *frame.Table) error {
	if t == nil {
		return structural(check, "table is nil", "a table", "nil")
	}
	return nil
}

// resolveColumns returns the requested columns, or every column when none
// are requested. A column absent from the table is a structural failure.
func resolveColumns(check string, t *frame.Table, columns []string) ([]string, error) {
	if len(columns) == 0 {
		return t.Columns(), nil
	}
	var missing []string
	for _, name := range columns {
		if !t.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, structural(check,
			fmt.Sprintf("column(s) not found: %v", missing),
			fmt.Sprintf("columns %v", columns),
			fmt.Sprintf("columns %v", t.Columns()))
	}
	return columns, nil
}

// orderedKeys returns the keys of a column-keyed map in table column order.
// Keys that are not table columns are returned separately, sorted.
func orderedKeys[V any](t *frame.Table, items map[string]V) (present, absent []string) {
	for _, name := range t.Columns() {
		if _, ok := items[name]; ok {
			present = append(present, name)
		}
	}
	for name := range items {
		if !t.Has(name) {
			absent = append(absent, name)
		}
	}
	sort.Strings(absent)
	return present, absent
}

func columnsNotFound(check string, t *frame.Table, absent []string) error {
	return structural(check,
		fmt.Sprintf("column(s) not found: %v", absent),
		fmt.Sprintf("columns %v", absent),
		fmt.Sprintf("columns %v", t.Columns()))
}
