package checks

import (
	"fmt"
	"math"

	"github.com/canonica-labs/engarde/pkg/frame"
)

// Range is an inclusive numeric interval.
type Range struct {
	Lower float64
	Upper float64
}

func (r Range) String() string {
	return fmt.Sprintf("[%v, %v]", r.Lower, r.Upper)
}

// Contains reports whether v lies in [Lower, Upper].
func (r Range) Contains(v float64) bool {
	return v >= r.Lower && v <= r.Upper
}

// SetCheck asserts that every value of each listed column is a member of
// that column's allowed set. A missing value is a member only when nil is
// in the set.
type SetCheck struct {
	Items map[string][]interface{}
}

func (c SetCheck) Name() string { return NameWithinSet }

func (c SetCheck) Evaluate(t *frame.Table) (*frame.Table, error) {
	if err := requireTable(NameWithinSet, t); err != nil {
		return nil, err
	}
	cols, absent := orderedKeys(t, c.Items)
	if len(absent) > 0 {
		return nil, columnsNotFound(NameWithinSet, t, absent)
	}

	mask := make([][]bool, len(cols))
	for i, name := range cols {
		allowed := make(map[interface{}]struct{}, len(c.Items[name]))
		for _, v := range c.Items[name] {
			allowed[frame.Key(v)] = struct{}{}
		}
		col, _ := t.Column(name)
		mask[i] = col.Mask(func(v interface{}) bool {
			_, ok := allowed[frame.Key(v)]
			return !ok
		})
	}

	if bad := frame.BadLocations(t, cols, mask); len(bad) > 0 {
		return nil, cellLevel(NameWithinSet, fmt.Sprintf("%d value(s) outside the allowed set", len(bad)), bad)
	}
	return t, nil
}

// WithinSet asserts that every value in each given column is a member of
// its allowed set.
func WithinSet(t *frame.Table, items map[string][]interface{}) (*frame.Table, error) {
	return SetCheck{Items: items}.Evaluate(t)
}

// RangeCheck asserts that values lie within inclusive bounds. Items maps
// columns to ranges; when All is set it applies to every numeric column
// instead. Missing cells are not checked.
type RangeCheck struct {
	Items map[string]Range
	All   *Range
}

func (c RangeCheck) Name() string { return NameWithinRange }

func (c RangeCheck) Evaluate(t *frame.Table) (*frame.Table, error) {
	if err := requireTable(NameWithinRange, t); err != nil {
		return nil, err
	}

	var (
		cols   []string
		ranges []Range
	)
	if c.All != nil {
		cols = t.NumericColumns()
		for range cols {
			ranges = append(ranges, *c.All)
		}
	} else {
		present, absent := orderedKeys(t, c.Items)
		if len(absent) > 0 {
			return nil, columnsNotFound(NameWithinRange, t, absent)
		}
		if err := requireNumeric(NameWithinRange, t, present); err != nil {
			return nil, err
		}
		cols = present
		for _, name := range cols {
			ranges = append(ranges, c.Items[name])
		}
	}

	mask := make([][]bool, len(cols))
	for i, name := range cols {
		r := ranges[i]
		col, _ := t.Column(name)
		mask[i] = col.Mask(func(v interface{}) bool {
			f, ok := frame.ToFloat(v)
			return ok && !r.Contains(f)
		})
	}

	if bad := frame.BadLocations(t, cols, mask); len(bad) > 0 {
		return nil, cellLevel(NameWithinRange, fmt.Sprintf("%d value(s) out of range", len(bad)), bad)
	}
	return t, nil
}

// WithinRange asserts that every value of each given column lies in its
// inclusive range.
func WithinRange(t *frame.Table, items map[string]Range) (*frame.Table, error) {
	return RangeCheck{Items: items}.Evaluate(t)
}

// WithinRangeAll applies one inclusive range to every numeric column.
func WithinRangeAll(t *frame.Table, r Range) (*frame.Table, error) {
	return RangeCheck{All: &r}.Evaluate(t)
}

// DefaultNStd is the standard deviation multiplier used when none is given.
const DefaultNStd = 3

// NStdCheck asserts that every value lies within N sample standard
// deviations of its column mean. Columns defaults to every numeric column.
// Missing cells are not checked, and a column with fewer than two values has
// no spread to test against.
type NStdCheck struct {
	N       float64
	Columns []string
}

func (c NStdCheck) Name() string { return NameWithinNStd }

func (c NStdCheck) Evaluate(t *frame.Table) (*frame.Table, error) {
	if err := requireTable(NameWithinNStd, t); err != nil {
		return nil, err
	}
	n := c.N
	if n <= 0 {
		n = DefaultNStd
	}

	cols := t.NumericColumns()
	if len(c.Columns) > 0 {
		var err error
		if cols, err = resolveColumns(NameWithinNStd, t, c.Columns); err != nil {
			return nil, err
		}
		if err := requireNumeric(NameWithinNStd, t, cols); err != nil {
			return nil, err
		}
	}

	mask := make([][]bool, len(cols))
	for i, name := range cols {
		col, _ := t.Column(name)
		if len(col.Floats()) < 2 {
			mask[i] = make([]bool, col.Len())
			continue
		}
		mean, std := col.MeanStd()
		if math.IsNaN(std) {
			mask[i] = make([]bool, col.Len())
			continue
		}
		limit := n * std
		mask[i] = col.Mask(func(v interface{}) bool {
			f, ok := frame.ToFloat(v)
			return ok && math.Abs(f-mean) > limit
		})
	}

	if bad := frame.BadLocations(t, cols, mask); len(bad) > 0 {
		return nil, cellLevel(NameWithinNStd, fmt.Sprintf("%d value(s) beyond %v standard deviations", len(bad), n), bad)
	}
	return t, nil
}

// WithinNStd asserts that every value is within n standard deviations of its
// column mean, for the given columns or every numeric column.
func WithinNStd(t *frame.Table, n float64, columns ...string) (*frame.Table, error) {
	return NStdCheck{N: n, Columns: columns}.Evaluate(t)
}

// requireNumeric fails when an explicitly named column is not numeric.
func requireNumeric(check string, t *frame.Table, columns []string) error {
	dtypes := t.DTypes()
	for _, name := range columns {
		if d := dtypes[name]; !d.IsNumeric() {
			return structural(check,
				fmt.Sprintf("column %q is not numeric", name),
				fmt.Sprintf("%s=int64 or float64", name),
				fmt.Sprintf("%s=%s", name, d))
		}
	}
	return nil
}
