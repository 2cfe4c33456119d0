package checks

import (
	"fmt"

	"github.com/canonica-labs/engarde/pkg/frame"
)

// Direction selects the monotonic relation to assert.
type Direction int

const (
	// EitherDirection accepts non-decreasing or non-increasing sequences.
	EitherDirection Direction = iota
	Increasing
	Decreasing
)

func (d Direction) String() string {
	switch d {
	case Increasing:
		return "increasing"
	case Decreasing:
		return "decreasing"
	}
	return "monotonic"
}

// ParseDirection parses "increasing", "decreasing" or "either" (the default
// for an empty string).
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "either", "any":
		return EitherDirection, nil
	case "increasing", "inc":
		return Increasing, nil
	case "decreasing", "dec":
		return Decreasing, nil
	}
	return EitherDirection, fmt.Errorf("unknown monotonic direction %q", s)
}

const indexTarget = "<index>"

// MonotonicCheck asserts that each listed column, or the index when Columns
// is empty, is monotonic. Strict forbids equal neighbours. Evaluation stops
// at the first failing column.
type MonotonicCheck struct {
	Columns   []string
	Direction Direction
	Strict    bool
}

func (c MonotonicCheck) Name() string { return NameIsMonotonic }

func (c MonotonicCheck) Evaluate(t *frame.Table) (*frame.Table, error) {
	if err := requireTable(NameIsMonotonic, t); err != nil {
		return nil, err
	}

	index := t.Index()
	if len(c.Columns) == 0 {
		if err := c.check(indexTarget, index, index); err != nil {
			return nil, err
		}
		return t, nil
	}

	cols, err := resolveColumns(NameIsMonotonic, t, c.Columns)
	if err != nil {
		return nil, err
	}
	for _, name := range cols {
		col, _ := t.Column(name)
		if err := c.check(name, col.Values, index); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (c MonotonicCheck) check(target string, values, index []interface{}) error {
	var pos int
	switch c.Direction {
	case Increasing, Decreasing:
		pos = firstBreak(values, c.Direction, c.Strict)
	default:
		inc := firstBreak(values, Increasing, c.Strict)
		if inc < 0 {
			return nil
		}
		if firstBreak(values, Decreasing, c.Strict) < 0 {
			return nil
		}
		pos = inc
	}
	if pos < 0 {
		return nil
	}

	want := c.Direction.String()
	if c.Strict {
		want = "strictly " + want
	}
	return structural(NameIsMonotonic,
		fmt.Sprintf("%s is not %s", target, want),
		fmt.Sprintf("%s %s", target, want),
		fmt.Sprintf("row %v (%v) follows row %v (%v)", index[pos], values[pos], index[pos-1], values[pos-1]))
}

// firstBreak returns the first position whose value breaks the relation
// with its predecessor, or -1. Missing or unorderable values break it.
func firstBreak(values []interface{}, dir Direction, strict bool) int {
	for i := 1; i < len(values); i++ {
		cmp, err := frame.Compare(values[i-1], values[i])
		if err != nil {
			return i
		}
		if cmp == 0 {
			if strict {
				return i
			}
			continue
		}
		if (dir == Increasing && cmp > 0) || (dir == Decreasing && cmp < 0) {
			return i
		}
	}
	return -1
}

// IsMonotonic asserts monotonicity of the given columns, or of the index
// when columns is empty.
func IsMonotonic(t *frame.Table, columns []string, dir Direction, strict bool) (*frame.Table, error) {
	return MonotonicCheck{Columns: columns, Direction: dir, Strict: strict}.Evaluate(t)
}
