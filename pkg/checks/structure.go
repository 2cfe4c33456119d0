package checks

import (
	"fmt"
	"sort"
	"strings"

	"github.com/canonica-labs/engarde/pkg/frame"
)

// AnySize is a Shape dimension that matches any count.
const AnySize = -1

// Shape is an expected (rows, cols) pair. Both axes are always compared:
// the zero value demands an empty table, so set an ignored axis to AnySize
// or build the shape with ShapeOf.
type Shape struct {
	Rows int
	Cols int
}

// ShapeOf builds a Shape in which a nil axis matches any count.
func ShapeOf(rows, cols *int) Shape {
	s := Shape{Rows: AnySize, Cols: AnySize}
	if rows != nil {
		s.Rows = *rows
	}
	if cols != nil {
		s.Cols = *cols
	}
	return s
}

func (s Shape) String() string {
	return fmt.Sprintf("(%s, %s)", dim(s.Rows), dim(s.Cols))
}

func dim(n int) string {
	if n == AnySize {
		return "any"
	}
	return fmt.Sprintf("%d", n)
}

// NoneMissingCheck asserts that no cell of the listed columns is missing.
// An empty Columns list means every column.
type NoneMissingCheck struct {
	Columns []string
}

func (c NoneMissingCheck) Name() string { return NameNoneMissing }

func (c NoneMissingCheck) Evaluate(t *frame.Table) (*frame.Table, error) {
	if err := requireTable(NameNoneMissing, t); err != nil {
		return nil, err
	}
	cols, err := resolveColumns(NameNoneMissing, t, c.Columns)
	if err != nil {
		return nil, err
	}
	mask, err := t.MissingMask(cols...)
	if err != nil {
		return nil, err
	}
	if bad := frame.BadLocations(t, cols, mask); len(bad) > 0 {
		return nil, cellLevel(NameNoneMissing, fmt.Sprintf("%d missing value(s)", len(bad)), bad)
	}
	return t, nil
}

// NoneMissing asserts that no value is missing in the given columns, or in
// any column when none are given.
func NoneMissing(t *frame.Table, columns ...string) (*frame.Table, error) {
	return NoneMissingCheck{Columns: columns}.Evaluate(t)
}

// ShapeCheck asserts the table's row and column counts.
type ShapeCheck struct {
	Shape Shape
}

func (c ShapeCheck) Name() string { return NameIsShape }

func (c ShapeCheck) Evaluate(t *frame.Table) (*frame.Table, error) {
	if err := requireTable(NameIsShape, t); err != nil {
		return nil, err
	}
	rows, cols := t.Shape()
	rowsOK := c.Shape.Rows == AnySize || c.Shape.Rows == rows
	colsOK := c.Shape.Cols == AnySize || c.Shape.Cols == cols
	if !rowsOK || !colsOK {
		return nil, structural(NameIsShape, "unexpected shape",
			c.Shape.String(), Shape{Rows: rows, Cols: cols}.String())
	}
	return t, nil
}

// IsShape asserts that the table has the given shape.
func IsShape(t *frame.Table, shape Shape) (*frame.Table, error) {
	return ShapeCheck{Shape: shape}.Evaluate(t)
}

// UniqueIndexCheck asserts that no two rows share a label.
type UniqueIndexCheck struct{}

func (c UniqueIndexCheck) Name() string { return NameUniqueIndex }

func (c UniqueIndexCheck) Evaluate(t *frame.Table) (*frame.Table, error) {
	if err := requireTable(NameUniqueIndex, t); err != nil {
		return nil, err
	}
	seen := make(map[interface{}]int)
	var dups []string
	for _, label := range t.Index() {
		k := frame.Key(label)
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, fmt.Sprintf("%v", label))
		}
	}
	if len(dups) > 0 {
		return nil, structural(NameUniqueIndex, "index has duplicate labels",
			"unique row labels", "duplicated: "+strings.Join(dups, ", "))
	}
	return t, nil
}

// UniqueIndex asserts that the row index has no duplicate labels.
func UniqueIndex(t *frame.Table) (*frame.Table, error) {
	return UniqueIndexCheck{}.Evaluate(t)
}

// DTypeCheck asserts declared column dtypes.
type DTypeCheck struct {
	Items map[string]frame.DType
}

func (c DTypeCheck) Name() string { return NameHasDTypes }

func (c DTypeCheck) Evaluate(t *frame.Table) (*frame.Table, error) {
	if err := requireTable(NameHasDTypes, t); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(c.Items))
	for name := range c.Items {
		names = append(names, name)
	}
	sort.Strings(names)

	actual := t.DTypes()
	var expected, observed []string
	for _, name := range names {
		want := c.Items[name]
		got, ok := actual[name]
		if !ok {
			expected = append(expected, fmt.Sprintf("%s=%s", name, want))
			observed = append(observed, fmt.Sprintf("%s=<missing>", name))
			continue
		}
		if got != want {
			expected = append(expected, fmt.Sprintf("%s=%s", name, want))
			observed = append(observed, fmt.Sprintf("%s=%s", name, got))
		}
	}
	if len(expected) > 0 {
		return nil, structural(NameHasDTypes, "dtype mismatch",
			strings.Join(expected, ", "), strings.Join(observed, ", "))
	}
	return t, nil
}

// HasDTypes asserts that each named column's declared dtype matches exactly.
func HasDTypes(t *frame.Table, items map[string]frame.DType) (*frame.Table, error) {
	return DTypeCheck{Items: items}.Evaluate(t)
}
