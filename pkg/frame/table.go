// Package frame provides the in-memory labeled table inspected by checks.
//
// A Table is an ordered sequence of named columns aligned on an ordered row
// index. Row labels are not required to be unique. Tables are immutable once
// built: accessors return copies, so a table handed to a check comes back
// exactly as it went in.
package frame

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Column is a named, typed sequence of values aligned with a table index.
type Column struct {
	// Name is the column label. Must be unique within a table.
	Name string

	// DType is the declared element type. Inferred from the values when empty.
	DType DType

	// Values holds one value per row. nil and NaN are missing values.
	Values []interface{}
}

// Len returns the number of values in the column.
func (c Column) Len() int {
	return len(c.Values)
}

// Mask evaluates pred against every value and returns the boolean mask.
func (c Column) Mask(pred func(v interface{}) bool) []bool {
	mask := make([]bool, len(c.Values))
	for i, v := range c.Values {
		mask[i] = pred(v)
	}
	return mask
}

// Floats returns the non-missing numeric values of the column. Values that
// are missing or not numeric are left out.
func (c Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if f, ok := ToFloat(v); ok {
			out = append(out, f)
		}
	}
	return out
}

// Table is a two-dimensional labeled table.
type Table struct {
	index   []interface{}
	columns []Column
	lookup  map[string]int
}

// New builds a table from an index and columns. A nil index produces a
// range index 0..n-1. Every column must have as many values as the index,
// column names must be unique and values must conform to a declared dtype.
func New(index []interface{}, columns ...Column) (*Table, error) {
	rows := len(index)
	if index == nil {
		rows = 0
		if len(columns) > 0 {
			rows = len(columns[0].Values)
		}
		index = RangeIndex(rows)
	}

	t := &Table{
		index:   normalizeAll(index),
		columns: make([]Column, 0, len(columns)),
		lookup:  make(map[string]int, len(columns)),
	}

	for _, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("frame: column name is required")
		}
		if _, dup := t.lookup[col.Name]; dup {
			return nil, fmt.Errorf("frame: duplicate column %q", col.Name)
		}
		if len(col.Values) != rows {
			return nil, fmt.Errorf("frame: column %q has %d values, index has %d", col.Name, len(col.Values), rows)
		}

		values := normalizeAll(col.Values)
		dtype := col.DType
		if dtype == "" {
			dtype = inferDType(values)
		}
		if !dtype.IsValid() {
			return nil, fmt.Errorf("frame: column %q has unknown dtype %q", col.Name, dtype)
		}
		for i, v := range values {
			if IsMissing(v) {
				continue
			}
			if !conforms(dtype, v) {
				return nil, fmt.Errorf("frame: column %q row %d: %T value does not conform to dtype %s", col.Name, i, v, dtype)
			}
			if dtype == Float64 {
				if n, ok := v.(int64); ok {
					values[i] = float64(n)
				}
			}
		}

		t.lookup[col.Name] = len(t.columns)
		t.columns = append(t.columns, Column{Name: col.Name, DType: dtype, Values: values})
	}

	return t, nil
}

// FromRows builds a table with a range index from row-major data, the shape
// database drivers produce. Dtypes are inferred per column.
func FromRows(columns []string, rows [][]interface{}) (*Table, error) {
	cols := make([]Column, len(columns))
	for c, name := range columns {
		cols[c] = Column{Name: name, Values: make([]interface{}, len(rows))}
	}
	for r, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("frame: row %d has %d values, expected %d", r, len(row), len(columns))
		}
		for c, v := range row {
			cols[c].Values[r] = v
		}
	}
	return New(RangeIndex(len(rows)), cols...)
}

// RangeIndex returns the labels 0..n-1.
func RangeIndex(n int) []interface{} {
	index := make([]interface{}, n)
	for i := range index {
		index[i] = int64(i)
	}
	return index
}

func normalizeAll(values []interface{}) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = Normalize(v)
	}
	return out
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return len(t.index)
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	return len(t.columns)
}

// Shape returns the row and column counts.
func (t *Table) Shape() (rows, cols int) {
	return t.NumRows(), t.NumCols()
}

// Index returns a copy of the row labels.
func (t *Table) Index() []interface{} {
	out := make([]interface{}, len(t.index))
	copy(out, t.index)
	return out
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.lookup[name]
	return ok
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.lookup[name]
	if !ok {
		return Column{}, false
	}
	src := t.columns[i]
	values := make([]interface{}, len(src.Values))
	copy(values, src.Values)
	return Column{Name: src.Name, DType: src.DType, Values: values}, true
}

// DTypes returns the declared dtype of every column.
func (t *Table) DTypes() map[string]DType {
	out := make(map[string]DType, len(t.columns))
	for _, c := range t.columns {
		out[c.Name] = c.DType
	}
	return out
}

// NumericColumns returns the names of int64 and float64 columns in order.
func (t *Table) NumericColumns() []string {
	var names []string
	for _, c := range t.columns {
		if c.DType.IsNumeric() {
			names = append(names, c.Name)
		}
	}
	return names
}

// SetIndex returns a new table whose index is the named column's values.
// The column is removed from the result.
func (t *Table) SetIndex(name string) (*Table, error) {
	i, ok := t.lookup[name]
	if !ok {
		return nil, fmt.Errorf("frame: column %q not found", name)
	}
	rest := make([]Column, 0, len(t.columns)-1)
	for j, c := range t.columns {
		if j != i {
			rest = append(rest, c)
		}
	}
	return New(t.columns[i].Values, rest...)
}

// Select returns a new table holding only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		c, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("frame: column %q not found", name)
		}
		cols = append(cols, c)
	}
	return New(t.Index(), cols...)
}

// MissingMask returns a column-major mask of missing cells for the named
// columns (all columns when names is empty).
func (t *Table) MissingMask(names ...string) ([][]bool, error) {
	if len(names) == 0 {
		names = t.Columns()
	}
	mask := make([][]bool, len(names))
	for i, name := range names {
		c, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("frame: column %q not found", name)
		}
		mask[i] = c.Mask(IsMissing)
	}
	return mask, nil
}

// MeanStd returns the mean and sample standard deviation (n-1 denominator)
// of the column's non-missing numeric values. std is NaN with fewer than two values.
func (c Column) MeanStd() (mean, std float64) {
	return stat.MeanStdDev(c.Floats(), nil)
}
