package checks

import (
	"math"
	"strings"
	"testing"

	"github.com/canonica-labs/engarde/pkg/frame"
)

func mustTable(t *testing.T, index []interface{}, cols ...frame.Column) *frame.Table {
	t.Helper()
	tbl, err := frame.New(index, cols...)
	if err != nil {
		t.Fatalf("failed to build table: %v", err)
	}
	return tbl
}

func complete(t *testing.T) *frame.Table {
	return mustTable(t, nil,
		frame.Column{Name: "a", Values: []interface{}{1, 2, 3, 4}},
		frame.Column{Name: "b", Values: []interface{}{1.0, 2.0, 3.0, 4.0}},
		frame.Column{Name: "c", Values: []interface{}{"w", "x", "y", "z"}},
	)
}

func assertion(t *testing.T, err error) *AssertionError {
	t.Helper()
	if err == nil {
		t.Fatal("expected assertion error, got nil")
	}
	ae, ok := AsAssertion(err)
	if !ok {
		t.Fatalf("expected *AssertionError, got %T: %v", err, err)
	}
	return ae
}

// TestNoneMissing_PassesCompleteTable verifies the table is returned unchanged.
// Green-Flag: A table without missing cells passes and comes back as-is.
func TestNoneMissing_PassesCompleteTable(t *testing.T) {
	tbl := complete(t)

	got, err := NoneMissing(tbl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != tbl {
		t.Fatal("expected the same table pointer back")
	}
}

// TestNoneMissing_ReportsExactLocation inserts one missing cell at every
// position and checks the report names exactly that cell.
// Red-Flag: Every missing cell must be reported at its exact location.
func TestNoneMissing_ReportsExactLocation(t *testing.T) {
	index := []interface{}{"r0", "r1", "r2"}
	for col := 0; col < 2; col++ {
		for row := 0; row < 3; row++ {
			values := [][]interface{}{{1.0, 2.0, 3.0}, {4.0, 5.0, 6.0}}
			if col == 0 {
				values[col][row] = math.NaN()
			} else {
				values[col][row] = nil
			}
			tbl := mustTable(t, index,
				frame.Column{Name: "p", DType: frame.Float64, Values: values[0]},
				frame.Column{Name: "q", DType: frame.Float64, Values: values[1]},
			)

			_, err := NoneMissing(tbl)
			ae := assertion(t, err)

			want := frame.Location{Row: index[row], Column: []string{"p", "q"}[col]}
			if ae.Kind != CellLevel {
				t.Errorf("expected cell-level failure, got %v", ae.Kind)
			}
			if len(ae.Locations) != 1 || ae.Locations[0] != want {
				t.Errorf("expected [%v], got %v", want, ae.Locations)
			}
			if !strings.Contains(ae.Error(), want.String()) {
				t.Errorf("expected message to embed %v, got %q", want, ae.Error())
			}
		}
	}
}

// TestNoneMissing_Subset verifies that only the requested columns are inspected.
func TestNoneMissing_Subset(t *testing.T) {
	tbl := mustTable(t, nil,
		frame.Column{Name: "a", Values: []interface{}{1, 2}},
		frame.Column{Name: "b", Values: []interface{}{nil, 2}},
	)

	if _, err := NoneMissing(tbl, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NoneMissing(tbl, "b"); err == nil {
		t.Fatal("expected failure for column b")
	}
}

// TestNoneMissing_UnknownColumn proves absent columns are rejected.
// Red-Flag: Referencing a column the table lacks must fail, not pass silently.
func TestNoneMissing_UnknownColumn(t *testing.T) {
	_, err := NoneMissing(complete(t), "nope")
	ae := assertion(t, err)
	if ae.Kind != Structural {
		t.Errorf("expected structural failure, got %v", ae.Kind)
	}
}

func TestIsShape(t *testing.T) {
	tbl := complete(t)

	tests := []struct {
		name  string
		shape Shape
		pass  bool
	}{
		{"exact", Shape{Rows: 4, Cols: 3}, true},
		{"any rows", Shape{Rows: AnySize, Cols: 3}, true},
		{"any cols", Shape{Rows: 4, Cols: AnySize}, true},
		{"any both", Shape{Rows: AnySize, Cols: AnySize}, true},
		{"wrong rows", Shape{Rows: 5, Cols: 3}, false},
		{"wrong cols", Shape{Rows: AnySize, Cols: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := IsShape(tbl, tt.shape)
			if tt.pass && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.pass {
				ae := assertion(t, err)
				if ae.Expected != tt.shape.String() || ae.Observed != "(4, 3)" {
					t.Errorf("unexpected payload: expected=%q observed=%q", ae.Expected, ae.Observed)
				}
			}
		})
	}
}

// TestShapeOf verifies an unset axis is a wildcard rather than zero.
// Green-Flag: ShapeOf(nil, &cols) matches any row count.
// Red-Flag: The zero Shape still demands an empty table.
func TestShapeOf(t *testing.T) {
	tbl := complete(t)
	cols, rows := 3, 4

	for name, shape := range map[string]Shape{
		"cols only": ShapeOf(nil, &cols),
		"rows only": ShapeOf(&rows, nil),
		"neither":   ShapeOf(nil, nil),
		"both":      ShapeOf(&rows, &cols),
	} {
		if _, err := IsShape(tbl, shape); err != nil {
			t.Errorf("%s: unexpected error: %v", name, err)
		}
	}
	if got := ShapeOf(nil, &cols).String(); got != "(any, 3)" {
		t.Errorf("unexpected rendering %q", got)
	}
	if _, err := IsShape(tbl, Shape{Cols: 3}); err == nil {
		t.Error("expected the zero row count to be compared")
	}
}

func TestUniqueIndex(t *testing.T) {
	if _, err := UniqueIndex(complete(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dup := mustTable(t, []interface{}{"a", "b", "a"},
		frame.Column{Name: "v", Values: []interface{}{1, 2, 3}},
	)
	ae := assertion(t, func() error { _, err := UniqueIndex(dup); return err }())
	if !strings.Contains(ae.Observed, "a") {
		t.Errorf("expected duplicated label in payload, got %q", ae.Observed)
	}

	// 1 and 1.0 are the same label
	mixed := mustTable(t, []interface{}{1, 1.0},
		frame.Column{Name: "v", Values: []interface{}{1, 2}},
	)
	if _, err := UniqueIndex(mixed); err == nil {
		t.Error("expected numerically equal labels to count as duplicates")
	}
}

func TestHasDTypes(t *testing.T) {
	tbl := complete(t)

	if _, err := HasDTypes(tbl, map[string]frame.DType{"a": frame.Int64, "c": frame.String}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := HasDTypes(tbl, map[string]frame.DType{"b": frame.Int64})
	ae := assertion(t, err)
	if ae.Expected != "b=int64" || ae.Observed != "b=float64" {
		t.Errorf("unexpected payload: expected=%q observed=%q", ae.Expected, ae.Observed)
	}

	_, err = HasDTypes(tbl, map[string]frame.DType{"zz": frame.Int64})
	assertion(t, err)
}

func TestIsMonotonic(t *testing.T) {
	tbl := mustTable(t, []interface{}{0, 1, 2, 3},
		frame.Column{Name: "up", Values: []interface{}{1, 2, 2, 3}},
		frame.Column{Name: "strict", Values: []interface{}{1, 2, 3, 4}},
		frame.Column{Name: "down", Values: []interface{}{4, 3, 3, 1}},
		frame.Column{Name: "zigzag", Values: []interface{}{1, 3, 2, 4}},
		frame.Column{Name: "gap", Values: []interface{}{1.0, nil, 3.0, 4.0}},
	)

	tests := []struct {
		name    string
		columns []string
		dir     Direction
		strict  bool
		pass    bool
	}{
		{"non-decreasing", []string{"up"}, Increasing, false, true},
		{"equal neighbours strict", []string{"up"}, Increasing, true, false},
		{"strictly increasing", []string{"strict"}, Increasing, true, true},
		{"non-increasing", []string{"down"}, Decreasing, false, true},
		{"decreasing not increasing", []string{"down"}, Increasing, false, false},
		{"either accepts down", []string{"down"}, EitherDirection, false, true},
		{"either accepts up", []string{"up"}, EitherDirection, false, true},
		{"either rejects zigzag", []string{"zigzag"}, EitherDirection, false, false},
		{"missing breaks", []string{"gap"}, Increasing, false, false},
		{"index", nil, Increasing, true, true},
		{"index not decreasing", nil, Decreasing, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := IsMonotonic(tbl, tt.columns, tt.dir, tt.strict)
			if tt.pass && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.pass {
				assertion(t, err)
			}
		})
	}
}

// TestIsMonotonic_ShortCircuits verifies the first failing column is reported.
func TestIsMonotonic_ShortCircuits(t *testing.T) {
	tbl := mustTable(t, nil,
		frame.Column{Name: "ok", Values: []interface{}{1, 2}},
		frame.Column{Name: "bad1", Values: []interface{}{2, 1}},
		frame.Column{Name: "bad2", Values: []interface{}{3, 1}},
	)

	_, err := IsMonotonic(tbl, []string{"ok", "bad1", "bad2"}, Increasing, false)
	ae := assertion(t, err)
	if !strings.Contains(ae.Message, "bad1") || strings.Contains(ae.Message, "bad2") {
		t.Errorf("expected only bad1 to be reported, got %q", ae.Message)
	}
}

// TestChecks_Idempotent runs every check twice on the same table.
// Green-Flag: Checks have no side effects, so outcomes repeat exactly.
func TestChecks_Idempotent(t *testing.T) {
	tbl := mustTable(t, []interface{}{"x", "y", "x"},
		frame.Column{Name: "n", Values: []interface{}{1, nil, 30}},
	)
	before := tbl.Index()

	all := []Check{
		NoneMissingCheck{},
		ShapeCheck{Shape: Shape{Rows: 3, Cols: 1}},
		UniqueIndexCheck{},
		MonotonicCheck{Columns: []string{"n"}, Direction: Increasing},
		SetCheck{Items: map[string][]interface{}{"n": {1, 30}}},
		RangeCheck{Items: map[string]Range{"n": {Lower: 0, Upper: 10}}},
		NStdCheck{N: 1},
		DTypeCheck{Items: map[string]frame.DType{"n": frame.Int64}},
	}
	for _, c := range all {
		_, err1 := c.Evaluate(tbl)
		_, err2 := c.Evaluate(tbl)
		if (err1 == nil) != (err2 == nil) {
			t.Errorf("%s: outcome changed between runs: %v vs %v", c.Name(), err1, err2)
		}
		if err1 != nil && err1.Error() != err2.Error() {
			t.Errorf("%s: message changed between runs", c.Name())
		}
	}

	after := tbl.Index()
	for i := range before {
		if before[i] != after[i] {
			t.Fatal("table index was modified")
		}
	}
	col, _ := tbl.Column("n")
	if col.Values[0] != int64(1) || col.Values[1] != nil || col.Values[2] != int64(30) {
		t.Fatalf("table values were modified: %v", col.Values)
	}
}

// TestChecks_NilTable proves that a nil table fails every check.
// Red-Flag: A nil table must never pass.
func TestChecks_NilTable(t *testing.T) {
	for _, c := range []Check{NoneMissingCheck{}, ShapeCheck{}, UniqueIndexCheck{}, MonotonicCheck{}, DTypeCheck{}} {
		if _, err := c.Evaluate(nil); err == nil {
			t.Errorf("%s: expected failure for nil table", c.Name())
		}
	}
}

func TestAll_StopsAtFirstFailure(t *testing.T) {
	tbl := complete(t)
	var ran []string
	record := func(name string, fail bool) Check {
		return Func(name, func(*frame.Table) error {
			ran = append(ran, name)
			if fail {
				return errFake
			}
			return nil
		})
	}

	_, err := All(record("first", false), record("second", true), record("third", false)).Evaluate(tbl)
	ae := assertion(t, err)
	if ae.Check != "second" {
		t.Errorf("expected failure from second, got %q", ae.Check)
	}
	if strings.Join(ran, ",") != "first,second" {
		t.Errorf("unexpected evaluation order: %v", ran)
	}
}

type fakeError struct{}

func (fakeError) Error() string { return "fake failure" }

var errFake = fakeError{}
