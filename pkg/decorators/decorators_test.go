package decorators

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonica-labs/engarde/pkg/checks"
	"github.com/canonica-labs/engarde/pkg/frame"
)

// scale builds a one-column table whose values are n*[1 2 3].
func scale(n int) (*frame.Table, error) {
	return frame.New(nil, frame.Column{Name: "c", Values: []interface{}{n, 2 * n, 3 * n}})
}

func TestDecorate_ReturnsIdenticalResult(t *testing.T) {
	var produced *frame.Table
	fn := func(n int) (*frame.Table, error) {
		tbl, err := scale(n)
		produced = tbl
		return tbl, err
	}

	wrapped := Compose(fn, NoneMissing[int](), IsShape[int](checks.Shape{Rows: 3, Cols: 1}))
	got, err := wrapped(2)
	require.NoError(t, err)
	assert.Same(t, produced, got)
}

func TestIsShape_OpenAxis(t *testing.T) {
	cols := 1
	wrapped := IsShape[int](checks.ShapeOf(nil, &cols))(scale)

	_, err := wrapped(5)
	require.NoError(t, err)

	cols = 2
	_, err = IsShape[int](checks.ShapeOf(nil, &cols))(scale)(5)
	assert.Error(t, err)
}

// TestDecorate_EquivalentToDirectCheck verifies that a decorated transform
// fails exactly when the check fails on the undecorated result.
func TestDecorate_EquivalentToDirectCheck(t *testing.T) {
	all := []checks.Check{
		checks.NoneMissingCheck{},
		checks.ShapeCheck{Shape: checks.Shape{Rows: 3, Cols: checks.AnySize}},
		checks.UniqueIndexCheck{},
		checks.MonotonicCheck{Columns: []string{"c"}, Direction: checks.Decreasing},
		checks.SetCheck{Items: map[string][]interface{}{"c": {1, 2, 3, 4, 6}}},
		checks.RangeCheck{Items: map[string]checks.Range{"c": {Lower: 0, Upper: 5}}},
		checks.NStdCheck{N: 1},
		checks.DTypeCheck{Items: map[string]frame.DType{"c": frame.Int64}},
		checks.VerifyAllCheck{Predicate: checks.ColumnCompare("c", checks.OpGt, 2)},
		checks.VerifyAnyCheck{Predicate: checks.ColumnCompare("c", checks.OpGt, 5)},
	}

	for _, c := range all {
		for _, n := range []int{-1, 0, 1, 2} {
			direct, _ := scale(n)
			_, wantErr := c.Evaluate(direct)

			got, gotErr := Decorate[int](c)(scale)(n)
			assert.Equal(t, wantErr == nil, gotErr == nil, "%s with n=%d", c.Name(), n)
			if wantErr != nil {
				assert.Nil(t, got)
				assert.Equal(t, wantErr.Error(), gotErr.Error())
			}
		}
	}
}

func TestDecorate_TransformErrorSkipsCheck(t *testing.T) {
	boom := errors.New("boom")
	checked := false
	spy := checks.Func("spy", func(*frame.Table) error {
		checked = true
		return nil
	})

	fn := Decorate[string](spy)(func(string) (*frame.Table, error) { return nil, boom })
	_, err := fn("x")

	assert.ErrorIs(t, err, boom)
	assert.False(t, checked)
}

// TestCompose_RunsChecksInOrder verifies decoration order and first-failure-wins.
func TestCompose_RunsChecksInOrder(t *testing.T) {
	var order []string
	step := func(name string, fail bool) Decorator[int] {
		return Decorate[int](checks.Func(name, func(*frame.Table) error {
			order = append(order, name)
			if fail {
				return errors.New(name + " failed")
			}
			return nil
		}))
	}

	_, err := Compose(scale, step("first", false), step("second", true), step("third", true))(1)
	require.Error(t, err)

	ae, ok := checks.AsAssertion(err)
	require.True(t, ok)
	assert.Equal(t, "second", ae.Check)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDecorators_Constructors(t *testing.T) {
	tbl, err := Compose(scale,
		UniqueIndex[int](),
		IsMonotonic[int](nil, checks.Increasing, true),
		WithinSet[int](map[string][]interface{}{"c": {1, 2, 3}}),
		WithinRange[int](map[string]checks.Range{"c": {Lower: 1, Upper: 3}}),
		WithinRangeAll[int](checks.Range{Lower: 0, Upper: 3}),
		WithinNStd[int](3),
		HasDTypes[int](map[string]frame.DType{"c": frame.Int64}),
		Verify[int](func(t *frame.Table, args ...interface{}) bool { return t.NumRows() == args[0].(int) }, 3),
		VerifyAll[int](checks.ColumnCompare("c", checks.OpGt, 0)),
		VerifyAny[int](checks.ColumnCompare("c", checks.OpEq, 3)),
	)(1)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.NumRows())

	_, err = WithinSet[int](map[string][]interface{}{"c": {1, 2, 3}})(scale)(2)
	require.Error(t, err)
	ae, ok := checks.AsAssertion(err)
	require.True(t, ok)
	assert.Equal(t, []frame.Location{{Row: int64(1), Column: "c"}, {Row: int64(2), Column: "c"}}, ae.Locations)
}
