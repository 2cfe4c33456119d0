// Package decorators wraps table-producing transforms with checks.
//
// A decorated transform runs the original transform, then evaluates the check
// against its result. On success the result is returned unchanged; on failure
// the result is discarded and the check's error is returned. The transform has
// already run by then, so any side effect it performed is not rolled back.
//
//	load := decorators.Compose(loadOrders,
//		decorators.NoneMissing[string]("order_id"),
//		decorators.WithinRange[string](map[string]checks.Range{"amount": {Lower: 0, Upper: 1e6}}),
//	)
//	orders, err := load("orders.csv")
package decorators

import (
	"github.com/canonica-labs/engarde/pkg/checks"
	"github.com/canonica-labs/engarde/pkg/frame"
)

// Transform produces a table from an input.
type Transform[In any] func(In) (*frame.Table, error)

// Decorator wraps a transform with a post-condition.
type Decorator[In any] func(Transform[In]) Transform[In]

// Decorate returns a decorator that evaluates check against the transform's
// result. A transform error is returned as-is and the check does not run.
func Decorate[In any](check checks.Check) Decorator[In] {
	return func(fn Transform[In]) Transform[In] {
		return func(in In) (*frame.Table, error) {
			result, err := fn(in)
			if err != nil {
				return nil, err
			}
			if _, err := check.Evaluate(result); err != nil {
				return nil, err
			}
			return result, nil
		}
	}
}

// Compose applies decorators to fn. Checks run in the order the decorators
// are listed, and the first failure wins.
func Compose[In any](fn Transform[In], decorators ...Decorator[In]) Transform[In] {
	for _, d := range decorators {
		fn = d(fn)
	}
	return fn
}

// NoneMissing asserts that the result has no missing values in columns (all
// columns when none are given).
func NoneMissing[In any](columns ...string) Decorator[In] {
	return Decorate[In](checks.NoneMissingCheck{Columns: columns})
}

// IsShape asserts the result's shape. Both axes are compared; use
// checks.ShapeOf or checks.AnySize to leave one open.
func IsShape[In any](shape checks.Shape) Decorator[In] {
	return Decorate[In](checks.ShapeCheck{Shape: shape})
}

// UniqueIndex asserts that the result's row labels are unique.
func UniqueIndex[In any]() Decorator[In] {
	return Decorate[In](checks.UniqueIndexCheck{})
}

// IsMonotonic asserts monotonicity of columns, or of the index when none are given.
func IsMonotonic[In any](columns []string, dir checks.Direction, strict bool) Decorator[In] {
	return Decorate[In](checks.MonotonicCheck{Columns: columns, Direction: dir, Strict: strict})
}

// WithinSet asserts set membership per column.
func WithinSet[In any](items map[string][]interface{}) Decorator[In] {
	return Decorate[In](checks.SetCheck{Items: items})
}

// WithinRange asserts inclusive ranges per column.
func WithinRange[In any](items map[string]checks.Range) Decorator[In] {
	return Decorate[In](checks.RangeCheck{Items: items})
}

// WithinRangeAll asserts one inclusive range over every numeric column.
func WithinRangeAll[In any](r checks.Range) Decorator[In] {
	return Decorate[In](checks.RangeCheck{All: &r})
}

// WithinNStd asserts that values are within n standard deviations of their
// column mean.
func WithinNStd[In any](n float64, columns ...string) Decorator[In] {
	return Decorate[In](checks.NStdCheck{N: n, Columns: columns})
}

// HasDTypes asserts declared column dtypes.
func HasDTypes[In any](items map[string]frame.DType) Decorator[In] {
	return Decorate[In](checks.DTypeCheck{Items: items})
}

// Verify asserts that fn(result, args...) is true.
func Verify[In any](fn checks.Predicate, args ...interface{}) Decorator[In] {
	return Decorate[In](checks.VerifyCheck{Predicate: fn, Args: args})
}

// VerifyAll asserts that every element of fn(result, args...) is true.
func VerifyAll[In any](fn checks.MaskPredicate, args ...interface{}) Decorator[In] {
	return Decorate[In](checks.VerifyAllCheck{Predicate: fn, Args: args})
}

// VerifyAny asserts that some element of fn(result, args...) is true.
func VerifyAny[In any](fn checks.MaskPredicate, args ...interface{}) Decorator[In] {
	return Decorate[In](checks.VerifyAnyCheck{Predicate: fn, Args: args})
}
