package checks

import (
	"fmt"

	"github.com/canonica-labs/engarde/pkg/frame"
)

// Predicate is a user-supplied assertion over a whole table.
type Predicate func(t *frame.Table, args ...interface{}) bool

// MaskPredicate is a user-supplied assertion producing one result per element.
type MaskPredicate func(t *frame.Table, args ...interface{}) []bool

// VerifyCheck asserts that Predicate(t, Args...) is true.
type VerifyCheck struct {
	// Label names the predicate in failure messages. Optional.
	Label     string
	Predicate Predicate
	Args      []interface{}
}

func (c VerifyCheck) Name() string { return NameVerify }

func (c VerifyCheck) Evaluate(t *frame.Table) (*frame.Table, error) {
	if err := requireTable(NameVerify, t); err != nil {
		return nil, err
	}
	if c.Predicate == nil {
		return nil, structural(NameVerify, "predicate is nil", "", "")
	}
	if !c.Predicate(t, c.Args...) {
		return nil, structural(NameVerify, describe(c.Label, "predicate returned false"), "true", "false")
	}
	return t, nil
}

// VerifyAllCheck asserts that every element of Predicate(t, Args...) is true.
// An empty result passes.
type VerifyAllCheck struct {
	Label     string
	Predicate MaskPredicate
	Args      []interface{}
}

func (c VerifyAllCheck) Name() string { return NameVerifyAll }

func (c VerifyAllCheck) Evaluate(t *frame.Table) (*frame.Table, error) {
	if err := requireTable(NameVerifyAll, t); err != nil {
		return nil, err
	}
	if c.Predicate == nil {
		return nil, structural(NameVerifyAll, "predicate is nil", "", "")
	}
	result := c.Predicate(t, c.Args...)
	if falses := countFalse(result); falses > 0 {
		return nil, structural(NameVerifyAll, describe(c.Label, "not all elements are true"),
			fmt.Sprintf("%d of %d true", len(result), len(result)),
			fmt.Sprintf("%d of %d false", falses, len(result)))
	}
	return t, nil
}

// VerifyAnyCheck asserts that at least one element of Predicate(t, Args...)
// is true. An empty result fails.
type VerifyAnyCheck struct {
	Label     string
	Predicate MaskPredicate
	Args      []interface{}
}

func (c VerifyAnyCheck) Name() string { return NameVerifyAny }

func (c VerifyAnyCheck) Evaluate(t *frame.Table) (*frame.Table, error) {
	if err := requireTable(NameVerifyAny, t); err != nil {
		return nil, err
	}
	if c.Predicate == nil {
		return nil, structural(NameVerifyAny, "predicate is nil", "", "")
	}
	result := c.Predicate(t, c.Args...)
	if countFalse(result) == len(result) {
		return nil, structural(NameVerifyAny, describe(c.Label, "no element is true"),
			fmt.Sprintf("at least 1 of %d true", len(result)),
			fmt.Sprintf("0 of %d true", len(result)))
	}
	return t, nil
}

// Verify asserts that fn(t, args...) is true.
func Verify(t *frame.Table, fn Predicate, args ...interface{}) (*frame.Table, error) {
	return VerifyCheck{Predicate: fn, Args: args}.Evaluate(t)
}

// VerifyAll asserts that every element of fn(t, args...) is true.
func VerifyAll(t *frame.Table, fn MaskPredicate, args ...interface{}) (*frame.Table, error) {
	return VerifyAllCheck{Predicate: fn, Args: args}.Evaluate(t)
}

// VerifyAny asserts that some element of fn(t, args...) is true.
func VerifyAny(t *frame.Table, fn MaskPredicate, args ...interface{}) (*frame.Table, error) {
	return VerifyAnyCheck{Predicate: fn, Args: args}.Evaluate(t)
}

func countFalse(mask []bool) int {
	n := 0
	for _, ok := range mask {
		if !ok {
			n++
		}
	}
	return n
}

func describe(label, msg string) string {
	if label == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", label, msg)
}
