package checks

import (
	"errors"
	"fmt"

	"github.com/canonica-labs/engarde/pkg/frame"
)

// Kind distinguishes the two failure payload shapes.
type Kind int

const (
	// Structural failures describe the table as a whole: shape, index
	// uniqueness, dtypes, monotonicity and generic predicates.
	Structural Kind = iota

	// CellLevel failures carry the location of every offending cell.
	CellLevel
)

func (k Kind) String() string {
	if k == CellLevel {
		return "cell"
	}
	return "structural"
}

// AssertionError is returned when a check's pass condition is false.
type AssertionError struct {
	// Check is the name of the failing check.
	Check string

	// Kind is the payload shape.
	Kind Kind

	// Message is a one-line summary.
	Message string

	// Expected and Observed summarize structural failures.
	Expected string
	Observed string

	// Locations lists every offending cell for cell-level failures,
	// column by column in table order.
	Locations []frame.Location
}

func (e *AssertionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Check, e.Message)
	if e.Expected != "" {
		msg = fmt.Sprintf("%s\nExpected: %s", msg, e.Expected)
	}
	if e.Observed != "" {
		msg = fmt.Sprintf("%s\nObserved: %s", msg, e.Observed)
	}
	if len(e.Locations) > 0 {
		msg = fmt.Sprintf("%s\nLocations: %s", msg, frame.FormatLocations(e.Locations))
	}
	return msg
}

// IsAssertion reports whether err is, or wraps, an AssertionError.
func IsAssertion(err error) bool {
	_, ok := AsAssertion(err)
	return ok
}

// AsAssertion extracts the AssertionError from err's chain.
func AsAssertion(err error) (*AssertionError, bool) {
	var ae *AssertionError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func structural(check, message, expected, observed string) *AssertionError {
	return &AssertionError{
		Check:    check,
		Kind:     Structural,
		Message:  message,
		Expected: expected,
		Observed: observed,
	}
}

func cellLevel(check, message string, locs []frame.Location) *AssertionError {
	return &AssertionError{
		Check:     check,
		Kind:      CellLevel,
		Message:   message,
		Locations: locs,
	}
}
