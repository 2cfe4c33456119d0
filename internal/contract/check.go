package contract

import (
	"fmt"
	"sort"

	"github.com/canonica-labs/engarde/internal/errors"
	"github.com/canonica-labs/engarde/pkg/checks"
	"github.com/canonica-labs/engarde/pkg/frame"
)

// CheckSpec is one entry of a contract's check list. Which fields apply
// depends on Check.
type CheckSpec struct {
	Check string `yaml:"check"`

	// none_missing, is_monotonic, within_n_std
	Columns []string `yaml:"columns,omitempty"`

	// is_shape; an omitted dimension is not checked
	Rows *int `yaml:"rows,omitempty"`
	Cols *int `yaml:"cols,omitempty"`

	// is_monotonic
	Direction string `yaml:"direction,omitempty"`
	Strict    bool   `yaml:"strict,omitempty"`

	// within_set
	Sets map[string][]interface{} `yaml:"sets,omitempty"`

	// within_range: per-column [lower, upper], or Bounds for every numeric column
	Ranges map[string][]float64 `yaml:"ranges,omitempty"`
	Bounds []float64            `yaml:"bounds,omitempty"`

	// within_n_std
	N *float64 `yaml:"n,omitempty"`

	// has_dtypes
	DTypes map[string]string `yaml:"dtypes,omitempty"`

	// verify, verify_all, verify_any
	Column string      `yaml:"column,omitempty"`
	Op     string      `yaml:"op,omitempty"`
	Value  interface{} `yaml:"value,omitempty"`
}

// params lists the parameters each check accepts.
var params = map[string][]string{
	checks.NameNoneMissing: {"columns"},
	checks.NameIsShape:     {"rows", "cols"},
	checks.NameUniqueIndex: {},
	checks.NameIsMonotonic: {"columns", "direction", "strict"},
	checks.NameWithinSet:   {"sets"},
	checks.NameWithinRange: {"ranges", "bounds"},
	checks.NameWithinNStd:  {"n", "columns"},
	checks.NameHasDTypes:   {"dtypes"},
	checks.NameVerify:      {"column", "op", "value"},
	checks.NameVerifyAll:   {"column", "op", "value"},
	checks.NameVerifyAny:   {"column", "op", "value"},
}

func (s CheckSpec) given() []string {
	var set []string
	add := func(name string, present bool) {
		if present {
			set = append(set, name)
		}
	}
	add("columns", len(s.Columns) > 0)
	add("rows", s.Rows != nil)
	add("cols", s.Cols != nil)
	add("direction", s.Direction != "")
	add("strict", s.Strict)
	add("sets", len(s.Sets) > 0)
	add("ranges", len(s.Ranges) > 0)
	add("bounds", len(s.Bounds) > 0)
	add("n", s.N != nil)
	add("dtypes", len(s.DTypes) > 0)
	add("column", s.Column != "")
	add("op", s.Op != "")
	add("value", s.Value != nil)
	return set
}

// Build turns the entry into a check. path prefixes field names in errors.
func (s CheckSpec) Build(path string) (checks.Check, error) {
	allowed, ok := params[s.Check]
	if !ok {
		if s.Check == "" {
			return nil, errors.NewInvalidContract(path+".check", "required")
		}
		return nil, errors.NewUnknownCheck(s.Check, checks.Names())
	}
	for _, p := range s.given() {
		if !contains(allowed, p) {
			return nil, errors.NewInvalidContract(path+"."+p, fmt.Sprintf("not a parameter of %s", s.Check))
		}
	}

	switch s.Check {
	case checks.NameNoneMissing:
		return checks.NoneMissingCheck{Columns: s.Columns}, nil

	case checks.NameIsShape:
		if s.Rows == nil && s.Cols == nil {
			return nil, errors.NewInvalidContract(path, "is_shape needs rows, cols or both")
		}
		if s.Rows != nil && *s.Rows < 0 {
			return nil, errors.NewInvalidContract(path+".rows", "must not be negative")
		}
		if s.Cols != nil && *s.Cols < 0 {
			return nil, errors.NewInvalidContract(path+".cols", "must not be negative")
		}
		return checks.ShapeCheck{Shape: checks.ShapeOf(s.Rows, s.Cols)}, nil

	case checks.NameUniqueIndex:
		return checks.UniqueIndexCheck{}, nil

	case checks.NameIsMonotonic:
		dir, err := checks.ParseDirection(s.Direction)
		if err != nil {
			return nil, errors.NewInvalidContract(path+".direction", err.Error())
		}
		return checks.MonotonicCheck{Columns: s.Columns, Direction: dir, Strict: s.Strict}, nil

	case checks.NameWithinSet:
		if len(s.Sets) == 0 {
			return nil, errors.NewInvalidContract(path+".sets", "required")
		}
		return checks.SetCheck{Items: s.Sets}, nil

	case checks.NameWithinRange:
		return s.buildRange(path)

	case checks.NameWithinNStd:
		var n float64
		if s.N != nil {
			if *s.N <= 0 {
				return nil, errors.NewInvalidContract(path+".n", "must be positive")
			}
			n = *s.N
		}
		return checks.NStdCheck{N: n, Columns: s.Columns}, nil

	case checks.NameHasDTypes:
		if len(s.DTypes) == 0 {
			return nil, errors.NewInvalidContract(path+".dtypes", "required")
		}
		items := make(map[string]frame.DType, len(s.DTypes))
		for _, col := range sortedKeys(s.DTypes) {
			d, err := frame.ParseDType(s.DTypes[col])
			if err != nil {
				return nil, errors.NewInvalidContract(path+".dtypes."+col, err.Error())
			}
			items[col] = d
		}
		return checks.DTypeCheck{Items: items}, nil

	default:
		return s.buildComparison(path)
	}
}

func (s CheckSpec) buildRange(path string) (checks.Check, error) {
	switch {
	case len(s.Ranges) > 0 && len(s.Bounds) > 0:
		return nil, errors.NewInvalidContract(path, "within_range takes ranges or bounds, not both")
	case len(s.Bounds) > 0:
		r, err := toRange(s.Bounds)
		if err != nil {
			return nil, errors.NewInvalidContract(path+".bounds", err.Error())
		}
		return checks.RangeCheck{All: &r}, nil
	case len(s.Ranges) > 0:
		items := make(map[string]checks.Range, len(s.Ranges))
		for _, col := range sortedKeys(s.Ranges) {
			r, err := toRange(s.Ranges[col])
			if err != nil {
				return nil, errors.NewInvalidContract(path+".ranges."+col, err.Error())
			}
			items[col] = r
		}
		return checks.RangeCheck{Items: items}, nil
	}
	return nil, errors.NewInvalidContract(path, "within_range needs ranges or bounds")
}

func toRange(bounds []float64) (checks.Range, error) {
	if len(bounds) != 2 {
		return checks.Range{}, fmt.Errorf("expected [lower, upper], got %d values", len(bounds))
	}
	if bounds[0] > bounds[1] {
		return checks.Range{}, fmt.Errorf("lower bound %v exceeds upper bound %v", bounds[0], bounds[1])
	}
	return checks.Range{Lower: bounds[0], Upper: bounds[1]}, nil
}

func (s CheckSpec) buildComparison(path string) (checks.Check, error) {
	if s.Column == "" {
		return nil, errors.NewInvalidContract(path+".column", "required")
	}
	op, err := checks.ParseOp(s.Op)
	if err != nil {
		return nil, errors.NewInvalidContract(path+".op", err.Error())
	}
	if s.Value == nil && op != checks.OpEq && op != checks.OpNe {
		return nil, errors.NewInvalidContract(path+".value", "required for ordering comparisons")
	}
	return ComparisonCheck{Mode: s.Check, Column: s.Column, Op: op, Value: s.Value}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
