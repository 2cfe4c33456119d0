package frame

import (
	"fmt"
	"strings"
	"time"
)

// DType is the declared element type of a column.
type DType string

const (
	Int64    DType = "int64"
	Float64  DType = "float64"
	String   DType = "string"
	Bool     DType = "bool"
	Datetime DType = "datetime"
	Object   DType = "object"
)

// AllDTypes returns all valid element types.
func AllDTypes() []DType {
	return []DType{Int64, Float64, String, Bool, Datetime, Object}
}

// IsValid checks if the dtype is a known element type.
func (d DType) IsValid() bool {
	for _, valid := range AllDTypes() {
		if d == valid {
			return true
		}
	}
	return false
}

// IsNumeric reports whether values of this dtype convert to float64.
func (d DType) IsNumeric() bool {
	return d == Int64 || d == Float64
}

// ParseDType parses a dtype name. Common aliases ("int", "float", "str",
// "time", "timestamp") are accepted.
func ParseDType(name string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int64", "int", "integer":
		return Int64, nil
	case "float64", "float", "double":
		return Float64, nil
	case "string", "str", "text":
		return String, nil
	case "bool", "boolean":
		return Bool, nil
	case "datetime", "time", "timestamp":
		return Datetime, nil
	case "object":
		return Object, nil
	}
	return "", fmt.Errorf("frame: unknown dtype %q (valid: %v)", name, AllDTypes())
}

// conforms reports whether a normalized, non-missing value can be stored
// in a column of dtype d.
func conforms(d DType, v interface{}) bool {
	switch d {
	case Int64:
		_, ok := v.(int64)
		return ok
	case Float64:
		switch v.(type) {
		case int64, float64:
			return true
		}
		return false
	case String:
		_, ok := v.(string)
		return ok
	case Bool:
		_, ok := v.(bool)
		return ok
	case Datetime:
		_, ok := v.(time.Time)
		return ok
	case Object:
		return true
	}
	return false
}

// inferDType picks the narrowest dtype that holds every non-missing value.
func inferDType(values []interface{}) DType {
	var (
		seen              bool
		ints, floats      bool
		strs, bools, tims bool
		other             bool
	)
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		seen = true
		switch v.(type) {
		case int64:
			ints = true
		case float64:
			floats = true
		case string:
			strs = true
		case bool:
			bools = true
		case time.Time:
			tims = true
		default:
			other = true
		}
	}

	switch {
	case !seen || other:
		return Object
	case (ints || floats) && !strs && !bools && !tims:
		if floats {
			return Float64
		}
		return Int64
	case strs && !ints && !floats && !bools && !tims:
		return String
	case bools && !ints && !floats && !strs && !tims:
		return Bool
	case tims && !ints && !floats && !strs && !bools:
		return Datetime
	}
	return Object
}
