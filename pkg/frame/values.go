package frame

import (
	"fmt"
	"math"
	"time"
)

// Normalize maps driver and literal values onto the small set of Go types a
// table stores: every integer kind becomes int64, float32 becomes float64 and
// []byte becomes string. Other values are returned unchanged.
func Normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return normalizeUnsigned(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return normalizeUnsigned(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	}
	return v
}

func normalizeUnsigned(u uint64) interface{} {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

// IsMissing reports whether v is a missing value: nil or a float NaN.
func IsMissing(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

// ToFloat converts a numeric value to float64. Missing values and
// non-numeric values report false.
func ToFloat(v interface{}) (float64, bool) {
	switch x := Normalize(v).(type) {
	case int64:
		return float64(x), true
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	}
	return 0, false
}

// Equal compares two values after normalization. Numbers compare by value
// across integer and float representations.
func Equal(a, b interface{}) bool {
	a, b = Normalize(a), Normalize(b)
	if af, ok := ToFloat(a); ok {
		bf, ok := ToFloat(b)
		return ok && af == bf
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	defer func() {
		// uncomparable dynamic types (slices, maps) are never equal
		_ = recover()
	}()
	return a == b
}

// Compare orders two non-missing values of compatible kinds. It returns -1,
// 0 or 1, or an error when the values cannot be ordered.
func Compare(a, b interface{}) (int, error) {
	a, b = Normalize(a), Normalize(b)
	if IsMissing(a) || IsMissing(b) {
		return 0, fmt.Errorf("frame: cannot order missing value")
	}

	if af, ok := ToFloat(a); ok {
		bf, ok := ToFloat(b)
		if !ok {
			return 0, fmt.Errorf("frame: cannot compare %T with %T", a, b)
		}
		return compareFloat(af, bf), nil
	}

	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("frame: cannot compare %T with %T", a, b)
		}
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("frame: cannot compare %T with %T", a, b)
		}
		return x.Compare(y), nil
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, fmt.Errorf("frame: cannot compare %T with %T", a, b)
		}
		switch {
		case x == y:
			return 0, nil
		case !x:
			return -1, nil
		}
		return 1, nil
	}
	return 0, fmt.Errorf("frame: values of type %T are not ordered", a)
}

type (
	numberKey  float64
	timeKey    int64
	missingKey struct{}
	otherKey   string
)

// Key returns a comparable map key for v that is consistent with Equal:
// numbers key by value, times by instant, and all missing values share one key.
func Key(v interface{}) interface{} {
	v = Normalize(v)
	if IsMissing(v) {
		return missingKey{}
	}
	if f, ok := ToFloat(v); ok {
		return numberKey(f)
	}
	switch x := v.(type) {
	case string, bool:
		return x
	case time.Time:
		return timeKey(x.UnixNano())
	}
	return otherKey(fmt.Sprintf("%T:%#v", v, v))
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
