package param

import (
	"fmt"
	"strconv"
	"strings"
)

// Normalizer applies sentinel handling and type-aware coercion to raw
// values. The zero value is the lenient normalizer: unparsable input is
// kept as-is instead of being rejected, so operator-entered data never
// errors out. Strict mode turns those fallbacks into errors.
type Normalizer struct {
	Strict bool
}

// Normalize coerces a raw value for the given type.
//
// The sentinels null, "", "Any" and the empty list all mean "no value"
// and normalize to Absent regardless of type. Number-typed strings are
// parsed (float when the text contains a dot, integer otherwise);
// boolean-typed strings match "true"/"false" case-insensitively. String,
// array and object payloads pass through unchanged.
//
// In lenient mode the function is total: an unparsable number keeps its
// raw string form and an unparsable boolean becomes Absent. In strict
// mode both return an error instead.
func (n Normalizer) Normalize(raw Value, t Type) (Value, error) {
	if isSentinel(raw) {
		return Absent(), nil
	}

	switch t {
	case TypeNumber:
		if raw.Kind() != KindString {
			return raw, nil
		}
		s := raw.Str()
		var f float64
		var err error
		if strings.Contains(s, ".") {
			f, err = strconv.ParseFloat(s, 64)
		} else {
			var i int64
			i, err = strconv.ParseInt(s, 10, 64)
			f = float64(i)
		}
		if err != nil {
			if n.Strict {
				return Absent(), fmt.Errorf("value %q is not a number", s)
			}
			return raw, nil
		}
		return Number(f), nil

	case TypeBoolean:
		if raw.Kind() != KindString {
			return raw, nil
		}
		switch strings.ToLower(raw.Str()) {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		if n.Strict {
			return Absent(), fmt.Errorf("value %q is not a boolean", raw.Str())
		}
		return Absent(), nil

	default:
		return raw, nil
	}
}

// Normalize is the lenient normalization used throughout the engine.
func Normalize(raw Value, t Type) Value {
	v, _ := Normalizer{}.Normalize(raw, t)
	return v
}

func isSentinel(v Value) bool {
	switch v.Kind() {
	case KindAbsent:
		return true
	case KindString:
		return strings.TrimSpace(v.Str()) == "" || v.Str() == "Any"
	case KindRaw:
		if list, ok := v.raw.([]any); ok {
			return len(list) == 0
		}
	}
	return false
}
