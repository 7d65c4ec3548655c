// Package param provides value types for repository parameters.
// Parameters are the canonical definitions of named, typed fields; schema
// documents embed a per-document projection of them.
package param

import (
	"encoding/json"
	"reflect"
	"strconv"
)

// Type identifies the payload type of a parameter or document field.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Types lists the valid repository parameter types. Object exists only
// as a document-side payload type; the repository never defines one.
var Types = []Type{TypeString, TypeNumber, TypeBoolean, TypeArray}

// Valid reports whether t may be used for a repository parameter.
func (t Type) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeArray:
		return true
	}
	return false
}

// Kind discriminates the payload held by a Value.
type Kind int

const (
	KindAbsent Kind = iota
	KindString
	KindNumber
	KindBool
	KindRaw // arrays, objects, anything else carried through unchanged
)

// Value is a tagged scalar carried by a parameter or field definition.
// The zero value is Absent, meaning "no default / no constraint". Absent
// replaces the ad hoc sentinels of the wire format (null, "", "Any", []).
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	raw  any
}

// Absent returns the "no value" Value.
func Absent() Value { return Value{} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Raw wraps an arbitrary decoded JSON value (array or object payloads).
func Raw(v any) Value {
	if v == nil {
		return Absent()
	}
	return Value{kind: KindRaw, raw: v}
}

// FromAny converts a decoded JSON value into a Value without applying any
// sentinel or type rules. Use Normalizer.Normalize for those.
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return Absent()
	case Value:
		return x
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case float64:
		return Number(x)
	case int:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return String(x.String())
		}
		return Number(f)
	default:
		return Raw(v)
	}
}

// Kind returns the payload discriminator.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether the value is the Absent sentinel.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Str returns the string payload ("" unless KindString).
func (v Value) Str() string { return v.str }

// Num returns the numeric payload (0 unless KindNumber).
func (v Value) Num() float64 { return v.num }

// Boolean returns the boolean payload (false unless KindBool).
func (v Value) Boolean() bool { return v.b }

// Interface returns the value as a plain Go value suitable for JSON
// encoding, or nil when absent.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		// Integral numbers marshal without a fractional part either way.
		return v.num
	case KindBool:
		return v.b
	case KindRaw:
		return v.raw
	default:
		return nil
	}
}

// Equal reports whether two values are identical in kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindAbsent:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	default:
		return reflect.DeepEqual(v.raw, o.raw)
	}
}

// GoString renders the value for logs and error messages.
func (v Value) GoString() string {
	switch v.kind {
	case KindAbsent:
		return "absent"
	case KindString:
		return strconv.Quote(v.str)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		b, _ := json.Marshal(v.raw)
		return string(b)
	}
}

// MarshalJSON encodes the underlying payload; Absent encodes as null.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes any JSON scalar or composite into a Value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}
