// Package ldvalue provides an immutable representation of any JSON value that a flag
// variation or a context attribute can hold: null, boolean, number, string, array, or
// object. It exists so that the rest of the module never has to juggle bare
// interface{} values with unclear ownership -- a Value is safe to share and cache
// across evaluations.
package ldvalue

import (
	"encoding/json"
	"errors"
)

// ValueType identifies which JSON type a Value holds.
type ValueType int

// The supported JSON value types.
const (
	NullType ValueType = iota
	BoolType
	NumberType
	StringType
	ArrayType
	ObjectType
)

func (t ValueType) String() string {
	switch t {
	case BoolType:
		return "bool"
	case NumberType:
		return "number"
	case StringType:
		return "string"
	case ArrayType:
		return "array"
	case ObjectType:
		return "object"
	default:
		return "null"
	}
}

// Value is an immutable JSON value. The zero value is JSON null.
type Value struct {
	valueType   ValueType
	boolValue   bool
	numberValue float64
	stringValue string
	arrayValue  []Value
	objectValue map[string]Value
}

// Null returns a null Value.
func Null() Value { return Value{} }

// Bool wraps a bool.
func Bool(value bool) Value { return Value{valueType: BoolType, boolValue: value} }

// Int wraps an int as a number.
func Int(value int) Value { return Value{valueType: NumberType, numberValue: float64(value)} }

// Float64 wraps a float64.
func Float64(value float64) Value { return Value{valueType: NumberType, numberValue: value} }

// String wraps a string.
func String(value string) Value { return Value{valueType: StringType, stringValue: value} }

// ArrayOf builds an array Value from the given elements.
func ArrayOf(values ...Value) Value {
	cp := make([]Value, len(values))
	copy(cp, values)
	return Value{valueType: ArrayType, arrayValue: cp}
}

// ObjectBuild constructs an object Value from a map, copying it so later mutation of
// the input map does not affect the Value.
func ObjectBuild(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{valueType: ObjectType, objectValue: cp}
}

// FromInterface converts an arbitrary decoded-JSON interface{} (as produced by
// encoding/json into interface{}) into a Value.
func FromInterface(v interface{}) Value {
	switch tv := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(tv)
	case float64:
		return Float64(tv)
	case int:
		return Int(tv)
	case string:
		return String(tv)
	case []interface{}:
		arr := make([]Value, 0, len(tv))
		for _, e := range tv {
			arr = append(arr, FromInterface(e))
		}
		return ArrayOf(arr...)
	case map[string]interface{}:
		obj := make(map[string]Value, len(tv))
		for k, e := range tv {
			obj[k] = FromInterface(e)
		}
		return ObjectBuild(obj)
	default:
		return Null()
	}
}

// Type returns the JSON type of the value.
func (v Value) Type() ValueType { return v.valueType }

// IsNull returns true if this is a null value.
func (v Value) IsNull() bool { return v.valueType == NullType }

// BoolValue returns the bool value, or false if this is not a bool.
func (v Value) BoolValue() bool { return v.valueType == BoolType && v.boolValue }

// Float64Value returns the numeric value, or 0 if this is not a number.
func (v Value) Float64Value() float64 {
	if v.valueType == NumberType {
		return v.numberValue
	}
	return 0
}

// IntValue returns the numeric value truncated to an int, or 0 if this is not a number.
func (v Value) IntValue() int {
	if v.valueType == NumberType {
		return int(v.numberValue)
	}
	return 0
}

// StringValue returns the string value, or "" if this is not a string.
func (v Value) StringValue() string {
	if v.valueType == StringType {
		return v.stringValue
	}
	return ""
}

// AsArray returns the element slice if this is an array, or nil.
func (v Value) AsArray() []Value {
	if v.valueType == ArrayType {
		return v.arrayValue
	}
	return nil
}

// AsObject returns the property map if this is an object, or nil.
func (v Value) AsObject() map[string]Value {
	if v.valueType == ObjectType {
		return v.objectValue
	}
	return nil
}

// Equal reports deep equality between two Values.
func (v Value) Equal(other Value) bool {
	if v.valueType != other.valueType {
		return false
	}
	switch v.valueType {
	case BoolType:
		return v.boolValue == other.boolValue
	case NumberType:
		return v.numberValue == other.numberValue
	case StringType:
		return v.stringValue == other.stringValue
	case ArrayType:
		if len(v.arrayValue) != len(other.arrayValue) {
			return false
		}
		for i := range v.arrayValue {
			if !v.arrayValue[i].Equal(other.arrayValue[i]) {
				return false
			}
		}
		return true
	case ObjectType:
		if len(v.objectValue) != len(other.objectValue) {
			return false
		}
		for k, ev := range v.objectValue {
			ov, ok := other.objectValue[k]
			if !ok || !ev.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.valueType {
	case NullType:
		return []byte("null"), nil
	case BoolType:
		return json.Marshal(v.boolValue)
	case NumberType:
		return json.Marshal(v.numberValue)
	case StringType:
		return json.Marshal(v.stringValue)
	case ArrayType:
		return json.Marshal(v.arrayValue)
	case ObjectType:
		return json.Marshal(v.objectValue)
	default:
		return nil, errors.New("unknown value type")
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromInterface(raw)
	return nil
}

// OptionalInt represents an int that may be absent, distinguishing "no value" from the
// zero value -- used for event fields like variation index where 0 is a valid variation.
type OptionalInt struct {
	value   int
	defined bool
}

// NewOptionalInt wraps a present int value.
func NewOptionalInt(value int) OptionalInt { return OptionalInt{value: value, defined: true} }

// IsDefined reports whether a value is present.
func (o OptionalInt) IsDefined() bool { return o.defined }

// IntValue returns the wrapped value, or 0 if absent.
func (o OptionalInt) IntValue() int { return o.value }

// Get returns the wrapped value and whether it was present, mirroring the comma-ok idiom.
func (o OptionalInt) Get() (int, bool) { return o.value, o.defined }

// MarshalJSON implements json.Marshaler: an absent value marshals to null.
func (o OptionalInt) MarshalJSON() ([]byte, error) {
	if !o.defined {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = OptionalInt{}
		return nil
	}
	var i int
	if err := json.Unmarshal(data, &i); err != nil {
		return err
	}
	*o = NewOptionalInt(i)
	return nil
}
