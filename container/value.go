package container

import (
	"fmt"
	"math"
	"strconv"
)

// ValueKind is the stored type of an attribute value.
type ValueKind uint8

const (
	ValueInvalid ValueKind = iota
	ValueString
	ValueInt
	ValueUint
	ValueFloat
	ValueBool
)

func (k ValueKind) String() string {
	switch k {
	case ValueString:
		return "string"
	case ValueInt:
		return "int64"
	case ValueUint:
		return "uint64"
	case ValueFloat:
		return "float64"
	case ValueBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is a typed scalar attribute value.
type Value struct {
	kind ValueKind
	s    string
	bits uint64
}

// StringValue returns a string attribute value.
func StringValue(s string) Value { return Value{kind: ValueString, s: s} }

// IntValue returns a signed integer attribute value.
func IntValue(i int64) Value { return Value{kind: ValueInt, bits: uint64(i)} }

// UintValue returns an unsigned integer attribute value.
func UintValue(u uint64) Value { return Value{kind: ValueUint, bits: u} }

// FloatValue returns a floating point attribute value.
func FloatValue(f float64) Value { return Value{kind: ValueFloat, bits: math.Float64bits(f)} }

// BoolValue returns a boolean attribute value.
func BoolValue(b bool) Value {
	v := Value{kind: ValueBool}
	if b {
		v.bits = 1
	}
	return v
}

// ValueOf converts a Go scalar (string, bool, sized or unsized ints, uints,
// floats) to a Value. Any other type is rejected.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case string:
		return StringValue(x), nil
	case bool:
		return BoolValue(x), nil
	case int:
		return IntValue(int64(x)), nil
	case int8:
		return IntValue(int64(x)), nil
	case int16:
		return IntValue(int64(x)), nil
	case int32:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case uint:
		return UintValue(uint64(x)), nil
	case uint8:
		return UintValue(uint64(x)), nil
	case uint16:
		return UintValue(uint64(x)), nil
	case uint32:
		return UintValue(uint64(x)), nil
	case uint64:
		return UintValue(x), nil
	case float32:
		return FloatValue(float64(x)), nil
	case float64:
		return FloatValue(x), nil
	default:
		return Value{}, fmt.Errorf("unsupported attribute value type %T", v)
	}
}

// Kind returns the stored type.
func (v Value) Kind() ValueKind { return v.kind }

// Any returns the value as string, int64, uint64, float64 or bool.
func (v Value) Any() any {
	switch v.kind {
	case ValueString:
		return v.s
	case ValueInt:
		return int64(v.bits)
	case ValueUint:
		return v.bits
	case ValueFloat:
		return math.Float64frombits(v.bits)
	case ValueBool:
		return v.bits != 0
	default:
		return nil
	}
}

// Str returns the string payload and whether v is a string value.
func (v Value) Str() (string, bool) { return v.s, v.kind == ValueString }

func (v Value) String() string {
	switch v.kind {
	case ValueString:
		return strconv.Quote(v.s)
	case ValueInvalid:
		return "<invalid>"
	default:
		return fmt.Sprint(v.Any())
	}
}

// Attr is a named attribute attached to a group or dataset.
type Attr struct {
	Name  string
	Value Value
}

type attrList []Attr

func (l attrList) get(name string) (Value, bool) {
	for _, a := range l {
		if a.Name == name {
			return a.Value, true
		}
	}
	return Value{}, false
}

func (l *attrList) set(name string, v Value) error {
	if name == "" || len(name) > maxNameLen {
		return fmt.Errorf("%w: attribute %q", ErrInvalidName, name)
	}
	if v.kind == ValueInvalid {
		return fmt.Errorf("invalid value for attribute %q", name)
	}
	for i := range *l {
		if (*l)[i].Name == name {
			(*l)[i].Value = v
			return nil
		}
	}
	*l = append(*l, Attr{Name: name, Value: v})
	return nil
}
