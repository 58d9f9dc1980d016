package container

import (
	"fmt"
	"strings"
)

// Kind is the class of a DType.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindBool
	KindString
	KindArray
	KindCompound
)

var kindNames = [...]string{
	KindInvalid:  "invalid",
	KindInt8:     "int8",
	KindInt16:    "int16",
	KindInt32:    "int32",
	KindInt64:    "int64",
	KindUint8:    "uint8",
	KindUint16:   "uint16",
	KindUint32:   "uint32",
	KindUint64:   "uint64",
	KindFloat32:  "float32",
	KindFloat64:  "float64",
	KindBool:     "bool",
	KindString:   "string",
	KindArray:    "array",
	KindCompound: "compound",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) scalarSize() int {
	switch k {
	case KindInt8, KindUint8, KindBool:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	default:
		return 0
	}
}

// IsNumeric reports whether k is an integer or floating point scalar kind.
func (k Kind) IsNumeric() bool {
	return k >= KindInt8 && k <= KindFloat64
}

// Field is a named member of a compound type, located at a byte offset.
type Field struct {
	Name   string
	Offset int
	Type   DType
}

// DType describes the element type of a dataset. Elements are stored packed
// and little endian. The zero value is invalid.
type DType struct {
	kind   Kind
	size   int
	elem   *DType
	dims   []int
	fields []Field
}

// Scalar element types.
var (
	Int8    = DType{kind: KindInt8}
	Int16   = DType{kind: KindInt16}
	Int32   = DType{kind: KindInt32}
	Int64   = DType{kind: KindInt64}
	Uint8   = DType{kind: KindUint8}
	Uint16  = DType{kind: KindUint16}
	Uint32  = DType{kind: KindUint32}
	Uint64  = DType{kind: KindUint64}
	Float32 = DType{kind: KindFloat32}
	Float64 = DType{kind: KindFloat64}
	Bool    = DType{kind: KindBool}
)

// ScalarOf returns the scalar DType for k.
func ScalarOf(k Kind) (DType, error) {
	if k.scalarSize() == 0 {
		return DType{}, fmt.Errorf("%w: %s is not a scalar kind", ErrInvalidType, k)
	}
	return DType{kind: k}, nil
}

// FixedString returns a fixed-length byte string type of n bytes.
func FixedString(n int) (DType, error) {
	if n <= 0 {
		return DType{}, fmt.Errorf("%w: string length %d", ErrInvalidType, n)
	}
	return DType{kind: KindString, size: n}, nil
}

// ArrayOf returns a fixed-size sub-array type with the given dimensions.
func ArrayOf(elem DType, dims ...int) (DType, error) {
	if !elem.Valid() {
		return DType{}, fmt.Errorf("%w: invalid array element", ErrInvalidType)
	}
	if len(dims) == 0 || len(dims) > 255 {
		return DType{}, fmt.Errorf("%w: array rank %d", ErrInvalidType, len(dims))
	}
	for _, d := range dims {
		if d <= 0 {
			return DType{}, fmt.Errorf("%w: array dimension %d", ErrInvalidType, d)
		}
	}
	e := elem
	return DType{kind: KindArray, elem: &e, dims: append([]int(nil), dims...)}, nil
}

// Compound returns a compound type of the given total size. Fields must have
// unique valid names and lie within size. Overlapping fields are rejected.
func Compound(size int, fields ...Field) (DType, error) {
	if len(fields) == 0 || len(fields) > 65535 {
		return DType{}, fmt.Errorf("%w: compound with %d fields", ErrInvalidType, len(fields))
	}
	if size <= 0 {
		return DType{}, fmt.Errorf("%w: compound size %d", ErrInvalidType, size)
	}
	seen := make(map[string]struct{}, len(fields))
	used := make([]bool, size)
	for _, f := range fields {
		if err := validateName(f.Name); err != nil {
			return DType{}, err
		}
		if _, dup := seen[f.Name]; dup {
			return DType{}, fmt.Errorf("%w: duplicate field %q", ErrInvalidType, f.Name)
		}
		seen[f.Name] = struct{}{}
		if !f.Type.Valid() {
			return DType{}, fmt.Errorf("%w: field %q", ErrInvalidType, f.Name)
		}
		end := f.Offset + f.Type.Size()
		if f.Offset < 0 || end > size {
			return DType{}, fmt.Errorf("%w: field %q outside record of %d bytes", ErrInvalidType, f.Name, size)
		}
		for i := f.Offset; i < end; i++ {
			if used[i] {
				return DType{}, fmt.Errorf("%w: field %q overlaps another field", ErrInvalidType, f.Name)
			}
			used[i] = true
		}
	}
	return DType{kind: KindCompound, size: size, fields: append([]Field(nil), fields...)}, nil
}

// Packed returns a compound type whose fields are laid out back to back in
// the given order. Any Offset set on the fields is ignored.
func Packed(fields ...Field) (DType, error) {
	out := make([]Field, len(fields))
	off := 0
	for i, f := range fields {
		out[i] = Field{Name: f.Name, Offset: off, Type: f.Type}
		off += f.Type.Size()
	}
	return Compound(off, out...)
}

// Kind returns the class of the type.
func (d DType) Kind() Kind { return d.kind }

// Valid reports whether d is a usable element type.
func (d DType) Valid() bool { return d.kind != KindInvalid && d.Size() > 0 }

// Size returns the element size in bytes.
func (d DType) Size() int {
	switch d.kind {
	case KindString, KindCompound:
		return d.size
	case KindArray:
		if d.elem == nil {
			return 0
		}
		n := d.elem.Size()
		for _, dim := range d.dims {
			n *= dim
		}
		return n
	default:
		return d.kind.scalarSize()
	}
}

// Elem returns the element type of an array type.
func (d DType) Elem() (DType, bool) {
	if d.kind != KindArray || d.elem == nil {
		return DType{}, false
	}
	return *d.elem, true
}

// Dims returns the dimensions of an array type.
func (d DType) Dims() []int { return append([]int(nil), d.dims...) }

// Fields returns the fields of a compound type in declaration order.
func (d DType) Fields() []Field { return append([]Field(nil), d.fields...) }

// Field returns the named field of a compound type.
func (d DType) Field(name string) (Field, bool) {
	for _, f := range d.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Equal reports exact structural equality: kinds, sizes, dimensions, field
// names, field order, offsets and nested types must all match.
func (d DType) Equal(o DType) bool {
	if d.kind != o.kind || d.Size() != o.Size() {
		return false
	}
	switch d.kind {
	case KindArray:
		if len(d.dims) != len(o.dims) || d.elem == nil || o.elem == nil {
			return false
		}
		for i := range d.dims {
			if d.dims[i] != o.dims[i] {
				return false
			}
		}
		return d.elem.Equal(*o.elem)
	case KindCompound:
		if len(d.fields) != len(o.fields) {
			return false
		}
		for i := range d.fields {
			a, b := d.fields[i], o.fields[i]
			if a.Name != b.Name || a.Offset != b.Offset || !a.Type.Equal(b.Type) {
				return false
			}
		}
	}
	return true
}

// String renders the type, e.g. "{value:float64@0,id:uint64@8}".
func (d DType) String() string {
	switch d.kind {
	case KindString:
		return fmt.Sprintf("string[%d]", d.size)
	case KindArray:
		var sb strings.Builder
		for _, dim := range d.dims {
			fmt.Fprintf(&sb, "[%d]", dim)
		}
		if d.elem != nil {
			sb.WriteString(d.elem.String())
		}
		return sb.String()
	case KindCompound:
		parts := make([]string, len(d.fields))
		for i, f := range d.fields {
			parts[i] = fmt.Sprintf("%s:%s@%d", f.Name, f.Type, f.Offset)
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return d.kind.String()
	}
}
