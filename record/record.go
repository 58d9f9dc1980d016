package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"github.com/hupe1980/histostore/container"
)

var (
	// ErrLayoutMismatch is returned when record arrays or Go types disagree on
	// the record layout.
	ErrLayoutMismatch = errors.New("record: layout mismatch")
	// ErrSize is returned when raw bytes are not a whole number of records.
	ErrSize = errors.New("record: size mismatch")
	// ErrNoField is returned for unknown or non-numeric column names.
	ErrNoField = errors.New("record: no such numeric field")
)

// Array is an immutable sequence of fixed-layout records.
type Array struct {
	dtype container.DType
	n     int
	raw   []byte
}

// New wraps n packed records of a compound type.
func New(dtype container.DType, n int, raw []byte) (*Array, error) {
	if dtype.Kind() != container.KindCompound {
		return nil, fmt.Errorf("%w: %s is not a compound type", ErrUnsupportedType, dtype)
	}
	if n < 0 || len(raw) != n*dtype.Size() {
		return nil, fmt.Errorf("%w: %d bytes for %d records of %d bytes", ErrSize, len(raw), n, dtype.Size())
	}
	return &Array{dtype: dtype, n: n, raw: raw}, nil
}

// Empty returns a zero-length array of the given compound type.
func Empty(dtype container.DType) (*Array, error) {
	return New(dtype, 0, []byte{})
}

// FromSlice encodes a slice of structs as a record array.
func FromSlice(slice any) (*Array, error) {
	v := reflect.ValueOf(slice)
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("%w: %T is not a slice", ErrUnsupportedType, slice)
	}
	dtype, err := TypeOf(v.Type().Elem())
	if err != nil {
		return nil, err
	}
	raw := make([]byte, 0, v.Len()*dtype.Size())
	if v.Len() > 0 {
		if raw, err = binary.Append(raw, binary.LittleEndian, slice); err != nil {
			return nil, fmt.Errorf("record: encode: %w", err)
		}
	}
	return New(dtype, v.Len(), raw)
}

// ToSlice decodes the records into dst, which must point to a slice of a
// struct type whose layout equals the array's type.
func (a *Array) ToSlice(dst any) error {
	pv := reflect.ValueOf(dst)
	if pv.Kind() != reflect.Pointer || pv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("%w: %T is not a pointer to a slice", ErrUnsupportedType, dst)
	}
	st := pv.Elem().Type()
	dtype, err := TypeOf(st.Elem())
	if err != nil {
		return err
	}
	if !dtype.Equal(a.dtype) {
		return fmt.Errorf("%w: %s does not match %s", ErrLayoutMismatch, dtype, a.dtype)
	}
	out := reflect.MakeSlice(st, a.n, a.n)
	if a.n > 0 {
		if _, err := binary.Decode(a.raw, binary.LittleEndian, out.Interface()); err != nil {
			return fmt.Errorf("record: decode: %w", err)
		}
	}
	pv.Elem().Set(out)
	return nil
}

// Type returns the compound record type.
func (a *Array) Type() container.DType { return a.dtype }

// Len returns the number of records.
func (a *Array) Len() int { return a.n }

// Bytes returns the packed records. The slice must not be modified.
func (a *Array) Bytes() []byte { return a.raw }

// Record returns the bytes of record i.
func (a *Array) Record(i int) []byte {
	size := a.dtype.Size()
	return a.raw[i*size : (i+1)*size]
}

// Float64s returns a numeric top-level field of every record as float64.
func (a *Array) Float64s(field string) ([]float64, error) {
	f, ok := a.dtype.Field(field)
	if !ok || (!f.Type.Kind().IsNumeric() && f.Type.Kind() != container.KindBool) {
		return nil, fmt.Errorf("%w: %q", ErrNoField, field)
	}
	fsize := f.Type.Size()
	out := make([]float64, a.n)
	for i := range out {
		rec := a.Record(i)
		out[i] = container.DecodeNumeric(f.Type.Kind(), rec[f.Offset:f.Offset+fsize])[0]
	}
	return out, nil
}

// Equal reports whether both arrays have the same layout and contents.
func (a *Array) Equal(o *Array) bool {
	if a == nil || o == nil {
		return a == o
	}
	return a.n == o.n && a.dtype.Equal(o.dtype) && bytes.Equal(a.raw, o.raw)
}

// Concat joins arrays in order. All parts must share the exact same layout.
func Concat(parts ...*Array) (*Array, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: nothing to concatenate", ErrSize)
	}
	ref := parts[0].dtype
	total := 0
	for i, p := range parts {
		if !p.dtype.Equal(ref) {
			return nil, fmt.Errorf("%w: part %d is %s, want %s", ErrLayoutMismatch, i, p.dtype, ref)
		}
		total += p.n
	}
	raw := make([]byte, 0, total*ref.Size())
	for _, p := range parts {
		raw = append(raw, p.raw...)
	}
	return New(ref, total, raw)
}
