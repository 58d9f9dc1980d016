package ndarray

import (
	"errors"
	"fmt"
)

// ErrShape is returned when data does not match the requested shape.
var ErrShape = errors.New("ndarray: shape mismatch")

// Array is a dense row-major float64 array.
type Array struct {
	shape   []int
	strides []int
	data    []float64
}

// New wraps data as an array of the given shape. A zero-rank shape is a
// scalar holding exactly one element.
func New(shape []int, data []float64) (*Array, error) {
	n, err := product(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShape, len(data), shape)
	}
	return &Array{
		shape:   append([]int(nil), shape...),
		strides: strides(shape),
		data:    data,
	}, nil
}

// Zeros returns a zero-filled array of the given shape.
// It panics on negative dimensions.
func Zeros(shape ...int) *Array {
	n, err := product(shape)
	if err != nil {
		panic(err)
	}
	a, _ := New(shape, make([]float64, n))
	return a
}

// FromSlice returns a one-dimensional array over values.
func FromSlice(values []float64) *Array {
	a, _ := New([]int{len(values)}, values)
	return a
}

func product(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension in %v", ErrShape, shape)
		}
		n *= d
	}
	return n, nil
}

func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

// Shape returns a copy of the dimensions.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// NDim returns the number of dimensions.
func (a *Array) NDim() int { return len(a.shape) }

// Size returns the number of elements.
func (a *Array) Size() int { return len(a.data) }

// Data returns the backing row-major slice.
func (a *Array) Data() []float64 { return a.data }

func (a *Array) offset(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("ndarray: %d indices for %d dimensions", len(idx), len(a.shape)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= a.shape[i] {
			panic(fmt.Sprintf("ndarray: index %d out of range [0,%d) in dimension %d", x, a.shape[i], i))
		}
		off += x * a.strides[i]
	}
	return off
}

// At returns the element at idx. It panics if idx is out of range.
func (a *Array) At(idx ...int) float64 { return a.data[a.offset(idx)] }

// Set stores v at idx. It panics if idx is out of range.
func (a *Array) Set(v float64, idx ...int) { a.data[a.offset(idx)] = v }

// Equal reports whether both arrays have the same shape and identical values.
func (a *Array) Equal(o *Array) bool {
	if a == nil || o == nil {
		return a == o
	}
	if len(a.shape) != len(o.shape) || len(a.data) != len(o.data) {
		return false
	}
	for i := range a.shape {
		if a.shape[i] != o.shape[i] {
			return false
		}
	}
	for i := range a.data {
		if a.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	b, _ := New(a.shape, append([]float64(nil), a.data...))
	return b
}

func (a *Array) String() string {
	return fmt.Sprintf("Array%v", a.shape)
}
