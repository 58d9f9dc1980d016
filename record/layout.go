package record

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/hupe1980/histostore/container"
)

// ErrUnsupportedType is returned for Go types that have no fixed record layout.
var ErrUnsupportedType = errors.New("record: unsupported type")

const tagName = "rec"

// TypeOf derives the compound record type of a struct type.
func TypeOf(t reflect.Type) (container.DType, error) {
	if t.Kind() != reflect.Struct {
		return container.DType{}, fmt.Errorf("%w: %s is not a struct", ErrUnsupportedType, t)
	}
	return structType(t, 0)
}

func structType(t reflect.Type, depth int) (container.DType, error) {
	if depth > 16 {
		return container.DType{}, fmt.Errorf("%w: %s nests too deeply", ErrUnsupportedType, t)
	}
	var fields []container.Field
	off := 0
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		ft, err := elemType(sf.Type, depth)
		if err != nil {
			return container.DType{}, fmt.Errorf("field %s: %w", sf.Name, err)
		}
		if sf.Name == "_" {
			off += ft.Size()
			continue
		}
		if !sf.IsExported() {
			return container.DType{}, fmt.Errorf("%w: unexported field %s.%s", ErrUnsupportedType, t, sf.Name)
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup(tagName); ok && tag != "" {
			name = tag
		}
		fields = append(fields, container.Field{Name: name, Offset: off, Type: ft})
		off += ft.Size()
	}
	if len(fields) == 0 {
		return container.DType{}, fmt.Errorf("%w: %s has no fields", ErrUnsupportedType, t)
	}
	return container.Compound(off, fields...)
}

func elemType(t reflect.Type, depth int) (container.DType, error) {
	switch t.Kind() {
	case reflect.Int8:
		return container.Int8, nil
	case reflect.Int16:
		return container.Int16, nil
	case reflect.Int32:
		return container.Int32, nil
	case reflect.Int64:
		return container.Int64, nil
	case reflect.Uint8:
		return container.Uint8, nil
	case reflect.Uint16:
		return container.Uint16, nil
	case reflect.Uint32:
		return container.Uint32, nil
	case reflect.Uint64:
		return container.Uint64, nil
	case reflect.Float32:
		return container.Float32, nil
	case reflect.Float64:
		return container.Float64, nil
	case reflect.Bool:
		return container.Bool, nil
	case reflect.Array:
		var dims []int
		for t.Kind() == reflect.Array {
			if t.Len() == 0 {
				return container.DType{}, fmt.Errorf("%w: zero-length array", ErrUnsupportedType)
			}
			dims = append(dims, t.Len())
			t = t.Elem()
		}
		elem, err := elemType(t, depth)
		if err != nil {
			return container.DType{}, err
		}
		return container.ArrayOf(elem, dims...)
	case reflect.Struct:
		return structType(t, depth+1)
	default:
		return container.DType{}, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
}
