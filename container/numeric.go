package container

import (
	"encoding/binary"
	"math"
)

// EncodeFloat64s packs values as little-endian float64 elements.
func EncodeFloat64s(values []float64) []byte {
	out := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(v))
	}
	return out
}

// DecodeNumeric converts packed scalar elements of kind k to float64.
// Bools decode as 0 or 1. Non-numeric kinds yield nil.
func DecodeNumeric(k Kind, raw []byte) []float64 {
	size := k.scalarSize()
	if size == 0 || k == KindInvalid {
		return nil
	}
	out := make([]float64, len(raw)/size)
	le := binary.LittleEndian
	for i := range out {
		b := raw[i*size:]
		switch k {
		case KindInt8:
			out[i] = float64(int8(b[0]))
		case KindUint8:
			out[i] = float64(b[0])
		case KindBool:
			if b[0] != 0 {
				out[i] = 1
			}
		case KindInt16:
			out[i] = float64(int16(le.Uint16(b)))
		case KindUint16:
			out[i] = float64(le.Uint16(b))
		case KindInt32:
			out[i] = float64(int32(le.Uint32(b)))
		case KindUint32:
			out[i] = float64(le.Uint32(b))
		case KindFloat32:
			out[i] = float64(math.Float32frombits(le.Uint32(b)))
		case KindInt64:
			out[i] = float64(int64(le.Uint64(b)))
		case KindUint64:
			out[i] = float64(le.Uint64(b))
		case KindFloat64:
			out[i] = math.Float64frombits(le.Uint64(b))
		}
	}
	return out
}
