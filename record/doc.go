// Package record provides fixed-layout record arrays: a compound element
// type plus the packed little-endian bytes of every record.
//
// Record arrays are built from slices of fixed-size Go structs:
//
//	type fit struct {
//	    Mu     float64 `rec:"mu"`
//	    Sigma  float64 `rec:"sigma"`
//	    Status int32   `rec:"status"`
//	}
//
//	arr, err := record.FromSlice([]fit{{Mu: 1.02, Sigma: 0.1}})
//
// Supported field types are sized integers, float32, float64, bool, fixed
// arrays of those and nested structs. Fields named "_" become padding.
// The layout is packed in declaration order, so the same struct always yields
// an identical container.DType.
package record
