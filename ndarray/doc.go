// Package ndarray provides a dense, row-major N-dimensional float64 array.
//
// It is the in-memory form of histogram contents and bin-edge vectors. The
// array owns its backing slice; Data exposes it without copying so callers
// can fill or read large histograms directly.
package ndarray
