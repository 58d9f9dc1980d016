package histostore

import (
	"errors"
	"fmt"

	"github.com/hupe1980/histostore/container"
	"github.com/hupe1980/histostore/internal/capability"
	"github.com/hupe1980/histostore/internal/template"
	"github.com/hupe1980/histostore/internal/toy"
	"github.com/hupe1980/histostore/record"
)

var (
	// ErrCapabilityMissing is returned when an optional adapter is called
	// without a registered provider.
	ErrCapabilityMissing = errors.New("capability missing")
	// ErrArgumentMismatch is returned when parallel inputs disagree in length
	// or an input cannot be stored.
	ErrArgumentMismatch = errors.New("argument mismatch")
	// ErrMissingKey is returned when a requested histogram or stream is absent.
	ErrMissingKey = errors.New("missing key")
	// ErrTypeLayoutMismatch is returned when record layouts differ between shards.
	ErrTypeLayoutMismatch = errors.New("type layout mismatch")
	// ErrUnimplemented is returned by reserved entry points.
	ErrUnimplemented = errors.New("unimplemented")
	// ErrStreamSetMismatch is returned when shards carry different streams.
	ErrStreamSetMismatch = errors.New("stream set mismatch")
	// ErrNoShards is returned when an aggregation pattern matches nothing.
	ErrNoShards = errors.New("no shards")
	// ErrInvalidName is returned for unusable group, dataset or stream names.
	ErrInvalidName = errors.New("invalid name")
	// ErrCorruptContainer is returned when a file is not a valid container.
	ErrCorruptContainer = errors.New("corrupt container")
	// ErrHDF5Container is returned when a file is an HDF5 file. Convert it
	// with the container/h5 package first.
	ErrHDF5Container = errors.New("hdf5 container")
)

// ErrLayoutMismatch reports a stream whose record layout in Shard differs from
// the first shard's. It matches ErrTypeLayoutMismatch.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrLayoutMismatch struct {
	Stream   string
	Shard    string
	Expected container.DType
	Actual   container.DType
	cause    error
}

func (e *ErrLayoutMismatch) Error() string {
	return fmt.Sprintf("type layout mismatch: stream %q in %s: expected %s, got %s",
		e.Stream, e.Shard, e.Expected, e.Actual)
}

func (e *ErrLayoutMismatch) Unwrap() error { return e.cause }

// Is reports whether target is ErrTypeLayoutMismatch.
func (e *ErrLayoutMismatch) Is(target error) bool { return target == ErrTypeLayoutMismatch }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var lm *toy.LayoutMismatchError
	if errors.As(err, &lm) {
		return &ErrLayoutMismatch{Stream: lm.Stream, Shard: lm.Shard, Expected: lm.Expected, Actual: lm.Actual, cause: err}
	}
	if errors.Is(err, record.ErrLayoutMismatch) || errors.Is(err, record.ErrUnsupportedType) {
		return fmt.Errorf("%w: %w", ErrTypeLayoutMismatch, err)
	}

	// Argument checks run first, so their wrapped causes (e.g. an invalid
	// name) stay secondary.
	if errors.Is(err, template.ErrArgumentMismatch) || errors.Is(err, toy.ErrArgumentMismatch) {
		return fmt.Errorf("%w: %w", ErrArgumentMismatch, err)
	}
	if errors.Is(err, template.ErrMissingKey) || errors.Is(err, toy.ErrMissingKey) {
		return fmt.Errorf("%w: %w", ErrMissingKey, err)
	}
	if errors.Is(err, toy.ErrStreamSetMismatch) {
		return fmt.Errorf("%w: %w", ErrStreamSetMismatch, err)
	}
	if errors.Is(err, toy.ErrNoShards) {
		return fmt.Errorf("%w: %w", ErrNoShards, err)
	}
	if errors.Is(err, capability.ErrMissing) {
		return fmt.Errorf("%w: %w", ErrCapabilityMissing, err)
	}
	if errors.Is(err, container.ErrInvalidName) {
		return fmt.Errorf("%w: %w", ErrInvalidName, err)
	}
	if errors.Is(err, container.ErrHDF5) {
		return fmt.Errorf("%w: %w", ErrHDF5Container, err)
	}
	if errors.Is(err, container.ErrCorrupt) || errors.Is(err, container.ErrUnsupportedVersion) {
		return fmt.Errorf("%w: %w", ErrCorruptContainer, err)
	}

	return err
}
