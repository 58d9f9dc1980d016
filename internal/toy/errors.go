package toy

import (
	"errors"
	"fmt"

	"github.com/hupe1980/histostore/container"
)

var (
	// ErrArgumentMismatch is returned for unusable write inputs.
	ErrArgumentMismatch = errors.New("toy: argument mismatch")
	// ErrMissingKey is returned when a requested stream is absent from a shard.
	ErrMissingKey = errors.New("toy: missing stream")
	// ErrStreamSetMismatch is returned when a shard's streams differ from the
	// first shard's and no explicit stream names were given.
	ErrStreamSetMismatch = errors.New("toy: stream set mismatch")
	// ErrNoShards is returned when a pattern matches nothing.
	ErrNoShards = errors.New("toy: no shards match")
	// ErrTypeLayoutMismatch is matched by every *LayoutMismatchError.
	ErrTypeLayoutMismatch = errors.New("toy: record layout mismatch")
)

// LayoutMismatchError reports a stream whose record layout in Shard differs
// from the layout of the first shard.
type LayoutMismatchError struct {
	Stream   string
	Shard    string
	Expected container.DType
	Actual   container.DType
}

func (e *LayoutMismatchError) Error() string {
	return fmt.Sprintf("toy: stream %q in %s has layout %s, expected %s", e.Stream, e.Shard, e.Actual, e.Expected)
}

// Is reports whether target is ErrTypeLayoutMismatch.
func (e *LayoutMismatchError) Is(target error) bool { return target == ErrTypeLayoutMismatch }
