package container

import "errors"

var (
	// ErrNotFound is returned when a group, dataset or attribute does not exist.
	ErrNotFound = errors.New("container: not found")
	// ErrExists is returned when creating a child whose name is already taken.
	ErrExists = errors.New("container: already exists")
	// ErrInvalidName is returned for empty names or names containing '/'.
	ErrInvalidName = errors.New("container: invalid name")
	// ErrCorrupt is returned when the file is not a valid container.
	ErrCorrupt = errors.New("container: corrupt file")
	// ErrHDF5 is returned when the file is an HDF5 file rather than a
	// histostore container. The h5 package converts such files.
	ErrHDF5 = errors.New("container: HDF5 file, not a histostore container")
	// ErrUnsupportedVersion is returned for containers written by a newer format version.
	ErrUnsupportedVersion = errors.New("container: unsupported format version")
	// ErrSizeMismatch is returned when raw data does not match dtype and shape.
	ErrSizeMismatch = errors.New("container: data size does not match type and shape")
	// ErrInvalidType is returned for malformed element types.
	ErrInvalidType = errors.New("container: invalid element type")
	// ErrNotNumeric is returned when a numeric read is attempted on a non-numeric dataset.
	ErrNotNumeric = errors.New("container: dataset is not numeric")
	// ErrClosed is returned when using a writer after Close or Abort.
	ErrClosed = errors.New("container: writer is closed")
	// ErrNotGroup is returned when a path element resolves to a dataset instead of a group.
	ErrNotGroup = errors.New("container: not a group")
)
