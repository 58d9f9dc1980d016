package fs

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrFinished is returned when writing to an AtomicFile after Commit or Discard.
var ErrFinished = errors.New("fs: file already committed or discarded")

// File is the write side of an open file.
type File interface {
	io.WriteCloser
	Sync() error
}

// FileSystem is the subset of file system calls container writers need.
type FileSystem interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
	MkdirAll(path string, perm os.FileMode) error
}

// TempMarker is part of every temp file name; listings skip such files.
const TempMarker = ".tmp-"

// OS is the FileSystem backed by package os.
type OS struct{}

func (OS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	return os.OpenFile(name, flag, perm)
}

func (OS) Remove(name string) error                     { return os.Remove(name) }
func (OS) Rename(oldpath, newpath string) error         { return os.Rename(oldpath, newpath) }
func (OS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

// Default is the file system used when none is configured.
var Default FileSystem = OS{}

// TempName returns a hidden, unique sibling of target, e.g.
// "dir/.template.hsc.tmp-<uuid>". Keeping it in the same directory makes the
// final rename atomic.
func TempName(target string) string {
	dir, base := filepath.Split(target)
	return filepath.Join(dir, "."+base+TempMarker+uuid.NewString())
}

// AtomicFile writes to a temporary sibling of its target. The target only
// changes when Commit succeeds; every failure path removes the temp file.
type AtomicFile struct {
	fsys   FileSystem
	f      File
	tmp    string
	target string
	done   bool
}

// CreateAtomic creates target's parent directories and an exclusive temp file.
func CreateAtomic(fsys FileSystem, target string) (*AtomicFile, error) {
	if fsys == nil {
		fsys = Default
	}
	if err := fsys.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, err
	}
	tmp := TempName(target)
	f, err := fsys.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &AtomicFile{fsys: fsys, f: f, tmp: tmp, target: target}, nil
}

// TempPath returns the path currently being written.
func (a *AtomicFile) TempPath() string { return a.tmp }

func (a *AtomicFile) Write(p []byte) (int, error) {
	if a.done {
		return 0, ErrFinished
	}
	return a.f.Write(p)
}

func (a *AtomicFile) Sync() error {
	if a.done {
		return ErrFinished
	}
	return a.f.Sync()
}

// Commit syncs, closes and renames the temp file over the target.
func (a *AtomicFile) Commit() error {
	if a.done {
		return ErrFinished
	}
	a.done = true
	err := a.f.Sync()
	if closeErr := a.f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = a.fsys.Rename(a.tmp, a.target)
	}
	if err != nil {
		_ = a.fsys.Remove(a.tmp)
	}
	return err
}

// Discard closes and removes the temp file. It is a no-op once finished.
func (a *AtomicFile) Discard() error {
	if a.done {
		return nil
	}
	a.done = true
	err := a.f.Close()
	if rmErr := a.fsys.Remove(a.tmp); err == nil {
		err = rmErr
	}
	return err
}
