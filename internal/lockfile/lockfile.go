// Package lockfile provides a file writer that commits its content
// atomically through a companion lock file.
//
// The content is first written to <path>.lock, then the lock file is
// renamed into place. Until Commit() runs, the target file is left
// untouched. Cleanup() must run on every exit path so a failed write
// doesn't leave a stale lock behind
package lockfile

import (
	"errors"
	"os"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Suffix is appended to the target path to build the lock file path
const Suffix = ".lock"

var (
	// ErrLocked is returned when the lock file already exists,
	// meaning another writer is (or was) working on the same target
	ErrLocked = errors.New("file is locked")

	// ErrClosed is returned when writing to a File that has already
	// been committed or cleaned up
	ErrClosed = errors.New("lock file already closed")
)

// File represents a file being written through a lock file
type File struct {
	fs       afero.Fs
	path     string
	lockPath string
	file     afero.File
	done     bool
}

// New creates the lock file for path and opens it for writing.
// When force is set, a leftover lock from a dead writer is reclaimed
// instead of failing with ErrLocked
func New(fs afero.Fs, path string, force bool) (*File, error) {
	lockPath := path + Suffix

	if force {
		err := fs.Remove(lockPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, xerrors.Errorf("could not reclaim lock %s: %w", lockPath, err)
		}
	}

	f, err := fs.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, xerrors.Errorf("%s: %w", lockPath, ErrLocked)
		}
		return nil, xerrors.Errorf("could not create lock %s: %w", lockPath, err)
	}

	return &File{
		fs:       fs,
		path:     path,
		lockPath: lockPath,
		file:     f,
	}, nil
}

// Write writes the given content to the lock file
func (f *File) Write(p []byte) (int, error) {
	if f.done {
		return 0, ErrClosed
	}
	return f.file.Write(p)
}

// Commit flushes the lock file to disk and atomically renames it
// onto the target path, with the given file mode
func (f *File) Commit(mode os.FileMode) error {
	if f.done {
		return ErrClosed
	}

	err := f.file.Sync()
	if closeErr := f.file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		f.done = true
		f.fs.Remove(f.lockPath) //nolint:errcheck // best effort
		return xerrors.Errorf("could not flush lock %s: %w", f.lockPath, err)
	}
	f.done = true

	if err = f.fs.Chmod(f.lockPath, mode); err != nil {
		f.fs.Remove(f.lockPath) //nolint:errcheck // best effort
		return xerrors.Errorf("could not chmod lock %s: %w", f.lockPath, err)
	}
	if err = f.fs.Rename(f.lockPath, f.path); err != nil {
		f.fs.Remove(f.lockPath) //nolint:errcheck // best effort
		return xerrors.Errorf("could not commit %s: %w", f.path, err)
	}
	return nil
}

// Cleanup removes the lock file if the content hasn't been committed
// yet. It's safe to defer on every path
func (f *File) Cleanup() {
	if f.done {
		return
	}
	f.discard()
}

func (f *File) discard() {
	f.done = true
	f.file.Close()          //nolint:errcheck // the lock is being thrown away
	f.fs.Remove(f.lockPath) //nolint:errcheck // best effort
}
