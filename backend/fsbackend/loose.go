package fsbackend

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	"github.com/goabstract/refdb/ginternals"
	"github.com/goabstract/refdb/ginternals/githash"
	"github.com/goabstract/refdb/internal/lockfile"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// readLooseRef reads and parses the loose file of the given
// reference.
// os.ErrNotExist is kept matchable so callers can fall back on the
// packed-refs file
func (b *Backend) readLooseRef(name string) (*ginternals.Reference, error) {
	path := b.systemPath(name)
	data, err := afero.ReadFile(b.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, xerrors.Errorf("no loose file for ref %q: %w", name, err)
		}
		return nil, xerrors.Errorf("could not read reference content at %s: %w", path, err)
	}

	if bytes.HasPrefix(data, []byte(ginternals.SymrefPrefix)) {
		content := bytes.TrimRight(data, " \t\n\v\f\r")
		if len(content) <= len(ginternals.SymrefPrefix) {
			return nil, xerrors.Errorf("%s: %w", path, ginternals.ErrLooseRefInvalid)
		}
		target := string(content[len(ginternals.SymrefPrefix):])
		return ginternals.NewSymbolicReference(name, target), nil
	}

	oid, err := parseLooseOid(data)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", path, ginternals.ErrLooseRefInvalid)
	}
	return ginternals.NewReference(name, oid), nil
}

// parseLooseOid parses the content of a direct loose reference file:
// 40 lowercase-hex chars, optionally followed by a whitespace char.
// Only the byte right after the oid is checked; what follows it is
// ignored
func parseLooseOid(data []byte) (githash.Oid, error) {
	if len(data) < githash.OidHexSize {
		return githash.NullOid, githash.ErrInvalidOid
	}
	oid, err := parseRefOid(data[:githash.OidHexSize])
	if err != nil {
		return githash.NullOid, err
	}
	if len(data) > githash.OidHexSize && !isSpace(data[githash.OidHexSize]) {
		return githash.NullOid, githash.ErrInvalidOid
	}
	return oid, nil
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}

// writeLooseRef persists the given reference as a loose file,
// committing through a lock file so concurrent readers never see a
// partial write
func (b *Backend) writeLooseRef(ref *ginternals.Reference) error {
	var content string
	switch ref.Type() {
	case ginternals.SymbolicReference:
		content = ginternals.SymrefPrefix + ref.SymbolicTarget() + "\n"
	case ginternals.OidReference:
		content = ref.Target().String() + "\n"
	default:
		return xerrors.Errorf("reference type %d: %w", ref.Type(), ginternals.ErrUnknownRefType)
	}

	path := b.systemPath(ref.Name())

	// A deleted hierarchy may have left an empty directory where the
	// file goes. Non-empty directories are left alone: the commit
	// below will fail on them
	if err := removeEmptyDirHierarchy(b.fs, path); err != nil {
		return xerrors.Errorf("could not clear the path of ref %q: %w", ref.Name(), err)
	}

	if err := b.fs.MkdirAll(filepath.Dir(path), b.config.DirMode()); err != nil {
		return xerrors.Errorf("could not create the directories of ref %q: %w", ref.Name(), err)
	}

	f, err := lockfile.New(b.fs, path, true)
	if err != nil {
		return xerrors.Errorf("could not lock ref %q: %w", ref.Name(), err)
	}
	defer f.Cleanup()

	if _, err = f.Write([]byte(content)); err != nil {
		return xerrors.Errorf("could not write ref %q: %w", ref.Name(), err)
	}
	if err = f.Commit(b.config.FileMode()); err != nil {
		return xerrors.Errorf("could not persist ref %q: %w", ref.Name(), err)
	}
	return nil
}

// removeEmptyDirHierarchy removes the directory at path if it
// contains nothing but empty directories. Directories holding any
// file are skipped without error
func removeEmptyDirHierarchy(fs afero.Fs, path string) error {
	fi, err := fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return xerrors.Errorf("could not stat %s: %w", path, err)
	}
	if !fi.IsDir() {
		return nil
	}

	entries, err := afero.ReadDir(fs, path)
	if err != nil {
		return xerrors.Errorf("could not list %s: %w", path, err)
	}

	empty := true
	for _, e := range entries {
		if !e.IsDir() {
			empty = false
			continue
		}
		sub := filepath.Join(path, e.Name())
		if err = removeEmptyDirHierarchy(fs, sub); err != nil {
			return err
		}
		// a non-empty subdir survived the removal
		if _, err = fs.Stat(sub); err == nil {
			empty = false
		}
	}

	if !empty {
		return nil
	}
	if err = fs.Remove(path); err != nil {
		return xerrors.Errorf("could not remove empty directory %s: %w", path, err)
	}
	return nil
}

// looseRefToPacked reads the loose file of the given reference and
// converts it to a packed entry scheduled for pruning.
// Only direct references can be packed: a symbolic reference under
// refs/ surfaces as corruption
func (b *Backend) looseRefToPacked(name string) (*packedRef, error) {
	path := b.systemPath(name)
	data, err := afero.ReadFile(b.fs, path)
	if err != nil {
		return nil, xerrors.Errorf("could not read reference content at %s: %w", path, err)
	}

	oid, err := parseLooseOid(bytes.TrimRight(data, " \t\n\v\f\r"))
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", path, ginternals.ErrLooseRefInvalid)
	}

	return &packedRef{
		name:  name,
		oid:   oid,
		flags: packrefWasLoose,
	}, nil
}
