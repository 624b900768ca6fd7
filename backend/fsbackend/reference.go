package fsbackend

import (
	"errors"
	"os"
	"strings"

	"github.com/goabstract/refdb/ginternals"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Exists checks whether a reference exists, either as a loose file or
// in the packed-refs file
func (b *Backend) Exists(name string) (bool, error) {
	if err := b.refreshPackedRefs(); err != nil {
		return false, err
	}

	fi, err := b.fs.Stat(b.systemPath(name))
	switch {
	case err == nil:
		if fi.Mode().IsRegular() {
			return true, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return false, xerrors.Errorf("could not check if ref %q exists on disk: %w", name, err)
	}

	_, ok := b.cache.refs[name]
	return ok, nil
}

// Reference returns a stored reference from its name. Symbolic
// references are returned as-is, without being followed.
//
// The loose file wins over the packed-refs file when the name exists
// in both stores.
// ErrRefNotFound is returned if the reference doesn't exists
func (b *Backend) Reference(name string) (*ginternals.Reference, error) {
	ref, err := b.readLooseRef(name)
	if err == nil {
		return ref, nil
	}
	// only fall back on the packed-refs file when the reference has
	// no loose file; any other failure is critical
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if err = b.refreshPackedRefs(); err != nil {
		return nil, err
	}
	entry, ok := b.cache.refs[name]
	if !ok {
		return nil, xerrors.Errorf("ref %q: %w", name, ginternals.ErrRefNotFound)
	}
	return ginternals.NewReferenceWithPeel(entry.name, entry.oid, entry.peel), nil
}

// ResolveReference returns the reference the given name resolves to,
// following symbolic references
func (b *Backend) ResolveReference(name string) (*ginternals.Reference, error) {
	finder := func(name string) ([]byte, error) {
		data, err := afero.ReadFile(b.fs, b.systemPath(name))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, xerrors.Errorf("could not read reference content: %w", err)
		}
		// the reference might be in the packed-refs file
		if err = b.refreshPackedRefs(); err != nil {
			return nil, err
		}
		entry, ok := b.cache.refs[name]
		if !ok {
			return nil, xerrors.Errorf("ref %q: %w", name, ginternals.ErrRefNotFound)
		}
		return []byte(entry.oid.String()), nil
	}
	return ginternals.ResolveReference(name, finder)
}

// WriteReference writes the given reference on disk. If the
// reference already exists it will be overwritten
func (b *Backend) WriteReference(ref *ginternals.Reference) error {
	return b.writeReference(ref, true)
}

// WriteReferenceSafe writes the given reference in the db.
// ErrRefExists is returned if the reference already exists
func (b *Backend) WriteReferenceSafe(ref *ginternals.Reference) error {
	return b.writeReference(ref, false)
}

func (b *Backend) writeReference(ref *ginternals.Reference, force bool) error {
	if !ginternals.IsRefNameValid(ref.Name()) {
		return xerrors.Errorf("ref %q: %w", ref.Name(), ginternals.ErrRefNameInvalid)
	}
	if err := b.referencePathAvailable(ref.Name(), "", force); err != nil {
		return err
	}
	// a possibly stale packed entry of the same name is left alone:
	// the loose file shadows it, and the next Compress() will
	// overwrite it
	return b.writeLooseRef(ref)
}

// DeleteReference removes a reference from both the loose files and
// the packed-refs file.
// ErrRefNotFound is returned if the reference existed in neither
func (b *Backend) DeleteReference(name string) error {
	looseDeleted := false

	path := b.systemPath(name)
	fi, err := b.fs.Stat(path)
	switch {
	case err == nil:
		if fi.Mode().IsRegular() {
			if err = b.fs.Remove(path); err != nil {
				return xerrors.Errorf("could not remove loose ref %q: %w", name, err)
			}
			looseDeleted = true
		}
	case !errors.Is(err, os.ErrNotExist):
		return xerrors.Errorf("could not check the loose file of ref %q: %w", name, err)
	}

	if err = b.refreshPackedRefs(); err != nil {
		return err
	}
	if _, ok := b.cache.refs[name]; !ok {
		if looseDeleted {
			return nil
		}
		return xerrors.Errorf("ref %q: %w", name, ginternals.ErrRefNotFound)
	}

	delete(b.cache.refs, name)
	return b.writePackedRefsToDisk()
}

// RenameReference renames oldName to newName and returns the renamed
// reference.
//
// The rename is not atomic: the old reference is deleted before the
// new one is written, and a failure in between surfaces with the old
// reference already gone
func (b *Backend) RenameReference(oldName, newName string, force bool) (*ginternals.Reference, error) {
	if !ginternals.IsRefNameValid(newName) {
		return nil, xerrors.Errorf("ref %q: %w", newName, ginternals.ErrRefNameInvalid)
	}
	if err := b.referencePathAvailable(newName, oldName, force); err != nil {
		return nil, err
	}

	old, err := b.Reference(oldName)
	if err != nil {
		return nil, err
	}
	if err = b.DeleteReference(oldName); err != nil {
		return nil, err
	}

	var renamed *ginternals.Reference
	switch old.Type() {
	case ginternals.SymbolicReference:
		renamed = ginternals.NewSymbolicReference(newName, old.SymbolicTarget())
	default:
		renamed = ginternals.NewReferenceWithPeel(newName, old.Target(), old.Peel())
	}

	if err = b.writeLooseRef(renamed); err != nil {
		return nil, xerrors.Errorf("could not write ref %q after deleting %q: %w", newName, oldName, err)
	}
	return renamed, nil
}

// referencePathAvailable checks that name can be written without
// conflicting with an existing reference. oldName is the name the
// reference holds during a rename, and is allowed to conflict.
//
// The collision scan inspects packed entries only; a loose-only
// collision is caught by the directory/file mismatch when the loose
// file is written
func (b *Backend) referencePathAvailable(name, oldName string, force bool) error {
	if err := b.refreshPackedRefs(); err != nil {
		return err
	}

	if !force {
		exists, err := b.Exists(name)
		if err != nil {
			return err
		}
		if exists {
			return xerrors.Errorf("ref %q: %w", name, ginternals.ErrRefExists)
		}
	}

	for _, entry := range b.cache.refs {
		if oldName != "" && entry.name == oldName {
			continue
		}
		if refNamesCollide(name, entry.name) {
			return xerrors.Errorf("ref %q collides with %q: %w", name, entry.name, ginternals.ErrRefCollision)
		}
	}
	return nil
}

// refNamesCollide returns whether one name is a proper prefix of the
// other with a '/' at the boundary.
// Ex. refs/heads/ml collides with refs/heads/ml/feat, but not with
// refs/heads/ml2
func refNamesCollide(a, b string) bool {
	if len(a) == len(b) {
		// same name is shadowing, not a collision
		return false
	}
	short, long := a, b
	if len(b) < len(a) {
		short, long = b, a
	}
	return strings.HasPrefix(long, short) && long[len(short)] == '/'
}
