package fsbackend

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/goabstract/refdb/backend"
	"github.com/goabstract/refdb/ginternals"
	"github.com/goabstract/refdb/internal/lockfile"
	"github.com/gobwas/glob"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// we make sure the struct implements the interface
var _ backend.ReferenceIterator = (*Iterator)(nil)

// Iterator walks the merged loose and packed reference namespace.
//
// Construction captures a consistent snapshot: the loose names found
// under the refs directory, an owning copy of the packed entries, and
// the set of packed names shadowed by a loose file. The backend's
// cache is neither mutated nor refreshed during a walk, so the
// iterator is immune to cache rebuilds happening between operations.
//
// Every name is yielded at most once, the loose value winning over
// the packed one
type Iterator struct {
	backend *Backend
	glob    glob.Glob

	loose    []string
	loosePos int

	packed    []*packedRef
	packedPos int

	// shadowed contains the snapshotted loose names, which override
	// their packed twin
	shadowed map[string]struct{}
}

// Iterator returns an iterator over all the references whose name
// matches the given glob pattern. An empty pattern matches everything
func (b *Backend) Iterator(pattern string) (backend.ReferenceIterator, error) {
	if err := b.refreshPackedRefs(); err != nil {
		return nil, err
	}

	it := &Iterator{
		backend:  b,
		shadowed: map[string]struct{}{},
	}

	if pattern != "" {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, xerrors.Errorf("could not compile glob %q: %w", pattern, err)
		}
		it.glob = g
	}

	if err := it.snapshotLooseNames(); err != nil {
		return nil, err
	}
	// an owning copy of the entries: a cache rebuild must not move
	// the ground under a running walk
	it.packed = sortPackedRefs(b.cache.refs)

	return it, nil
}

// snapshotLooseNames captures the names of the loose references
// reachable under the refs directory, skipping leftover lock files
// and names failing the glob
func (it *Iterator) snapshotLooseNames() error {
	b := it.backend
	refsPath := ginternals.RefsPath(b.config)

	return afero.Walk(b.fs, refsPath, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			if path == refsPath && errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return xerrors.Errorf("could not walk %s: %w", path, err)
		}
		if info.IsDir() {
			return nil
		}

		name, err := b.refName(path)
		if err != nil {
			return err
		}
		if strings.HasSuffix(name, lockfile.Suffix) {
			return nil
		}
		if it.glob != nil && !it.glob.Match(name) {
			return nil
		}

		it.loose = append(it.loose, name)
		it.shadowed[name] = struct{}{}
		return nil
	})
}

// Next returns the next reference.
// ginternals.ErrIterOver is returned once every reference has been
// yielded
func (it *Iterator) Next() (*ginternals.Reference, error) {
	for it.loosePos < len(it.loose) {
		name := it.loose[it.loosePos]
		it.loosePos++

		// unreadable entries are skipped, not fatal: the snapshot
		// may be stale by the time we get here
		ref, err := it.backend.readLooseRef(name)
		if err != nil {
			continue
		}
		return ref, nil
	}

	for it.packedPos < len(it.packed) {
		entry := it.packed[it.packedPos]
		it.packedPos++

		if _, ok := it.shadowed[entry.name]; ok {
			continue
		}
		if it.glob != nil && !it.glob.Match(entry.name) {
			continue
		}
		return ginternals.NewReferenceWithPeel(entry.name, entry.oid, entry.peel), nil
	}

	return nil, ginternals.ErrIterOver
}

// NextName returns the name of the next reference.
// ginternals.ErrIterOver is returned once every reference has been
// yielded
func (it *Iterator) NextName() (string, error) {
	for it.loosePos < len(it.loose) {
		name := it.loose[it.loosePos]
		it.loosePos++

		// same rule as Next(): unreadable entries are skipped
		if _, err := it.backend.readLooseRef(name); err != nil {
			continue
		}
		return name, nil
	}

	for it.packedPos < len(it.packed) {
		entry := it.packed[it.packedPos]
		it.packedPos++

		if _, ok := it.shadowed[entry.name]; ok {
			continue
		}
		if it.glob != nil && !it.glob.Match(entry.name) {
			continue
		}
		return entry.name, nil
	}

	return "", ginternals.ErrIterOver
}

// WalkReferences runs the provided method on all the references
// matching the given glob pattern.
// Returning backend.WalkStop from the callback halts the walk early
// without error
func (b *Backend) WalkReferences(pattern string, f backend.RefWalkFunc) error {
	it, err := b.Iterator(pattern)
	if err != nil {
		return err
	}

	for {
		ref, err := it.Next()
		if err != nil {
			if errors.Is(err, ginternals.ErrIterOver) {
				return nil
			}
			return err
		}
		if err = f(ref); err != nil {
			if errors.Is(err, backend.WalkStop) {
				return nil
			}
			return err
		}
	}
}
