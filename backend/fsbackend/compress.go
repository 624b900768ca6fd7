package fsbackend

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/goabstract/refdb/ginternals"
	"github.com/goabstract/refdb/ginternals/object"
	"github.com/goabstract/refdb/internal/lockfile"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// Compress folds all the loose references into the packed-refs file
// and removes the loose files it absorbed.
//
// The packed-refs file is fully committed on disk before any loose
// file is unlinked, so a crash in between leaves every name readable:
// the surviving loose file holds the same value as its packed twin
// and simply shadows it until the next compaction
func (b *Backend) Compress() error {
	if err := b.refreshPackedRefs(); err != nil {
		return err
	}
	if err := b.absorbLooseRefs(); err != nil {
		return err
	}
	return b.writePackedRefsToDisk()
}

// absorbLooseRefs walks the refs directory and overlays every loose
// reference on top of the cached packed entries. Absorbed entries
// are flagged so their loose file gets pruned once the packed-refs
// file is committed
func (b *Backend) absorbLooseRefs() error {
	refsPath := ginternals.RefsPath(b.config)
	return afero.Walk(b.fs, refsPath, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			// a repo with no reference yet has no refs directory
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
		// leftover locks from dead writers are not references
		if strings.HasSuffix(name, lockfile.Suffix) {
			return nil
		}

		entry, err := b.looseRefToPacked(name)
		if err != nil {
			return err
		}
		b.cache.refs[name] = entry
		return nil
	})
}

// writePackedRefsToDisk resolves the missing peels, writes the cache
// to the packed-refs file, then prunes the loose files that were
// absorbed into it
func (b *Backend) writePackedRefsToDisk() error {
	list := sortPackedRefs(b.cache.refs)

	for _, entry := range list {
		if err := b.findPeel(entry); err != nil {
			return err
		}
	}

	path := ginternals.PackedRefsPath(b.config)
	f, err := lockfile.New(b.fs, path, false)
	if err != nil {
		return xerrors.Errorf("could not lock %s: %w", path, err)
	}
	defer f.Cleanup()

	if err = writePackedRefs(f, b.cache.refs); err != nil {
		return err
	}
	if err = f.Commit(b.config.FileMode()); err != nil {
		return xerrors.Errorf("could not commit %s: %w", path, err)
	}

	// the packed-refs file now holds a superset of the loose state,
	// removing the absorbed loose files is pure cleanup
	err = b.pruneLooseRefs(list)

	b.stampPackedRefs()
	return err
}

// findPeel resolves the peel of the entry's target, if it hasn't been
// resolved yet.
//
// The peel of a tag is the TagTarget reported by the object database
// for it; a tag targeting another tag is not followed further.
// Only tag objects get a peel; any other kind is flagged unpeelable,
// which is what lets the emitter truthfully declare its output
// fully-peeled. Without an object database nothing can be
// classified, so everything unresolved is flagged unpeelable
func (b *Backend) findPeel(entry *packedRef) error {
	if entry.has(packrefHasPeel) || entry.has(packrefCannotPeel) {
		return nil
	}

	if b.objects == nil {
		entry.flags |= packrefCannotPeel
		return nil
	}

	info, err := b.objects.ObjectInfo(entry.oid)
	if err != nil {
		return xerrors.Errorf("could not look up object %s targeted by %q: %w", entry.oid.String(), entry.name, err)
	}

	if info.Type == object.TypeTag {
		entry.peel = info.TagTarget
		entry.flags |= packrefHasPeel
		return nil
	}
	entry.flags |= packrefCannotPeel
	return nil
}

// pruneLooseRefs removes the loose files of the entries that were
// absorbed into the packed-refs file.
//
// A failed removal is not good, but we keep going and remove as many
// files as possible before reporting the failures in a single error
func (b *Backend) pruneLooseRefs(list []*packedRef) error {
	var failed []string
	var lastErr error

	for _, entry := range list {
		if !entry.has(packrefWasLoose) {
			continue
		}
		// the entry now belongs to the packed-refs file only
		entry.flags &^= packrefWasLoose
		path := b.systemPath(entry.name)
		if _, err := b.fs.Stat(path); err != nil {
			// already gone
			continue
		}
		if err := b.fs.Remove(path); err != nil {
			failed = append(failed, entry.name)
			lastErr = err
		}
	}

	if len(failed) > 0 {
		return xerrors.Errorf("could not remove loose refs %s after packing: %w", strings.Join(failed, ", "), lastErr)
	}
	return nil
}
