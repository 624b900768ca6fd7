package fsbackend

import (
	"errors"
	"os"
	"time"

	"github.com/goabstract/refdb/ginternals"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// refCache holds the in-memory view of the packed-refs file.
//
// The cache belongs to its backend and is refreshed at the start of
// every operation by comparing the packed-refs mtime with the last
// one seen. It's not a write-back buffer: mutations rewrite the
// packed-refs file and re-stamp the mtime.
// It is not safe for concurrent mutation
type refCache struct {
	// refs maps a ref name to its packed entry
	refs map[string]*packedRef
	// peeling is the mode declared by the file the cache was last
	// loaded from
	peeling peelingMode
	// mtime is the modification time the packed-refs file had when
	// it was last read
	mtime time.Time
}

// clear empties the cache. The next refresh will re-read the
// packed-refs file
func (c *refCache) clear() {
	c.refs = map[string]*packedRef{}
	c.peeling = peelingNone
	c.mtime = time.Time{}
}

// refreshPackedRefs makes sure the cache is up to date with the
// on-disk packed-refs file.
//
// If the file doesn't exist the cache ends up empty. If the file
// hasn't changed since the last read, nothing happens. On any parse
// failure the cache is left empty and the corruption is surfaced; a
// later call will attempt a fresh parse
func (b *Backend) refreshPackedRefs() error {
	path := ginternals.PackedRefsPath(b.config)

	fi, err := b.fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			b.cache.clear()
			return nil
		}
		return xerrors.Errorf("could not stat %s: %w", path, err)
	}

	if b.cache.refs != nil && fi.ModTime().Equal(b.cache.mtime) {
		return nil
	}

	data, err := afero.ReadFile(b.fs, path)
	if err != nil {
		return xerrors.Errorf("could not read %s: %w", path, err)
	}

	refs, mode, err := parsePackedRefs(data)
	if err != nil {
		b.cache.clear()
		return xerrors.Errorf("could not parse %s: %w", path, err)
	}

	b.cache.refs = refs
	b.cache.peeling = mode
	b.cache.mtime = fi.ModTime()
	return nil
}

// stampPackedRefs records the mtime of the freshly written
// packed-refs file, so the next refresh doesn't re-read a file whose
// content the cache already matches
func (b *Backend) stampPackedRefs() {
	fi, err := b.fs.Stat(ginternals.PackedRefsPath(b.config))
	if err != nil {
		// a failed stat only costs a re-read on the next operation
		b.cache.mtime = time.Time{}
		return
	}
	b.cache.mtime = fi.ModTime()
}
