package fsbackend

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goabstract/refdb/ginternals"
	"github.com/goabstract/refdb/ginternals/githash"
	"golang.org/x/xerrors"
)

const (
	// packedTraitsPrefix is the prefix of the optional traits header
	// of the packed-refs file
	packedTraitsPrefix = "# pack-refs with: "

	// packedRefsHeader is the header written by the emitter. The
	// trailing space is part of the format
	packedRefsHeader = packedTraitsPrefix + "peeled fully-peeled "

	// Recognized traits
	traitPeeled      = "peeled"
	traitFullyPeeled = "fully-peeled"

	refsTagsPrefix = "refs/tags/"
)

// packrefFlag is a set of independent flags attached to a packed
// entry. hasPeel and cannotPeel are mutually exclusive; wasLoose
// crosses with both
type packrefFlag uint8

const (
	// packrefHasPeel means peel is populated and authoritative
	packrefHasPeel packrefFlag = 1 << iota
	// packrefCannotPeel means peeling was attempted or declared
	// impossible (non-tag target, or declared unpeelable by the
	// traits header)
	packrefCannotPeel
	// packrefWasLoose means the entry originated from a loose file
	// during the current compaction, and the loose file is scheduled
	// for deletion once the packed-refs file is committed
	packrefWasLoose
)

// packedRef represents a single entry of the packed-refs file
type packedRef struct {
	name  string
	oid   githash.Oid
	peel  githash.Oid
	flags packrefFlag
}

func (r *packedRef) has(f packrefFlag) bool {
	return r.flags&f != 0
}

// peelingMode describes how much the packed-refs file declares itself
// peeled, which controls what can be inferred about entries that
// carry no peel line
type peelingMode int8

const (
	// peelingNone: nothing can be inferred
	peelingNone peelingMode = iota
	// peelingStandard: entries under refs/tags/ without a peel line
	// are known unpeelable
	peelingStandard
	// peelingFull: any entry without a peel line is known unpeelable
	peelingFull
)

// parsePackedRefs parses the content of a packed-refs file.
//
// The format is line oriented:
//   - an optional traits header ("# pack-refs with: " followed by
//     space-separated traits)
//   - any number of leading comment lines starting with #
//   - one entry per line, "<40-hex-oid> <name>", optionally followed
//     by a peel line "^<40-hex-oid>" that belongs to the entry above
//
// \r\n line endings are tolerated. The last line may be terminated by
// the end of the buffer instead of a newline.
// ginternals.ErrPackedRefInvalid is returned on any malformed content
func parsePackedRefs(data []byte) (refs map[string]*packedRef, mode peelingMode, err error) {
	refs = map[string]*packedRef{}
	mode = peelingNone

	buf := data
	if bytes.HasPrefix(buf, []byte(packedTraitsPrefix)) {
		nl := bytes.IndexByte(buf, '\n')
		if nl < 0 {
			return nil, mode, xerrors.Errorf("traits header is not terminated: %w", ginternals.ErrPackedRefInvalid)
		}
		mode = parseTraits(string(buf[len(packedTraitsPrefix):nl]))
		buf = buf[nl+1:]
	}

	// anything else starting with # is a comment, skipped until the
	// first entry
	for len(buf) > 0 && buf[0] == '#' {
		nl := bytes.IndexByte(buf, '\n')
		if nl < 0 {
			return nil, mode, xerrors.Errorf("comment line is not terminated: %w", ginternals.ErrPackedRefInvalid)
		}
		buf = buf[nl+1:]
	}

	for len(buf) > 0 {
		var ref *packedRef
		ref, buf, err = parsePackedEntry(buf)
		if err != nil {
			return nil, mode, err
		}

		switch {
		case len(buf) > 0 && buf[0] == '^':
			buf, err = parsePackedPeel(ref, buf)
			if err != nil {
				return nil, mode, err
			}
		case mode == peelingFull,
			mode == peelingStandard && strings.HasPrefix(ref.name, refsTagsPrefix):
			ref.flags |= packrefCannotPeel
		}

		refs[ref.name] = ref
	}

	return refs, mode, nil
}

// parseTraits returns the peeling mode declared by the traits header
func parseTraits(traits string) peelingMode {
	var peeled, fullyPeeled bool
	for _, trait := range strings.Fields(traits) {
		switch trait {
		case traitPeeled:
			peeled = true
		case traitFullyPeeled:
			fullyPeeled = true
		}
	}
	switch {
	case fullyPeeled:
		return peelingFull
	case peeled:
		return peelingStandard
	default:
		return peelingNone
	}
}

// parsePackedEntry parses a single "<oid> <name>" line and returns
// the entry along with the remaining buffer
func parsePackedEntry(buf []byte) (*packedRef, []byte, error) {
	// we need at least the oid, the separator, and one byte of name
	// or line terminator
	if len(buf) <= githash.OidHexSize+1 {
		return nil, nil, xerrors.Errorf("truncated entry: %w", ginternals.ErrPackedRefInvalid)
	}
	if buf[githash.OidHexSize] != ' ' {
		return nil, nil, xerrors.Errorf("invalid entry separator: %w", ginternals.ErrPackedRefInvalid)
	}
	oid, err := parseRefOid(buf[:githash.OidHexSize])
	if err != nil {
		return nil, nil, xerrors.Errorf("invalid entry oid: %w", ginternals.ErrPackedRefInvalid)
	}

	rest := buf[githash.OidHexSize+1:]
	var next []byte
	nameEnd := bytes.IndexByte(rest, '\n')
	if nameEnd < 0 {
		// the entry is terminated by the end of the buffer
		nameEnd = len(rest)
		next = nil
	} else {
		next = rest[nameEnd+1:]
	}
	name := rest[:nameEnd]
	if len(name) > 0 && name[len(name)-1] == '\r' {
		name = name[:len(name)-1]
	}

	return &packedRef{
		name: string(name),
		oid:  oid,
	}, next, nil
}

// parsePackedPeel parses a "^<oid>" line into the entry it follows,
// and returns the remaining buffer.
// buf must start with '^'
func parsePackedPeel(ref *packedRef, buf []byte) ([]byte, error) {
	buf = buf[1:]
	if len(buf) < githash.OidHexSize {
		return nil, xerrors.Errorf("truncated peel line: %w", ginternals.ErrPackedRefInvalid)
	}
	peel, err := parseRefOid(buf[:githash.OidHexSize])
	if err != nil {
		return nil, xerrors.Errorf("invalid peel oid: %w", ginternals.ErrPackedRefInvalid)
	}
	buf = buf[githash.OidHexSize:]

	if len(buf) > 0 && buf[0] == '\r' {
		buf = buf[1:]
	}
	if len(buf) > 0 {
		if buf[0] != '\n' {
			return nil, xerrors.Errorf("peel line is not terminated: %w", ginternals.ErrPackedRefInvalid)
		}
		buf = buf[1:]
	}

	ref.peel = peel
	ref.flags |= packrefHasPeel
	return buf, nil
}

// parseRefOid parses the 40 lowercase-hex chars representation of an
// oid, as found in ref files and in the packed-refs file
func parseRefOid(buf []byte) (githash.Oid, error) {
	if len(buf) != githash.OidHexSize {
		return githash.NullOid, githash.ErrInvalidOid
	}
	for _, c := range buf {
		isDigit := c >= '0' && c <= '9'
		isHexLower := c >= 'a' && c <= 'f'
		if !isDigit && !isHexLower {
			return githash.NullOid, githash.ErrInvalidOid
		}
	}
	return githash.NewOidFromChars(buf)
}

// writePackedRefs writes the given entries to w in the packed-refs
// format: the traits header first, then the entries sorted by name.
// The emitter always peels what it writes, so the header always
// declares both the peeled and fully-peeled traits
func writePackedRefs(w io.Writer, refs map[string]*packedRef) error {
	if _, err := io.WriteString(w, packedRefsHeader+"\n"); err != nil {
		return xerrors.Errorf("could not write the packed-refs header: %w", err)
	}

	for _, ref := range sortPackedRefs(refs) {
		var err error
		if ref.has(packrefHasPeel) {
			_, err = fmt.Fprintf(w, "%s %s\n^%s\n", ref.oid.String(), ref.name, ref.peel.String())
		} else {
			_, err = fmt.Fprintf(w, "%s %s\n", ref.oid.String(), ref.name)
		}
		if err != nil {
			return xerrors.Errorf("could not write entry for %s: %w", ref.name, err)
		}
	}
	return nil
}

// sortPackedRefs returns the entries of refs as a list sorted by name
func sortPackedRefs(refs map[string]*packedRef) []*packedRef {
	list := make([]*packedRef, 0, len(refs))
	for _, ref := range refs {
		list = append(list, ref)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].name < list[j].name
	})
	return list
}
