package fsbackend

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goabstract/refdb/ginternals"
	"github.com/goabstract/refdb/ginternals/githash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePackedRefs(t *testing.T) {
	t.Parallel()

	oidA := strings.Repeat("a", githash.OidHexSize)
	oidB := strings.Repeat("b", githash.OidHexSize)
	oidC := strings.Repeat("c", githash.OidHexSize)

	t.Run("Should accept an empty file", func(t *testing.T) {
		t.Parallel()

		refs, mode, err := parsePackedRefs(nil)
		require.NoError(t, err)
		assert.Empty(t, refs)
		assert.Equal(t, peelingNone, mode)
	})

	t.Run("Should parse entries without a header", func(t *testing.T) {
		t.Parallel()

		data := oidA + " refs/heads/master\n" + oidB + " refs/heads/feature\n"
		refs, mode, err := parsePackedRefs([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, peelingNone, mode)
		require.Len(t, refs, 2)
		assert.Equal(t, oidA, refs["refs/heads/master"].oid.String())
		assert.Equal(t, oidB, refs["refs/heads/feature"].oid.String())
		assert.False(t, refs["refs/heads/master"].has(packrefCannotPeel))
	})

	t.Run("Should accept a last entry without a newline", func(t *testing.T) {
		t.Parallel()

		refs, _, err := parsePackedRefs([]byte(oidA + " refs/heads/master"))
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, oidA, refs["refs/heads/master"].oid.String())
	})

	t.Run("Should tolerate CRLF line endings", func(t *testing.T) {
		t.Parallel()

		data := oidA + " refs/heads/master\r\n^" + oidB + "\r\n"
		refs, _, err := parsePackedRefs([]byte(data))
		require.NoError(t, err)
		require.Len(t, refs, 1)
		ref := refs["refs/heads/master"]
		assert.Equal(t, oidA, ref.oid.String())
		assert.True(t, ref.has(packrefHasPeel))
		assert.Equal(t, oidB, ref.peel.String())
	})

	t.Run("Should attach a peel line to its entry", func(t *testing.T) {
		t.Parallel()

		data := "# pack-refs with: peeled fully-peeled \n" +
			oidA + " refs/tags/annotated\n" +
			"^" + oidC + "\n" +
			oidB + " refs/heads/master\n"
		refs, mode, err := parsePackedRefs([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, peelingFull, mode)
		require.Len(t, refs, 2)

		tag := refs["refs/tags/annotated"]
		assert.True(t, tag.has(packrefHasPeel))
		assert.False(t, tag.has(packrefCannotPeel))
		assert.Equal(t, oidC, tag.peel.String())

		// no peel line under fully-peeled means the entry is known
		// unpeelable
		master := refs["refs/heads/master"]
		assert.False(t, master.has(packrefHasPeel))
		assert.True(t, master.has(packrefCannotPeel))
	})

	t.Run("Should flag only tags under the peeled trait", func(t *testing.T) {
		t.Parallel()

		data := "# pack-refs with: peeled \n" +
			oidA + " refs/tags/v1\n" +
			oidB + " refs/heads/master\n"
		refs, mode, err := parsePackedRefs([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, peelingStandard, mode)
		assert.True(t, refs["refs/tags/v1"].has(packrefCannotPeel))
		assert.False(t, refs["refs/heads/master"].has(packrefCannotPeel))
	})

	t.Run("Should recognize fully-peeled without surrounding traits", func(t *testing.T) {
		t.Parallel()

		data := "# pack-refs with: fully-peeled\n" +
			oidA + " refs/tags/v1\n"
		refs, mode, err := parsePackedRefs([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, peelingFull, mode)
		assert.True(t, refs["refs/tags/v1"].has(packrefCannotPeel))
	})

	t.Run("Should skip comment lines before the entries", func(t *testing.T) {
		t.Parallel()

		data := "# pack-refs with: peeled \n# some comment\n# another one\n" +
			oidA + " refs/heads/master\n"
		refs, _, err := parsePackedRefs([]byte(data))
		require.NoError(t, err)
		require.Len(t, refs, 1)
	})

	t.Run("Should keep the last value of a duplicated name", func(t *testing.T) {
		t.Parallel()

		data := oidA + " refs/heads/master\n" + oidB + " refs/heads/master\n"
		refs, _, err := parsePackedRefs([]byte(data))
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, oidB, refs["refs/heads/master"].oid.String())
	})

	t.Run("corruption", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			desc string
			data string
		}{
			{"non-hex oid", strings.Repeat("z", githash.OidHexSize) + " refs/heads/x\n"},
			{"uppercase oid", strings.ToUpper(oidA) + " refs/heads/x\n"},
			{"missing separator", oidA + "refs/heads/x\n"},
			{"tab separator", oidA + "\trefs/heads/x\n"},
			{"truncated oid", "abc refs/heads/x\n"},
			{"orphan peel line", "^" + oidA + "\n"},
			{"peel line after comment", "# comment\n^" + oidA + "\n"},
			{"double peel line", oidA + " refs/tags/v1\n^" + oidB + "\n^" + oidC + "\n"},
			{"truncated peel oid", oidA + " refs/tags/v1\n^abc\n"},
			{"garbage after peel oid", oidA + " refs/tags/v1\n^" + oidB + "x\n"},
			{"unterminated traits header", "# pack-refs with: peeled"},
			{"unterminated comment", "# pack-refs with: peeled \n# comment"},
		}
		for i, tc := range testCases {
			tc := tc
			i := i
			t.Run(tc.desc, func(t *testing.T) {
				t.Parallel()

				_, _, err := parsePackedRefs([]byte(tc.data))
				require.Error(t, err, "case %d should have failed", i)
				assert.ErrorIs(t, err, ginternals.ErrPackedRefInvalid)
			})
		}
	})
}

func TestWritePackedRefs(t *testing.T) {
	t.Parallel()

	oidA := strings.Repeat("a", githash.OidHexSize)
	oidB := strings.Repeat("b", githash.OidHexSize)
	oidC := strings.Repeat("c", githash.OidHexSize)

	newRef := func(t *testing.T, name, oid string, flags packrefFlag, peel string) *packedRef {
		t.Helper()
		ref := &packedRef{name: name, flags: flags}
		var err error
		ref.oid, err = githash.NewOidFromStr(oid)
		require.NoError(t, err)
		if peel != "" {
			ref.peel, err = githash.NewOidFromStr(peel)
			require.NoError(t, err)
		}
		return ref
	}

	t.Run("Should write only the header for an empty set", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		require.NoError(t, writePackedRefs(&buf, map[string]*packedRef{}))
		assert.Equal(t, "# pack-refs with: peeled fully-peeled \n", buf.String())
	})

	t.Run("Should write the entries sorted by name", func(t *testing.T) {
		t.Parallel()

		refs := map[string]*packedRef{
			"refs/tags/v1":      newRef(t, "refs/tags/v1", oidA, packrefHasPeel, oidC),
			"refs/heads/master": newRef(t, "refs/heads/master", oidB, packrefCannotPeel, ""),
		}
		var buf bytes.Buffer
		require.NoError(t, writePackedRefs(&buf, refs))

		expected := "# pack-refs with: peeled fully-peeled \n" +
			oidB + " refs/heads/master\n" +
			oidA + " refs/tags/v1\n" +
			"^" + oidC + "\n"
		assert.Equal(t, expected, buf.String())
	})

	t.Run("Should round-trip through the parser", func(t *testing.T) {
		t.Parallel()

		refs := map[string]*packedRef{
			"refs/heads/master": newRef(t, "refs/heads/master", oidB, packrefCannotPeel, ""),
			"refs/tags/v1":      newRef(t, "refs/tags/v1", oidA, packrefHasPeel, oidC),
			"refs/tags/v2":      newRef(t, "refs/tags/v2", oidC, packrefCannotPeel, ""),
		}
		var buf bytes.Buffer
		require.NoError(t, writePackedRefs(&buf, refs))

		parsed, mode, err := parsePackedRefs(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, peelingFull, mode)
		require.Len(t, parsed, len(refs))

		for name, ref := range refs {
			got, ok := parsed[name]
			require.True(t, ok, "missing %s", name)
			assert.Equal(t, ref.oid, got.oid)
			assert.Equal(t, ref.has(packrefHasPeel), got.has(packrefHasPeel))
			if ref.has(packrefHasPeel) {
				assert.Equal(t, ref.peel, got.peel)
			} else {
				// the emitter claims fully-peeled, so the parser
				// knows these entries cannot be peeled
				assert.True(t, got.has(packrefCannotPeel))
			}
		}
	})
}
