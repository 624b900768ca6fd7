package fsbackend

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goabstract/refdb/ginternals"
	"github.com/goabstract/refdb/ginternals/githash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLooseRef(t *testing.T) {
	t.Parallel()

	oidA := strings.Repeat("a", githash.OidHexSize)

	writeRaw := func(t *testing.T, dir, name, content string) {
		t.Helper()
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	t.Run("Should read a direct reference", func(t *testing.T) {
		t.Parallel()

		b, dir := newTestBackend(t, nil)
		writeRaw(t, dir, "refs/heads/master", oidA+"\n")

		ref, err := b.readLooseRef("refs/heads/master")
		require.NoError(t, err)
		assert.Equal(t, ginternals.OidReference, ref.Type())
		assert.Equal(t, oidA, ref.Target().String())
	})

	t.Run("Should read a direct reference without a trailing newline", func(t *testing.T) {
		t.Parallel()

		b, dir := newTestBackend(t, nil)
		writeRaw(t, dir, "refs/heads/master", oidA)

		ref, err := b.readLooseRef("refs/heads/master")
		require.NoError(t, err)
		assert.Equal(t, oidA, ref.Target().String())
	})

	t.Run("Should read a symbolic reference", func(t *testing.T) {
		t.Parallel()

		b, dir := newTestBackend(t, nil)
		writeRaw(t, dir, "HEAD", "ref: refs/heads/master\n")

		ref, err := b.readLooseRef("HEAD")
		require.NoError(t, err)
		assert.Equal(t, ginternals.SymbolicReference, ref.Type())
		assert.Equal(t, "refs/heads/master", ref.SymbolicTarget())
	})

	t.Run("Should keep os.ErrNotExist matchable", func(t *testing.T) {
		t.Parallel()

		b, _ := newTestBackend(t, nil)
		_, err := b.readLooseRef("refs/heads/nope")
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("corruption", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			desc    string
			content string
		}{
			{"too short and not symbolic", "abc123\n"},
			{"non-hex content", strings.Repeat("z", githash.OidHexSize) + "\n"},
			{"garbage after the oid", oidA + "x\n"},
			{"symbolic prefix without a target", "ref: \n"},
		}
		for _, tc := range testCases {
			tc := tc
			t.Run(tc.desc, func(t *testing.T) {
				t.Parallel()

				b, dir := newTestBackend(t, nil)
				writeRaw(t, dir, "refs/heads/broken", tc.content)

				_, err := b.readLooseRef("refs/heads/broken")
				require.Error(t, err)
				assert.ErrorIs(t, err, ginternals.ErrLooseRefInvalid)
			})
		}
	})
}

func TestWriteLooseRef(t *testing.T) {
	t.Parallel()

	t.Run("Should serialize a direct reference", func(t *testing.T) {
		t.Parallel()

		b, dir := newTestBackend(t, nil)
		oid := repeatOid(t, "a")
		require.NoError(t, b.writeLooseRef(ginternals.NewReference("refs/heads/master", oid)))

		data, err := os.ReadFile(filepath.Join(dir, "refs", "heads", "master"))
		require.NoError(t, err)
		assert.Equal(t, oid.String()+"\n", string(data))
	})

	t.Run("Should serialize a symbolic reference", func(t *testing.T) {
		t.Parallel()

		b, dir := newTestBackend(t, nil)
		require.NoError(t, b.writeLooseRef(ginternals.NewSymbolicReference("HEAD", "refs/heads/master")))

		data, err := os.ReadFile(filepath.Join(dir, "HEAD"))
		require.NoError(t, err)
		assert.Equal(t, "ref: refs/heads/master\n", string(data))
	})

	t.Run("Should not leave a lock file behind", func(t *testing.T) {
		t.Parallel()

		b, dir := newTestBackend(t, nil)
		require.NoError(t, b.writeLooseRef(ginternals.NewReference("refs/heads/master", repeatOid(t, "a"))))

		_, err := os.Stat(filepath.Join(dir, "refs", "heads", "master.lock"))
		require.Error(t, err)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Should replace an empty directory hierarchy", func(t *testing.T) {
		t.Parallel()

		b, dir := newTestBackend(t, nil)
		// a deleted hierarchy left empty directories where the file goes
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "refs", "heads", "master", "sub"), 0o755))

		require.NoError(t, b.writeLooseRef(ginternals.NewReference("refs/heads/master", repeatOid(t, "a"))))

		fi, err := os.Stat(filepath.Join(dir, "refs", "heads", "master"))
		require.NoError(t, err)
		assert.True(t, fi.Mode().IsRegular())
	})

	t.Run("Should fail on a non-empty directory", func(t *testing.T) {
		t.Parallel()

		b, dir := newTestBackend(t, nil)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "refs", "heads", "master"), 0o755))
		content := strings.Repeat("b", githash.OidHexSize) + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "refs", "heads", "master", "sub"), []byte(content), 0o644))

		err := b.writeLooseRef(ginternals.NewReference("refs/heads/master", repeatOid(t, "a")))
		require.Error(t, err)

		// the nested reference is untouched
		_, err = os.Stat(filepath.Join(dir, "refs", "heads", "master", "sub"))
		assert.NoError(t, err)
	})
}
