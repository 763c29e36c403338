package baseline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetharvest/grfkit/fingerprint"
)

func sampleRecords() []fingerprint.Record {
	return []fingerprint.Record{
		{Path: "data/b.spr", Digest: digest.FromBytes([]byte("bravo")), Size: 5},
		{Path: `data\A.spr`, Digest: digest.FromBytes([]byte("alpha")), Size: 5},
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Replace(sampleRecords()))
	assert.Equal(t, 2, s.Len())

	// Lookups normalize, and so does the stored path.
	r, ok := s.Get(`DATA\a.spr`)
	require.True(t, ok)
	assert.Equal(t, "data/a.spr", r.Path)
	assert.Equal(t, digest.FromBytes([]byte("alpha")), r.Digest)

	_, ok = s.Get("data/missing.spr")
	assert.False(t, ok)

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "data/a.spr", records[0].Path)
	assert.Equal(t, "data/b.spr", records[1].Path)

	// Replace swaps the whole set.
	require.NoError(t, s.Replace(nil))
	assert.Equal(t, 0, s.Len())
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "audit.baseline")

	s, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Replace(sampleRecords()))

	reloaded, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, s.Records(), reloaded.Records())

	r, ok := reloaded.Get("data/a.spr")
	require.True(t, ok)
	assert.Equal(t, int64(5), r.Size)
}

func TestFileStoreBadFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.baseline")
	require.NoError(t, os.WriteFile(path, []byte("not a baseline"), 0o644))

	_, err := OpenFile(path)
	assert.ErrorIs(t, err, ErrBadFormat)
}
