package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bibentry/src/internal/schema"
)

func TestFileStoreMissingFileYieldsDefaults(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "state", "new-entry.yaml"))
	p, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), p)
	assert.True(t, p.IDLookupGuessing)
	assert.Equal(t, "create-entry", p.Approach)
	assert.Equal(t, schema.TypeArticle, p.LastInstantType)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new-entry.yaml")
	s := NewFileStore(path)
	want := Preferences{Approach: "lookup-identifier", LastInstantType: schema.TypeBook, IDLookupGuessing: false, LastFetcher: "ISBN"}
	require.NoError(t, s.Save(want))

	got, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "id_lookup_guessing: false")
}

func TestFileStoreLastWriteWins(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "p.yaml"))
	for _, a := range []string{"lookup-identifier", "specify-format", "interpret-citations"} {
		p := Defaults()
		p.Approach = a
		require.NoError(t, s.Save(p))
	}
	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "interpret-citations", got.Approach)
}

func TestFileStorePartialAndCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.yaml")
	require.NoError(t, os.WriteFile(path, []byte("approach: specify-format\nlast_instant_type: movie\n"), 0o644))
	got, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "specify-format", got.Approach)
	assert.Equal(t, schema.TypeArticle, got.LastInstantType, "unknown type falls back")
	assert.True(t, got.IDLookupGuessing, "absent flag keeps the default")

	require.NoError(t, os.WriteFile(path, []byte("approach: [oops"), 0o644))
	got, err = NewFileStore(path).Load()
	require.Error(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(nil)
	p, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), p)
	p.LastFetcher = "DOI"
	require.NoError(t, s.Save(p))
	got, _ := s.Load()
	assert.Equal(t, "DOI", got.LastFetcher)
	assert.Equal(t, 1, s.Saves())
}
