package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annokv/annokv/internal/annoerr"
)

// newTestDB creates a populated database with metadata so it can be
// re-opened read-only.
func newTestDB(t *testing.T, cfs []string, fill func(*Store)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db")
	s, err := OpenReadWrite(path, DefaultOptions())
	require.NoError(t, err)
	if fill != nil {
		fill(s)
	}
	require.NoError(t, s.WriteMeta(map[string]string{
		MetaDBName:        "test",
		MetaDBVersion:     "1.0",
		MetaSchemaVersion: "1",
		MetaGenomeRelease: "grch37",
		MetaCFNames:       EncodeCFNames(cfs),
	}))
	require.NoError(t, s.CompactAll())
	require.NoError(t, s.Close())
	return path
}

func TestOpenReadOnlyMissingDirectory(t *testing.T) {
	_, err := OpenReadOnly(filepath.Join(t.TempDir(), "nope"), nil)
	assert.True(t, errors.Is(err, annoerr.ErrNotFound), "got %v", err)
}

func TestOpenReadOnlyMissingMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	s, err := OpenReadWrite(path, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, s.Put("data", []byte("k"), []byte("v")))
	require.NoError(t, s.Close())

	// No metadata was written; the directory counts as in-progress.
	_, err = OpenReadOnly(path, nil)
	assert.True(t, errors.Is(err, annoerr.ErrNotFound), "got %v", err)
}

func TestOpenReadOnlyMissingCF(t *testing.T) {
	path := newTestDB(t, []string{"data"}, nil)
	_, err := OpenReadOnly(path, []string{"data", "data_by_accession"})
	assert.True(t, errors.Is(err, annoerr.ErrNotFound), "got %v", err)
}

func TestGetPutRoundTrip(t *testing.T) {
	path := newTestDB(t, []string{"data"}, func(s *Store) {
		require.NoError(t, s.Put("data", []byte("key1"), []byte("value1")))
	})
	s, err := OpenReadOnly(path, []string{"data"})
	require.NoError(t, err)
	defer s.Close()

	val, err := s.Get("data", []byte("key1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), val)

	// Absent keys return nil without error.
	val, err = s.Get("data", []byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestColumnFamiliesAreDisjoint(t *testing.T) {
	path := newTestDB(t, []string{"a", "b"}, func(s *Store) {
		require.NoError(t, s.Put("a", []byte("k"), []byte("from-a")))
		require.NoError(t, s.Put("b", []byte("k"), []byte("from-b")))
	})
	s, err := OpenReadOnly(path, []string{"a", "b"})
	require.NoError(t, err)
	defer s.Close()

	va, err := s.Get("a", []byte("k"))
	require.NoError(t, err)
	vb, err := s.Get("b", []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("from-a"), va)
	assert.Equal(t, []byte("from-b"), vb)
}

func TestIteratePrefixOrdered(t *testing.T) {
	path := newTestDB(t, []string{"data"}, func(s *Store) {
		b := s.NewBatch()
		require.NoError(t, b.Set("data", []byte{1, 0, 0, 0, 2}, []byte("second")))
		require.NoError(t, b.Set("data", []byte{1, 0, 0, 0, 1}, []byte("first")))
		require.NoError(t, b.Set("data", []byte{2, 0, 0, 0, 1}, []byte("other-chrom")))
		require.NoError(t, b.Commit())
	})
	s, err := OpenReadOnly(path, []string{"data"})
	require.NoError(t, err)
	defer s.Close()

	it, err := s.IteratePrefix("data", []byte{1})
	require.NoError(t, err)
	defer it.Close()

	var values []string
	for it.Next() {
		values = append(values, string(it.Value()))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"first", "second"}, values)
}

func TestIterateRange(t *testing.T) {
	path := newTestDB(t, []string{"data"}, func(s *Store) {
		for _, k := range []byte{10, 20, 30, 40} {
			require.NoError(t, s.Put("data", []byte{k}, []byte{k}))
		}
	})
	s, err := OpenReadOnly(path, []string{"data"})
	require.NoError(t, err)
	defer s.Close()

	it, err := s.IterateRange("data", []byte{15}, []byte{35})
	require.NoError(t, err)
	defer it.Close()

	var got []byte
	for it.Next() {
		got = append(got, it.Key()[0])
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []byte{20, 30}, got)
}

func TestCheckAssembly(t *testing.T) {
	path := newTestDB(t, []string{"data"}, nil)
	s, err := OpenReadOnly(path, []string{"data"})
	require.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.CheckAssembly("GRCh37"))
	assert.NoError(t, s.CheckAssembly("grch37"))
	err = s.CheckAssembly("grch38")
	assert.True(t, errors.Is(err, annoerr.ErrAssemblyMismatch), "got %v", err)
}

func TestSchemaVersionRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	s, err := OpenReadWrite(path, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, s.WriteMeta(map[string]string{
		MetaGenomeRelease: "grch37",
		MetaSchemaVersion: "999",
	}))
	require.NoError(t, s.Close())

	_, err = OpenReadOnly(path, nil)
	assert.True(t, errors.Is(err, annoerr.ErrStore), "got %v", err)
}

func TestLastWriteWins(t *testing.T) {
	path := newTestDB(t, []string{"data"}, func(s *Store) {
		require.NoError(t, s.Put("data", []byte("k"), []byte("old")))
		require.NoError(t, s.Put("data", []byte("k"), []byte("new")))
	})
	s, err := OpenReadOnly(path, []string{"data"})
	require.NoError(t, err)
	defer s.Close()

	val, err := s.Get("data", []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), val)
}
