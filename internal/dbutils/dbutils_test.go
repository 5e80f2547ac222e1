package dbutils

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/store"
)

func buildSourceDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src")
	s, err := store.OpenReadWrite(path, store.DefaultOptions())
	require.NoError(t, err)
	for _, pos := range []uint32{1000, 2000, 3000} {
		key, err := keys.EncodeVariant(keys.Variant{Chrom: "1", Pos: pos, Ref: "A", Alt: "T"})
		require.NoError(t, err)
		require.NoError(t, s.Put("data", key, []byte("value")))
	}
	// A non-coordinate family comes along wholesale.
	require.NoError(t, s.Put("data_by_accession", []byte("rs1"), []byte("key")))
	require.NoError(t, s.WriteMeta(map[string]string{
		store.MetaDBName:        "src",
		store.MetaGenomeRelease: "grch37",
		store.MetaSchemaVersion: "1",
		store.MetaCFNames:       store.EncodeCFNames([]string{"data", "data_by_accession"}),
	}))
	require.NoError(t, s.Close())
	return path
}

func TestCopyAll(t *testing.T) {
	src := buildSourceDB(t)
	dest := filepath.Join(t.TempDir(), "dest")
	require.NoError(t, Copy(src, dest, CopySelection{All: true}, zap.NewNop()))

	s, err := store.OpenReadOnly(dest, []string{"data", "data_by_accession"})
	require.NoError(t, err)
	defer s.Close()

	it, err := s.IteratePrefix("data", nil)
	require.NoError(t, err)
	defer it.Close()
	count := 0
	for it.Next() {
		count++
	}
	assert.Equal(t, 3, count)

	name, err := s.MetaGet(store.MetaDBName)
	require.NoError(t, err)
	assert.Equal(t, "src", name)
}

func TestCopyRange(t *testing.T) {
	src := buildSourceDB(t)
	dest := filepath.Join(t.TempDir(), "dest")
	q, err := keys.ParseRangeQuery("GRCh37:1:1500:2500")
	require.NoError(t, err)
	require.NoError(t, Copy(src, dest, CopySelection{Range: &q}, zap.NewNop()))

	s, err := store.OpenReadOnly(dest, []string{"data"})
	require.NoError(t, err)
	defer s.Close()

	it, err := s.IteratePrefix("data", nil)
	require.NoError(t, err)
	defer it.Close()
	var positions []uint32
	for it.Next() {
		v, err := keys.DecodeVariant(it.Key())
		require.NoError(t, err)
		positions = append(positions, v.Pos)
	}
	assert.Equal(t, []uint32{2000}, positions)

	// The accession family is copied wholesale.
	val, err := s.Get("data_by_accession", []byte("rs1"))
	require.NoError(t, err)
	assert.NotNil(t, val)
}

func TestDumpMeta(t *testing.T) {
	src := buildSourceDB(t)
	var sb strings.Builder
	require.NoError(t, DumpMeta(src, &sb))
	out := sb.String()
	assert.True(t, strings.HasPrefix(out, "#key\tvalue\n"))
	assert.Contains(t, out, "db-name\tsrc")
	assert.Contains(t, out, "genome-release\tgrch37")
}
