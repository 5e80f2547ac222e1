package query

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/store"
)

type ivRecord struct {
	Chrom string `json:"chrom"`
	Start uint32 `json:"start"`
	Stop  uint32 `json:"stop"`
	ID    string `json:"id"`
}

func decodeIV(_, value []byte) (ivRecord, error) {
	var r ivRecord
	err := json.Unmarshal(value, &r)
	return r, err
}

// buildIntervalDB stores the given intervals in the interval+bin layout.
func buildIntervalDB(t *testing.T, intervals []ivRecord) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db")
	s, err := store.OpenReadWrite(path, store.DefaultOptions())
	require.NoError(t, err)
	for _, r := range intervals {
		key, err := keys.EncodeInterval(
			keys.Interval{Chrom: r.Chrom, Start: r.Start, Stop: r.Stop}, []byte(r.ID))
		require.NoError(t, err)
		value, err := json.Marshal(r)
		require.NoError(t, err)
		require.NoError(t, s.Put("iv", key, value))
	}
	require.NoError(t, s.WriteMeta(map[string]string{
		store.MetaGenomeRelease: "grch37",
		store.MetaSchemaVersion: "1",
		store.MetaCFNames:       store.EncodeCFNames([]string{"iv"}),
	}))
	require.NoError(t, s.Close())

	ro, err := store.OpenReadOnly(path, []string{"iv"})
	require.NoError(t, err)
	t.Cleanup(func() { ro.Close() })
	return ro
}

func TestOverlapExactSemantics(t *testing.T) {
	// Intervals of wildly different sizes land in different bin levels;
	// the overlap query must return exactly the truly overlapping set.
	intervals := []ivRecord{
		{Chrom: "1", Start: 1_999_000, Stop: 2_000_500, ID: "left-edge"},
		{Chrom: "1", Start: 2_500_000, Stop: 2_500_100, ID: "inside"},
		{Chrom: "1", Start: 1, Stop: 100_000_000, ID: "huge"},
		{Chrom: "1", Start: 2_999_999, Stop: 5_000_000, ID: "right-edge"},
		{Chrom: "1", Start: 3_000_001, Stop: 3_000_100, ID: "past-stop"},
		{Chrom: "1", Start: 1_000_000, Stop: 1_999_999, ID: "before-start"},
		{Chrom: "2", Start: 2_500_000, Stop: 2_500_100, ID: "other-chrom"},
	}
	s := buildIntervalDB(t, intervals)

	got, err := Overlap(s, "iv", keys.GRCh37,
		keys.Interval{Chrom: "1", Start: 2_000_000, Stop: 3_000_000}, decodeIV)
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, r := range got {
		ids[r.ID] = true
	}
	assert.Equal(t, map[string]bool{
		"left-edge":  true,
		"inside":     true,
		"huge":       true,
		"right-edge": true,
	}, ids)
}

func TestOverlapAssemblyCheckedFirst(t *testing.T) {
	s := buildIntervalDB(t, nil)
	_, err := Overlap(s, "iv", keys.GRCh38,
		keys.Interval{Chrom: "1", Start: 1, Stop: 100}, decodeIV)
	assert.True(t, errors.Is(err, annoerr.ErrAssemblyMismatch), "got %v", err)
}

func TestAccessionConsistency(t *testing.T) {
	// Every accession entry must resolve to a primary hit.
	path := filepath.Join(t.TempDir(), "db")
	s, err := store.OpenReadWrite(path, store.DefaultOptions())
	require.NoError(t, err)
	primaryKey, err := keys.EncodeVariant(keys.Variant{Chrom: "1", Pos: 1000, Ref: "A", Alt: "T"})
	require.NoError(t, err)
	require.NoError(t, s.Put("data", primaryKey, []byte(`{"chrom":"1","start":1000,"stop":1000,"id":"rs1"}`)))
	require.NoError(t, s.Put("data_by_accession", []byte("rs1"), primaryKey))
	require.NoError(t, s.WriteMeta(map[string]string{
		store.MetaGenomeRelease: "grch37",
		store.MetaCFNames:       store.EncodeCFNames([]string{"data", "data_by_accession"}),
	}))
	require.NoError(t, s.Close())

	ro, err := store.OpenReadOnly(path, []string{"data", "data_by_accession"})
	require.NoError(t, err)
	defer ro.Close()

	it, err := ro.IteratePrefix("data_by_accession", nil)
	require.NoError(t, err)
	defer it.Close()
	for it.Next() {
		primary, err := ro.Get("data", it.Value())
		require.NoError(t, err)
		assert.NotNil(t, primary, "accession %q dangles", it.Key())
	}
	require.NoError(t, it.Err())

	rec, err := Accession(ro, "data_by_accession", "data", "rs1", decodeIV)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "rs1", rec.ID)

	// Misses are nil, not errors.
	rec, err = Accession(ro, "data_by_accession", "data", "rs2", decodeIV)
	require.NoError(t, err)
	assert.Nil(t, rec)
}
