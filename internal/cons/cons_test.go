package cons

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/ingest"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/store"
)

func buildDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "cons.tsv")
	content := "#chrom\tstart\tstop\tenst_id\n" +
		"1\t1000\t1100\tENST00000001\n" +
		"1\t1000\t1100\tENST00000002\n" +
		"1\t5000\t5100\tENST00000003\n"
	require.NoError(t, os.WriteFile(input, []byte(content), 0o644))

	dbPath := filepath.Join(dir, "db")
	s, err := store.OpenReadWrite(dbPath, store.BulkOptions())
	require.NoError(t, err)
	require.NoError(t, Import(s, input, zap.NewNop()))
	job := ingest.NewJob("cons", "test", "grch37", []string{CF}, zap.NewNop())
	require.NoError(t, job.Finish(s))
	return dbPath
}

func TestPositionCarriesAllTranscripts(t *testing.T) {
	db, err := Open(buildDB(t))
	require.NoError(t, err)
	defer db.Close()

	recs, err := db.QueryPosition(keys.GRCh37, "1", 1000)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "ENST00000001", recs[0].EnstID)
	assert.Equal(t, "ENST00000002", recs[1].EnstID)
}

func TestRangeQuery(t *testing.T) {
	db, err := Open(buildDB(t))
	require.NoError(t, err)
	defer db.Close()

	recs, err := db.QueryRange(keys.GRCh37, keys.Interval{Chrom: "1", Start: 900, Stop: 4000})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = db.QueryRange(keys.GRCh37, keys.Interval{Chrom: "1", Start: 6000, Stop: 7000})
	require.NoError(t, err)
	assert.Empty(t, recs)
}
