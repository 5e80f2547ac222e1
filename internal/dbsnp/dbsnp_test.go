package dbsnp

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
	input := filepath.Join(dir, "dbsnp.vcf")
	content := "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
		"1\t1000\trs100\tA\tC,T\t.\tPASS\t.\n" +
		"2\t2000\trs200\tG\tA\t.\tPASS\t.\n"
	require.NoError(t, os.WriteFile(input, []byte(content), 0o644))

	dbPath := filepath.Join(dir, "db")
	s, err := store.OpenReadWrite(dbPath, store.BulkOptions())
	require.NoError(t, err)
	require.NoError(t, Import(s, input, zap.NewNop()))
	job := ingest.NewJob("dbsnp", "b156", "grch37", []string{CF, CFByAccession}, zap.NewNop())
	require.NoError(t, job.Finish(s))
	return dbPath
}

func TestAccessionResolvesToPrimary(t *testing.T) {
	db, err := Open(buildDB(t))
	require.NoError(t, err)
	defer db.Close()

	rec, err := db.QueryAccession("rs200")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "2", rec.Chrom)
	assert.Equal(t, uint32(2000), rec.Pos)

	// Multi-allelic sites index one canonical key per rs ID; the record
	// still resolves.
	rec, err = db.QueryAccession("rs100")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, uint32(1000), rec.Pos)

	rec, err = db.QueryAccession("rs999")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestPositionReturnsAllAlleles(t *testing.T) {
	db, err := Open(buildDB(t))
	require.NoError(t, err)
	defer db.Close()

	recs, err := db.QueryPosition(keys.GRCh37, "1", 1000)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "C", recs[0].Alt)
	assert.Equal(t, "T", recs[1].Alt)
}
