package tsvio

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

// importTestDB imports the given TSV content and returns the database path.
func importTestDB(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "scores.tsv")
	require.NoError(t, os.WriteFile(input, []byte(content), 0o644))

	cfg := ImportConfig{Infer: DefaultInferConfig(), CFName: DefaultCF, Workers: 1}
	logger := zap.NewNop()

	schema, err := InferSchemas([]string{input}, cfg.Infer, nil, logger)
	require.NoError(t, err)
	codec, err := NewCodec(cfg.Infer, schema)
	require.NoError(t, err)

	dbPath := filepath.Join(dir, "db")
	s, err := store.OpenReadWrite(dbPath, store.BulkOptions())
	require.NoError(t, err)
	require.NoError(t, Import(s, cfg, codec, []string{input}, logger))

	job := ingest.NewJob("test-tsv", "1.0", "grch37", []string{cfg.CFName}, logger)
	job.Extra = MetaEntries(cfg, schema)
	require.NoError(t, job.Finish(s))
	return dbPath
}

const twoRowTSV = "CHROM\tPOS\tREF\tALT\tSCORE\n" +
	"1\t1000\tA\tT\t0.5\n" +
	"1\t1000\tA\tC\t0.8\n"

func TestImportAndPositionQuery(t *testing.T) {
	dbPath := importTestDB(t, twoRowTSV)

	db, err := Open(dbPath, DefaultCF)
	require.NoError(t, err)
	defer db.Close()

	// Both rows share the position; alt-lex order puts C before T.
	rows, err := db.QueryPosition(keys.GRCh37, "1", 1000)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "C", rows[0].Values["ALT"])
	assert.Equal(t, 0.8, rows[0].Values["SCORE"])
	assert.Equal(t, "T", rows[1].Values["ALT"])
	assert.Equal(t, 0.5, rows[1].Values["SCORE"])
}

func TestImportVariantQueryRoundTrip(t *testing.T) {
	dbPath := importTestDB(t, twoRowTSV)

	db, err := Open(dbPath, DefaultCF)
	require.NoError(t, err)
	defer db.Close()

	row, err := db.QueryVariant(keys.GRCh37, keys.Variant{Chrom: "1", Pos: 1000, Ref: "A", Alt: "T"})
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "1\t1000\tA\tT\t0.5", row.Line)

	// Missing variants are nil, not errors.
	row, err = db.QueryVariant(keys.GRCh37, keys.Variant{Chrom: "1", Pos: 1000, Ref: "A", Alt: "G"})
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestImportAssemblyMismatch(t *testing.T) {
	dbPath := importTestDB(t, twoRowTSV)

	db, err := Open(dbPath, DefaultCF)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.QueryPosition(keys.GRCh38, "1", 1000)
	assert.Error(t, err)
}

func TestImportIdempotent(t *testing.T) {
	// Re-running ingest on byte-identical input yields identical contents.
	dbPath1 := importTestDB(t, twoRowTSV)
	dbPath2 := importTestDB(t, twoRowTSV)

	db1, err := Open(dbPath1, DefaultCF)
	require.NoError(t, err)
	defer db1.Close()
	db2, err := Open(dbPath2, DefaultCF)
	require.NoError(t, err)
	defer db2.Close()

	var rows1, rows2 []Row
	require.NoError(t, db1.QueryAll(func(r Row) error { rows1 = append(rows1, r); return nil }))
	require.NoError(t, db2.QueryAll(func(r Row) error { rows2 = append(rows2, r); return nil }))
	assert.Equal(t, rows1, rows2)
}

func TestImportRangeQuery(t *testing.T) {
	content := "CHROM\tPOS\tREF\tALT\tSCORE\n" +
		"1\t500\tA\tT\t0.1\n" +
		"1\t1000\tA\tT\t0.2\n" +
		"1\t1500\tA\tT\t0.3\n" +
		"1\t2000\tA\tT\t0.4\n"
	dbPath := importTestDB(t, content)

	db, err := Open(dbPath, DefaultCF)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.QueryRange(keys.GRCh37, keys.Interval{Chrom: "1", Start: 1000, Stop: 1500})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0.2, rows[0].Values["SCORE"])
	assert.Equal(t, 0.3, rows[1].Values["SCORE"])
}
