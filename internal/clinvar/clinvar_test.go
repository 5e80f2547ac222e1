package clinvar

import (
	"fmt"
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

func writeJSONL(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.jsonl")
	var buf []byte
	for _, l := range lines {
		buf = append(buf, l...)
		buf = append(buf, '\n')
	}
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func minimalLine(version int) string {
	return fmt.Sprintf(`{"accession":{"acc":"VCV000012345","version":%d},`+
		`"rcvs":[{"acc":"RCV000067890","version":2}],`+
		`"name":"NM_000059.4(BRCA2):c.1A>T","variation_type":"snv",`+
		`"classifications":["pathogenic"],`+
		`"sequence_location":{"chr":"1","start":1000,"ref":"A","alt":"T"},`+
		`"hgnc_ids":["HGNC:1101"]}`, version)
}

func importMinimalDB(t *testing.T, lines ...string) string {
	t.Helper()
	input := writeJSONL(t, lines...)
	dbPath := filepath.Join(t.TempDir(), "db")
	s, err := store.OpenReadWrite(dbPath, store.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, ImportMinimal(s, MinimalImportConfig{}, []string{input}, zap.NewNop()))
	job := ingest.NewJob("clinvar", "test", "grch37", []string{MinimalCF, MinimalByVCV, MinimalByRCV}, zap.NewNop())
	require.NoError(t, job.Finish(s))
	return dbPath
}

func TestMinimalAccessionAndPointAgree(t *testing.T) {
	dbPath := importMinimalDB(t, minimalLine(1))

	db, err := OpenMinimal(dbPath)
	require.NoError(t, err)
	defer db.Close()

	byAcc, err := db.QueryAccession("VCV000012345")
	require.NoError(t, err)
	require.NotNil(t, byAcc)

	byVar, err := db.QueryVariant(keys.GRCh37, keys.Variant{Chrom: "1", Pos: 1000, Ref: "A", Alt: "T"})
	require.NoError(t, err)
	require.NotNil(t, byVar)

	assert.Equal(t, byVar, byAcc)
	assert.Equal(t, "VCV000012345", byAcc.Accession.Acc)
	assert.Equal(t, int32(1), byAcc.Accession.Version)

	// The RCV index resolves to the same record.
	byRCV, err := db.QueryAccession("RCV000067890")
	require.NoError(t, err)
	assert.Equal(t, byAcc, byRCV)
}

func TestMinimalReimportOverwrites(t *testing.T) {
	// A later version of the same accession replaces the record.
	dbPath := importMinimalDB(t, minimalLine(1), minimalLine(2))

	db, err := OpenMinimal(dbPath)
	require.NoError(t, err)
	defer db.Close()

	rec, err := db.QueryAccession("VCV000012345")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int32(2), rec.Accession.Version)
}

func TestMinimalSkipsLongAlleles(t *testing.T) {
	longRef := ""
	for i := 0; i < 60; i++ {
		longRef += "A"
	}
	line := fmt.Sprintf(`{"accession":{"acc":"VCV000000001","version":1},`+
		`"sequence_location":{"chr":"1","start":500,"ref":"%s","alt":"T"}}`, longRef)
	dbPath := importMinimalDB(t, line)

	db, err := OpenMinimal(dbPath)
	require.NoError(t, err)
	defer db.Close()

	rec, err := db.QueryAccession("VCV000000001")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestParseLineLenient(t *testing.T) {
	line := `{"accession":{"acc":"VCV000000002","version":1},` +
		`"name": None,"variation_type":'snv',` +
		`"sequence_location":{"chr":"1","start":1,"ref":"A","alt":"C"}}`

	// Strict mode rejects the dialect.
	_, err := ParseLine([]byte(line), false)
	require.Error(t, err)

	// Lenient mode accepts it.
	rec, err := ParseLine([]byte(line), true)
	require.NoError(t, err)
	assert.Equal(t, "snv", rec.VariationType)
	assert.Equal(t, "", rec.Name)
}

func TestSvImportAndOverlap(t *testing.T) {
	line := `{"accession":{"acc":"VCV000099999","version":1},` +
		`"variation_type":"copy number loss",` +
		`"classifications":["pathogenic"],` +
		`"sequence_location":{"chr":"1","start":1000,"stop":5000}}`
	input := writeJSONL(t, line)

	dbPath := filepath.Join(t.TempDir(), "db")
	s, err := store.OpenReadWrite(dbPath, store.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, ImportSv(s, SvImportConfig{}, []string{input}, zap.NewNop()))
	job := ingest.NewJob("clinvar-sv", "test", "grch37", []string{SvCF, SvByVCV, SvByRCV}, zap.NewNop())
	require.NoError(t, job.Finish(s))

	db, err := OpenSv(dbPath)
	require.NoError(t, err)
	defer db.Close()

	recs, err := db.QueryRange(keys.GRCh37, keys.Interval{Chrom: "1", Start: 2000, Stop: 3000})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "VCV000099999", recs[0].Accession.Acc)

	recs, err = db.QueryRange(keys.GRCh37, keys.Interval{Chrom: "1", Start: 6000, Stop: 7000})
	require.NoError(t, err)
	assert.Empty(t, recs)

	rec, err := db.QueryAccession("VCV000099999")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, uint32(1000), rec.SequenceLocation.Start)
}

func TestGenesAggregate(t *testing.T) {
	input := writeJSONL(t, minimalLine(1), minimalLine(2))

	dbPath := filepath.Join(t.TempDir(), "db")
	s, err := store.OpenReadWrite(dbPath, store.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, ImportGenes(s, false, []string{input}, zap.NewNop()))
	job := ingest.NewJob("clinvar-genes", "test", "grch37", []string{GenesCF}, zap.NewNop())
	require.NoError(t, job.Finish(s))

	db, err := OpenGenes(dbPath)
	require.NoError(t, err)
	defer db.Close()

	rec, err := db.QueryGene("HGNC:1101")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, uint32(2), rec.TotalVariants)
	assert.Equal(t, uint32(2), rec.CountsBySignificance["pathogenic"])
	assert.Equal(t, uint32(2), rec.CountsByType["snv"])

	rec, err = db.QueryGene("HGNC:9999")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
