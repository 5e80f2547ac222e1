package genes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/ingest"
	"github.com/annokv/annokv/internal/store"
)

func buildGeneDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	hgnc := filepath.Join(dir, "hgnc.jsonl")
	require.NoError(t, os.WriteFile(hgnc, []byte(
		`{"hgnc_id":"HGNC:20324","symbol":"TGDS","name":"TDP-glucose 4,6-dehydratase","entrez_id":"23483","ensembl_gene_id":"ENSG00000088451"}`+"\n"+
			`{"hgnc_id":"HGNC:1101","symbol":"BRCA2","name":"BRCA2 DNA repair associated","entrez_id":"675","ensembl_gene_id":"ENSG00000139618"}`+"\n"),
		0o644))

	constraints := filepath.Join(dir, "constraints.tsv")
	require.NoError(t, os.WriteFile(constraints, []byte(
		"gene\tpLI\toe_lof\toe_lof_upper\tmis_z\tsyn_z\n"+
			"BRCA2\t0.0\t0.51\t0.62\t0.5\t0.1\n"), 0o644))

	dosage := filepath.Join(dir, "dosage.tsv")
	require.NoError(t, os.WriteFile(dosage, []byte(
		"#Gene Symbol\tHGNC ID\tHaploinsufficiency Score\tTriplosensitivity Score\n"+
			"TGDS\tHGNC:20324\t3\tNot yet evaluated\n"), 0o644))

	dbPath := filepath.Join(dir, "db")
	s, err := store.OpenReadWrite(dbPath, store.DefaultOptions())
	require.NoError(t, err)
	cfg := ImportConfig{PathHgnc: hgnc, PathConstraints: constraints, PathDosage: dosage}
	require.NoError(t, Import(s, cfg, zap.NewNop()))
	job := ingest.NewJob("genes", "test", "grch37",
		[]string{CF, CFBySymbol, CFByNcbiID, CFByEnsembl}, zap.NewNop())
	require.NoError(t, job.Finish(s))
	return dbPath
}

func TestLookupAllAccessionKinds(t *testing.T) {
	db, err := Open(buildGeneDB(t))
	require.NoError(t, err)
	defer db.Close()

	// All identifier kinds resolve to the same record.
	byHgnc, err := db.Lookup("HGNC:20324")
	require.NoError(t, err)
	require.NotNil(t, byHgnc)

	bySymbol, err := db.Lookup("TGDS")
	require.NoError(t, err)
	byNcbi, err := db.Lookup("23483")
	require.NoError(t, err)
	byEnsembl, err := db.Lookup("ENSG00000088451")
	require.NoError(t, err)

	assert.Equal(t, byHgnc, bySymbol)
	assert.Equal(t, byHgnc, byNcbi)
	assert.Equal(t, byHgnc, byEnsembl)
	assert.Equal(t, "TGDS", byHgnc.Symbol)
}

func TestSymbolLookupCaseInsensitive(t *testing.T) {
	db, err := Open(buildGeneDB(t))
	require.NoError(t, err)
	defer db.Close()

	for _, symbol := range []string{"TGDS", "tgds", "Tgds"} {
		rec, err := db.QuerySymbol(symbol)
		require.NoError(t, err)
		require.NotNil(t, rec, "symbol %q", symbol)
		assert.Equal(t, "HGNC:20324", rec.HgncID)
	}

	// Structured IDs stay case-sensitive.
	rec, err := db.QueryHgnc("hgnc:20324")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDosageMerged(t *testing.T) {
	db, err := Open(buildGeneDB(t))
	require.NoError(t, err)
	defer db.Close()

	rec, err := db.QueryHgnc("HGNC:20324")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NotNil(t, rec.Dosage)
	require.NotNil(t, rec.Dosage.HaploinsufficiencyScore)
	assert.Equal(t, int32(3), *rec.Dosage.HaploinsufficiencyScore)
	// "Not yet evaluated" stays uncurated.
	assert.Nil(t, rec.Dosage.TriplosensitivityScore)
}

func TestConstraintsMerged(t *testing.T) {
	db, err := Open(buildGeneDB(t))
	require.NoError(t, err)
	defer db.Close()

	rec, err := db.QuerySymbol("BRCA2")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NotNil(t, rec.Constraints)
	assert.Equal(t, 0.51, rec.Constraints.OELof)

	// TGDS has no constraints row.
	rec, err = db.QuerySymbol("TGDS")
	require.NoError(t, err)
	assert.Nil(t, rec.Constraints)
}

func TestLookupMiss(t *testing.T) {
	db, err := Open(buildGeneDB(t))
	require.NoError(t, err)
	defer db.Close()

	rec, err := db.Lookup("NOSUCHGENE")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
