package gnomad

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

func writeVCF(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.vcf")
	content := "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" + body
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func finishDB(t *testing.T, s *store.Store, name string, cfs []string) {
	t.Helper()
	job := ingest.NewJob(name, "test", "grch37", cfs, zap.NewNop())
	require.NoError(t, job.Finish(s))
}

func TestImportNuclearPointQuery(t *testing.T) {
	in := writeVCF(t, "1\t55505599\t.\tA\tG\t100\tPASS\tAC=3;AN=10;AF=0.3;nhomalt=1\n")
	dbPath := filepath.Join(t.TempDir(), "db")

	s, err := store.OpenReadWrite(dbPath, store.BulkOptions())
	require.NoError(t, err)
	require.NoError(t, ImportNuclear(s, in, DefaultImportFields(), zap.NewNop()))
	finishDB(t, s, "gnomad-nuclear", []string{NuclearCF})

	db, err := OpenNuclear(dbPath)
	require.NoError(t, err)
	defer db.Close()

	rec, err := db.QueryVariant(keys.GRCh37, keys.Variant{Chrom: "1", Pos: 55505599, Ref: "A", Alt: "G"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Len(t, rec.Cohorts, 1)
	overall := rec.Cohorts[0].BySex.Overall
	require.NotNil(t, overall)
	assert.Equal(t, int32(3), overall.AC)
	assert.Equal(t, int32(10), overall.AN)
	assert.Equal(t, 0.3, overall.AF)
	assert.Equal(t, int32(1), overall.NHomalt)
}

func TestImportNuclearMultiAllelic(t *testing.T) {
	in := writeVCF(t, "1\t1000\t.\tA\tC,T\t.\tPASS\tAC=2,7;AN=100;AF=0.02,0.07\n")
	dbPath := filepath.Join(t.TempDir(), "db")

	s, err := store.OpenReadWrite(dbPath, store.BulkOptions())
	require.NoError(t, err)
	require.NoError(t, ImportNuclear(s, in, DefaultImportFields(), zap.NewNop()))
	finishDB(t, s, "gnomad-nuclear", []string{NuclearCF})

	db, err := OpenNuclear(dbPath)
	require.NoError(t, err)
	defer db.Close()

	recs, err := db.QueryPosition(keys.GRCh37, "1", 1000)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	// Alt-lex order: C before T, each with its own per-allele counts.
	assert.Equal(t, "C", recs[0].Alt)
	assert.Equal(t, int32(2), recs[0].Cohorts[0].BySex.Overall.AC)
	assert.Equal(t, "T", recs[1].Alt)
	assert.Equal(t, int32(7), recs[1].Cohorts[0].BySex.Overall.AC)
}

func TestSexAxesSumToOverall(t *testing.T) {
	in := writeVCF(t,
		"X\t1000\t.\tG\tA\t.\tPASS\tAC=30;AN=100;AC_XX=20;AN_XX=60;AC_XY=10;AN_XY=40\n")
	dbPath := filepath.Join(t.TempDir(), "db")

	s, err := store.OpenReadWrite(dbPath, store.BulkOptions())
	require.NoError(t, err)
	require.NoError(t, ImportNuclear(s, in, DefaultImportFields(), zap.NewNop()))
	finishDB(t, s, "gnomad-nuclear", []string{NuclearCF})

	db, err := OpenNuclear(dbPath)
	require.NoError(t, err)
	defer db.Close()

	rec, err := db.QueryVariant(keys.GRCh37, keys.Variant{Chrom: "X", Pos: 1000, Ref: "G", Alt: "A"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	bySex := rec.Cohorts[0].BySex
	require.NotNil(t, bySex.XX)
	require.NotNil(t, bySex.XY)
	assert.Equal(t, bySex.Overall.AC, bySex.XX.AC+bySex.XY.AC)
	assert.Equal(t, bySex.Overall.AN, bySex.XX.AN+bySex.XY.AN)
}

func TestLegacySexFieldNames(t *testing.T) {
	// Older releases spell the sex axes female/male.
	in := writeVCF(t, "1\t500\t.\tC\tT\t.\tPASS\tAC=5;AN=50;AC_female=3;AN_female=30\n")
	dbPath := filepath.Join(t.TempDir(), "db")

	s, err := store.OpenReadWrite(dbPath, store.BulkOptions())
	require.NoError(t, err)
	require.NoError(t, ImportNuclear(s, in, DefaultImportFields(), zap.NewNop()))
	finishDB(t, s, "gnomad-nuclear", []string{NuclearCF})

	db, err := OpenNuclear(dbPath)
	require.NoError(t, err)
	defer db.Close()

	rec, err := db.QueryVariant(keys.GRCh37, keys.Variant{Chrom: "1", Pos: 500, Ref: "C", Alt: "T"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NotNil(t, rec.Cohorts[0].BySex.XX)
	assert.Equal(t, int32(3), rec.Cohorts[0].BySex.XX.AC)
}

func TestImportMtdna(t *testing.T) {
	in := writeVCF(t, "chrM\t302\t.\tA\tC\t.\tPASS\tAN=5000;AC_hom=12;AC_het=34;max_hl=0.9\n")
	dbPath := filepath.Join(t.TempDir(), "db")

	s, err := store.OpenReadWrite(dbPath, store.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, ImportMtdna(s, in, zap.NewNop()))
	finishDB(t, s, "gnomad-mtdna", []string{MtdnaCF})

	db, err := OpenMtdna(dbPath)
	require.NoError(t, err)
	defer db.Close()

	// All mitochondrion spellings address the same record.
	for _, chrom := range []string{"MT", "M", "chrM", "chrMT"} {
		rec, err := db.QueryVariant(keys.GRCh37, keys.Variant{Chrom: chrom, Pos: 302, Ref: "A", Alt: "C"})
		require.NoError(t, err)
		require.NotNil(t, rec, "chrom %q", chrom)
		assert.Equal(t, int32(5000), rec.AN)
		assert.Equal(t, int32(12), rec.ACHom)
		assert.Equal(t, int32(34), rec.ACHet)
	}
}

func TestImportSvRangeQuery(t *testing.T) {
	in := writeVCF(t,
		"1\t1000\tgnomAD-SV_v2_DEL_1_1\tN\t<DEL>\t.\tPASS\t"+
			"END=5000;SVTYPE=DEL;AC=8;AN=100;N_BI_GENOS=50;N_HOMALT=2\n")
	dbPath := filepath.Join(t.TempDir(), "db")

	s, err := store.OpenReadWrite(dbPath, store.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, ImportSv(s, in, zap.NewNop()))
	finishDB(t, s, "gnomad-sv", []string{SvCF})

	db, err := OpenSv(dbPath)
	require.NoError(t, err)
	defer db.Close()

	// A window inside the deletion overlaps it.
	recs, err := db.QueryRange(keys.GRCh37, keys.Interval{Chrom: "1", Start: 2000, Stop: 3000})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "DEL", recs[0].SvType)
	assert.Equal(t, uint32(1000), recs[0].Pos)
	assert.Equal(t, uint32(5000), recs[0].End)
	require.Len(t, recs[0].AlleleCounts, 1)
	assert.Equal(t, int32(50), recs[0].AlleleCounts[0].BySex.Overall.NBiGenos)

	// A window past the deletion does not.
	recs, err = db.QueryRange(keys.GRCh37, keys.Interval{Chrom: "1", Start: 6000, Stop: 7000})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestLoadImportFieldsUnknownGroup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"all_cohorts": true, "brand_new_group": true}`), 0o644))

	fields, err := LoadImportFields(path, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, fields.AllCohorts)
	// Defaults survive for groups the document does not name.
	assert.True(t, fields.VarInfo)
}
