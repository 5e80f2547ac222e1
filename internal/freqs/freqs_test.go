package freqs

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

func writeVCF(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	content := "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" + body
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRecordLayouts(t *testing.T) {
	auto := &AutoRecord{
		Exomes:  AutoCounts{AN: 100, ACHom: 2, ACHet: 10},
		Genomes: AutoCounts{AN: 200, ACHom: 4, ACHet: 20},
	}
	buf := auto.Encode()
	require.Len(t, buf, 24)
	got, err := DecodeAutoRecord(buf)
	require.NoError(t, err)
	assert.Equal(t, auto, got)

	xy := &XYRecord{
		Exomes:  XYCounts{AN: 50, ACHom: 1, ACHet: 3, ACHemi: 7},
		Genomes: XYCounts{AN: 60, ACHom: 2, ACHet: 4, ACHemi: 8},
	}
	buf = xy.Encode()
	require.Len(t, buf, 32)
	gotXY, err := DecodeXYRecord(buf)
	require.NoError(t, err)
	assert.Equal(t, xy, gotXY)

	mt := &MTRecord{
		GnomadMtdna: MTCounts{AN: 5000, ACHom: 12, ACHet: 34},
		HelixMtdb:   MTCounts{AN: 9000, ACHom: 56, ACHet: 78},
	}
	buf = mt.Encode()
	require.Len(t, buf, 24)
	gotMT, err := DecodeMTRecord(buf)
	require.NoError(t, err)
	assert.Equal(t, mt, gotMT)
}

func TestImportMergesSources(t *testing.T) {
	exomes := writeVCF(t, "exomes.vcf",
		"1\t1000\t.\tA\tT\t.\tPASS\tAC=10;AN=100;nhomalt=2\n")
	genomes := writeVCF(t, "genomes.vcf",
		"1\t1000\t.\tA\tT\t.\tPASS\tAC=20;AN=200;nhomalt=5\n")
	mtdna := writeVCF(t, "mtdna.vcf",
		"chrM\t302\t.\tA\tC\t.\tPASS\tAN=5000;AC_hom=12;AC_het=34\n")
	helixIn := writeVCF(t, "helix.vcf",
		"MT\t302\t.\tA\tC\t.\tPASS\tAN=9000;AC_hom=56;AC_het=78\n")

	dbPath := filepath.Join(t.TempDir(), "db")
	s, err := store.OpenReadWrite(dbPath, store.DefaultOptions())
	require.NoError(t, err)
	paths := ImportPaths{
		GnomadExomes:  []string{exomes},
		GnomadGenomes: []string{genomes},
		GnomadMtdna:   mtdna,
		HelixMtdb:     helixIn,
	}
	require.NoError(t, Import(s, paths, zap.NewNop()))
	job := ingest.NewJob("freqs", "test", "grch37",
		[]string{AutosomalCF, GonosomalCF, MitochondrialCF}, zap.NewNop())
	require.NoError(t, job.Finish(s))

	db, err := Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	auto, err := db.QueryAuto(keys.GRCh37, keys.Variant{Chrom: "1", Pos: 1000, Ref: "A", Alt: "T"})
	require.NoError(t, err)
	require.NotNil(t, auto)
	// Both sources land in one record: het = AC - 2*nhomalt.
	assert.Equal(t, AutoCounts{AN: 100, ACHom: 2, ACHet: 6}, auto.Exomes)
	assert.Equal(t, AutoCounts{AN: 200, ACHom: 5, ACHet: 10}, auto.Genomes)

	mt, err := db.QueryMT(keys.GRCh37, keys.Variant{Chrom: "MT", Pos: 302, Ref: "A", Alt: "C"})
	require.NoError(t, err)
	require.NotNil(t, mt)
	assert.Equal(t, MTCounts{AN: 5000, ACHom: 12, ACHet: 34}, mt.GnomadMtdna)
	assert.Equal(t, MTCounts{AN: 9000, ACHom: 56, ACHet: 78}, mt.HelixMtdb)
}

func TestImportXYNonPAR(t *testing.T) {
	genomes := writeVCF(t, "genomes.vcf",
		"X\t2000\t.\tG\tA\t.\tPASS\tAC=30;AN=100;AC_XX=20;nhomalt_XX=5;AC_XY=10;nhomalt_XY=10;nonpar\n")

	dbPath := filepath.Join(t.TempDir(), "db")
	s, err := store.OpenReadWrite(dbPath, store.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, Import(s, ImportPaths{GnomadGenomes: []string{genomes}}, zap.NewNop()))
	job := ingest.NewJob("freqs", "test", "grch37",
		[]string{AutosomalCF, GonosomalCF, MitochondrialCF}, zap.NewNop())
	require.NoError(t, job.Finish(s))

	db, err := Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	rec, err := db.QueryXY(keys.GRCh37, keys.Variant{Chrom: "X", Pos: 2000, Ref: "G", Alt: "A"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	// Outside the PAR, XY carriers count as hemizygous.
	assert.Equal(t, XYCounts{AN: 100, ACHom: 5, ACHet: 10, ACHemi: 10}, rec.Genomes)
}
