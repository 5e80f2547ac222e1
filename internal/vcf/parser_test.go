package vcf

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestVCF(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.vcf")
	content := "##fileformat=VCFv4.2\n" +
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
		body
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test VCF: %v", err)
	}
	return path
}

func TestParser_SingleVariant(t *testing.T) {
	path := writeTestVCF(t, "1\t55505599\t.\tA\tG\t100\tPASS\tAC=3;AN=10;AF=0.3\n")

	parser, err := NewParser(path)
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}
	defer parser.Close()

	v, err := parser.Next()
	if err != nil {
		t.Fatalf("Failed to read variant: %v", err)
	}
	if v == nil {
		t.Fatal("Expected a variant, got nil")
	}

	if v.Chrom != "1" {
		t.Errorf("Expected chrom 1, got %s", v.Chrom)
	}
	if v.Pos != 55505599 {
		t.Errorf("Expected pos 55505599, got %d", v.Pos)
	}
	if ac, ok := v.InfoInt("AC"); !ok || ac != 3 {
		t.Errorf("Expected AC=3, got %d (ok=%v)", ac, ok)
	}
	if af, ok := v.InfoFloat("AF"); !ok || af != 0.3 {
		t.Errorf("Expected AF=0.3, got %f (ok=%v)", af, ok)
	}

	v2, err := parser.Next()
	if err != nil {
		t.Fatalf("Error checking for more variants: %v", err)
	}
	if v2 != nil {
		t.Error("Expected no more variants")
	}
}

func TestParser_MultiAllelicSplit(t *testing.T) {
	path := writeTestVCF(t, "1\t1000\trs1\tA\tC,T\t.\tPASS\tAC=3,5;AN=100;nonpar\n")

	parser, err := NewParser(path)
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}
	defer parser.Close()

	site, err := parser.Next()
	if err != nil {
		t.Fatalf("Failed to read variant: %v", err)
	}
	split := SplitMultiAllelic(site)
	if len(split) != 2 {
		t.Fatalf("Expected 2 variants after split, got %d", len(split))
	}

	// Each allele retains its own per-allele counts.
	if ac, _ := split[0].InfoInt("AC"); ac != 3 {
		t.Errorf("Expected first allele AC=3, got %d", ac)
	}
	if ac, _ := split[1].InfoInt("AC"); ac != 5 {
		t.Errorf("Expected second allele AC=5, got %d", ac)
	}
	// Scalar values are shared.
	for _, v := range split {
		if an, _ := v.InfoInt("AN"); an != 100 {
			t.Errorf("Expected AN=100, got %d", an)
		}
		if !v.InfoFlag("nonpar") {
			t.Error("Expected nonpar flag to be set")
		}
	}
}

func TestParser_SymbolicAllele(t *testing.T) {
	path := writeTestVCF(t, "1\t1000\tsv1\tN\t<DEL>\t.\tPASS\tEND=5000;SVTYPE=DEL\n")

	parser, err := NewParser(path)
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}
	defer parser.Close()

	v, err := parser.Next()
	if err != nil {
		t.Fatalf("Failed to read variant: %v", err)
	}
	if !v.IsSymbolic() {
		t.Error("Expected <DEL> to be symbolic")
	}
	if end, ok := v.InfoInt("END"); !ok || end != 5000 {
		t.Errorf("Expected END=5000, got %d", end)
	}
}

func TestParser_MissingHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.vcf")
	if err := os.WriteFile(path, []byte("1\t100\t.\tA\tT\t.\tPASS\t.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewParser(path); err == nil {
		t.Error("Expected error for VCF without header")
	}
}

func TestParser_Filters(t *testing.T) {
	v := &Variant{Filter: "LowQual;RF"}
	got := v.Filters()
	if len(got) != 2 || got[0] != "LowQual" || got[1] != "RF" {
		t.Errorf("Unexpected filters: %v", got)
	}
	v = &Variant{Filter: "PASS"}
	if len(v.Filters()) != 0 {
		t.Error("PASS should yield no filters")
	}
}
