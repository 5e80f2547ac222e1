// Package vcf provides VCF site-record parsing for the ingest pipelines.
package vcf

import (
	"strconv"
	"strings"
)

// Variant represents a single site record from a VCF file, reduced to one
// alternate allele after multi-allelic splitting.
type Variant struct {
	Chrom  string            // Chromosome name (e.g., "12", "chr12")
	Pos    int64             // 1-based genomic position
	ID     string            // Variant identifier (e.g., rs ID)
	Ref    string            // Reference allele
	Alt    string            // Alternate allele (single allele after splitting)
	Qual   float64           // Quality score
	Filter string            // Filter status (PASS or filter names)
	Info   map[string]string // Raw INFO key-value pairs; flags map to ""
	// AlleleNo is the 0-based index of Alt among the original alternate
	// alleles; used to pick per-allele (Number=A) INFO values.
	AlleleNo int
	// NumAlts is the alternate allele count of the original site record.
	NumAlts int
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (v *Variant) NormalizeChrom() string {
	if len(v.Chrom) > 3 && v.Chrom[:3] == "chr" {
		return v.Chrom[3:]
	}
	return v.Chrom
}

// IsSymbolic reports whether the alternate allele is symbolic (<DEL>, <DUP>,
// breakend notation). Symbolic alleles are rejected by the variant codec and
// routed to the structural-variant path.
func (v *Variant) IsSymbolic() bool {
	return strings.HasPrefix(v.Alt, "<") ||
		strings.ContainsAny(v.Alt, "[]") ||
		v.Alt == "*"
}

// Filters returns the FILTER column split into individual filter names.
// PASS and "." yield an empty list.
func (v *Variant) Filters() []string {
	if v.Filter == "" || v.Filter == "." || v.Filter == "PASS" {
		return nil
	}
	return strings.Split(v.Filter, ";")
}

// HasInfo reports whether the INFO key is present (value or flag).
func (v *Variant) HasInfo(key string) bool {
	_, ok := v.Info[key]
	return ok
}

// InfoString returns the raw INFO value for key, or "" if absent.
func (v *Variant) InfoString(key string) string {
	return v.Info[key]
}

// InfoInt parses the INFO value for key as an integer. For per-allele
// (Number=A) fields the component matching AlleleNo is used.
func (v *Variant) InfoInt(key string) (int64, bool) {
	s, ok := v.infoComponent(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// InfoFloat parses the INFO value for key as a float, honoring per-allele
// components like InfoInt.
func (v *Variant) InfoFloat(key string) (float64, bool) {
	s, ok := v.infoComponent(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// InfoFlag reports whether the flag-typed INFO key is set.
func (v *Variant) InfoFlag(key string) bool {
	s, ok := v.Info[key]
	return ok && s == ""
}

// infoComponent selects the allele-matched component of a comma-separated
// INFO value. Scalar values pass through; per-allele lists of length
// NumAlts are indexed by AlleleNo; "." counts as missing.
func (v *Variant) infoComponent(key string) (string, bool) {
	s, ok := v.Info[key]
	if !ok || s == "." {
		return "", false
	}
	if !strings.Contains(s, ",") {
		return s, true
	}
	parts := strings.Split(s, ",")
	if v.NumAlts > 1 && len(parts) == v.NumAlts {
		s = parts[v.AlleleNo]
		if s == "." {
			return "", false
		}
		return s, true
	}
	// Not a per-allele list; return the raw value.
	return v.Info[key], true
}

// SplitMultiAllelic splits a site record into one variant per alternate
// allele. Per-allele INFO selection happens lazily through AlleleNo.
func SplitMultiAllelic(v *Variant) []*Variant {
	alts := strings.Split(v.Alt, ",")
	if len(alts) == 1 {
		v.NumAlts = 1
		return []*Variant{v}
	}
	variants := make([]*Variant, len(alts))
	for i, alt := range alts {
		dup := *v
		dup.Alt = alt
		dup.AlleleNo = i
		dup.NumAlts = len(alts)
		variants[i] = &dup
	}
	return variants
}
