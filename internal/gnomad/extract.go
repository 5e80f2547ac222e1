package gnomad

import (
	"strconv"
	"strings"

	"github.com/annokv/annokv/internal/vcf"
)

// Ancestry populations reported by nuclear gnomAD.
var populations = []string{"afr", "amr", "asj", "eas", "fin", "nfe", "oth", "sas"}

// Sub-cohorts probed when the all_cohorts group is selected.
var subCohorts = []string{"controls", "non_neuro", "non_cancer", "non_topmed"}

// infoKey joins non-empty INFO name parts with underscores, e.g.
// ("AC", "controls", "afr", "XX") -> "AC_controls_afr_XX".
func infoKey(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "_")
}

// countsAt extracts one (cohort, population, sex) counts cell. Older
// releases name the sex axes female/male instead of XX/XY; both spellings
// are probed. Returns nil when the cell is absent.
func countsAt(v *vcf.Variant, cohort, population, sex string) *AlleleCounts {
	sexNames := []string{sex}
	switch sex {
	case "XX":
		sexNames = append(sexNames, "female")
	case "XY":
		sexNames = append(sexNames, "male")
	}
	for _, sexName := range sexNames {
		ac, okAC := v.InfoInt(infoKey("AC", cohort, population, sexName))
		an, okAN := v.InfoInt(infoKey("AN", cohort, population, sexName))
		if !okAC || !okAN {
			continue
		}
		counts := &AlleleCounts{AC: int32(ac), AN: int32(an)}
		if af, ok := v.InfoFloat(infoKey("AF", cohort, population, sexName)); ok {
			counts.AF = af
		} else if an > 0 {
			counts.AF = float64(ac) / float64(an)
		}
		if nHomalt, ok := v.InfoInt(infoKey("nhomalt", cohort, population, sexName)); ok {
			counts.NHomalt = int32(nHomalt)
			het := ac - 2*nHomalt
			if het < 0 {
				het = 0
			}
			counts.NHet = int32(het)
		}
		return counts
	}
	return nil
}

// sexKeyedAt extracts the overall/XX/XY cells of one (cohort, population).
func sexKeyedAt(v *vcf.Variant, cohort, population string) SexKeyedCounts {
	return SexKeyedCounts{
		Overall: countsAt(v, cohort, population, ""),
		XX:      countsAt(v, cohort, population, "XX"),
		XY:      countsAt(v, cohort, population, "XY"),
	}
}

// cohortAt extracts one cohort with its per-population nesting.
func cohortAt(v *vcf.Variant, cohort string, withPops bool) *CohortCounts {
	bySex := sexKeyedAt(v, cohort, "")
	if bySex.Overall == nil && bySex.XX == nil && bySex.XY == nil {
		return nil
	}
	cc := &CohortCounts{Cohort: cohort, BySex: bySex}
	if withPops {
		for _, pop := range populations {
			counts := sexKeyedAt(v, cohort, pop)
			if counts.Overall == nil && counts.XX == nil && counts.XY == nil {
				continue
			}
			cc.Populations = append(cc.Populations, PopulationCounts{Population: pop, Counts: counts})
		}
	}
	return cc
}

// ExtractRecord builds the nuclear record of one split allele from its VCF
// site record, honoring the import field selection.
func ExtractRecord(v *vcf.Variant, fields ImportFields) *Record {
	rec := &Record{
		Chrom:   v.NormalizeChrom(),
		Pos:     uint32(v.Pos),
		Ref:     v.Ref,
		Alt:     v.Alt,
		Filters: v.Filters(),
	}

	if global := cohortAt(v, "", fields.GlobalCohortPops); global != nil {
		rec.Cohorts = append(rec.Cohorts, *global)
	}
	if fields.AllCohorts {
		for _, cohort := range subCohorts {
			if cc := cohortAt(v, cohort, fields.GlobalCohortPops); cc != nil {
				rec.Cohorts = append(rec.Cohorts, *cc)
			}
		}
	}

	if fields.Vep {
		if csq := v.InfoString("vep"); csq != "" {
			rec.Vep = strings.Split(csq, ",")
		} else if csq := v.InfoString("CSQ"); csq != "" {
			rec.Vep = strings.Split(csq, ",")
		}
	}
	if fields.VarInfo {
		info := &VariantInfo{
			VariantType: v.InfoString("variant_type"),
			AlleleType:  v.InfoString("allele_type"),
			WasMixed:    v.InfoFlag("was_mixed"),
			MonoAllelic: v.InfoFlag("monoallelic"),
			OnlyHet:     v.InfoFlag("only_het"),
		}
		if n, ok := v.InfoInt("n_alt_alleles"); ok {
			info.NAltAlleles = int32(n)
		}
		rec.VarInfo = info
	}
	if fields.Quality {
		q := &QualityInfo{SiteQuality: v.Qual}
		q.FS, _ = v.InfoFloat("FS")
		q.MQ, _ = v.InfoFloat("MQ")
		q.MQRankSum, _ = v.InfoFloat("MQRankSum")
		q.QD, _ = v.InfoFloat("QD")
		q.ReadPosRankSum, _ = v.InfoFloat("ReadPosRankSum")
		rec.Quality = q
	}
	if fields.RFInfo {
		if p, ok := v.InfoFloat("rf_tp_probability"); ok {
			rec.RFInfo = &RandomForestInfo{
				RFTPProbability: p,
				RFPositiveLabel: v.InfoFlag("rf_positive_label"),
				RFNegativeLabel: v.InfoFlag("rf_negative_label"),
			}
		}
	}
	if fields.EffectInfo {
		effect := &EffectInfo{}
		seen := false
		if f, ok := v.InfoFloat("primate_ai_score"); ok {
			effect.PrimateAIScore, seen = f, true
		}
		if f, ok := v.InfoFloat("splice_ai_max_ds"); ok {
			effect.SpliceAIMaxDS, seen = f, true
		}
		if f, ok := v.InfoFloat("cadd_raw_score"); ok {
			effect.CADDRaw, seen = f, true
		}
		if f, ok := v.InfoFloat("cadd_phred"); ok {
			effect.CADDPhred, seen = f, true
		}
		if seen {
			rec.Effect = effect
		}
	}
	if fields.Liftover {
		if contig := v.InfoString("original_contig"); contig != "" {
			lift := &LiftoverInfo{
				OriginalContig:             contig,
				ReverseComplementedAlleles: v.InfoFlag("reverse_complemented_alleles"),
			}
			if p, ok := v.InfoInt("original_position"); ok {
				lift.OriginalPos = p
			}
			rec.Liftover = lift
		}
	}
	if fields.AgeHists {
		rec.AgeHetHist = ageHist(v, "age_hist_het")
		rec.AgeHomHist = ageHist(v, "age_hist_hom")
	}
	if fields.DepthDetails {
		all := intList(v.InfoString("dp_hist_all_bin_freq"))
		alt := intList(v.InfoString("dp_hist_alt_bin_freq"))
		if all != nil || alt != nil {
			rec.Depth = &DepthDetails{DPHistAllBinFreq: all, DPHistAltBinFreq: alt}
		}
	}
	return rec
}

func ageHist(v *vcf.Variant, prefix string) *AgeHistogram {
	freq := intList(v.InfoString(prefix + "_bin_freq"))
	if freq == nil {
		return nil
	}
	hist := &AgeHistogram{BinFreq: freq, BinEdges: floatList(v.InfoString(prefix + "_bin_edges"))}
	if n, ok := v.InfoInt(prefix + "_n_smaller"); ok {
		hist.NSmaller = int32(n)
	}
	if n, ok := v.InfoInt(prefix + "_n_larger"); ok {
		hist.NLarger = int32(n)
	}
	return hist
}

// intList parses a |-separated histogram list; "." entries become zero.
func intList(s string) []int32 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "|")
	out := make([]int32, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			continue
		}
		out[i] = int32(n)
	}
	return out
}

func floatList(s string) []float64 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "|")
	out := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			continue
		}
		out[i] = f
	}
	return out
}

// ExtractMtdnaRecord builds the mitochondrial record of one split allele.
func ExtractMtdnaRecord(v *vcf.Variant) *MtdnaRecord {
	rec := &MtdnaRecord{
		Pos:     uint32(v.Pos),
		Ref:     v.Ref,
		Alt:     v.Alt,
		Filters: v.Filters(),
	}
	if an, ok := v.InfoInt("AN"); ok {
		rec.AN = int32(an)
	}
	if ac, ok := v.InfoInt("AC_hom"); ok {
		rec.ACHom = int32(ac)
	}
	if ac, ok := v.InfoInt("AC_het"); ok {
		rec.ACHet = int32(ac)
	}
	if hl, ok := v.InfoFloat("max_hl"); ok {
		rec.MaxHeteroplasmy = hl
	}
	return rec
}
