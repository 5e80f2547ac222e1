// Package gnomad implements the gnomAD population frequency datasets:
// nuclear exomes/genomes, mitochondrial DNA, and structural variants.
package gnomad

import (
	"encoding/json"
	"fmt"

	"github.com/annokv/annokv/internal/annoerr"
)

// AlleleCounts are the counts of one (cohort, sex, population) cell.
// Genotype-level fields are populated where the source INFO carries them
// (nuclear nhomalt and het counts, structural-variant genotype counts).
type AlleleCounts struct {
	AC int32   `json:"ac"`
	AN int32   `json:"an"`
	AF float64 `json:"af"`

	NBiGenos   int32   `json:"n_bi_genos,omitempty"`
	NHomref    int32   `json:"n_homref,omitempty"`
	NHet       int32   `json:"n_het,omitempty"`
	NHomalt    int32   `json:"n_homalt,omitempty"`
	FreqHomref float64 `json:"freq_homref,omitempty"`
	FreqHet    float64 `json:"freq_het,omitempty"`
	FreqHomalt float64 `json:"freq_homalt,omitempty"`

	NHemiref    int32   `json:"n_hemiref,omitempty"`
	NHemialt    int32   `json:"n_hemialt,omitempty"`
	FreqHemiref float64 `json:"freq_hemiref,omitempty"`
	FreqHemialt float64 `json:"freq_hemialt,omitempty"`
}

// SexKeyedCounts groups counts by sex axis. A source may omit one axis;
// absent axes stay nil rather than zero.
type SexKeyedCounts struct {
	Overall *AlleleCounts `json:"overall,omitempty"`
	XX      *AlleleCounts `json:"xx,omitempty"`
	XY      *AlleleCounts `json:"xy,omitempty"`
}

// PopulationCounts are the counts of one ancestry population within a
// cohort.
type PopulationCounts struct {
	Population string         `json:"population"`
	Counts     SexKeyedCounts `json:"counts"`
}

// CohortCounts nests the counts of one (sub-)cohort: the cohort-wide cell
// plus per-population cells.
type CohortCounts struct {
	// Cohort is empty for the full study population.
	Cohort      string             `json:"cohort,omitempty"`
	BySex       SexKeyedCounts     `json:"by_sex"`
	Populations []PopulationCounts `json:"by_population,omitempty"`
}

// VariantInfo carries site-level details extracted with the var_info group.
type VariantInfo struct {
	VariantType string `json:"variant_type,omitempty"`
	AlleleType  string `json:"allele_type,omitempty"`
	NAltAlleles int32  `json:"n_alt_alleles,omitempty"`
	WasMixed    bool   `json:"was_mixed,omitempty"`
	MonoAllelic bool   `json:"monoallelic,omitempty"`
	OnlyHet     bool   `json:"only_het,omitempty"`
}

// QualityInfo carries site quality metrics extracted with the quality
// group.
type QualityInfo struct {
	FS             float64 `json:"fs,omitempty"`
	MQ             float64 `json:"mq,omitempty"`
	MQRankSum      float64 `json:"mq_rank_sum,omitempty"`
	QD             float64 `json:"qd,omitempty"`
	ReadPosRankSum float64 `json:"read_pos_rank_sum,omitempty"`
	SiteQuality    float64 `json:"site_quality,omitempty"`
}

// RandomForestInfo carries the random-forest fields of the rf_info group.
type RandomForestInfo struct {
	RFTPProbability float64 `json:"rf_tp_probability,omitempty"`
	RFPositiveLabel bool    `json:"rf_positive_label,omitempty"`
	RFNegativeLabel bool    `json:"rf_negative_label,omitempty"`
}

// EffectInfo carries precomputed effect scores of the effect_info group.
type EffectInfo struct {
	PrimateAIScore float64 `json:"primate_ai_score,omitempty"`
	SpliceAIMaxDS  float64 `json:"splice_ai_max_ds,omitempty"`
	CADDRaw        float64 `json:"cadd_raw,omitempty"`
	CADDPhred      float64 `json:"cadd_phred,omitempty"`
}

// LiftoverInfo carries the coordinates of the record on the other assembly.
type LiftoverInfo struct {
	OriginalContig             string `json:"original_contig,omitempty"`
	OriginalPos                int64  `json:"original_pos,omitempty"`
	ReverseComplementedAlleles bool   `json:"reverse_complemented_alleles,omitempty"`
}

// AgeHistogram is a binned age distribution of carriers.
type AgeHistogram struct {
	BinEdges []float64 `json:"bin_edges,omitempty"`
	BinFreq  []int32   `json:"bin_freq,omitempty"`
	NSmaller int32     `json:"n_smaller,omitempty"`
	NLarger  int32     `json:"n_larger,omitempty"`
}

// DepthDetails is a binned coverage distribution.
type DepthDetails struct {
	DPHistAllBinFreq []int32 `json:"dp_hist_all_bin_freq,omitempty"`
	DPHistAltBinFreq []int32 `json:"dp_hist_alt_bin_freq,omitempty"`
}

// Record is one nuclear gnomAD variant with its nested frequency tables
// and the optional INFO groups selected at import time.
type Record struct {
	Chrom   string   `json:"chrom"`
	Pos     uint32   `json:"pos"`
	Ref     string   `json:"ref"`
	Alt     string   `json:"alt"`
	Filters []string `json:"filters,omitempty"`

	// Cohorts holds the full study population first, sub-cohorts after.
	Cohorts []CohortCounts `json:"cohorts"`

	Vep       []string          `json:"vep,omitempty"`
	VarInfo   *VariantInfo      `json:"var_info,omitempty"`
	Quality   *QualityInfo      `json:"quality,omitempty"`
	RFInfo    *RandomForestInfo `json:"rf_info,omitempty"`
	Effect    *EffectInfo       `json:"effect_info,omitempty"`
	Liftover  *LiftoverInfo     `json:"liftover,omitempty"`
	AgeHetHist *AgeHistogram    `json:"age_hist_het,omitempty"`
	AgeHomHist *AgeHistogram    `json:"age_hist_hom,omitempty"`
	Depth      *DepthDetails    `json:"depth_details,omitempty"`
}

// Encode serializes the record value.
func (r *Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRecord deserializes a stored record value.
func DecodeRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: decoding gnomAD record: %v", annoerr.ErrStore, err)
	}
	return &r, nil
}

// MtdnaRecord is one mitochondrial gnomAD variant.
type MtdnaRecord struct {
	Pos     uint32   `json:"pos"`
	Ref     string   `json:"ref"`
	Alt     string   `json:"alt"`
	Filters []string `json:"filters,omitempty"`

	AN    int32 `json:"an"`
	ACHom int32 `json:"ac_hom"`
	ACHet int32 `json:"ac_het"`
	// MaxHeteroplasmy is the largest observed heteroplasmy level.
	MaxHeteroplasmy float64 `json:"max_hl,omitempty"`
}

// Encode serializes the record value.
func (r *MtdnaRecord) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeMtdnaRecord deserializes a stored mitochondrial record value.
func DecodeMtdnaRecord(data []byte) (*MtdnaRecord, error) {
	var r MtdnaRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: decoding gnomAD-mtDNA record: %v", annoerr.ErrStore, err)
	}
	return &r, nil
}
