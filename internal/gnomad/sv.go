package gnomad

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/query"
	"github.com/annokv/annokv/internal/store"
	"github.com/annokv/annokv/internal/vcf"
)

// SvRecord is one gnomAD structural variant. Translocations carry the
// second breakend locus in Chrom2/End2.
type SvRecord struct {
	Chrom   string   `json:"chrom"`
	Pos     uint32   `json:"pos"`
	End     uint32   `json:"end,omitempty"`
	Chrom2  string   `json:"chrom2,omitempty"`
	End2    uint32   `json:"end2,omitempty"`
	ID      string   `json:"id"`
	Filters []string `json:"filters,omitempty"`
	SvType  string   `json:"sv_type"`
	// CpxType is the complex rearrangement subtype, when SvType is CPX.
	CpxType string `json:"cpx_type,omitempty"`

	AlleleCounts []CohortCounts `json:"allele_counts,omitempty"`
}

// Encode serializes the record value.
func (r *SvRecord) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeSvRecord deserializes a stored SV record value.
func DecodeSvRecord(data []byte) (*SvRecord, error) {
	var r SvRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: decoding gnomAD-SV record: %v", annoerr.ErrStore, err)
	}
	return &r, nil
}

// Interval returns the record's reference span. Breakend records without an
// END cover a single base.
func (r *SvRecord) Interval() keys.Interval {
	stop := r.End
	if stop == 0 {
		stop = r.Pos
	}
	return keys.Interval{Chrom: r.Chrom, Start: r.Pos, Stop: stop}
}

// extractSvCounts pulls the genotype-level counts of one SV cohort cell.
func extractSvCounts(v *vcf.Variant, cohort, population, sex string) *AlleleCounts {
	counts := countsAt(v, cohort, population, sex)
	if counts == nil {
		return nil
	}
	if n, ok := v.InfoInt(infoKey("N_BI_GENOS", cohort, population, sex)); ok {
		counts.NBiGenos = int32(n)
	}
	if n, ok := v.InfoInt(infoKey("N_HOMREF", cohort, population, sex)); ok {
		counts.NHomref = int32(n)
	}
	if n, ok := v.InfoInt(infoKey("N_HET", cohort, population, sex)); ok {
		counts.NHet = int32(n)
	}
	if n, ok := v.InfoInt(infoKey("N_HOMALT", cohort, population, sex)); ok {
		counts.NHomalt = int32(n)
	}
	if f, ok := v.InfoFloat(infoKey("FREQ_HOMREF", cohort, population, sex)); ok {
		counts.FreqHomref = f
	}
	if f, ok := v.InfoFloat(infoKey("FREQ_HET", cohort, population, sex)); ok {
		counts.FreqHet = f
	}
	if f, ok := v.InfoFloat(infoKey("FREQ_HOMALT", cohort, population, sex)); ok {
		counts.FreqHomalt = f
	}
	if n, ok := v.InfoInt(infoKey("N_HEMIREF", cohort, population, sex)); ok {
		counts.NHemiref = int32(n)
	}
	if n, ok := v.InfoInt(infoKey("N_HEMIALT", cohort, population, sex)); ok {
		counts.NHemialt = int32(n)
	}
	if f, ok := v.InfoFloat(infoKey("FREQ_HEMIREF", cohort, population, sex)); ok {
		counts.FreqHemiref = f
	}
	if f, ok := v.InfoFloat(infoKey("FREQ_HEMIALT", cohort, population, sex)); ok {
		counts.FreqHemialt = f
	}
	return counts
}

// ExtractSvRecord builds an SV record from a VCF site record with symbolic
// alternate allele.
func ExtractSvRecord(v *vcf.Variant) *SvRecord {
	rec := &SvRecord{
		Chrom:   v.NormalizeChrom(),
		Pos:     uint32(v.Pos),
		ID:      v.ID,
		Filters: v.Filters(),
		SvType:  v.InfoString("SVTYPE"),
		CpxType: v.InfoString("CPX_TYPE"),
	}
	if end, ok := v.InfoInt("END"); ok {
		rec.End = uint32(end)
	}
	if chr2 := v.InfoString("CHR2"); chr2 != "" {
		rec.Chrom2 = chr2
		if end2, ok := v.InfoInt("END2"); ok {
			rec.End2 = uint32(end2)
		}
	}
	cell := extractSvCounts(v, "", "", "")
	if cell != nil {
		cc := CohortCounts{BySex: SexKeyedCounts{
			Overall: cell,
			XX:      extractSvCounts(v, "", "", "XX"),
			XY:      extractSvCounts(v, "", "", "XY"),
		}}
		for _, pop := range populations {
			counts := SexKeyedCounts{
				Overall: extractSvCounts(v, "", pop, ""),
				XX:      extractSvCounts(v, "", pop, "XX"),
				XY:      extractSvCounts(v, "", pop, "XY"),
			}
			if counts.Overall == nil && counts.XX == nil && counts.XY == nil {
				continue
			}
			cc.Populations = append(cc.Populations, PopulationCounts{Population: pop, Counts: counts})
		}
		rec.AlleleCounts = append(rec.AlleleCounts, cc)
	}
	return rec
}

// ImportSv reads a gnomAD SV VCF into the interval-keyed family. The
// record ID disambiguates co-located intervals.
func ImportSv(s *store.Store, path string, logger *zap.Logger) error {
	return importVCF(s, path, logger, func(b *store.Batch, v *vcf.Variant) error {
		rec := ExtractSvRecord(v)
		key, err := keys.EncodeInterval(rec.Interval(), []byte(rec.ID))
		if err != nil {
			return err
		}
		value, err := rec.Encode()
		if err != nil {
			return err
		}
		return b.Set(SvCF, key, value)
	})
}

// SvDB is an opened gnomAD SV database.
type SvDB struct {
	Store *store.Store
}

// OpenSv opens a gnomAD SV database read-only.
func OpenSv(path string) (*SvDB, error) {
	s, err := store.OpenReadOnly(path, []string{SvCF})
	if err != nil {
		return nil, err
	}
	return &SvDB{Store: s}, nil
}

// Close releases the database handle.
func (db *SvDB) Close() error { return db.Store.Close() }

func decodeSv(_, value []byte) (*SvRecord, error) {
	return DecodeSvRecord(value)
}

// QueryRange returns all SV records truly overlapping the window.
func (db *SvDB) QueryRange(assembly keys.Assembly, iv keys.Interval) ([]*SvRecord, error) {
	return query.Overlap(db.Store, SvCF, assembly, iv, decodeSv)
}
