package gnomad

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/annoerr"
)

// ImportFields selects the optional INFO groups extracted during import.
// The exact field set shifts between gnomAD versions; unknown INFO fields
// in the input are ignored rather than fatal.
type ImportFields struct {
	Vep              bool `json:"vep"`
	VarInfo          bool `json:"var_info"`
	GlobalCohortPops bool `json:"global_cohort_pops"`
	AllCohorts       bool `json:"all_cohorts"`
	RFInfo           bool `json:"rf_info"`
	EffectInfo       bool `json:"effect_info"`
	Liftover         bool `json:"liftover"`
	Quality          bool `json:"quality"`
	AgeHists         bool `json:"age_hists"`
	DepthDetails     bool `json:"depth_details"`
}

// DefaultImportFields enables the groups every known consumer needs.
func DefaultImportFields() ImportFields {
	return ImportFields{
		VarInfo:          true,
		GlobalCohortPops: true,
		Quality:          true,
	}
}

// LoadImportFields reads a field-selection JSON document. Group names not
// known to this build are warned about and skipped, keeping old binaries
// forward compatible with newer documents.
func LoadImportFields(path string, logger *zap.Logger) (ImportFields, error) {
	fields := DefaultImportFields()
	if path == "" {
		return fields, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fields, fmt.Errorf("%w: import fields file %q", annoerr.ErrNotFound, path)
	}
	var raw map[string]bool
	if err := json.Unmarshal(data, &raw); err != nil {
		return fields, fmt.Errorf("%w: parsing %q: %v", annoerr.ErrInvalidInput, path, err)
	}
	known := map[string]*bool{
		"vep":                &fields.Vep,
		"var_info":           &fields.VarInfo,
		"global_cohort_pops": &fields.GlobalCohortPops,
		"all_cohorts":        &fields.AllCohorts,
		"rf_info":            &fields.RFInfo,
		"effect_info":        &fields.EffectInfo,
		"liftover":           &fields.Liftover,
		"quality":            &fields.Quality,
		"age_hists":          &fields.AgeHists,
		"depth_details":      &fields.DepthDetails,
	}
	for name, enabled := range raw {
		dst, ok := known[name]
		if !ok {
			logger.Warn("unknown import field group", zap.String("group", name))
			continue
		}
		*dst = enabled
	}
	return fields, nil
}

// MarshalJSONString renders the selection for the metadata column family.
func (f ImportFields) MarshalJSONString() string {
	buf, _ := json.Marshal(f)
	return string(buf)
}
