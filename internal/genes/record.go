// Package genes implements the gene-level annotation dataset: identity
// from HGNC, constraint metrics, and dosage sensitivity curations, keyed
// by HGNC ID with secondary indices for symbol, NCBI and Ensembl IDs.
package genes

import (
	"encoding/json"
	"fmt"

	"github.com/annokv/annokv/internal/annoerr"
)

// Column families of gene databases.
const (
	CF          = "genes"
	CFBySymbol  = "genes_by_symbol"
	CFByNcbiID  = "genes_by_ncbi_id"
	CFByEnsembl = "genes_by_ensembl_id"
)

// Constraints are gene-level constraint metrics.
type Constraints struct {
	PLI        float64 `json:"pli,omitempty"`
	OELof      float64 `json:"oe_lof,omitempty"`
	OELofUpper float64 `json:"oe_lof_upper,omitempty"`
	MisZ       float64 `json:"mis_z,omitempty"`
	SynZ       float64 `json:"syn_z,omitempty"`
}

// Dosage is a ClinGen dosage sensitivity curation. Scores follow the
// ClinGen scale (0..3, 30, 40); nil means not curated.
type Dosage struct {
	HaploinsufficiencyScore *int32 `json:"haploinsufficiency_score,omitempty"`
	TriplosensitivityScore  *int32 `json:"triplosensitivity_score,omitempty"`
}

// Record is one gene.
type Record struct {
	HgncID        string   `json:"hgnc_id"`
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name,omitempty"`
	NcbiGeneID    string   `json:"ncbi_gene_id,omitempty"`
	EnsemblGeneID string   `json:"ensembl_gene_id,omitempty"`
	AliasSymbols  []string `json:"alias_symbols,omitempty"`

	Constraints *Constraints `json:"constraints,omitempty"`
	Dosage      *Dosage      `json:"dosage,omitempty"`
}

// Encode serializes the record value.
func (r *Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRecord deserializes a stored record value.
func DecodeRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: decoding gene record: %v", annoerr.ErrStore, err)
	}
	return &r, nil
}
