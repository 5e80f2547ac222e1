package clinvar

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/ingest"
	"github.com/annokv/annokv/internal/store"
)

// GenesCF is the column family of the per-gene ClinVar aggregates.
const GenesCF = "clinvar_genes"

// GeneRecord aggregates the ClinVar variants of one gene.
type GeneRecord struct {
	HgncID string `json:"hgnc_id"`
	// CountsBySignificance maps an aggregate classification (e.g.
	// "pathogenic") to its variant count.
	CountsBySignificance map[string]uint32 `json:"counts_by_significance,omitempty"`
	// CountsByType maps a variation type to its variant count.
	CountsByType  map[string]uint32 `json:"counts_by_type,omitempty"`
	TotalVariants uint32            `json:"total_variants"`
}

// Encode serializes the record value.
func (r *GeneRecord) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeGeneRecord deserializes a stored per-gene record value.
func DecodeGeneRecord(data []byte) (*GeneRecord, error) {
	var r GeneRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: decoding ClinVar gene record: %v", annoerr.ErrStore, err)
	}
	return &r, nil
}

// ImportGenes aggregates the variant JSONL files per gene and writes one
// record per HGNC ID.
func ImportGenes(s *store.Store, lenient bool, paths []string, logger *zap.Logger) error {
	perGene := make(map[string]*GeneRecord)
	for _, path := range paths {
		in, err := ingest.OpenInput(path)
		if err != nil {
			return err
		}
		lineNo := 0
		for in.Scanner.Scan() {
			lineNo++
			line := in.Scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			rec, err := ParseLine(line, lenient)
			if err != nil {
				logger.Warn("skipping malformed JSONL line",
					zap.String("path", path), zap.Int("line", lineNo), zap.Error(err))
				continue
			}
			for _, hgnc := range rec.HgncIDs {
				agg := perGene[hgnc]
				if agg == nil {
					agg = &GeneRecord{
						HgncID:               hgnc,
						CountsBySignificance: make(map[string]uint32),
						CountsByType:         make(map[string]uint32),
					}
					perGene[hgnc] = agg
				}
				agg.TotalVariants++
				for _, cls := range rec.Classifications {
					agg.CountsBySignificance[cls]++
				}
				if rec.VariationType != "" {
					agg.CountsByType[rec.VariationType]++
				}
			}
		}
		if err := in.Scanner.Err(); err != nil {
			in.Close()
			return fmt.Errorf("reading %q: %w", path, err)
		}
		if err := in.Close(); err != nil {
			return err
		}
	}

	batch := s.NewBatch()
	for hgnc, rec := range perGene {
		value, err := rec.Encode()
		if err != nil {
			return err
		}
		if err := batch.Set(GenesCF, []byte(hgnc), value); err != nil {
			return err
		}
		if batch.Len() >= 10_000 {
			if err := batch.Commit(); err != nil {
				return err
			}
			batch = s.NewBatch()
		}
	}
	if batch.Len() > 0 {
		if err := batch.Commit(); err != nil {
			return err
		}
	}
	logger.Info("ClinVar gene aggregates imported", zap.Int("genes", len(perGene)))
	return nil
}

// GenesDB is an opened per-gene ClinVar database.
type GenesDB struct {
	Store *store.Store
}

// OpenGenes opens a per-gene ClinVar database read-only.
func OpenGenes(path string) (*GenesDB, error) {
	s, err := store.OpenReadOnly(path, []string{GenesCF})
	if err != nil {
		return nil, err
	}
	return &GenesDB{Store: s}, nil
}

// Close releases the database handle.
func (db *GenesDB) Close() error { return db.Store.Close() }

// QueryGene returns the aggregate of one HGNC ID, or nil.
func (db *GenesDB) QueryGene(hgncID string) (*GeneRecord, error) {
	value, err := db.Store.Get(GenesCF, []byte(hgncID))
	if err != nil || value == nil {
		return nil, err
	}
	return DecodeGeneRecord(value)
}
