// Package functional implements the functional element dataset: GFF3
// features filtered by class predicates, stored in the interval+bin
// layout.
package functional

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/gff"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/query"
	"github.com/annokv/annokv/internal/store"
)

// CF is the column family of functional element databases.
const CF = "functional"

// DefaultFeatureClasses are the GFF feature types imported when the caller
// supplies no predicate.
var DefaultFeatureClasses = []string{
	"misc_feature", "misc_recomb", "misc_structure", "mobile_element",
	"protein_bind", "region", "regulatory", "repeat_region", "rep_origin",
}

// Record is one functional element.
type Record struct {
	ID       string `json:"id"`
	Chrom    string `json:"chrom"`
	Start    uint32 `json:"start"`
	Stop     uint32 `json:"stop"`
	Category string `json:"category"`
	// RegulatoryClass is set for regulatory features (promoter, enhancer,
	// silencer, ...).
	RegulatoryClass string `json:"regulatory_class,omitempty"`
	Note            string `json:"note,omitempty"`
}

// Encode serializes the record value.
func (r *Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRecord deserializes a stored record value.
func DecodeRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: decoding functional record: %v", annoerr.ErrStore, err)
	}
	return &r, nil
}

// ImportConfig configures the functional element import.
type ImportConfig struct {
	// FeatureClasses keeps features whose GFF type matches; empty uses the
	// defaults.
	FeatureClasses []string
}

// Import reads the GFF3 file, keeps features matching the class predicate,
// and writes interval records.
func Import(s *store.Store, cfg ImportConfig, path string, logger *zap.Logger) error {
	classes := cfg.FeatureClasses
	if len(classes) == 0 {
		classes = DefaultFeatureClasses
	}
	keep := make(map[string]bool, len(classes))
	for _, c := range classes {
		keep[c] = true
	}

	reader, err := gff.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	batch := s.NewBatch()
	records := 0
	for {
		feature, err := reader.Next()
		if err != nil {
			return fmt.Errorf("importing %q: %w", path, err)
		}
		if feature == nil {
			break
		}
		if !keep[feature.Type] {
			continue
		}
		chrom, err := keys.CanonicalChrom(feature.SeqID)
		if err != nil {
			logger.Debug("skipping feature on non-canonical sequence",
				zap.String("seqid", feature.SeqID))
			continue
		}
		id := feature.Attribute("ID")
		if id == "" {
			id = feature.Attribute("Dbxref")
		}
		rec := &Record{
			ID:              id,
			Chrom:           chrom,
			Start:           feature.Start,
			Stop:            feature.Stop,
			Category:        feature.Type,
			RegulatoryClass: feature.Attribute("regulatory_class"),
			Note:            feature.Attribute("Note"),
		}
		key, err := keys.EncodeInterval(
			keys.Interval{Chrom: chrom, Start: rec.Start, Stop: rec.Stop}, []byte(rec.ID))
		if err != nil {
			return err
		}
		value, err := rec.Encode()
		if err != nil {
			return err
		}
		if err := batch.Set(CF, key, value); err != nil {
			return err
		}
		records++
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
	logger.Info("functional elements imported", zap.String("path", path), zap.Int("records", records))
	return nil
}

// DB is an opened functional element database.
type DB struct {
	Store *store.Store
}

// Open opens a functional element database read-only.
func Open(path string) (*DB, error) {
	s, err := store.OpenReadOnly(path, []string{CF})
	if err != nil {
		return nil, err
	}
	return &DB{Store: s}, nil
}

// Close releases the database handle.
func (db *DB) Close() error { return db.Store.Close() }

func decode(_, value []byte) (*Record, error) {
	return DecodeRecord(value)
}

// QueryRange returns all elements truly overlapping the window.
func (db *DB) QueryRange(assembly keys.Assembly, iv keys.Interval) ([]*Record, error) {
	return query.Overlap(db.Store, CF, assembly, iv, decode)
}
