package clinvar

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/ingest"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/query"
	"github.com/annokv/annokv/internal/store"
)

// Column families of the minimal (sequence variant) ClinVar dataset.
const (
	MinimalCF       = "clinvar"
	MinimalByVCV    = "clinvar_by_accession"
	MinimalByRCV    = "clinvar_by_rcv"
)

// MaxSeqVarAlleleLen is the REF/ALT length above which a record counts as
// structural and is excluded from the sequence-variant dataset.
const MaxSeqVarAlleleLen = 50

// MinimalImportConfig configures the minimal ClinVar import.
type MinimalImportConfig struct {
	// LenientJSON accepts historic upstream dialects (None, single quotes).
	LenientJSON bool
	// SortScratchDir holds external-sort temp files; empty uses the system
	// temp directory.
	SortScratchDir string
}

// ImportMinimal streams the JSONL files into the store. Primary records are
// written as they arrive; the accession families require globally sorted
// input, so their entries pass through an external merge sort first.
func ImportMinimal(s *store.Store, cfg MinimalImportConfig, paths []string, logger *zap.Logger) error {
	sorter, err := ingest.NewSorter(cfg.SortScratchDir, 0)
	if err != nil {
		return err
	}
	defer sorter.Close()

	batch := s.NewBatch()
	records := 0
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
			rec, err := ParseLine(line, cfg.LenientJSON)
			if err != nil {
				logger.Warn("skipping malformed JSONL line",
					zap.String("path", path), zap.Int("line", lineNo), zap.Error(err))
				continue
			}
			loc := rec.SequenceLocation
			if loc == nil || loc.Ref == "" || loc.Alt == "" {
				logger.Debug("skipping record without sequence variant",
					zap.String("accession", rec.Accession.String()))
				continue
			}
			if len(loc.Ref) > MaxSeqVarAlleleLen || len(loc.Alt) > MaxSeqVarAlleleLen {
				logger.Debug("skipping structural-sized alleles",
					zap.String("accession", rec.Accession.String()))
				continue
			}
			key, err := keys.EncodeVariant(keys.Variant{
				Chrom: loc.Chrom, Pos: loc.Start, Ref: loc.Ref, Alt: loc.Alt,
			})
			if err != nil {
				logger.Warn("skipping record with bad coordinates",
					zap.String("accession", rec.Accession.String()), zap.Error(err))
				continue
			}
			value, err := rec.Encode()
			if err != nil {
				in.Close()
				return err
			}
			if err := batch.Set(MinimalCF, key, value); err != nil {
				in.Close()
				return err
			}
			// Accession entries store the canonical primary key bytes, not
			// a record copy.
			if err := sorter.Put(accessionSortKey(MinimalByVCV, rec.Accession.Acc), key); err != nil {
				in.Close()
				return err
			}
			for _, rcv := range rec.RCVs {
				if err := sorter.Put(accessionSortKey(MinimalByRCV, rcv.Acc), key); err != nil {
					in.Close()
					return err
				}
			}
			records++
			if batch.Len() >= 10_000 {
				if err := batch.Commit(); err != nil {
					in.Close()
					return err
				}
				batch = s.NewBatch()
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
	if batch.Len() > 0 {
		if err := batch.Commit(); err != nil {
			return err
		}
	}

	// Stream the accession entries in global key order. Re-imported
	// accessions overwrite idempotently (last write wins).
	accBatch := s.NewBatch()
	err = sorter.Merge(func(key, val []byte) error {
		cf, acc := splitAccessionSortKey(key)
		if err := accBatch.Set(cf, acc, val); err != nil {
			return err
		}
		if accBatch.Len() >= 10_000 {
			if err := accBatch.Commit(); err != nil {
				return err
			}
			accBatch = s.NewBatch()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if accBatch.Len() > 0 {
		if err := accBatch.Commit(); err != nil {
			return err
		}
	}
	logger.Info("ClinVar minimal imported", zap.Int("records", records))
	return nil
}

// accessionSortKey prefixes the accession with its target family so one
// sorter serves all accession families.
func accessionSortKey(cf, accession string) []byte {
	return []byte(cf + "\x00" + accession)
}

func splitAccessionSortKey(key []byte) (cf string, accession []byte) {
	for i, b := range key {
		if b == 0 {
			return string(key[:i]), key[i+1:]
		}
	}
	return "", key
}

// MinimalDB is an opened minimal ClinVar database.
type MinimalDB struct {
	Store *store.Store
}

// OpenMinimal opens a minimal ClinVar database read-only.
func OpenMinimal(path string) (*MinimalDB, error) {
	s, err := store.OpenReadOnly(path, []string{MinimalCF, MinimalByVCV, MinimalByRCV})
	if err != nil {
		return nil, err
	}
	return &MinimalDB{Store: s}, nil
}

// Close releases the database handle.
func (db *MinimalDB) Close() error { return db.Store.Close() }

func decodeMinimal(_, value []byte) (*Record, error) {
	return DecodeRecord(value)
}

// QueryVariant returns the record of one variant, or nil.
func (db *MinimalDB) QueryVariant(assembly keys.Assembly, v keys.Variant) (*Record, error) {
	rec, err := query.Point(db.Store, MinimalCF, assembly, v, decodeMinimal)
	if err != nil || rec == nil {
		return nil, err
	}
	return *rec, nil
}

// QueryPosition returns all records at a coordinate.
func (db *MinimalDB) QueryPosition(assembly keys.Assembly, chrom string, pos uint32) ([]*Record, error) {
	return query.Position(db.Store, MinimalCF, assembly, chrom, pos, decodeMinimal)
}

// QueryRange returns all records inside the closed range.
func (db *MinimalDB) QueryRange(assembly keys.Assembly, iv keys.Interval) ([]*Record, error) {
	return query.Range(db.Store, MinimalCF, assembly, iv, decodeMinimal)
}

// QueryAccession resolves a VCV or RCV accession (without version) to its
// record. Structured accessions compare case-sensitively.
func (db *MinimalDB) QueryAccession(accession string) (*Record, error) {
	rec, err := query.Accession(db.Store, MinimalByVCV, MinimalCF, accession, decodeMinimal)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec, err = query.Accession(db.Store, MinimalByRCV, MinimalCF, accession, decodeMinimal)
		if err != nil || rec == nil {
			return nil, err
		}
	}
	return *rec, nil
}
