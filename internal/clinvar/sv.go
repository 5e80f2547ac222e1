package clinvar

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/ingest"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/query"
	"github.com/annokv/annokv/internal/store"
)

// Column families of the structural-variant ClinVar dataset.
const (
	SvCF    = "clinvar_sv"
	SvByVCV = "clinvar_sv_by_accession"
	SvByRCV = "clinvar_sv_by_rcv"
)

// SvImportConfig configures the ClinVar SV import.
type SvImportConfig struct {
	LenientJSON bool
	// MinVarSize is the smallest REF/ALT length that counts as structural
	// for records that carry explicit alleles.
	MinVarSize     uint32
	SortScratchDir string
}

// DefaultMinVarSize is the structural-variant size threshold.
const DefaultMinVarSize = 50

// svInterval derives the reference span of a record: exact start/stop when
// present, else inner, else outer bounds. Returns false for records
// without usable coordinates.
func svInterval(loc *SequenceLocation) (keys.Interval, bool) {
	switch {
	case loc == nil:
		return keys.Interval{}, false
	case loc.Start > 0 && loc.Stop > 0:
		return keys.Interval{Chrom: loc.Chrom, Start: loc.Start, Stop: loc.Stop}, true
	case loc.InnerStart > 0 && loc.InnerStop > 0:
		return keys.Interval{Chrom: loc.Chrom, Start: loc.InnerStart, Stop: loc.InnerStop}, true
	case loc.OuterStart > 0 && loc.OuterStop > 0:
		return keys.Interval{Chrom: loc.Chrom, Start: loc.OuterStart, Stop: loc.OuterStop}, true
	default:
		return keys.Interval{}, false
	}
}

// ImportSv streams the JSONL files into the interval-keyed families.
// Records with explicit alleles below MinVarSize belong to the sequence
// variant dataset and are skipped here.
func ImportSv(s *store.Store, cfg SvImportConfig, paths []string, logger *zap.Logger) error {
	if cfg.MinVarSize == 0 {
		cfg.MinVarSize = DefaultMinVarSize
	}
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
			if loc != nil && loc.Ref != "" && loc.Alt != "" &&
				uint32(len(loc.Ref)) < cfg.MinVarSize && uint32(len(loc.Alt)) < cfg.MinVarSize {
				logger.Debug("skipping short REF/ALT",
					zap.String("accession", rec.Accession.String()))
				continue
			}
			iv, ok := svInterval(loc)
			if !ok {
				logger.Warn("skipping record without start/stop",
					zap.String("accession", rec.Accession.String()))
				continue
			}
			vcv := rec.Accession.String()
			key, err := keys.EncodeInterval(iv, []byte(vcv))
			if err != nil {
				logger.Warn("skipping record with bad coordinates",
					zap.String("accession", vcv), zap.Error(err))
				continue
			}
			value, err := rec.Encode()
			if err != nil {
				in.Close()
				return err
			}
			if err := batch.Set(SvCF, key, value); err != nil {
				in.Close()
				return err
			}
			if err := sorter.Put(accessionSortKey(SvByVCV, rec.Accession.Acc), key); err != nil {
				in.Close()
				return err
			}
			for _, rcv := range rec.RCVs {
				if err := sorter.Put(accessionSortKey(SvByRCV, rcv.Acc), key); err != nil {
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
	logger.Info("ClinVar SV imported", zap.Int("records", records))
	return nil
}

// SvDB is an opened ClinVar SV database.
type SvDB struct {
	Store *store.Store
}

// OpenSv opens a ClinVar SV database read-only.
func OpenSv(path string) (*SvDB, error) {
	s, err := store.OpenReadOnly(path, []string{SvCF, SvByVCV, SvByRCV})
	if err != nil {
		return nil, err
	}
	return &SvDB{Store: s}, nil
}

// Close releases the database handle.
func (db *SvDB) Close() error { return db.Store.Close() }

// QueryRange returns all records truly overlapping the window.
func (db *SvDB) QueryRange(assembly keys.Assembly, iv keys.Interval) ([]*Record, error) {
	return query.Overlap(db.Store, SvCF, assembly, iv, decodeMinimal)
}

// QueryAccession resolves a VCV or RCV accession to its record.
func (db *SvDB) QueryAccession(accession string) (*Record, error) {
	rec, err := query.Accession(db.Store, SvByVCV, SvCF, accession, decodeMinimal)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec, err = query.Accession(db.Store, SvByRCV, SvCF, accession, decodeMinimal)
		if err != nil || rec == nil {
			return nil, err
		}
	}
	return *rec, nil
}
