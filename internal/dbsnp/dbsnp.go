// Package dbsnp implements the dbSNP identifier dataset: variant-keyed
// records plus an rs-accession secondary index.
package dbsnp

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/query"
	"github.com/annokv/annokv/internal/store"
	"github.com/annokv/annokv/internal/vcf"
)

// Column families of dbSNP databases.
const (
	CF            = "dbsnp"
	CFByAccession = "dbsnp_by_accession"
)

// Record is one dbSNP variant.
type Record struct {
	Chrom string `json:"chrom"`
	Pos   uint32 `json:"pos"`
	Ref   string `json:"ref"`
	Alt   string `json:"alt"`
	RSID  string `json:"rs_id"`
}

// Encode serializes the record value.
func (r *Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRecord deserializes a stored record value.
func DecodeRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: decoding dbSNP record: %v", annoerr.ErrStore, err)
	}
	return &r, nil
}

// Import reads a dbSNP VCF. Every split allele is written to the primary
// family; the rs accession maps to the canonical key in the secondary
// family, so every accession entry resolves to a primary hit.
func Import(s *store.Store, path string, logger *zap.Logger) error {
	parser, err := vcf.NewParser(path)
	if err != nil {
		return err
	}
	defer parser.Close()

	batch := s.NewBatch()
	records := 0
	for {
		site, err := parser.Next()
		if err != nil {
			return fmt.Errorf("importing %q: %w", path, err)
		}
		if site == nil {
			break
		}
		for _, v := range vcf.SplitMultiAllelic(site) {
			if v.IsSymbolic() {
				continue
			}
			rec := &Record{
				Chrom: v.NormalizeChrom(),
				Pos:   uint32(v.Pos),
				Ref:   v.Ref,
				Alt:   v.Alt,
				RSID:  v.ID,
			}
			key, err := keys.EncodeVariant(keys.Variant{
				Chrom: v.Chrom, Pos: uint32(v.Pos), Ref: v.Ref, Alt: v.Alt,
			})
			if err != nil {
				return fmt.Errorf("importing %q near line %d: %w", path, parser.LineNumber(), err)
			}
			value, err := rec.Encode()
			if err != nil {
				return err
			}
			if err := batch.Set(CF, key, value); err != nil {
				return err
			}
			if strings.HasPrefix(v.ID, "rs") {
				if err := batch.Set(CFByAccession, []byte(v.ID), key); err != nil {
					return err
				}
			}
			records++
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
	logger.Info("dbSNP imported", zap.String("path", path), zap.Int("records", records))
	return nil
}

// DB is an opened dbSNP database.
type DB struct {
	Store *store.Store
}

// Open opens a dbSNP database read-only.
func Open(path string) (*DB, error) {
	s, err := store.OpenReadOnly(path, []string{CF, CFByAccession})
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

// QueryVariant returns the record of one variant, or nil.
func (db *DB) QueryVariant(assembly keys.Assembly, v keys.Variant) (*Record, error) {
	rec, err := query.Point(db.Store, CF, assembly, v, decode)
	if err != nil || rec == nil {
		return nil, err
	}
	return *rec, nil
}

// QueryPosition returns all records at a coordinate.
func (db *DB) QueryPosition(assembly keys.Assembly, chrom string, pos uint32) ([]*Record, error) {
	return query.Position(db.Store, CF, assembly, chrom, pos, decode)
}

// QueryRange returns all records inside the closed range.
func (db *DB) QueryRange(assembly keys.Assembly, iv keys.Interval) ([]*Record, error) {
	return query.Range(db.Store, CF, assembly, iv, decode)
}

// QueryAccession resolves an rs accession. Structured accessions compare
// case-sensitively.
func (db *DB) QueryAccession(accession string) (*Record, error) {
	rec, err := query.Accession(db.Store, CFByAccession, CF, accession, decode)
	if err != nil || rec == nil {
		return nil, err
	}
	return *rec, nil
}
