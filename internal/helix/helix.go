// Package helix implements the HelixMtDb mitochondrial frequency dataset.
package helix

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

// CF is the column family of HelixMtDb databases.
const CF = "helixmtdb"

// Record is one HelixMtDb variant.
type Record struct {
	Pos uint32 `json:"pos"`
	Ref string `json:"ref"`
	Alt string `json:"alt"`

	AN    int32 `json:"an"`
	ACHom int32 `json:"ac_hom"`
	ACHet int32 `json:"ac_het"`
	// Triallelic marks sites where Helix reports a third allele.
	Triallelic bool `json:"triallelic,omitempty"`
}

// Encode serializes the record value.
func (r *Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRecord deserializes a stored record value.
func DecodeRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: decoding HelixMtDb record: %v", annoerr.ErrStore, err)
	}
	return &r, nil
}

// Import reads the HelixMtDb VCF into the store.
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
			rec := &Record{
				Pos:        uint32(v.Pos),
				Ref:        v.Ref,
				Alt:        v.Alt,
				Triallelic: v.NumAlts > 2,
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
	logger.Info("HelixMtDb imported", zap.String("path", path), zap.Int("records", records))
	return nil
}

// DB is an opened HelixMtDb database.
type DB struct {
	Store *store.Store
}

// Open opens a HelixMtDb database read-only.
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
