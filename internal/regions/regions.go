// Package regions implements the ClinGen region dosage sensitivity
// dataset, stored in the interval+bin layout.
package regions

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/ingest"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/query"
	"github.com/annokv/annokv/internal/store"
)

// CF is the column family of region databases.
const CF = "regions"

// Record is one curated dosage sensitivity region.
type Record struct {
	IscaID string `json:"isca_id"`
	Name   string `json:"name,omitempty"`
	Chrom  string `json:"chrom"`
	Start  uint32 `json:"start"`
	Stop   uint32 `json:"stop"`

	HaploinsufficiencyScore *int32 `json:"haploinsufficiency_score,omitempty"`
	TriplosensitivityScore  *int32 `json:"triplosensitivity_score,omitempty"`
}

// Encode serializes the record value.
func (r *Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRecord deserializes a stored record value.
func DecodeRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: decoding region record: %v", annoerr.ErrStore, err)
	}
	return &r, nil
}

// parseGenomicLocation splits "chr16:21512063-29298593" into its parts.
func parseGenomicLocation(s string) (chrom string, start, stop uint32, err error) {
	colon := strings.IndexByte(s, ':')
	dash := strings.IndexByte(s, '-')
	if colon < 0 || dash < colon {
		return "", 0, 0, fmt.Errorf("%w: bad genomic location %q", annoerr.ErrFormat, s)
	}
	lo, err1 := strconv.ParseUint(s[colon+1:dash], 10, 32)
	hi, err2 := strconv.ParseUint(s[dash+1:], 10, 32)
	if err1 != nil || err2 != nil {
		return "", 0, 0, fmt.Errorf("%w: bad genomic location %q", annoerr.ErrFormat, s)
	}
	return s[:colon], uint32(lo), uint32(hi), nil
}

// parseScore handles the "not scored" spellings of the curation files.
func parseScore(s string) *int32 {
	if s == "" || s == "Not yet evaluated" || s == "-1" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil
	}
	v := int32(n)
	return &v
}

// Import reads the ClinGen region curation TSV (columns ISCA ID, ISCA
// Region Name, Genomic Location, Haploinsufficiency Score,
// Triplosensitivity Score).
func Import(s *store.Store, path string, logger *zap.Logger) error {
	in, err := ingest.OpenInput(path)
	if err != nil {
		return err
	}
	defer in.Close()

	var header []string
	col := func(row []string, name string) string {
		for i, h := range header {
			if h == name && i < len(row) {
				return row[i]
			}
		}
		return ""
	}

	batch := s.NewBatch()
	records := 0
	lineNo := 0
	for in.Scanner.Scan() {
		lineNo++
		line := in.Scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if header == nil {
			header = fields
			header[0] = strings.TrimPrefix(header[0], "#")
			continue
		}
		location := col(fields, "Genomic Location")
		chrom, start, stop, err := parseGenomicLocation(location)
		if err != nil {
			logger.Warn("skipping region without location",
				zap.String("isca", col(fields, "ISCA ID")), zap.Int("line", lineNo))
			continue
		}
		rec := &Record{
			IscaID:                  col(fields, "ISCA ID"),
			Name:                    col(fields, "ISCA Region Name"),
			Start:                   start,
			Stop:                    stop,
			HaploinsufficiencyScore: parseScore(col(fields, "Haploinsufficiency Score")),
			TriplosensitivityScore:  parseScore(col(fields, "Triplosensitivity Score")),
		}
		canonical, err := keys.CanonicalChrom(chrom)
		if err != nil {
			logger.Warn("skipping non-canonical chromosome",
				zap.String("chrom", chrom), zap.Int("line", lineNo))
			continue
		}
		rec.Chrom = canonical
		key, err := keys.EncodeInterval(
			keys.Interval{Chrom: canonical, Start: start, Stop: stop}, []byte(rec.IscaID))
		if err != nil {
			return fmt.Errorf("importing %q line %d: %w", path, lineNo, err)
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
	if err := in.Scanner.Err(); err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}
	if batch.Len() > 0 {
		if err := batch.Commit(); err != nil {
			return err
		}
	}
	logger.Info("regions imported", zap.String("path", path), zap.Int("records", records))
	return nil
}

// DB is an opened region database.
type DB struct {
	Store *store.Store
}

// Open opens a region database read-only.
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

// QueryRange returns all regions truly overlapping the window.
func (db *DB) QueryRange(assembly keys.Assembly, iv keys.Interval) ([]*Record, error) {
	return query.Overlap(db.Store, CF, assembly, iv, decode)
}
