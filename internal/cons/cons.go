// Package cons implements the per-transcript conservation dataset: UCSC
// alignment windows keyed by start position with the transcript ID as key
// tail, so one position can carry several transcripts.
package cons

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/ingest"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/store"
)

// CF is the column family of conservation databases.
const CF = "cons"

// Record is one conservation window of one transcript.
type Record struct {
	Chrom  string `json:"chrom"`
	Start  uint32 `json:"start"`
	Stop   uint32 `json:"stop"`
	EnstID string `json:"enst_id"`
}

// Encode serializes the record value.
func (r *Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRecord deserializes a stored record value.
func DecodeRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: decoding conservation record: %v", annoerr.ErrStore, err)
	}
	return &r, nil
}

// Import reads the conservation TSV (columns chrom, start, stop, enst_id)
// into the store.
func Import(s *store.Store, path string, logger *zap.Logger) error {
	in, err := ingest.OpenInput(path)
	if err != nil {
		return err
	}
	defer in.Close()

	batch := s.NewBatch()
	records := 0
	lineNo := 0
	for in.Scanner.Scan() {
		lineNo++
		line := in.Scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 4 {
			return fmt.Errorf("%w: %s:%d: expected 4 columns, found %d",
				annoerr.ErrFormat, path, lineNo, len(fields))
		}
		start, err1 := strconv.ParseUint(fields[1], 10, 32)
		stop, err2 := strconv.ParseUint(fields[2], 10, 32)
		if err1 != nil || err2 != nil {
			return fmt.Errorf("%w: %s:%d: invalid coordinates", annoerr.ErrFormat, path, lineNo)
		}
		chrom, err := keys.CanonicalChrom(fields[0])
		if err != nil {
			logger.Warn("skipping non-canonical chromosome",
				zap.String("chrom", fields[0]), zap.Int("line", lineNo))
			continue
		}
		rec := &Record{Chrom: chrom, Start: uint32(start), Stop: uint32(stop), EnstID: fields[3]}
		posKey, err := keys.EncodePos(chrom, rec.Start)
		if err != nil {
			return err
		}
		key := append(posKey, rec.EnstID...)
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
	if err := in.Scanner.Err(); err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}
	if batch.Len() > 0 {
		if err := batch.Commit(); err != nil {
			return err
		}
	}
	logger.Info("conservation imported", zap.String("path", path), zap.Int("records", records))
	return nil
}

// DB is an opened conservation database.
type DB struct {
	Store *store.Store
}

// Open opens a conservation database read-only.
func Open(path string) (*DB, error) {
	s, err := store.OpenReadOnly(path, []string{CF})
	if err != nil {
		return nil, err
	}
	return &DB{Store: s}, nil
}

// Close releases the database handle.
func (db *DB) Close() error { return db.Store.Close() }

// QueryPosition returns all windows starting at the coordinate.
func (db *DB) QueryPosition(assembly keys.Assembly, chrom string, pos uint32) ([]*Record, error) {
	if err := db.Store.CheckAssembly(string(assembly)); err != nil {
		return nil, err
	}
	prefix, err := keys.EncodePos(chrom, pos)
	if err != nil {
		return nil, err
	}
	it, err := db.Store.IteratePrefix(CF, prefix)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []*Record
	for it.Next() {
		rec, err := DecodeRecord(it.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, it.Err()
}

// QueryRange returns all windows starting inside the closed range.
func (db *DB) QueryRange(assembly keys.Assembly, iv keys.Interval) ([]*Record, error) {
	if err := db.Store.CheckAssembly(string(assembly)); err != nil {
		return nil, err
	}
	civ, err := iv.Canonicalize()
	if err != nil {
		return nil, err
	}
	lo, err := keys.EncodePos(civ.Chrom, civ.Start)
	if err != nil {
		return nil, err
	}
	hi, err := keys.EncodePos(civ.Chrom, civ.Stop+1)
	if err != nil {
		return nil, err
	}
	it, err := db.Store.IterateRange(CF, lo, hi)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []*Record
	for it.Next() {
		rec, err := DecodeRecord(it.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, it.Err()
}
