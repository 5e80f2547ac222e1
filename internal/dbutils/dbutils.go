// Package dbutils implements maintenance commands over finished databases:
// filtered copies and metadata dumps.
package dbutils

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/ingest"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/store"
)

// CopySelection restricts which keys a copy carries over. Exactly one of
// All, Position, Range, or BedPaths is set.
type CopySelection struct {
	All      bool
	Position *keys.PositionQuery
	Range    *keys.RangeQuery
	BedPaths []string
}

// bedInterval is one region from a BED file (converted to 1-based closed).
type bedInterval struct {
	chrom string
	start uint32
	stop  uint32
}

func readBed(path string) ([]bedInterval, error) {
	in, err := ingest.OpenInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var out []bedInterval
	lineNo := 0
	for in.Scanner.Scan() {
		lineNo++
		line := in.Scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "track") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("%w: %s:%d: expected 3 BED columns", annoerr.ErrFormat, path, lineNo)
		}
		chrom, err := keys.CanonicalChrom(fields[0])
		if err != nil {
			continue
		}
		start, err1 := strconv.ParseUint(fields[1], 10, 32)
		stop, err2 := strconv.ParseUint(fields[2], 10, 32)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%w: %s:%d: bad BED coordinates", annoerr.ErrFormat, path, lineNo)
		}
		// BED is 0-based half-open.
		out = append(out, bedInterval{chrom: chrom, start: uint32(start) + 1, stop: uint32(stop)})
	}
	return out, in.Scanner.Err()
}

// Copy copies the selected keys of every declared column family from the
// source database into a fresh database at destPath, finishing with the
// source metadata so the destination is a complete, openable database.
func Copy(srcPath, destPath string, sel CopySelection, logger *zap.Logger) error {
	src, err := store.OpenReadOnly(srcPath, nil)
	if err != nil {
		return err
	}
	defer src.Close()

	cfNames, err := src.CFNames()
	if err != nil {
		return err
	}
	if len(cfNames) == 0 {
		return fmt.Errorf("%w: source database declares no column families", annoerr.ErrStore)
	}

	dest, err := store.OpenReadWrite(destPath, store.DefaultOptions())
	if err != nil {
		return err
	}

	var intervals []bedInterval
	switch {
	case sel.Position != nil:
		intervals = []bedInterval{{
			chrom: sel.Position.Chrom, start: sel.Position.Pos, stop: sel.Position.Pos,
		}}
	case sel.Range != nil:
		iv := sel.Range.Interval
		intervals = []bedInterval{{chrom: iv.Chrom, start: iv.Start, stop: iv.Stop}}
	case len(sel.BedPaths) > 0:
		for _, path := range sel.BedPaths {
			ivs, err := readBed(path)
			if err != nil {
				dest.Close()
				return err
			}
			intervals = append(intervals, ivs...)
		}
	}

	release, err := src.GenomeRelease()
	if err != nil {
		dest.Close()
		return err
	}
	assembly, err := keys.ParseAssembly(release)
	if err != nil {
		dest.Close()
		return err
	}

	for _, cf := range cfNames {
		if err := copyCF(src, dest, cf, assembly, sel.All, intervals); err != nil {
			dest.Close()
			return fmt.Errorf("copying column family %q: %w", cf, err)
		}
		logger.Info("column family copied", zap.String("cf", cf))
	}

	// Metadata last, as in every ingest: it marks the copy complete.
	meta, err := dumpMeta(src)
	if err != nil {
		dest.Close()
		return err
	}
	if err := dest.WriteMeta(meta); err != nil {
		dest.Close()
		return err
	}
	if err := dest.CompactAll(); err != nil {
		dest.Close()
		return err
	}
	return dest.Close()
}

// copyCF copies one family. Coordinate selections scan the (rank, pos)
// ranges; non-coordinate families (accession indices, gene keys) are
// copied wholesale since their rows are referenced by the selected
// records.
func copyCF(src, dest *store.Store, cf string, assembly keys.Assembly, all bool, intervals []bedInterval) error {
	coordKeyed := coordinateKeyed(src, cf)
	if all || len(intervals) == 0 {
		if coordKeyed {
			return copyWindowed(src, dest, cf, assembly)
		}
		return copyRange(src, dest, cf, nil, nil)
	}
	if !coordKeyed {
		return copyRange(src, dest, cf, nil, nil)
	}
	for _, iv := range intervals {
		lo, err := keys.EncodePos(iv.chrom, iv.start)
		if err != nil {
			return err
		}
		hi, err := keys.EncodePos(iv.chrom, iv.stop+1)
		if err != nil {
			return err
		}
		if err := copyRange(src, dest, cf, lo, hi); err != nil {
			return err
		}
	}
	return nil
}

// copyWindowFactor sizes the copy windows as a multiple of the ingest
// window; copies are scans, not parses, so larger chunks balance fine.
const copyWindowFactor = 100

// copyWindowed copies a full coordinate-keyed family in parallel. Workers
// own disjoint genome windows, so the destination content is deterministic
// regardless of scheduling.
func copyWindowed(src, dest *store.Store, cf string, assembly keys.Assembly) error {
	windows := ingest.BuildWindows(assembly, copyWindowFactor*ingest.DefaultWindowSize)
	return ingest.RunPool(windows, 0, func(w ingest.Window) error {
		start := w.Start
		if start == 1 {
			// Interval families encode a bin number where variant families
			// encode the position; bin 0 sorts before position 1, so the
			// leading window starts at 0 to cover both layouts.
			start = 0
		}
		lo, err := keys.EncodePos(w.Chrom, start)
		if err != nil {
			return err
		}
		hi, err := keys.EncodePos(w.Chrom, w.Stop+1)
		if err != nil {
			return err
		}
		return copyRange(src, dest, cf, lo, hi)
	})
}

// coordinateKeyed probes the first key of the family for the variant key
// shape: a chromosome rank byte followed by a big-endian position.
func coordinateKeyed(s *store.Store, cf string) bool {
	it, err := s.IteratePrefix(cf, nil)
	if err != nil {
		return false
	}
	defer it.Close()
	if !it.Next() {
		return false
	}
	key := it.Key()
	if len(key) < 5 {
		return false
	}
	if _, err := keys.RankChrom(key[0]); err != nil {
		return false
	}
	// Positions beyond any chromosome length mean a non-coordinate key.
	return binary.BigEndian.Uint32(key[1:5]) <= 300_000_000
}

func copyRange(src, dest *store.Store, cf string, lo, hi []byte) error {
	var it *store.Iter
	var err error
	if lo == nil {
		it, err = src.IteratePrefix(cf, nil)
	} else {
		it, err = src.IterateRange(cf, lo, hi)
	}
	if err != nil {
		return err
	}
	defer it.Close()

	batch := dest.NewBatch()
	for it.Next() {
		if err := batch.Set(cf, it.Key(), it.Value()); err != nil {
			return err
		}
		if batch.Len() >= 10_000 {
			if err := batch.Commit(); err != nil {
				return err
			}
			batch = dest.NewBatch()
		}
	}
	if err := it.Err(); err != nil {
		return err
	}
	if batch.Len() > 0 {
		return batch.Commit()
	}
	return nil
}

func dumpMeta(s *store.Store) (map[string]string, error) {
	it, err := s.IteratePrefix(store.MetaCF, nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	out := make(map[string]string)
	for it.Next() {
		out[string(it.Key())] = string(it.Value())
	}
	return out, it.Err()
}

// DumpMeta writes the metadata of the database as "#key\tvalue" TSV.
func DumpMeta(path string, w io.Writer) error {
	s, err := store.OpenReadOnly(path, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := fmt.Fprintln(w, "#key\tvalue"); err != nil {
		return err
	}
	it, err := s.IteratePrefix(store.MetaCF, nil)
	if err != nil {
		return err
	}
	defer it.Close()
	for it.Next() {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", it.Key(), it.Value()); err != nil {
			return err
		}
	}
	return it.Err()
}
