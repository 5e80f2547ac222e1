// Package query implements the primitive read operators over the column
// family layouts: point variant lookup, position and range scans over
// variant-keyed families, bin-expanded overlap scans over interval-keyed
// families, and accession resolution through secondary index families.
//
// Every coordinate-based operator verifies the query assembly against the
// database genome-release before touching any data; accession lookup and
// the full dump do no assembly check.
package query

import (
	"fmt"

	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/store"
)

// Decoder reconstructs a typed record from a stored (key, value) pair.
type Decoder[T any] func(key, value []byte) (T, error)

// Point returns the record of one variant, or nil if absent.
func Point[T any](s *store.Store, cf string, assembly keys.Assembly, v keys.Variant, dec Decoder[T]) (*T, error) {
	if err := s.CheckAssembly(string(assembly)); err != nil {
		return nil, err
	}
	key, err := keys.EncodeVariant(v)
	if err != nil {
		return nil, err
	}
	value, err := s.Get(cf, key)
	if err != nil || value == nil {
		return nil, err
	}
	rec, err := dec(key, value)
	if err != nil {
		return nil, fmt.Errorf("decoding %s record: %w", cf, err)
	}
	return &rec, nil
}

// Position returns all variant records at one coordinate, in key order.
func Position[T any](s *store.Store, cf string, assembly keys.Assembly, chrom string, pos uint32, dec Decoder[T]) ([]T, error) {
	if err := s.CheckAssembly(string(assembly)); err != nil {
		return nil, err
	}
	prefix, err := keys.EncodePos(chrom, pos)
	if err != nil {
		return nil, err
	}
	return collectPrefix(s, cf, prefix, dec)
}

// Range returns all variant records with start position inside the closed
// interval, in key order.
func Range[T any](s *store.Store, cf string, assembly keys.Assembly, iv keys.Interval, dec Decoder[T]) ([]T, error) {
	if err := s.CheckAssembly(string(assembly)); err != nil {
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
	it, err := s.IterateRange(cf, lo, hi)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	return collect(it, cf, dec)
}

// Overlap returns all interval records truly overlapping the query window.
// It expands the window into its UCSC bins, scans each bin prefix, and
// filters by exact overlap against the interval encoded in the key.
func Overlap[T any](s *store.Store, cf string, assembly keys.Assembly, iv keys.Interval, dec Decoder[T]) ([]T, error) {
	if err := s.CheckAssembly(string(assembly)); err != nil {
		return nil, err
	}
	civ, err := iv.Canonicalize()
	if err != nil {
		return nil, err
	}
	// One contiguous scan per bin level: bins on a level are consecutive
	// integers, and the key layout sorts them adjacently, so the number of
	// scans is fixed regardless of window length.
	var out []T
	for _, br := range keys.OverlappingBins(civ.Start, civ.Stop) {
		lo, err := keys.IntervalBinPrefix(civ.Chrom, br.Lo)
		if err != nil {
			return nil, err
		}
		hiPrefix, err := keys.IntervalBinPrefix(civ.Chrom, br.Hi)
		if err != nil {
			return nil, err
		}
		it, err := s.IterateRange(cf, lo, keys.PrefixUpperBound(hiPrefix))
		if err != nil {
			return nil, err
		}
		for it.Next() {
			stored, _, err := keys.DecodeInterval(it.Key())
			if err != nil {
				it.Close()
				return nil, err
			}
			if stored.Start > civ.Stop || stored.Stop < civ.Start {
				continue
			}
			rec, err := dec(it.Key(), it.Value())
			if err != nil {
				it.Close()
				return nil, fmt.Errorf("decoding %s record: %w", cf, err)
			}
			out = append(out, rec)
		}
		if err := closeIter(it); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Accession resolves an accession through its secondary index family and
// point-reads the primary family. Returns nil if either step misses.
func Accession[T any](s *store.Store, accessionCF, primaryCF, accession string, dec Decoder[T]) (*T, error) {
	primaryKey, err := s.Get(accessionCF, []byte(accession))
	if err != nil || primaryKey == nil {
		return nil, err
	}
	value, err := s.Get(primaryCF, primaryKey)
	if err != nil || value == nil {
		return nil, err
	}
	rec, err := dec(primaryKey, value)
	if err != nil {
		return nil, fmt.Errorf("decoding %s record: %w", primaryCF, err)
	}
	return &rec, nil
}

// All streams every record of the family to fn, in key order.
func All[T any](s *store.Store, cf string, dec Decoder[T], fn func(T) error) error {
	it, err := s.IteratePrefix(cf, nil)
	if err != nil {
		return err
	}
	defer it.Close()
	for it.Next() {
		rec, err := dec(it.Key(), it.Value())
		if err != nil {
			return fmt.Errorf("decoding %s record: %w", cf, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return it.Err()
}

func collectPrefix[T any](s *store.Store, cf string, prefix []byte, dec Decoder[T]) ([]T, error) {
	it, err := s.IteratePrefix(cf, prefix)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	return collect(it, cf, dec)
}

func collect[T any](it *store.Iter, cf string, dec Decoder[T]) ([]T, error) {
	var out []T
	for it.Next() {
		rec, err := dec(it.Key(), it.Value())
		if err != nil {
			return nil, fmt.Errorf("decoding %s record: %w", cf, err)
		}
		out = append(out, rec)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func closeIter(it *store.Iter) error {
	if err := it.Err(); err != nil {
		it.Close()
		return err
	}
	return it.Close()
}
