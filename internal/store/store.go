// Package store wraps the embedded ordered key-value engine behind the small
// surface the annotation layers need: named column families, point gets,
// prefix and range iteration, batched writes, and end-of-ingest compaction.
//
// Column families are disjoint keyspaces inside a single pebble database:
// the physical key is the family name, a NUL separator, then the logical key.
// Family names therefore must not contain NUL bytes; logical keys are
// unrestricted.
package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/pebble"

	"github.com/annokv/annokv/internal/annoerr"
)

// MetaCF is the fixed name of the metadata column family.
const MetaCF = "meta"

// cfSep separates the column family name from the logical key.
const cfSep = byte(0)

// Store is a handle to one annotation database directory. It is safe for
// concurrent use; the engine owns all internal locking.
type Store struct {
	db       *pebble.DB
	path     string
	readOnly bool
}

// canonicalPath resolves the path to absolute, symlink-free form. In read
// mode the path must exist.
func canonicalPath(path string, mustExist bool) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: resolving %q: %v", annoerr.ErrStore, path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return "", fmt.Errorf("%w: database directory %q", annoerr.ErrNotFound, abs)
			}
			return abs, nil
		}
		return "", fmt.Errorf("%w: resolving %q: %v", annoerr.ErrStore, abs, err)
	}
	return resolved, nil
}

func validateCFName(cf string) error {
	if cf == "" || strings.ContainsRune(cf, 0) {
		return fmt.Errorf("%w: bad column family name %q", annoerr.ErrStore, cf)
	}
	return nil
}

// OpenReadWrite opens (creating if necessary) the database at path for an
// ingest job.
func OpenReadWrite(path string, opts Options) (*Store, error) {
	p, err := canonicalPath(path, false)
	if err != nil {
		return nil, err
	}
	db, err := pebble.Open(p, opts.pebbleOptions(false))
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q for writing: %v", annoerr.ErrStore, p, err)
	}
	openCounter.WithLabelValues("rw").Inc()
	return &Store{db: db, path: p}, nil
}

// OpenReadOnly opens the database at path for querying and verifies that the
// metadata declares every column family in requiredCFs. A directory without
// metadata is considered in-progress or corrupt and refused.
func OpenReadOnly(path string, requiredCFs []string) (*Store, error) {
	p, err := canonicalPath(path, true)
	if err != nil {
		return nil, err
	}
	db, err := pebble.Open(p, DefaultOptions().pebbleOptions(true))
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q read-only: %v", annoerr.ErrStore, p, err)
	}
	s := &Store{db: db, path: p, readOnly: true}
	if err := s.checkMeta(requiredCFs); err != nil {
		_ = s.Close()
		return nil, err
	}
	openCounter.WithLabelValues("ro").Inc()
	return s, nil
}

// Path returns the canonicalized database directory.
func (s *Store) Path() string { return s.path }

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: closing %q: %v", annoerr.ErrStore, s.path, err)
	}
	return nil
}

// physKey builds the physical key for a (cf, key) pair.
func physKey(cf string, key []byte) []byte {
	out := make([]byte, 0, len(cf)+1+len(key))
	out = append(out, cf...)
	out = append(out, cfSep)
	out = append(out, key...)
	return out
}

// cfPrefix is the physical prefix of every key in a column family.
func cfPrefix(cf string) []byte {
	return physKey(cf, nil)
}

// Get returns the value stored under key in the given column family, or nil
// if the key is absent. Absence is not an error.
func (s *Store) Get(cf string, key []byte) ([]byte, error) {
	getCounter.WithLabelValues(cf).Inc()
	val, closer, err := s.db.Get(physKey(cf, key))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s/%x: %v", annoerr.ErrStore, cf, key, err)
	}
	defer closer.Close()
	return bytes.Clone(val), nil
}

// Put writes a single key-value pair. Ingest paths should prefer batches.
func (s *Store) Put(cf string, key, value []byte) error {
	putCounter.WithLabelValues(cf).Inc()
	if err := s.db.Set(physKey(cf, key), value, pebble.NoSync); err != nil {
		return fmt.Errorf("%w: put %s/%x: %v", annoerr.ErrStore, cf, key, err)
	}
	return nil
}

// Batch collects writes for atomic application. All writes of one batch
// commit together.
type Batch struct {
	s *Store
	b *pebble.Batch
}

// NewBatch creates an empty write batch.
func (s *Store) NewBatch() *Batch {
	return &Batch{s: s, b: s.db.NewBatch()}
}

// Set adds a write to the batch.
func (b *Batch) Set(cf string, key, value []byte) error {
	putCounter.WithLabelValues(cf).Inc()
	if err := b.b.Set(physKey(cf, key), value, nil); err != nil {
		return fmt.Errorf("%w: batch set %s/%x: %v", annoerr.ErrStore, cf, key, err)
	}
	return nil
}

// Len returns the number of accumulated writes.
func (b *Batch) Len() int { return int(b.b.Count()) }

// Commit applies the batch. The batch must not be reused afterwards.
func (b *Batch) Commit() error {
	if err := b.s.db.Apply(b.b, pebble.NoSync); err != nil {
		return fmt.Errorf("%w: committing batch: %v", annoerr.ErrStore, err)
	}
	return b.b.Close()
}

// CompactAll flushes memtables and compacts the complete keyspace down to
// the bottommost level. It blocks until compaction finishes and is called
// once at the end of every ingest job.
func (s *Store) CompactAll() error {
	if err := s.db.Flush(); err != nil {
		return fmt.Errorf("%w: flushing before compaction: %v", annoerr.ErrStore, err)
	}
	// Full keyspace: pebble requires start < end.
	if err := s.db.Compact([]byte{0}, []byte{0xff, 0xff, 0xff, 0xff}, true); err != nil {
		return fmt.Errorf("%w: compacting: %v", annoerr.ErrStore, err)
	}
	return nil
}

// RemoveWALArtifacts deletes leftover write-ahead log files from the closed
// database directory. Only call after a clean Close; the fully compacted
// database no longer needs them.
func RemoveWALArtifacts(path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("%w: listing %q: %v", annoerr.ErrStore, path, err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".log") {
			if err := os.Remove(filepath.Join(path, e.Name())); err != nil {
				return fmt.Errorf("%w: removing WAL artifact %q: %v", annoerr.ErrStore, e.Name(), err)
			}
		}
	}
	return nil
}
