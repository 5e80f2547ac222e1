package store

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/keys"
)

// Iter is a single-pass, non-restartable iterator over one column family.
// It holds a consistent read snapshot; concurrent compactions do not
// invalidate it. Callers must Close it on every exit path.
type Iter struct {
	it     *pebble.Iterator
	prefix []byte
	first  bool
}

// IteratePrefix returns an iterator over all keys in cf that start with
// prefix, in key order. An empty prefix iterates the whole family.
func (s *Store) IteratePrefix(cf string, prefix []byte) (*Iter, error) {
	lo := physKey(cf, prefix)
	hi := keys.PrefixUpperBound(lo)
	return s.newIter(cf, lo, hi)
}

// IterateRange returns an iterator over keys in cf in [lo, hi), in key
// order. A nil hi iterates to the end of the family.
func (s *Store) IterateRange(cf string, lo, hi []byte) (*Iter, error) {
	phLo := physKey(cf, lo)
	var phHi []byte
	if hi == nil {
		phHi = keys.PrefixUpperBound(cfPrefix(cf))
	} else {
		phHi = physKey(cf, hi)
	}
	return s.newIter(cf, phLo, phHi)
}

func (s *Store) newIter(cf string, lo, hi []byte) (*Iter, error) {
	iterCounter.WithLabelValues(cf).Inc()
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return nil, fmt.Errorf("%w: iterator on %s: %v", annoerr.ErrStore, cf, err)
	}
	return &Iter{it: it, prefix: cfPrefix(cf), first: true}, nil
}

// Next advances to the next pair and reports whether one is available.
func (i *Iter) Next() bool {
	if i.first {
		i.first = false
		return i.it.First()
	}
	return i.it.Next()
}

// Key returns the logical key of the current pair. The slice is only valid
// until the next call to Next.
func (i *Iter) Key() []byte {
	return bytes.TrimPrefix(i.it.Key(), i.prefix)
}

// Value returns the value of the current pair. The slice is only valid until
// the next call to Next.
func (i *Iter) Value() []byte {
	return i.it.Value()
}

// Err returns the first error encountered while iterating.
func (i *Iter) Err() error {
	if err := i.it.Error(); err != nil {
		return fmt.Errorf("%w: iterating: %v", annoerr.ErrStore, err)
	}
	return nil
}

// Close releases the iterator.
func (i *Iter) Close() error {
	return i.it.Close()
}
