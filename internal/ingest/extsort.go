package ingest

import (
	"bufio"
	"bytes"
	"container/heap"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/annokv/annokv/internal/annoerr"
)

// Sorter is an external merge sort over (key, value) pairs. Accession-keyed
// column families require globally sorted writes; when the source is not
// sorted, records are spilled into bounded temp files, each sorted in
// memory, then streamed back through a k-way merge. Temp files live in a
// scratch directory that is removed on Close, success or failure.
type Sorter struct {
	dir       string
	chunkSize int
	pending   []sortEntry
	pendBytes int
	chunks    []string
}

type sortEntry struct {
	key []byte
	val []byte
}

// DefaultChunkBytes bounds the in-memory buffer of one sort chunk.
const DefaultChunkBytes = 256 << 20

// NewSorter creates a sorter with scratch space under dir (or the system
// temp directory when dir is empty).
func NewSorter(dir string, chunkBytes int) (*Sorter, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if chunkBytes <= 0 {
		chunkBytes = DefaultChunkBytes
	}
	scratch := filepath.Join(dir, "annokv-sort-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, fmt.Errorf("creating sort scratch dir: %w", err)
	}
	return &Sorter{dir: scratch, chunkSize: chunkBytes}, nil
}

// Put buffers one pair, spilling a sorted chunk to disk when the buffer is
// full.
func (s *Sorter) Put(key, val []byte) error {
	s.pending = append(s.pending, sortEntry{key: bytes.Clone(key), val: bytes.Clone(val)})
	s.pendBytes += len(key) + len(val)
	if s.pendBytes >= s.chunkSize {
		return s.spill()
	}
	return nil
}

func (s *Sorter) spill() error {
	if len(s.pending) == 0 {
		return nil
	}
	sort.Slice(s.pending, func(i, j int) bool {
		return bytes.Compare(s.pending[i].key, s.pending[j].key) < 0
	})
	path := filepath.Join(s.dir, fmt.Sprintf("chunk-%06d", len(s.chunks)))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating sort chunk: %w", err)
	}
	w := bufio.NewWriterSize(f, 1<<20)
	for _, e := range s.pending {
		if err := writeEntry(w, e); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flushing sort chunk: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing sort chunk: %w", err)
	}
	s.chunks = append(s.chunks, path)
	s.pending = s.pending[:0]
	s.pendBytes = 0
	return nil
}

func writeEntry(w io.Writer, e sortEntry) error {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(len(e.key)))
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(e.val)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("writing sort entry: %w", err)
	}
	if _, err := w.Write(e.key); err != nil {
		return fmt.Errorf("writing sort entry: %w", err)
	}
	if _, err := w.Write(e.val); err != nil {
		return fmt.Errorf("writing sort entry: %w", err)
	}
	return nil
}

func readEntry(r *bufio.Reader) (sortEntry, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return sortEntry{}, io.EOF
		}
		return sortEntry{}, fmt.Errorf("%w: truncated sort chunk: %v", annoerr.ErrStore, err)
	}
	keyLen := binary.BigEndian.Uint32(hdr[0:4])
	valLen := binary.BigEndian.Uint32(hdr[4:8])
	e := sortEntry{key: make([]byte, keyLen), val: make([]byte, valLen)}
	if _, err := io.ReadFull(r, e.key); err != nil {
		return sortEntry{}, fmt.Errorf("%w: truncated sort chunk: %v", annoerr.ErrStore, err)
	}
	if _, err := io.ReadFull(r, e.val); err != nil {
		return sortEntry{}, fmt.Errorf("%w: truncated sort chunk: %v", annoerr.ErrStore, err)
	}
	return e, nil
}

// mergeHeap is a min-heap over the head entries of the chunk readers.
type mergeHeap []mergeItem

type mergeItem struct {
	entry sortEntry
	src   int
}

func (h mergeHeap) Len() int           { return len(h) }
func (h mergeHeap) Less(i, j int) bool { return bytes.Compare(h[i].entry.key, h[j].entry.key) < 0 }
func (h mergeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) {
	*h = append(*h, x.(mergeItem))
}

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Merge streams all pairs in global key order to fn. It must be called
// exactly once, after the final Put.
func (s *Sorter) Merge(fn func(key, val []byte) error) error {
	if err := s.spill(); err != nil {
		return err
	}
	readers := make([]*bufio.Reader, len(s.chunks))
	files := make([]*os.File, len(s.chunks))
	defer func() {
		for _, f := range files {
			if f != nil {
				f.Close()
			}
		}
	}()
	h := make(mergeHeap, 0, len(s.chunks))
	for i, path := range s.chunks {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening sort chunk: %w", err)
		}
		files[i] = f
		readers[i] = bufio.NewReaderSize(f, 1<<20)
		e, err := readEntry(readers[i])
		if err == io.EOF {
			continue
		}
		if err != nil {
			return err
		}
		h = append(h, mergeItem{entry: e, src: i})
	}
	heap.Init(&h)
	for h.Len() > 0 {
		item := heap.Pop(&h).(mergeItem)
		if err := fn(item.entry.key, item.entry.val); err != nil {
			return err
		}
		e, err := readEntry(readers[item.src])
		if err == io.EOF {
			continue
		}
		if err != nil {
			return err
		}
		heap.Push(&h, mergeItem{entry: e, src: item.src})
	}
	return nil
}

// Close removes the scratch directory and all chunks.
func (s *Sorter) Close() error {
	return os.RemoveAll(s.dir)
}
