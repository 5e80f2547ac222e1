package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// WorkerCountKey is the viper/environment key bounding import parallelism
// (ANNOKV_IMPORT_WORKERS).
const WorkerCountKey = "import_workers"

// Workers resolves the worker count: host CPU count by default, bounded by
// the ANNOKV_IMPORT_WORKERS environment variable when set.
func Workers() int {
	n := runtime.NumCPU()
	if bound := viper.GetInt(WorkerCountKey); bound > 0 && bound < n {
		n = bound
	}
	return n
}

// Slice is a byte range of an input file owned by one worker.
type Slice struct {
	Path   string
	Offset int64
	Length int64
}

// FileSlices partitions a plain-text file into roughly count slices. Slice
// boundaries are arbitrary byte offsets; ScanSlice aligns them to line
// starts so that every line belongs to exactly one slice.
func FileSlices(path string, count int) ([]Slice, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", path, err)
	}
	size := info.Size()
	if count < 1 {
		count = 1
	}
	sliceSize := size / int64(count)
	if sliceSize < 1 {
		sliceSize = size
	}
	var slices []Slice
	for off := int64(0); off < size; off += sliceSize {
		length := sliceSize
		if off+length > size {
			length = size - off
		}
		slices = append(slices, Slice{Path: path, Offset: off, Length: length})
	}
	return slices, nil
}

// ScanSlice reads the lines owned by the slice and calls fn for each. A
// slice owns every line that starts within [Offset, Offset+Length): the
// first partial line is skipped (it belongs to the previous slice) and the
// final line is read past the slice end.
func ScanSlice(sl Slice, fn func(line string) error) error {
	f, err := os.Open(sl.Path)
	if err != nil {
		return fmt.Errorf("opening %q: %w", sl.Path, err)
	}
	defer f.Close()

	// Start one byte early so that a line beginning exactly at Offset is
	// recognized as owned (the byte before it is then the newline).
	seekTo := sl.Offset
	if seekTo > 0 {
		seekTo--
	}
	if _, err := f.Seek(seekTo, io.SeekStart); err != nil {
		return fmt.Errorf("seeking %q: %w", sl.Path, err)
	}
	r := bufio.NewReaderSize(f, 1<<20)

	consumed := int64(0)
	if sl.Offset > 0 {
		// Align to the next line start at or after Offset.
		skipped, err := r.ReadString('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("aligning slice of %q: %w", sl.Path, err)
		}
		consumed += int64(len(skipped)) - 1
	}

	for consumed < sl.Length {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			consumed += int64(len(line))
			for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
				line = line[:len(line)-1]
			}
			if err := fn(line); err != nil {
				return err
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %q: %w", sl.Path, err)
		}
	}
	return nil
}

// RunPool runs one task per item with bounded parallelism, collecting the
// first error. Tasks must not share mutable state beyond the store handle.
func RunPool[T any](items []T, workers int, task func(T) error) error {
	if workers <= 0 {
		workers = Workers()
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for _, item := range items {
		g.Go(func() error {
			return task(item)
		})
	}
	return g.Wait()
}
