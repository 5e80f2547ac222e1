// Package ingest provides the machinery shared by all import pipelines:
// transparent input decompression, genome windows, parallel scanning of
// coordinate-sorted inputs, an external merge sort for accession-keyed
// writes, and the common end-of-ingest sequence.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/annokv/annokv/internal/annoerr"
)

// gzip magic bytes; bgzip files are gzip-framed, so one check covers both.
var gzipMagic = [2]byte{0x1f, 0x8b}

// Input is a line-oriented input file, decompressed transparently.
type Input struct {
	Path    string
	Scanner *bufio.Scanner
	// Compressed reports whether the input was gzip/bgzip compressed.
	// Compressed inputs cannot be byte-sliced for parallel scanning.
	Compressed bool

	file *os.File
	gz   *gzip.Reader
}

// OpenInput opens a plain, gzipped, or bgzipped text file for line reading.
// "-" reads from stdin.
func OpenInput(path string) (*Input, error) {
	if path == "-" {
		sc := bufio.NewScanner(os.Stdin)
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		return &Input{Path: path, Scanner: sc}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: input file %q", annoerr.ErrNotFound, path)
		}
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}

	var magic [2]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		f.Close()
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("seeking %q: %w", path, err)
	}

	in := &Input{Path: path, file: f}
	var r io.Reader = f
	if magic == gzipMagic {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %q: %v", annoerr.ErrFormat, path, err)
		}
		in.gz = gz
		in.Compressed = true
		r = gz
	}
	in.Scanner = bufio.NewScanner(r)
	in.Scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return in, nil
}

// Close releases the underlying file handles.
func (in *Input) Close() error {
	if in.gz != nil {
		if err := in.gz.Close(); err != nil {
			in.file.Close()
			return err
		}
	}
	if in.file != nil {
		return in.file.Close()
	}
	return nil
}
