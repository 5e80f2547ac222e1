// Package gff provides streaming GFF3 feature parsing for functional
// element ingest.
package gff

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/annokv/annokv/internal/annoerr"
)

// Feature is one GFF3 feature line.
type Feature struct {
	SeqID  string
	Source string
	Type   string
	// Start and Stop are 1-based inclusive.
	Start      uint32
	Stop       uint32
	Score      string
	Strand     string
	Attributes map[string]string
}

// Attribute returns the named attribute, or "".
func (f *Feature) Attribute(name string) string {
	return f.Attributes[name]
}

// Reader streams features from a GFF3 file, transparently decompressing
// gzipped input.
type Reader struct {
	scanner    *bufio.Scanner
	file       *os.File
	gz         *gzip.Reader
	path       string
	lineNumber int
}

// NewReader opens the GFF3 file at path.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: GFF file %q", annoerr.ErrNotFound, path)
		}
		return nil, fmt.Errorf("open GFF file: %w", err)
	}

	r := &Reader{file: f, path: path}
	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") || strings.HasSuffix(path, ".bgz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %q: %v", annoerr.ErrFormat, path, err)
		}
		r.gz = gz
		src = gz
	}
	r.scanner = bufio.NewScanner(src)
	r.scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return r, nil
}

// Next returns the next feature, or nil at end of input. Comment and
// directive lines are skipped.
func (r *Reader) Next() (*Feature, error) {
	for r.scanner.Scan() {
		r.lineNumber++
		line := strings.TrimRight(r.scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return r.parseLine(line)
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %q: %w", r.path, err)
	}
	return nil, nil
}

func (r *Reader) parseLine(line string) (*Feature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 9 {
		return nil, fmt.Errorf("%w: %s:%d: expected 9 columns, found %d",
			annoerr.ErrFormat, r.path, r.lineNumber, len(fields))
	}
	start, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %s:%d: invalid start %q",
			annoerr.ErrFormat, r.path, r.lineNumber, fields[3])
	}
	stop, err := strconv.ParseUint(fields[4], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %s:%d: invalid end %q",
			annoerr.ErrFormat, r.path, r.lineNumber, fields[4])
	}
	return &Feature{
		SeqID:      fields[0],
		Source:     fields[1],
		Type:       fields[2],
		Start:      uint32(start),
		Stop:       uint32(stop),
		Score:      fields[5],
		Strand:     fields[6],
		Attributes: parseAttributes(fields[8]),
	}, nil
}

// parseAttributes parses the GFF3 attribute column (key=value pairs
// separated by semicolons).
func parseAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	for _, kv := range strings.Split(s, ";") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			attrs[parts[0]] = parts[1]
		}
	}
	return attrs
}

// Close releases the underlying file handles.
func (r *Reader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	return r.file.Close()
}
