package vcf

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

// ParseError describes a malformed VCF line.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
}

// Unwrap classifies parse errors as format errors.
func (e *ParseError) Unwrap() error { return annoerr.ErrFormat }

// Parser reads site records from a VCF file.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	path       string
	lineNumber int
	header     []string
}

// NewParser creates a new VCF parser for the given file. Supports plain,
// gzipped, and bgzipped (.vcf.gz, .vcf.bgz) files; "-" reads stdin.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return newParserFromReader("<stdin>", os.Stdin)
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: VCF file %q", annoerr.ErrNotFound, path)
		}
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	p := &Parser{file: file, path: path}

	// Check for gzip magic bytes, then rewind.
	buf := make([]byte, 2)
	if _, err := file.Read(buf); err != nil && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read vcf header: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek vcf file: %w", err)
	}

	if buf[0] == 0x1f && buf[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("%w: %q: %v", annoerr.ErrFormat, path, err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = bufio.NewReader(file)
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func newParserFromReader(name string, r io.Reader) (*Parser, error) {
	p := &Parser{reader: bufio.NewReader(r), path: name}
	if err := p.parseHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

// parseHeader reads and stores VCF header lines up to and including #CHROM.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++
		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, "##") {
			p.header = append(p.header, line)
			continue
		}
		if strings.HasPrefix(line, "#CHROM") {
			p.header = append(p.header, line)
			return nil
		}
		return &ParseError{Path: p.path, Line: p.lineNumber, Message: "expected #CHROM header line"}
	}
	return &ParseError{Path: p.path, Line: p.lineNumber, Message: "no #CHROM header line found"}
}

// Next reads the next site record. Returns nil, nil when there are no more
// records. Multi-allelic records are returned unsplit; callers split with
// SplitMultiAllelic.
func (p *Parser) Next() (*Variant, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read variant line: %w", err)
	}
	atEOF := err == io.EOF
	p.lineNumber++

	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if atEOF {
			return nil, nil
		}
		return p.Next() // skip empty lines
	}
	return ParseLine(p.path, p.lineNumber, line)
}

// ParseLine parses a single VCF data line into a Variant. Exposed so that
// windowed ingest can parse lines from byte-sliced scans.
func ParseLine(path string, lineNumber int, line string) (*Variant, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, &ParseError{
			Path:    path,
			Line:    lineNumber,
			Message: fmt.Sprintf("expected at least 8 columns, found %d", len(fields)),
		}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{
			Path:    path,
			Line:    lineNumber,
			Message: fmt.Sprintf("invalid position: %s", fields[1]),
		}
	}

	qual := 0.0
	if fields[5] != "." {
		qual, _ = strconv.ParseFloat(fields[5], 64)
	}

	return &Variant{
		Chrom:  fields[0],
		Pos:    pos,
		ID:     fields[2],
		Ref:    fields[3],
		Alt:    fields[4],
		Qual:   qual,
		Filter: fields[6],
		Info:   parseInfo(fields[7]),
	}, nil
}

// parseInfo parses the INFO field into a map. Flag-type keys map to "".
func parseInfo(info string) map[string]string {
	result := make(map[string]string)
	if info == "." {
		return result
	}
	for _, kv := range strings.Split(info, ";") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		} else {
			result[parts[0]] = ""
		}
	}
	return result
}

// Header returns the VCF header lines.
func (p *Parser) Header() []string {
	return p.header
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}
