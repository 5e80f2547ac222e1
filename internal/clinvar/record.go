// Package clinvar implements the ClinVar curation datasets: the minimal
// per-variant extract, structural variants, and per-gene aggregates.
package clinvar

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/annokv/annokv/internal/annoerr"
)

// Accession is a versioned ClinVar accession (VCV or RCV family).
type Accession struct {
	Acc     string `json:"acc"`
	Version int32  `json:"version"`
}

// String renders the dotted form, e.g. "VCV000012345.1".
func (a Accession) String() string {
	return fmt.Sprintf("%s.%d", a.Acc, a.Version)
}

// SequenceLocation places a record on the reference.
type SequenceLocation struct {
	Chrom string `json:"chr"`
	// Start and Stop are 1-based inclusive; sequence variants carry
	// Start only plus Ref/Alt.
	Start uint32 `json:"start,omitempty"`
	Stop  uint32 `json:"stop,omitempty"`
	Ref   string `json:"ref,omitempty"`
	Alt   string `json:"alt,omitempty"`

	// Imprecise structural variants may carry inner/outer bounds instead.
	InnerStart uint32 `json:"inner_start,omitempty"`
	InnerStop  uint32 `json:"inner_stop,omitempty"`
	OuterStart uint32 `json:"outer_start,omitempty"`
	OuterStop  uint32 `json:"outer_stop,omitempty"`
}

// ClinicalAssertion is one submitted interpretation.
type ClinicalAssertion struct {
	Submitter    string `json:"submitter,omitempty"`
	ReviewStatus string `json:"review_status,omitempty"`
	Significance string `json:"significance,omitempty"`
	Condition    string `json:"condition,omitempty"`
}

// Record is one extracted ClinVar VCV record as read from the upstream
// JSONL dialect.
type Record struct {
	Accession          *Accession          `json:"accession"`
	RCVs               []Accession         `json:"rcvs,omitempty"`
	Name               string              `json:"name,omitempty"`
	VariationType      string              `json:"variation_type,omitempty"`
	Classifications    []string            `json:"classifications,omitempty"`
	ClinicalAssertions []ClinicalAssertion `json:"clinical_assertions,omitempty"`
	SequenceLocation   *SequenceLocation   `json:"sequence_location"`
	HgncIDs            []string            `json:"hgnc_ids,omitempty"`
}

// Encode serializes the record value.
func (r *Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRecord deserializes a stored record value.
func DecodeRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: decoding ClinVar record: %v", annoerr.ErrStore, err)
	}
	return &r, nil
}

// ParseLine parses one JSONL line. With lenient set, the non-standard null
// tokens and single-quoted strings of some historic upstream dialects are
// normalized first; the flag is opt-in and documented on the import
// commands.
func ParseLine(line []byte, lenient bool) (*Record, error) {
	if lenient {
		line = []byte(normalizeLenient(string(line)))
	}
	var r Record
	if err := json.Unmarshal(line, &r); err != nil {
		return nil, fmt.Errorf("%w: parsing ClinVar JSONL: %v", annoerr.ErrFormat, err)
	}
	if r.Accession == nil {
		return nil, fmt.Errorf("%w: ClinVar record without accession", annoerr.ErrFormat)
	}
	return &r, nil
}

// normalizeLenient rewrites Python-flavored JSON: bare None becomes null,
// single-quoted strings become double-quoted.
func normalizeLenient(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inDouble := false
	inSingle := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inDouble:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == '"' {
				inDouble = false
			}
		case inSingle:
			if c == '\'' {
				b.WriteByte('"')
				inSingle = false
			} else if c == '"' {
				b.WriteString(`\"`)
			} else {
				b.WriteByte(c)
			}
		case c == '"':
			inDouble = true
			b.WriteByte(c)
		case c == '\'':
			inSingle = true
			b.WriteByte('"')
		case c == 'N' && strings.HasPrefix(s[i:], "None") && bareWordAt(s, i, 4):
			b.WriteString("null")
			i += 3
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// bareWordAt reports whether s[i:i+n] is delimited by non-identifier bytes.
func bareWordAt(s string, i, n int) bool {
	before := i == 0 || !isIdent(s[i-1])
	after := i+n >= len(s) || !isIdent(s[i+n])
	return before && after
}

func isIdent(c byte) bool {
	return c == '_' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
