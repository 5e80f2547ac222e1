package keys

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/annokv/annokv/internal/annoerr"
)

// Assembly identifies the reference coordinate system.
type Assembly string

// Supported genome releases.
const (
	GRCh37 Assembly = "grch37"
	GRCh38 Assembly = "grch38"
)

// ParseAssembly parses an assembly name case-insensitively.
func ParseAssembly(s string) (Assembly, error) {
	switch strings.ToLower(s) {
	case "grch37":
		return GRCh37, nil
	case "grch38":
		return GRCh38, nil
	default:
		return "", fmt.Errorf("%w: unknown genome release %q", annoerr.ErrInvalidInput, s)
	}
}

// Matches reports whether the assembly equals the stored genome-release
// value, comparing case-insensitively.
func (a Assembly) Matches(genomeRelease string) bool {
	return strings.EqualFold(string(a), genomeRelease)
}

// VariantQuery is a parsed ASSEMBLY:CHROM:POS:REF:ALT query string.
type VariantQuery struct {
	Assembly Assembly
	Variant  Variant
}

// PositionQuery is a parsed ASSEMBLY:CHROM:POS query string.
type PositionQuery struct {
	Assembly Assembly
	Chrom    string
	Pos      uint32
}

// RangeQuery is a parsed ASSEMBLY:CHROM:START:STOP query string.
type RangeQuery struct {
	Assembly Assembly
	Interval Interval
}

func parsePos(field, s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: bad %s %q", annoerr.ErrInvalidInput, field, s)
	}
	return uint32(n), nil
}

// ParseVariantQuery parses a variant spec such as "GRCh37:1:1000:A:T".
func ParseVariantQuery(s string) (VariantQuery, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 5 {
		return VariantQuery{}, fmt.Errorf(
			"%w: expected ASSEMBLY:CHROM:POS:REF:ALT, got %q", annoerr.ErrInvalidInput, s)
	}
	assembly, err := ParseAssembly(parts[0])
	if err != nil {
		return VariantQuery{}, err
	}
	pos, err := parsePos("position", parts[2])
	if err != nil {
		return VariantQuery{}, err
	}
	v, err := Variant{Chrom: parts[1], Pos: pos, Ref: parts[3], Alt: parts[4]}.Canonicalize()
	if err != nil {
		return VariantQuery{}, err
	}
	return VariantQuery{Assembly: assembly, Variant: v}, nil
}

// ParsePositionQuery parses a position spec such as "GRCh37:1:1000".
func ParsePositionQuery(s string) (PositionQuery, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return PositionQuery{}, fmt.Errorf(
			"%w: expected ASSEMBLY:CHROM:POS, got %q", annoerr.ErrInvalidInput, s)
	}
	assembly, err := ParseAssembly(parts[0])
	if err != nil {
		return PositionQuery{}, err
	}
	chrom, err := CanonicalChrom(parts[1])
	if err != nil {
		return PositionQuery{}, err
	}
	pos, err := parsePos("position", parts[2])
	if err != nil {
		return PositionQuery{}, err
	}
	return PositionQuery{Assembly: assembly, Chrom: chrom, Pos: pos}, nil
}

// ParseRangeQuery parses a range spec such as "GRCh37:1:1000:1500".
func ParseRangeQuery(s string) (RangeQuery, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return RangeQuery{}, fmt.Errorf(
			"%w: expected ASSEMBLY:CHROM:START:STOP, got %q", annoerr.ErrInvalidInput, s)
	}
	assembly, err := ParseAssembly(parts[0])
	if err != nil {
		return RangeQuery{}, err
	}
	start, err := parsePos("start", parts[2])
	if err != nil {
		return RangeQuery{}, err
	}
	stop, err := parsePos("stop", parts[3])
	if err != nil {
		return RangeQuery{}, err
	}
	iv, err := Interval{Chrom: parts[1], Start: start, Stop: stop}.Canonicalize()
	if err != nil {
		return RangeQuery{}, err
	}
	return RangeQuery{Assembly: assembly, Interval: iv}, nil
}
