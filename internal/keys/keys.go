// Package keys implements the canonical byte encoding of sequence variants
// and genomic intervals used throughout the store.
//
// All keys are designed so that lexicographic byte order equals the natural
// (chromosome-rank, position, ...) scan order: numeric fields are fixed-width
// big-endian, the chromosome is reduced to a single rank byte.
package keys

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/annokv/annokv/internal/annoerr"
)

// Chromosome ranks. Rank 0 is reserved.
const (
	RankX  = 23
	RankY  = 24
	RankMT = 25
)

// MaxRefLen is the longest reference allele that fits a variant key.
// Longer alleles belong to the interval-keyed column families.
const MaxRefLen = 255

// ChromRank maps a canonical chromosome token to its key rank.
// The token must already be canonicalized (see CanonicalChrom).
func ChromRank(chrom string) (byte, error) {
	switch chrom {
	case "X":
		return RankX, nil
	case "Y":
		return RankY, nil
	case "MT":
		return RankMT, nil
	}
	n, err := strconv.Atoi(chrom)
	if err != nil || n < 1 || n > 22 {
		return 0, fmt.Errorf("%w: unknown chromosome %q", annoerr.ErrInvalidInput, chrom)
	}
	return byte(n), nil
}

// RankChrom is the inverse of ChromRank.
func RankChrom(rank byte) (string, error) {
	switch {
	case rank >= 1 && rank <= 22:
		return strconv.Itoa(int(rank)), nil
	case rank == RankX:
		return "X", nil
	case rank == RankY:
		return "Y", nil
	case rank == RankMT:
		return "MT", nil
	default:
		return "", fmt.Errorf("%w: unknown chromosome rank %d", annoerr.ErrInvalidInput, rank)
	}
}

// CanonicalChrom canonicalizes a chromosome token: the "chr" prefix is
// stripped, the mitochondrion collapses to "MT", case is folded. Whitespace
// and empty tokens are rejected.
func CanonicalChrom(chrom string) (string, error) {
	if chrom == "" || strings.ContainsAny(chrom, " \t\r\n") {
		return "", fmt.Errorf("%w: bad chromosome token %q", annoerr.ErrInvalidInput, chrom)
	}
	c := strings.ToUpper(chrom)
	c = strings.TrimPrefix(c, "CHR")
	if c == "M" {
		c = "MT"
	}
	if _, err := ChromRank(c); err != nil {
		return "", err
	}
	return c, nil
}

// Variant is a sequence variant on a single assembly. Positions are 1-based.
type Variant struct {
	Chrom string
	Pos   uint32
	Ref   string
	Alt   string
}

// Canonicalize returns the variant with canonical chromosome token and
// uppercased alleles, or an error if any field violates the codec contract.
// Symbolic and empty alleles are rejected here; structural variants take the
// interval path instead.
func (v Variant) Canonicalize() (Variant, error) {
	chrom, err := CanonicalChrom(v.Chrom)
	if err != nil {
		return Variant{}, err
	}
	if v.Pos == 0 {
		return Variant{}, fmt.Errorf("%w: position must be 1-based, got 0", annoerr.ErrInvalidInput)
	}
	ref := strings.ToUpper(v.Ref)
	alt := strings.ToUpper(v.Alt)
	if ref == "" || alt == "" {
		return Variant{}, fmt.Errorf("%w: empty REF or ALT for %s:%d", annoerr.ErrInvalidInput, chrom, v.Pos)
	}
	if !isCanonicalBases(ref) || !isCanonicalBases(alt) {
		return Variant{}, fmt.Errorf(
			"%w: non-canonical allele bytes in %q>%q", annoerr.ErrInvalidInput, v.Ref, v.Alt)
	}
	if len(ref) > MaxRefLen {
		return Variant{}, fmt.Errorf(
			"%w: REF longer than %d bases (%d)", annoerr.ErrInvalidInput, MaxRefLen, len(ref))
	}
	return Variant{Chrom: chrom, Pos: v.Pos, Ref: ref, Alt: alt}, nil
}

func isCanonicalBases(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'A', 'C', 'G', 'T', 'N':
		default:
			return false
		}
	}
	return true
}

// EncodeVariant canonicalizes the variant and produces its store key:
//
//	rank(1) | pos(4, BE) | len(ref)(1) | ref | alt
//
// The alt allele runs to the end of the key, so two distinct variants can
// never share an encoding.
func EncodeVariant(v Variant) ([]byte, error) {
	cv, err := v.Canonicalize()
	if err != nil {
		return nil, err
	}
	rank, err := ChromRank(cv.Chrom)
	if err != nil {
		return nil, err
	}
	key := make([]byte, 0, 6+len(cv.Ref)+len(cv.Alt))
	key = append(key, rank)
	key = binary.BigEndian.AppendUint32(key, cv.Pos)
	key = append(key, byte(len(cv.Ref)))
	key = append(key, cv.Ref...)
	key = append(key, cv.Alt...)
	return key, nil
}

// DecodeVariant recovers the canonical variant from a key produced by
// EncodeVariant.
func DecodeVariant(key []byte) (Variant, error) {
	if len(key) < 7 {
		return Variant{}, fmt.Errorf("%w: variant key too short (%d bytes)", annoerr.ErrInvalidInput, len(key))
	}
	chrom, err := RankChrom(key[0])
	if err != nil {
		return Variant{}, err
	}
	pos := binary.BigEndian.Uint32(key[1:5])
	refLen := int(key[5])
	if len(key) < 6+refLen+1 {
		return Variant{}, fmt.Errorf("%w: truncated variant key", annoerr.ErrInvalidInput)
	}
	return Variant{
		Chrom: chrom,
		Pos:   pos,
		Ref:   string(key[6 : 6+refLen]),
		Alt:   string(key[6+refLen:]),
	}, nil
}

// EncodePos produces the (rank, position) prefix shared by all variant keys
// at the given coordinate. It is both a point key prefix and a range scan
// boundary.
func EncodePos(chrom string, pos uint32) ([]byte, error) {
	c, err := CanonicalChrom(chrom)
	if err != nil {
		return nil, err
	}
	rank, err := ChromRank(c)
	if err != nil {
		return nil, err
	}
	key := make([]byte, 0, 5)
	key = append(key, rank)
	key = binary.BigEndian.AppendUint32(key, pos)
	return key, nil
}

// Interval is a closed 1-based genomic interval.
type Interval struct {
	Chrom string
	Start uint32
	Stop  uint32
}

// Canonicalize validates the interval and canonicalizes its chromosome.
func (iv Interval) Canonicalize() (Interval, error) {
	chrom, err := CanonicalChrom(iv.Chrom)
	if err != nil {
		return Interval{}, err
	}
	if iv.Start == 0 || iv.Start > iv.Stop {
		return Interval{}, fmt.Errorf(
			"%w: bad interval %s:%d-%d", annoerr.ErrInvalidInput, chrom, iv.Start, iv.Stop)
	}
	return Interval{Chrom: chrom, Start: iv.Start, Stop: iv.Stop}, nil
}

// EncodeInterval produces the key of an interval record:
//
//	rank(1) | bin(4, BE) | start(4, BE) | stop(4, BE) | tail
//
// The bin groups the interval with all others in the same UCSC bin so that
// overlap queries reduce to a bounded number of prefix scans. The tail
// disambiguates co-located records (an accession or feature id); it may be
// empty when the caller guarantees uniqueness.
func EncodeInterval(iv Interval, tail []byte) ([]byte, error) {
	civ, err := iv.Canonicalize()
	if err != nil {
		return nil, err
	}
	rank, err := ChromRank(civ.Chrom)
	if err != nil {
		return nil, err
	}
	bin := BinFromRange(civ.Start, civ.Stop)
	key := make([]byte, 0, 13+len(tail))
	key = append(key, rank)
	key = binary.BigEndian.AppendUint32(key, bin)
	key = binary.BigEndian.AppendUint32(key, civ.Start)
	key = binary.BigEndian.AppendUint32(key, civ.Stop)
	key = append(key, tail...)
	return key, nil
}

// DecodeInterval recovers the interval and tail from an interval key.
func DecodeInterval(key []byte) (Interval, []byte, error) {
	if len(key) < 13 {
		return Interval{}, nil, fmt.Errorf("%w: interval key too short (%d bytes)", annoerr.ErrInvalidInput, len(key))
	}
	chrom, err := RankChrom(key[0])
	if err != nil {
		return Interval{}, nil, err
	}
	iv := Interval{
		Chrom: chrom,
		Start: binary.BigEndian.Uint32(key[5:9]),
		Stop:  binary.BigEndian.Uint32(key[9:13]),
	}
	var tail []byte
	if len(key) > 13 {
		tail = bytes.Clone(key[13:])
	}
	return iv, tail, nil
}

// IntervalBinPrefix produces the (rank, bin) prefix under which all interval
// records of a single bin sort.
func IntervalBinPrefix(chrom string, bin uint32) ([]byte, error) {
	c, err := CanonicalChrom(chrom)
	if err != nil {
		return nil, err
	}
	rank, err := ChromRank(c)
	if err != nil {
		return nil, err
	}
	key := make([]byte, 0, 5)
	key = append(key, rank)
	key = binary.BigEndian.AppendUint32(key, bin)
	return key, nil
}

// PrefixUpperBound returns the smallest key strictly greater than every key
// with the given prefix, or nil if no such key exists (all-0xff prefix).
func PrefixUpperBound(prefix []byte) []byte {
	upper := bytes.Clone(prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}
