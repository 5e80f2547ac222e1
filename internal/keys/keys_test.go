package keys

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalChrom(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1", "1"},
		{"chr1", "1"},
		{"chr21", "21"},
		{"X", "X"},
		{"chrX", "X"},
		{"y", "Y"},
		{"M", "MT"},
		{"chrM", "MT"},
		{"MT", "MT"},
		{"chrMT", "MT"},
	}
	for _, c := range cases {
		got, err := CanonicalChrom(c.in)
		require.NoError(t, err, "chrom %q", c.in)
		assert.Equal(t, c.want, got, "chrom %q", c.in)
	}

	for _, bad := range []string{"", "chr", "23", "0", "1 ", "GL000192.1", "chr1\t"} {
		_, err := CanonicalChrom(bad)
		assert.Error(t, err, "chrom %q", bad)
	}
}

func TestEncodeVariantRoundTrip(t *testing.T) {
	cases := []Variant{
		{Chrom: "1", Pos: 1000, Ref: "A", Alt: "T"},
		{Chrom: "chr1", Pos: 1000, Ref: "a", Alt: "t"},
		{Chrom: "chrM", Pos: 302, Ref: "A", Alt: "ACC"},
		{Chrom: "X", Pos: 155260560, Ref: "AGT", Alt: "A"},
		{Chrom: "22", Pos: 1, Ref: "N", Alt: "NNN"},
	}
	for _, v := range cases {
		key, err := EncodeVariant(v)
		require.NoError(t, err)
		got, err := DecodeVariant(key)
		require.NoError(t, err)
		want, err := v.Canonicalize()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestEncodeVariantRejects(t *testing.T) {
	cases := []Variant{
		{Chrom: "1", Pos: 0, Ref: "A", Alt: "T"},
		{Chrom: "1", Pos: 100, Ref: "", Alt: "T"},
		{Chrom: "1", Pos: 100, Ref: "A", Alt: ""},
		{Chrom: "1", Pos: 100, Ref: "A", Alt: "<DEL>"},
		{Chrom: "1", Pos: 100, Ref: "AU", Alt: "A"},
		{Chrom: "HLA-A", Pos: 100, Ref: "A", Alt: "T"},
	}
	for _, v := range cases {
		_, err := EncodeVariant(v)
		assert.Error(t, err, "variant %+v", v)
	}
}

func TestVariantKeyOrdering(t *testing.T) {
	// Byte-lex order of keys must follow (chromosome-rank, position) order.
	ordered := []Variant{
		{Chrom: "1", Pos: 1000, Ref: "A", Alt: "C"},
		{Chrom: "1", Pos: 1000, Ref: "A", Alt: "T"},
		{Chrom: "1", Pos: 1001, Ref: "A", Alt: "C"},
		{Chrom: "2", Pos: 5, Ref: "A", Alt: "C"},
		{Chrom: "10", Pos: 5, Ref: "A", Alt: "C"},
		{Chrom: "X", Pos: 5, Ref: "A", Alt: "C"},
		{Chrom: "Y", Pos: 5, Ref: "A", Alt: "C"},
		{Chrom: "MT", Pos: 5, Ref: "A", Alt: "C"},
	}
	var prev []byte
	for i, v := range ordered {
		key, err := EncodeVariant(v)
		require.NoError(t, err)
		if i > 0 && bytes.Compare(prev, key) >= 0 {
			t.Errorf("key %d (%+v) does not sort after its predecessor", i, v)
		}
		prev = key
	}
}

func TestVariantKeysDistinct(t *testing.T) {
	// Distinct canonical variants never collide, even when ref/alt
	// concatenations agree.
	a, err := EncodeVariant(Variant{Chrom: "1", Pos: 100, Ref: "AC", Alt: "G"})
	require.NoError(t, err)
	b, err := EncodeVariant(Variant{Chrom: "1", Pos: 100, Ref: "A", Alt: "CG"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestMitochondrionAliasesShareKeys(t *testing.T) {
	var first []byte
	for _, chrom := range []string{"M", "chrM", "MT", "chrMT"} {
		key, err := EncodeVariant(Variant{Chrom: chrom, Pos: 302, Ref: "A", Alt: "C"})
		require.NoError(t, err)
		if first == nil {
			first = key
			continue
		}
		assert.Equal(t, first, key, "chrom %q", chrom)
	}
}

func TestEncodeIntervalRoundTrip(t *testing.T) {
	iv := Interval{Chrom: "chr1", Start: 1000, Stop: 5000}
	key, err := EncodeInterval(iv, []byte("VCV000012345.1"))
	require.NoError(t, err)
	got, tail, err := DecodeInterval(key)
	require.NoError(t, err)
	assert.Equal(t, Interval{Chrom: "1", Start: 1000, Stop: 5000}, got)
	assert.Equal(t, []byte("VCV000012345.1"), tail)
}

func TestPrefixUpperBound(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x03}, PrefixUpperBound([]byte{0x01, 0x02}))
	assert.Equal(t, []byte{0x02}, PrefixUpperBound([]byte{0x01, 0xff}))
	assert.Nil(t, PrefixUpperBound([]byte{0xff, 0xff}))
}
