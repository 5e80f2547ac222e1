package tsvio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annokv/annokv/internal/keys"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	cfg := DefaultInferConfig()
	schema := &Schema{Columns: []ColumnSchema{
		{Name: "CHROM", Type: TypeString},
		{Name: "POS", Type: TypeInteger},
		{Name: "REF", Type: TypeString},
		{Name: "ALT", Type: TypeString},
		{Name: "SCORE", Type: TypeFloat},
		{Name: "COUNT", Type: TypeInteger},
		{Name: "LABEL", Type: TypeEnum, EnumValues: []string{"benign", "pathogenic", "vus"}},
	}}
	codec, err := NewCodec(cfg, schema)
	require.NoError(t, err)
	return codec
}

func TestCodecLineRoundTrip(t *testing.T) {
	codec := testCodec(t)
	lines := []string{
		"1\t1000\tA\tT\t0.5\t3\tbenign",
		"1\t1000\tA\tC\t0.8\tNA\tvus",
		"X\t5\tG\tGA\tNA\tNA\tNA",
	}
	for _, line := range lines {
		values, err := codec.LineToValues(line)
		require.NoError(t, err)
		encoded, err := codec.Encode(values)
		require.NoError(t, err)
		decoded, err := codec.Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, values, decoded, "line %q", line)
		// Null tokens normalize to the first configured token.
		assert.Equal(t, codec.ValuesToLine(values), codec.ValuesToLine(decoded))
	}
}

func TestCodecVariantOf(t *testing.T) {
	codec := testCodec(t)
	values, err := codec.LineToValues("chr1\t1000\ta\tt\t0.5\t3\tbenign")
	require.NoError(t, err)
	v, err := codec.VariantOf(values)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, keys.Variant{Chrom: "1", Pos: 1000, Ref: "A", Alt: "T"}, *v)

	// Rows without a complete variant key are skipped, not fatal.
	values, err = codec.LineToValues("1\t1000\tA\tNA\t0.5\t3\tbenign")
	require.NoError(t, err)
	v, err = codec.VariantOf(values)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCodecRejectsUnknownEnumSymbol(t *testing.T) {
	codec := testCodec(t)
	values, err := codec.LineToValues("1\t1000\tA\tT\t0.5\t3\tsomething-else")
	require.NoError(t, err)
	_, err = codec.Encode(values)
	assert.Error(t, err)
}

func TestCodecColumnCountMismatch(t *testing.T) {
	codec := testCodec(t)
	_, err := codec.LineToValues("1\t1000\tA\tT")
	assert.Error(t, err)
}
