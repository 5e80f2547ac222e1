package tsvio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annokv/annokv/internal/annoerr"
)

func inferRows(t *testing.T, header []string, rows [][]string, seed *Schema) (*Schema, error) {
	t.Helper()
	cfg := DefaultInferConfig()
	cfg.SampleRows = 100
	return NewInferrer(cfg, seed).Infer(header, rows)
}

func TestInferBasicTypes(t *testing.T) {
	schema, err := inferRows(t,
		[]string{"#CHROM", "POS", "REF", "ALT", "SCORE", "COUNT", "LABEL"},
		[][]string{
			{"1", "1000", "A", "T", "0.5", "3", "benign"},
			{"1", "1001", "A", "C", "0.8", "NA", "pathogenic"},
		}, nil)
	require.NoError(t, err)

	byName := map[string]ColumnSchema{}
	for _, c := range schema.Columns {
		byName[c.Name] = c
	}
	assert.Equal(t, TypeString, byName["CHROM"].Type)
	assert.Equal(t, TypeInteger, byName["POS"].Type)
	assert.Equal(t, TypeFloat, byName["SCORE"].Type)
	assert.Equal(t, TypeInteger, byName["COUNT"].Type)
	assert.Equal(t, TypeEnum, byName["LABEL"].Type)
	assert.Equal(t, []string{"benign", "pathogenic"}, byName["LABEL"].EnumValues)
}

func TestInferAmbiguousColumnFatal(t *testing.T) {
	_, err := inferRows(t,
		[]string{"#CHROM", "POS", "REF", "ALT", "MIXED"},
		[][]string{
			{"1", "1000", "A", "T", "42"},
			{"1", "1001", "A", "C", "notanumber"},
		}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, annoerr.ErrSchema), "got %v", err)
}

func TestInferSeedResolvesAmbiguity(t *testing.T) {
	seed := &Schema{Columns: []ColumnSchema{{Name: "MIXED", Type: TypeString}}}
	schema, err := inferRows(t,
		[]string{"#CHROM", "POS", "REF", "ALT", "MIXED"},
		[][]string{
			{"1", "1000", "A", "T", "42"},
			{"1", "1001", "A", "C", "notanumber"},
		}, seed)
	require.NoError(t, err)
	assert.Equal(t, TypeString, schema.Columns[4].Type)
}

func TestInferNullOnlyColumn(t *testing.T) {
	schema, err := inferRows(t,
		[]string{"#CHROM", "POS", "REF", "ALT", "EMPTY"},
		[][]string{{"1", "1000", "A", "T", "."}}, nil)
	require.NoError(t, err)
	assert.Equal(t, TypeUnknown, schema.Columns[4].Type)
}

func TestSchemaMerge(t *testing.T) {
	a := &Schema{Columns: []ColumnSchema{
		{Name: "POS", Type: TypeInteger},
		{Name: "V", Type: TypeInteger},
	}}
	b := &Schema{Columns: []ColumnSchema{
		{Name: "POS", Type: TypeInteger},
		{Name: "V", Type: TypeFloat},
	}}
	merged, err := a.Merge(b)
	require.NoError(t, err)
	assert.Equal(t, TypeFloat, merged.Columns[1].Type)

	// Mismatching names are fatal.
	c := &Schema{Columns: []ColumnSchema{
		{Name: "POS", Type: TypeInteger},
		{Name: "OTHER", Type: TypeFloat},
	}}
	_, err = a.Merge(c)
	assert.True(t, errors.Is(err, annoerr.ErrSchema), "got %v", err)

	// Numeric vs text across files is ambiguous.
	d := &Schema{Columns: []ColumnSchema{
		{Name: "POS", Type: TypeInteger},
		{Name: "V", Type: TypeString},
	}}
	_, err = a.Merge(d)
	assert.True(t, errors.Is(err, annoerr.ErrSchema), "got %v", err)
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	schema := &Schema{Columns: []ColumnSchema{
		{Name: "POS", Type: TypeInteger},
		{Name: "LABEL", Type: TypeEnum, EnumValues: []string{"a", "b"}},
	}}
	parsed, err := ParseSchema([]byte(schema.MarshalJSONString()))
	require.NoError(t, err)
	assert.Equal(t, schema, parsed)
}
