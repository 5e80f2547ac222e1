// Package tsvio implements import and query of tab-separated annotation
// files: schema inference over a row sample, a compact binary row codec,
// and the variant-keyed column family layout.
package tsvio

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/annokv/annokv/internal/annoerr"
)

// ColumnType is the inferred type of one column.
type ColumnType string

// Column types, from most to least specific.
const (
	TypeUnknown ColumnType = "UNKNOWN" // only null values seen
	TypeInteger ColumnType = "INTEGER"
	TypeFloat   ColumnType = "FLOAT"
	TypeEnum    ColumnType = "ENUM"
	TypeString  ColumnType = "STRING"
)

// MaxEnumValues is the largest distinct-value count for which a text column
// is mapped to a small enumeration instead of free strings.
const MaxEnumValues = 16

// ColumnSchema describes one column.
type ColumnSchema struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
	// EnumValues lists the symbols of an ENUM column, in code order.
	EnumValues []string `json:"enum_values,omitempty"`
}

// Schema describes a TSV table.
type Schema struct {
	Columns []ColumnSchema `json:"columns"`
}

// ColumnIndex returns the index of the named column, or -1.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// MarshalJSONString renders the schema for the metadata column family.
func (s *Schema) MarshalJSONString() string {
	buf, _ := json.Marshal(s)
	return string(buf)
}

// ParseSchema parses a schema from its JSON form (metadata entry or caller
// seed file).
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: parsing schema JSON: %v", annoerr.ErrSchema, err)
	}
	return &s, nil
}

// Merge combines the schemas of two input files column-wise. Column names
// and order must agree.
func (s *Schema) Merge(other *Schema) (*Schema, error) {
	if len(s.Columns) != len(other.Columns) {
		return nil, fmt.Errorf("%w: mismatching number of columns: %d != %d",
			annoerr.ErrSchema, len(s.Columns), len(other.Columns))
	}
	merged := &Schema{Columns: make([]ColumnSchema, len(s.Columns))}
	for i := range s.Columns {
		a, b := s.Columns[i], other.Columns[i]
		if a.Name != b.Name {
			return nil, fmt.Errorf("%w: mismatching column names: %q != %q",
				annoerr.ErrSchema, a.Name, b.Name)
		}
		col, err := mergeColumn(a, b)
		if err != nil {
			return nil, err
		}
		merged.Columns[i] = col
	}
	return merged, nil
}

func mergeColumn(a, b ColumnSchema) (ColumnSchema, error) {
	name := a.Name
	ta, tb := a.Type, b.Type
	if ta == TypeUnknown {
		return b, nil
	}
	if tb == TypeUnknown {
		return a, nil
	}
	numeric := func(t ColumnType) bool { return t == TypeInteger || t == TypeFloat }
	textual := func(t ColumnType) bool { return t == TypeEnum || t == TypeString }
	switch {
	case ta == tb && ta != TypeEnum:
		return a, nil
	case ta == TypeEnum && tb == TypeEnum:
		union := unionValues(a.EnumValues, b.EnumValues)
		if len(union) > MaxEnumValues {
			return ColumnSchema{Name: name, Type: TypeString}, nil
		}
		return ColumnSchema{Name: name, Type: TypeEnum, EnumValues: union}, nil
	case numeric(ta) && numeric(tb):
		return ColumnSchema{Name: name, Type: TypeFloat}, nil
	case textual(ta) && textual(tb):
		return ColumnSchema{Name: name, Type: TypeString}, nil
	default:
		return ColumnSchema{}, fmt.Errorf(
			"%w: column %q is %s in one input and %s in another",
			annoerr.ErrSchema, name, ta, tb)
	}
}

func unionValues(a, b []string) []string {
	set := make(map[string]bool, len(a)+len(b))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		set[v] = true
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// InferConfig configures schema inference and row parsing.
type InferConfig struct {
	// NullValues are tokens counting as missing (default NA, ., -).
	NullValues []string
	// HeaderPrefix is stripped from the first header column when present.
	HeaderPrefix string
	// SampleRows bounds the number of data rows used for inference.
	SampleRows int
	// SkipRows are skipped before the header row.
	SkipRows int

	// Names of the variant key columns.
	ColChrom string
	ColPos   string
	ColRef   string
	ColAlt   string
}

// DefaultNullValues are the null tokens used when the caller provides none.
var DefaultNullValues = []string{"NA", ".", "-"}

// DefaultInferConfig returns the inference defaults: VCF-style header
// prefix and a 100000-row sample.
func DefaultInferConfig() InferConfig {
	return InferConfig{
		NullValues:   DefaultNullValues,
		HeaderPrefix: "#",
		SampleRows:   100_000,
		ColChrom:     "CHROM",
		ColPos:       "POS",
		ColRef:       "REF",
		ColAlt:       "ALT",
	}
}

func (c *InferConfig) isNull(val string) bool {
	for _, nv := range c.NullValues {
		if val == nv {
			return true
		}
	}
	return val == ""
}

func (c *InferConfig) isKeyColumn(name string) bool {
	return name == c.ColChrom || name == c.ColPos || name == c.ColRef || name == c.ColAlt
}

// columnState tracks per-column observations during inference.
type columnState struct {
	sawInt    bool
	sawFloat  bool
	sawText   bool
	firstText string
	distinct  map[string]bool
}

func (st *columnState) observe(val string) {
	if _, err := strconv.ParseInt(val, 10, 64); err == nil {
		st.sawInt = true
	} else if _, err := strconv.ParseFloat(val, 64); err == nil {
		st.sawFloat = true
	} else {
		if !st.sawText {
			st.firstText = val
		}
		st.sawText = true
	}
	if st.distinct == nil {
		st.distinct = make(map[string]bool)
	}
	if len(st.distinct) <= MaxEnumValues {
		st.distinct[val] = true
	}
}

// Inferrer runs schema inference over the row sample of one input file.
type Inferrer struct {
	config InferConfig
	// Seed types take precedence over observations.
	seed *Schema
}

// NewInferrer creates an inferrer; seed may be nil.
func NewInferrer(config InferConfig, seed *Schema) *Inferrer {
	return &Inferrer{config: config, seed: seed}
}

// Infer derives the schema from header and sampled rows. Rows beyond
// SampleRows are ignored. A column that mixes numeric and non-numeric
// non-null values without a seed declaration is a fatal schema error.
func (inf *Inferrer) Infer(header []string, rows [][]string) (*Schema, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("%w: header missing in TSV file", annoerr.ErrSchema)
	}
	names := make([]string, len(header))
	copy(names, header)
	names[0] = strings.TrimPrefix(names[0], inf.config.HeaderPrefix)

	states := make([]columnState, len(names))
	sampled := 0
	for _, row := range rows {
		if sampled >= inf.config.SampleRows {
			break
		}
		if len(row) != len(names) {
			return nil, fmt.Errorf("%w: mismatching number of columns: %d != %d",
				annoerr.ErrSchema, len(row), len(names))
		}
		for i, val := range row {
			if inf.config.isNull(val) {
				continue
			}
			states[i].observe(val)
		}
		sampled++
	}

	schema := &Schema{Columns: make([]ColumnSchema, len(names))}
	for i, name := range names {
		col, err := inf.resolveColumn(name, &states[i])
		if err != nil {
			return nil, err
		}
		schema.Columns[i] = col
	}
	return schema, nil
}

func (inf *Inferrer) resolveColumn(name string, st *columnState) (ColumnSchema, error) {
	if inf.seed != nil {
		if i := inf.seed.ColumnIndex(name); i >= 0 {
			return inf.seed.Columns[i], nil
		}
	}
	// Key columns have fixed types.
	if name == inf.config.ColPos {
		return ColumnSchema{Name: name, Type: TypeInteger}, nil
	}
	if inf.config.isKeyColumn(name) {
		return ColumnSchema{Name: name, Type: TypeString}, nil
	}
	switch {
	case st.sawText && (st.sawInt || st.sawFloat):
		return ColumnSchema{}, fmt.Errorf(
			"%w: column %q mixes numeric and non-numeric values (e.g. %q); declare its type in a schema seed",
			annoerr.ErrSchema, name, st.firstText)
	case st.sawText:
		if len(st.distinct) <= MaxEnumValues {
			values := make([]string, 0, len(st.distinct))
			for v := range st.distinct {
				values = append(values, v)
			}
			sort.Strings(values)
			return ColumnSchema{Name: name, Type: TypeEnum, EnumValues: values}, nil
		}
		return ColumnSchema{Name: name, Type: TypeString}, nil
	case st.sawFloat:
		return ColumnSchema{Name: name, Type: TypeFloat}, nil
	case st.sawInt:
		return ColumnSchema{Name: name, Type: TypeInteger}, nil
	default:
		return ColumnSchema{Name: name, Type: TypeUnknown}, nil
	}
}
