package tsvio

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/keys"
)

// Value is one typed cell: nil, int64, float64, or string.
type Value any

// Codec encodes and decodes rows under a fixed schema. The wire form is a
// null bitmask followed by the non-null cells: big-endian int32 for
// integers, big-endian float64 bits for floats, a single code byte for
// enums, and NUL-terminated bytes for strings.
type Codec struct {
	Config InferConfig
	Schema *Schema

	chromIdx int
	posIdx   int
	refIdx   int
	altIdx   int
}

// NewCodec builds a codec; the variant key columns named in config must
// exist in the schema.
func NewCodec(config InferConfig, schema *Schema) (*Codec, error) {
	c := &Codec{Config: config, Schema: schema}
	c.chromIdx = schema.ColumnIndex(config.ColChrom)
	c.posIdx = schema.ColumnIndex(config.ColPos)
	c.refIdx = schema.ColumnIndex(config.ColRef)
	c.altIdx = schema.ColumnIndex(config.ColAlt)
	for name, idx := range map[string]int{
		config.ColChrom: c.chromIdx,
		config.ColPos:   c.posIdx,
		config.ColRef:   c.refIdx,
		config.ColAlt:   c.altIdx,
	} {
		if idx < 0 {
			return nil, fmt.Errorf("%w: key column %q not in schema", annoerr.ErrSchema, name)
		}
	}
	return c, nil
}

// NumColumns returns the column count of the schema.
func (c *Codec) NumColumns() int { return len(c.Schema.Columns) }

// LineToValues parses one data line into typed cells.
func (c *Codec) LineToValues(line string) ([]Value, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != c.NumColumns() {
		return nil, fmt.Errorf("%w: mismatching number of columns: %d != %d",
			annoerr.ErrFormat, len(fields), c.NumColumns())
	}
	values := make([]Value, len(fields))
	for i, val := range fields {
		if c.Config.isNull(val) {
			continue
		}
		switch c.Schema.Columns[i].Type {
		case TypeInteger:
			n, err := strconv.ParseInt(val, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid integer %q in column %q",
					annoerr.ErrFormat, val, c.Schema.Columns[i].Name)
			}
			values[i] = n
		case TypeFloat:
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid float %q in column %q",
					annoerr.ErrFormat, val, c.Schema.Columns[i].Name)
			}
			values[i] = f
		case TypeEnum, TypeString, TypeUnknown:
			values[i] = val
		}
	}
	return values, nil
}

// ValuesToLine renders typed cells back into the delimited form, using the
// first configured null token for missing cells.
func (c *Codec) ValuesToLine(values []Value) string {
	nullToken := "."
	if len(c.Config.NullValues) > 0 {
		nullToken = c.Config.NullValues[0]
	}
	fields := make([]string, len(values))
	for i, v := range values {
		switch v := v.(type) {
		case nil:
			fields[i] = nullToken
		case int64:
			fields[i] = strconv.FormatInt(v, 10)
		case float64:
			fields[i] = strconv.FormatFloat(v, 'g', -1, 64)
		case string:
			fields[i] = v
		}
	}
	return strings.Join(fields, "\t")
}

// VariantOf extracts the canonical variant from the key columns, or nil
// when any key cell is missing (such rows are skipped with a warning).
func (c *Codec) VariantOf(values []Value) (*keys.Variant, error) {
	chrom, ok1 := values[c.chromIdx].(string)
	pos, ok2 := values[c.posIdx].(int64)
	ref, ok3 := values[c.refIdx].(string)
	alt, ok4 := values[c.altIdx].(string)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, nil
	}
	if pos <= 0 || pos > math.MaxUint32 {
		return nil, fmt.Errorf("%w: position %d out of range", annoerr.ErrInvalidInput, pos)
	}
	v, err := keys.Variant{Chrom: chrom, Pos: uint32(pos), Ref: ref, Alt: alt}.Canonicalize()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Encode serializes typed cells into the binary row form.
func (c *Codec) Encode(values []Value) ([]byte, error) {
	if len(values) != c.NumColumns() {
		return nil, fmt.Errorf("%w: mismatching number of columns: %d != %d",
			annoerr.ErrFormat, len(values), c.NumColumns())
	}
	maskBytes := (c.NumColumns() + 7) / 8
	buf := make([]byte, maskBytes, maskBytes+8*len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		buf[i/8] |= 1 << (i % 8)
		col := c.Schema.Columns[i]
		switch col.Type {
		case TypeInteger:
			n, ok := v.(int64)
			if !ok {
				return nil, fmt.Errorf("%w: column %q expects integer", annoerr.ErrFormat, col.Name)
			}
			buf = binary.BigEndian.AppendUint32(buf, uint32(int32(n)))
		case TypeFloat:
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("%w: column %q expects float", annoerr.ErrFormat, col.Name)
			}
			buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(f))
		case TypeEnum:
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: column %q expects enum symbol", annoerr.ErrFormat, col.Name)
			}
			code := -1
			for j, sym := range col.EnumValues {
				if sym == s {
					code = j
					break
				}
			}
			if code < 0 {
				return nil, fmt.Errorf("%w: value %q not in enumeration of column %q",
					annoerr.ErrFormat, s, col.Name)
			}
			buf = append(buf, byte(code))
		case TypeString, TypeUnknown:
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: column %q expects string", annoerr.ErrFormat, col.Name)
			}
			buf = append(buf, s...)
			buf = append(buf, 0)
		}
	}
	return buf, nil
}

// Decode deserializes a binary row back into typed cells.
func (c *Codec) Decode(data []byte) ([]Value, error) {
	maskBytes := (c.NumColumns() + 7) / 8
	if len(data) < maskBytes {
		return nil, fmt.Errorf("%w: row value too short", annoerr.ErrStore)
	}
	mask := data[:maskBytes]
	rest := data[maskBytes:]
	values := make([]Value, c.NumColumns())
	for i := range values {
		if mask[i/8]&(1<<(i%8)) == 0 {
			continue
		}
		col := c.Schema.Columns[i]
		switch col.Type {
		case TypeInteger:
			if len(rest) < 4 {
				return nil, fmt.Errorf("%w: truncated integer in column %q", annoerr.ErrStore, col.Name)
			}
			values[i] = int64(int32(binary.BigEndian.Uint32(rest[:4])))
			rest = rest[4:]
		case TypeFloat:
			if len(rest) < 8 {
				return nil, fmt.Errorf("%w: truncated float in column %q", annoerr.ErrStore, col.Name)
			}
			values[i] = math.Float64frombits(binary.BigEndian.Uint64(rest[:8]))
			rest = rest[8:]
		case TypeEnum:
			if len(rest) < 1 {
				return nil, fmt.Errorf("%w: truncated enum in column %q", annoerr.ErrStore, col.Name)
			}
			code := int(rest[0])
			if code >= len(col.EnumValues) {
				return nil, fmt.Errorf("%w: enum code %d out of range in column %q",
					annoerr.ErrStore, code, col.Name)
			}
			values[i] = col.EnumValues[code]
			rest = rest[1:]
		case TypeString, TypeUnknown:
			end := 0
			for end < len(rest) && rest[end] != 0 {
				end++
			}
			if end == len(rest) {
				return nil, fmt.Errorf("%w: unterminated string in column %q", annoerr.ErrStore, col.Name)
			}
			values[i] = string(rest[:end])
			rest = rest[end+1:]
		}
	}
	return values, nil
}
