package tsvio

import (
	"encoding/json"
	"fmt"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/query"
	"github.com/annokv/annokv/internal/store"
)

// DB is an opened TSV annotation database.
type DB struct {
	Store *store.Store
	CF    string
	Codec *Codec
	Raw   bool
}

// Open opens the database read-only and reconstructs the row codec from the
// stored schema metadata.
func Open(path, cf string) (*DB, error) {
	if cf == "" {
		cf = DefaultCF
	}
	s, err := store.OpenReadOnly(path, []string{cf})
	if err != nil {
		return nil, err
	}
	db := &DB{Store: s, CF: cf}

	schemaJSON, err := s.MetaGet(MetaSchema)
	if err != nil {
		s.Close()
		return nil, err
	}
	if schemaJSON == "" {
		s.Close()
		return nil, fmt.Errorf("%w: database has no %s metadata", annoerr.ErrStore, MetaSchema)
	}
	schema, err := ParseSchema([]byte(schemaJSON))
	if err != nil {
		s.Close()
		return nil, err
	}

	cfg := DefaultInferConfig()
	if cfgJSON, err := s.MetaGet(MetaConfig); err != nil {
		s.Close()
		return nil, err
	} else if cfgJSON != "" {
		if err := json.Unmarshal([]byte(cfgJSON), &cfg); err != nil {
			s.Close()
			return nil, fmt.Errorf("%w: bad %s metadata: %v", annoerr.ErrStore, MetaConfig, err)
		}
	}

	db.Codec, err = NewCodec(cfg, schema)
	if err != nil {
		s.Close()
		return nil, err
	}
	if raw, err := s.MetaGet(MetaRaw); err != nil {
		s.Close()
		return nil, err
	} else {
		db.Raw = raw == "true"
	}
	return db, nil
}

// Close releases the database handle.
func (db *DB) Close() error { return db.Store.Close() }

// Row is one queried record: the typed cells by column name plus the
// reconstructed line.
type Row struct {
	Values map[string]any `json:"values"`
	Line   string         `json:"line"`
}

func (db *DB) decodeRow(key, value []byte) (Row, error) {
	if db.Raw {
		line := string(value)
		values, err := db.Codec.LineToValues(line)
		if err != nil {
			return Row{}, err
		}
		return db.buildRow(values, line), nil
	}
	values, err := db.Codec.Decode(value)
	if err != nil {
		return Row{}, err
	}
	return db.buildRow(values, db.Codec.ValuesToLine(values)), nil
}

func (db *DB) buildRow(values []Value, line string) Row {
	m := make(map[string]any, len(values))
	for i, v := range values {
		m[db.Codec.Schema.Columns[i].Name] = v
	}
	return Row{Values: m, Line: line}
}

// QueryVariant returns the row of one variant, or nil.
func (db *DB) QueryVariant(assembly keys.Assembly, v keys.Variant) (*Row, error) {
	return query.Point(db.Store, db.CF, assembly, v, db.decodeRow)
}

// QueryPosition returns all rows at a coordinate in key order.
func (db *DB) QueryPosition(assembly keys.Assembly, chrom string, pos uint32) ([]Row, error) {
	return query.Position(db.Store, db.CF, assembly, chrom, pos, db.decodeRow)
}

// QueryRange returns all rows inside the closed range in key order.
func (db *DB) QueryRange(assembly keys.Assembly, iv keys.Interval) ([]Row, error) {
	return query.Range(db.Store, db.CF, assembly, iv, db.decodeRow)
}

// QueryAll streams every row to fn in key order.
func (db *DB) QueryAll(fn func(Row) error) error {
	return query.All(db.Store, db.CF, db.decodeRow, fn)
}
