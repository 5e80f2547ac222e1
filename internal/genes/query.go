package genes

import (
	"strings"

	"github.com/annokv/annokv/internal/store"
)

// DB is an opened gene database.
type DB struct {
	Store *store.Store
}

// Open opens a gene database read-only.
func Open(path string) (*DB, error) {
	s, err := store.OpenReadOnly(path, []string{CF, CFBySymbol, CFByNcbiID, CFByEnsembl})
	if err != nil {
		return nil, err
	}
	return &DB{Store: s}, nil
}

// Close releases the database handle.
func (db *DB) Close() error { return db.Store.Close() }

// QueryHgnc returns the record of one HGNC ID, or nil.
func (db *DB) QueryHgnc(hgncID string) (*Record, error) {
	value, err := db.Store.Get(CF, []byte(hgncID))
	if err != nil || value == nil {
		return nil, err
	}
	return DecodeRecord(value)
}

func (db *DB) viaIndex(cf, key string) (*Record, error) {
	primaryKey, err := db.Store.Get(cf, []byte(key))
	if err != nil || primaryKey == nil {
		return nil, err
	}
	value, err := db.Store.Get(CF, primaryKey)
	if err != nil || value == nil {
		return nil, err
	}
	return DecodeRecord(value)
}

// QuerySymbol returns the record of a gene symbol, case-insensitively.
func (db *DB) QuerySymbol(symbol string) (*Record, error) {
	return db.viaIndex(CFBySymbol, strings.ToLower(symbol))
}

// QueryNcbi returns the record of an NCBI gene ID.
func (db *DB) QueryNcbi(ncbiGeneID string) (*Record, error) {
	return db.viaIndex(CFByNcbiID, ncbiGeneID)
}

// QueryEnsembl returns the record of an Ensembl gene ID.
func (db *DB) QueryEnsembl(ensemblGeneID string) (*Record, error) {
	return db.viaIndex(CFByEnsembl, ensemblGeneID)
}

// Lookup accepts any supported gene identifier: an HGNC ID, an NCBI gene
// ID, an Ensembl gene ID, or a symbol. The accession families are probed
// in that order; the first hit wins. Structured IDs compare
// case-sensitively, symbols case-insensitively.
func (db *DB) Lookup(identifier string) (*Record, error) {
	if strings.HasPrefix(identifier, "HGNC:") {
		return db.QueryHgnc(identifier)
	}
	if isDigits(identifier) {
		if rec, err := db.QueryNcbi(identifier); err != nil || rec != nil {
			return rec, err
		}
	}
	if strings.HasPrefix(identifier, "ENSG") {
		if rec, err := db.QueryEnsembl(identifier); err != nil || rec != nil {
			return rec, err
		}
	}
	return db.QuerySymbol(identifier)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
