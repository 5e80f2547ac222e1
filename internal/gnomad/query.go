package gnomad

import (
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/query"
)

// QueryVariant returns the nuclear record of one variant, or nil.
func (db *NuclearDB) QueryVariant(assembly keys.Assembly, v keys.Variant) (*Record, error) {
	rec, err := query.Point(db.Store, NuclearCF, assembly, v, decodeNuclear)
	if err != nil || rec == nil {
		return nil, err
	}
	return *rec, nil
}

// QueryPosition returns all nuclear records at a coordinate.
func (db *NuclearDB) QueryPosition(assembly keys.Assembly, chrom string, pos uint32) ([]*Record, error) {
	return query.Position(db.Store, NuclearCF, assembly, chrom, pos, decodeNuclear)
}

// QueryRange returns all nuclear records starting inside the closed range.
func (db *NuclearDB) QueryRange(assembly keys.Assembly, iv keys.Interval) ([]*Record, error) {
	return query.Range(db.Store, NuclearCF, assembly, iv, decodeNuclear)
}

// QueryVariant returns the mitochondrial record of one variant, or nil.
func (db *MtdnaDB) QueryVariant(assembly keys.Assembly, v keys.Variant) (*MtdnaRecord, error) {
	rec, err := query.Point(db.Store, MtdnaCF, assembly, v, decodeMtdna)
	if err != nil || rec == nil {
		return nil, err
	}
	return *rec, nil
}

// QueryPosition returns all mitochondrial records at a coordinate.
func (db *MtdnaDB) QueryPosition(assembly keys.Assembly, chrom string, pos uint32) ([]*MtdnaRecord, error) {
	return query.Position(db.Store, MtdnaCF, assembly, chrom, pos, decodeMtdna)
}

// QueryRange returns all mitochondrial records inside the closed range.
func (db *MtdnaDB) QueryRange(assembly keys.Assembly, iv keys.Interval) ([]*MtdnaRecord, error) {
	return query.Range(db.Store, MtdnaCF, assembly, iv, decodeMtdna)
}
