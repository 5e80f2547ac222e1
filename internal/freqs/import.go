package freqs

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/store"
	"github.com/annokv/annokv/internal/vcf"
)

// Source identifies which study a VCF contributes to a merged record.
type Source int

// Sources of frequency data.
const (
	SourceExomes Source = iota
	SourceGenomes
	SourceGnomadMtdna
	SourceHelix
)

// ImportPaths names the input VCFs of one combined frequency build. Any
// path may be empty; combined records then carry zero counts for that
// source.
type ImportPaths struct {
	GnomadExomes  []string
	GnomadGenomes []string
	GnomadMtdna   string
	HelixMtdb     string
}

// Import builds the combined frequency database. Sources are merged via
// read-modify-write on the store: the first source writes fresh records,
// later sources fold their counts into the stored value.
func Import(s *store.Store, paths ImportPaths, logger *zap.Logger) error {
	for _, p := range paths.GnomadExomes {
		if err := importNuclear(s, p, SourceExomes, logger); err != nil {
			return err
		}
	}
	for _, p := range paths.GnomadGenomes {
		if err := importNuclear(s, p, SourceGenomes, logger); err != nil {
			return err
		}
	}
	if paths.GnomadMtdna != "" {
		if err := importMT(s, paths.GnomadMtdna, SourceGnomadMtdna, logger); err != nil {
			return err
		}
	}
	if paths.HelixMtdb != "" {
		if err := importMT(s, paths.HelixMtdb, SourceHelix, logger); err != nil {
			return err
		}
	}
	return nil
}

// autoCountsFromVariant derives autosomal counts from AC/AN/nhomalt.
func autoCountsFromVariant(v *vcf.Variant) AutoCounts {
	ac, _ := v.InfoInt("AC")
	an, _ := v.InfoInt("AN")
	nhomalt, _ := v.InfoInt("nhomalt")
	het := ac - 2*nhomalt
	if het < 0 {
		het = 0
	}
	return AutoCounts{AN: uint32(an), ACHom: uint32(nhomalt), ACHet: uint32(het)}
}

// xyCountsFromVariant derives gonosomal counts honoring the pseudo-
// autosomal regions: outside the PAR, XY carriers are hemizygous.
func xyCountsFromVariant(v *vcf.Variant) XYCounts {
	an, _ := v.InfoInt("AN")

	acHomXX, okHomXX := v.InfoInt("nhomalt_XX")
	if !okHomXX {
		acHomXX, _ = v.InfoInt("nhomalt_female")
	}
	acXX, okXX := v.InfoInt("AC_XX")
	if !okXX {
		acXX, _ = v.InfoInt("AC_female")
	}
	acHomXY, okHomXY := v.InfoInt("nhomalt_XY")
	if !okHomXY {
		acHomXY, _ = v.InfoInt("nhomalt_male")
	}
	acXY, okXY := v.InfoInt("AC_XY")
	if !okXY {
		acXY, _ = v.InfoInt("AC_male")
	}

	nonpar := v.InfoFlag("nonpar")
	if nonpar {
		het := acXX - 2*acHomXX
		if het < 0 {
			het = 0
		}
		return XYCounts{
			AN:     uint32(an),
			ACHom:  uint32(acHomXX),
			ACHet:  uint32(het),
			ACHemi: uint32(acXY),
		}
	}
	het := acXX - 2*acHomXX - 2*acHomXY
	if het < 0 {
		het = 0
	}
	return XYCounts{
		AN:    uint32(an),
		ACHom: uint32(acHomXX + acHomXY),
		ACHet: uint32(het),
	}
}

func mtCountsFromVariant(v *vcf.Variant) MTCounts {
	an, _ := v.InfoInt("AN")
	acHom, _ := v.InfoInt("AC_hom")
	acHet, _ := v.InfoInt("AC_het")
	return MTCounts{AN: uint32(an), ACHom: uint32(acHom), ACHet: uint32(acHet)}
}

// importNuclear folds one exomes or genomes VCF into the autosomal and
// gonosomal families.
func importNuclear(s *store.Store, path string, source Source, logger *zap.Logger) error {
	return eachAllele(s, path, logger, func(v *vcf.Variant, key []byte, chrom string) error {
		switch chrom {
		case "X", "Y":
			counts := xyCountsFromVariant(v)
			existing, err := s.Get(GonosomalCF, key)
			if err != nil {
				return err
			}
			rec := &XYRecord{}
			if existing != nil {
				if rec, err = DecodeXYRecord(existing); err != nil {
					return err
				}
			}
			if source == SourceExomes {
				rec.Exomes = counts
			} else {
				rec.Genomes = counts
			}
			return s.Put(GonosomalCF, key, rec.Encode())
		case "MT":
			// Mitochondrial calls inside nuclear files are rare but legal.
			counts := mtCountsFromVariant(v)
			return foldMT(s, key, counts, SourceGnomadMtdna)
		default:
			counts := autoCountsFromVariant(v)
			existing, err := s.Get(AutosomalCF, key)
			if err != nil {
				return err
			}
			rec := &AutoRecord{}
			if existing != nil {
				if rec, err = DecodeAutoRecord(existing); err != nil {
					return err
				}
			}
			if source == SourceExomes {
				rec.Exomes = counts
			} else {
				rec.Genomes = counts
			}
			return s.Put(AutosomalCF, key, rec.Encode())
		}
	})
}

// importMT folds one mitochondrial VCF into the mitochondrial family.
func importMT(s *store.Store, path string, source Source, logger *zap.Logger) error {
	return eachAllele(s, path, logger, func(v *vcf.Variant, key []byte, chrom string) error {
		return foldMT(s, key, mtCountsFromVariant(v), source)
	})
}

func foldMT(s *store.Store, key []byte, counts MTCounts, source Source) error {
	existing, err := s.Get(MitochondrialCF, key)
	if err != nil {
		return err
	}
	rec := &MTRecord{}
	if existing != nil {
		if rec, err = DecodeMTRecord(existing); err != nil {
			return err
		}
	}
	if source == SourceHelix {
		rec.HelixMtdb = counts
	} else {
		rec.GnomadMtdna = counts
	}
	return s.Put(MitochondrialCF, key, rec.Encode())
}

// eachAllele drives one VCF through splitting and canonical keying.
func eachAllele(s *store.Store, path string, logger *zap.Logger, fn func(v *vcf.Variant, key []byte, chrom string) error) error {
	parser, err := vcf.NewParser(path)
	if err != nil {
		return err
	}
	defer parser.Close()

	records := 0
	for {
		site, err := parser.Next()
		if err != nil {
			return fmt.Errorf("importing %q: %w", path, err)
		}
		if site == nil {
			break
		}
		for _, v := range vcf.SplitMultiAllelic(site) {
			if v.IsSymbolic() {
				continue
			}
			cv, err := keys.Variant{
				Chrom: v.Chrom, Pos: uint32(v.Pos), Ref: v.Ref, Alt: v.Alt,
			}.Canonicalize()
			if err != nil {
				logger.Warn("skipping allele", zap.Error(err))
				continue
			}
			key, err := keys.EncodeVariant(cv)
			if err != nil {
				return err
			}
			if err := fn(v, key, cv.Chrom); err != nil {
				return err
			}
			records++
		}
	}
	logger.Info("frequency source imported", zap.String("path", path), zap.Int("records", records))
	return nil
}

// DB is an opened combined frequency database.
type DB struct {
	Store *store.Store
}

// Open opens a combined frequency database read-only.
func Open(path string) (*DB, error) {
	s, err := store.OpenReadOnly(path, []string{AutosomalCF, GonosomalCF, MitochondrialCF})
	if err != nil {
		return nil, err
	}
	return &DB{Store: s}, nil
}

// Close releases the database handle.
func (db *DB) Close() error { return db.Store.Close() }

// QueryAuto returns the autosomal record of one variant, or nil.
func (db *DB) QueryAuto(assembly keys.Assembly, v keys.Variant) (*AutoRecord, error) {
	key, err := db.checkedKey(assembly, v)
	if err != nil {
		return nil, err
	}
	value, err := db.Store.Get(AutosomalCF, key)
	if err != nil || value == nil {
		return nil, err
	}
	return DecodeAutoRecord(value)
}

// QueryXY returns the gonosomal record of one variant, or nil.
func (db *DB) QueryXY(assembly keys.Assembly, v keys.Variant) (*XYRecord, error) {
	key, err := db.checkedKey(assembly, v)
	if err != nil {
		return nil, err
	}
	value, err := db.Store.Get(GonosomalCF, key)
	if err != nil || value == nil {
		return nil, err
	}
	return DecodeXYRecord(value)
}

// QueryMT returns the mitochondrial record of one variant, or nil.
func (db *DB) QueryMT(assembly keys.Assembly, v keys.Variant) (*MTRecord, error) {
	key, err := db.checkedKey(assembly, v)
	if err != nil {
		return nil, err
	}
	value, err := db.Store.Get(MitochondrialCF, key)
	if err != nil || value == nil {
		return nil, err
	}
	return DecodeMTRecord(value)
}

func (db *DB) checkedKey(assembly keys.Assembly, v keys.Variant) ([]byte, error) {
	if err := db.Store.CheckAssembly(string(assembly)); err != nil {
		return nil, err
	}
	return keys.EncodeVariant(v)
}
