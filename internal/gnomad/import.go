package gnomad

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/store"
	"github.com/annokv/annokv/internal/vcf"
)

// Column family names of the gnomAD datasets.
const (
	NuclearCF = "gnomad_nuclear"
	MtdnaCF   = "gnomad_mtdna"
	SvCF      = "gnomad_sv"
)

// Metadata keys of the gnomAD datasets.
const (
	MetaVersion      = "gnomad-version"
	MetaKind         = "gnomad-kind"
	MetaImportFields = "gnomad-import-fields"
)

const batchRecords = 10_000

// ImportNuclear reads one gnomAD exomes or genomes VCF and writes one
// record per alternate allele. Multi-allelic sites are split.
func ImportNuclear(s *store.Store, path string, fields ImportFields, logger *zap.Logger) error {
	return importVCF(s, path, logger, func(b *store.Batch, v *vcf.Variant) error {
		if v.IsSymbolic() {
			logger.Debug("skipping symbolic allele", zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos))
			return nil
		}
		key, err := keys.EncodeVariant(keys.Variant{
			Chrom: v.Chrom, Pos: uint32(v.Pos), Ref: v.Ref, Alt: v.Alt,
		})
		if err != nil {
			return err
		}
		value, err := ExtractRecord(v, fields).Encode()
		if err != nil {
			return err
		}
		return b.Set(NuclearCF, key, value)
	})
}

// ImportMtdna reads a gnomAD mtDNA VCF into the mitochondrial family.
func ImportMtdna(s *store.Store, path string, logger *zap.Logger) error {
	return importVCF(s, path, logger, func(b *store.Batch, v *vcf.Variant) error {
		key, err := keys.EncodeVariant(keys.Variant{
			Chrom: v.Chrom, Pos: uint32(v.Pos), Ref: v.Ref, Alt: v.Alt,
		})
		if err != nil {
			return err
		}
		value, err := ExtractMtdnaRecord(v).Encode()
		if err != nil {
			return err
		}
		return b.Set(MtdnaCF, key, value)
	})
}

// importVCF drives one VCF file through allele splitting and batched
// writes.
func importVCF(s *store.Store, path string, logger *zap.Logger, write func(*store.Batch, *vcf.Variant) error) error {
	parser, err := vcf.NewParser(path)
	if err != nil {
		return err
	}
	defer parser.Close()

	batch := s.NewBatch()
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
			if err := write(batch, v); err != nil {
				return fmt.Errorf("importing %q near line %d: %w", path, parser.LineNumber(), err)
			}
			records++
		}
		if batch.Len() >= batchRecords {
			if err := batch.Commit(); err != nil {
				return err
			}
			batch = s.NewBatch()
		}
	}
	if batch.Len() > 0 {
		if err := batch.Commit(); err != nil {
			return err
		}
	}
	logger.Info("VCF imported", zap.String("path", path), zap.Int("records", records))
	return nil
}

// NuclearDB is an opened nuclear gnomAD database.
type NuclearDB struct {
	Store *store.Store
}

// OpenNuclear opens a nuclear gnomAD database read-only.
func OpenNuclear(path string) (*NuclearDB, error) {
	s, err := store.OpenReadOnly(path, []string{NuclearCF})
	if err != nil {
		return nil, err
	}
	return &NuclearDB{Store: s}, nil
}

// Close releases the database handle.
func (db *NuclearDB) Close() error { return db.Store.Close() }

func decodeNuclear(_, value []byte) (*Record, error) {
	return DecodeRecord(value)
}

// MtdnaDB is an opened gnomAD mtDNA database.
type MtdnaDB struct {
	Store *store.Store
}

// OpenMtdna opens a gnomAD mtDNA database read-only.
func OpenMtdna(path string) (*MtdnaDB, error) {
	s, err := store.OpenReadOnly(path, []string{MtdnaCF})
	if err != nil {
		return nil, err
	}
	return &MtdnaDB{Store: s}, nil
}

// Close releases the database handle.
func (db *MtdnaDB) Close() error { return db.Store.Close() }

func decodeMtdna(_, value []byte) (*MtdnaRecord, error) {
	return DecodeMtdnaRecord(value)
}
