package tsvio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/ingest"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/store"
)

// Metadata keys specific to TSV databases.
const (
	MetaSchema = "tsv-schema"
	MetaConfig = "tsv-config"
	MetaRaw    = "tsv-raw-values"
)

// DefaultCF is the default column family of TSV databases.
const DefaultCF = "tsv_data"

// batchRows bounds the number of rows per write batch.
const batchRows = 10_000

// ImportConfig configures a TSV import run.
type ImportConfig struct {
	Infer  InferConfig
	CFName string
	// RawValues stores the raw line bytes instead of the binary row form.
	RawValues bool
	// Workers bounds the scan parallelism; 0 means the host default.
	Workers int
}

// InferSchemas infers and merges the schema over all input files, applying
// the optional seed.
func InferSchemas(paths []string, cfg InferConfig, seed *Schema, logger *zap.Logger) (*Schema, error) {
	inferrer := NewInferrer(cfg, seed)
	var schema *Schema
	for _, path := range paths {
		header, rows, err := readHeaderAndSample(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("inferring schema of %q: %w", path, err)
		}
		other, err := inferrer.Infer(header, rows)
		if err != nil {
			return nil, fmt.Errorf("inferring schema of %q: %w", path, err)
		}
		if schema == nil {
			schema = other
			continue
		}
		schema, err = schema.Merge(other)
		if err != nil {
			return nil, err
		}
	}
	if schema == nil {
		return nil, fmt.Errorf("%w: no input files", annoerr.ErrSchema)
	}
	logger.Info("schema inferred", zap.Int("columns", len(schema.Columns)))
	return schema, nil
}

// readHeaderAndSample reads the header row and up to SampleRows data rows.
func readHeaderAndSample(path string, cfg InferConfig) ([]string, [][]string, error) {
	in, err := ingest.OpenInput(path)
	if err != nil {
		return nil, nil, err
	}
	defer in.Close()

	for i := 0; i < cfg.SkipRows; i++ {
		if !in.Scanner.Scan() {
			return nil, nil, fmt.Errorf("%w: header missing in TSV file", annoerr.ErrSchema)
		}
	}
	if !in.Scanner.Scan() {
		return nil, nil, fmt.Errorf("%w: header missing in TSV file", annoerr.ErrSchema)
	}
	header := splitRow(in.Scanner.Text())

	var rows [][]string
	for len(rows) < cfg.SampleRows && in.Scanner.Scan() {
		line := in.Scanner.Text()
		if line == "" {
			continue
		}
		rows = append(rows, splitRow(line))
	}
	if err := in.Scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading %q: %w", path, err)
	}
	return header, rows, nil
}

func splitRow(line string) []string {
	return strings.Split(line, "\t")
}

// Import runs the TSV ingest into the open store. The caller finishes the
// job (metadata, compaction) afterwards.
func Import(s *store.Store, cfg ImportConfig, codec *Codec, paths []string, logger *zap.Logger) error {
	if cfg.CFName == "" {
		cfg.CFName = DefaultCF
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = ingest.Workers()
	}
	for _, path := range paths {
		if err := importFile(s, cfg, codec, path, workers, logger); err != nil {
			return fmt.Errorf("importing %q: %w", path, err)
		}
	}
	return nil
}

// importFile imports one input. Plain-text files are byte-sliced so each
// worker owns a disjoint region; since sources are coordinate sorted, the
// workers then own disjoint key windows. Compressed files are scanned by a
// single worker.
func importFile(s *store.Store, cfg ImportConfig, codec *Codec, path string, workers int, logger *zap.Logger) error {
	compressed, size, err := probeInput(path)
	if err != nil {
		return err
	}
	logger.Info("importing TSV",
		zap.String("path", path),
		zap.String("size", humanize.Bytes(uint64(size))),
		zap.Bool("compressed", compressed))

	if compressed || workers <= 1 {
		return scanSequential(s, cfg, codec, path, logger)
	}

	slices, err := ingest.FileSlices(path, workers)
	if err != nil {
		return err
	}
	return ingest.RunPool(slices, workers, func(sl ingest.Slice) error {
		w := newRowWriter(s, cfg, codec, logger)
		skip := 0
		if sl.Offset == 0 {
			skip = cfg.Infer.SkipRows + 1 // leading rows plus the header
		}
		err := ingest.ScanSlice(sl, func(line string) error {
			if skip > 0 {
				skip--
				return nil
			}
			return w.writeLine(line)
		})
		if err != nil {
			return err
		}
		return w.flush()
	})
}

func probeInput(path string) (compressed bool, size int64, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, 0, fmt.Errorf("%w: input file %q", annoerr.ErrNotFound, path)
	}
	in, err := ingest.OpenInput(path)
	if err != nil {
		return false, 0, err
	}
	defer in.Close()
	return in.Compressed, info.Size(), nil
}

func scanSequential(s *store.Store, cfg ImportConfig, codec *Codec, path string, logger *zap.Logger) error {
	in, err := ingest.OpenInput(path)
	if err != nil {
		return err
	}
	defer in.Close()

	w := newRowWriter(s, cfg, codec, logger)
	skip := cfg.Infer.SkipRows + 1
	for in.Scanner.Scan() {
		line := in.Scanner.Text()
		if skip > 0 {
			skip--
			continue
		}
		if line == "" {
			continue
		}
		if err := w.writeLine(line); err != nil {
			return err
		}
	}
	if err := in.Scanner.Err(); err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}
	return w.flush()
}

// rowWriter batches encoded rows into the store, detecting duplicate keys
// within its own (sorted) scan region.
type rowWriter struct {
	s       *store.Store
	cfg     ImportConfig
	codec   *Codec
	logger  *zap.Logger
	batch   *store.Batch
	lastKey []byte
	rows    int
}

func newRowWriter(s *store.Store, cfg ImportConfig, codec *Codec, logger *zap.Logger) *rowWriter {
	return &rowWriter{s: s, cfg: cfg, codec: codec, logger: logger, batch: s.NewBatch()}
}

func (w *rowWriter) writeLine(line string) error {
	values, err := w.codec.LineToValues(line)
	if err != nil {
		return err
	}
	variant, err := w.codec.VariantOf(values)
	if err != nil {
		return err
	}
	if variant == nil {
		w.logger.Debug("skipping row without variant key", zap.String("line", line))
		return nil
	}
	key, err := keys.EncodeVariant(*variant)
	if err != nil {
		return err
	}
	if bytes.Equal(key, w.lastKey) {
		// Same variant twice in one source; last write wins.
		w.logger.Warn("duplicate key in import batch",
			zap.String("chrom", variant.Chrom), zap.Uint32("pos", variant.Pos))
	}
	w.lastKey = bytes.Clone(key)

	var value []byte
	if w.cfg.RawValues {
		value = []byte(line)
	} else {
		value, err = w.codec.Encode(values)
		if err != nil {
			return err
		}
	}
	if err := w.batch.Set(w.cfg.CFName, key, value); err != nil {
		return err
	}
	w.rows++
	if w.batch.Len() >= batchRows {
		return w.flush()
	}
	return nil
}

func (w *rowWriter) flush() error {
	if w.batch.Len() == 0 {
		return nil
	}
	if err := w.batch.Commit(); err != nil {
		return err
	}
	w.batch = w.s.NewBatch()
	return nil
}

// MetaEntries returns the dataset-specific metadata for the finished
// import.
func MetaEntries(cfg ImportConfig, schema *Schema) map[string]string {
	cfgJSON, _ := json.Marshal(cfg.Infer)
	raw := "false"
	if cfg.RawValues {
		raw = "true"
	}
	return map[string]string{
		MetaSchema: schema.MarshalJSONString(),
		MetaConfig: string(cfgJSON),
		MetaRaw:    raw,
	}
}
