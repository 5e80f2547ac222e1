package genes

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/ingest"
	"github.com/annokv/annokv/internal/store"
)

// ImportConfig names the input files of a gene database build.
type ImportConfig struct {
	// PathHgnc is the HGNC complete-set JSONL file (gene identity).
	PathHgnc string
	// PathConstraints is the gnomAD gene constraints TSV (optional).
	PathConstraints string
	// PathDosage is the ClinGen gene dosage curation TSV (optional).
	PathDosage string
}

// hgncLine is the subset of the HGNC JSONL dialect this import reads.
type hgncLine struct {
	HgncID        string   `json:"hgnc_id"`
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	EntrezID      string   `json:"entrez_id"`
	EnsemblGeneID string   `json:"ensembl_gene_id"`
	AliasSymbol   []string `json:"alias_symbol"`
}

// Import builds the gene records from the configured inputs and writes
// them with all secondary indices.
func Import(s *store.Store, cfg ImportConfig, logger *zap.Logger) error {
	records, err := readHgnc(cfg.PathHgnc, logger)
	if err != nil {
		return err
	}
	bySymbol := make(map[string]*Record, len(records))
	for _, rec := range records {
		bySymbol[strings.ToLower(rec.Symbol)] = rec
	}

	if cfg.PathConstraints != "" {
		if err := mergeConstraints(cfg.PathConstraints, bySymbol); err != nil {
			return err
		}
	}
	if cfg.PathDosage != "" {
		if err := mergeDosage(cfg.PathDosage, bySymbol, logger); err != nil {
			return err
		}
	}

	// Deterministic write order keeps re-imports byte-identical.
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	batch := s.NewBatch()
	for _, id := range ids {
		rec := records[id]
		value, err := rec.Encode()
		if err != nil {
			return err
		}
		key := []byte(rec.HgncID)
		if err := batch.Set(CF, key, value); err != nil {
			return err
		}
		// Symbol lookup is case-insensitive: the index key is folded and
		// queries fold before probing.
		if err := batch.Set(CFBySymbol, []byte(strings.ToLower(rec.Symbol)), key); err != nil {
			return err
		}
		if rec.NcbiGeneID != "" {
			if err := batch.Set(CFByNcbiID, []byte(rec.NcbiGeneID), key); err != nil {
				return err
			}
		}
		if rec.EnsemblGeneID != "" {
			if err := batch.Set(CFByEnsembl, []byte(rec.EnsemblGeneID), key); err != nil {
				return err
			}
		}
		if batch.Len() >= 10_000 {
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
	logger.Info("genes imported", zap.Int("genes", len(records)))
	return nil
}

func readHgnc(path string, logger *zap.Logger) (map[string]*Record, error) {
	in, err := ingest.OpenInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	records := make(map[string]*Record)
	lineNo := 0
	for in.Scanner.Scan() {
		lineNo++
		line := in.Scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var h hgncLine
		if err := json.Unmarshal(line, &h); err != nil {
			logger.Warn("skipping malformed HGNC line", zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		if h.HgncID == "" || h.Symbol == "" {
			continue
		}
		records[h.HgncID] = &Record{
			HgncID:        h.HgncID,
			Symbol:        h.Symbol,
			Name:          h.Name,
			NcbiGeneID:    h.EntrezID,
			EnsemblGeneID: h.EnsemblGeneID,
			AliasSymbols:  h.AliasSymbol,
		}
	}
	if err := in.Scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no gene records in %q", annoerr.ErrFormat, path)
	}
	return records, nil
}

// mergeConstraints joins the constraints TSV onto records by gene symbol.
func mergeConstraints(path string, bySymbol map[string]*Record) error {
	return forEachTSVRow(path, func(row map[string]string) {
		rec := bySymbol[strings.ToLower(row["gene"])]
		if rec == nil {
			return
		}
		c := &Constraints{}
		c.PLI = parseFloatOr0(row["pLI"])
		c.OELof = parseFloatOr0(row["oe_lof"])
		c.OELofUpper = parseFloatOr0(row["oe_lof_upper"])
		c.MisZ = parseFloatOr0(row["mis_z"])
		c.SynZ = parseFloatOr0(row["syn_z"])
		rec.Constraints = c
	})
}

// mergeDosage joins the ClinGen dosage TSV onto records, preferring the
// HGNC ID column and falling back to the symbol.
func mergeDosage(path string, bySymbol map[string]*Record, logger *zap.Logger) error {
	byHgnc := make(map[string]*Record, len(bySymbol))
	for _, rec := range bySymbol {
		byHgnc[rec.HgncID] = rec
	}
	return forEachTSVRow(path, func(row map[string]string) {
		rec := byHgnc[row["HGNC ID"]]
		if rec == nil {
			rec = bySymbol[strings.ToLower(row["Gene Symbol"])]
		}
		if rec == nil {
			logger.Debug("dosage row without matching gene",
				zap.String("hgnc", row["HGNC ID"]), zap.String("symbol", row["Gene Symbol"]))
			return
		}
		d := &Dosage{}
		if score, ok := parseDosageScore(row["Haploinsufficiency Score"]); ok {
			d.HaploinsufficiencyScore = &score
		}
		if score, ok := parseDosageScore(row["Triplosensitivity Score"]); ok {
			d.TriplosensitivityScore = &score
		}
		if d.HaploinsufficiencyScore != nil || d.TriplosensitivityScore != nil {
			rec.Dosage = d
		}
	})
}

// parseDosageScore handles the interesting values the curation files use
// for "not scored".
func parseDosageScore(s string) (int32, bool) {
	if s == "" || s == "Not yet evaluated" || s == "-1" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(n), true
}

func parseFloatOr0(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// forEachTSVRow streams a header-keyed TSV file.
func forEachTSVRow(path string, fn func(row map[string]string)) error {
	in, err := ingest.OpenInput(path)
	if err != nil {
		return err
	}
	defer in.Close()

	var header []string
	for in.Scanner.Scan() {
		line := in.Scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if header == nil {
			header = fields
			header[0] = strings.TrimPrefix(header[0], "#")
			continue
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(fields) {
				row[name] = fields[i]
			}
		}
		fn(row)
	}
	if err := in.Scanner.Err(); err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}
	return nil
}
