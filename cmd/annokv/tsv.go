package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/store"
	"github.com/annokv/annokv/internal/tsvio"
)

func newTsvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tsv",
		Short: "Import and query generic TSV annotations",
	}
	cmd.AddCommand(newTsvImportCmd(), newTsvQueryCmd())
	return cmd
}

func newTsvImportCmd() *cobra.Command {
	var (
		flags           importFlags
		pathsIn         []string
		pathSchema      string
		cfName          string
		colChrom        string
		colPos          string
		colRef          string
		colAlt          string
		nullValues      []string
		addDefaultNulls bool
		inferenceRows   int
		skipRows        int
		rawValues       bool
		workers         int
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import TSV data with schema inference",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := tsvio.ImportConfig{
				Infer:     tsvio.DefaultInferConfig(),
				CFName:    cfName,
				RawValues: rawValues,
				Workers:   workers,
			}
			cfg.Infer.ColChrom = colChrom
			cfg.Infer.ColPos = colPos
			cfg.Infer.ColRef = colRef
			cfg.Infer.ColAlt = colAlt
			cfg.Infer.SampleRows = inferenceRows
			cfg.Infer.SkipRows = skipRows
			cfg.Infer.NullValues = nil
			if addDefaultNulls {
				cfg.Infer.NullValues = append(cfg.Infer.NullValues, tsvio.DefaultNullValues...)
			}
			cfg.Infer.NullValues = append(cfg.Infer.NullValues, nullValues...)

			var seed *tsvio.Schema
			if pathSchema != "" {
				data, err := os.ReadFile(pathSchema)
				if err != nil {
					return fmt.Errorf("%w: schema seed %q", annoerr.ErrNotFound, pathSchema)
				}
				if seed, err = tsvio.ParseSchema(data); err != nil {
					return err
				}
			}

			schema, err := tsvio.InferSchemas(pathsIn, cfg.Infer, seed, logger)
			if err != nil {
				return err
			}
			codec, err := tsvio.NewCodec(cfg.Infer, schema)
			if err != nil {
				return err
			}

			s, err := store.OpenReadWrite(flags.pathOut, store.BulkOptions())
			if err != nil {
				return err
			}
			if err := tsvio.Import(s, cfg, codec, pathsIn, logger); err != nil {
				s.Close()
				return err
			}
			job, err := flags.newJob([]string{cfg.CFName})
			if err != nil {
				s.Close()
				return err
			}
			job.Extra = tsvio.MetaEntries(cfg, schema)
			return job.Finish(s)
		},
	}
	flags.register(cmd, "tsv")
	cmd.Flags().StringSliceVar(&pathsIn, "path-in-tsv", nil, "input TSV file(s)")
	cmd.Flags().StringVar(&pathSchema, "path-schema-json", "", "schema seed JSON (declared types win)")
	cmd.Flags().StringVar(&cfName, "cf-name", tsvio.DefaultCF, "column family to import into")
	cmd.Flags().StringVar(&colChrom, "col-chrom", "CHROM", "chromosome column name")
	cmd.Flags().StringVar(&colPos, "col-pos", "POS", "position column name")
	cmd.Flags().StringVar(&colRef, "col-ref", "REF", "reference allele column name")
	cmd.Flags().StringVar(&colAlt, "col-alt", "ALT", "alternate allele column name")
	cmd.Flags().StringSliceVar(&nullValues, "null-values", nil, "additional null tokens")
	cmd.Flags().BoolVar(&addDefaultNulls, "add-default-null-values", true, "include the default null tokens (NA, ., -)")
	cmd.Flags().IntVar(&inferenceRows, "inference-row-count", 100_000, "rows sampled for schema inference")
	cmd.Flags().IntVar(&skipRows, "skip-row-count", 0, "rows to skip before the header")
	cmd.Flags().BoolVar(&rawValues, "raw-values", false, "store raw line bytes instead of binary rows")
	cmd.Flags().IntVar(&workers, "workers", 0, "scan workers (0 = host CPU count)")
	_ = cmd.MarkFlagRequired("path-in-tsv")
	return cmd
}

func newTsvQueryCmd() *cobra.Command {
	var (
		flags  queryFlags
		cfName string
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a TSV annotation database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			db, err := tsvio.Open(flags.pathIn, cfName)
			if err != nil {
				return err
			}
			defer db.Close()
			out, err := flags.output()
			if err != nil {
				return err
			}
			defer out.Close()

			switch {
			case flags.variant != "":
				q, err := keys.ParseVariantQuery(flags.variant)
				if err != nil {
					return err
				}
				row, err := db.QueryVariant(q.Assembly, q.Variant)
				if err != nil {
					return err
				}
				if row != nil {
					return flags.emit(out, row)
				}
				return nil
			case flags.position != "":
				q, err := keys.ParsePositionQuery(flags.position)
				if err != nil {
					return err
				}
				rows, err := db.QueryPosition(q.Assembly, q.Chrom, q.Pos)
				if err != nil {
					return err
				}
				return emitAll(flags, out, rows)
			case flags.rangeSpec != "":
				q, err := keys.ParseRangeQuery(flags.rangeSpec)
				if err != nil {
					return err
				}
				rows, err := db.QueryRange(q.Assembly, q.Interval)
				if err != nil {
					return err
				}
				return emitAll(flags, out, rows)
			default:
				return db.QueryAll(func(row tsvio.Row) error {
					return flags.emit(out, row)
				})
			}
		},
	}
	flags.register(cmd, false)
	cmd.Flags().StringVar(&cfName, "cf-name", tsvio.DefaultCF, "column family to query")
	return cmd
}

// emitAll writes each record on its own output line.
func emitAll[T any](flags queryFlags, out io.Writer, records []T) error {
	for _, rec := range records {
		if err := flags.emit(out, rec); err != nil {
			return err
		}
	}
	return nil
}
