package main

import (
	"github.com/spf13/cobra"

	"github.com/annokv/annokv/internal/clinvar"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/store"
)

func newClinvarMinimalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clinvar-minimal",
		Short: "Import and query the minimal ClinVar extract",
	}

	var (
		importCfg   importFlags
		pathsIn     []string
		lenientJSON bool
	)
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import ClinVar JSONL data",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.OpenReadWrite(importCfg.pathOut, store.DefaultOptions())
			if err != nil {
				return err
			}
			cfg := clinvar.MinimalImportConfig{LenientJSON: lenientJSON}
			if err := clinvar.ImportMinimal(s, cfg, pathsIn, logger); err != nil {
				s.Close()
				return err
			}
			job, err := importCfg.newJob([]string{
				clinvar.MinimalCF, clinvar.MinimalByVCV, clinvar.MinimalByRCV,
			})
			if err != nil {
				s.Close()
				return err
			}
			job.CreatedFrom = [][2]string{{"clinvar", importCfg.dbVersion}}
			return job.Finish(s)
		},
	}
	importCfg.register(importCmd, "clinvar-minimal")
	importCmd.Flags().StringSliceVar(&pathsIn, "path-in-jsonl", nil, "input JSONL file(s)")
	importCmd.Flags().BoolVar(&lenientJSON, "lenient-json", false,
		"accept non-standard null tokens and single-quoted strings")
	_ = importCmd.MarkFlagRequired("path-in-jsonl")

	var queryCfg queryFlags
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Query a minimal ClinVar database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := queryCfg.validate(); err != nil {
				return err
			}
			db, err := clinvar.OpenMinimal(queryCfg.pathIn)
			if err != nil {
				return err
			}
			defer db.Close()
			out, err := queryCfg.output()
			if err != nil {
				return err
			}
			defer out.Close()

			switch {
			case queryCfg.accession != "":
				rec, err := db.QueryAccession(queryCfg.accession)
				if err != nil {
					return err
				}
				if rec != nil {
					return queryCfg.emit(out, rec)
				}
				return nil
			case queryCfg.variant != "":
				q, err := keys.ParseVariantQuery(queryCfg.variant)
				if err != nil {
					return err
				}
				rec, err := db.QueryVariant(q.Assembly, q.Variant)
				if err != nil {
					return err
				}
				if rec != nil {
					return queryCfg.emit(out, rec)
				}
				return nil
			case queryCfg.position != "":
				q, err := keys.ParsePositionQuery(queryCfg.position)
				if err != nil {
					return err
				}
				recs, err := db.QueryPosition(q.Assembly, q.Chrom, q.Pos)
				if err != nil {
					return err
				}
				return emitAll(queryCfg, out, recs)
			default:
				q, err := keys.ParseRangeQuery(queryCfg.rangeSpec)
				if err != nil {
					return err
				}
				recs, err := db.QueryRange(q.Assembly, q.Interval)
				if err != nil {
					return err
				}
				return emitAll(queryCfg, out, recs)
			}
		},
	}
	queryCfg.register(queryCmd, true)

	cmd.AddCommand(importCmd, queryCmd)
	return cmd
}

func newClinvarSvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clinvar-sv",
		Short: "Import and query ClinVar structural variants",
	}

	var (
		importCfg   importFlags
		pathsIn     []string
		lenientJSON bool
		minVarSize  uint32
	)
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import ClinVar SV JSONL data",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.OpenReadWrite(importCfg.pathOut, store.DefaultOptions())
			if err != nil {
				return err
			}
			cfg := clinvar.SvImportConfig{LenientJSON: lenientJSON, MinVarSize: minVarSize}
			if err := clinvar.ImportSv(s, cfg, pathsIn, logger); err != nil {
				s.Close()
				return err
			}
			job, err := importCfg.newJob([]string{
				clinvar.SvCF, clinvar.SvByVCV, clinvar.SvByRCV,
			})
			if err != nil {
				s.Close()
				return err
			}
			job.CreatedFrom = [][2]string{{"clinvar", importCfg.dbVersion}}
			return job.Finish(s)
		},
	}
	importCfg.register(importCmd, "clinvar-sv")
	importCmd.Flags().StringSliceVar(&pathsIn, "path-in-jsonl", nil, "input JSONL file(s)")
	importCmd.Flags().BoolVar(&lenientJSON, "lenient-json", false,
		"accept non-standard null tokens and single-quoted strings")
	importCmd.Flags().Uint32Var(&minVarSize, "min-var-size", clinvar.DefaultMinVarSize,
		"minimal REF/ALT length to consider structural")
	_ = importCmd.MarkFlagRequired("path-in-jsonl")

	var queryCfg queryFlags
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Query a ClinVar SV database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := queryCfg.validate(); err != nil {
				return err
			}
			db, err := clinvar.OpenSv(queryCfg.pathIn)
			if err != nil {
				return err
			}
			defer db.Close()
			out, err := queryCfg.output()
			if err != nil {
				return err
			}
			defer out.Close()

			if queryCfg.accession != "" {
				rec, err := db.QueryAccession(queryCfg.accession)
				if err != nil {
					return err
				}
				if rec != nil {
					return queryCfg.emit(out, rec)
				}
				return nil
			}
			q, err := keys.ParseRangeQuery(queryCfg.rangeSpec)
			if err != nil {
				return err
			}
			recs, err := db.QueryRange(q.Assembly, q.Interval)
			if err != nil {
				return err
			}
			return emitAll(queryCfg, out, recs)
		},
	}
	queryCfg.register(queryCmd, true)

	cmd.AddCommand(importCmd, queryCmd)
	return cmd
}

func newClinvarGenesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clinvar-genes",
		Short: "Import and query per-gene ClinVar aggregates",
	}

	var (
		importCfg   importFlags
		pathsIn     []string
		lenientJSON bool
	)
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Aggregate ClinVar JSONL data per gene",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.OpenReadWrite(importCfg.pathOut, store.DefaultOptions())
			if err != nil {
				return err
			}
			if err := clinvar.ImportGenes(s, lenientJSON, pathsIn, logger); err != nil {
				s.Close()
				return err
			}
			job, err := importCfg.newJob([]string{clinvar.GenesCF})
			if err != nil {
				s.Close()
				return err
			}
			job.CreatedFrom = [][2]string{{"clinvar", importCfg.dbVersion}}
			return job.Finish(s)
		},
	}
	importCfg.register(importCmd, "clinvar-genes")
	importCmd.Flags().StringSliceVar(&pathsIn, "path-in-jsonl", nil, "input JSONL file(s)")
	importCmd.Flags().BoolVar(&lenientJSON, "lenient-json", false,
		"accept non-standard null tokens and single-quoted strings")
	_ = importCmd.MarkFlagRequired("path-in-jsonl")

	var (
		queryPath string
		hgncID    string
	)
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Query a per-gene ClinVar database",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := clinvar.OpenGenes(queryPath)
			if err != nil {
				return err
			}
			defer db.Close()
			rec, err := db.QueryGene(hgncID)
			if err != nil {
				return err
			}
			if rec != nil {
				var q queryFlags
				q.format = "json"
				return q.emit(cmd.OutOrStdout(), rec)
			}
			return nil
		},
	}
	queryCmd.Flags().StringVar(&queryPath, "path-rocksdb", "", "path to database directory")
	queryCmd.Flags().StringVar(&hgncID, "hgnc-id", "", "HGNC ID to query")
	_ = queryCmd.MarkFlagRequired("path-rocksdb")
	_ = queryCmd.MarkFlagRequired("hgnc-id")

	cmd.AddCommand(importCmd, queryCmd)
	return cmd
}
