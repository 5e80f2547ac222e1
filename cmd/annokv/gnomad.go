package main

import (
	"github.com/spf13/cobra"

	"github.com/annokv/annokv/internal/gnomad"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/store"
)

func newGnomadNuclearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gnomad-nuclear",
		Short: "Import and query gnomAD exomes/genomes frequencies",
	}
	cmd.AddCommand(newGnomadNuclearImportCmd(), newGnomadNuclearQueryCmd())
	return cmd
}

func newGnomadNuclearImportCmd() *cobra.Command {
	var (
		flags         importFlags
		pathsIn       []string
		gnomadKind    string
		gnomadVersion string
		fieldsJSON    string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import gnomAD nuclear VCF data",
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := gnomad.LoadImportFields(fieldsJSON, logger)
			if err != nil {
				return err
			}
			s, err := store.OpenReadWrite(flags.pathOut, store.BulkOptions())
			if err != nil {
				return err
			}
			for _, path := range pathsIn {
				if err := gnomad.ImportNuclear(s, path, fields, logger); err != nil {
					s.Close()
					return err
				}
			}
			job, err := flags.newJob([]string{gnomad.NuclearCF})
			if err != nil {
				s.Close()
				return err
			}
			job.CreatedFrom = [][2]string{{"gnomad-" + gnomadKind, gnomadVersion}}
			job.Extra = map[string]string{
				gnomad.MetaVersion:      gnomadVersion,
				gnomad.MetaKind:         gnomadKind,
				gnomad.MetaImportFields: fields.MarshalJSONString(),
			}
			return job.Finish(s)
		},
	}
	flags.register(cmd, "gnomad-nuclear")
	cmd.Flags().StringSliceVar(&pathsIn, "path-in-vcf", nil, "input VCF file(s)")
	cmd.Flags().StringVar(&gnomadKind, "gnomad-kind", "exomes", "gnomAD kind (exomes|genomes)")
	cmd.Flags().StringVar(&gnomadVersion, "gnomad-version", "", "gnomAD version of the input")
	cmd.Flags().StringVar(&fieldsJSON, "import-fields-json", "", "JSON document selecting optional INFO groups")
	_ = cmd.MarkFlagRequired("path-in-vcf")
	_ = cmd.MarkFlagRequired("gnomad-version")
	return cmd
}

func newGnomadNuclearQueryCmd() *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a gnomAD nuclear database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			db, err := gnomad.OpenNuclear(flags.pathIn)
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
				rec, err := db.QueryVariant(q.Assembly, q.Variant)
				if err != nil {
					return err
				}
				if rec != nil {
					return flags.emit(out, rec)
				}
				return nil
			case flags.position != "":
				q, err := keys.ParsePositionQuery(flags.position)
				if err != nil {
					return err
				}
				recs, err := db.QueryPosition(q.Assembly, q.Chrom, q.Pos)
				if err != nil {
					return err
				}
				return emitAll(flags, out, recs)
			default:
				q, err := keys.ParseRangeQuery(flags.rangeSpec)
				if err != nil {
					return err
				}
				recs, err := db.QueryRange(q.Assembly, q.Interval)
				if err != nil {
					return err
				}
				return emitAll(flags, out, recs)
			}
		},
	}
	flags.register(cmd, false)
	return cmd
}

func newGnomadMtdnaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gnomad-mtdna",
		Short: "Import and query gnomAD mitochondrial frequencies",
	}

	var (
		importCfg     importFlags
		pathIn        string
		gnomadVersion string
	)
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import gnomAD mtDNA VCF data",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.OpenReadWrite(importCfg.pathOut, store.DefaultOptions())
			if err != nil {
				return err
			}
			if err := gnomad.ImportMtdna(s, pathIn, logger); err != nil {
				s.Close()
				return err
			}
			job, err := importCfg.newJob([]string{gnomad.MtdnaCF})
			if err != nil {
				s.Close()
				return err
			}
			job.CreatedFrom = [][2]string{{"gnomad-mtdna", gnomadVersion}}
			job.Extra = map[string]string{gnomad.MetaVersion: gnomadVersion}
			return job.Finish(s)
		},
	}
	importCfg.register(importCmd, "gnomad-mtdna")
	importCmd.Flags().StringVar(&pathIn, "path-in-vcf", "", "input VCF file")
	importCmd.Flags().StringVar(&gnomadVersion, "gnomad-version", "", "gnomAD version of the input")
	_ = importCmd.MarkFlagRequired("path-in-vcf")
	_ = importCmd.MarkFlagRequired("gnomad-version")

	var queryCfg queryFlags
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Query a gnomAD mtDNA database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := queryCfg.validate(); err != nil {
				return err
			}
			db, err := gnomad.OpenMtdna(queryCfg.pathIn)
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
	queryCfg.register(queryCmd, false)

	cmd.AddCommand(importCmd, queryCmd)
	return cmd
}

func newGnomadSvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gnomad-sv",
		Short: "Import and query gnomAD structural variants",
	}

	var (
		importCfg     importFlags
		pathsIn       []string
		gnomadVersion string
	)
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import gnomAD SV VCF data",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.OpenReadWrite(importCfg.pathOut, store.DefaultOptions())
			if err != nil {
				return err
			}
			for _, path := range pathsIn {
				if err := gnomad.ImportSv(s, path, logger); err != nil {
					s.Close()
					return err
				}
			}
			job, err := importCfg.newJob([]string{gnomad.SvCF})
			if err != nil {
				s.Close()
				return err
			}
			job.CreatedFrom = [][2]string{{"gnomad-sv", gnomadVersion}}
			job.Extra = map[string]string{gnomad.MetaVersion: gnomadVersion}
			return job.Finish(s)
		},
	}
	importCfg.register(importCmd, "gnomad-sv")
	importCmd.Flags().StringSliceVar(&pathsIn, "path-in-vcf", nil, "input VCF file(s)")
	importCmd.Flags().StringVar(&gnomadVersion, "gnomad-version", "", "gnomAD version of the input")
	_ = importCmd.MarkFlagRequired("path-in-vcf")
	_ = importCmd.MarkFlagRequired("gnomad-version")

	var queryCfg queryFlags
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Query a gnomAD SV database by range overlap",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := queryCfg.validate(); err != nil {
				return err
			}
			db, err := gnomad.OpenSv(queryCfg.pathIn)
			if err != nil {
				return err
			}
			defer db.Close()
			out, err := queryCfg.output()
			if err != nil {
				return err
			}
			defer out.Close()

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
	queryCfg.register(queryCmd, false)

	cmd.AddCommand(importCmd, queryCmd)
	return cmd
}
