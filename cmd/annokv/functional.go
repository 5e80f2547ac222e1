package main

import (
	"github.com/spf13/cobra"

	"github.com/annokv/annokv/internal/functional"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/store"
)

func newFunctionalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "functional",
		Short: "Import and query functional genomic elements",
	}

	var (
		importCfg      importFlags
		pathIn         string
		featureClasses []string
	)
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import functional elements from GFF3",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.OpenReadWrite(importCfg.pathOut, store.DefaultOptions())
			if err != nil {
				return err
			}
			cfg := functional.ImportConfig{FeatureClasses: featureClasses}
			if err := functional.Import(s, cfg, pathIn, logger); err != nil {
				s.Close()
				return err
			}
			job, err := importCfg.newJob([]string{functional.CF})
			if err != nil {
				s.Close()
				return err
			}
			job.CreatedFrom = [][2]string{{"refseq-functional", importCfg.dbVersion}}
			return job.Finish(s)
		},
	}
	importCfg.register(importCmd, "functional")
	importCmd.Flags().StringVar(&pathIn, "path-in-gff", "", "input GFF3 file")
	importCmd.Flags().StringSliceVar(&featureClasses, "feature-classes", nil,
		"feature classes to keep (default: the known functional classes)")
	_ = importCmd.MarkFlagRequired("path-in-gff")

	var queryCfg queryFlags
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Query a functional element database by range overlap",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := queryCfg.validate(); err != nil {
				return err
			}
			db, err := functional.Open(queryCfg.pathIn)
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
