package main

import (
	"github.com/spf13/cobra"

	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/regions"
	"github.com/annokv/annokv/internal/store"
)

func newRegionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regions",
		Short: "Import and query curated genomic regions",
	}

	var (
		importCfg importFlags
		pathIn    string
	)
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import ClinGen region dosage curations",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.OpenReadWrite(importCfg.pathOut, store.DefaultOptions())
			if err != nil {
				return err
			}
			if err := regions.Import(s, pathIn, logger); err != nil {
				s.Close()
				return err
			}
			job, err := importCfg.newJob([]string{regions.CF})
			if err != nil {
				s.Close()
				return err
			}
			job.CreatedFrom = [][2]string{{"clingen-regions", importCfg.dbVersion}}
			return job.Finish(s)
		},
	}
	importCfg.register(importCmd, "regions")
	importCmd.Flags().StringVar(&pathIn, "path-in-tsv", "", "input region curation TSV file")
	_ = importCmd.MarkFlagRequired("path-in-tsv")

	var queryCfg queryFlags
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Query a region database by range overlap",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := queryCfg.validate(); err != nil {
				return err
			}
			db, err := regions.Open(queryCfg.pathIn)
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
