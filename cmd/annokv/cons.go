package main

import (
	"github.com/spf13/cobra"

	"github.com/annokv/annokv/internal/cons"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/store"
)

func newConsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cons",
		Short: "Import and query conservation scores",
	}

	var (
		importCfg importFlags
		pathIn    string
	)
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import conservation TSV data",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.OpenReadWrite(importCfg.pathOut, store.BulkOptions())
			if err != nil {
				return err
			}
			if err := cons.Import(s, pathIn, logger); err != nil {
				s.Close()
				return err
			}
			job, err := importCfg.newJob([]string{cons.CF})
			if err != nil {
				s.Close()
				return err
			}
			job.CreatedFrom = [][2]string{{"ucsc-conservation", importCfg.dbVersion}}
			return job.Finish(s)
		},
	}
	importCfg.register(importCmd, "cons")
	importCmd.Flags().StringVar(&pathIn, "path-in-tsv", "", "input TSV file")
	_ = importCmd.MarkFlagRequired("path-in-tsv")

	var queryCfg queryFlags
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Query a conservation database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := queryCfg.validate(); err != nil {
				return err
			}
			db, err := cons.Open(queryCfg.pathIn)
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
