package main

import (
	"github.com/spf13/cobra"

	"github.com/annokv/annokv/internal/helix"
	"github.com/annokv/annokv/internal/keys"
	"github.com/annokv/annokv/internal/store"
)

func newHelixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "helixmtdb",
		Short: "Import and query HelixMtDb frequencies",
	}

	var (
		importCfg importFlags
		pathIn    string
	)
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import HelixMtDb VCF data",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.OpenReadWrite(importCfg.pathOut, store.DefaultOptions())
			if err != nil {
				return err
			}
			if err := helix.Import(s, pathIn, logger); err != nil {
				s.Close()
				return err
			}
			job, err := importCfg.newJob([]string{helix.CF})
			if err != nil {
				s.Close()
				return err
			}
			job.CreatedFrom = [][2]string{{"helixmtdb", importCfg.dbVersion}}
			return job.Finish(s)
		},
	}
	importCfg.register(importCmd, "helixmtdb")
	importCmd.Flags().StringVar(&pathIn, "path-in-vcf", "", "input VCF file")
	_ = importCmd.MarkFlagRequired("path-in-vcf")

	var queryCfg queryFlags
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Query a HelixMtDb database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := queryCfg.validate(); err != nil {
				return err
			}
			db, err := helix.Open(queryCfg.pathIn)
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
