package main

import (
	"github.com/spf13/cobra"

	"github.com/annokv/annokv/internal/freqs"
	"github.com/annokv/annokv/internal/store"
)

func newFreqsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "freqs",
		Short: "Build the combined frequency database",
	}

	var (
		importCfg    importFlags
		pathsExomes  []string
		pathsGenomes []string
		pathMtdna    string
		pathHelix    string
	)
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Merge gnomAD and HelixMtDb frequencies into one database",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.OpenReadWrite(importCfg.pathOut, store.BulkOptions())
			if err != nil {
				return err
			}
			paths := freqs.ImportPaths{
				GnomadExomes:  pathsExomes,
				GnomadGenomes: pathsGenomes,
				GnomadMtdna:   pathMtdna,
				HelixMtdb:     pathHelix,
			}
			if err := freqs.Import(s, paths, logger); err != nil {
				s.Close()
				return err
			}
			job, err := importCfg.newJob([]string{
				freqs.AutosomalCF, freqs.GonosomalCF, freqs.MitochondrialCF,
			})
			if err != nil {
				s.Close()
				return err
			}
			job.CreatedFrom = [][2]string{
				{"gnomad-exomes", importCfg.dbVersion},
				{"gnomad-genomes", importCfg.dbVersion},
				{"gnomad-mtdna", importCfg.dbVersion},
				{"helixmtdb", importCfg.dbVersion},
			}
			return job.Finish(s)
		},
	}
	importCfg.register(importCmd, "freqs")
	importCmd.Flags().StringSliceVar(&pathsExomes, "path-in-gnomad-exomes", nil, "gnomAD exomes VCF file(s)")
	importCmd.Flags().StringSliceVar(&pathsGenomes, "path-in-gnomad-genomes", nil, "gnomAD genomes VCF file(s)")
	importCmd.Flags().StringVar(&pathMtdna, "path-in-gnomad-mtdna", "", "gnomAD mtDNA VCF file")
	importCmd.Flags().StringVar(&pathHelix, "path-in-helixmtdb", "", "HelixMtDb VCF file")

	cmd.AddCommand(importCmd)
	return cmd
}
