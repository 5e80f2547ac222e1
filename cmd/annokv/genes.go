package main

import (
	"github.com/spf13/cobra"

	"github.com/annokv/annokv/internal/genes"
	"github.com/annokv/annokv/internal/store"
)

func newGenesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genes",
		Short: "Import and query gene-level annotations",
	}

	var (
		importCfg       importFlags
		pathHgnc        string
		pathConstraints string
		pathDosage      string
	)
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import gene annotation sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.OpenReadWrite(importCfg.pathOut, store.DefaultOptions())
			if err != nil {
				return err
			}
			cfg := genes.ImportConfig{
				PathHgnc:        pathHgnc,
				PathConstraints: pathConstraints,
				PathDosage:      pathDosage,
			}
			if err := genes.Import(s, cfg, logger); err != nil {
				s.Close()
				return err
			}
			job, err := importCfg.newJob([]string{
				genes.CF, genes.CFBySymbol, genes.CFByNcbiID, genes.CFByEnsembl,
			})
			if err != nil {
				s.Close()
				return err
			}
			job.CreatedFrom = [][2]string{{"hgnc", importCfg.dbVersion}}
			return job.Finish(s)
		},
	}
	importCfg.register(importCmd, "genes")
	importCmd.Flags().StringVar(&pathHgnc, "path-in-hgnc", "", "HGNC complete set JSONL file")
	importCmd.Flags().StringVar(&pathConstraints, "path-in-constraints", "", "gnomAD gene constraints TSV (optional)")
	importCmd.Flags().StringVar(&pathDosage, "path-in-dosage", "", "ClinGen gene dosage TSV (optional)")
	_ = importCmd.MarkFlagRequired("path-in-hgnc")

	var (
		queryPath  string
		identifier string
		outFlags   queryFlags
	)
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Look up a gene by any identifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := genes.Open(queryPath)
			if err != nil {
				return err
			}
			defer db.Close()
			rec, err := db.Lookup(identifier)
			if err != nil {
				return err
			}
			if rec != nil {
				out, err := outFlags.output()
				if err != nil {
					return err
				}
				defer out.Close()
				return outFlags.emit(out, rec)
			}
			return nil
		},
	}
	queryCmd.Flags().StringVar(&queryPath, "path-rocksdb", "", "path to database directory")
	queryCmd.Flags().StringVar(&identifier, "gene", "", "HGNC ID, NCBI gene ID, Ensembl gene ID, or symbol")
	queryCmd.Flags().StringVar(&outFlags.outFile, "out-file", "-", "output file (default stdout)")
	queryCmd.Flags().StringVar(&outFlags.format, "format", "json", "output format (json|yaml)")
	_ = queryCmd.MarkFlagRequired("path-rocksdb")
	_ = queryCmd.MarkFlagRequired("gene")

	cmd.AddCommand(importCmd, queryCmd)
	return cmd
}
