package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/annokv/annokv/internal/server"
)

func newServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "HTTP annotation service",
	}
	cmd.AddCommand(newServerRunCmd(), newServerSchemaCmd())
	return cmd
}

func newServerRunCmd() *cobra.Command {
	var (
		cfg            server.Config
		timeoutSeconds int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Serve annotation queries over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.RequestTimeout = time.Duration(timeoutSeconds) * time.Second
			srv, err := server.New(cfg, logger)
			if err != nil {
				return err
			}
			defer srv.Close()
			return srv.Run()
		},
	}
	cmd.Flags().StringVar(&cfg.Addr, "listen", ":8080", "listen address")
	cmd.Flags().IntVar(&timeoutSeconds, "request-timeout", 30, "per-request deadline in seconds")
	cmd.Flags().Float64Var(&cfg.RateLimit, "rate-limit", 0, "requests per second (0 = unlimited)")
	cmd.Flags().StringVar(&cfg.PathGenes, "path-genes", "", "genes database directory")
	cmd.Flags().StringVar(&cfg.PathGnomadNuclear, "path-gnomad-nuclear", "", "gnomAD nuclear database directory")
	cmd.Flags().StringVar(&cfg.PathGnomadMtdna, "path-gnomad-mtdna", "", "gnomAD mtDNA database directory")
	cmd.Flags().StringVar(&cfg.PathGnomadSv, "path-gnomad-sv", "", "gnomAD SV database directory")
	cmd.Flags().StringVar(&cfg.PathHelix, "path-helixmtdb", "", "HelixMtDb database directory")
	cmd.Flags().StringVar(&cfg.PathClinvar, "path-clinvar", "", "ClinVar minimal database directory")
	cmd.Flags().StringVar(&cfg.PathClinvarSv, "path-clinvar-sv", "", "ClinVar SV database directory")
	cmd.Flags().StringVar(&cfg.PathDbsnp, "path-dbsnp", "", "dbSNP database directory")
	cmd.Flags().StringVar(&cfg.PathFreqs, "path-freqs", "", "combined frequency database directory")
	cmd.Flags().StringVar(&cfg.PathTsv, "path-tsv", "", "TSV database directory")
	cmd.Flags().StringVar(&cfg.TsvCF, "tsv-cf-name", "", "TSV column family name")
	return cmd
}

func newServerSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Dump the HTTP endpoint schema as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := yaml.Marshal(server.Schema())
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(buf)
			return err
		},
	}
}
