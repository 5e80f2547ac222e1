package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/dbutils"
	"github.com/annokv/annokv/internal/keys"
)

func newDbUtilsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db-utils",
		Short: "Database maintenance commands",
	}
	cmd.AddCommand(newDbUtilsCopyCmd(), newDbUtilsDumpMetaCmd())
	return cmd
}

func newDbUtilsCopyCmd() *cobra.Command {
	var (
		pathIn   string
		pathOut  string
		all      bool
		position string
		rangeStr string
		bedPaths []string
	)
	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy a database, optionally restricted to regions",
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := dbutils.CopySelection{All: all, BedPaths: bedPaths}
			n := 0
			if all {
				n++
			}
			if position != "" {
				q, err := keys.ParsePositionQuery(position)
				if err != nil {
					return err
				}
				sel.Position = &q
				n++
			}
			if rangeStr != "" {
				q, err := keys.ParseRangeQuery(rangeStr)
				if err != nil {
					return err
				}
				sel.Range = &q
				n++
			}
			if len(bedPaths) > 0 {
				n++
			}
			if n != 1 {
				return fmt.Errorf(
					"%w: exactly one of --all, --position, --range, --path-beds is required",
					annoerr.ErrInvalidInput)
			}
			return dbutils.Copy(pathIn, pathOut, sel, logger)
		},
	}
	cmd.Flags().StringVar(&pathIn, "path-in", "", "source database directory")
	cmd.Flags().StringVar(&pathOut, "path-out", "", "destination database directory")
	cmd.Flags().BoolVar(&all, "all", false, "copy everything")
	cmd.Flags().StringVar(&position, "position", "", "copy one position (ASSEMBLY:CHROM:POS)")
	cmd.Flags().StringVar(&rangeStr, "range", "", "copy one range (ASSEMBLY:CHROM:START:STOP)")
	cmd.Flags().StringSliceVar(&bedPaths, "path-beds", nil, "BED file(s) naming regions to copy")
	_ = cmd.MarkFlagRequired("path-in")
	_ = cmd.MarkFlagRequired("path-out")
	return cmd
}

func newDbUtilsDumpMetaCmd() *cobra.Command {
	var pathIn string
	cmd := &cobra.Command{
		Use:   "dump-meta",
		Short: "Dump the metadata column family as TSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return dbutils.DumpMeta(pathIn, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&pathIn, "path-in", "", "database directory")
	_ = cmd.MarkFlagRequired("path-in")
	return cmd
}
