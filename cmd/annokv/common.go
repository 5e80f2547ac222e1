package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/annokv/annokv/internal/annoerr"
	"github.com/annokv/annokv/internal/ingest"
	"github.com/annokv/annokv/internal/keys"
)

// importFlags are the flags shared by every import subcommand.
type importFlags struct {
	genomeRelease string
	pathOut       string
	dbName        string
	dbVersion     string
}

func (f *importFlags) register(cmd *cobra.Command, defaultDBName string) {
	cmd.Flags().StringVar(&f.genomeRelease, "genome-release", "", "genome release of the data (grch37|grch38)")
	cmd.Flags().StringVar(&f.pathOut, "path-out-rocksdb", "", "path to output database directory")
	cmd.Flags().StringVar(&f.dbName, "db-name", defaultDBName, "database name written to metadata")
	cmd.Flags().StringVar(&f.dbVersion, "db-version", "", "database version written to metadata")
	_ = cmd.MarkFlagRequired("genome-release")
	_ = cmd.MarkFlagRequired("path-out-rocksdb")
	_ = cmd.MarkFlagRequired("db-version")
}

func (f *importFlags) assembly() (keys.Assembly, error) {
	return keys.ParseAssembly(f.genomeRelease)
}

// newJob builds the ingest job carrying the metadata of this run.
func (f *importFlags) newJob(cfNames []string) (*ingest.Job, error) {
	assembly, err := f.assembly()
	if err != nil {
		return nil, err
	}
	return ingest.NewJob(f.dbName, f.dbVersion, string(assembly), cfNames, logger), nil
}

// queryFlags are the flags shared by every query subcommand. Exactly one
// selector must be given.
type queryFlags struct {
	pathIn    string
	variant   string
	position  string
	rangeSpec string
	accession string
	all       bool
	outFile   string
	format    string
}

func (f *queryFlags) register(cmd *cobra.Command, withAccession bool) {
	cmd.Flags().StringVar(&f.pathIn, "path-rocksdb", "", "path to database directory")
	cmd.Flags().StringVar(&f.variant, "variant", "", "variant to query (ASSEMBLY:CHROM:POS:REF:ALT)")
	cmd.Flags().StringVar(&f.position, "position", "", "position to query (ASSEMBLY:CHROM:POS)")
	cmd.Flags().StringVar(&f.rangeSpec, "range", "", "range to query (ASSEMBLY:CHROM:START:STOP)")
	if withAccession {
		cmd.Flags().StringVar(&f.accession, "accession", "", "accession to query")
	}
	cmd.Flags().BoolVar(&f.all, "all", false, "dump all records")
	cmd.Flags().StringVar(&f.outFile, "out-file", "-", "output file (default stdout)")
	cmd.Flags().StringVar(&f.format, "format", "json", "output format (json|yaml)")
	_ = cmd.MarkFlagRequired("path-rocksdb")
}

// selectorCount counts the query selectors the caller provided.
func (f *queryFlags) selectorCount() int {
	n := 0
	for _, set := range []bool{f.variant != "", f.position != "", f.rangeSpec != "", f.accession != "", f.all} {
		if set {
			n++
		}
	}
	return n
}

func (f *queryFlags) validate() error {
	if f.selectorCount() != 1 {
		return fmt.Errorf(
			"%w: exactly one of --variant, --position, --range, --accession, --all is required",
			annoerr.ErrInvalidInput)
	}
	if f.format != "json" && f.format != "yaml" {
		return fmt.Errorf("%w: unknown output format %q", annoerr.ErrInvalidInput, f.format)
	}
	return nil
}

// output opens the query output stream.
func (f *queryFlags) output() (io.WriteCloser, error) {
	if f.outFile == "" || f.outFile == "-" {
		return nopCloser{os.Stdout}, nil
	}
	out, err := os.Create(f.outFile)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	return out, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// emit writes one record in the requested format (JSONL by default).
func (f *queryFlags) emit(w io.Writer, record any) error {
	if f.format == "yaml" {
		buf, err := yaml.Marshal(record)
		if err != nil {
			return err
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
		_, err = io.WriteString(w, "---\n")
		return err
	}
	enc := json.NewEncoder(w)
	return enc.Encode(record)
}
