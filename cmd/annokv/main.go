// Command annokv is the genome annotation database tool: it ingests
// annotation sources into read-optimized databases and serves point,
// position, and range queries over them.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/annokv/annokv/internal/annoerr"
)

// Version information (set at build time).
var (
	version = "dev"
	commit  = "none"
)

var (
	verbosity int
	logger    *zap.Logger
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:           "annokv",
		Short:         "Genome annotation database",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
	}
	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity")

	root.AddCommand(
		newTsvCmd(),
		newDbsnpCmd(),
		newGnomadNuclearCmd(),
		newGnomadMtdnaCmd(),
		newGnomadSvCmd(),
		newHelixCmd(),
		newConsCmd(),
		newClinvarMinimalCmd(),
		newClinvarSvCmd(),
		newClinvarGenesCmd(),
		newGenesCmd(),
		newRegionsCmd(),
		newFunctionalCmd(),
		newFreqsCmd(),
		newDbUtilsCmd(),
		newServerCmd(),
	)

	err := root.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return annoerr.ExitCode(err)
	}
	return annoerr.ExitSuccess
}

// setup wires configuration and logging. Flags take precedence over
// ANNOKV_* environment variables, which take precedence over the optional
// ~/.annokv.yaml file.
func setup() error {
	viper.SetEnvPrefix("ANNOKV")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(".annokv")
		viper.SetConfigType("yaml")
		// Missing config file is fine.
		_ = viper.ReadInConfig()
	}

	level := zapcore.WarnLevel
	switch {
	case verbosity >= 2:
		level = zapcore.DebugLevel
	case verbosity == 1:
		level = zapcore.InfoLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	// stderr carries logs; stdout stays machine readable.
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	var err error
	logger, err = cfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	return nil
}
