// =============================================================================
// Bursar - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to. Given a single
// file argument it behaves exactly like 'bursar process <file>'.
//
// COBRA CLI STRUCTURE:
//   rootCmd (bursar [file])
//   ├── processCmd (bursar process <file>)
//   └── versionCmd (bursar version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --log-level, --verbose)
//   2. Loading the YAML configuration and applying flag overrides
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/ginjaninja78/bursar/internal/config"
	"github.com/ginjaninja78/bursar/internal/logging"
	"github.com/ginjaninja78/bursar/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errNoInput is returned when bursar is run without an input file.
var errNoInput = errors.New("exactly one input file argument is required")

// defaultConfigFile is loaded from the working directory when --config is
// not given and the file exists.
const defaultConfigFile = "bursar.yaml"

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the optional YAML configuration file.
var cfgFile string

// logLevel overrides logging.level from the configuration file.
var logLevel string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bursar [file]",
	Short: "Bursar - Replay a transaction log into client account balances",
	Long: `Bursar reads a chronological log of client transactions (deposits,
withdrawals, disputes, resolutions and chargebacks) and prints the final
balance state of every client: available funds, held funds, total and
whether the account has been locked by a chargeback.

Rows that cannot be parsed, and transactions that reference unknown or
undisputed transactions, are skipped with a diagnostic on stderr. Only the
account table is written to stdout.

Example Usage:
  bursar transactions.csv > accounts.csv
  bursar process transactions.xlsx --format table
  bursar process transactions.csv --output out/{original}_{date}.csv --reject-log rejects.log`,

	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errNoInput
		}
		return runProcess(cmd, args[0])
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. This is called by main.main(). Any error
// ends the process with exit status 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	// ==========================================================================
	// PERSISTENT FLAGS
	// ==========================================================================
	// Persistent flags are available to this command and all subcommands.

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"Path to a YAML configuration file (default: ./bursar.yaml when present)",
	)

	rootCmd.PersistentFlags().StringVar(
		&logLevel,
		"log-level",
		"",
		"Log level: debug, info, warn or error (overrides the config file)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)

	// The shorthand form accepts the same local flags as 'process'.
	addProcessFlags(rootCmd)
}

// =============================================================================
// CONFIGURATION AND LOGGING
// =============================================================================

// loadConfig reads the configuration file, if any, and applies the command
// line overrides on top of it. Without --config, bursar.yaml in the working
// directory is used when present.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" && utils.FileExists(defaultConfigFile) {
		path = defaultConfigFile
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" {
		cfg.Output.Format = outputFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newLogger builds the diagnostic logger. Diagnostics go to the command's
// error stream so stdout carries only the account table.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.NewWithWriter(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
