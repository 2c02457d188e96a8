// =============================================================================
// Bursar - Process Command
// =============================================================================
//
// This file defines the 'process' command, which replays one transaction file
// and prints the resulting account table.
//
// COMMAND USAGE:
//   bursar process <file> [flags]
//
// FLAGS:
//   --format      : Output format: csv, table or xlsx
//   --output      : Write the table to a file instead of stdout
//   --reject-log  : Write rows that could not be parsed to a file
//
// PROCESSING PIPELINE:
//   1. Load configuration and build the logger
//   2. Stream the input rows into the ledger engine
//   3. Render the account table
//   4. Write the reject log, or summarize rejected rows on stderr
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/ginjaninja78/bursar/internal/config"
	"github.com/ginjaninja78/bursar/internal/processor"
	"github.com/ginjaninja78/bursar/internal/validation"
	"github.com/ginjaninja78/bursar/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errBinaryToTerminal is returned when xlsx output is requested without a
// file to write it to.
var errBinaryToTerminal = errors.New("xlsx output requires --output")

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// outputFormat overrides output.format from the configuration file.
var outputFormat string

// outputPath is the file the account table is written to. It may contain
// placeholders, see utils.GenerateOutputFileName.
var outputPath string

// rejectLogPath is the file rejected rows are written to.
var rejectLogPath string

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Replay a transaction file and print the client accounts",
	Long: `The process command reads a CSV (or .xlsx) transaction file with the
columns type, client, tx and amount, applies every transaction in file order
and prints one row per client:

  client,available,held,total,locked

Malformed rows and transactions that cannot be applied are skipped. A
diagnostic is logged for each of them; the run itself never fails because
of a single bad row.`,

	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd, args[0])
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(processCmd)
	addProcessFlags(processCmd)
}

// addProcessFlags registers the local flags shared by 'process' and the
// root shorthand.
func addProcessFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&outputFormat,
		"format",
		"",
		"Output format: csv, table or xlsx (overrides the config file)",
	)

	cmd.Flags().StringVarP(
		&outputPath,
		"output",
		"o",
		"",
		"Write the account table to this file; supports {original}, {date}, {timestamp}, {uuid}",
	)

	cmd.Flags().StringVar(
		&rejectLogPath,
		"reject-log",
		"",
		"Write rows that could not be parsed to this file",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess replays inputPath and writes the account table.
func runProcess(cmd *cobra.Command, inputPath string) error {
	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Output.Format == config.FormatXLSX && outputPath == "" {
		return errBinaryToTerminal
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// =========================================================================
	// STEP 2: PROCESS THE INPUT
	// =========================================================================

	proc := processor.New(cfg, logger)

	result, err := proc.Run(cmd.Context(), inputPath)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 3: WRITE THE ACCOUNT TABLE
	// =========================================================================

	if err := writeReport(cmd.OutOrStdout(), proc, result, logger); err != nil {
		return err
	}

	// =========================================================================
	// STEP 4: REPORT REJECTED ROWS
	// =========================================================================

	if rejectLogPath == "" {
		if len(result.Rejected) > 0 {
			fmt.Fprint(cmd.ErrOrStderr(), validation.FormatErrors(result.Rejected))
		}
	} else {
		if err := proc.WriteRejectLog(rejectLogPath, result); err != nil {
			return fmt.Errorf("failed to write reject log: %w", err)
		}
		if len(result.Rejected) > 0 {
			logger.Info("reject log written",
				zap.String("path", rejectLogPath),
				zap.Int("rejected", len(result.Rejected)),
			)
		}
	}

	return nil
}

// writeReport renders the table to stdout, or to the --output file when one
// was given.
func writeReport(stdout io.Writer, proc *processor.Processor, result *processor.Result, logger *zap.Logger) error {
	if outputPath == "" {
		return proc.WriteReport(stdout, result)
	}

	path := utils.GenerateOutputFileName(outputPath, map[string]string{
		"original": utils.BaseNameWithoutExt(result.InputFile),
	})

	file, err := utils.CreateFile(path)
	if err != nil {
		return err
	}

	if err := proc.WriteReport(file, result); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	logger.Info("account table written", zap.String("path", path), zap.Int("clients", len(result.Accounts)))
	return nil
}
