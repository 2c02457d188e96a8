// =============================================================================
// Bursar - Processor Module
// =============================================================================
//
// This module runs one ingestion: it opens the input file, decodes and
// validates every row, feeds the valid records to a fresh ledger engine in
// file order and collects the outcome.
//
// PROCESSING PIPELINE:
//   1. Open the row source (CSV or XLSX, chosen by file extension)
//   2. Resolve the header columns
//   3. For each row, in order:
//      a. Decode and validate it
//      b. Drop it with a diagnostic if it is malformed
//      c. Otherwise apply it to the ledger engine
//   4. Snapshot the final accounts
//
// Rows are pulled lazily, one at a time; the file is never held in memory.
//
// =============================================================================

package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ginjaninja78/bursar/internal/config"
	"github.com/ginjaninja78/bursar/internal/csvparser"
	"github.com/ginjaninja78/bursar/internal/ledger"
	"github.com/ginjaninja78/bursar/internal/logging"
	"github.com/ginjaninja78/bursar/internal/report"
	"github.com/ginjaninja78/bursar/internal/validation"
	"github.com/ginjaninja78/bursar/internal/xlsxparser"
	"github.com/ginjaninja78/bursar/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// ROW SOURCES
// =============================================================================

// RowSource yields input rows keyed by header name. Both
// csvparser.StreamingParser and xlsxparser.StreamingParser implement it.
type RowSource interface {
	Next() bool
	Row() map[string]string
	Headers() []string
	RowNumber() int
	Err() error
	Close() error
}

// OpenSource opens path with the parser matching its extension. Anything
// that is not .xlsx is read as CSV.
func OpenSource(path string, cfg config.InputConfig) (RowSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		src, err := xlsxparser.Open(path, cfg)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		src, err := csvparser.Open(path, cfg)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result is the outcome of one run.
type Result struct {
	// RunID identifies the run in logs and reject logs.
	RunID string

	// InputFile is the path (or name) of the processed input.
	InputFile string

	// Accounts is the final state of every client.
	Accounts []ledger.Account

	// Rejected lists the rows dropped before reaching the ledger.
	Rejected []*validation.RowError

	Stats ProcessingStats
}

// ProcessingStats contains statistics about the run.
type ProcessingStats struct {
	// RowsRead counts non-empty data rows.
	RowsRead int

	// RowsRejected counts malformed rows.
	RowsRejected int

	// Ledger holds the engine's applied/discarded counters.
	Ledger ledger.Stats

	// Clients is the number of accounts in the final state.
	Clients int

	// ProcessingTime is the wall time of the run.
	ProcessingTime time.Duration
}

// =============================================================================
// PROCESSOR
// =============================================================================

// Processor runs ingestions with a fixed configuration.
type Processor struct {
	cfg    *config.Config
	logger *zap.Logger
}

// New creates a Processor. A nil cfg means defaults; a nil logger discards
// diagnostics.
func New(cfg *config.Config, logger *zap.Logger) *Processor {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Processor{cfg: cfg, logger: logger}
}

// Run processes the file at inputPath.
func (p *Processor) Run(ctx context.Context, inputPath string) (*Result, error) {
	if err := utils.CheckInputFile(inputPath); err != nil {
		return nil, err
	}

	src, err := OpenSource(inputPath, p.cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", inputPath, err)
	}
	defer src.Close()

	return p.RunSource(ctx, src, inputPath)
}

// RunSource processes every row of src. Cancelling ctx stops ingestion
// between rows and returns ctx.Err().
func (p *Processor) RunSource(ctx context.Context, src RowSource, name string) (*Result, error) {
	startTime := time.Now()

	result := &Result{
		RunID:     uuid.NewString(),
		InputFile: name,
	}
	logger := p.logger.With(zap.String("run_id", result.RunID), zap.String("input", name))

	// =========================================================================
	// STEP 1: RESOLVE COLUMNS
	// =========================================================================

	validator, err := validation.NewValidator(src.Headers())
	if err != nil {
		return nil, fmt.Errorf("invalid header in %s: %w", name, err)
	}

	logger.Debug("processing input",
		zap.Strings("headers", src.Headers()),
		zap.Any("columns", validator.Columns()),
	)

	// =========================================================================
	// STEP 2: STREAM ROWS INTO THE ENGINE
	// =========================================================================

	engine := ledger.NewEngine(ledger.WithLogger(logger))
	engine.Consume(p.records(ctx, src, validator, result, logger))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := src.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	// =========================================================================
	// STEP 3: SNAPSHOT
	// =========================================================================

	if p.cfg.Output.Sorted() {
		result.Accounts = engine.SortedAccounts()
	} else {
		result.Accounts = slices.Collect(maps.Values(engine.Accounts()))
	}

	result.Stats.RowsRejected = len(result.Rejected)
	result.Stats.Ledger = engine.Stats()
	result.Stats.Clients = len(result.Accounts)
	result.Stats.ProcessingTime = time.Since(startTime)

	logger.Info("processing complete",
		zap.Int("rows", result.Stats.RowsRead),
		zap.Int("rejected", result.Stats.RowsRejected),
		zap.Int("applied", result.Stats.Ledger.Applied),
		zap.Int("discarded", result.Stats.Ledger.Discarded),
		zap.Int("clients", result.Stats.Clients),
		zap.Duration("elapsed", result.Stats.ProcessingTime),
	)

	return result, nil
}

// records adapts the row source into the ordered record sequence consumed by
// the engine. Malformed rows are logged, recorded in result and skipped.
func (p *Processor) records(ctx context.Context, src RowSource, validator *validation.Validator, result *Result, logger *zap.Logger) iter.Seq[ledger.Transaction] {
	return func(yield func(ledger.Transaction) bool) {
		for src.Next() {
			if ctx.Err() != nil {
				return
			}

			result.Stats.RowsRead++

			tx, err := validator.Decode(src.Row(), src.RowNumber())
			if err != nil {
				var rowErr *validation.RowError
				if errors.As(err, &rowErr) {
					result.Rejected = append(result.Rejected, rowErr)
				}
				logger.Error("could not parse transaction, will be skipped",
					zap.Int("row", src.RowNumber()),
					zap.Error(err),
				)
				continue
			}

			if !yield(tx) {
				return
			}
		}
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

// WriteReport renders the result's accounts to w using the output
// configuration.
func (p *Processor) WriteReport(w io.Writer, result *Result) error {
	return report.Write(w, result.Accounts, report.OptionsFromConfig(p.cfg.Output))
}

// WriteRejectLog writes the rejected rows of result to path. Nothing is
// written when no row was rejected.
func (p *Processor) WriteRejectLog(path string, result *Result) error {
	entries := make([]utils.RejectLogEntry, len(result.Rejected))
	for i, rowErr := range result.Rejected {
		entries[i] = utils.RejectLogEntry{
			RowNumber:    rowErr.RowNumber,
			ErrorMessage: rowErr.Error(),
			Fields:       rowErr.Raw,
		}
	}

	header := utils.RejectLogHeader{
		RunID:     result.RunID,
		InputFile: result.InputFile,
		Generated: time.Now(),
	}

	return utils.WriteRejectLog(path, header, entries)
}
