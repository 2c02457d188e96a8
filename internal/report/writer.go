// =============================================================================
// Bursar - Report Writer Module
// =============================================================================
//
// This module renders the final account snapshot. All formats share the same
// columns and the same cell text:
//
//   client,available,held,total,locked
//   1,1.5000,0.0000,1.5000,false
//   2,2.0000,0.0000,2.0000,false
//
// FORMATS:
//   csv    - RFC 4180 CSV (default)
//   table  - bordered ASCII table for terminals
//   xlsx   - Excel workbook with a single "accounts" sheet
//
// ROUNDING:
//   Balances are kept exact by the ledger. Rounding to the configured number
//   of fractional digits (banker's rounding) happens here and nowhere else.
//
// =============================================================================

package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ginjaninja78/bursar/internal/config"
	"github.com/ginjaninja78/bursar/internal/ledger"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet written by the xlsx format.
const SheetName = "accounts"

// Header is the column header shared by every format.
var Header = []string{"client", "available", "held", "total", "locked"}

// Options controls rendering.
type Options struct {
	// Format is one of config.FormatCSV, config.FormatTable, config.FormatXLSX.
	Format string

	// Precision is the number of fractional digits rendered for amounts.
	Precision int32
}

// DefaultOptions renders CSV with four fractional digits.
func DefaultOptions() Options {
	return Options{Format: config.FormatCSV, Precision: config.DefaultPrecision}
}

// OptionsFromConfig builds Options from the output configuration.
func OptionsFromConfig(cfg config.OutputConfig) Options {
	return Options{Format: cfg.Format, Precision: cfg.Scale()}
}

// =============================================================================
// WRITING
// =============================================================================

// Write renders accounts to w in the requested format. Rows are written in
// the order given.
func Write(w io.Writer, accounts []ledger.Account, opts Options) error {
	rows := Rows(accounts, opts.Precision)

	switch opts.Format {
	case config.FormatCSV, "":
		return writeCSV(w, rows)
	case config.FormatTable:
		return writeTable(w, rows)
	case config.FormatXLSX:
		return writeXLSX(w, accounts, rows)
	default:
		return fmt.Errorf("unknown output format %q", opts.Format)
	}
}

func writeCSV(w io.Writer, rows [][]string) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write accounts: %w", err)
	}

	return nil
}

func writeTable(w io.Writer, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader(Header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.AppendBulk(rows)
	table.Render()

	return nil
}

// writeXLSX stores client ids as numbers, amounts as text (so no precision is
// lost to spreadsheet floats) and the lock flag as a boolean.
func writeXLSX(w io.Writer, accounts []ledger.Account, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, account := range accounts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		values := []any{int(account.ClientID), rows[i][1], rows[i][2], rows[i][3], account.Locked}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write client %d: %w", account.ClientID, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	return nil
}

// =============================================================================
// FORMATTING
// =============================================================================

// Rows renders accounts as text cells in Header order.
func Rows(accounts []ledger.Account, precision int32) [][]string {
	rows := make([][]string, len(accounts))
	for i, account := range accounts {
		rows[i] = Row(account, precision)
	}
	return rows
}

// Row renders one account as text cells in Header order.
func Row(account ledger.Account, precision int32) []string {
	return []string{
		strconv.FormatUint(uint64(account.ClientID), 10),
		FormatAmount(account.Available, precision),
		FormatAmount(account.Held, precision),
		FormatAmount(account.Total(), precision),
		strconv.FormatBool(account.Locked),
	}
}

// FormatAmount rounds half to even and always prints exactly precision
// fractional digits.
func FormatAmount(d decimal.Decimal, precision int32) string {
	return d.RoundBank(precision).StringFixed(precision)
}
