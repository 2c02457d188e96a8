// =============================================================================
// Bursar - XLSX Parser Module
// =============================================================================
//
// This module streams transaction rows out of an Excel workbook. The sheet
// layout mirrors the CSV format: a header row naming the columns followed by
// one transaction per row.
//
//   | A          | B      | C  | D      |
//   |------------|--------|----|--------|
//   | type       | client | tx | amount |
//   | deposit    | 1      | 1  | 1.5    |
//   | dispute    | 1      | 1  |        |
//
// The sheet is read with excelize's row iterator, so large workbooks are not
// materialized cell-by-cell up front.
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ginjaninja78/bursar/internal/config"
	"github.com/xuri/excelize/v2"
)

// ErrNoHeader is returned when the sheet has no header row.
var ErrNoHeader = errors.New("worksheet has no header row")

// StreamingParser reads one worksheet row by row. It exposes the same
// Next/Row/Err/Close cycle as csvparser.StreamingParser.
type StreamingParser struct {
	file       *excelize.File
	rows       *excelize.Rows
	sheet      string
	headers    []string
	currentRow map[string]string
	rowNumber  int
	err        error
}

// Open opens the workbook at filePath and reads the header row of the
// configured sheet, or of the first sheet when none is configured.
func Open(filePath string, settings config.InputConfig) (*StreamingParser, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	parser, err := newStreamingParser(f, settings.Sheet)
	if err != nil {
		f.Close()
		return nil, err
	}

	return parser, nil
}

func newStreamingParser(f *excelize.File, sheet string) (*StreamingParser, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook contains no sheets")
		}
		sheet = sheets[0]
	}

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found in workbook", sheet)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	parser := &StreamingParser{
		file:  f,
		rows:  rows,
		sheet: sheet,
	}

	if err := parser.readHeaders(); err != nil {
		rows.Close()
		return nil, err
	}

	return parser, nil
}

// readHeaders reads the first non-empty row as the header.
func (p *StreamingParser) readHeaders() error {
	for p.rows.Next() {
		p.rowNumber++

		cols, err := p.rows.Columns()
		if err != nil {
			return fmt.Errorf("error reading header row: %w", err)
		}
		if isRowEmpty(cols) {
			continue
		}

		p.headers = make([]string, len(cols))
		for i, header := range cols {
			header = strings.ToLower(strings.TrimSpace(header))
			if header == "" {
				header = fmt.Sprintf("column_%d", i+1)
			}
			p.headers[i] = header
		}
		return nil
	}

	if err := p.rows.Error(); err != nil {
		return fmt.Errorf("error reading header row: %w", err)
	}
	return ErrNoHeader
}

// Next advances to the next non-empty row.
func (p *StreamingParser) Next() bool {
	if p.err != nil {
		return false
	}

	for p.rows.Next() {
		p.rowNumber++

		cols, err := p.rows.Columns()
		if err != nil {
			p.err = fmt.Errorf("error reading row %d: %w", p.rowNumber, err)
			return false
		}
		if isRowEmpty(cols) {
			continue
		}

		// excelize drops trailing empty cells, so short rows are normal.
		p.currentRow = make(map[string]string, len(p.headers))
		for i, header := range p.headers {
			if i < len(cols) {
				p.currentRow[header] = strings.TrimSpace(cols[i])
			} else {
				p.currentRow[header] = ""
			}
		}
		return true
	}

	if err := p.rows.Error(); err != nil {
		p.err = fmt.Errorf("error reading sheet %q: %w", p.sheet, err)
	}
	return false
}

// Row returns the current row keyed by header name.
func (p *StreamingParser) Row() map[string]string {
	return p.currentRow
}

// Headers returns the normalized header names.
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// RowNumber returns the 1-indexed worksheet row of the current row.
func (p *StreamingParser) RowNumber() int {
	return p.rowNumber
}

// Sheet returns the name of the worksheet being read.
func (p *StreamingParser) Sheet() string {
	return p.sheet
}

// Err returns any error that occurred during parsing.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close releases the row iterator and the workbook.
func (p *StreamingParser) Close() error {
	rowsErr := p.rows.Close()
	fileErr := p.file.Close()
	return errors.Join(rowsErr, fileErr)
}

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
