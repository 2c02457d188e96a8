// =============================================================================
// Bursar - CSV Parser Module
// =============================================================================
//
// This module streams transaction rows out of a CSV file. The file is never
// loaded into memory as a whole: rows are read one at a time and handed to
// the caller, which keeps the original row order.
//
// EXPECTED FORMAT:
//
//   type,       client, tx, amount
//   deposit,         1,  1,    1.0
//   dispute,         1,  1,
//
// FEATURES:
//   - Header names are trimmed and lowercased; column order is free
//   - Leading whitespace in fields is trimmed
//   - Rows with fewer fields than the header are padded with ""
//   - Blank rows are skipped
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/bursar/internal/config"
)

// ErrNoHeader is returned when the input has no header row.
var ErrNoHeader = errors.New("csv input has no header row")

// utf8BOM is stripped from the first header cell.
const utf8BOM = "\ufeff"

// =============================================================================
// STREAMING PARSER
// =============================================================================

// StreamingParser reads a CSV file one row at a time.
//
// USAGE:
//
//	parser, err := csvparser.Open(filePath, cfg.Input)
//	if err != nil {
//	    return err
//	}
//	defer parser.Close()
//
//	for parser.Next() {
//	    row := parser.Row()
//	    // Process the row...
//	}
//
//	if err := parser.Err(); err != nil {
//	    return err
//	}
type StreamingParser struct {
	closer     io.Closer
	reader     *csv.Reader
	headers    []string
	currentRow map[string]string
	rowNumber  int
	err        error
}

// Open opens a CSV file and reads its header row.
func Open(filePath string, settings config.InputConfig) (*StreamingParser, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	parser, err := NewStreamingParser(file, settings)
	if err != nil {
		file.Close()
		return nil, err
	}

	parser.closer = file
	return parser, nil
}

// NewStreamingParser wraps r and reads its header row.
func NewStreamingParser(r io.Reader, settings config.InputConfig) (*StreamingParser, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	if err := configureReader(reader, settings); err != nil {
		return nil, err
	}

	parser := &StreamingParser{reader: reader}

	if err := parser.readHeaders(); err != nil {
		return nil, err
	}

	return parser, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.InputConfig) error {
	comma, err := settings.Comma()
	if err != nil {
		return err
	}
	reader.Comma = comma

	// Dispute, resolve and chargeback rows commonly omit the trailing amount
	// column, so rows may be shorter than the header.
	reader.FieldsPerRecord = -1

	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	return nil
}

// readHeaders reads and normalizes the header row.
func (p *StreamingParser) readHeaders() error {
	for {
		row, err := p.reader.Read()
		if err == io.EOF {
			return ErrNoHeader
		}
		if err != nil {
			return fmt.Errorf("error reading header row: %w", err)
		}
		p.rowNumber++

		if isRowEmpty(row) {
			continue
		}

		p.headers = cleanHeaders(row)
		return nil
	}
}

// cleanHeaders trims, lowercases and names empty header cells.
func cleanHeaders(row []string) []string {
	headers := make([]string, len(row))

	for i, header := range row {
		if i == 0 {
			header = strings.TrimPrefix(header, utf8BOM)
		}
		header = strings.ToLower(strings.TrimSpace(header))
		if header == "" {
			header = fmt.Sprintf("column_%d", i+1)
		}
		headers[i] = header
	}

	return headers
}

// Next advances to the next row. Returns false when there are no more rows
// or a read error occurred; check Err afterwards.
func (p *StreamingParser) Next() bool {
	if p.err != nil {
		return false
	}

	for {
		row, err := p.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			p.err = fmt.Errorf("error reading row %d: %w", p.rowNumber+1, err)
			return false
		}

		p.rowNumber++

		if isRowEmpty(row) {
			continue
		}

		p.currentRow = make(map[string]string, len(p.headers))
		for i, header := range p.headers {
			if i < len(row) {
				p.currentRow[header] = strings.TrimSpace(row[i])
			} else {
				p.currentRow[header] = ""
			}
		}

		return true
	}
}

// Row returns the current row keyed by header name.
func (p *StreamingParser) Row() map[string]string {
	return p.currentRow
}

// Headers returns the normalized header names.
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// RowNumber returns the 1-indexed record number of the current row, counting
// the header as record 1.
func (p *StreamingParser) RowNumber() int {
	return p.rowNumber
}

// Err returns any error that occurred during parsing.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close closes the underlying file, if the parser opened one.
func (p *StreamingParser) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
