// =============================================================================
// Bursar - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for bursar, including:
//   - Input file checks
//   - Output file naming with placeholders
//   - Reject log generation (rows dropped before reaching the ledger)
//
// =============================================================================

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotRegularFile is returned by CheckInputFile for directories and other
// non-regular paths.
var ErrNotRegularFile = errors.New("not a regular file")

// =============================================================================
// INPUT FILES
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// CheckInputFile verifies that path names a readable regular file.
func CheckInputFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file path does not exist: %s: %w", path, err)
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", path, ErrNotRegularFile)
	}

	return nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName expands placeholders in format.
//
// PLACEHOLDERS:
//
//	{uuid}      - A random UUID
//	{timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//	{date}      - Current date (YYYYMMDD)
//	{original}  - Input file name without extension
//	{key}       - Any key present in params
//
// EXAMPLE:
//
//	format: "reports/{original}_{timestamp}.csv"
//	params: {"original": "january"}
//	output: "reports/january_20240115_143022.csv"
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
	}

	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	return result
}

// BaseNameWithoutExt returns the file name of path without its extension.
func BaseNameWithoutExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CreateFile creates path, making parent directories as needed.
func CreateFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return file, nil
}

// =============================================================================
// REJECT LOG GENERATION
// =============================================================================

// RejectLogEntry is one input row that was dropped before reaching the ledger.
type RejectLogEntry struct {
	RowNumber    int
	ErrorMessage string

	// Fields holds the raw row, keyed by column name.
	Fields map[string]string
}

// RejectLogHeader describes the run a reject log belongs to.
type RejectLogHeader struct {
	RunID     string
	InputFile string
	Generated time.Time
}

// WriteRejectLog writes entries to the file at path. Nothing is written when
// entries is empty.
func WriteRejectLog(path string, header RejectLogHeader, entries []RejectLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	file, err := CreateFile(path)
	if err != nil {
		return err
	}

	if err := WriteRejectLogTo(file, header, entries); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}

// WriteRejectLogTo writes entries to w.
func WriteRejectLogTo(w io.Writer, header RejectLogHeader, entries []RejectLogEntry) error {
	writer := bufio.NewWriter(w)

	fmt.Fprintf(writer, "Bursar - Rejected Rows\n"+
		"Run:            %s\n"+
		"Input:          %s\n"+
		"Generated:      %s\n"+
		"Total Rejected: %d\n"+
		"================================================================================\n\n",
		header.RunID,
		header.InputFile,
		header.Generated.Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Reject #%d\n", i+1)
		if entry.RowNumber > 0 {
			fmt.Fprintf(writer, "  Row Number:     %d\n", entry.RowNumber)
		}
		fmt.Fprintf(writer, "  Message:        %s\n", entry.ErrorMessage)
		for _, key := range []string{"type", "client", "tx", "amount"} {
			if value, ok := entry.Fields[key]; ok {
				fmt.Fprintf(writer, "  %-15s %s\n", key+":", value)
			}
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Reject Log\n")

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush reject log: %w", err)
	}

	return nil
}
