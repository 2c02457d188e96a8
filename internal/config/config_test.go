package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, LogFormatConsole, cfg.Logging.Format)
	assert.Equal(t, ",", cfg.Input.Delimiter)
	assert.Equal(t, FormatCSV, cfg.Output.Format)
	assert.Equal(t, int32(DefaultPrecision), cfg.Output.Scale())
	assert.True(t, cfg.Output.Sorted())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bursar.yaml")
	data := `
logging:
  level: DEBUG
  format: json
input:
  delimiter: pipe
  sheet: Ledger
output:
  format: table
  precision: 2
  sort_clients: false
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.Equal(t, "Ledger", cfg.Input.Sheet)
	assert.Equal(t, FormatTable, cfg.Output.Format)
	assert.Equal(t, int32(2), cfg.Output.Scale())
	assert.False(t, cfg.Output.Sorted())

	comma, err := cfg.Input.Comma()
	require.NoError(t, err)
	assert.Equal(t, '|', comma)
}

func TestParseKeepsZeroPrecision(t *testing.T) {
	cfg, err := Parse([]byte("output:\n  precision: 0\n"))
	require.NoError(t, err)

	require.NotNil(t, cfg.Output.Precision)
	assert.Equal(t, int32(0), cfg.Output.Scale())
}

func TestOutputScaleDefaultsWhenUnset(t *testing.T) {
	assert.Equal(t, int32(DefaultPrecision), OutputConfig{}.Scale())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseRejectsInvalidSettings(t *testing.T) {
	tests := map[string]string{
		"log level":     "logging: {level: loud}",
		"log format":    "logging: {format: xml}",
		"delimiter":     "input: {delimiter: ',,'}",
		"quote":         "input: {delimiter: '\"'}",
		"output format": "output: {format: xml}",
		"precision":     "output: {precision: -1}",
		"precision max": "output: {precision: 29}",
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("logging: [unterminated"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestComma(t *testing.T) {
	tests := map[string]rune{
		",":         ',',
		";":         ';',
		"tab":       '\t',
		"\\t":       '\t',
		"semicolon": ';',
		"pipe":      '|',
	}

	for delimiter, want := range tests {
		got, err := InputConfig{Delimiter: delimiter}.Comma()
		require.NoError(t, err, delimiter)
		assert.Equal(t, want, got, delimiter)
	}
}
