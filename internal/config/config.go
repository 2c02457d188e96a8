// =============================================================================
// Bursar - Configuration Module
// =============================================================================
//
// This module loads the optional YAML configuration file. Every setting has a
// default, so bursar runs without any configuration file at all; command line
// flags override whatever the file sets.
//
// EXAMPLE (bursar.yaml):
//
//   logging:
//     level: info        # debug | info | warn | error
//     format: console    # console | json
//   input:
//     delimiter: ","     # also "tab", "pipe", ";"
//     sheet: ""          # xlsx sheet name, empty = first sheet
//   output:
//     format: csv        # csv | table | xlsx
//     precision: 4
//     sort_clients: true
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Output formats understood by the report package.
const (
	FormatCSV   = "csv"
	FormatTable = "table"
	FormatXLSX  = "xlsx"
)

// Log encodings.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// DefaultPrecision is the number of fractional digits rendered for amounts.
const DefaultPrecision = 4

// MaxPrecision is the largest accepted output.precision.
const MaxPrecision = 28

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the whole application configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
}

// LoggingConfig controls the diagnostic logger. Logs always go to stderr so
// stdout carries only the account table.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "console" or "json".
	// Default: "console"
	Format string `yaml:"format"`
}

// InputConfig controls how transaction files are read.
type InputConfig struct {
	// Delimiter separates CSV fields. Accepts a single character or one of
	// the names "tab", "pipe", "semicolon".
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Sheet names the worksheet read from .xlsx inputs.
	// Default: "" (first sheet)
	Sheet string `yaml:"sheet"`
}

// OutputConfig controls how the final account table is rendered.
type OutputConfig struct {
	// Format is "csv", "table" or "xlsx".
	// Default: "csv"
	Format string `yaml:"format"`

	// Precision is the number of fractional digits rendered for amounts.
	// Zero renders whole units.
	// Default: 4
	Precision *int32 `yaml:"precision"`

	// SortClients orders rows by ascending client id.
	// Default: true
	SortClients *bool `yaml:"sort_clients"`
}

// Sorted reports whether rows should be ordered by client id.
func (o OutputConfig) Sorted() bool {
	return o.SortClients == nil || *o.SortClients
}

// Scale returns the configured precision, or DefaultPrecision when unset.
func (o OutputConfig) Scale() int32 {
	if o.Precision == nil {
		return DefaultPrecision
	}
	return *o.Precision
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the configuration file at path. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration data, applies defaults and validates the
// result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatConsole
	}
	if cfg.Input.Delimiter == "" {
		cfg.Input.Delimiter = ","
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = FormatCSV
	}
	if cfg.Output.Precision == nil {
		precision := int32(DefaultPrecision)
		cfg.Output.Precision = &precision
	}
}

// Validate checks every enumerated setting.
func (c *Config) Validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if !slices.Contains([]string{"debug", "info", "warn", "warning", "error"}, c.Logging.Level) {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Logging.Level)
	}

	c.Logging.Format = strings.ToLower(c.Logging.Format)
	if c.Logging.Format != LogFormatConsole && c.Logging.Format != LogFormatJSON {
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Logging.Format)
	}

	if _, err := c.Input.Comma(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	c.Output.Format = strings.ToLower(c.Output.Format)
	if !slices.Contains([]string{FormatCSV, FormatTable, FormatXLSX}, c.Output.Format) {
		return fmt.Errorf("%w: unknown output format %q", ErrInvalidConfig, c.Output.Format)
	}

	if scale := c.Output.Scale(); scale < 0 || scale > MaxPrecision {
		return fmt.Errorf("%w: precision must be between 0 and %d, got %d", ErrInvalidConfig, MaxPrecision, scale)
	}

	return nil
}

// Comma translates the configured delimiter into the rune used by the CSV
// reader.
func (i InputConfig) Comma() (rune, error) {
	switch i.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		return '\t', nil
	case "pipe", "PIPE":
		return '|', nil
	case "semicolon":
		return ';', nil
	}

	runes := []rune(i.Delimiter)
	if len(runes) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", i.Delimiter)
	}
	if runes[0] == '"' || runes[0] == '\r' || runes[0] == '\n' {
		return 0, fmt.Errorf("delimiter %q is not allowed", i.Delimiter)
	}
	return runes[0], nil
}
