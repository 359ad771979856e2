// Package config provides the configuration of the csvsql command.
package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"
)

// Config represents the command configuration.
type Config struct {
	// Input settings
	Input InputConfig `yaml:"input" json:"input"`

	// Query settings
	Query QueryConfig `yaml:"query" json:"query"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Database is the engine file. Empty keeps the database in memory.
	Database string `yaml:"database" json:"database"`
	// RawID is the surrogate key column prepended to every table.
	RawID string `yaml:"raw_id" json:"raw_id"`

	// Logging
	LogLevel string `yaml:"log_level" json:"log_level"`
	LogFile  string `yaml:"log_file" json:"log_file"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// InputConfig describes how sources are read.
type InputConfig struct {
	Files             []string `yaml:"files" json:"files"`
	Delimiter         string   `yaml:"delimiter" json:"delimiter"`
	NoHeader          bool     `yaml:"no_header" json:"no_header"`
	Flexible          bool     `yaml:"flexible" json:"flexible"`
	Trim              bool     `yaml:"trim" json:"trim"`
	Comment           string   `yaml:"comment" json:"comment"`
	LazyQuotes        bool     `yaml:"lazy_quotes" json:"lazy_quotes"`
	AllowLeadingZeros bool     `yaml:"allow_leading_zeros" json:"allow_leading_zeros"`
	Encoding          string   `yaml:"encoding" json:"encoding"`
}

// QueryConfig holds the statements of batch mode.
type QueryConfig struct {
	Statements string `yaml:"statements" json:"statements"`
	SourceFile string `yaml:"source_file" json:"source_file"`
}

// OutputConfig describes how results are written.
type OutputConfig struct {
	File          string `yaml:"file" json:"file"`
	Delimiter     string `yaml:"delimiter" json:"delimiter"`
	QuoteStyle    string `yaml:"quote_style" json:"quote_style"`
	WithoutHeader bool   `yaml:"without_header" json:"without_header"`
	Encoding      string `yaml:"encoding" json:"encoding"`
	Format        string `yaml:"format" json:"format"`
	Compression   string `yaml:"compression" json:"compression"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Delimiter: ",",
		},
		Output: OutputConfig{
			Delimiter:   ",",
			QuoteStyle:  "necessary",
			Format:      "csv",
			Compression: "none",
		},
		RawID:    "_raw_id",
		LogLevel: "info",
		Metrics: MetricsConfig{
			Address: ":9090",
		},
	}
}

// Load builds the configuration from v. When the key "config" names a file,
// it is read first; flags and environment variables bound to v still win.
func Load(v *viper.Viper) (*Config, error) {
	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Input: InputConfig{
			Files:             v.GetStringSlice("in-file"),
			Delimiter:         v.GetString("in-delimiter"),
			NoHeader:          v.GetBool("in-no-header"),
			Flexible:          v.GetBool("in-flexible"),
			Trim:              v.GetBool("in-trim"),
			Comment:           v.GetString("in-comment"),
			LazyQuotes:        v.GetBool("in-lazy-quotes"),
			AllowLeadingZeros: v.GetBool("in-allow-leading-zeros"),
			Encoding:          v.GetString("in-encoding"),
		},
		Query: QueryConfig{
			Statements: v.GetString("query"),
			SourceFile: v.GetString("source"),
		},
		Output: OutputConfig{
			File:          v.GetString("out-file"),
			Delimiter:     v.GetString("out-delimiter"),
			QuoteStyle:    v.GetString("out-quote-style"),
			WithoutHeader: v.GetBool("out-without-header"),
			Encoding:      v.GetString("out-encoding"),
			Format:        v.GetString("out-format"),
			Compression:   v.GetString("out-compression"),
		},
		Database: v.GetString("out-database"),
		RawID:    v.GetString("raw-id"),
		LogLevel: v.GetString("log-level"),
		LogFile:  v.GetString("out-log"),
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics"),
			Address: v.GetString("metrics-address"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate fills defaults and rejects inconsistent settings.
func (c *Config) Validate() error {
	defaults := DefaultConfig()

	if c.Input.Delimiter == "" {
		c.Input.Delimiter = defaults.Input.Delimiter
	}
	if c.Output.Delimiter == "" {
		c.Output.Delimiter = defaults.Output.Delimiter
	}
	if c.Output.QuoteStyle == "" {
		c.Output.QuoteStyle = defaults.Output.QuoteStyle
	}
	if c.Output.Format == "" {
		c.Output.Format = defaults.Output.Format
	}
	if c.Output.Compression == "" {
		c.Output.Compression = defaults.Output.Compression
	}
	if c.RawID == "" {
		c.RawID = defaults.RawID
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = defaults.Metrics.Address
	}

	if utf8.RuneCountInString(c.Input.Delimiter) != 1 {
		return fmt.Errorf("input delimiter must be a single character: %q", c.Input.Delimiter)
	}
	if utf8.RuneCountInString(c.Output.Delimiter) != 1 {
		return fmt.Errorf("output delimiter must be a single character: %q", c.Output.Delimiter)
	}
	if utf8.RuneCountInString(c.Input.Comment) > 1 {
		return fmt.Errorf("comment must be a single character: %q", c.Input.Comment)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %q", c.LogLevel)
	}

	if c.Query.Statements != "" && c.Query.SourceFile != "" {
		return errors.New("--query and --source cannot be used together")
	}
	return nil
}

// InputDelimiter returns the input field delimiter.
func (c *Config) InputDelimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.Input.Delimiter)
	return r
}

// OutputDelimiter returns the output field delimiter.
func (c *Config) OutputDelimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.Output.Delimiter)
	return r
}

// CommentChar returns the comment character, or zero when comments are disabled.
func (c *Config) CommentChar() rune {
	if c.Input.Comment == "" {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(c.Input.Comment)
	return r
}

// HasStatements reports whether batch mode was requested.
func (c *Config) HasStatements() bool {
	return c.Query.Statements != "" || c.Query.SourceFile != ""
}
