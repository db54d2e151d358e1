package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment keys that override the YAML file.
const (
	EnvStatementDescription = "HIBISCUS_STATEMENT_DESCRIPTION"
	EnvValidateDupsTrxID    = "HIBISCUS_VALIDATE_DUPS_TRXID"
	EnvValidateChecksum     = "HIBISCUS_VALIDATE_CHECKSUM"
	EnvForceChecksum        = "HIBISCUS_FORCE_CHECKSUM"
	EnvDelimiter            = "HIBISCUS_CSV_DELIMITER"
	EnvSalesInvoiceRegex    = "SALES_INVOICE_MATCH_REGEX"
	EnvDateRangeMatcher     = "DATE_RANGE_MATCHER"
	EnvMatcher              = "HIBISCUS_MATCHER"
	EnvLanguage             = "HIBISCUS_LANGUAGE"
	EnvDatabase             = "HIBISCUS_DB"
	EnvLogLevel             = "LOG_LEVEL"
	EnvRunLog               = "HIBISCUS_RUN_LOG"
)

// DefaultStatementDescription is written into every staged record unless configured.
const DefaultStatementDescription = "Uploaded via Hibiscus loader"

// Config represents the top-level hibiscus.yaml configuration.
type Config struct {
	Hibiscus HibiscusConfig `yaml:"hibiscus"`
	Matching MatchingConfig `yaml:"matching"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Language string         `yaml:"language"`
}

// HibiscusConfig controls how export files are loaded.
type HibiscusConfig struct {
	StatementDescription string `yaml:"statement_description"`
	ValidateDupsTrxID    bool   `yaml:"validate_dups_trxid"`
	ValidateChecksum     bool   `yaml:"validate_checksum"`
	ForceChecksum        bool   `yaml:"force_checksum"`
	Delimiter            string `yaml:"delimiter,omitempty"` // empty = detect from header
}

// MatchingConfig controls statement line matching.
type MatchingConfig struct {
	SalesInvoiceMatchRegex string `yaml:"sales_invoice_match_regex"` // comma-separated
	DateRangeMatcher       int    `yaml:"date_range_matcher"`        // days
	Matcher                string `yaml:"matcher"`                   // comma-separated, tried in order
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	RunLog string `yaml:"run_log"` // CSV of pipeline step outcomes; empty disables
}

// Load reads a hibiscus.yaml file from disk. Fields missing from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with the documented defaults.
func Default() *Config {
	return &Config{
		Hibiscus: HibiscusConfig{
			StatementDescription: DefaultStatementDescription,
			ValidateDupsTrxID:    true,
		},
		Matching: MatchingConfig{
			Matcher: "invoice-in-memo",
		},
		Database: DatabaseConfig{Path: "hibiscus.db"},
		Log:      LogConfig{Level: "info", RunLog: "logs/run-log.csv"},
		Language: "en",
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the
// process environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with values found by lookup, usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str(EnvStatementDescription, &c.Hibiscus.StatementDescription)
	str(EnvDelimiter, &c.Hibiscus.Delimiter)
	str(EnvSalesInvoiceRegex, &c.Matching.SalesInvoiceMatchRegex)
	str(EnvMatcher, &c.Matching.Matcher)
	str(EnvLanguage, &c.Language)
	str(EnvDatabase, &c.Database.Path)
	str(EnvLogLevel, &c.Log.Level)
	str(EnvRunLog, &c.Log.RunLog)

	if err := boolean(EnvValidateDupsTrxID, &c.Hibiscus.ValidateDupsTrxID); err != nil {
		return err
	}
	if err := boolean(EnvValidateChecksum, &c.Hibiscus.ValidateChecksum); err != nil {
		return err
	}
	if err := boolean(EnvForceChecksum, &c.Hibiscus.ForceChecksum); err != nil {
		return err
	}

	if v, ok := lookup(EnvDateRangeMatcher); ok {
		days, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDateRangeMatcher, err)
		}
		c.Matching.DateRangeMatcher = days
	}
	return nil
}

// parseBool accepts the Y/N flags used by ERP settings besides strconv forms.
func parseBool(v string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "Y", "YES":
		return true, nil
	case "N", "NO":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(v))
}

// InvoicePatterns splits the comma-separated regex list, dropping blanks.
func (m MatchingConfig) InvoicePatterns() []string {
	var patterns []string
	for _, p := range strings.Split(m.SalesInvoiceMatchRegex, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// MatcherNames splits the comma-separated matcher list, dropping blanks.
func (m MatchingConfig) MatcherNames() []string {
	var names []string
	for _, n := range strings.Split(m.Matcher, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// Validate checks values that cannot be fixed up silently.
func (c *Config) Validate() error {
	if c.Matching.DateRangeMatcher < 0 {
		return fmt.Errorf("date_range_matcher must not be negative, got %d", c.Matching.DateRangeMatcher)
	}
	for _, p := range c.Matching.InvoicePatterns() {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("sales_invoice_match_regex %q: %w", p, err)
		}
		if re.NumSubexp() != 1 {
			return fmt.Errorf("sales_invoice_match_regex %q: want exactly one capture group, got %d", p, re.NumSubexp())
		}
	}
	if d := c.Hibiscus.Delimiter; d != "" && len([]rune(d)) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", d)
	}
	return nil
}
