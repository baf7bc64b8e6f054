package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gyeh/codebook/internal/dictionary"
)

// Config holds all runtime configuration for a cbdecode run.
type Config struct {
	Dictionary string   // path, s3:// URL or builtin:<name>
	Inputs     []string // record files or s3:// URLs, one shard each
	Output     string   // JSON Lines path, "-" for stdout, empty for none
	Report     string   // JSON report path or s3:// URL, empty for none
	DSN        string
	Region     string
	LogFormat  string // "text" or "json"
	LogLevel   string
	Workers    int
	Progress   bool
	BatchID    string

	// Require keeps only records whose monthly family holds one of the
	// listed codes in every applicable month, keyed by family name.
	Require       map[string][]string
	FailOnAnomaly bool

	Decode Decode
}

// Decode holds the resolution and sampling options. These are the keys of the
// YAML config file.
type Decode struct {
	CaseSensitiveCodes    bool     `yaml:"case_sensitive_codes"`
	CaseInsensitiveFields []string `yaml:"case_insensitive_fields"`
	SampleLimitPerKind    int      `yaml:"sample_limit_per_kind"`
	MonthlyFamilyPattern  string   `yaml:"monthly_family_pattern"`
	NullTokens            []string `yaml:"null_tokens"`
	TrimValues            bool     `yaml:"trim_values"`
}

// DefaultDecode returns the options used when no config file overrides them.
func DefaultDecode() Decode {
	return Decode{
		CaseSensitiveCodes:   true,
		SampleLimitPerKind:   50,
		MonthlyFamilyPattern: dictionary.DefaultPattern,
		NullTokens:           []string{""},
		TrimValues:           true,
	}
}

// yamlDecode is the on-disk YAML structure. Pointers tell absent keys from
// explicit zero values.
type yamlDecode struct {
	CaseSensitiveCodes    *bool     `yaml:"case_sensitive_codes"`
	CaseInsensitiveFields []string  `yaml:"case_insensitive_fields"`
	SampleLimitPerKind    *int      `yaml:"sample_limit_per_kind"`
	MonthlyFamilyPattern  *string   `yaml:"monthly_family_pattern"`
	NullTokens            *[]string `yaml:"null_tokens"`
	TrimValues            *bool     `yaml:"trim_values"`
}

// New returns a Config with default decode options and environment
// fallbacks applied.
func New() Config {
	return Config{
		DSN:       os.Getenv("CODEBOOK_DB_URL"),
		Region:    os.Getenv("AWS_REGION"),
		LogFormat: "text",
		LogLevel:  "info",
		Workers:   1,
		Decode:    DefaultDecode(),
	}
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment,
// leaving variables that are already set untouched, then fills DSN and Region
// from the environment where flags left them empty. A missing file is not an
// error; the return value reports whether it was read.
func (c *Config) LoadEnvFile(path string) (bool, error) {
	loaded := true
	if err := godotenv.Load(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("load env file: %w", err)
		}
		loaded = false
	}
	if c.DSN == "" {
		c.DSN = os.Getenv("CODEBOOK_DB_URL")
	}
	if c.Region == "" {
		c.Region = os.Getenv("AWS_REGION")
	}
	return loaded, nil
}

// LoadFromFile reads a YAML config file and merges the keys it sets into
// c.Decode.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var yc yamlDecode
	if err := dec.Decode(&yc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file: %w", err)
	}

	if yc.CaseSensitiveCodes != nil {
		c.Decode.CaseSensitiveCodes = *yc.CaseSensitiveCodes
	}
	if yc.CaseInsensitiveFields != nil {
		c.Decode.CaseInsensitiveFields = yc.CaseInsensitiveFields
	}
	if yc.SampleLimitPerKind != nil {
		c.Decode.SampleLimitPerKind = *yc.SampleLimitPerKind
	}
	if yc.MonthlyFamilyPattern != nil {
		c.Decode.MonthlyFamilyPattern = *yc.MonthlyFamilyPattern
	}
	if yc.NullTokens != nil {
		c.Decode.NullTokens = *yc.NullTokens
	}
	if yc.TrimValues != nil {
		c.Decode.TrimValues = *yc.TrimValues
	}
	return c.Decode.Validate()
}

// Validate checks the decode options.
func (d Decode) Validate() error {
	if d.SampleLimitPerKind < 1 {
		return fmt.Errorf("sample_limit_per_kind must be at least 1, got %d", d.SampleLimitPerKind)
	}
	if _, err := dictionary.ParseNamingPattern(d.MonthlyFamilyPattern); err != nil {
		return fmt.Errorf("monthly_family_pattern: %w", err)
	}
	return nil
}

// LoadOptions converts the decode options for the dictionary loader.
func (d Decode) LoadOptions() (dictionary.LoadOptions, error) {
	p, err := dictionary.ParseNamingPattern(d.MonthlyFamilyPattern)
	if err != nil {
		return dictionary.LoadOptions{}, fmt.Errorf("monthly_family_pattern: %w", err)
	}
	opts := dictionary.LoadOptions{
		Pattern: p,
		Case:    dictionary.CasePolicy{Fold: !d.CaseSensitiveCodes},
	}
	if len(d.CaseInsensitiveFields) > 0 {
		opts.Case.FoldFields = make(map[string]bool, len(d.CaseInsensitiveFields))
		for _, f := range d.CaseInsensitiveFields {
			opts.Case.FoldFields[f] = true
		}
	}
	return opts, nil
}

// ParseRequire parses FAMILY=CODE,CODE filter expressions.
func ParseRequire(exprs []string) (map[string][]string, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(exprs))
	for _, e := range exprs {
		fam, codes, ok := strings.Cut(e, "=")
		fam = strings.TrimSpace(fam)
		if !ok || fam == "" || strings.TrimSpace(codes) == "" {
			return nil, fmt.Errorf("--require %q: want FAMILY=CODE[,CODE...]", e)
		}
		for _, c := range strings.Split(codes, ",") {
			if c = strings.TrimSpace(c); c != "" {
				out[fam] = append(out[fam], c)
			}
		}
		if len(out[fam]) == 0 {
			return nil, fmt.Errorf("--require %q: no codes listed", e)
		}
	}
	return out, nil
}

// Validate checks required fields and returns an error if the config is invalid.
func (c *Config) Validate() error {
	if c.Dictionary == "" {
		return fmt.Errorf("--dict is required")
	}
	if len(c.Inputs) == 0 {
		return fmt.Errorf("at least one input file is required")
	}
	for _, in := range c.Inputs {
		if strings.HasPrefix(in, "s3://") {
			continue
		}
		if _, err := os.Stat(in); err != nil {
			return fmt.Errorf("input not accessible: %w", err)
		}
	}
	if c.Workers < 1 {
		return fmt.Errorf("--workers must be at least 1")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("--log-format must be text or json, got %q", c.LogFormat)
	}
	return c.Decode.Validate()
}

// ValidateWithDSN checks the config and that a database is configured.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DSN == "" {
		return fmt.Errorf("--dsn or CODEBOOK_DB_URL is required")
	}
	return nil
}
