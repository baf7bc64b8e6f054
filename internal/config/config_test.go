package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultDecode(t *testing.T) {
	d := DefaultDecode()
	if !d.CaseSensitiveCodes {
		t.Error("codes should be case-sensitive by default")
	}
	if d.SampleLimitPerKind != 50 {
		t.Errorf("SampleLimitPerKind = %d, want 50", d.SampleLimitPerKind)
	}
	if d.MonthlyFamilyPattern != "<base><MM>" {
		t.Errorf("MonthlyFamilyPattern = %q", d.MonthlyFamilyPattern)
	}
	if len(d.NullTokens) != 1 || d.NullTokens[0] != "" {
		t.Errorf("NullTokens = %q", d.NullTokens)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFile_Valid(t *testing.T) {
	path := writeConfig(t, `
case_sensitive_codes: false
case_insensitive_fields: [v_dod_sw]
sample_limit_per_kind: 5
monthly_family_pattern: "<base>_<MM>"
null_tokens: ["", "NA"]
trim_values: false
`)
	c := New()
	if err := c.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	d := c.Decode
	if d.CaseSensitiveCodes {
		t.Error("CaseSensitiveCodes should be false")
	}
	if len(d.CaseInsensitiveFields) != 1 || d.CaseInsensitiveFields[0] != "v_dod_sw" {
		t.Errorf("CaseInsensitiveFields = %v", d.CaseInsensitiveFields)
	}
	if d.SampleLimitPerKind != 5 {
		t.Errorf("SampleLimitPerKind = %d", d.SampleLimitPerKind)
	}
	if d.MonthlyFamilyPattern != "<base>_<MM>" {
		t.Errorf("MonthlyFamilyPattern = %q", d.MonthlyFamilyPattern)
	}
	if len(d.NullTokens) != 2 || d.NullTokens[1] != "NA" {
		t.Errorf("NullTokens = %q", d.NullTokens)
	}
	if d.TrimValues {
		t.Error("TrimValues should be false")
	}
}

func TestLoadFromFile_PartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "sample_limit_per_kind: 7\n")
	c := New()
	if err := c.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if c.Decode.SampleLimitPerKind != 7 {
		t.Errorf("SampleLimitPerKind = %d", c.Decode.SampleLimitPerKind)
	}
	if !c.Decode.CaseSensitiveCodes || !c.Decode.TrimValues {
		t.Error("unset keys should keep their defaults")
	}
}

func TestLoadFromFile_ExplicitEmptyNullTokens(t *testing.T) {
	path := writeConfig(t, "null_tokens: []\n")
	c := New()
	if err := c.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if len(c.Decode.NullTokens) != 0 {
		t.Errorf("NullTokens = %q, want none", c.Decode.NullTokens)
	}
}

func TestLoadFromFile_EmptyFile(t *testing.T) {
	path := writeConfig(t, "")
	c := New()
	if err := c.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if c.Decode.SampleLimitPerKind != 50 {
		t.Errorf("SampleLimitPerKind = %d", c.Decode.SampleLimitPerKind)
	}
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown key": "code_types: [CPT]\n",
		"bad limit":   "sample_limit_per_kind: 0\n",
		"bad pattern": "monthly_family_pattern: \"<base>\"\n",
		"not yaml":    "sample_limit_per_kind: [\n",
		"wrong type":  "trim_values: maybe\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			c := New()
			if err := c.LoadFromFile(writeConfig(t, body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	c := New()
	if err := c.LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOptions(t *testing.T) {
	d := DefaultDecode()
	d.CaseInsensitiveFields = []string{"v_dod_sw"}
	opts, err := d.LoadOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Case.Fold {
		t.Error("global fold should be off")
	}
	if !opts.Case.FoldFields["v_dod_sw"] {
		t.Error("v_dod_sw should fold case")
	}

	d.CaseSensitiveCodes = false
	opts, _ = d.LoadOptions()
	if !opts.Case.Fold {
		t.Error("global fold should be on")
	}
}

func TestParseRequire(t *testing.T) {
	got, err := ParseRequire([]string{"buyin=3,C", " hmoind = 0 "})
	if err != nil {
		t.Fatal(err)
	}
	if len(got["buyin"]) != 2 || got["buyin"][0] != "3" || got["buyin"][1] != "C" {
		t.Errorf("buyin = %v", got["buyin"])
	}
	if len(got["hmoind"]) != 1 || got["hmoind"][0] != "0" {
		t.Errorf("hmoind = %v", got["hmoind"])
	}

	for _, bad := range []string{"buyin", "=3", "buyin=", "buyin= , "} {
		if _, err := ParseRequire([]string{bad}); err == nil {
			t.Errorf("ParseRequire(%q) should fail", bad)
		}
	}
}

func TestValidate(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.csv")
	os.WriteFile(in, []byte("sex\n1\n"), 0644)

	c := New()
	c.Dictionary = "builtin:bsfab"
	c.Inputs = []string{in, "s3://cms/part.csv"}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	c.DSN = ""
	if err := c.ValidateWithDSN(); err == nil {
		t.Error("ValidateWithDSN should require a DSN")
	}

	c.Inputs = []string{"/nonexistent.csv"}
	if err := c.Validate(); err == nil {
		t.Error("expected error for missing input")
	}

	c.Inputs = []string{in}
	c.Dictionary = ""
	if err := c.Validate(); err == nil {
		t.Error("expected error without --dict")
	}
}

func TestLoadEnvFile(t *testing.T) {
	// Setenv restores the variables after the test; Unsetenv makes the file's value apply.
	t.Setenv("CODEBOOK_DB_URL", "")
	os.Unsetenv("CODEBOOK_DB_URL")
	t.Setenv("AWS_REGION", "us-west-2")
	path := filepath.Join(t.TempDir(), ".env")
	body := "CODEBOOK_DB_URL=postgres://localhost/codebook\nAWS_REGION=eu-central-1\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	c := New()
	loaded, err := c.LoadEnvFile(path)
	if err != nil || !loaded {
		t.Fatalf("LoadEnvFile = %v, %v", loaded, err)
	}
	if c.DSN != "postgres://localhost/codebook" {
		t.Errorf("DSN = %q", c.DSN)
	}
	if c.Region != "us-west-2" {
		t.Errorf("Region = %q, variables already set must win", c.Region)
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	c := New()
	c.DSN = "postgres://flag"
	loaded, err := c.LoadEnvFile(filepath.Join(t.TempDir(), ".env"))
	if err != nil || loaded {
		t.Fatalf("LoadEnvFile = %v, %v", loaded, err)
	}
	if c.DSN != "postgres://flag" {
		t.Errorf("DSN = %q, flag value must be kept", c.DSN)
	}
}
