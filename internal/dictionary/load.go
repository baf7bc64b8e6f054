package dictionary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// CasePolicy decides which fields match codes case-insensitively. The zero
// value matches every field exactly.
type CasePolicy struct {
	Fold       bool            // fold case for every field
	FoldFields map[string]bool // fold case for these fields only
}

func (p CasePolicy) foldFor(key string) bool {
	return p.Fold || p.FoldFields[key]
}

// LoadOptions controls dictionary construction.
type LoadOptions struct {
	Pattern NamingPattern
	Case    CasePolicy
}

// sourceField is the on-disk shape of one field entry.
type sourceField struct {
	Name   *string      `json:"name"`
	Values sourceValues `json:"values"`
}

type sourceValue struct {
	code  string
	label string
}

// sourceValues keeps the value table in document order and records duplicate codes.
type sourceValues struct {
	entries    []sourceValue
	duplicates []string
}

func (v *sourceValues) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("values: expected object, got %v", tok)
	}
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		code, ok := tok.(string)
		if !ok {
			return fmt.Errorf("values: expected string key, got %T", tok)
		}
		var label string
		if err := dec.Decode(&label); err != nil {
			return fmt.Errorf("values[%q]: %w", code, err)
		}
		if seen[code] {
			v.duplicates = append(v.duplicates, code)
			continue
		}
		seen[code] = true
		v.entries = append(v.entries, sourceValue{code: code, label: label})
	}
	_, err = dec.Token()
	return err
}

// topLevel splits a document into its field entries. Keys seen more than
// once are returned in dupes, and only their first entry is kept.
func topLevel(data []byte) (map[string]json.RawMessage, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected an object of fields, got %v", tok)
	}

	entries := make(map[string]json.RawMessage)
	var dupes []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected string key, got %T", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", key, err)
		}
		if _, ok := entries[key]; ok {
			dupes = append(dupes, key)
			continue
		}
		entries[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, fmt.Errorf("unexpected data after the top-level object")
	}
	if len(entries) == 0 {
		return nil, nil, fmt.Errorf("dictionary defines no fields")
	}
	return entries, dupes, nil
}

// LoadFile reads a dictionary document from path.
func LoadFile(path string, opts LoadOptions) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()
	return Load(f, opts)
}

// Load reads a dictionary document and validates it. Any structural violation
// fails the whole load with a *MalformedError listing every violation.
func Load(r io.Reader, opts LoadOptions) (*Dictionary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return Parse(data, opts)
}

// Parse builds a Dictionary from an in-memory document.
func Parse(data []byte, opts LoadOptions) (*Dictionary, error) {
	entries, dupes, err := topLevel(data)
	if err != nil {
		return nil, &MalformedError{Violations: []Violation{{Rule: RuleSyntax, Detail: err.Error()}}}
	}

	var violations []Violation
	for _, key := range dupes {
		violations = append(violations, Violation{Field: key, Rule: RuleDuplicateField, Detail: "field key appears more than once"})
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make(map[string]*FieldDefinition, len(keys))
	for _, key := range keys {
		var sf sourceField
		if err := json.Unmarshal(entries[key], &sf); err != nil {
			violations = append(violations, Violation{Field: key, Rule: RuleSyntax, Detail: err.Error()})
			continue
		}
		def, vs := buildField(key, sf, opts.Case.foldFor(key))
		violations = append(violations, vs...)
		fields[key] = def
	}

	pattern := opts.Pattern.compiled()
	families := detectFamilies(keys, pattern)
	violations = append(violations, checkFamilies(fields, families)...)

	if len(violations) > 0 {
		return nil, &MalformedError{Violations: violations}
	}

	d := &Dictionary{
		fields:   fields,
		keys:     keys,
		pattern:  pattern,
		families: families,
		memberOf: make(map[string]memberRef),
	}
	for i, fam := range families {
		for m, key := range fam.Members {
			if key != "" {
				d.memberOf[key] = memberRef{family: i, month: time.Month(m + 1)}
			}
		}
	}
	return d, nil
}

func buildField(key string, sf sourceField, fold bool) (*FieldDefinition, []Violation) {
	var violations []Violation

	def := &FieldDefinition{
		Key:      key,
		labels:   make(map[string]string, len(sf.Values.entries)),
		foldCase: fold,
	}
	if sf.Name == nil || strings.TrimSpace(*sf.Name) == "" {
		violations = append(violations, Violation{Field: key, Rule: RuleMissingName, Detail: "display name is missing or empty"})
	} else {
		def.Name = *sf.Name
	}

	for _, code := range sf.Values.duplicates {
		violations = append(violations, Violation{
			Field:  key,
			Rule:   RuleAmbiguousCodes,
			Detail: fmt.Sprintf("code %q appears more than once", code),
		})
	}

	for _, v := range sf.Values.entries {
		if isNullSpelling(v.code) {
			if def.hasNull && def.nullLabel != v.label {
				violations = append(violations, Violation{
					Field:  key,
					Rule:   RuleConflictingNull,
					Detail: fmt.Sprintf("null spellings carry different labels %q and %q", def.nullLabel, v.label),
				})
				continue
			}
			def.nullLabel, def.hasNull = v.label, true
			continue
		}
		def.labels[v.code] = v.label
		def.codes = append(def.codes, v.code)
	}

	if fold {
		def.folded = make(map[string]string, len(def.codes))
		for _, code := range def.codes {
			lower := strings.ToLower(code)
			if prev, ok := def.folded[lower]; ok {
				violations = append(violations, Violation{
					Field:  key,
					Rule:   RuleAmbiguousCodes,
					Detail: fmt.Sprintf("codes %q and %q collide when case is ignored", prev, code),
				})
				continue
			}
			def.folded[lower] = code
		}
	}

	return def, violations
}
