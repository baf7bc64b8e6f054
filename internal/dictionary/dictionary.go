// Package dictionary loads and indexes a code dictionary: a flat mapping from
// field key to a display name and a code→label table.
//
// A Dictionary is immutable once loaded and safe for concurrent readers.
package dictionary

import (
	"slices"
	"strings"
	"time"
)

// NullSentinel is the canonical value-table key meaning "raw value is null".
// Source spellings such as "NULL", "Null" and "null" are folded into it at load.
const NullSentinel = "NULL"

func isNullSpelling(code string) bool {
	return strings.EqualFold(code, NullSentinel)
}

// FieldDefinition is one field's display name and value table.
type FieldDefinition struct {
	Key  string
	Name string

	labels    map[string]string
	codes     []string // source order, sentinel excluded
	nullLabel string
	hasNull   bool

	foldCase bool
	folded   map[string]string // lowercased code -> code
}

// FreeForm reports whether the field has no enumerated codes. Non-null raw
// values of a free-form field decode to themselves.
func (f *FieldDefinition) FreeForm() bool {
	return len(f.codes) == 0
}

// CaseSensitive reports whether codes are matched exactly.
func (f *FieldDefinition) CaseSensitive() bool {
	return !f.foldCase
}

// Codes returns the enumerated codes in source order, without the null sentinel.
func (f *FieldDefinition) Codes() []string {
	return slices.Clone(f.codes)
}

// Labels returns a copy of the code→label table, without the null sentinel.
func (f *FieldDefinition) Labels() map[string]string {
	out := make(map[string]string, len(f.labels))
	for k, v := range f.labels {
		out[k] = v
	}
	return out
}

// NullLabel returns the label of the null sentinel, if the field defines one.
func (f *FieldDefinition) NullLabel() (string, bool) {
	return f.nullLabel, f.hasNull
}

// Match looks up raw under the field's case policy and returns the matched
// code as spelled in the dictionary together with its label.
func (f *FieldDefinition) Match(raw string) (code, label string, ok bool) {
	if label, ok := f.labels[raw]; ok {
		return raw, label, true
	}
	if !f.foldCase {
		return "", "", false
	}
	code, ok = f.folded[strings.ToLower(raw)]
	if !ok {
		return "", "", false
	}
	return code, f.labels[code], true
}

func (f *FieldDefinition) sameTable(o *FieldDefinition) bool {
	if f.hasNull != o.hasNull || f.nullLabel != o.nullLabel || len(f.labels) != len(o.labels) {
		return false
	}
	for code, label := range f.labels {
		if other, ok := o.labels[code]; !ok || other != label {
			return false
		}
	}
	return true
}

type memberRef struct {
	family int
	month  time.Month
}

// Dictionary maps field keys to definitions and caches the monthly families
// detected with the load-time naming pattern.
type Dictionary struct {
	fields   map[string]*FieldDefinition
	keys     []string
	pattern  NamingPattern
	families []Family
	memberOf map[string]memberRef
}

// Lookup returns the definition for key.
func (d *Dictionary) Lookup(key string) (*FieldDefinition, bool) {
	f, ok := d.fields[key]
	return f, ok
}

// Field is Lookup with an ErrFieldNotFound error for absent keys.
func (d *Dictionary) Field(key string) (*FieldDefinition, error) {
	f, ok := d.fields[key]
	if !ok {
		return nil, &FieldError{Key: key, Err: ErrFieldNotFound}
	}
	return f, nil
}

// Keys returns all field keys in sorted order.
func (d *Dictionary) Keys() []string {
	return slices.Clone(d.keys)
}

// Len returns the number of fields.
func (d *Dictionary) Len() int {
	return len(d.keys)
}

// Pattern returns the naming pattern families were detected with.
func (d *Dictionary) Pattern() NamingPattern {
	return d.pattern
}

// MonthlyFamilies returns the families detected at load, sorted by base.
func (d *Dictionary) MonthlyFamilies() []Family {
	return slices.Clone(d.families)
}

// FamilyOf returns the load-time family key belongs to and its month.
func (d *Dictionary) FamilyOf(key string) (Family, time.Month, bool) {
	ref, ok := d.memberOf[key]
	if !ok {
		return Family{}, 0, false
	}
	return d.families[ref.family], ref.month, true
}

// FieldError attributes a lookup failure to a key.
type FieldError struct {
	Key string
	Err error
}

func (e *FieldError) Error() string {
	return e.Key + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
