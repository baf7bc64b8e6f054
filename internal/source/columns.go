package source

import (
	"fmt"
	"sort"

	"github.com/gyeh/codebook/internal/dictionary"
)

// CheckColumns rejects headers with empty or repeated column names.
func CheckColumns(columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("no columns found")
	}
	seen := make(map[string]bool, len(columns))
	for i, c := range columns {
		if c == "" {
			return fmt.Errorf("column %d has no name", i+1)
		}
		if seen[c] {
			return fmt.Errorf("duplicate column: %s", c)
		}
		seen[c] = true
	}
	return nil
}

// Coverage compares an input's columns with a dictionary.
type Coverage struct {
	// Known columns are defined in the dictionary; Unknown ones are not and
	// will decode as unknown fields.
	Known   []string `json:"known"`
	Unknown []string `json:"unknown"`
	// Missing lists dictionary fields that no column carries.
	Missing []string `json:"missing"`
	// Families maps each monthly family to the months the input covers.
	Families map[string]int `json:"families"`
}

// CoverageOf computes the coverage of columns against d.
func CoverageOf(columns []string, d *dictionary.Dictionary) Coverage {
	cov := Coverage{Families: make(map[string]int)}
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
		if _, ok := d.Lookup(c); ok {
			cov.Known = append(cov.Known, c)
		} else {
			cov.Unknown = append(cov.Unknown, c)
		}
	}
	for _, k := range d.Keys() {
		if !present[k] {
			cov.Missing = append(cov.Missing, k)
		}
	}
	for _, fam := range d.MonthlyFamilies() {
		n := 0
		for _, key := range fam.Members {
			if key != "" && present[key] {
				n++
			}
		}
		cov.Families[fam.Name()] = n
	}
	sort.Strings(cov.Known)
	sort.Strings(cov.Unknown)
	return cov
}
